package users

const userColumns = `id, parish_id, username, email, full_name, phone_number, role, profile_photo_url,
	is_active, created_at, updated_at`

const insertUserSQL = `INSERT INTO app_user (
		id, parish_id, username, email, password_hash, full_name, phone_number, role, is_active
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)
	RETURNING ` + userColumns
