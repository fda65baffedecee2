package members

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sanctus-app/sanctus/internal/platform/store"
	"github.com/sanctus-app/sanctus/internal/shared"
)

// Repository persists members. Every read excludes soft-deleted rows.
type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Member, error)
	Get(ctx context.Context, id uuid.UUID, scope *uuid.UUID) (Member, error)
	Create(ctx context.Context, m Member) (Member, error)
	Update(ctx context.Context, m Member) (Member, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	SetPhotoURL(ctx context.Context, id uuid.UUID, url string) error

	InsertIfAbsent(ctx context.Context, m Member) error
	Overwrite(ctx context.Context, m Member, scope *uuid.UUID) error
	MarkDeleted(ctx context.Context, id uuid.UUID, scope *uuid.UUID) error
}

const memberColumns = `id, parish_id, family_id, scc_id, member_code, first_name, middle_name, last_name,
	date_of_birth, gender, marital_status, national_id, occupation, email, phone_number,
	physical_address, photo_url, family_role, notes, is_active, created_at, updated_at`

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	table *store.LiveTable
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(db store.DBTX) *PGRepository {
	return &PGRepository{table: store.NewLiveTable(db, "member", memberColumns, "Member")}
}

func scanMember(row pgx.Row, m *Member) error {
	return row.Scan(&m.ID, &m.ParishID, &m.FamilyID, &m.SCCID, &m.MemberCode, &m.FirstName, &m.MiddleName, &m.LastName,
		&m.DateOfBirth, &m.Gender, &m.MaritalStatus, &m.NationalID, &m.Occupation, &m.Email, &m.PhoneNumber,
		&m.PhysicalAddress, &m.PhotoURL, &m.FamilyRole, &m.Notes, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
}

// List returns live members of one parish ordered by name.
func (r *PGRepository) List(ctx context.Context, filter ListFilter) ([]Member, error) {
	f := (&store.Filter{}).Where("parish_id = ?", filter.ParishID).
		WhereIf(filter.FamilyID != nil, "family_id = ?", derefID(filter.FamilyID)).
		WhereIf(filter.Search != "", "(first_name ILIKE ? OR last_name ILIKE ? OR member_code ILIKE ?)",
			"%"+filter.Search+"%", "%"+filter.Search+"%", "%"+filter.Search+"%")
	page := store.Page{Limit: filter.Limit, Offset: filter.Offset}.Normalize(50, 500)
	out := []Member{}
	err := r.table.List(ctx, f, "last_name, first_name", &page, func(rows pgx.Rows) error {
		var m Member
		if err := scanMember(rows, &m); err != nil {
			return err
		}
		out = append(out, m)
		return nil
	})
	return out, err
}

// Get loads one live member, confined to scope when set.
func (r *PGRepository) Get(ctx context.Context, id uuid.UUID, scope *uuid.UUID) (Member, error) {
	var m Member
	err := r.table.Get(ctx, id, scope, func(row pgx.Row) error { return scanMember(row, &m) })
	return m, err
}

// Create inserts a new member.
func (r *PGRepository) Create(ctx context.Context, m Member) (Member, error) {
	var out Member
	err := scanMember(r.table.DB().QueryRow(ctx, `INSERT INTO member (
			id, parish_id, family_id, scc_id, member_code, first_name, middle_name, last_name,
			date_of_birth, gender, marital_status, national_id, occupation, email, phone_number,
			physical_address, photo_url, family_role, notes, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, COALESCE($20, TRUE))
		RETURNING `+memberColumns,
		m.ID, m.ParishID, m.FamilyID, m.SCCID, m.MemberCode, m.FirstName, m.MiddleName, m.LastName,
		m.DateOfBirth, m.Gender, m.MaritalStatus, m.NationalID, m.Occupation, m.Email, m.PhoneNumber,
		m.PhysicalAddress, m.PhotoURL, m.FamilyRole, m.Notes, m.IsActive), &out)
	if err != nil {
		return Member{}, mapWriteError(err)
	}
	return out, nil
}

// Update writes every mutable column of a live member.
func (r *PGRepository) Update(ctx context.Context, m Member) (Member, error) {
	var out Member
	err := scanMember(r.table.DB().QueryRow(ctx, `UPDATE member SET
			family_id = $2, scc_id = $3, member_code = $4, first_name = $5, middle_name = $6,
			last_name = $7, date_of_birth = $8, gender = $9, marital_status = $10, national_id = $11,
			occupation = $12, email = $13, phone_number = $14, physical_address = $15, photo_url = $16,
			family_role = $17, notes = $18, is_active = COALESCE($19, is_active), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+memberColumns,
		m.ID, m.FamilyID, m.SCCID, m.MemberCode, m.FirstName, m.MiddleName,
		m.LastName, m.DateOfBirth, m.Gender, m.MaritalStatus, m.NationalID,
		m.Occupation, m.Email, m.PhoneNumber, m.PhysicalAddress, m.PhotoURL,
		m.FamilyRole, m.Notes, m.IsActive), &out)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Member{}, shared.NotFound("Member not found")
		}
		return Member{}, mapWriteError(err)
	}
	return out, nil
}

// SoftDelete marks a live member deleted.
func (r *PGRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.table.SoftDelete(ctx, id)
}

// SetPhotoURL records an uploaded photo.
func (r *PGRepository) SetPhotoURL(ctx context.Context, id uuid.UUID, url string) error {
	tag, err := r.table.DB().Exec(ctx, `UPDATE member SET photo_url = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id, url)
	if err != nil {
		return fmt.Errorf("member: set photo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("Member not found")
	}
	return nil
}

// InsertIfAbsent inserts a device-created member; an existing id wins.
func (r *PGRepository) InsertIfAbsent(ctx context.Context, m Member) error {
	_, err := r.table.DB().Exec(ctx, `INSERT INTO member (
			id, parish_id, family_id, scc_id, member_code, first_name, middle_name, last_name,
			date_of_birth, gender, marital_status, national_id, occupation, email, phone_number,
			physical_address, photo_url, family_role, notes, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19,
			COALESCE($20, TRUE), COALESCE($21, NOW()), COALESCE($22, NOW()))
		ON CONFLICT (id) DO NOTHING`,
		m.ID, m.ParishID, m.FamilyID, m.SCCID, m.MemberCode, m.FirstName, m.MiddleName, m.LastName,
		m.DateOfBirth, m.Gender, m.MaritalStatus, m.NationalID, m.Occupation, m.Email, m.PhoneNumber,
		m.PhysicalAddress, m.PhotoURL, m.FamilyRole, m.Notes, m.IsActive, m.CreatedAt, m.UpdatedAt)
	return err
}

// Overwrite replaces every mutable column of a live member with the device copy.
func (r *PGRepository) Overwrite(ctx context.Context, m Member, scope *uuid.UUID) error {
	_, err := r.table.DB().Exec(ctx, `UPDATE member SET
			parish_id = $2, family_id = $3, scc_id = $4, member_code = $5, first_name = $6,
			middle_name = $7, last_name = $8, date_of_birth = $9, gender = $10,
			marital_status = $11, national_id = $12, occupation = $13, email = $14,
			phone_number = $15, physical_address = $16, photo_url = $17, family_role = $18,
			notes = $19, is_active = COALESCE($20, is_active), updated_at = COALESCE($21, NOW())
		WHERE id = $1 AND deleted_at IS NULL AND ($22::uuid IS NULL OR parish_id = $22)`,
		m.ID, m.ParishID, m.FamilyID, m.SCCID, m.MemberCode, m.FirstName,
		m.MiddleName, m.LastName, m.DateOfBirth, m.Gender,
		m.MaritalStatus, m.NationalID, m.Occupation, m.Email,
		m.PhoneNumber, m.PhysicalAddress, m.PhotoURL, m.FamilyRole,
		m.Notes, m.IsActive, m.UpdatedAt, scope)
	return err
}

// MarkDeleted soft-deletes by id; absent or already deleted rows are left alone.
func (r *PGRepository) MarkDeleted(ctx context.Context, id uuid.UUID, scope *uuid.UUID) error {
	_, err := r.table.DB().Exec(ctx, `UPDATE member SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL AND ($2::uuid IS NULL OR parish_id = $2)`, id, scope)
	return err
}

func mapWriteError(err error) error {
	switch {
	case store.IsUniqueViolation(err):
		return shared.Conflict("member_code already exists in this parish")
	case store.IsForeignKeyViolation(err):
		return shared.BadRequest("unknown parish, family or community")
	default:
		return fmt.Errorf("member: %w", err)
	}
}

func derefID(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	return *id
}

var _ Repository = (*PGRepository)(nil)
