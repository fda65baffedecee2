package parishes

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sanctus-app/sanctus/internal/platform/store"
	"github.com/sanctus-app/sanctus/internal/shared"
)

// Repository persists parishes and reads dioceses.
type Repository interface {
	ListDioceses(ctx context.Context) ([]Diocese, error)
	List(ctx context.Context, filter ListFilter) ([]Parish, error)
	Get(ctx context.Context, id uuid.UUID) (Parish, error)
	Create(ctx context.Context, p Parish) (Parish, error)
	Update(ctx context.Context, p Parish) (Parish, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	SetLogoURL(ctx context.Context, id uuid.UUID, url string) error
}

const parishColumns = `id, diocese_id, parish_code, parish_name, patron_saint, priest_name, established_date,
	physical_address, postal_address, contact_email, contact_phone, timezone, logo_url, is_active,
	created_at, updated_at`

const dioceseColumns = `id, diocese_code, diocese_name, bishop_name, established_date, headquarters_address,
	contact_email, contact_phone, country, currency_code, logo_url, is_active, created_at, updated_at`

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	parishes *store.LiveTable
	dioceses *store.LiveTable
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(db store.DBTX) *PGRepository {
	return &PGRepository{
		parishes: store.NewLiveTable(db, "parish", parishColumns, "Parish"),
		dioceses: store.NewLiveTable(db, "diocese", dioceseColumns, "Diocese"),
	}
}

func scanParish(row pgx.Row, p *Parish) error {
	return row.Scan(&p.ID, &p.DioceseID, &p.ParishCode, &p.ParishName, &p.PatronSaint, &p.PriestName, &p.EstablishedDate,
		&p.PhysicalAddress, &p.PostalAddress, &p.ContactEmail, &p.ContactPhone, &p.Timezone, &p.LogoURL, &p.IsActive,
		&p.CreatedAt, &p.UpdatedAt)
}

// ListDioceses returns live dioceses by name.
func (r *PGRepository) ListDioceses(ctx context.Context) ([]Diocese, error) {
	out := []Diocese{}
	err := r.dioceses.List(ctx, &store.Filter{}, "diocese_name", nil, func(rows pgx.Rows) error {
		var d Diocese
		if err := rows.Scan(&d.ID, &d.DioceseCode, &d.DioceseName, &d.BishopName, &d.EstablishedDate, &d.HeadquartersAddress,
			&d.ContactEmail, &d.ContactPhone, &d.Country, &d.CurrencyCode, &d.LogoURL, &d.IsActive, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return err
		}
		out = append(out, d)
		return nil
	})
	return out, err
}

// List returns live parishes by name.
func (r *PGRepository) List(ctx context.Context, filter ListFilter) ([]Parish, error) {
	f := &store.Filter{}
	if filter.ParishID != nil {
		f.Where("id = ?", *filter.ParishID)
	}
	if filter.DioceseID != nil {
		f.Where("diocese_id = ?", *filter.DioceseID)
	}
	page := store.Page{Limit: filter.Limit, Offset: filter.Offset}.Normalize(100, 500)
	out := []Parish{}
	err := r.parishes.List(ctx, f, "parish_name", &page, func(rows pgx.Rows) error {
		var p Parish
		if err := scanParish(rows, &p); err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	return out, err
}

// Get loads one live parish.
func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (Parish, error) {
	var p Parish
	err := r.parishes.Get(ctx, id, nil, func(row pgx.Row) error { return scanParish(row, &p) })
	return p, err
}

// Create inserts a parish.
func (r *PGRepository) Create(ctx context.Context, p Parish) (Parish, error) {
	var out Parish
	err := scanParish(r.parishes.DB().QueryRow(ctx, `INSERT INTO parish (
			id, diocese_id, parish_code, parish_name, patron_saint, priest_name, established_date,
			physical_address, postal_address, contact_email, contact_phone, timezone, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+parishColumns,
		p.ID, p.DioceseID, p.ParishCode, p.ParishName, p.PatronSaint, p.PriestName, p.EstablishedDate,
		p.PhysicalAddress, p.PostalAddress, p.ContactEmail, p.ContactPhone, p.Timezone, p.IsActive), &out)
	if err != nil {
		return Parish{}, mapWriteError(err)
	}
	return out, nil
}

// Update writes the mutable columns of a live parish.
func (r *PGRepository) Update(ctx context.Context, p Parish) (Parish, error) {
	var out Parish
	err := scanParish(r.parishes.DB().QueryRow(ctx, `UPDATE parish SET
			parish_name = $2, patron_saint = $3, priest_name = $4, established_date = $5,
			physical_address = $6, postal_address = $7, contact_email = $8, contact_phone = $9,
			timezone = $10, is_active = $11, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+parishColumns,
		p.ID, p.ParishName, p.PatronSaint, p.PriestName, p.EstablishedDate,
		p.PhysicalAddress, p.PostalAddress, p.ContactEmail, p.ContactPhone,
		p.Timezone, p.IsActive), &out)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Parish{}, shared.NotFound("Parish not found")
		}
		return Parish{}, mapWriteError(err)
	}
	return out, nil
}

// SoftDelete marks a live parish deleted.
func (r *PGRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.parishes.SoftDelete(ctx, id)
}

// SetLogoURL records an uploaded logo.
func (r *PGRepository) SetLogoURL(ctx context.Context, id uuid.UUID, url string) error {
	tag, err := r.parishes.DB().Exec(ctx, `UPDATE parish SET logo_url = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id, url)
	if err != nil {
		return fmt.Errorf("parish: set logo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("Parish not found")
	}
	return nil
}

func mapWriteError(err error) error {
	switch {
	case store.IsUniqueViolation(err):
		return shared.Conflict("parish_code already exists")
	case store.IsForeignKeyViolation(err):
		return shared.BadRequest("unknown diocese")
	default:
		return fmt.Errorf("parish: %w", err)
	}
}

var _ Repository = (*PGRepository)(nil)
