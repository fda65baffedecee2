package sacraments

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sanctus-app/sanctus/internal/platform/store"
	"github.com/sanctus-app/sanctus/internal/shared"
)

// Repository persists sacrament records.
type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Record, error)
	Get(ctx context.Context, id uuid.UUID, scope *uuid.UUID) (Record, error)
	Create(ctx context.Context, rec Record) (Record, error)
	Update(ctx context.Context, rec Record) (Record, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error

	InsertIfAbsent(ctx context.Context, rec Record) error
	Overwrite(ctx context.Context, rec Record, scope *uuid.UUID) error
	MarkDeleted(ctx context.Context, id uuid.UUID, scope *uuid.UUID) error
}

const recordColumns = `id, member_id, sacrament_type, sacrament_date, officiating_minister, parish_id,
	church_name, certificate_number, godparent_1_name, godparent_2_name, spouse_id, spouse_name,
	witnesses, notes, created_at, updated_at`

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	table *store.LiveTable
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(db store.DBTX) *PGRepository {
	return &PGRepository{table: store.NewLiveTable(db, "sacrament_record", recordColumns, "Sacrament record")}
}

func scanRecord(row pgx.Row, r *Record) error {
	return row.Scan(&r.ID, &r.MemberID, &r.SacramentType, &r.SacramentDate, &r.OfficiatingMinister, &r.ParishID,
		&r.ChurchName, &r.CertificateNumber, &r.Godparent1Name, &r.Godparent2Name, &r.SpouseID, &r.SpouseName,
		&r.Witnesses, &r.Notes, &r.CreatedAt, &r.UpdatedAt)
}

// List returns live records, newest sacrament first.
func (r *PGRepository) List(ctx context.Context, filter ListFilter) ([]Record, error) {
	f := &store.Filter{}
	if filter.ParishID != nil {
		f.Where("parish_id = ?", *filter.ParishID)
	}
	if filter.MemberID != nil {
		f.Where("member_id = ?", *filter.MemberID)
	}
	if filter.Type != nil {
		f.Where("sacrament_type = ?", string(*filter.Type))
	}
	page := store.Page{Limit: filter.Limit, Offset: filter.Offset}.Normalize(50, 500)
	out := []Record{}
	err := r.table.List(ctx, f, "sacrament_date DESC", &page, func(rows pgx.Rows) error {
		var rec Record
		if err := scanRecord(rows, &rec); err != nil {
			return err
		}
		out = append(out, rec)
		return nil
	})
	return out, err
}

// Get loads one live record, confined to scope when set.
func (r *PGRepository) Get(ctx context.Context, id uuid.UUID, scope *uuid.UUID) (Record, error) {
	var rec Record
	err := r.table.Get(ctx, id, scope, func(row pgx.Row) error { return scanRecord(row, &rec) })
	return rec, err
}

// Create inserts a record.
func (r *PGRepository) Create(ctx context.Context, rec Record) (Record, error) {
	var out Record
	err := scanRecord(r.table.DB().QueryRow(ctx, `INSERT INTO sacrament_record (
			id, member_id, sacrament_type, sacrament_date, officiating_minister, parish_id,
			church_name, certificate_number, godparent_1_name, godparent_2_name, spouse_id, spouse_name,
			witnesses, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING `+recordColumns,
		rec.ID, rec.MemberID, string(rec.SacramentType), rec.SacramentDate, rec.OfficiatingMinister, rec.ParishID,
		rec.ChurchName, rec.CertificateNumber, rec.Godparent1Name, rec.Godparent2Name, rec.SpouseID, rec.SpouseName,
		rec.Witnesses, rec.Notes), &out)
	if err != nil {
		return Record{}, mapWriteError(err)
	}
	return out, nil
}

// Update writes the descriptive columns of a live record.
func (r *PGRepository) Update(ctx context.Context, rec Record) (Record, error) {
	var out Record
	err := scanRecord(r.table.DB().QueryRow(ctx, `UPDATE sacrament_record SET
			sacrament_date = $2, officiating_minister = $3, church_name = $4, certificate_number = $5,
			godparent_1_name = $6, godparent_2_name = $7, spouse_id = $8, spouse_name = $9,
			witnesses = $10, notes = $11, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+recordColumns,
		rec.ID, rec.SacramentDate, rec.OfficiatingMinister, rec.ChurchName, rec.CertificateNumber,
		rec.Godparent1Name, rec.Godparent2Name, rec.SpouseID, rec.SpouseName,
		rec.Witnesses, rec.Notes), &out)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, shared.NotFound("Sacrament record not found")
	}
	if err != nil {
		return Record{}, mapWriteError(err)
	}
	return out, nil
}

// SoftDelete marks a live record deleted.
func (r *PGRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.table.SoftDelete(ctx, id)
}

// InsertIfAbsent inserts a device-created record; an existing id wins.
func (r *PGRepository) InsertIfAbsent(ctx context.Context, rec Record) error {
	_, err := r.table.DB().Exec(ctx, `INSERT INTO sacrament_record (
			id, member_id, sacrament_type, sacrament_date, officiating_minister, parish_id,
			church_name, certificate_number, godparent_1_name, godparent_2_name, spouse_id, spouse_name,
			witnesses, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, COALESCE($15, NOW()), COALESCE($16, NOW()))
		ON CONFLICT (id) DO NOTHING`,
		rec.ID, rec.MemberID, string(rec.SacramentType), rec.SacramentDate, rec.OfficiatingMinister, rec.ParishID,
		rec.ChurchName, rec.CertificateNumber, rec.Godparent1Name, rec.Godparent2Name, rec.SpouseID, rec.SpouseName,
		rec.Witnesses, rec.Notes, rec.CreatedAt, rec.UpdatedAt)
	return err
}

// Overwrite replaces every mutable column of a live record with the device copy.
func (r *PGRepository) Overwrite(ctx context.Context, rec Record, scope *uuid.UUID) error {
	_, err := r.table.DB().Exec(ctx, `UPDATE sacrament_record SET
			member_id = $2, sacrament_type = $3, sacrament_date = $4, officiating_minister = $5,
			parish_id = $6, church_name = $7, certificate_number = $8, godparent_1_name = $9,
			godparent_2_name = $10, spouse_id = $11, spouse_name = $12, witnesses = $13,
			notes = $14, updated_at = COALESCE($15, NOW())
		WHERE id = $1 AND deleted_at IS NULL AND ($16::uuid IS NULL OR parish_id = $16)`,
		rec.ID, rec.MemberID, string(rec.SacramentType), rec.SacramentDate, rec.OfficiatingMinister,
		rec.ParishID, rec.ChurchName, rec.CertificateNumber, rec.Godparent1Name,
		rec.Godparent2Name, rec.SpouseID, rec.SpouseName, rec.Witnesses,
		rec.Notes, rec.UpdatedAt, scope)
	return err
}

// MarkDeleted soft-deletes by id; absent or already deleted rows are left alone.
func (r *PGRepository) MarkDeleted(ctx context.Context, id uuid.UUID, scope *uuid.UUID) error {
	_, err := r.table.DB().Exec(ctx, `UPDATE sacrament_record SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL AND ($2::uuid IS NULL OR parish_id = $2)`, id, scope)
	return err
}

func mapWriteError(err error) error {
	if store.IsForeignKeyViolation(err) {
		return shared.BadRequest("unknown member or parish")
	}
	return fmt.Errorf("sacrament: %w", err)
}

var _ Repository = (*PGRepository)(nil)
