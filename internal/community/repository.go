package community

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sanctus-app/sanctus/internal/platform/store"
	"github.com/sanctus-app/sanctus/internal/shared"
)

// Repository persists clusters, SCCs and families. Reads exclude soft-deleted rows.
type Repository interface {
	ListClusters(ctx context.Context, filter ListFilter) ([]Cluster, error)
	GetCluster(ctx context.Context, id uuid.UUID, scope *uuid.UUID) (Cluster, error)
	CreateCluster(ctx context.Context, c Cluster) (Cluster, error)
	UpdateCluster(ctx context.Context, c Cluster) (Cluster, error)
	DeleteCluster(ctx context.Context, id uuid.UUID) error

	ListSCCs(ctx context.Context, filter ListFilter) ([]SCC, error)
	GetSCC(ctx context.Context, id uuid.UUID, scope *uuid.UUID) (SCC, error)
	CreateSCC(ctx context.Context, s SCC) (SCC, error)
	UpdateSCC(ctx context.Context, s SCC) (SCC, error)
	DeleteSCC(ctx context.Context, id uuid.UUID) error

	ListFamilies(ctx context.Context, filter ListFilter) ([]Family, error)
	GetFamily(ctx context.Context, id uuid.UUID, scope *uuid.UUID) (Family, error)
	CreateFamily(ctx context.Context, f Family) (Family, error)
	UpdateFamily(ctx context.Context, f Family) (Family, error)
	DeleteFamily(ctx context.Context, id uuid.UUID) error
}

const (
	clusterColumns = `id, parish_id, cluster_code, cluster_name, location_description, leader_name,
	is_active, created_at, updated_at`
	sccColumns = `id, parish_id, cluster_id, scc_code, scc_name, patron_saint, leader_name,
	location_description, meeting_day, meeting_time::text, is_active, created_at, updated_at`
	familyColumns = `id, parish_id, scc_id, family_code, family_name, head_of_family_id,
	physical_address, postal_address, primary_phone, secondary_phone, email, notes,
	is_active, created_at, updated_at`
)

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	clusters *store.LiveTable
	sccs     *store.LiveTable
	families *store.LiveTable
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(db store.DBTX) *PGRepository {
	return &PGRepository{
		clusters: store.NewLiveTable(db, "cluster", clusterColumns, "Cluster"),
		sccs:     store.NewLiveTable(db, "scc", sccColumns, "SCC"),
		families: store.NewLiveTable(db, "family", familyColumns, "Family"),
	}
}

func scanCluster(row pgx.Row, c *Cluster) error {
	return row.Scan(&c.ID, &c.ParishID, &c.ClusterCode, &c.ClusterName, &c.LocationDescription, &c.LeaderName,
		&c.IsActive, &c.CreatedAt, &c.UpdatedAt)
}

func scanSCC(row pgx.Row, s *SCC) error {
	return row.Scan(&s.ID, &s.ParishID, &s.ClusterID, &s.SCCCode, &s.SCCName, &s.PatronSaint, &s.LeaderName,
		&s.LocationDescription, &s.MeetingDay, &s.MeetingTime, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
}

func scanFamily(row pgx.Row, f *Family) error {
	return row.Scan(&f.ID, &f.ParishID, &f.SCCID, &f.FamilyCode, &f.FamilyName, &f.HeadOfFamilyID,
		&f.PhysicalAddress, &f.PostalAddress, &f.PrimaryPhone, &f.SecondaryPhone, &f.Email, &f.Notes,
		&f.IsActive, &f.CreatedAt, &f.UpdatedAt)
}

func listFilter(filter ListFilter, parentColumn string) (*store.Filter, *store.Page) {
	f := (&store.Filter{}).Where("parish_id = ?", filter.ParishID)
	if parentColumn != "" && filter.ParentID != nil {
		f.Where(parentColumn+" = ?", *filter.ParentID)
	}
	page := store.Page{Limit: filter.Limit, Offset: filter.Offset}.Normalize(100, 500)
	return f, &page
}

// ListClusters returns live clusters of one parish ordered by name.
func (r *PGRepository) ListClusters(ctx context.Context, filter ListFilter) ([]Cluster, error) {
	f, page := listFilter(filter, "")
	out := []Cluster{}
	err := r.clusters.List(ctx, f, "cluster_name", page, func(rows pgx.Rows) error {
		var c Cluster
		if err := scanCluster(rows, &c); err != nil {
			return err
		}
		out = append(out, c)
		return nil
	})
	return out, err
}

// GetCluster loads one live cluster, confined to scope when set.
func (r *PGRepository) GetCluster(ctx context.Context, id uuid.UUID, scope *uuid.UUID) (Cluster, error) {
	var c Cluster
	err := r.clusters.Get(ctx, id, scope, func(row pgx.Row) error { return scanCluster(row, &c) })
	return c, err
}

// CreateCluster inserts a cluster.
func (r *PGRepository) CreateCluster(ctx context.Context, c Cluster) (Cluster, error) {
	var out Cluster
	err := scanCluster(r.clusters.DB().QueryRow(ctx, `INSERT INTO cluster (
			id, parish_id, cluster_code, cluster_name, location_description, leader_name, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, TRUE))
		RETURNING `+clusterColumns,
		c.ID, c.ParishID, c.ClusterCode, c.ClusterName, c.LocationDescription, c.LeaderName, c.IsActive), &out)
	if err != nil {
		return Cluster{}, mapWriteError(err, "cluster_code")
	}
	return out, nil
}

// UpdateCluster writes every mutable column of a live cluster.
func (r *PGRepository) UpdateCluster(ctx context.Context, c Cluster) (Cluster, error) {
	var out Cluster
	err := scanCluster(r.clusters.DB().QueryRow(ctx, `UPDATE cluster SET
			cluster_code = $2, cluster_name = $3, location_description = $4, leader_name = $5,
			is_active = COALESCE($6, is_active), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+clusterColumns,
		c.ID, c.ClusterCode, c.ClusterName, c.LocationDescription, c.LeaderName, c.IsActive), &out)
	if err != nil {
		return Cluster{}, notFoundOr(err, "Cluster", "cluster_code")
	}
	return out, nil
}

// DeleteCluster soft-deletes a cluster.
func (r *PGRepository) DeleteCluster(ctx context.Context, id uuid.UUID) error {
	return r.clusters.SoftDelete(ctx, id)
}

// ListSCCs returns live SCCs of one parish, optionally of one cluster, ordered by name.
func (r *PGRepository) ListSCCs(ctx context.Context, filter ListFilter) ([]SCC, error) {
	f, page := listFilter(filter, "cluster_id")
	out := []SCC{}
	err := r.sccs.List(ctx, f, "scc_name", page, func(rows pgx.Rows) error {
		var s SCC
		if err := scanSCC(rows, &s); err != nil {
			return err
		}
		out = append(out, s)
		return nil
	})
	return out, err
}

// GetSCC loads one live SCC, confined to scope when set.
func (r *PGRepository) GetSCC(ctx context.Context, id uuid.UUID, scope *uuid.UUID) (SCC, error) {
	var s SCC
	err := r.sccs.Get(ctx, id, scope, func(row pgx.Row) error { return scanSCC(row, &s) })
	return s, err
}

// CreateSCC inserts an SCC.
func (r *PGRepository) CreateSCC(ctx context.Context, s SCC) (SCC, error) {
	var out SCC
	err := scanSCC(r.sccs.DB().QueryRow(ctx, `INSERT INTO scc (
			id, parish_id, cluster_id, scc_code, scc_name, patron_saint, leader_name,
			location_description, meeting_day, meeting_time, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::time, COALESCE($11, TRUE))
		RETURNING `+sccColumns,
		s.ID, s.ParishID, s.ClusterID, s.SCCCode, s.SCCName, s.PatronSaint, s.LeaderName,
		s.LocationDescription, s.MeetingDay, s.MeetingTime, s.IsActive), &out)
	if err != nil {
		return SCC{}, mapWriteError(err, "scc_code")
	}
	return out, nil
}

// UpdateSCC writes every mutable column of a live SCC.
func (r *PGRepository) UpdateSCC(ctx context.Context, s SCC) (SCC, error) {
	var out SCC
	err := scanSCC(r.sccs.DB().QueryRow(ctx, `UPDATE scc SET
			cluster_id = $2, scc_code = $3, scc_name = $4, patron_saint = $5, leader_name = $6,
			location_description = $7, meeting_day = $8, meeting_time = $9::time,
			is_active = COALESCE($10, is_active), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+sccColumns,
		s.ID, s.ClusterID, s.SCCCode, s.SCCName, s.PatronSaint, s.LeaderName,
		s.LocationDescription, s.MeetingDay, s.MeetingTime, s.IsActive), &out)
	if err != nil {
		return SCC{}, notFoundOr(err, "SCC", "scc_code")
	}
	return out, nil
}

// DeleteSCC soft-deletes an SCC.
func (r *PGRepository) DeleteSCC(ctx context.Context, id uuid.UUID) error {
	return r.sccs.SoftDelete(ctx, id)
}

// ListFamilies returns live families of one parish, optionally of one SCC, ordered by name.
func (r *PGRepository) ListFamilies(ctx context.Context, filter ListFilter) ([]Family, error) {
	f, page := listFilter(filter, "scc_id")
	out := []Family{}
	err := r.families.List(ctx, f, "family_name", page, func(rows pgx.Rows) error {
		var fam Family
		if err := scanFamily(rows, &fam); err != nil {
			return err
		}
		out = append(out, fam)
		return nil
	})
	return out, err
}

// GetFamily loads one live family, confined to scope when set.
func (r *PGRepository) GetFamily(ctx context.Context, id uuid.UUID, scope *uuid.UUID) (Family, error) {
	var f Family
	err := r.families.Get(ctx, id, scope, func(row pgx.Row) error { return scanFamily(row, &f) })
	return f, err
}

// CreateFamily inserts a family.
func (r *PGRepository) CreateFamily(ctx context.Context, f Family) (Family, error) {
	var out Family
	err := scanFamily(r.families.DB().QueryRow(ctx, `INSERT INTO family (
			id, parish_id, scc_id, family_code, family_name, head_of_family_id, physical_address,
			postal_address, primary_phone, secondary_phone, email, notes, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, COALESCE($13, TRUE))
		RETURNING `+familyColumns,
		f.ID, f.ParishID, f.SCCID, f.FamilyCode, f.FamilyName, f.HeadOfFamilyID, f.PhysicalAddress,
		f.PostalAddress, f.PrimaryPhone, f.SecondaryPhone, f.Email, f.Notes, f.IsActive), &out)
	if err != nil {
		return Family{}, mapWriteError(err, "family_code")
	}
	return out, nil
}

// UpdateFamily writes every mutable column of a live family.
func (r *PGRepository) UpdateFamily(ctx context.Context, f Family) (Family, error) {
	var out Family
	err := scanFamily(r.families.DB().QueryRow(ctx, `UPDATE family SET
			scc_id = $2, family_code = $3, family_name = $4, head_of_family_id = $5,
			physical_address = $6, postal_address = $7, primary_phone = $8, secondary_phone = $9,
			email = $10, notes = $11, is_active = COALESCE($12, is_active), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+familyColumns,
		f.ID, f.SCCID, f.FamilyCode, f.FamilyName, f.HeadOfFamilyID,
		f.PhysicalAddress, f.PostalAddress, f.PrimaryPhone, f.SecondaryPhone,
		f.Email, f.Notes, f.IsActive), &out)
	if err != nil {
		return Family{}, notFoundOr(err, "Family", "family_code")
	}
	return out, nil
}

// DeleteFamily soft-deletes a family.
func (r *PGRepository) DeleteFamily(ctx context.Context, id uuid.UUID) error {
	return r.families.SoftDelete(ctx, id)
}

func notFoundOr(err error, noun, codeField string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.NotFound(noun + " not found")
	}
	return mapWriteError(err, codeField)
}

func mapWriteError(err error, codeField string) error {
	switch {
	case store.IsUniqueViolation(err):
		return shared.Conflict(codeField + " already exists in this parish")
	case store.IsForeignKeyViolation(err):
		return shared.BadRequest("unknown parish, cluster, community or member")
	default:
		return fmt.Errorf("community: %w", err)
	}
}

var _ Repository = (*PGRepository)(nil)
