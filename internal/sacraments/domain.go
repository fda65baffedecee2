package sacraments

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/sanctus-app/sanctus/internal/platform/patch"
)

// Type names one of the seven sacraments as recorded by the parish.
type Type string

const (
	TypeBaptism         Type = "BAPTISM"
	TypeFirstCommunion  Type = "FIRST_COMMUNION"
	TypeConfirmation    Type = "CONFIRMATION"
	TypeMarriage        Type = "MARRIAGE"
	TypeHolyOrders      Type = "HOLY_ORDERS"
	TypeAnointingOfSick Type = "ANOINTING_OF_SICK"
)

var types = []Type{TypeBaptism, TypeFirstCommunion, TypeConfirmation, TypeMarriage, TypeHolyOrders, TypeAnointingOfSick}

// Valid reports whether t is a known sacrament type.
func (t Type) Valid() bool { return slices.Contains(types, t) }

// Record is a sacrament received by a member.
type Record struct {
	ID                  uuid.UUID   `json:"id"`
	MemberID            uuid.UUID   `json:"member_id"`
	SacramentType       Type        `json:"sacrament_type"`
	SacramentDate       pgtype.Date `json:"sacrament_date"`
	OfficiatingMinister *string     `json:"officiating_minister"`
	ParishID            uuid.UUID   `json:"parish_id"`
	ChurchName          *string     `json:"church_name"`
	CertificateNumber   *string     `json:"certificate_number"`
	Godparent1Name      *string     `json:"godparent_1_name"`
	Godparent2Name      *string     `json:"godparent_2_name"`
	SpouseID            *uuid.UUID  `json:"spouse_id"`
	SpouseName          *string     `json:"spouse_name"`
	Witnesses           *string     `json:"witnesses"`
	Notes               *string     `json:"notes"`
	CreatedAt           *time.Time  `json:"created_at"`
	UpdatedAt           *time.Time  `json:"updated_at"`
}

// OwnerParish returns the parish that keeps the register entry.
func (r Record) OwnerParish() uuid.UUID { return r.ParishID }

// Validate checks required fields and the sacrament type.
func (r Record) Validate() error {
	switch {
	case r.ID == uuid.Nil:
		return fmt.Errorf("missing field `id`")
	case r.MemberID == uuid.Nil:
		return fmt.Errorf("missing field `member_id`")
	case r.ParishID == uuid.Nil:
		return fmt.Errorf("missing field `parish_id`")
	case !r.SacramentType.Valid():
		return fmt.Errorf("unknown sacrament_type %q", r.SacramentType)
	case !r.SacramentDate.Valid:
		return fmt.Errorf("missing field `sacrament_date`")
	}
	return nil
}

// CreateInput is the payload for recording a sacrament.
type CreateInput struct {
	MemberID            uuid.UUID   `json:"member_id" validate:"required"`
	SacramentType       Type        `json:"sacrament_type" validate:"required"`
	SacramentDate       pgtype.Date `json:"sacrament_date"`
	OfficiatingMinister *string     `json:"officiating_minister"`
	ParishID            *uuid.UUID  `json:"parish_id"`
	ChurchName          *string     `json:"church_name"`
	CertificateNumber   *string     `json:"certificate_number"`
	Godparent1Name      *string     `json:"godparent_1_name"`
	Godparent2Name      *string     `json:"godparent_2_name"`
	SpouseID            *uuid.UUID  `json:"spouse_id"`
	SpouseName          *string     `json:"spouse_name"`
	Witnesses           *string     `json:"witnesses"`
	Notes               *string     `json:"notes"`
}

// NewRecord builds a record kept by parishID.
func NewRecord(parishID uuid.UUID, in CreateInput) Record {
	return Record{
		ID:                  uuid.New(),
		MemberID:            in.MemberID,
		SacramentType:       in.SacramentType,
		SacramentDate:       in.SacramentDate,
		OfficiatingMinister: in.OfficiatingMinister,
		ParishID:            parishID,
		ChurchName:          in.ChurchName,
		CertificateNumber:   in.CertificateNumber,
		Godparent1Name:      in.Godparent1Name,
		Godparent2Name:      in.Godparent2Name,
		SpouseID:            in.SpouseID,
		SpouseName:          in.SpouseName,
		Witnesses:           in.Witnesses,
		Notes:               in.Notes,
	}
}

// Patch edits the descriptive fields of a record. Member, type and parish are fixed.
type Patch struct {
	SacramentDate       patch.Field[pgtype.Date] `json:"sacrament_date"`
	OfficiatingMinister patch.Field[string]      `json:"officiating_minister"`
	ChurchName          patch.Field[string]      `json:"church_name"`
	CertificateNumber   patch.Field[string]      `json:"certificate_number"`
	Godparent1Name      patch.Field[string]      `json:"godparent_1_name"`
	Godparent2Name      patch.Field[string]      `json:"godparent_2_name"`
	SpouseID            patch.Field[uuid.UUID]   `json:"spouse_id"`
	SpouseName          patch.Field[string]      `json:"spouse_name"`
	Witnesses           patch.Field[string]      `json:"witnesses"`
	Notes               patch.Field[string]      `json:"notes"`
}

// Apply merges p onto existing.
func Apply(existing Record, p Patch) Record {
	out := existing
	out.SacramentDate = p.SacramentDate.ApplyRequired(existing.SacramentDate)
	out.OfficiatingMinister = p.OfficiatingMinister.Apply(existing.OfficiatingMinister)
	out.ChurchName = p.ChurchName.Apply(existing.ChurchName)
	out.CertificateNumber = p.CertificateNumber.Apply(existing.CertificateNumber)
	out.Godparent1Name = p.Godparent1Name.Apply(existing.Godparent1Name)
	out.Godparent2Name = p.Godparent2Name.Apply(existing.Godparent2Name)
	out.SpouseID = p.SpouseID.Apply(existing.SpouseID)
	out.SpouseName = p.SpouseName.Apply(existing.SpouseName)
	out.Witnesses = p.Witnesses.Apply(existing.Witnesses)
	out.Notes = p.Notes.Apply(existing.Notes)
	return out
}

// ListFilter narrows record listings. ParishID nil means any parish.
type ListFilter struct {
	ParishID *uuid.UUID
	MemberID *uuid.UUID
	Type     *Type
	Limit    int
	Offset   int
}
