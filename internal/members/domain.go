package members

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/sanctus-app/sanctus/internal/platform/patch"
)

// Gender of a parishioner.
type Gender string

// MaritalStatus of a parishioner.
type MaritalStatus string

// FamilyRole is the member's position in their household.
type FamilyRole string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"

	MaritalSingle    MaritalStatus = "SINGLE"
	MaritalMarried   MaritalStatus = "MARRIED"
	MaritalWidowed   MaritalStatus = "WIDOWED"
	MaritalSeparated MaritalStatus = "SEPARATED"
	MaritalDivorced  MaritalStatus = "DIVORCED"

	FamilyHead   FamilyRole = "HEAD"
	FamilySpouse FamilyRole = "SPOUSE"
	FamilyMember FamilyRole = "MEMBER"
)

var (
	genders         = []Gender{GenderMale, GenderFemale}
	maritalStatuses = []MaritalStatus{MaritalSingle, MaritalMarried, MaritalWidowed, MaritalSeparated, MaritalDivorced}
	familyRoles     = []FamilyRole{FamilyHead, FamilySpouse, FamilyMember}
)

// Valid reports whether g is a known gender.
func (g Gender) Valid() bool { return slices.Contains(genders, g) }

// Valid reports whether s is a known marital status.
func (s MaritalStatus) Valid() bool { return slices.Contains(maritalStatuses, s) }

// Valid reports whether r is a known family role.
func (r FamilyRole) Valid() bool { return slices.Contains(familyRoles, r) }

// Member is a registered parishioner.
type Member struct {
	ID              uuid.UUID      `json:"id"`
	ParishID        uuid.UUID      `json:"parish_id"`
	FamilyID        *uuid.UUID     `json:"family_id"`
	SCCID           *uuid.UUID     `json:"scc_id"`
	MemberCode      string         `json:"member_code"`
	FirstName       string         `json:"first_name"`
	MiddleName      *string        `json:"middle_name"`
	LastName        string         `json:"last_name"`
	DateOfBirth     pgtype.Date    `json:"date_of_birth"`
	Gender          *Gender        `json:"gender"`
	MaritalStatus   *MaritalStatus `json:"marital_status"`
	NationalID      *string        `json:"national_id"`
	Occupation      *string        `json:"occupation"`
	Email           *string        `json:"email"`
	PhoneNumber     *string        `json:"phone_number"`
	PhysicalAddress *string        `json:"physical_address"`
	PhotoURL        *string        `json:"photo_url"`
	FamilyRole      *FamilyRole    `json:"family_role"`
	Notes           *string        `json:"notes"`
	IsActive        *bool          `json:"is_active"`
	CreatedAt       *time.Time     `json:"created_at"`
	UpdatedAt       *time.Time     `json:"updated_at"`
}

// OwnerParish returns the parish the member belongs to.
func (m Member) OwnerParish() uuid.UUID { return m.ParishID }

// Validate checks required fields and enum values.
func (m Member) Validate() error {
	switch {
	case m.ID == uuid.Nil:
		return fmt.Errorf("missing field `id`")
	case m.ParishID == uuid.Nil:
		return fmt.Errorf("missing field `parish_id`")
	case strings.TrimSpace(m.MemberCode) == "":
		return fmt.Errorf("missing field `member_code`")
	case strings.TrimSpace(m.FirstName) == "" || strings.TrimSpace(m.LastName) == "":
		return fmt.Errorf("first_name and last_name are required")
	case m.Gender != nil && !m.Gender.Valid():
		return fmt.Errorf("unknown gender %q", *m.Gender)
	case m.MaritalStatus != nil && !m.MaritalStatus.Valid():
		return fmt.Errorf("unknown marital_status %q", *m.MaritalStatus)
	case m.FamilyRole != nil && !m.FamilyRole.Valid():
		return fmt.Errorf("unknown family_role %q", *m.FamilyRole)
	}
	return nil
}

// CreateInput is the payload for registering a member.
type CreateInput struct {
	ParishID        *uuid.UUID     `json:"parish_id"`
	FamilyID        *uuid.UUID     `json:"family_id"`
	SCCID           *uuid.UUID     `json:"scc_id"`
	MemberCode      string         `json:"member_code" validate:"required,max=64"`
	FirstName       string         `json:"first_name" validate:"required,max=128"`
	MiddleName      *string        `json:"middle_name"`
	LastName        string         `json:"last_name" validate:"required,max=128"`
	DateOfBirth     pgtype.Date    `json:"date_of_birth"`
	Gender          *Gender        `json:"gender"`
	MaritalStatus   *MaritalStatus `json:"marital_status"`
	NationalID      *string        `json:"national_id"`
	Occupation      *string        `json:"occupation"`
	Email           *string        `json:"email" validate:"omitempty,email"`
	PhoneNumber     *string        `json:"phone_number"`
	PhysicalAddress *string        `json:"physical_address"`
	FamilyRole      *FamilyRole    `json:"family_role"`
	Notes           *string        `json:"notes"`
}

// NewMember builds a member owned by parishID from the create payload.
func NewMember(parishID uuid.UUID, in CreateInput) Member {
	active := true
	return Member{
		ID:              uuid.New(),
		ParishID:        parishID,
		FamilyID:        in.FamilyID,
		SCCID:           in.SCCID,
		MemberCode:      strings.TrimSpace(in.MemberCode),
		FirstName:       strings.TrimSpace(in.FirstName),
		MiddleName:      in.MiddleName,
		LastName:        strings.TrimSpace(in.LastName),
		DateOfBirth:     in.DateOfBirth,
		Gender:          in.Gender,
		MaritalStatus:   in.MaritalStatus,
		NationalID:      in.NationalID,
		Occupation:      in.Occupation,
		Email:           in.Email,
		PhoneNumber:     in.PhoneNumber,
		PhysicalAddress: in.PhysicalAddress,
		FamilyRole:      in.FamilyRole,
		Notes:           in.Notes,
		IsActive:        &active,
	}
}

// Patch is a partial update. Absent fields are kept, nulls clear nullable columns.
type Patch struct {
	FamilyID        patch.Field[uuid.UUID]     `json:"family_id"`
	SCCID           patch.Field[uuid.UUID]     `json:"scc_id"`
	MemberCode      patch.Field[string]        `json:"member_code"`
	FirstName       patch.Field[string]        `json:"first_name"`
	MiddleName      patch.Field[string]        `json:"middle_name"`
	LastName        patch.Field[string]        `json:"last_name"`
	DateOfBirth     patch.Field[pgtype.Date]   `json:"date_of_birth"`
	Gender          patch.Field[Gender]        `json:"gender"`
	MaritalStatus   patch.Field[MaritalStatus] `json:"marital_status"`
	NationalID      patch.Field[string]        `json:"national_id"`
	Occupation      patch.Field[string]        `json:"occupation"`
	Email           patch.Field[string]        `json:"email"`
	PhoneNumber     patch.Field[string]        `json:"phone_number"`
	PhysicalAddress patch.Field[string]        `json:"physical_address"`
	FamilyRole      patch.Field[FamilyRole]    `json:"family_role"`
	Notes           patch.Field[string]        `json:"notes"`
	IsActive        patch.Field[bool]          `json:"is_active"`
}

// Apply merges p onto existing without touching identity or ownership.
func Apply(existing Member, p Patch) Member {
	out := existing
	out.FamilyID = p.FamilyID.Apply(existing.FamilyID)
	out.SCCID = p.SCCID.Apply(existing.SCCID)
	out.MemberCode = p.MemberCode.ApplyRequired(existing.MemberCode)
	out.FirstName = p.FirstName.ApplyRequired(existing.FirstName)
	out.MiddleName = p.MiddleName.Apply(existing.MiddleName)
	out.LastName = p.LastName.ApplyRequired(existing.LastName)
	if p.DateOfBirth.IsNull() {
		out.DateOfBirth = pgtype.Date{}
	} else {
		out.DateOfBirth = p.DateOfBirth.ApplyRequired(existing.DateOfBirth)
	}
	out.Gender = p.Gender.Apply(existing.Gender)
	out.MaritalStatus = p.MaritalStatus.Apply(existing.MaritalStatus)
	out.NationalID = p.NationalID.Apply(existing.NationalID)
	out.Occupation = p.Occupation.Apply(existing.Occupation)
	out.Email = p.Email.Apply(existing.Email)
	out.PhoneNumber = p.PhoneNumber.Apply(existing.PhoneNumber)
	out.PhysicalAddress = p.PhysicalAddress.Apply(existing.PhysicalAddress)
	out.FamilyRole = p.FamilyRole.Apply(existing.FamilyRole)
	out.Notes = p.Notes.Apply(existing.Notes)
	out.IsActive = p.IsActive.Apply(existing.IsActive)
	return out
}

// ListFilter narrows member listings within one parish.
type ListFilter struct {
	ParishID uuid.UUID
	Search   string
	FamilyID *uuid.UUID
	Limit    int
	Offset   int
}
