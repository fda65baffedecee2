package parishes

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/sanctus-app/sanctus/internal/platform/patch"
)

// Diocese groups parishes under one bishop.
type Diocese struct {
	ID                  uuid.UUID   `json:"id"`
	DioceseCode         string      `json:"diocese_code"`
	DioceseName         string      `json:"diocese_name"`
	BishopName          *string     `json:"bishop_name"`
	EstablishedDate     pgtype.Date `json:"established_date"`
	HeadquartersAddress *string     `json:"headquarters_address"`
	ContactEmail        *string     `json:"contact_email"`
	ContactPhone        *string     `json:"contact_phone"`
	Country             *string     `json:"country"`
	CurrencyCode        *string     `json:"currency_code"`
	LogoURL             *string     `json:"logo_url"`
	IsActive            bool        `json:"is_active"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

// Parish is the tenant every scoped record belongs to.
type Parish struct {
	ID              uuid.UUID   `json:"id"`
	DioceseID       uuid.UUID   `json:"diocese_id"`
	ParishCode      string      `json:"parish_code"`
	ParishName      string      `json:"parish_name"`
	PatronSaint     *string     `json:"patron_saint"`
	PriestName      *string     `json:"priest_name"`
	EstablishedDate pgtype.Date `json:"established_date"`
	PhysicalAddress *string     `json:"physical_address"`
	PostalAddress   *string     `json:"postal_address"`
	ContactEmail    *string     `json:"contact_email"`
	ContactPhone    *string     `json:"contact_phone"`
	Timezone        *string     `json:"timezone"`
	LogoURL         *string     `json:"logo_url"`
	IsActive        bool        `json:"is_active"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// Validate checks the fields the register cannot do without.
func (p Parish) Validate() error {
	switch {
	case p.DioceseID == uuid.Nil:
		return fmt.Errorf("diocese_id is required")
	case strings.TrimSpace(p.ParishCode) == "":
		return fmt.Errorf("parish_code is required")
	case strings.TrimSpace(p.ParishName) == "":
		return fmt.Errorf("parish_name is required")
	case p.Timezone != nil && *p.Timezone != "":
		if _, err := time.LoadLocation(*p.Timezone); err != nil {
			return fmt.Errorf("unknown timezone %q", *p.Timezone)
		}
	}
	return nil
}

// CreateInput is the payload for registering a parish.
type CreateInput struct {
	DioceseID       uuid.UUID   `json:"diocese_id" validate:"required"`
	ParishCode      string      `json:"parish_code" validate:"required,max=32"`
	ParishName      string      `json:"parish_name" validate:"required,max=200"`
	PatronSaint     *string     `json:"patron_saint"`
	PriestName      *string     `json:"priest_name"`
	EstablishedDate pgtype.Date `json:"established_date"`
	PhysicalAddress *string     `json:"physical_address"`
	PostalAddress   *string     `json:"postal_address"`
	ContactEmail    *string     `json:"contact_email" validate:"omitempty,email"`
	ContactPhone    *string     `json:"contact_phone"`
	Timezone        *string     `json:"timezone"`
}

// NewParish builds an active parish from the create payload.
func NewParish(in CreateInput) Parish {
	return Parish{
		ID:              uuid.New(),
		DioceseID:       in.DioceseID,
		ParishCode:      strings.ToUpper(strings.TrimSpace(in.ParishCode)),
		ParishName:      strings.TrimSpace(in.ParishName),
		PatronSaint:     in.PatronSaint,
		PriestName:      in.PriestName,
		EstablishedDate: in.EstablishedDate,
		PhysicalAddress: in.PhysicalAddress,
		PostalAddress:   in.PostalAddress,
		ContactEmail:    in.ContactEmail,
		ContactPhone:    in.ContactPhone,
		Timezone:        in.Timezone,
		IsActive:        true,
	}
}

// Patch is a partial parish update. The code and diocese are fixed once created.
type Patch struct {
	ParishName      patch.Field[string]      `json:"parish_name"`
	PatronSaint     patch.Field[string]      `json:"patron_saint"`
	PriestName      patch.Field[string]      `json:"priest_name"`
	EstablishedDate patch.Field[pgtype.Date] `json:"established_date"`
	PhysicalAddress patch.Field[string]      `json:"physical_address"`
	PostalAddress   patch.Field[string]      `json:"postal_address"`
	ContactEmail    patch.Field[string]      `json:"contact_email"`
	ContactPhone    patch.Field[string]      `json:"contact_phone"`
	Timezone        patch.Field[string]      `json:"timezone"`
	IsActive        patch.Field[bool]        `json:"is_active"`
}

// Apply merges p onto existing.
func Apply(existing Parish, p Patch) Parish {
	out := existing
	out.ParishName = p.ParishName.ApplyRequired(existing.ParishName)
	out.PatronSaint = p.PatronSaint.Apply(existing.PatronSaint)
	out.PriestName = p.PriestName.Apply(existing.PriestName)
	if p.EstablishedDate.IsNull() {
		out.EstablishedDate = pgtype.Date{}
	} else {
		out.EstablishedDate = p.EstablishedDate.ApplyRequired(existing.EstablishedDate)
	}
	out.PhysicalAddress = p.PhysicalAddress.Apply(existing.PhysicalAddress)
	out.PostalAddress = p.PostalAddress.Apply(existing.PostalAddress)
	out.ContactEmail = p.ContactEmail.Apply(existing.ContactEmail)
	out.ContactPhone = p.ContactPhone.Apply(existing.ContactPhone)
	out.Timezone = p.Timezone.Apply(existing.Timezone)
	out.IsActive = p.IsActive.ApplyRequired(existing.IsActive)
	return out
}

// ListFilter narrows parish listings. A nil ParishID lists every parish.
type ListFilter struct {
	ParishID  *uuid.UUID
	DioceseID *uuid.UUID
	Limit     int
	Offset    int
}
