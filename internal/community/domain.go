// Package community keeps the parish's pastoral structure: clusters group
// small Christian communities (SCCs), and SCCs group registered families.
package community

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sanctus-app/sanctus/internal/platform/patch"
)

// Cluster is a geographic grouping of SCCs.
type Cluster struct {
	ID                  uuid.UUID  `json:"id"`
	ParishID            uuid.UUID  `json:"parish_id"`
	ClusterCode         string     `json:"cluster_code"`
	ClusterName         string     `json:"cluster_name"`
	LocationDescription *string    `json:"location_description"`
	LeaderName          *string    `json:"leader_name"`
	IsActive            *bool      `json:"is_active"`
	CreatedAt           *time.Time `json:"created_at"`
	UpdatedAt           *time.Time `json:"updated_at"`
}

// SCC is a small Christian community.
type SCC struct {
	ID                  uuid.UUID  `json:"id"`
	ParishID            uuid.UUID  `json:"parish_id"`
	ClusterID           *uuid.UUID `json:"cluster_id"`
	SCCCode             string     `json:"scc_code"`
	SCCName             string     `json:"scc_name"`
	PatronSaint         *string    `json:"patron_saint"`
	LeaderName          *string    `json:"leader_name"`
	LocationDescription *string    `json:"location_description"`
	MeetingDay          *string    `json:"meeting_day"`
	MeetingTime         *string    `json:"meeting_time"`
	IsActive            *bool      `json:"is_active"`
	CreatedAt           *time.Time `json:"created_at"`
	UpdatedAt           *time.Time `json:"updated_at"`
}

// Family is a registered household.
type Family struct {
	ID              uuid.UUID  `json:"id"`
	ParishID        uuid.UUID  `json:"parish_id"`
	SCCID           *uuid.UUID `json:"scc_id"`
	FamilyCode      string     `json:"family_code"`
	FamilyName      string     `json:"family_name"`
	HeadOfFamilyID  *uuid.UUID `json:"head_of_family_id"`
	PhysicalAddress *string    `json:"physical_address"`
	PostalAddress   *string    `json:"postal_address"`
	PrimaryPhone    *string    `json:"primary_phone"`
	SecondaryPhone  *string    `json:"secondary_phone"`
	Email           *string    `json:"email"`
	Notes           *string    `json:"notes"`
	IsActive        *bool      `json:"is_active"`
	CreatedAt       *time.Time `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at"`
}

// Validate checks required fields.
func (c Cluster) Validate() error {
	switch {
	case strings.TrimSpace(c.ClusterCode) == "":
		return fmt.Errorf("missing field `cluster_code`")
	case strings.TrimSpace(c.ClusterName) == "":
		return fmt.Errorf("missing field `cluster_name`")
	}
	return nil
}

// Validate checks required fields and the meeting time format.
func (s SCC) Validate() error {
	switch {
	case strings.TrimSpace(s.SCCCode) == "":
		return fmt.Errorf("missing field `scc_code`")
	case strings.TrimSpace(s.SCCName) == "":
		return fmt.Errorf("missing field `scc_name`")
	case s.MeetingTime != nil && !validClock(*s.MeetingTime):
		return fmt.Errorf("meeting_time must be HH:MM or HH:MM:SS, got %q", *s.MeetingTime)
	}
	return nil
}

// Validate checks required fields.
func (f Family) Validate() error {
	switch {
	case strings.TrimSpace(f.FamilyCode) == "":
		return fmt.Errorf("missing field `family_code`")
	case strings.TrimSpace(f.FamilyName) == "":
		return fmt.Errorf("missing field `family_name`")
	}
	return nil
}

func validClock(raw string) bool {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if _, err := time.Parse(layout, raw); err == nil {
			return true
		}
	}
	return false
}

// CreateClusterInput is the payload for a new cluster.
type CreateClusterInput struct {
	ParishID            *uuid.UUID `json:"parish_id"`
	ClusterCode         string     `json:"cluster_code" validate:"required,max=64"`
	ClusterName         string     `json:"cluster_name" validate:"required,max=255"`
	LocationDescription *string    `json:"location_description"`
	LeaderName          *string    `json:"leader_name"`
}

// CreateSCCInput is the payload for a new SCC.
type CreateSCCInput struct {
	ParishID            *uuid.UUID `json:"parish_id"`
	ClusterID           *uuid.UUID `json:"cluster_id"`
	SCCCode             string     `json:"scc_code" validate:"required,max=64"`
	SCCName             string     `json:"scc_name" validate:"required,max=255"`
	PatronSaint         *string    `json:"patron_saint"`
	LeaderName          *string    `json:"leader_name"`
	LocationDescription *string    `json:"location_description"`
	MeetingDay          *string    `json:"meeting_day"`
	MeetingTime         *string    `json:"meeting_time"`
}

// CreateFamilyInput is the payload for a new family.
type CreateFamilyInput struct {
	ParishID        *uuid.UUID `json:"parish_id"`
	SCCID           *uuid.UUID `json:"scc_id"`
	FamilyCode      string     `json:"family_code" validate:"required,max=64"`
	FamilyName      string     `json:"family_name" validate:"required,max=255"`
	HeadOfFamilyID  *uuid.UUID `json:"head_of_family_id"`
	PhysicalAddress *string    `json:"physical_address"`
	PostalAddress   *string    `json:"postal_address"`
	PrimaryPhone    *string    `json:"primary_phone"`
	SecondaryPhone  *string    `json:"secondary_phone"`
	Email           *string    `json:"email" validate:"omitempty,email"`
	Notes           *string    `json:"notes"`
}

func active() *bool {
	v := true
	return &v
}

// NewCluster builds a cluster owned by parishID.
func NewCluster(parishID uuid.UUID, in CreateClusterInput) Cluster {
	return Cluster{
		ID:                  uuid.New(),
		ParishID:            parishID,
		ClusterCode:         strings.TrimSpace(in.ClusterCode),
		ClusterName:         strings.TrimSpace(in.ClusterName),
		LocationDescription: in.LocationDescription,
		LeaderName:          in.LeaderName,
		IsActive:            active(),
	}
}

// NewSCC builds an SCC owned by parishID.
func NewSCC(parishID uuid.UUID, in CreateSCCInput) SCC {
	return SCC{
		ID:                  uuid.New(),
		ParishID:            parishID,
		ClusterID:           in.ClusterID,
		SCCCode:             strings.TrimSpace(in.SCCCode),
		SCCName:             strings.TrimSpace(in.SCCName),
		PatronSaint:         in.PatronSaint,
		LeaderName:          in.LeaderName,
		LocationDescription: in.LocationDescription,
		MeetingDay:          in.MeetingDay,
		MeetingTime:         in.MeetingTime,
		IsActive:            active(),
	}
}

// NewFamily builds a family owned by parishID.
func NewFamily(parishID uuid.UUID, in CreateFamilyInput) Family {
	return Family{
		ID:              uuid.New(),
		ParishID:        parishID,
		SCCID:           in.SCCID,
		FamilyCode:      strings.TrimSpace(in.FamilyCode),
		FamilyName:      strings.TrimSpace(in.FamilyName),
		HeadOfFamilyID:  in.HeadOfFamilyID,
		PhysicalAddress: in.PhysicalAddress,
		PostalAddress:   in.PostalAddress,
		PrimaryPhone:    in.PrimaryPhone,
		SecondaryPhone:  in.SecondaryPhone,
		Email:           in.Email,
		Notes:           in.Notes,
		IsActive:        active(),
	}
}

// ClusterPatch is a partial cluster update.
type ClusterPatch struct {
	ClusterCode         patch.Field[string] `json:"cluster_code"`
	ClusterName         patch.Field[string] `json:"cluster_name"`
	LocationDescription patch.Field[string] `json:"location_description"`
	LeaderName          patch.Field[string] `json:"leader_name"`
	IsActive            patch.Field[bool]   `json:"is_active"`
}

// Apply merges p onto existing.
func (p ClusterPatch) Apply(existing Cluster) Cluster {
	out := existing
	out.ClusterCode = p.ClusterCode.ApplyRequired(existing.ClusterCode)
	out.ClusterName = p.ClusterName.ApplyRequired(existing.ClusterName)
	out.LocationDescription = p.LocationDescription.Apply(existing.LocationDescription)
	out.LeaderName = p.LeaderName.Apply(existing.LeaderName)
	out.IsActive = p.IsActive.Apply(existing.IsActive)
	return out
}

// SCCPatch is a partial SCC update.
type SCCPatch struct {
	ClusterID           patch.Field[uuid.UUID] `json:"cluster_id"`
	SCCCode             patch.Field[string]    `json:"scc_code"`
	SCCName             patch.Field[string]    `json:"scc_name"`
	PatronSaint         patch.Field[string]    `json:"patron_saint"`
	LeaderName          patch.Field[string]    `json:"leader_name"`
	LocationDescription patch.Field[string]    `json:"location_description"`
	MeetingDay          patch.Field[string]    `json:"meeting_day"`
	MeetingTime         patch.Field[string]    `json:"meeting_time"`
	IsActive            patch.Field[bool]      `json:"is_active"`
}

// Apply merges p onto existing.
func (p SCCPatch) Apply(existing SCC) SCC {
	out := existing
	out.ClusterID = p.ClusterID.Apply(existing.ClusterID)
	out.SCCCode = p.SCCCode.ApplyRequired(existing.SCCCode)
	out.SCCName = p.SCCName.ApplyRequired(existing.SCCName)
	out.PatronSaint = p.PatronSaint.Apply(existing.PatronSaint)
	out.LeaderName = p.LeaderName.Apply(existing.LeaderName)
	out.LocationDescription = p.LocationDescription.Apply(existing.LocationDescription)
	out.MeetingDay = p.MeetingDay.Apply(existing.MeetingDay)
	out.MeetingTime = p.MeetingTime.Apply(existing.MeetingTime)
	out.IsActive = p.IsActive.Apply(existing.IsActive)
	return out
}

// FamilyPatch is a partial family update.
type FamilyPatch struct {
	SCCID           patch.Field[uuid.UUID] `json:"scc_id"`
	FamilyCode      patch.Field[string]    `json:"family_code"`
	FamilyName      patch.Field[string]    `json:"family_name"`
	HeadOfFamilyID  patch.Field[uuid.UUID] `json:"head_of_family_id"`
	PhysicalAddress patch.Field[string]    `json:"physical_address"`
	PostalAddress   patch.Field[string]    `json:"postal_address"`
	PrimaryPhone    patch.Field[string]    `json:"primary_phone"`
	SecondaryPhone  patch.Field[string]    `json:"secondary_phone"`
	Email           patch.Field[string]    `json:"email"`
	Notes           patch.Field[string]    `json:"notes"`
	IsActive        patch.Field[bool]      `json:"is_active"`
}

// Apply merges p onto existing.
func (p FamilyPatch) Apply(existing Family) Family {
	out := existing
	out.SCCID = p.SCCID.Apply(existing.SCCID)
	out.FamilyCode = p.FamilyCode.ApplyRequired(existing.FamilyCode)
	out.FamilyName = p.FamilyName.ApplyRequired(existing.FamilyName)
	out.HeadOfFamilyID = p.HeadOfFamilyID.Apply(existing.HeadOfFamilyID)
	out.PhysicalAddress = p.PhysicalAddress.Apply(existing.PhysicalAddress)
	out.PostalAddress = p.PostalAddress.Apply(existing.PostalAddress)
	out.PrimaryPhone = p.PrimaryPhone.Apply(existing.PrimaryPhone)
	out.SecondaryPhone = p.SecondaryPhone.Apply(existing.SecondaryPhone)
	out.Email = p.Email.Apply(existing.Email)
	out.Notes = p.Notes.Apply(existing.Notes)
	out.IsActive = p.IsActive.Apply(existing.IsActive)
	return out
}

// ListFilter narrows listings within one parish. ParentID is the cluster for
// SCCs and the SCC for families; clusters ignore it.
type ListFilter struct {
	ParishID uuid.UUID
	ParentID *uuid.UUID
	Limit    int
	Offset   int
}
