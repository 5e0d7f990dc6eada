package models

import (
	"strings"
	"time"
)

// Farmer is the registration record for one farmer, keyed by EFN.
// It owns the farmer's verification image references and image status.
type Farmer struct {
	EFN          string `json:"efn"`
	Name         string `json:"farmerName"`
	Aadhaar      string `json:"aadhaar"`
	RationCard   string `json:"rationCard"`
	Phone        string `json:"phone"`
	Village      string `json:"village"`
	District     string `json:"district"`
	LandArea     Amount `json:"landArea"`
	SoilType     string `json:"soilType"`
	CropType     string `json:"cropType"`
	RainfallZone string `json:"rainfallZone"`
	LandLat      string `json:"landLat"`
	LandLon      string `json:"landLon"`

	ImageStatus      ImageStatus `json:"imageStatus"`
	StandardImageRef string      `json:"standardImageRef,omitempty"`
	CornerImageRef   string      `json:"cornerImageRef,omitempty"`

	RegisteredAt time.Time `json:"registeredAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Clone returns a deep copy safe to hand out of a store
func (f *Farmer) Clone() *Farmer {
	if f == nil {
		return nil
	}
	cp := *f
	cp.ImageStatus = f.ImageStatus.Clone()
	return &cp
}

// ImageRef returns the stored reference for a role
func (f *Farmer) ImageRef(role ImageRole) string {
	switch role {
	case RoleStandard:
		return f.StandardImageRef
	case RoleCorner:
		return f.CornerImageRef
	default:
		return ""
	}
}

// SetImageRef records the reference for a role
func (f *Farmer) SetImageRef(role ImageRole, ref string) {
	switch role {
	case RoleStandard:
		f.StandardImageRef = ref
	case RoleCorner:
		f.CornerImageRef = ref
	}
}

// HasAllImages reports whether both verification photos are present
func (f *Farmer) HasAllImages() bool {
	return f.StandardImageRef != "" && f.CornerImageRef != ""
}

// MaskedAadhaar hides all but the last four digits
func (f *Farmer) MaskedAadhaar() string {
	return MaskAadhaar(f.Aadhaar)
}

// MaskAadhaar renders an Aadhaar number as "XXXX XXXX 1234"
func MaskAadhaar(aadhaar string) string {
	aadhaar = strings.TrimSpace(aadhaar)
	if len(aadhaar) < 4 {
		return "XXXX XXXX XXXX"
	}
	return "XXXX XXXX " + aadhaar[len(aadhaar)-4:]
}
