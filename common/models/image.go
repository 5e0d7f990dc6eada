package models

import (
	"fmt"
	"strings"
	"time"
)

// ImageRole is one of the two verification photo slots per farmer
type ImageRole string

const (
	RoleStandard ImageRole = "standard"
	RoleCorner   ImageRole = "corner"
)

// Roles lists the roles in the order an upload processes them
var Roles = []ImageRole{RoleStandard, RoleCorner}

// Valid reports whether r is a known role
func (r ImageRole) Valid() bool {
	return r == RoleStandard || r == RoleCorner
}

// ParseImageRole validates a role string
func ParseImageRole(s string) (ImageRole, error) {
	r := ImageRole(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown image role: %q", s)
	}
	return r, nil
}

// UsageRecord is one prior submission of an image digest.
// Records are append-only; insertion order is chronological.
type UsageRecord struct {
	OwnerID string    `json:"ownerId"`
	Role    ImageRole `json:"role"`
}

// ImageState is the variant tag of a farmer's image status
type ImageState string

const (
	ImagePending    ImageState = "pending"
	ImageSuspicious ImageState = "suspicious"
	ImageVerified   ImageState = "verified"
)

// ImageStatus is the structured verification status of a farmer's photos
type ImageStatus struct {
	State   ImageState `json:"state"`
	Reasons []string   `json:"reasons,omitempty"`
}

// PendingStatus is the status of a freshly registered farmer
func PendingStatus() ImageStatus {
	return ImageStatus{State: ImagePending}
}

// Clone copies the reason slice
func (s ImageStatus) Clone() ImageStatus {
	cp := s
	if s.Reasons != nil {
		cp.Reasons = append([]string(nil), s.Reasons...)
	}
	return cp
}

// String renders the display form used by the portals
func (s ImageStatus) String() string {
	switch s.State {
	case ImageSuspicious:
		return "Suspicious: " + strings.Join(s.Reasons, " | ")
	case ImageVerified:
		return "Verified (unique images)"
	default:
		return "Images Pending"
	}
}

// Blob is content-addressed storage for uploaded images
type Blob struct {
	// Content hash (sha256:abc123...)
	Ref string `json:"ref"`

	// Media type reported by the uploader (image/jpeg, image/png, ...)
	MediaType string `json:"mediaType"`

	SizeBytes int64     `json:"sizeBytes"`
	CreatedAt time.Time `json:"createdAt"`
	Content   []byte    `json:"-"`
}
