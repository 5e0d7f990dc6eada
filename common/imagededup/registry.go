// Package imagededup detects reuse of land verification photos by content hash.
package imagededup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/efarmer/subsidy/common/models"
	"github.com/efarmer/subsidy/common/store"
)

const SameOwnerReason = "same image used for both roles"

// Digest returns the hex SHA-256 of content
func Digest(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Ref converts a hex digest into a blob reference (sha256:<hex>)
func Ref(digest string) string {
	return "sha256:" + digest
}

// Finding is the result of registering one image
type Finding struct {
	Digest  string               `json:"digest"`
	Role    models.ImageRole     `json:"role"`
	Prior   []models.UsageRecord `json:"prior,omitempty"`
	Reasons []string             `json:"reasons,omitempty"`
}

// Clean reports whether no reuse was detected
func (f Finding) Clean() bool {
	return len(f.Reasons) == 0
}

// Registry records every submission of an image digest and reports reuse.
// Atomicity per digest is delegated to the UsageStore.
type Registry struct {
	usages store.UsageStore
}

func NewRegistry(usages store.UsageStore) *Registry {
	return &Registry{usages: usages}
}

// RegisterAndCheck hashes content, appends (ownerID, role) to the digest's
// usage list and returns reasons derived from the usages recorded before it.
// The usage is appended even when reasons are returned.
func (r *Registry) RegisterAndCheck(ctx context.Context, ownerID string, role models.ImageRole, content []byte) (Finding, error) {
	return r.RegisterDigest(ctx, ownerID, role, Digest(content))
}

// RegisterDigest is RegisterAndCheck for an already computed digest
func (r *Registry) RegisterDigest(ctx context.Context, ownerID string, role models.ImageRole, digest string) (Finding, error) {
	if !role.Valid() {
		return Finding{}, fmt.Errorf("invalid image role %q", role)
	}

	prior, err := r.usages.AppendUsage(ctx, digest, models.UsageRecord{OwnerID: ownerID, Role: role})
	if err != nil {
		return Finding{}, fmt.Errorf("append usage for %s: %w", digest, err)
	}

	return Finding{
		Digest:  digest,
		Role:    role,
		Prior:   prior,
		Reasons: Reasons(ownerID, role, prior),
	}, nil
}

// Usages returns every recorded submission of digest, oldest first
func (r *Registry) Usages(ctx context.Context, digest string) ([]models.UsageRecord, error) {
	return r.usages.Usages(ctx, digest)
}

// Reasons evaluates prior usages of a digest against a new submission.
// One reason is produced per offending record.
func Reasons(ownerID string, role models.ImageRole, prior []models.UsageRecord) []string {
	var reasons []string
	for _, rec := range prior {
		switch {
		case rec.OwnerID != ownerID:
			reasons = append(reasons, fmt.Sprintf("reused from owner %s (role %s)", rec.OwnerID, rec.Role))
		case rec.Role != role:
			reasons = append(reasons, SameOwnerReason)
		}
	}
	return reasons
}
