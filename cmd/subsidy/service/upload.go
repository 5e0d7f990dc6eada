package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/efarmer/subsidy/common/imagededup"
	"github.com/efarmer/subsidy/common/logger"
	"github.com/efarmer/subsidy/common/metrics"
	"github.com/efarmer/subsidy/common/models"
	"github.com/efarmer/subsidy/common/queue"
	"github.com/efarmer/subsidy/common/store"
)

// ImageInput is one uploaded verification photo
type ImageInput struct {
	Role      models.ImageRole
	MediaType string
	Content   []byte
}

// UploadResult is the farmer after the upload plus per-image findings
type UploadResult struct {
	Farmer   *models.Farmer
	Findings []imagededup.Finding
}

// ImageService runs the duplicate check for uploaded photos and derives
// the farmer's image status
type ImageService struct {
	farmers  store.FarmerStore
	registry *imagededup.Registry
	blobs    *BlobService
	events   *queue.Publisher
	metrics  *metrics.Metrics
	log      *logger.Logger
}

// NewImageService creates a new image service. events and m may be nil.
func NewImageService(
	farmers store.FarmerStore,
	registry *imagededup.Registry,
	blobs *BlobService,
	events *queue.Publisher,
	m *metrics.Metrics,
	log *logger.Logger,
) *ImageService {
	return &ImageService{
		farmers:  farmers,
		registry: registry,
		blobs:    blobs,
		events:   events,
		metrics:  m,
		log:      log,
	}
}

// Upload stores the images, registers their digests (standard before
// corner) and then updates the farmer's refs and status. Usages are
// recorded even when the upload is judged suspicious.
func (s *ImageService) Upload(ctx context.Context, efn string, images []ImageInput) (*UploadResult, error) {
	defer s.metrics.ObserveDecision("image_upload", time.Now())

	if len(images) == 0 {
		return nil, invalidf("at least one image is required")
	}

	seen := map[models.ImageRole]bool{}
	for _, img := range images {
		if !img.Role.Valid() {
			return nil, invalidf("unknown image role %q", img.Role)
		}
		if seen[img.Role] {
			return nil, invalidf("duplicate %s image", img.Role)
		}
		if len(img.Content) == 0 {
			return nil, invalidf("%s image is empty", img.Role)
		}
		seen[img.Role] = true
	}

	ordered := append([]ImageInput(nil), images...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return roleOrder(ordered[i].Role) < roleOrder(ordered[j].Role)
	})

	if _, err := s.farmers.Get(ctx, efn); err != nil {
		return nil, farmerLookupErr(efn, err)
	}

	refs := make(map[models.ImageRole]string, len(ordered))
	findings := make([]imagededup.Finding, 0, len(ordered))
	var reasons []string

	for _, img := range ordered {
		digest, ref, err := s.blobs.StoreContent(ctx, img.Content, img.MediaType)
		if err != nil {
			s.log.Error("failed to store image", "efn", efn, "role", img.Role, "error", err)
			return nil, storageErr("store image", err)
		}

		finding, err := s.registry.RegisterDigest(ctx, efn, img.Role, digest)
		if err != nil {
			s.log.Error("failed to register image", "efn", efn, "role", img.Role, "error", err)
			return nil, storageErr("register image", err)
		}

		refs[img.Role] = ref
		findings = append(findings, finding)
		reasons = append(reasons, finding.Reasons...)
	}

	farmer, err := s.farmers.Update(ctx, efn, func(f *models.Farmer) error {
		for role, ref := range refs {
			f.SetImageRef(role, ref)
		}
		f.ImageStatus = imagededup.NextStatus(f.ImageStatus, f.HasAllImages(), reasons)
		return nil
	})
	if err != nil {
		s.log.Error("failed to update image status", "efn", efn, "error", err)
		if errors.Is(err, store.ErrNotFound) {
			return nil, farmerLookupErr(efn, err)
		}
		return nil, storageErr("update image status", err)
	}

	state := farmer.ImageStatus.State
	s.metrics.IncrementImageUpload(string(state))
	s.log.Info("images uploaded", "efn", efn, "images", len(ordered), "status", farmer.ImageStatus.String())

	if len(reasons) > 0 {
		publishEvent(ctx, s.events, s.log, queue.TopicImageSuspicious, efn, map[string]any{
			"efn":      efn,
			"reasons":  reasons,
			"findings": findings,
		})
	}

	return &UploadResult{Farmer: farmer, Findings: findings}, nil
}

// Usages returns the recorded submissions of a digest
func (s *ImageService) Usages(ctx context.Context, digest string) ([]models.UsageRecord, error) {
	usages, err := s.registry.Usages(ctx, digest)
	if err != nil {
		return nil, storageErr("image usages", err)
	}
	return usages, nil
}

func roleOrder(role models.ImageRole) int {
	for i, r := range models.Roles {
		if r == role {
			return i
		}
	}
	return len(models.Roles)
}
