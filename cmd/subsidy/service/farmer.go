package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/efarmer/subsidy/common/eligibility"
	"github.com/efarmer/subsidy/common/entitlement"
	"github.com/efarmer/subsidy/common/logger"
	"github.com/efarmer/subsidy/common/models"
	"github.com/efarmer/subsidy/common/queue"
	"github.com/efarmer/subsidy/common/store"
)

// RegisterFarmerInput carries the registration form
type RegisterFarmerInput struct {
	Name         string        `json:"farmerName"`
	Aadhaar      string        `json:"aadhaar"`
	RationCard   string        `json:"rationCard"`
	Phone        string        `json:"phone"`
	Village      string        `json:"village"`
	District     string        `json:"district"`
	LandArea     models.Amount `json:"landArea"`
	SoilType     string        `json:"soilType"`
	CropType     string        `json:"cropType"`
	RainfallZone string        `json:"rainfallZone"`
	LandLat      string        `json:"landLat"`
	LandLon      string        `json:"landLon"`
}

// profileFields are the registration fields a merge patch may touch
type profileFields struct {
	Phone        string        `json:"phone"`
	Village      string        `json:"village"`
	LandArea     models.Amount `json:"landArea"`
	SoilType     string        `json:"soilType"`
	CropType     string        `json:"cropType"`
	RainfallZone string        `json:"rainfallZone"`
	LandLat      string        `json:"landLat"`
	LandLon      string        `json:"landLon"`
}

var patchableFields = map[string]bool{
	"phone":        true,
	"village":      true,
	"landArea":     true,
	"soilType":     true,
	"cropType":     true,
	"rainfallZone": true,
	"landLat":      true,
	"landLon":      true,
}

// FarmerHome is the farmer portal view
type FarmerHome struct {
	Farmer      *models.Farmer
	Product     string
	Entitlement entitlement.Quota
	Schemes     []models.SchemeSuggestion
}

// FarmerService handles registration and farmer-facing queries
type FarmerService struct {
	farmers        store.FarmerStore
	engine         *entitlement.Engine
	advisor        *eligibility.Advisor
	events         *queue.Publisher
	ids            IDGenerator
	defaultProduct string
	now            func() time.Time
	log            *logger.Logger
}

// NewFarmerService creates a new farmer service. events may be nil.
func NewFarmerService(
	farmers store.FarmerStore,
	engine *entitlement.Engine,
	advisor *eligibility.Advisor,
	events *queue.Publisher,
	ids IDGenerator,
	defaultProduct string,
	log *logger.Logger,
) *FarmerService {
	return &FarmerService{
		farmers:        farmers,
		engine:         engine,
		advisor:        advisor,
		events:         events,
		ids:            ids,
		defaultProduct: defaultProduct,
		now:            time.Now,
		log:            log,
	}
}

// Register stores a new farmer under a freshly minted EFN
func (s *FarmerService) Register(ctx context.Context, in RegisterFarmerInput) (*models.Farmer, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, invalidf("farmerName is required")
	}

	now := s.now().UTC()
	farmer := &models.Farmer{
		Name:         in.Name,
		Aadhaar:      strings.TrimSpace(in.Aadhaar),
		RationCard:   in.RationCard,
		Phone:        in.Phone,
		Village:      in.Village,
		District:     in.District,
		LandArea:     in.LandArea,
		SoilType:     in.SoilType,
		CropType:     in.CropType,
		RainfallZone: in.RainfallZone,
		LandLat:      in.LandLat,
		LandLon:      in.LandLon,
		ImageStatus:  models.PendingStatus(),
		RegisteredAt: now,
		UpdatedAt:    now,
	}

	err := withFreshID(ctx, func() error {
		farmer.EFN = s.ids.FarmerID(in.District)
		return s.farmers.Create(ctx, farmer)
	})
	if err != nil {
		s.log.Error("failed to register farmer", "error", err)
		return nil, storageErr("create farmer", err)
	}

	s.log.Info("farmer registered", "efn", farmer.EFN, "district", farmer.District)
	publishEvent(ctx, s.events, s.log, queue.TopicFarmerRegistered, farmer.EFN, map[string]any{
		"efn":      farmer.EFN,
		"district": farmer.District,
		"cropType": farmer.CropType,
	})

	return farmer, nil
}

// Get returns a farmer by EFN
func (s *FarmerService) Get(ctx context.Context, efn string) (*models.Farmer, error) {
	farmer, err := s.farmers.Get(ctx, efn)
	if err != nil {
		return nil, farmerLookupErr(efn, err)
	}
	return farmer, nil
}

// List returns every registered farmer
func (s *FarmerService) List(ctx context.Context) ([]*models.Farmer, error) {
	farmers, err := s.farmers.List(ctx)
	if err != nil {
		return nil, storageErr("list farmers", err)
	}
	return farmers, nil
}

// Home returns the profile, the default product entitlement and scheme suggestions
func (s *FarmerService) Home(ctx context.Context, efn string) (*FarmerHome, error) {
	farmer, err := s.Get(ctx, efn)
	if err != nil {
		return nil, err
	}

	quota, err := s.engine.Quota(ctx, farmer, s.defaultProduct)
	if err != nil {
		return nil, storageErr("entitlement", err)
	}

	schemes, err := s.advisor.Suggest(farmer)
	if err != nil {
		return nil, fmt.Errorf("eligibility: %w", err)
	}

	return &FarmerHome{
		Farmer:      farmer,
		Product:     s.defaultProduct,
		Entitlement: quota,
		Schemes:     schemes,
	}, nil
}

// Entitlement returns the quota of efn for product (default product when empty)
func (s *FarmerService) Entitlement(ctx context.Context, efn, product string) (string, entitlement.Quota, error) {
	if product == "" {
		product = s.defaultProduct
	}

	farmer, err := s.Get(ctx, efn)
	if err != nil {
		return product, entitlement.Quota{}, err
	}

	quota, err := s.engine.Quota(ctx, farmer, product)
	if err != nil {
		return product, entitlement.Quota{}, storageErr("entitlement", err)
	}
	return product, quota, nil
}

// Schemes returns the eligibility suggestions for efn
func (s *FarmerService) Schemes(ctx context.Context, efn string) ([]models.SchemeSuggestion, error) {
	farmer, err := s.Get(ctx, efn)
	if err != nil {
		return nil, err
	}
	return s.advisor.Suggest(farmer)
}

// UpdateProfile applies a JSON merge patch (RFC 7386) to the mutable
// registration fields. Identity, images and status are not patchable.
func (s *FarmerService) UpdateProfile(ctx context.Context, efn string, patch []byte) (*models.Farmer, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(patch, &keys); err != nil || keys == nil {
		return nil, invalidf("patch must be a JSON object")
	}
	for k := range keys {
		if !patchableFields[k] {
			return nil, invalidf("field %q cannot be patched", k)
		}
	}

	var patchErr error
	farmer, err := s.farmers.Update(ctx, efn, func(f *models.Farmer) error {
		current, err := json.Marshal(profileFields{
			Phone:        f.Phone,
			Village:      f.Village,
			LandArea:     f.LandArea,
			SoilType:     f.SoilType,
			CropType:     f.CropType,
			RainfallZone: f.RainfallZone,
			LandLat:      f.LandLat,
			LandLon:      f.LandLon,
		})
		if err != nil {
			return err
		}

		merged, err := jsonpatch.MergePatch(current, patch)
		if err != nil {
			patchErr = invalidf("apply merge patch: %v", err)
			return patchErr
		}

		var next profileFields
		if err := json.Unmarshal(merged, &next); err != nil {
			patchErr = invalidf("patched profile: %v", err)
			return patchErr
		}

		f.Phone = next.Phone
		f.Village = next.Village
		f.LandArea = next.LandArea
		f.SoilType = next.SoilType
		f.CropType = next.CropType
		f.RainfallZone = next.RainfallZone
		f.LandLat = next.LandLat
		f.LandLon = next.LandLon
		return nil
	})
	if err != nil {
		if patchErr != nil {
			return nil, patchErr
		}
		return nil, farmerLookupErr(efn, err)
	}

	s.log.Info("farmer profile updated", "efn", efn, "fields", len(keys))
	return farmer, nil
}
