package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/efarmer/subsidy/common/db"
	"github.com/efarmer/subsidy/common/models"
	"github.com/efarmer/subsidy/common/store"
)

const farmerColumns = `efn, name, aadhaar, ration_card, phone, village, district, land_area,
		soil_type, crop_type, rainfall_zone, land_lat, land_lon,
		image_state, image_reasons, standard_image_ref, corner_image_ref,
		registered_at, updated_at`

// FarmerRepository handles database operations for farmer records
type FarmerRepository struct {
	db *db.DB
}

// NewFarmerRepository creates a new farmer repository
func NewFarmerRepository(db *db.DB) *FarmerRepository {
	return &FarmerRepository{db: db}
}

// Create inserts a new farmer
func (r *FarmerRepository) Create(ctx context.Context, farmer *models.Farmer) error {
	reasons, err := encodeReasons(farmer.ImageStatus.Reasons)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO farmer (` + farmerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	_, err = r.db.Exec(ctx, query,
		farmer.EFN,
		farmer.Name,
		farmer.Aadhaar,
		farmer.RationCard,
		farmer.Phone,
		farmer.Village,
		farmer.District,
		farmer.LandArea.Float64(),
		farmer.SoilType,
		farmer.CropType,
		farmer.RainfallZone,
		farmer.LandLat,
		farmer.LandLon,
		string(farmer.ImageStatus.State),
		reasons,
		farmer.StandardImageRef,
		farmer.CornerImageRef,
		farmer.RegisteredAt,
		farmer.UpdatedAt,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("farmer %s: %w", farmer.EFN, store.ErrConflict)
		}
		return fmt.Errorf("failed to create farmer: %w", err)
	}

	return nil
}

// Get retrieves a farmer by EFN
func (r *FarmerRepository) Get(ctx context.Context, efn string) (*models.Farmer, error) {
	query := `SELECT ` + farmerColumns + ` FROM farmer WHERE efn = $1`

	farmer, err := scanFarmer(r.db.QueryRow(ctx, query, efn))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("farmer %s: %w", efn, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get farmer: %w", err)
	}

	return farmer, nil
}

// Update locks the row, applies fn and writes the mutable columns back
func (r *FarmerRepository) Update(ctx context.Context, efn string, fn func(*models.Farmer) error) (*models.Farmer, error) {
	var updated *models.Farmer

	err := r.db.InTx(ctx, func(tx pgx.Tx) error {
		query := `SELECT ` + farmerColumns + ` FROM farmer WHERE efn = $1 FOR UPDATE`

		farmer, err := scanFarmer(tx.QueryRow(ctx, query, efn))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("farmer %s: %w", efn, store.ErrNotFound)
			}
			return fmt.Errorf("failed to lock farmer: %w", err)
		}

		if err := fn(farmer); err != nil {
			return err
		}
		farmer.EFN = efn
		farmer.UpdatedAt = time.Now().UTC()

		reasons, err := encodeReasons(farmer.ImageStatus.Reasons)
		if err != nil {
			return err
		}

		update := `
			UPDATE farmer SET
				name = $2, aadhaar = $3, ration_card = $4, phone = $5, village = $6,
				district = $7, land_area = $8, soil_type = $9, crop_type = $10,
				rainfall_zone = $11, land_lat = $12, land_lon = $13,
				image_state = $14, image_reasons = $15,
				standard_image_ref = $16, corner_image_ref = $17, updated_at = $18
			WHERE efn = $1
		`

		_, err = tx.Exec(ctx, update,
			farmer.EFN,
			farmer.Name,
			farmer.Aadhaar,
			farmer.RationCard,
			farmer.Phone,
			farmer.Village,
			farmer.District,
			farmer.LandArea.Float64(),
			farmer.SoilType,
			farmer.CropType,
			farmer.RainfallZone,
			farmer.LandLat,
			farmer.LandLon,
			string(farmer.ImageStatus.State),
			reasons,
			farmer.StandardImageRef,
			farmer.CornerImageRef,
			farmer.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to update farmer: %w", err)
		}

		updated = farmer
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// List returns all farmers in registration order
func (r *FarmerRepository) List(ctx context.Context) ([]*models.Farmer, error) {
	query := `SELECT ` + farmerColumns + ` FROM farmer ORDER BY registered_at, efn`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list farmers: %w", err)
	}
	defer rows.Close()

	var farmers []*models.Farmer
	for rows.Next() {
		farmer, err := scanFarmer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan farmer: %w", err)
		}
		farmers = append(farmers, farmer)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating farmers: %w", err)
	}

	return farmers, nil
}

// Count returns the number of registered farmers
func (r *FarmerRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM farmer`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count farmers: %w", err)
	}
	return n, nil
}

func scanFarmer(row pgx.Row) (*models.Farmer, error) {
	var (
		f         models.Farmer
		landArea  float64
		state     string
		reasonsJS []byte
	)

	err := row.Scan(
		&f.EFN,
		&f.Name,
		&f.Aadhaar,
		&f.RationCard,
		&f.Phone,
		&f.Village,
		&f.District,
		&landArea,
		&f.SoilType,
		&f.CropType,
		&f.RainfallZone,
		&f.LandLat,
		&f.LandLon,
		&state,
		&reasonsJS,
		&f.StandardImageRef,
		&f.CornerImageRef,
		&f.RegisteredAt,
		&f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	f.LandArea = models.Amount(landArea)
	f.ImageStatus.State = models.ImageState(state)
	if len(reasonsJS) > 0 {
		if err := json.Unmarshal(reasonsJS, &f.ImageStatus.Reasons); err != nil {
			return nil, fmt.Errorf("decode image reasons: %w", err)
		}
	}

	return &f, nil
}

func encodeReasons(reasons []string) (string, error) {
	if reasons == nil {
		reasons = []string{}
	}
	b, err := json.Marshal(reasons)
	if err != nil {
		return "", fmt.Errorf("encode image reasons: %w", err)
	}
	return string(b), nil
}
