package fraud

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efarmer/subsidy/common/entitlement"
	"github.com/efarmer/subsidy/common/models"
)

type fixedEntitler struct {
	value float64
	err   error
}

func (f fixedEntitler) EntitlementFor(context.Context, *models.Farmer, string) (float64, error) {
	return f.value, f.err
}

func TestEvaluate_WheatUreaOverage(t *testing.T) {
	rs, err := entitlement.NewRuleSet([]models.EntitlementRule{
		{CropType: "Wheat", RainfallZone: "Medium", ProductType: "Urea", MaxPerAcre: 10},
	}, true)
	require.NoError(t, err)
	d := NewDetector(entitlement.NewEngine(entitlement.NewStaticRules(rs)))

	farmer := &models.Farmer{CropType: "Wheat", RainfallZone: "Medium", LandArea: 3}
	v, err := d.Evaluate(context.Background(), &models.Transaction{ProductType: "Urea", Quantity: 40}, farmer)
	require.NoError(t, err)

	assert.True(t, v.Suspicious)
	assert.Equal(t, OutcomeSuspicious, v.Outcome)
	assert.Equal(t, models.SeverityHigh, v.Severity)
	assert.Equal(t, 30.0, v.MaxAllowed)
	assert.Equal(t, 10.0, v.Overage)
	assert.Equal(t, "Quantity exceeds entitlement by 10.0 units", v.Reason)
}

func TestJudge(t *testing.T) {
	tests := []struct {
		name       string
		quantity   float64
		max        float64
		outcome    Outcome
		suspicious bool
		overage    float64
	}{
		{"equal is not fraud", 30, 30, OutcomeClean, false, 0},
		{"below", 12, 30, OutcomeClean, false, 0},
		{"just above", 30.04, 30, OutcomeSuspicious, true, 0},
		{"fractional overage rounds", 31.26, 30, OutcomeSuspicious, true, 1.3},
		{"no rule huge quantity", 1e6, 0, OutcomeUnassessed, false, 0},
		{"no rule zero quantity", 0, 0, OutcomeUnassessed, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Judge(tt.quantity, tt.max)
			assert.Equal(t, tt.outcome, v.Outcome)
			assert.Equal(t, tt.suspicious, v.Suspicious)
			assert.InDelta(t, tt.overage, v.Overage, 1e-9)
		})
	}
}

func TestJudge_UnassessedReason(t *testing.T) {
	v := Judge(5, 0)
	assert.Equal(t, ReasonNoEntitlementRule, v.ReasonCode)
	assert.Equal(t, "No entitlement rule defined", v.Reason)
	assert.Empty(t, v.Severity)
}

func TestEvaluate_PropagatesEntitlementError(t *testing.T) {
	d := NewDetector(fixedEntitler{err: errors.New("db down")})
	_, err := d.Evaluate(context.Background(), &models.Transaction{ProductType: "Urea"}, &models.Farmer{})
	assert.Error(t, err)
}

func TestEvaluate_ZeroQuantityFromBadInput(t *testing.T) {
	d := NewDetector(fixedEntitler{value: 30})
	txn := &models.Transaction{ProductType: "Urea", Quantity: models.ParseAmount("forty")}

	v, err := d.Evaluate(context.Background(), txn, &models.Farmer{})
	require.NoError(t, err)
	assert.False(t, v.Suspicious)
	assert.Equal(t, ReasonWithinEntitlement, v.ReasonCode)
}
