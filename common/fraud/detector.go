// Package fraud compares reported disbursements against entitlement.
package fraud

import (
	"context"
	"fmt"
	"math"

	"github.com/efarmer/subsidy/common/models"
)

// Outcome classifies a verdict
type Outcome string

const (
	OutcomeClean      Outcome = "clean"
	OutcomeSuspicious Outcome = "suspicious"
	// OutcomeUnassessed means no rule covers the product; not treated as fraud
	OutcomeUnassessed Outcome = "unassessed"
)

const (
	ReasonWithinEntitlement  = "within_entitlement"
	ReasonExceedsEntitlement = "exceeds_entitlement"
	ReasonNoEntitlementRule  = "no_entitlement_rule"
)

// Verdict is the derived result of one evaluation. It is not stored on its own.
type Verdict struct {
	Outcome    Outcome         `json:"outcome"`
	Suspicious bool            `json:"suspicious"`
	ReasonCode string          `json:"reasonCode"`
	Reason     string          `json:"reason"`
	Severity   models.Severity `json:"severity,omitempty"`
	MaxAllowed float64         `json:"maxAllowed"`
	Overage    float64         `json:"overage,omitempty"`
}

// Entitler resolves the quota for a farmer and product
type Entitler interface {
	EntitlementFor(ctx context.Context, farmer *models.Farmer, product string) (float64, error)
}

// Detector is stateless and safe for concurrent use
type Detector struct {
	entitlements Entitler
}

func NewDetector(entitlements Entitler) *Detector {
	return &Detector{entitlements: entitlements}
}

// Evaluate produces the verdict for txn placed by farmer
func (d *Detector) Evaluate(ctx context.Context, txn *models.Transaction, farmer *models.Farmer) (Verdict, error) {
	maxAllowed, err := d.entitlements.EntitlementFor(ctx, farmer, txn.ProductType)
	if err != nil {
		return Verdict{}, err
	}
	return Judge(txn.Quantity.Float64(), maxAllowed), nil
}

// Judge applies the quota comparison. Equality is never suspicious.
func Judge(quantity, maxAllowed float64) Verdict {
	if maxAllowed <= 0 {
		return Verdict{
			Outcome:    OutcomeUnassessed,
			ReasonCode: ReasonNoEntitlementRule,
			Reason:     "No entitlement rule defined",
			MaxAllowed: maxAllowed,
		}
	}

	if quantity > maxAllowed {
		overage := quantity - maxAllowed
		return Verdict{
			Outcome:    OutcomeSuspicious,
			Suspicious: true,
			ReasonCode: ReasonExceedsEntitlement,
			Reason:     fmt.Sprintf("Quantity exceeds entitlement by %.1f units", overage),
			Severity:   models.SeverityHigh,
			MaxAllowed: maxAllowed,
			Overage:    math.Round(overage*10) / 10,
		}
	}

	return Verdict{
		Outcome:    OutcomeClean,
		ReasonCode: ReasonWithinEntitlement,
		Reason:     "Within entitlement",
		MaxAllowed: maxAllowed,
	}
}
