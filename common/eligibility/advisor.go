// Package eligibility suggests subsidy schemes for a farmer profile.
package eligibility

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"

	"github.com/efarmer/subsidy/common/models"
)

const (
	StatusLikelyEligible = "Likely Eligible"
	StatusRecommended    = "Recommended"
	StatusAdvisory       = "Advisory"
	StatusManualReview   = "Needs Manual Review"
)

// scheme is one advisory rule. Predicates see lower-cased crop, soil and zone.
type scheme struct {
	name      string
	predicate string
	status    string
	reason    func(p *models.Farmer) string
}

// Order defines output order
var schemes = []scheme{
	{
		name:      "PM-KISAN (Small Farmer Income Support)",
		predicate: `land <= 2.0`,
		status:    StatusLikelyEligible,
		reason:    func(*models.Farmer) string { return "Landholding ≤ 2 acres" },
	},
	{
		name:      "Micro-Irrigation / Drip Subsidy",
		predicate: `zone == "low"`,
		status:    StatusRecommended,
		reason:    func(*models.Farmer) string { return "Low rainfall zone" },
	},
	{
		name:      "Fertilizer & MSP Support Scheme",
		predicate: `crop.contains("paddy") || crop.contains("wheat")`,
		status:    StatusLikelyEligible,
		reason:    func(p *models.Farmer) string { return fmt.Sprintf("Staple crop detected (%s)", p.CropType) },
	},
	{
		name:      "Soil Health Card & Nutrient Management",
		predicate: `soil.contains("black") || soil.contains("red")`,
		status:    StatusAdvisory,
		reason:    func(p *models.Farmer) string { return "Soil type: " + p.SoilType },
	},
}

var noMatch = models.SchemeSuggestion{
	Name:   "No specific scheme matched",
	Reason: "Profile does not match current rule set",
	Status: StatusManualReview,
}

type compiledScheme struct {
	scheme
	program cel.Program
}

// Advisor holds the compiled scheme predicates. Safe for concurrent use.
type Advisor struct {
	schemes []compiledScheme
}

// NewAdvisor compiles every scheme predicate once
func NewAdvisor() (*Advisor, error) {
	env, err := cel.NewEnv(
		cel.Variable("land", cel.DoubleType),
		cel.Variable("crop", cel.StringType),
		cel.Variable("soil", cel.StringType),
		cel.Variable("zone", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}

	a := &Advisor{}
	for _, s := range schemes {
		ast, issues := env.Compile(s.predicate)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("compile %q: %w", s.name, issues.Err())
		}
		if !ast.OutputType().IsExactType(cel.BoolType) {
			return nil, fmt.Errorf("predicate for %q must return bool, got %v", s.name, ast.OutputType())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("program %q: %w", s.name, err)
		}
		a.schemes = append(a.schemes, compiledScheme{scheme: s, program: prg})
	}

	return a, nil
}

// Suggest returns every matching scheme in rule order, or the single
// manual review entry when nothing matches. The result is never empty.
func (a *Advisor) Suggest(p *models.Farmer) ([]models.SchemeSuggestion, error) {
	vars := map[string]any{
		"land": p.LandArea.NonNegative(),
		"crop": strings.ToLower(p.CropType),
		"soil": strings.ToLower(p.SoilType),
		"zone": strings.ToLower(p.RainfallZone),
	}

	var out []models.SchemeSuggestion
	for _, s := range a.schemes {
		val, _, err := s.program.Eval(vars)
		if err != nil {
			return nil, fmt.Errorf("evaluate %q: %w", s.name, err)
		}
		matched, ok := val.Value().(bool)
		if !ok {
			return nil, fmt.Errorf("predicate for %q did not return boolean, got %T", s.name, val.Value())
		}
		if matched {
			out = append(out, models.SchemeSuggestion{
				Name:   s.name,
				Reason: s.reason(p),
				Status: s.status,
			})
		}
	}

	if len(out) == 0 {
		return []models.SchemeSuggestion{noMatch}, nil
	}
	return out, nil
}
