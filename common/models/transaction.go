package models

import "time"

// Transaction is a dealer-reported disbursement. Append-only.
type Transaction struct {
	ID          string    `json:"transactionId"`
	FarmerID    string    `json:"efn"`
	DealerID    string    `json:"dealerId"`
	ProductType string    `json:"productType"`
	Quantity    Amount    `json:"quantity"`
	Unit        string    `json:"unit"`
	Date        string    `json:"date"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Severity of a flagged case
type Severity string

const (
	SeverityHigh Severity = "High"
)

// FlaggedCase is created when a transaction verdict is suspicious. Append-only.
type FlaggedCase struct {
	CaseID        string    `json:"caseId"`
	TransactionID string    `json:"transactionId"`
	FarmerID      string    `json:"efn"`
	DealerID      string    `json:"dealerId"`
	ReasonCode    string    `json:"reasonCode"`
	Reason        string    `json:"reason"`
	Severity      Severity  `json:"severity"`
	Timestamp     time.Time `json:"timestamp"`
}

// EntitlementRule caps a product quantity per acre for a crop and rainfall zone
type EntitlementRule struct {
	CropType     string  `json:"cropType" yaml:"cropType"`
	RainfallZone string  `json:"rainfallZone" yaml:"rainfallZone"`
	ProductType  string  `json:"productType" yaml:"productType"`
	MaxPerAcre   float64 `json:"maxPerAcre" yaml:"maxPerAcre"`
}

// RuleKey is the exact-match identity of a rule
type RuleKey struct {
	CropType     string
	RainfallZone string
	ProductType  string
}

// Key returns the lookup key of the rule
func (r EntitlementRule) Key() RuleKey {
	return RuleKey{CropType: r.CropType, RainfallZone: r.RainfallZone, ProductType: r.ProductType}
}

// SchemeSuggestion is an advisory match from the eligibility rules. Not persisted.
type SchemeSuggestion struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
	Status string `json:"status"`
}
