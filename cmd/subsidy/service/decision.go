package service

import (
	"context"
	"strings"
	"time"

	"github.com/efarmer/subsidy/common/fraud"
	"github.com/efarmer/subsidy/common/logger"
	"github.com/efarmer/subsidy/common/metrics"
	"github.com/efarmer/subsidy/common/models"
	"github.com/efarmer/subsidy/common/queue"
	"github.com/efarmer/subsidy/common/store"
)

// SubmitTransactionInput is a dealer-reported disbursement
type SubmitTransactionInput struct {
	FarmerID    string        `json:"efn"`
	DealerID    string        `json:"dealerId"`
	ProductType string        `json:"productType"`
	Quantity    models.Amount `json:"quantity"`
	Unit        string        `json:"unit"`
	Date        string        `json:"date"`
}

// TransactionResult is the stored transaction with its verdict
type TransactionResult struct {
	Transaction *models.Transaction
	Verdict     fraud.Verdict
	Case        *models.FlaggedCase
}

// DecisionService evaluates dealer transactions and records them with
// their flagged case in one ledger write
type DecisionService struct {
	farmers       store.FarmerStore
	ledger        store.Ledger
	detector      *fraud.Detector
	events        *queue.Publisher
	metrics       *metrics.Metrics
	ids           IDGenerator
	defaultDealer string
	now           func() time.Time
	log           *logger.Logger
}

// NewDecisionService creates a new decision service. events and m may be nil.
func NewDecisionService(
	farmers store.FarmerStore,
	ledger store.Ledger,
	detector *fraud.Detector,
	events *queue.Publisher,
	m *metrics.Metrics,
	ids IDGenerator,
	defaultDealer string,
	log *logger.Logger,
) *DecisionService {
	return &DecisionService{
		farmers:       farmers,
		ledger:        ledger,
		detector:      detector,
		events:        events,
		metrics:       m,
		ids:           ids,
		defaultDealer: defaultDealer,
		now:           time.Now,
		log:           log,
	}
}

// SubmitTransaction runs entitlement and fraud checks and records the
// transaction, plus a flagged case when the verdict is suspicious.
// Nothing is recorded for an unknown farmer.
func (s *DecisionService) SubmitTransaction(ctx context.Context, in SubmitTransactionInput) (*TransactionResult, error) {
	start := s.now()
	defer s.metrics.ObserveDecision("transaction", start)

	in.FarmerID = strings.TrimSpace(in.FarmerID)
	if in.FarmerID == "" {
		return nil, invalidf("efn is required")
	}
	in.ProductType = strings.TrimSpace(in.ProductType)
	if in.ProductType == "" {
		return nil, invalidf("productType is required")
	}
	if in.DealerID == "" {
		in.DealerID = s.defaultDealer
	}
	if in.Date == "" {
		in.Date = start.Format("2006-01-02")
	}

	farmer, err := s.farmers.Get(ctx, in.FarmerID)
	if err != nil {
		return nil, farmerLookupErr(in.FarmerID, err)
	}

	txn := &models.Transaction{
		FarmerID:    in.FarmerID,
		DealerID:    in.DealerID,
		ProductType: in.ProductType,
		Quantity:    in.Quantity,
		Unit:        in.Unit,
		Date:        in.Date,
		CreatedAt:   start.UTC(),
	}

	verdict, err := s.detector.Evaluate(ctx, txn, farmer)
	if err != nil {
		return nil, storageErr("evaluate transaction", err)
	}

	var flagged *models.FlaggedCase
	err = withFreshID(ctx, func() error {
		txn.ID = s.ids.TransactionID(start)
		flagged = nil
		if verdict.Suspicious {
			flagged = &models.FlaggedCase{
				CaseID:        s.ids.CaseID(),
				TransactionID: txn.ID,
				FarmerID:      txn.FarmerID,
				DealerID:      txn.DealerID,
				ReasonCode:    verdict.ReasonCode,
				Reason:        verdict.Reason,
				Severity:      verdict.Severity,
				Timestamp:     start.UTC(),
			}
		}
		return s.ledger.Record(ctx, txn, flagged)
	})
	if err != nil {
		s.log.Error("failed to record transaction", "efn", txn.FarmerID, "error", err)
		return nil, storageErr("record transaction", err)
	}

	log := s.log.WithFarmerID(txn.FarmerID).WithTransactionID(txn.ID)
	log.Info("transaction recorded",
		"dealer_id", txn.DealerID,
		"product", txn.ProductType,
		"quantity", txn.Quantity.Float64(),
		"max_allowed", verdict.MaxAllowed,
		"outcome", verdict.Outcome,
	)

	s.metrics.IncrementTransaction(string(verdict.Outcome))
	if flagged != nil {
		s.metrics.IncrementFlaggedCase()
		log.Warn("transaction flagged", "case_id", flagged.CaseID, "reason", flagged.Reason)
		publishEvent(ctx, s.events, s.log, queue.TopicCaseFlagged, txn.FarmerID, flagged)
	}

	return &TransactionResult{Transaction: txn, Verdict: verdict, Case: flagged}, nil
}

// Transactions returns the transaction log
func (s *DecisionService) Transactions(ctx context.Context) ([]*models.Transaction, error) {
	txns, err := s.ledger.Transactions(ctx)
	if err != nil {
		return nil, storageErr("list transactions", err)
	}
	return txns, nil
}

// Cases returns the flagged case log
func (s *DecisionService) Cases(ctx context.Context) ([]*models.FlaggedCase, error) {
	cases, err := s.ledger.Cases(ctx)
	if err != nil {
		return nil, storageErr("list flagged cases", err)
	}
	return cases, nil
}
