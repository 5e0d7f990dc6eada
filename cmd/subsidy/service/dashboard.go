package service

import (
	"context"

	"github.com/efarmer/subsidy/common/logger"
	"github.com/efarmer/subsidy/common/models"
	"github.com/efarmer/subsidy/common/store"
)

// Dashboard is the admin summary
type Dashboard struct {
	TotalFarmers      int
	TotalTransactions int
	TotalFlagged      int
	DealerCounts      map[string]int
	Flagged           []*models.FlaggedCase
	Farmers           []*models.Farmer
}

// DashboardService aggregates the admin view
type DashboardService struct {
	farmers store.FarmerStore
	ledger  store.Ledger
	log     *logger.Logger
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(farmers store.FarmerStore, ledger store.Ledger, log *logger.Logger) *DashboardService {
	return &DashboardService{
		farmers: farmers,
		ledger:  ledger,
		log:     log,
	}
}

// Summary counts farmers, transactions and flagged cases, and transactions per dealer
func (s *DashboardService) Summary(ctx context.Context) (*Dashboard, error) {
	farmers, err := s.farmers.List(ctx)
	if err != nil {
		return nil, storageErr("list farmers", err)
	}

	txns, err := s.ledger.Transactions(ctx)
	if err != nil {
		return nil, storageErr("list transactions", err)
	}

	cases, err := s.ledger.Cases(ctx)
	if err != nil {
		return nil, storageErr("list flagged cases", err)
	}

	dealerCounts := make(map[string]int)
	for _, t := range txns {
		dealerCounts[t.DealerID]++
	}

	return &Dashboard{
		TotalFarmers:      len(farmers),
		TotalTransactions: len(txns),
		TotalFlagged:      len(cases),
		DealerCounts:      dealerCounts,
		Flagged:           cases,
		Farmers:           farmers,
	}, nil
}
