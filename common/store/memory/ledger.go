package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/efarmer/subsidy/common/models"
	"github.com/efarmer/subsidy/common/store"
)

// Ledger is an append-only log of transactions and flagged cases
type Ledger struct {
	mu      sync.RWMutex
	txns    []*models.Transaction
	cases   []*models.FlaggedCase
	txnIDs  map[string]struct{}
	caseIDs map[string]struct{}
}

func NewLedger() *Ledger {
	return &Ledger{
		txnIDs:  make(map[string]struct{}),
		caseIDs: make(map[string]struct{}),
	}
}

func (l *Ledger) Record(_ context.Context, txn *models.Transaction, c *models.FlaggedCase) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.txnIDs[txn.ID]; exists {
		return fmt.Errorf("transaction %s: %w", txn.ID, store.ErrConflict)
	}
	if c != nil {
		if _, exists := l.caseIDs[c.CaseID]; exists {
			return fmt.Errorf("case %s: %w", c.CaseID, store.ErrConflict)
		}
	}

	t := *txn
	l.txns = append(l.txns, &t)
	l.txnIDs[txn.ID] = struct{}{}

	if c != nil {
		cc := *c
		l.cases = append(l.cases, &cc)
		l.caseIDs[c.CaseID] = struct{}{}
	}
	return nil
}

func (l *Ledger) Transactions(_ context.Context) ([]*models.Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*models.Transaction, len(l.txns))
	for i, t := range l.txns {
		cp := *t
		out[i] = &cp
	}
	return out, nil
}

func (l *Ledger) Cases(_ context.Context) ([]*models.FlaggedCase, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*models.FlaggedCase, len(l.cases))
	for i, c := range l.cases {
		cp := *c
		out[i] = &cp
	}
	return out, nil
}
