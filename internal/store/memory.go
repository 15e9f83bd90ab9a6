package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fdygg/growledger/internal/model"
)

// Memory is an in-memory Store used by unit tests. A single mutex serializes
// all mutations, which subsumes the Postgres backend's per-account row locks;
// transaction ids are monotonic and listing sees a consistent snapshot.
type Memory struct {
	mu           sync.RWMutex
	principals   map[string]*model.Principal
	accounts     map[string]*model.Account
	transactions []*model.Transaction
	nextTxID     int64
}

func NewMemory() *Memory {
	return &Memory{
		principals: make(map[string]*model.Principal),
		accounts:   make(map[string]*model.Account),
		nextTxID:   1,
	}
}

func (m *Memory) CreatePrincipal(_ context.Context, p *model.Principal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.principals[p.Username]; ok {
		return ErrConflict
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	stored := *p
	m.principals[p.Username] = &stored
	return nil
}

func (m *Memory) GetPrincipal(_ context.Context, username string) (*model.Principal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.principals[username]
	if !ok {
		return nil, ErrNotFound
	}
	out := *p
	return &out, nil
}

func (m *Memory) TouchLastUsed(_ context.Context, username string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.principals[username]
	if !ok {
		return ErrNotFound
	}
	p.LastUsed = &at
	return nil
}

func (m *Memory) ListPrincipals(_ context.Context, limit, offset int) ([]*model.Principal, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*model.Principal, 0, len(m.principals))
	for _, p := range m.principals {
		out := *p
		all = append(all, &out)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *Memory) CountPrincipals(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.principals), nil
}

func (m *Memory) GetAccount(_ context.Context, growid string) (*model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	acct, ok := m.accounts[growid]
	if !ok {
		return nil, ErrNotFound
	}
	out := *acct
	out.DonationTotal, out.PurchaseTotal = m.totalsLocked(growid)
	return &out, nil
}

func (m *Memory) totalsLocked(growid string) (donations, purchases int64) {
	for _, txn := range m.transactions {
		if txn.GrowID != growid || txn.Status != model.TxStatusSuccess {
			continue
		}
		switch txn.Type {
		case model.TxTypeDonation:
			donations += txn.Amount
		case model.TxTypePurchase:
			purchases += txn.Amount
		}
	}
	return donations, purchases
}

func (m *Memory) CountAccounts(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.accounts), nil
}

func (m *Memory) Adjust(_ context.Context, adj Adjustment) (*model.Account, *model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.adjustLocked(adj)
}

func (m *Memory) adjustLocked(adj Adjustment) (*model.Account, *model.Transaction, error) {
	now := time.Now().UTC()
	acct, ok := m.accounts[adj.GrowID]
	if !ok {
		acct = &model.Account{GrowID: adj.GrowID, CreatedAt: now, UpdatedAt: now}
		m.accounts[adj.GrowID] = acct
	}

	newBalance := acct.Balance + adj.Delta
	if newBalance < 0 {
		return nil, nil, ErrInsufficientFunds
	}

	amount := adj.Delta
	if amount < 0 {
		amount = -amount
	}
	metadata := adj.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}

	txn := &model.Transaction{
		ID:         m.nextTxID,
		GrowID:     adj.GrowID,
		Type:       adj.Type,
		Amount:     amount,
		OldBalance: acct.Balance,
		NewBalance: newBalance,
		Status:     model.TxStatusSuccess,
		Reason:     adj.Reason,
		ReversesID: adj.ReversesID,
		Metadata:   metadata,
		CreatedAt:  now,
	}
	m.nextTxID++
	m.transactions = append(m.transactions, txn)

	acct.Balance = newBalance
	acct.UpdatedAt = now

	acctOut := *acct
	acctOut.DonationTotal, acctOut.PurchaseTotal = m.totalsLocked(adj.GrowID)
	txnOut := *txn
	return &acctOut, &txnOut, nil
}

func (m *Memory) GetTransaction(_ context.Context, id int64) (*model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	txn := m.findLocked(id)
	if txn == nil {
		return nil, ErrNotFound
	}
	out := *txn
	return &out, nil
}

func (m *Memory) findLocked(id int64) *model.Transaction {
	if id < 1 || id > int64(len(m.transactions)) {
		return nil
	}
	return m.transactions[id-1]
}

func (m *Memory) ListTransactions(_ context.Context, filters TransactionFilters) ([]*model.Transaction, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*model.Transaction
	for _, txn := range m.transactions {
		if matchesFilters(txn, filters) {
			out := *txn
			matched = append(matched, &out)
		}
	}

	total := len(matched)
	if filters.Offset >= total {
		return nil, total, nil
	}
	end := filters.Offset + filters.Limit
	if end > total {
		end = total
	}
	return matched[filters.Offset:end], total, nil
}

func matchesFilters(txn *model.Transaction, f TransactionFilters) bool {
	if f.GrowID != "" && txn.GrowID != f.GrowID {
		return false
	}
	if f.Type != nil && txn.Type != *f.Type {
		return false
	}
	if f.Status != nil && txn.Status != *f.Status {
		return false
	}
	if f.From != nil && txn.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && txn.CreatedAt.After(*f.To) {
		return false
	}
	if f.MinAmount != nil && txn.Amount < *f.MinAmount {
		return false
	}
	if f.MaxAmount != nil && txn.Amount > *f.MaxAmount {
		return false
	}
	return true
}

func (m *Memory) Reverse(_ context.Context, id int64, reason string) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	original := m.findLocked(id)
	if original == nil {
		return nil, ErrNotFound
	}

	switch original.Status {
	case model.TxStatusReversed, model.TxStatusCancelled:
		return nil, ErrAlreadyReversed
	case model.TxStatusSuccess:
	default:
		return nil, ErrNotReversible
	}

	delta := original.Amount
	if original.Type.IsCredit() {
		delta = -delta
	}

	_, reversal, err := m.adjustLocked(Adjustment{
		GrowID:     original.GrowID,
		Delta:      delta,
		Type:       model.ReversalType(original.Type),
		Reason:     reason,
		ReversesID: &original.ID,
	})
	if err != nil {
		return nil, err
	}

	original.Status = model.TxStatusReversed
	return reversal, nil
}
