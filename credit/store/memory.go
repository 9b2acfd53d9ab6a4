// Package store provides an in-memory credit.TxStore for tests and dev.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/coopfin/credit-engine/credit"
	"github.com/coopfin/credit-engine/engine"
	"github.com/coopfin/credit-engine/savings"
)

// Memory implements credit.TxStore with maps. A mutex guards all state.
// WithTx snapshots the maps up front and restores them when fn fails, so
// rollback semantics match the SQLite store closely enough for tests.
type Memory struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	credits      map[credit.CreditID]credit.Credit
	installments map[credit.CreditID][]credit.Installment
	payments     map[credit.CreditID][]credit.Payment
	guarantees   map[credit.GuaranteeID]credit.Guarantee
	accounts     map[credit.MemberID]savings.Account
}

func NewMemory() *Memory {
	return &Memory{
		credits:      make(map[credit.CreditID]credit.Credit),
		installments: make(map[credit.CreditID][]credit.Installment),
		payments:     make(map[credit.CreditID][]credit.Payment),
		guarantees:   make(map[credit.GuaranteeID]credit.Guarantee),
		accounts:     make(map[credit.MemberID]savings.Account),
	}
}

var _ credit.TxStore = (*Memory)(nil)

// =============================================================================
// CREDITS
// =============================================================================

func (m *Memory) CreateCredit(_ context.Context, c *credit.Credit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credits[c.ID] = *c
	return nil
}

func (m *Memory) GetCredit(_ context.Context, id credit.CreditID) (*credit.Credit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.credits[id]
	if !ok {
		return nil, credit.ErrCreditNotFound
	}
	out := c
	return &out, nil
}

func (m *Memory) UpdateCredit(_ context.Context, c *credit.Credit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.credits[c.ID]; !ok {
		return credit.ErrCreditNotFound
	}
	m.credits[c.ID] = *c
	return nil
}

func (m *Memory) ListCreditsByState(_ context.Context, state credit.CreditState) ([]*credit.Credit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*credit.Credit
	for id := range m.credits {
		c := m.credits[id]
		if c.State == state {
			cc := c
			out = append(out, &cc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// INSTALLMENTS
// =============================================================================

func (m *Memory) CreateInstallments(_ context.Context, installments []credit.Installment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inst := range installments {
		m.installments[inst.CreditID] = append(m.installments[inst.CreditID], inst)
	}
	for id := range m.installments {
		sort.Slice(m.installments[id], func(i, j int) bool {
			return m.installments[id][i].Sequence < m.installments[id][j].Sequence
		})
	}
	return nil
}

func (m *Memory) InstallmentsByCredit(_ context.Context, id credit.CreditID) ([]credit.Installment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]credit.Installment, len(m.installments[id]))
	copy(out, m.installments[id])
	return out, nil
}

func (m *Memory) UpdateInstallment(_ context.Context, inst *credit.Installment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.installments[inst.CreditID]
	for i := range list {
		if list[i].ID == inst.ID {
			list[i] = *inst
			return nil
		}
	}
	return credit.ErrInstallmentNotFound
}

// =============================================================================
// PAYMENTS
// =============================================================================

func (m *Memory) CreatePayment(_ context.Context, p *credit.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[p.CreditID] = append(m.payments[p.CreditID], *p)
	return nil
}

func (m *Memory) PaymentsByCredit(_ context.Context, id credit.CreditID) ([]*credit.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*credit.Payment, 0, len(m.payments[id]))
	for i := range m.payments[id] {
		p := m.payments[id][i]
		out = append(out, &p)
	}
	return out, nil
}

// =============================================================================
// GUARANTEES
// =============================================================================

func (m *Memory) CreateGuarantees(_ context.Context, gs []credit.Guarantee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range gs {
		m.guarantees[g.ID] = g
	}
	return nil
}

func (m *Memory) GuaranteesByCredit(_ context.Context, id credit.CreditID) ([]credit.Guarantee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []credit.Guarantee
	for _, g := range m.guarantees {
		if g.CreditID == id {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) GetGuarantee(_ context.Context, id credit.GuaranteeID) (*credit.Guarantee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.guarantees[id]
	if !ok {
		return nil, credit.ErrGuaranteeNotFound
	}
	out := g
	return &out, nil
}

func (m *Memory) UpdateGuarantee(_ context.Context, g *credit.Guarantee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.guarantees[g.ID]; !ok {
		return credit.ErrGuaranteeNotFound
	}
	m.guarantees[g.ID] = *g
	return nil
}

func (m *Memory) CountActiveGuaranteesByGuarantor(_ context.Context, guarantor credit.MemberID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, g := range m.guarantees {
		if g.GuarantorID == guarantor && g.State == engine.GuaranteeActive {
			count++
		}
	}
	return count, nil
}

// =============================================================================
// SAVINGS ACCOUNTS
// =============================================================================

func (m *Memory) GetSavingsAccount(_ context.Context, member credit.MemberID) (*savings.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[member]
	if !ok {
		return nil, credit.ErrAccountNotFound
	}
	out := a
	return &out, nil
}

func (m *Memory) PutSavingsAccount(_ context.Context, a *savings.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[credit.MemberID(a.MemberID)] = *a
	return nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx runs fn against the store, restoring a snapshot of all state
// when fn fails. A dedicated mutex serializes transactions so two WithTx
// blocks never interleave.
func (m *Memory) WithTx(_ context.Context, fn func(credit.Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	snapshot := m.snapshot()
	if err := fn(m); err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

func (m *Memory) snapshot() *Memory {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := NewMemory()
	for k, v := range m.credits {
		s.credits[k] = v
	}
	for k, v := range m.installments {
		list := make([]credit.Installment, len(v))
		copy(list, v)
		s.installments[k] = list
	}
	for k, v := range m.payments {
		list := make([]credit.Payment, len(v))
		copy(list, v)
		s.payments[k] = list
	}
	for k, v := range m.guarantees {
		s.guarantees[k] = v
	}
	for k, v := range m.accounts {
		s.accounts[k] = v
	}
	return s
}

func (m *Memory) restore(s *Memory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credits = s.credits
	m.installments = s.installments
	m.payments = s.payments
	m.guarantees = s.guarantees
	m.accounts = s.accounts
}
