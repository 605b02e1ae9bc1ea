package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brokerops/backoffice/internal/record"
)

// Memory is an in-memory store with the same contract as Postgres, including
// per-owner key uniqueness. It backs tests and dry-run ingestion.
type Memory struct {
	mu sync.Mutex

	payments    []record.Payment
	rebates     []record.Rebate
	withdrawals []record.CRMWithdrawal
	deposits    []record.CRMDeposit
	accounts    []record.Account
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) HasKey(_ context.Context, owner uuid.UUID, typ record.Type, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasKeyLocked(owner, typ, key), nil
}

func (m *Memory) hasKeyLocked(owner uuid.UUID, typ record.Type, key string) bool {
	switch typ {
	case record.TypePayment:
		for _, r := range m.payments {
			if r.OwnerID == owner && r.TxID == key {
				return true
			}
		}
	case record.TypeRebate:
		for _, r := range m.rebates {
			if r.OwnerID == owner && r.TransactionID == key {
				return true
			}
		}
	case record.TypeCRMWithdrawal:
		for _, r := range m.withdrawals {
			if r.OwnerID == owner && r.RequestID == key {
				return true
			}
		}
	case record.TypeCRMDeposit:
		for _, r := range m.deposits {
			if r.OwnerID == owner && r.RequestID == key {
				return true
			}
		}
	case record.TypeAccountList:
		for _, r := range m.accounts {
			if r.OwnerID == owner && r.Login == key {
				return true
			}
		}
	}
	return false
}

// InsertBatch appends all records or none. Snapshot-free types reject
// duplicate identity keys, mirroring the Postgres unique constraints.
func (m *Memory) InsertBatch(_ context.Context, recs []record.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range recs {
		if rec.RecordType() != record.TypeAccountList {
			var owner uuid.UUID
			switch r := rec.(type) {
			case record.Payment:
				owner = r.OwnerID
			case record.Rebate:
				owner = r.OwnerID
			case record.CRMWithdrawal:
				owner = r.OwnerID
			case record.CRMDeposit:
				owner = r.OwnerID
			}
			if m.hasKeyLocked(owner, rec.RecordType(), rec.Key()) {
				return fmt.Errorf("duplicate %s key %q", rec.RecordType(), rec.Key())
			}
		}
	}

	for _, rec := range recs {
		switch r := rec.(type) {
		case record.Payment:
			m.payments = append(m.payments, r)
		case record.Rebate:
			m.rebates = append(m.rebates, r)
		case record.CRMWithdrawal:
			m.withdrawals = append(m.withdrawals, r)
		case record.CRMDeposit:
			m.deposits = append(m.deposits, r)
		case record.Account:
			m.accounts = append(m.accounts, r)
		default:
			return fmt.Errorf("unsupported record type %T", rec)
		}
	}
	return nil
}

func (m *Memory) ReplaceAccounts(_ context.Context, owner uuid.UUID, recs []record.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.accounts[:0]
	for _, a := range m.accounts {
		if a.OwnerID != owner {
			kept = append(kept, a)
		}
	}
	m.accounts = kept

	for _, rec := range recs {
		a, ok := rec.(record.Account)
		if !ok {
			return fmt.Errorf("replace accounts: unexpected record type %T", rec)
		}
		m.accounts = append(m.accounts, a)
	}
	return nil
}

// inWindow applies the optional created-at window. Records without a
// timestamp are excluded whenever a bound is set.
func inWindow(at *time.Time, start, end *time.Time) bool {
	if start == nil && end == nil {
		return true
	}
	if at == nil {
		return false
	}
	if start != nil && at.Before(*start) {
		return false
	}
	if end != nil && at.After(*end) {
		return false
	}
	return true
}

func (m *Memory) Payments(_ context.Context, owner uuid.UUID, category string, start, end *time.Time) ([]record.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []record.Payment
	for _, r := range m.payments {
		if r.OwnerID != owner {
			continue
		}
		if category != "" && r.SheetCategory != category {
			continue
		}
		if !inWindow(r.Created, start, end) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *Memory) Rebates(_ context.Context, owner uuid.UUID, start, end *time.Time) ([]record.Rebate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []record.Rebate
	for _, r := range m.rebates {
		if r.OwnerID == owner && inWindow(r.RebateTime, start, end) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) CRMWithdrawals(_ context.Context, owner uuid.UUID, start, end *time.Time) ([]record.CRMWithdrawal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []record.CRMWithdrawal
	for _, r := range m.withdrawals {
		if r.OwnerID == owner && inWindow(r.ReviewTime, start, end) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) CRMDeposits(_ context.Context, owner uuid.UUID, start, end *time.Time) ([]record.CRMDeposit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []record.CRMDeposit
	for _, r := range m.deposits {
		if r.OwnerID == owner && inWindow(r.RequestTime, start, end) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) WelcomeBonusLogins(_ context.Context, owner uuid.UUID) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []string
	for _, a := range m.accounts {
		if a.OwnerID == owner && a.IsWelcomeBonus {
			out = append(out, a.Login)
		}
	}
	return out, nil
}

// Accounts returns the owner's current account snapshot.
func (m *Memory) Accounts(_ context.Context, owner uuid.UUID) ([]record.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []record.Account
	for _, a := range m.accounts {
		if a.OwnerID == owner {
			out = append(out, a)
		}
	}
	return out, nil
}
