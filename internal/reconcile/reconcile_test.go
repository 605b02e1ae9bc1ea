package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/brokerops/backoffice/internal/record"
	"github.com/brokerops/backoffice/internal/store"
)

var owner = uuid.MustParse("9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d")

func ts(h, m int) *time.Time {
	t := time.Date(2024, 1, 15, h, m, 0, 0, time.UTC)
	return &t
}

func seed(t *testing.T, recs ...record.Record) *store.Memory {
	t.Helper()
	mem := store.NewMemory()
	if err := mem.InsertBatch(context.Background(), recs); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return mem
}

func TestCompareMatchesWithinTolerances(t *testing.T) {
	mem := seed(t,
		record.CRMDeposit{OwnerID: owner, RequestID: "d1", ClientID: "c1", Amount: 500.00, RequestTime: ts(10, 0)},
		record.Payment{OwnerID: owner, TxID: "p1", SheetCategory: record.CategoryM2pDeposit,
			TradingAccount: "ta-c1-001", FinalAmount: 500.25, Created: ts(10, 5)},
	)

	rep, err := NewMatcher(mem).Compare(context.Background(), owner, nil, nil)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if rep.TotalDiscrepancies != 0 {
		t.Fatalf("got %d discrepancies, want 0: %v", rep.TotalDiscrepancies, rep.Rows)
	}
}

func TestCompareRejectsOutsideTolerances(t *testing.T) {
	tests := []struct {
		name    string
		deposit record.CRMDeposit
		payment record.Payment
	}{
		{
			"time gap over limit",
			record.CRMDeposit{OwnerID: owner, RequestID: "d1", ClientID: "c1", Amount: 500, RequestTime: ts(10, 0)},
			record.Payment{OwnerID: owner, TxID: "p1", SheetCategory: record.CategoryM2pDeposit,
				TradingAccount: "ta-c1-001", FinalAmount: 500, Created: ts(13, 31)},
		},
		{
			"amount gap over limit",
			record.CRMDeposit{OwnerID: owner, RequestID: "d1", ClientID: "c1", Amount: 500, RequestTime: ts(10, 0)},
			record.Payment{OwnerID: owner, TxID: "p1", SheetCategory: record.CategoryM2pDeposit,
				TradingAccount: "ta-c1-001", FinalAmount: 501.01, Created: ts(10, 5)},
		},
		{
			"client id not in account",
			record.CRMDeposit{OwnerID: owner, RequestID: "d1", ClientID: "c9", Amount: 500, RequestTime: ts(10, 0)},
			record.Payment{OwnerID: owner, TxID: "p1", SheetCategory: record.CategoryM2pDeposit,
				TradingAccount: "ta-c1-001", FinalAmount: 500, Created: ts(10, 5)},
		},
		{
			"deposit without timestamp",
			record.CRMDeposit{OwnerID: owner, RequestID: "d1", ClientID: "c1", Amount: 500},
			record.Payment{OwnerID: owner, TxID: "p1", SheetCategory: record.CategoryM2pDeposit,
				TradingAccount: "ta-c1-001", FinalAmount: 500, Created: ts(10, 5)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := seed(t, tt.deposit, tt.payment)
			rep, err := NewMatcher(mem).Compare(context.Background(), owner, nil, nil)
			if err != nil {
				t.Fatalf("Compare: %v", err)
			}
			if rep.TotalDiscrepancies != 2 {
				t.Fatalf("got %d discrepancies, want both sides unmatched: %v", rep.TotalDiscrepancies, rep.Rows)
			}
		})
	}
}

func TestCompareRowLayout(t *testing.T) {
	mem := seed(t,
		record.CRMDeposit{OwnerID: owner, RequestID: "d1", ClientID: "C1", Name: "Ada", Amount: 500, RequestTime: ts(10, 0)},
		record.Payment{OwnerID: owner, TxID: "p1", SheetCategory: record.CategoryM2pDeposit,
			TradingAccount: "TA-999", FinalAmount: 42.5, Created: ts(12, 0)},
	)

	rep, err := NewMatcher(mem).Compare(context.Background(), owner, nil, nil)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if len(rep.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rep.Rows))
	}

	// CRM rows come first, then payment rows.
	crm := rep.Rows[0]
	if crm[0] != "CRM Deposit" || crm[1] != "2024-01-15" || crm[2] != "c1" ||
		crm[3] != "" || crm[4] != "500.00" || crm[5] != "Ada" || crm[6] != "N" || crm[7] != "d1" {
		t.Errorf("crm row = %v", crm)
	}
	pay := rep.Rows[1]
	if pay[0] != "M2p Deposit" || pay[2] != "" || pay[3] != "ta-999" || pay[4] != "42.50" || pay[7] != "p1" {
		t.Errorf("payment row = %v", pay)
	}
}

func TestCompareGreedyFirstMatch(t *testing.T) {
	// Two deposits could both match the single payment; only the first
	// claims it.
	mem := seed(t,
		record.CRMDeposit{OwnerID: owner, RequestID: "d1", ClientID: "c1", Amount: 500, RequestTime: ts(10, 0)},
		record.CRMDeposit{OwnerID: owner, RequestID: "d2", ClientID: "c1", Amount: 500, RequestTime: ts(10, 30)},
		record.Payment{OwnerID: owner, TxID: "p1", SheetCategory: record.CategoryM2pDeposit,
			TradingAccount: "ta-c1-001", FinalAmount: 500, Created: ts(10, 15)},
	)

	rep, err := NewMatcher(mem).Compare(context.Background(), owner, nil, nil)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if rep.TotalDiscrepancies != 1 {
		t.Fatalf("got %d discrepancies, want 1", rep.TotalDiscrepancies)
	}
	if rep.Rows[0][7] != "d2" {
		t.Errorf("unmatched row = %v, want d2", rep.Rows[0])
	}
}

func TestCompareTopchangeNeverReported(t *testing.T) {
	mem := seed(t,
		record.CRMDeposit{OwnerID: owner, RequestID: "d1", ClientID: "c1", Amount: 500,
			PaymentMethod: "Topchange", RequestTime: ts(10, 0)},
	)

	rep, err := NewMatcher(mem).Compare(context.Background(), owner, nil, nil)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if rep.TotalDiscrepancies != 0 {
		t.Fatalf("topchange deposit reported as discrepancy: %v", rep.Rows)
	}
}

func TestCompareOnlyM2pDepositsConsidered(t *testing.T) {
	// A settlement payment must not claim or appear in the comparison.
	mem := seed(t,
		record.Payment{OwnerID: owner, TxID: "p1", SheetCategory: record.CategorySettlementDeposit,
			TradingAccount: "ta-c1-001", FinalAmount: 500, Created: ts(10, 0)},
	)

	rep, err := NewMatcher(mem).Compare(context.Background(), owner, nil, nil)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if rep.TotalDiscrepancies != 0 {
		t.Fatalf("settlement payment leaked into comparison: %v", rep.Rows)
	}
}
