package report

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/brokerops/backoffice/internal/record"
	"github.com/brokerops/backoffice/internal/store"
)

var owner = uuid.MustParse("9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d")

func at(h int) *time.Time {
	t := time.Date(2024, 1, 15, h, 0, 0, 0, time.UTC)
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

func TestSummarizeMetrics(t *testing.T) {
	mem := seed(t,
		record.Payment{OwnerID: owner, TxID: "p1", SheetCategory: record.CategoryM2pDeposit, FinalAmount: 100, TierFee: 1, Created: at(10)},
		record.Payment{OwnerID: owner, TxID: "p2", SheetCategory: record.CategorySettlementDeposit, FinalAmount: 200, TierFee: 2, Created: at(11)},
		record.Payment{OwnerID: owner, TxID: "p3", SheetCategory: record.CategoryM2pWithdraw, FinalAmount: 50, TierFee: 3, Created: at(12)},
		record.Payment{OwnerID: owner, TxID: "p4", SheetCategory: record.CategorySettlementWithdraw, FinalAmount: 75, TierFee: 4, Created: at(13)},
		record.Rebate{OwnerID: owner, TransactionID: "r1", Amount: 10, RebateTime: at(10)},
		record.Rebate{OwnerID: owner, TransactionID: "r2", Amount: 15, RebateTime: at(11)},
		record.CRMDeposit{OwnerID: owner, RequestID: "d1", Amount: 500, PaymentMethod: "card", RequestTime: at(10)},
		record.CRMDeposit{OwnerID: owner, RequestID: "d2", Amount: 300, PaymentMethod: "Topchange", RequestTime: at(11)},
		record.CRMWithdrawal{OwnerID: owner, RequestID: "w1", Amount: 120, TradingAccount: "ta-1001-x", ReviewTime: at(10)},
		record.CRMWithdrawal{OwnerID: owner, RequestID: "w2", Amount: 80, TradingAccount: "ta-2002-x", ReviewTime: at(11)},
	)
	if err := mem.ReplaceAccounts(context.Background(), owner, []record.Record{
		record.Account{OwnerID: owner, Login: "1001", Group: record.WelcomeBonusGroup, IsWelcomeBonus: true},
	}); err != nil {
		t.Fatal(err)
	}

	s, err := NewAggregator(mem).Summarize(context.Background(), owner, nil, nil)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}

	want := map[string]float64{
		"Total Rebate":              25,
		"M2p Deposit":               100,
		"Settlement Deposit":        200,
		"M2p Withdrawal":            50,
		"Settlement Withdrawal":     75,
		"CRM Deposit Total":         800,
		"Topchange Deposit Total":   300,
		"Tier Fee Deposit":          3,
		"Tier Fee Withdraw":         7,
		"Welcome Bonus Withdrawals": 120,
		"CRM Withdraw Total":        200,
	}
	for metric, v := range want {
		if s.Values[metric] != v {
			t.Errorf("%s = %v, want %v", metric, s.Values[metric], v)
		}
	}
}

func TestTierFeeBucketingIgnoresCase(t *testing.T) {
	mem := seed(t,
		record.Payment{OwnerID: owner, TxID: "p1", SheetCategory: "M2P DEPOSIT", TierFee: 2, Created: at(10)},
		record.Payment{OwnerID: owner, TxID: "p2", SheetCategory: "settlement withdraw", TierFee: 5, Created: at(11)},
	)

	s, err := NewAggregator(mem).Summarize(context.Background(), owner, nil, nil)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if s.Values["Tier Fee Deposit"] != 2 {
		t.Errorf("Tier Fee Deposit = %v, want 2", s.Values["Tier Fee Deposit"])
	}
	if s.Values["Tier Fee Withdraw"] != 5 {
		t.Errorf("Tier Fee Withdraw = %v, want 5", s.Values["Tier Fee Withdraw"])
	}
}

func TestSummarizeLineOrder(t *testing.T) {
	mem := store.NewMemory()
	s, err := NewAggregator(mem).Summarize(context.Background(), owner, nil, nil)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if len(s.Lines) != len(metricsOrder) {
		t.Fatalf("got %d lines, want %d", len(s.Lines), len(metricsOrder))
	}
	for i, m := range metricsOrder {
		if s.Lines[i].Metric != m {
			t.Errorf("line %d = %q, want %q", i, s.Lines[i].Metric, m)
		}
		if s.Lines[i].Value != "0.00" {
			t.Errorf("line %d value = %q, want 0.00", i, s.Lines[i].Value)
		}
	}
}

func TestSufficiency(t *testing.T) {
	tests := []struct {
		name                       string
		payments, rebates, deposit int
		want                       bool
	}{
		{"20 records across 3 categories", 10, 5, 5, true},
		{"19 records across 3 categories", 10, 5, 4, false},
		{"20 records across 2 categories", 15, 5, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var recs []record.Record
			for i := 0; i < tt.payments; i++ {
				recs = append(recs, record.Payment{OwnerID: owner, TxID: fmt.Sprintf("p%d", i), SheetCategory: record.CategoryM2pDeposit})
			}
			for i := 0; i < tt.rebates; i++ {
				recs = append(recs, record.Rebate{OwnerID: owner, TransactionID: fmt.Sprintf("r%d", i)})
			}
			for i := 0; i < tt.deposit; i++ {
				recs = append(recs, record.CRMDeposit{OwnerID: owner, RequestID: fmt.Sprintf("d%d", i)})
			}
			mem := seed(t, recs...)

			s, err := NewAggregator(mem).Summarize(context.Background(), owner, nil, nil)
			if err != nil {
				t.Fatalf("Summarize: %v", err)
			}
			if s.SufficientForCharts != tt.want {
				t.Errorf("sufficient = %v, want %v (total %d, categories %d)",
					s.SufficientForCharts, tt.want, s.TotalRecords, s.CategoriesWithData)
			}
		})
	}
}

func TestDateRangeLine(t *testing.T) {
	mem := seed(t,
		record.Payment{OwnerID: owner, TxID: "p1", SheetCategory: record.CategoryM2pDeposit, FinalAmount: 100, Created: at(10)},
	)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)

	s, err := NewAggregator(mem).Summarize(context.Background(), owner, &start, &end)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	// One payment is nowhere near enough for charts, so the filtered
	// day-first date format is used.
	if s.DateRange != "Filtered from 01.01.2024 to 31.01.2024" {
		t.Errorf("date range = %q", s.DateRange)
	}
	if s.Lines[0].Metric != "Date Range" {
		t.Errorf("first line = %q, want Date Range", s.Lines[0].Metric)
	}
}

func TestDateWindowExcludesUndatedRecords(t *testing.T) {
	mem := seed(t,
		record.Payment{OwnerID: owner, TxID: "p1", SheetCategory: record.CategoryM2pDeposit, FinalAmount: 100, Created: at(10)},
		record.Payment{OwnerID: owner, TxID: "p2", SheetCategory: record.CategoryM2pDeposit, FinalAmount: 999},
	)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	s, err := NewAggregator(mem).Summarize(context.Background(), owner, &start, &end)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if s.Values["M2p Deposit"] != 100 {
		t.Errorf("M2p Deposit = %v, want 100 (undated record must be excluded)", s.Values["M2p Deposit"])
	}
}

func TestCharts(t *testing.T) {
	s := &Summary{SufficientForCharts: false}
	if Charts(s) != nil {
		t.Fatal("expected nil charts for insufficient data")
	}

	s = &Summary{
		SufficientForCharts: true,
		Values: map[string]float64{
			"M2p Deposit":       100,
			"CRM Deposit Total": 800,
			"Total Rebate":      25,
		},
	}
	c := Charts(s)
	if c == nil {
		t.Fatal("expected chart data")
	}
	if c.Volumes["CRM Deposit"] != 800 {
		t.Errorf("CRM Deposit volume = %v, want 800", c.Volumes["CRM Deposit"])
	}
	if c.Fees["Total Rebate"] != 25 {
		t.Errorf("Total Rebate fee = %v, want 25", c.Fees["Total Rebate"])
	}
}
