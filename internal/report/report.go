// Package report aggregates ingested records into the back-office summary:
// per-category volume sums, fee totals and the data-sufficiency check that
// decides between chart and table rendering.
package report

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/brokerops/backoffice/internal/record"
)

// Querier is the read side of the store the aggregator runs against.
type Querier interface {
	Payments(ctx context.Context, owner uuid.UUID, category string, start, end *time.Time) ([]record.Payment, error)
	Rebates(ctx context.Context, owner uuid.UUID, start, end *time.Time) ([]record.Rebate, error)
	CRMWithdrawals(ctx context.Context, owner uuid.UUID, start, end *time.Time) ([]record.CRMWithdrawal, error)
	CRMDeposits(ctx context.Context, owner uuid.UUID, start, end *time.Time) ([]record.CRMDeposit, error)
	WelcomeBonusLogins(ctx context.Context, owner uuid.UUID) ([]string, error)
}

// MinRecordsForCharts is the minimum total record count for chart rendering.
const MinRecordsForCharts = 20

// MinCategoriesWithData is the minimum number of non-empty record categories
// for chart rendering.
const MinCategoriesWithData = 3

// metricsOrder fixes the row order of the formatted report table.
var metricsOrder = []string{
	"Total Rebate",
	"M2p Deposit",
	"Settlement Deposit",
	"M2p Withdrawal",
	"Settlement Withdrawal",
	"CRM Deposit Total",
	"Topchange Deposit Total",
	"Tier Fee Deposit",
	"Tier Fee Withdraw",
	"Welcome Bonus Withdrawals",
	"CRM Withdraw Total",
}

// Line is one row of the rendered report table.
type Line struct {
	Metric string `json:"metric"`
	Value  string `json:"value"`
}

// Breakdown counts records per category for the sufficiency check.
type Breakdown struct {
	Payments       int `json:"payments"`
	Rebates        int `json:"rebates"`
	CRMWithdrawals int `json:"crm_withdrawals"`
	CRMDeposits    int `json:"crm_deposits"`
}

// Summary is the aggregated report for one owner and optional date window.
type Summary struct {
	Lines               []Line             `json:"lines"`
	Values              map[string]float64 `json:"values"`
	SufficientForCharts bool               `json:"sufficient_for_charts"`
	TotalRecords        int                `json:"total_records"`
	CategoriesWithData  int                `json:"categories_with_data"`
	Breakdown           Breakdown          `json:"breakdown"`
	DateRange           string             `json:"date_range,omitempty"`
}

// ChartData is the chart payload, produced only when the data is sufficient.
type ChartData struct {
	Volumes map[string]float64 `json:"volumes"`
	Fees    map[string]float64 `json:"fees"`
}

type Aggregator struct {
	q Querier
}

func NewAggregator(q Querier) *Aggregator {
	return &Aggregator{q: q}
}

var accountDigits = regexp.MustCompile(`\d+`)

// Summarize computes every metric over the owner's records, optionally
// restricted to [start, end]. Window bounds apply to each record type's own
// timestamp column.
func (a *Aggregator) Summarize(ctx context.Context, owner uuid.UUID, start, end *time.Time) (*Summary, error) {
	payments, err := a.q.Payments(ctx, owner, "", start, end)
	if err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}
	rebates, err := a.q.Rebates(ctx, owner, start, end)
	if err != nil {
		return nil, fmt.Errorf("load rebates: %w", err)
	}
	withdrawals, err := a.q.CRMWithdrawals(ctx, owner, start, end)
	if err != nil {
		return nil, fmt.Errorf("load crm withdrawals: %w", err)
	}
	deposits, err := a.q.CRMDeposits(ctx, owner, start, end)
	if err != nil {
		return nil, fmt.Errorf("load crm deposits: %w", err)
	}
	welcomeLogins, err := a.q.WelcomeBonusLogins(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("load welcome bonus logins: %w", err)
	}

	values := make(map[string]float64, len(metricsOrder))
	for _, r := range rebates {
		values["Total Rebate"] += r.Amount
	}
	for _, p := range payments {
		switch p.SheetCategory {
		case record.CategoryM2pDeposit:
			values["M2p Deposit"] += p.FinalAmount
		case record.CategorySettlementDeposit:
			values["Settlement Deposit"] += p.FinalAmount
		case record.CategoryM2pWithdraw:
			values["M2p Withdrawal"] += p.FinalAmount
		case record.CategorySettlementWithdraw:
			values["Settlement Withdrawal"] += p.FinalAmount
		}
		cat := strings.ToLower(p.SheetCategory)
		if strings.Contains(cat, "deposit") {
			values["Tier Fee Deposit"] += p.TierFee
		}
		if strings.Contains(cat, "withdraw") {
			values["Tier Fee Withdraw"] += p.TierFee
		}
	}
	for _, d := range deposits {
		values["CRM Deposit Total"] += d.Amount
		if strings.EqualFold(d.PaymentMethod, "topchange") {
			values["Topchange Deposit Total"] += d.Amount
		}
	}
	welcome := make(map[string]struct{}, len(welcomeLogins))
	for _, l := range welcomeLogins {
		welcome[l] = struct{}{}
	}
	for _, w := range withdrawals {
		values["CRM Withdraw Total"] += w.Amount
		if login := accountDigits.FindString(w.TradingAccount); login != "" {
			if _, ok := welcome[login]; ok {
				values["Welcome Bonus Withdrawals"] += w.Amount
			}
		}
	}
	for _, m := range metricsOrder {
		values[m] += 0 // every metric is present even when zero
	}

	s := &Summary{
		Values: values,
		Breakdown: Breakdown{
			Payments:       len(payments),
			Rebates:        len(rebates),
			CRMWithdrawals: len(withdrawals),
			CRMDeposits:    len(deposits),
		},
	}
	s.TotalRecords = s.Breakdown.Payments + s.Breakdown.Rebates + s.Breakdown.CRMWithdrawals + s.Breakdown.CRMDeposits
	for _, n := range []int{s.Breakdown.Payments, s.Breakdown.Rebates, s.Breakdown.CRMWithdrawals, s.Breakdown.CRMDeposits} {
		if n > 0 {
			s.CategoriesWithData++
		}
	}
	s.SufficientForCharts = s.TotalRecords >= MinRecordsForCharts && s.CategoriesWithData >= MinCategoriesWithData

	if start != nil && end != nil {
		if s.SufficientForCharts {
			s.DateRange = fmt.Sprintf("From %s to %s", start.Format("2006-01-02"), end.Format("2006-01-02"))
		} else {
			s.DateRange = fmt.Sprintf("Filtered from %s to %s", start.Format("02.01.2006"), end.Format("02.01.2006"))
		}
	}

	if s.DateRange != "" {
		s.Lines = append(s.Lines, Line{Metric: "Date Range", Value: s.DateRange})
	}
	for _, m := range metricsOrder {
		s.Lines = append(s.Lines, Line{Metric: m, Value: fmt.Sprintf("%.2f", values[m])})
	}
	return s, nil
}

// Charts builds the chart payload for the summary, or nil when the data is
// too thin for charts to be meaningful.
func Charts(s *Summary) *ChartData {
	if !s.SufficientForCharts {
		return nil
	}
	return &ChartData{
		Volumes: map[string]float64{
			"M2p Deposit":           s.Values["M2p Deposit"],
			"Settlement Deposit":    s.Values["Settlement Deposit"],
			"M2p Withdrawal":        s.Values["M2p Withdrawal"],
			"Settlement Withdrawal": s.Values["Settlement Withdrawal"],
			"CRM Deposit":           s.Values["CRM Deposit Total"],
			"CRM Withdrawal":        s.Values["CRM Withdraw Total"],
		},
		Fees: map[string]float64{
			"Tier Fee Deposit":  s.Values["Tier Fee Deposit"],
			"Tier Fee Withdraw": s.Values["Tier Fee Withdraw"],
			"Total Rebate":      s.Values["Total Rebate"],
		},
	}
}

// PaymentsByCategory returns the owner's payments for one sheet category.
func (a *Aggregator) PaymentsByCategory(ctx context.Context, owner uuid.UUID, category string, start, end *time.Time) ([]record.Payment, error) {
	return a.q.Payments(ctx, owner, category, start, end)
}
