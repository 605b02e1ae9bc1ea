// Package reconcile cross-checks CRM deposit requests against the payments
// the gateway actually booked and reports the rows that have no counterpart.
package reconcile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/brokerops/backoffice/internal/record"
)

// Querier is the read side of the store the matcher runs against.
type Querier interface {
	Payments(ctx context.Context, owner uuid.UUID, category string, start, end *time.Time) ([]record.Payment, error)
	CRMDeposits(ctx context.Context, owner uuid.UUID, start, end *time.Time) ([]record.CRMDeposit, error)
}

// MaxTimeDelta is the widest gap between a CRM request and its gateway
// booking that still counts as the same transaction.
const MaxTimeDelta = 3*time.Hour + 30*time.Minute

// MaxAmountDelta absorbs fee and rounding differences between the two sides.
const MaxAmountDelta = 1.0

// Headers is the column order of reconciliation output.
var Headers = []string{"Source", "Date", "Client ID", "Trading Account", "Amount", "Client Name", "Confirmed (Y/N)", "ID"}

// Report lists the deposits found on one side but not the other.
type Report struct {
	Headers            []string   `json:"headers"`
	Rows               [][]string `json:"discrepancies"`
	TotalDiscrepancies int        `json:"total_discrepancies"`
}

type Matcher struct {
	q Querier
}

func NewMatcher(q Querier) *Matcher {
	return &Matcher{q: q}
}

// Compare matches each CRM deposit to the first unclaimed M2p Deposit
// payment whose trading account contains the deposit's client ID, whose
// timestamp is within MaxTimeDelta and whose amount is within
// MaxAmountDelta. Unmatched rows on both sides become discrepancies, CRM
// rows first. Topchange deposits follow a separate flow and are never
// reported as discrepancies.
func (m *Matcher) Compare(ctx context.Context, owner uuid.UUID, start, end *time.Time) (*Report, error) {
	deposits, err := m.q.CRMDeposits(ctx, owner, start, end)
	if err != nil {
		return nil, fmt.Errorf("load crm deposits: %w", err)
	}
	payments, err := m.q.Payments(ctx, owner, record.CategoryM2pDeposit, start, end)
	if err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}

	claimed := make([]bool, len(payments))
	rep := &Report{Headers: Headers}

	for _, d := range deposits {
		clientID := strings.ToLower(strings.TrimSpace(d.ClientID))
		matched := false
		for i, p := range payments {
			if claimed[i] {
				continue
			}
			if matches(d, clientID, p) {
				claimed[i] = true
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(d.PaymentMethod), "topchange") {
			continue
		}
		rep.Rows = append(rep.Rows, []string{
			"CRM Deposit", dateCell(d.RequestTime), clientID, "",
			fmt.Sprintf("%.2f", d.Amount), d.Name, "N", d.RequestID,
		})
	}

	for i, p := range payments {
		if claimed[i] {
			continue
		}
		account := strings.ToLower(strings.TrimSpace(p.TradingAccount))
		rep.Rows = append(rep.Rows, []string{
			"M2p Deposit", dateCell(p.Created), "", account,
			fmt.Sprintf("%.2f", p.FinalAmount), "", "N", p.TxID,
		})
	}

	rep.TotalDiscrepancies = len(rep.Rows)
	return rep, nil
}

// matches applies the fuzzy criteria for one deposit/payment pair. Rows
// missing a timestamp never match.
func matches(d record.CRMDeposit, clientID string, p record.Payment) bool {
	if d.RequestTime == nil || p.Created == nil {
		return false
	}
	delta := d.RequestTime.Sub(*p.Created)
	if delta < 0 {
		delta = -delta
	}
	if delta > MaxTimeDelta {
		return false
	}
	if !strings.Contains(strings.ToLower(strings.TrimSpace(p.TradingAccount)), clientID) {
		return false
	}
	diff := d.Amount - p.FinalAmount
	if diff < 0 {
		diff = -diff
	}
	return diff <= MaxAmountDelta
}

func dateCell(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
