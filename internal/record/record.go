// Package record defines the canonical financial entities produced by the
// import pipeline. Every record is scoped to an owner; the identity key is
// unique per owner per record type and drives deduplication.
package record

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Type identifies one of the five importable record kinds.
type Type string

const (
	TypePayment       Type = "payment"
	TypeRebate        Type = "rebate"
	TypeCRMWithdrawal Type = "crm-withdrawal"
	TypeCRMDeposit    Type = "crm-deposit"
	TypeAccountList   Type = "account-list"
)

// ParseType maps a record type selector to its Type.
// Returns false for unknown selectors.
func ParseType(s string) (Type, bool) {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case TypePayment:
		return TypePayment, true
	case TypeRebate:
		return TypeRebate, true
	case TypeCRMWithdrawal:
		return TypeCRMWithdrawal, true
	case TypeCRMDeposit:
		return TypeCRMDeposit, true
	case TypeAccountList:
		return TypeAccountList, true
	}
	return "", false
}

// Sheet categories used to bucket payment records in reports.
const (
	CategoryM2pDeposit         = "M2p Deposit"
	CategorySettlementDeposit  = "Settlement Deposit"
	CategoryM2pWithdraw        = "M2p Withdraw"
	CategorySettlementWithdraw = "Settlement Withdraw"
)

// WelcomeBonusGroup is the account group path that marks welcome-bonus
// accounts. The comparison is an exact string match.
const WelcomeBonusGroup = `WELCOME\Welcome BBOOK`

// Record is implemented by every canonical entity.
type Record interface {
	RecordType() Type
	Key() string
}

// Payment is a client payment transaction from the payment-gateway export.
type Payment struct {
	OwnerID            uuid.UUID
	TxID               string
	Confirmed          string
	WalletAddress      string
	Status             string
	Type               string
	Gateway            string
	FinalAmount        float64
	FinalCurrency      string
	SettlementAmount   float64
	SettlementCurrency string
	ProcessingFee      float64
	Price              float64
	Comment            string
	PaymentID          string
	Created            *time.Time
	TradingAccount     string
	BalanceAfter       float64
	TierFee            float64
	SheetCategory      string
}

func (p Payment) RecordType() Type { return TypePayment }
func (p Payment) Key() string      { return p.TxID }

// SheetCategory derives the report bucket for a payment from its transaction
// type and gateway name. The derivation happens once at ingest and is never
// recomputed.
func SheetCategory(txType, gateway string) string {
	settlement := strings.Contains(strings.ToUpper(gateway), "SETTLEMENT")
	if strings.ToUpper(txType) == "DEPOSIT" {
		if settlement {
			return CategorySettlementDeposit
		}
		return CategoryM2pDeposit
	}
	if settlement {
		return CategorySettlementWithdraw
	}
	return CategoryM2pWithdraw
}

// Rebate is a single introducing-broker rebate transaction.
type Rebate struct {
	OwnerID       uuid.UUID
	TransactionID string
	Amount        float64
	RebateTime    *time.Time
}

func (r Rebate) RecordType() Type { return TypeRebate }
func (r Rebate) Key() string      { return r.TransactionID }

// CRMWithdrawal is a withdrawal request exported from the CRM.
type CRMWithdrawal struct {
	OwnerID        uuid.UUID
	RequestID      string
	ReviewTime     *time.Time
	TradingAccount string
	Amount         float64
}

func (w CRMWithdrawal) RecordType() Type { return TypeCRMWithdrawal }
func (w CRMWithdrawal) Key() string      { return w.RequestID }

// CRMDeposit is a deposit request exported from the CRM.
type CRMDeposit struct {
	OwnerID        uuid.UUID
	RequestID      string
	RequestTime    *time.Time
	TradingAccount string
	Amount         float64
	PaymentMethod  string
	ClientID       string
	Name           string
}

func (d CRMDeposit) RecordType() Type { return TypeCRMDeposit }
func (d CRMDeposit) Key() string      { return d.RequestID }

// Account is one row of the trading-account list snapshot.
type Account struct {
	OwnerID        uuid.UUID
	Login          string
	Name           string
	Group          string
	IsWelcomeBonus bool
}

func (a Account) RecordType() Type { return TypeAccountList }
func (a Account) Key() string      { return a.Login }

// IsWelcomeBonusGroup reports whether a group path flags the account as a
// welcome-bonus account.
func IsWelcomeBonusGroup(group string) bool {
	return group == WelcomeBonusGroup
}
