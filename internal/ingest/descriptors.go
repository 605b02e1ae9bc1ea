package ingest

// descriptors.go registers the per-type ingestion descriptors. Column terms
// mirror the headers of the back-office exports; payment exports have stable
// headers so the payment descriptor pins every field with an exact literal,
// while the CRM and account exports vary and rely on term search.

import (
	"strings"

	"github.com/google/uuid"

	"github.com/brokerops/backoffice/internal/decode"
	"github.com/brokerops/backoffice/internal/record"
	"github.com/brokerops/backoffice/internal/schema"
)

func init() {
	registerPayment()
	registerRebate()
	registerCRMWithdrawal()
	registerCRMDeposit()
	registerAccountList()
}

// exact builds a payment field spec pinned to a literal header. Payment
// columns that are absent from a file resolve to empty cells; only the
// identity key gates row acceptance.
func exact(name, header string) schema.FieldSpec {
	return schema.FieldSpec{Name: name, Terms: []string{header}, Exact: header}
}

func registerPayment() {
	register(Descriptor{
		Type: record.TypePayment,
		Fields: []schema.FieldSpec{
			{Name: "tx_id", Terms: []string{"Transaction ID"}, Exact: "Transaction ID", Required: true},
			exact("confirmed", "Confirmed"),
			exact("wallet_address", "Wallet address"),
			exact("status", "Status"),
			exact("type", "Type"),
			exact("payment_gateway", "Payment gateway"),
			exact("final_amount", "Transaction amount"),
			exact("final_currency", "Transaction currency"),
			exact("settlement_amount", "Settlement amount"),
			exact("settlement_currency", "Settlement currency"),
			exact("processing_fee", "Processing fee"),
			exact("price", "Price"),
			exact("comment", "Comment"),
			exact("payment_id", "Payment ID"),
			exact("created", "Booked"),
			exact("trading_account", "Trading account"),
			exact("balance_after", "Balance after"),
			exact("tier_fee", "Tier fee"),
		},
		KeyField: "tx_id",
		Skip: func(v RowView) (string, bool) {
			if strings.ToUpper(v.Get("payment_gateway")) == "BALANCE" {
				return "payment gateway is BALANCE", true
			}
			if strings.ToUpper(v.Get("status")) != "DONE" {
				return "status is not DONE", true
			}
			return "", false
		},
		Build: func(owner uuid.UUID, v RowView) (record.Record, error) {
			txType := strings.ToUpper(v.Get("type"))
			gateway := v.Get("payment_gateway")
			return record.Payment{
				OwnerID:            owner,
				TxID:               v.Get("tx_id"),
				Confirmed:          v.Get("confirmed"),
				WalletAddress:      v.Get("wallet_address"),
				Status:             strings.ToUpper(v.Get("status")),
				Type:               txType,
				Gateway:            gateway,
				FinalAmount:        ParseAmount(v.Get("final_amount"), 0),
				FinalCurrency:      v.Get("final_currency"),
				SettlementAmount:   ParseAmount(v.Get("settlement_amount"), 0),
				SettlementCurrency: v.Get("settlement_currency"),
				ProcessingFee:      ParseAmount(v.Get("processing_fee"), 0),
				Price:              ParseAmount(v.Get("price"), 1.0),
				Comment:            v.Get("comment"),
				PaymentID:          v.Get("payment_id"),
				Created:            parseDatePtr(v.Get("created")),
				TradingAccount:     v.Get("trading_account"),
				BalanceAfter:       ParseAmount(v.Get("balance_after"), 0),
				TierFee:            ParseAmount(v.Get("tier_fee"), 0),
				SheetCategory:      record.SheetCategory(txType, gateway),
			}, nil
		},
	})
}

func registerRebate() {
	register(Descriptor{
		Type: record.TypeRebate,
		Fields: []schema.FieldSpec{
			{Name: "tx_id", Terms: []string{"Transaction ID", "TRANSACTION_ID"}, Exact: "Transaction ID", Required: true},
			{Name: "amount", Terms: []string{"Rebate"}, Exact: "Rebate"},
			{Name: "rebate_time", Terms: []string{"Rebate Time", "REBATE_TIME"}, Exact: "Rebate Time", Required: true},
		},
		KeyField: "tx_id",
		Build: func(owner uuid.UUID, v RowView) (record.Record, error) {
			return record.Rebate{
				OwnerID:       owner,
				TransactionID: v.Get("tx_id"),
				Amount:        ParseAmount(v.Get("amount"), 0),
				RebateTime:    parseDatePtr(v.Get("rebate_time")),
			}, nil
		},
	})
}

func registerCRMWithdrawal() {
	register(Descriptor{
		Type: record.TypeCRMWithdrawal,
		Fields: []schema.FieldSpec{
			{Name: "request_id", Terms: []string{"Request ID", "REQUEST_ID"}, Required: true},
			{Name: "review_time", Terms: []string{"Review Time", "REVIEW_TIME"}, Required: true},
			{Name: "trading_account", Terms: []string{"Trading Account", "TRADING_ACCOUNT"}, Required: true},
			{Name: "amount", Terms: []string{"Withdrawal Amount", "WITHDRAWAL_AMOUNT"}, Required: true},
		},
		KeyField: "request_id",
		Build: func(owner uuid.UUID, v RowView) (record.Record, error) {
			return record.CRMWithdrawal{
				OwnerID:        owner,
				RequestID:      v.Get("request_id"),
				ReviewTime:     parseDatePtr(v.Get("review_time")),
				TradingAccount: v.Get("trading_account"),
				Amount:         SubunitAmount(v.Get("amount")),
			}, nil
		},
	})
}

func registerCRMDeposit() {
	register(Descriptor{
		Type: record.TypeCRMDeposit,
		Fields: []schema.FieldSpec{
			{Name: "request_id", Terms: []string{"Request ID", "REQUEST_ID"}, Required: true},
			{Name: "request_time", Terms: []string{"Request Time", "REQUEST_TIME"}, Required: true},
			{Name: "trading_account", Terms: []string{"Trading Account", "TRADING_ACCOUNT"}, Required: true},
			{Name: "amount", Terms: []string{"Trading Amount", "TRADING_AMOUNT"}, Required: true},
			{Name: "payment_method", Terms: []string{"Payment Method", "PAYMENT_METHOD"}},
			{Name: "client_id", Terms: []string{"Client ID", "CLIENT_ID"}},
			{Name: "name", Terms: []string{"Name"}, Exact: "Name"},
		},
		KeyField: "request_id",
		Build: func(owner uuid.UUID, v RowView) (record.Record, error) {
			return record.CRMDeposit{
				OwnerID:        owner,
				RequestID:      v.Get("request_id"),
				RequestTime:    parseDatePtr(v.Get("request_time")),
				TradingAccount: v.Get("trading_account"),
				Amount:         SubunitAmount(v.Get("amount")),
				PaymentMethod:  v.Get("payment_method"),
				ClientID:       v.Get("client_id"),
				Name:           v.Get("name"),
			}, nil
		},
	})
}

func registerAccountList() {
	register(Descriptor{
		Type: record.TypeAccountList,
		Fields: []schema.FieldSpec{
			{Name: "login", Terms: []string{"Login"}, Exact: "Login", Required: true},
			{Name: "name", Terms: []string{"Name"}, Exact: "Name", Required: true},
			{Name: "group", Terms: []string{"Group"}, Exact: "Group", Required: true},
		},
		KeyField: "login",
		Snapshot: true,
		// The trading platform prepends a report title row above the header.
		// Depending on the export it surfaces either as the decoded header
		// (promote the real header from the first row) or as the first data
		// row (drop it).
		Preprocess: func(t *decode.Table) {
			if len(t.Header) > 0 && len(t.Rows) > 0 &&
				strings.Contains(strings.ToUpper(t.Header[0]), "METATRADER") {
				t.Header = t.Rows[0]
				t.Rows = t.Rows[1:]
			}
			if len(t.Rows) > 0 && len(t.Rows[0]) > 0 &&
				strings.Contains(strings.ToUpper(t.Rows[0][0]), "METATRADER") {
				t.Rows = t.Rows[1:]
			}
		},
		Build: func(owner uuid.UUID, v RowView) (record.Record, error) {
			group := v.Get("group")
			return record.Account{
				OwnerID:        owner,
				Login:          v.Get("login"),
				Name:           v.Get("name"),
				Group:          group,
				IsWelcomeBonus: record.IsWelcomeBonusGroup(group),
			}, nil
		},
	})
}
