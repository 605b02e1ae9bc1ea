// Package store persists canonical records and serves the queries the report
// and reconciliation layers run. Postgres is the production implementation;
// Memory backs tests and dry runs.
package store

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brokerops/backoffice/internal/record"
)

//go:embed schema.sql
var schemaSQL string

// keyColumns maps each record type to its table and identity-key column.
var keyColumns = map[record.Type][2]string{
	record.TypePayment:       {"payments", "tx_id"},
	record.TypeRebate:        {"rebates", "transaction_id"},
	record.TypeCRMWithdrawal: {"crm_withdrawals", "request_id"},
	record.TypeCRMDeposit:    {"crm_deposits", "request_id"},
	record.TypeAccountList:   {"accounts", "login"},
}

type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the record tables if they do not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (p *Postgres) HasKey(ctx context.Context, owner uuid.UUID, typ record.Type, key string) (bool, error) {
	tc, ok := keyColumns[typ]
	if !ok {
		return false, fmt.Errorf("has key: unknown record type %q", typ)
	}
	q := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE owner_id = $1 AND %s = $2)", tc[0], tc[1])
	var exists bool
	if err := p.pool.QueryRow(ctx, q, owner, key).Scan(&exists); err != nil {
		return false, fmt.Errorf("has key: %w", err)
	}
	return exists, nil
}

// InsertBatch writes all records in one transaction. A unique-constraint
// violation on any row aborts the whole batch.
func (p *Postgres) InsertBatch(ctx context.Context, recs []record.Record) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	for _, rec := range recs {
		switch r := rec.(type) {
		case record.Payment:
			_, err = tx.Exec(ctx, `
				INSERT INTO payments (
					owner_id, tx_id, confirmed, wallet_address, status, type,
					payment_gateway, final_amount, final_currency,
					settlement_amount, settlement_currency, processing_fee,
					price, comment, payment_id, created_at, trading_account,
					balance_after, tier_fee, sheet_category
				) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`,
				r.OwnerID, r.TxID, r.Confirmed, r.WalletAddress, r.Status, r.Type,
				r.Gateway, r.FinalAmount, r.FinalCurrency,
				r.SettlementAmount, r.SettlementCurrency, r.ProcessingFee,
				r.Price, r.Comment, r.PaymentID, toTimestamptz(r.Created), r.TradingAccount,
				r.BalanceAfter, r.TierFee, r.SheetCategory)
		case record.Rebate:
			_, err = tx.Exec(ctx, `
				INSERT INTO rebates (owner_id, transaction_id, amount, rebate_time)
				VALUES ($1,$2,$3,$4)`,
				r.OwnerID, r.TransactionID, r.Amount, toTimestamptz(r.RebateTime))
		case record.CRMWithdrawal:
			_, err = tx.Exec(ctx, `
				INSERT INTO crm_withdrawals (owner_id, request_id, review_time, trading_account, amount)
				VALUES ($1,$2,$3,$4,$5)`,
				r.OwnerID, r.RequestID, toTimestamptz(r.ReviewTime), r.TradingAccount, r.Amount)
		case record.CRMDeposit:
			_, err = tx.Exec(ctx, `
				INSERT INTO crm_deposits (owner_id, request_id, request_time, trading_account, amount, payment_method, client_id, name)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
				r.OwnerID, r.RequestID, toTimestamptz(r.RequestTime), r.TradingAccount, r.Amount, r.PaymentMethod, r.ClientID, r.Name)
		case record.Account:
			_, err = tx.Exec(ctx, `
				INSERT INTO accounts (owner_id, login, name, account_group, is_welcome_bonus)
				VALUES ($1,$2,$3,$4,$5)`,
				r.OwnerID, r.Login, r.Name, r.Group, r.IsWelcomeBonus)
		default:
			err = fmt.Errorf("unsupported record type %T", rec)
		}
		if err != nil {
			return fmt.Errorf("insert %s: %w", rec.RecordType(), err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ReplaceAccounts swaps the owner's account snapshot in one transaction.
func (p *Postgres) ReplaceAccounts(ctx context.Context, owner uuid.UUID, recs []record.Record) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	if _, err := tx.Exec(ctx, "DELETE FROM accounts WHERE owner_id = $1", owner); err != nil {
		return fmt.Errorf("clear accounts: %w", err)
	}
	for _, rec := range recs {
		r, ok := rec.(record.Account)
		if !ok {
			return fmt.Errorf("replace accounts: unexpected record type %T", rec)
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO accounts (owner_id, login, name, account_group, is_welcome_bonus)
			VALUES ($1,$2,$3,$4,$5)`,
			r.OwnerID, r.Login, r.Name, r.Group, r.IsWelcomeBonus)
		if err != nil {
			return fmt.Errorf("insert account: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Payments returns the owner's payments, optionally restricted to one sheet
// category and a created-at window. Records without a created-at timestamp
// are excluded whenever a window is set.
func (p *Postgres) Payments(ctx context.Context, owner uuid.UUID, category string, start, end *time.Time) ([]record.Payment, error) {
	q := `
		SELECT owner_id, tx_id, confirmed, wallet_address, status, type,
		       payment_gateway, final_amount, final_currency,
		       settlement_amount, settlement_currency, processing_fee,
		       price, comment, payment_id, created_at, trading_account,
		       balance_after, tier_fee, sheet_category
		FROM payments WHERE owner_id = $1`
	args := []any{owner}
	if category != "" {
		args = append(args, category)
		q += fmt.Sprintf(" AND sheet_category = $%d", len(args))
	}
	if start != nil {
		args = append(args, *start)
		q += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if end != nil {
		args = append(args, *end)
		q += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}
	q += " ORDER BY id"

	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	var out []record.Payment
	for rows.Next() {
		var r record.Payment
		var created pgtype.Timestamptz
		err := rows.Scan(&r.OwnerID, &r.TxID, &r.Confirmed, &r.WalletAddress, &r.Status, &r.Type,
			&r.Gateway, &r.FinalAmount, &r.FinalCurrency,
			&r.SettlementAmount, &r.SettlementCurrency, &r.ProcessingFee,
			&r.Price, &r.Comment, &r.PaymentID, &created, &r.TradingAccount,
			&r.BalanceAfter, &r.TierFee, &r.SheetCategory)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		r.Created = fromTimestamptz(created)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) Rebates(ctx context.Context, owner uuid.UUID, start, end *time.Time) ([]record.Rebate, error) {
	q := `SELECT owner_id, transaction_id, amount, rebate_time FROM rebates WHERE owner_id = $1`
	args := []any{owner}
	if start != nil {
		args = append(args, *start)
		q += fmt.Sprintf(" AND rebate_time >= $%d", len(args))
	}
	if end != nil {
		args = append(args, *end)
		q += fmt.Sprintf(" AND rebate_time <= $%d", len(args))
	}
	q += " ORDER BY id"

	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query rebates: %w", err)
	}
	defer rows.Close()

	var out []record.Rebate
	for rows.Next() {
		var r record.Rebate
		var at pgtype.Timestamptz
		if err := rows.Scan(&r.OwnerID, &r.TransactionID, &r.Amount, &at); err != nil {
			return nil, fmt.Errorf("scan rebate: %w", err)
		}
		r.RebateTime = fromTimestamptz(at)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) CRMWithdrawals(ctx context.Context, owner uuid.UUID, start, end *time.Time) ([]record.CRMWithdrawal, error) {
	q := `SELECT owner_id, request_id, review_time, trading_account, amount FROM crm_withdrawals WHERE owner_id = $1`
	args := []any{owner}
	if start != nil {
		args = append(args, *start)
		q += fmt.Sprintf(" AND review_time >= $%d", len(args))
	}
	if end != nil {
		args = append(args, *end)
		q += fmt.Sprintf(" AND review_time <= $%d", len(args))
	}
	q += " ORDER BY id"

	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query crm withdrawals: %w", err)
	}
	defer rows.Close()

	var out []record.CRMWithdrawal
	for rows.Next() {
		var r record.CRMWithdrawal
		var at pgtype.Timestamptz
		if err := rows.Scan(&r.OwnerID, &r.RequestID, &at, &r.TradingAccount, &r.Amount); err != nil {
			return nil, fmt.Errorf("scan crm withdrawal: %w", err)
		}
		r.ReviewTime = fromTimestamptz(at)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) CRMDeposits(ctx context.Context, owner uuid.UUID, start, end *time.Time) ([]record.CRMDeposit, error) {
	q := `SELECT owner_id, request_id, request_time, trading_account, amount, payment_method, client_id, name
		FROM crm_deposits WHERE owner_id = $1`
	args := []any{owner}
	if start != nil {
		args = append(args, *start)
		q += fmt.Sprintf(" AND request_time >= $%d", len(args))
	}
	if end != nil {
		args = append(args, *end)
		q += fmt.Sprintf(" AND request_time <= $%d", len(args))
	}
	q += " ORDER BY id"

	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query crm deposits: %w", err)
	}
	defer rows.Close()

	var out []record.CRMDeposit
	for rows.Next() {
		var r record.CRMDeposit
		var at pgtype.Timestamptz
		if err := rows.Scan(&r.OwnerID, &r.RequestID, &at, &r.TradingAccount, &r.Amount, &r.PaymentMethod, &r.ClientID, &r.Name); err != nil {
			return nil, fmt.Errorf("scan crm deposit: %w", err)
		}
		r.RequestTime = fromTimestamptz(at)
		out = append(out, r)
	}
	return out, rows.Err()
}

// WelcomeBonusLogins returns the logins of the owner's welcome-bonus
// accounts from the current snapshot.
func (p *Postgres) WelcomeBonusLogins(ctx context.Context, owner uuid.UUID) ([]string, error) {
	rows, err := p.pool.Query(ctx,
		"SELECT login FROM accounts WHERE owner_id = $1 AND is_welcome_bonus ORDER BY id", owner)
	if err != nil {
		return nil, fmt.Errorf("query welcome bonus logins: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var login string
		if err := rows.Scan(&login); err != nil {
			return nil, fmt.Errorf("scan login: %w", err)
		}
		out = append(out, login)
	}
	return out, rows.Err()
}

func toTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{Valid: false}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func fromTimestamptz(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}
