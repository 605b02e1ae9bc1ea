package ingest

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/brokerops/backoffice/internal/decode"
	"github.com/brokerops/backoffice/internal/record"
	"github.com/brokerops/backoffice/internal/schema"
)

// ContextCheckInterval is how often the row loop checks for cancellation.
var ContextCheckInterval = 100

// Result summarizes one ingestion run.
type Result struct {
	Added     int `json:"added"`
	Skipped   int `json:"skipped"`
	TotalRows int `json:"total_rows"`
}

// Run validates and stages every row of table for the given owner, then
// persists the batch atomically. Rows with a duplicate or empty identity key,
// or rejected by the descriptor's skip rule, are counted as skipped. Snapshot
// types replace the owner's existing records instead of appending.
func Run(ctx context.Context, store Store, owner uuid.UUID, desc Descriptor, table *decode.Table) (Result, error) {
	if desc.Preprocess != nil {
		desc.Preprocess(table)
	}

	res := Result{TotalRows: len(table.Rows)}
	if len(table.Rows) == 0 {
		return res, decode.ErrEmptyFile
	}

	cols, missing := schema.Resolve(table.Header, desc.Fields)
	if len(missing) > 0 {
		return res, &MissingColumnsError{Fields: missing}
	}

	log := slog.Default().With("record_type", desc.Type, "owner_id", owner)

	seen := make(map[string]struct{}, len(table.Rows))
	staged := make([]record.Record, 0, len(table.Rows))

	for i, row := range table.Rows {
		if i%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return res, err
			}
		}

		v := RowView{row: row, cols: cols}
		key := v.Get(desc.KeyField)
		if key == "" {
			res.Skipped++
			continue
		}

		if desc.Skip != nil {
			if reason, skip := desc.Skip(v); skip {
				log.Debug("row skipped", "key", key, "reason", reason)
				res.Skipped++
				continue
			}
		}

		if !desc.Snapshot {
			if _, dup := seen[key]; dup {
				res.Skipped++
				continue
			}
			seen[key] = struct{}{}

			exists, err := store.HasKey(ctx, owner, desc.Type, key)
			if err != nil {
				log.Warn("existence check failed, skipping row", "key", key, "error", err)
				res.Skipped++
				continue
			}
			if exists {
				res.Skipped++
				continue
			}
		}

		rec, err := desc.Build(owner, v)
		if err != nil {
			log.Warn("row rejected", "key", key, "error", err)
			res.Skipped++
			continue
		}
		staged = append(staged, rec)
	}

	if desc.Snapshot {
		if err := store.ReplaceAccounts(ctx, owner, staged); err != nil {
			return res, &PersistenceError{Op: "replace accounts", Err: err}
		}
	} else if len(staged) > 0 {
		if err := store.InsertBatch(ctx, staged); err != nil {
			return res, &PersistenceError{Op: "insert batch", Err: err}
		}
	}

	res.Added = len(staged)
	log.Info("ingestion complete", "total_rows", res.TotalRows, "added", res.Added, "skipped", res.Skipped)
	return res, nil
}
