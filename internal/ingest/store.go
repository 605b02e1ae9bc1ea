package ingest

import (
	"context"

	"github.com/google/uuid"

	"github.com/brokerops/backoffice/internal/record"
)

// Store is the persistence surface the ingestion pipeline writes through.
// InsertBatch and ReplaceAccounts must be atomic: either every staged record
// lands or none do.
type Store interface {
	// HasKey reports whether a record of the given type with the given
	// identity key already exists for the owner.
	HasKey(ctx context.Context, owner uuid.UUID, typ record.Type, key string) (bool, error)

	// InsertBatch persists all records in a single transaction.
	InsertBatch(ctx context.Context, recs []record.Record) error

	// ReplaceAccounts atomically swaps the owner's account snapshot for recs.
	ReplaceAccounts(ctx context.Context, owner uuid.UUID, recs []record.Record) error
}
