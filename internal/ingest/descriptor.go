package ingest

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/brokerops/backoffice/internal/decode"
	"github.com/brokerops/backoffice/internal/record"
	"github.com/brokerops/backoffice/internal/schema"
)

// RowView gives a descriptor positional access to one data row through the
// resolved column map.
type RowView struct {
	row  []string
	cols schema.Columns
}

// Get returns the trimmed cell for a logical field, or "" when the field is
// unresolved or the row is too short.
func (v RowView) Get(name string) string {
	return v.cols.Cell(v.row, name)
}

// Descriptor configures the generic ingestion routine for one record type:
// which columns to resolve, how to identify a row, when to skip it and how
// to build the canonical record.
type Descriptor struct {
	Type record.Type

	// Fields are resolved against the header once per file. Required
	// fields that cannot be resolved fail the file with
	// MissingColumnsError before row processing.
	Fields []schema.FieldSpec

	// KeyField names the identity-key field. Rows with an empty key are
	// always skipped.
	KeyField string

	// Snapshot imports replace the owner's full record set instead of
	// appending, and perform no dedup check.
	Snapshot bool

	// Preprocess runs on the decoded table before column resolution.
	Preprocess func(*decode.Table)

	// Skip, when set, vetoes individual rows. It returns the reason used
	// for logging.
	Skip func(v RowView) (reason string, skip bool)

	// Build coerces the row into a canonical record. A build error skips
	// the row, never the batch.
	Build func(owner uuid.UUID, v RowView) (record.Record, error)
}

var (
	registry   = make(map[record.Type]Descriptor)
	registryMu sync.RWMutex
)

// register adds a descriptor. Panics on duplicate registration.
func register(d Descriptor) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[d.Type]; exists {
		panic(fmt.Sprintf("descriptor already registered: %s", d.Type))
	}
	registry[d.Type] = d
}

// Lookup returns the descriptor for a record type.
func Lookup(t record.Type) (Descriptor, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	d, ok := registry[t]
	return d, ok
}

// Types returns all registered record types, sorted for stable listings.
func Types() []record.Type {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]record.Type, 0, len(registry))
	for t := range registry {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
