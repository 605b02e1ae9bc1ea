package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/brokerops/backoffice/internal/decode"
	"github.com/brokerops/backoffice/internal/record"
)

// Service ties the decoder, the descriptor registry and a store together and
// bounds every run with a timeout.
type Service struct {
	store   Store
	timeout time.Duration
}

func NewService(store Store, timeout time.Duration) *Service {
	return &Service{store: store, timeout: timeout}
}

// IngestBytes decodes data as the given format and runs it through the
// pipeline for the owner. A run that exceeds the service timeout returns
// ErrIngestionTimeout.
func (s *Service) IngestBytes(ctx context.Context, owner uuid.UUID, typ record.Type, data []byte, format decode.Format) (Result, error) {
	desc, ok := Lookup(typ)
	if !ok {
		return Result{}, ErrUnknownType
	}

	table, err := decode.Bytes(data, format)
	if err != nil {
		return Result{}, err
	}
	return s.run(ctx, owner, desc, table)
}

// IngestFile is IngestBytes for a file on disk; the format is inferred from
// the file extension.
func (s *Service) IngestFile(ctx context.Context, owner uuid.UUID, typ record.Type, path string) (Result, error) {
	desc, ok := Lookup(typ)
	if !ok {
		return Result{}, ErrUnknownType
	}

	table, err := decode.File(path, decode.FormatForFile(path))
	if err != nil {
		return Result{}, err
	}
	return s.run(ctx, owner, desc, table)
}

func (s *Service) run(ctx context.Context, owner uuid.UUID, desc Descriptor, table *decode.Table) (Result, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	res, err := Run(ctx, s.store, owner, desc, table)
	if errors.Is(err, context.DeadlineExceeded) {
		return res, ErrIngestionTimeout
	}
	return res, err
}
