package web

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/brokerops/backoffice/internal/decode"
	"github.com/brokerops/backoffice/internal/ingest"
	"github.com/brokerops/backoffice/internal/logging"
	"github.com/brokerops/backoffice/internal/record"
	"github.com/brokerops/backoffice/internal/report"
)

// handleImport ingests one uploaded file for the owner.
//
// POST /api/owners/{ownerID}/imports/{recordType}
// multipart form: "file" (required), "format" (optional; inferred from the
// file name when absent).
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, err)
		return
	}

	typ, ok := record.ParseType(chi.URLParam(r, "recordType"))
	if !ok {
		s.respondError(w, r, http.StatusBadRequest,
			fmt.Errorf("unknown record type %q", chi.URLParam(r, "recordType")))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxFileSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, fmt.Errorf("read form file: %w", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, fmt.Errorf("read upload: %w", err))
		return
	}

	format := decode.FormatForFile(header.Filename)
	if v := r.FormValue("format"); v != "" {
		format, ok = decode.ParseFormat(v)
		if !ok {
			s.respondError(w, r, http.StatusBadRequest, fmt.Errorf("unknown format %q", v))
			return
		}
	}

	log := logging.WithFields(r.Context(), "owner_id", owner, "record_type", typ, "file", header.Filename)
	log.Info("import started", "bytes", len(data))

	res, err := s.ingester.IngestBytes(r.Context(), owner, typ, data, format)
	if err != nil {
		s.respondError(w, r, importStatus(err), err)
		return
	}

	log.Info("import finished", "added", res.Added, "skipped", res.Skipped)
	writeJSON(w, http.StatusOK, res)
}

// handleReport renders the aggregated summary for the owner.
//
// GET /api/owners/{ownerID}/report?start=2006-01-02&end=2006-01-02
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, err)
		return
	}
	start, end, err := dateWindow(r)
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, err)
		return
	}

	summary, err := s.aggregator.Summarize(r.Context(), owner, start, end)
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		*report.Summary
		Charts *report.ChartData `json:"charts,omitempty"`
	}{summary, report.Charts(summary)})
}

// handleReconciliation compares CRM deposits with gateway payments.
//
// GET /api/owners/{ownerID}/reconciliation?start=...&end=...&csv=true
func (s *Server) handleReconciliation(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, err)
		return
	}
	start, end, err := dateWindow(r)
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, err)
		return
	}

	rep, err := s.matcher.Compare(r.Context(), owner, start, end)
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, err)
		return
	}

	if r.URL.Query().Get("csv") == "true" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="reconciliation.csv"`)
		cw := csv.NewWriter(w)
		_ = cw.Write(rep.Headers)
		for _, row := range rep.Rows {
			_ = cw.Write(row)
		}
		cw.Flush()
		return
	}

	writeJSON(w, http.StatusOK, rep)
}

func ownerID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "ownerID"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid owner id: %w", err)
	}
	return id, nil
}

// dateWindow parses the optional start/end query parameters. A window needs
// both bounds; the end bound is pushed to the last instant of its day so the
// window is inclusive.
func dateWindow(r *http.Request) (start, end *time.Time, err error) {
	if v := r.URL.Query().Get("start"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid start date %q", v)
		}
		start = &t
	}
	if v := r.URL.Query().Get("end"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid end date %q", v)
		}
		t = t.Add(24*time.Hour - time.Nanosecond)
		end = &t
	}
	if (start == nil) != (end == nil) {
		return nil, nil, errors.New("start and end dates must be given together")
	}
	return start, end, nil
}

// importStatus maps ingestion failures to HTTP status codes.
func importStatus(err error) int {
	var missing *ingest.MissingColumnsError
	var persist *ingest.PersistenceError
	switch {
	case errors.As(err, &missing):
		return http.StatusUnprocessableEntity
	case errors.Is(err, decode.ErrEmptyFile), errors.Is(err, decode.ErrUnreadableFile),
		errors.Is(err, ingest.ErrUnknownType):
		return http.StatusBadRequest
	case errors.Is(err, ingest.ErrIngestionTimeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &persist):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, err error) {
	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
	)
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
