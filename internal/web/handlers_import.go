package web

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/poskit/backoffice/internal/importer"
	"github.com/poskit/backoffice/internal/logging"
)

// handleImport runs one import pass over an uploaded spreadsheet and returns
// the full per-row report. Concurrency is bounded by the pass limiter; a
// second upload while a pass runs waits for a slot and eventually gets 429.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		writeError(w, r, http.StatusBadRequest, "file too large or invalid form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to read file")
		return
	}

	table, err := importer.ReadTable(data, header.Filename)
	if err != nil {
		// Unreadable input is the one whole-pass failure; everything past
		// this point is reported per row instead.
		if errors.Is(err, importer.ErrUnreadableInput) {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	if err := s.passes.Acquire(r.Context()); err != nil {
		if errors.Is(err, importer.ErrTooManyPasses) {
			w.Header().Set("Retry-After", "30")
			writeError(w, r, http.StatusTooManyRequests, err.Error())
			return
		}
		writeError(w, r, http.StatusServiceUnavailable, err.Error())
		return
	}
	defer s.passes.Release()

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Import.Timeout)
	defer cancel()

	report, err := s.engine.Run(ctx, table, header.Filename)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	if err := s.history.RecordPass(ctx, report); err != nil {
		// History is best-effort: the pass itself succeeded and the client
		// still gets the report.
		logging.FromContext(r.Context()).Warn("record import pass failed",
			"pass_id", report.PassID, "error", err)
	}

	logging.FromContext(r.Context()).Info("import pass served",
		"pass_id", report.PassID,
		"condition", string(report.Condition),
	)
	writeJSON(w, report)
}

// handleImportHistory lists recent stored passes, newest first.
func (s *Server) handleImportHistory(w http.ResponseWriter, r *http.Request) {
	if !s.history.Enabled() {
		writeError(w, r, http.StatusNotImplemented, "import history is not configured")
		return
	}

	limit := s.cfg.Audit.HistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	records, err := s.history.ListRecent(r.Context(), limit)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, records)
}

// handleImportPass returns one stored pass with its full outcome list.
func (s *Server) handleImportPass(w http.ResponseWriter, r *http.Request) {
	if !s.history.Enabled() {
		writeError(w, r, http.StatusNotImplemented, "import history is not configured")
		return
	}

	record, err := s.history.GetPass(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, r, http.StatusNotFound, "import pass not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, record)
}
