package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/orbstracker/internal/domain"
)

// HistoryHandler serves the arbitrage sighting log and the audit trail.
type HistoryHandler struct {
	sightings domain.SightingStore
	audit     domain.AuditStore // optional; when nil, Audit returns 501
	logger    *slog.Logger
}

// NewHistoryHandler creates a HistoryHandler.
func NewHistoryHandler(sightings domain.SightingStore, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{sightings: sightings, logger: logHandler(logger, "history")}
}

// WithAuditStore enables the audit endpoint.
func (h *HistoryHandler) WithAuditStore(store domain.AuditStore) *HistoryHandler {
	h.audit = store
	return h
}

type sightingsResponse struct {
	Sightings []domain.ArbitrageSighting `json:"sightings"`
}

// Sightings returns recently seen opportunities, most recent first.
// GET /api/arbitrage/history?limit=50
func (h *HistoryHandler) Sightings(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50, 500)

	list, err := h.sightings.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list sightings failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list arbitrage history")
		return
	}
	if list == nil {
		list = []domain.ArbitrageSighting{}
	}
	writeJSON(w, http.StatusOK, sightingsResponse{Sightings: list})
}

type auditResponse struct {
	Entries []domain.AuditEntry `json:"entries"`
}

// Audit returns recent audit entries.
// GET /api/audit?limit=100
func (h *HistoryHandler) Audit(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		writeError(w, http.StatusNotImplemented, "audit log requires a database")
		return
	}

	entries, err := h.audit.List(r.Context(), parseLimit(r, 100, 1000))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list audit failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list audit entries")
		return
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, auditResponse{Entries: entries})
}

// ArchiveLister lists archived snapshots for one day and opens single
// documents. s3blob.SnapshotArchiver satisfies it.
type ArchiveLister interface {
	ListDay(ctx context.Context, day time.Time) ([]domain.BlobInfo, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// ArchiveHandler lists archived snapshot objects.
type ArchiveHandler struct {
	lister ArchiveLister // optional; when nil, List returns 501
	now    func() time.Time
	logger *slog.Logger
}

// NewArchiveHandler creates an ArchiveHandler. lister may be nil.
func NewArchiveHandler(lister ArchiveLister, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{lister: lister, now: time.Now, logger: logHandler(logger, "archive")}
}

type archiveResponse struct {
	Date    string            `json:"date"`
	Objects []domain.BlobInfo `json:"objects"`
}

// List returns the snapshot objects archived on a UTC day.
// GET /api/archive?date=2025-01-15 (today when omitted)
func (h *ArchiveHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.lister == nil {
		writeError(w, http.StatusNotImplemented, "snapshot archive is not configured")
		return
	}

	day := h.now().UTC()
	if v := r.URL.Query().Get("date"); v != "" {
		parsed, err := time.Parse(time.DateOnly, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}

	objects, err := h.lister.ListDay(r.Context(), day)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list archive failed",
			slog.String("date", day.Format(time.DateOnly)),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list archived snapshots")
		return
	}
	if objects == nil {
		objects = []domain.BlobInfo{}
	}
	writeJSON(w, http.StatusOK, archiveResponse{Date: day.Format(time.DateOnly), Objects: objects})
}

// Object streams one archived snapshot document.
// GET /api/archive/object?key=snapshots/2025/01/15/193000000_odds.json
func (h *ArchiveHandler) Object(w http.ResponseWriter, r *http.Request) {
	if h.lister == nil {
		writeError(w, http.StatusNotImplemented, "snapshot archive is not configured")
		return
	}
	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}

	body, err := h.lister.Open(r.Context(), key)
	switch {
	case errors.Is(err, domain.ErrInvalidKey):
		writeError(w, http.StatusBadRequest, "key is not an archived snapshot")
		return
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "archived snapshot not found")
		return
	case err != nil:
		h.logger.ErrorContext(r.Context(), "handler: open archived snapshot failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read archived snapshot")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "private, max-age=86400")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.WarnContext(r.Context(), "handler: stream archived snapshot interrupted",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}
