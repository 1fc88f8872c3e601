package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/akbaridria/obrix/internal/domain"
)

// ArchiveHandler lists and streams the swap windows archived to object
// storage.
type ArchiveHandler struct {
	blobs  domain.BlobReader
	prefix func(poolID string) string
	root   string
	logger *slog.Logger
}

// NewArchiveHandler creates an ArchiveHandler. prefix maps a pool id to the
// key prefix of its archives; root is the prefix every archive key shares.
func NewArchiveHandler(blobs domain.BlobReader, root string, prefix func(poolID string) string, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{blobs: blobs, prefix: prefix, root: root, logger: logger}
}

// ListArchives returns the archived windows of one pool.
// GET /api/pools/{id}/archives
func (h *ArchiveHandler) ListArchives(w http.ResponseWriter, r *http.Request) {
	poolID, err := poolParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	infos, err := h.blobs.List(r.Context(), h.prefix(poolID))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list archives failed",
			slog.String("pool_id", poolID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list archives")
		return
	}
	if infos == nil {
		infos = []domain.BlobInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"archives": infos})
}

// GetArchive streams one archived window as CSV.
// GET /api/archives/{path...}
func (h *ArchiveHandler) GetArchive(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("path")
	if key == "" || strings.Contains(key, "..") || !strings.HasPrefix(key, h.root+"/") {
		writeError(w, http.StatusBadRequest, "invalid archive path")
		return
	}

	body, err := h.blobs.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "archive not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get archive failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get archive")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "text/csv")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.WarnContext(r.Context(), "handler: stream archive interrupted",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}
