package handler

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"appforge/internal/archive"
	"appforge/internal/gateway/repository/apps"
	"appforge/internal/types"
)

func appID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ListApps returns every record, newest first.
func (h *Handler) ListApps(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.List(r.Context())
	if err != nil {
		h.logger(r).Error().Err(err).Msg("list apps")
		writeError(w, http.StatusInternalServerError, msgFetchApps)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) GetApp(w http.ResponseWriter, r *http.Request) {
	id, ok := appID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, msgInvalidID)
		return
	}
	rec, err := h.store.Get(r.Context(), id)
	if errors.Is(err, apps.ErrNotFound) {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}
	if err != nil {
		h.logger(r).Error().Err(err).Int64("app_id", id).Msg("get app")
		writeError(w, http.StatusInternalServerError, msgFetchApp)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// DeleteApp answers 204 whether or not the record existed.
func (h *Handler) DeleteApp(w http.ResponseWriter, r *http.Request) {
	id, ok := appID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, msgInvalidID)
		return
	}
	if err := h.store.Delete(r.Context(), id); err != nil {
		h.logger(r).Error().Err(err).Int64("app_id", id).Msg("delete app")
		writeError(w, http.StatusInternalServerError, msgDeleteApp)
		return
	}
	if h.mirror != nil {
		if err := h.mirror.Remove(r.Context(), id); err != nil {
			h.logger(r).Warn().Err(err).Int64("app_id", id).Msg("remove mirrored files")
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// ArchiveApp downloads a record's files as <slug>.tar.gz.
func (h *Handler) ArchiveApp(w http.ResponseWriter, r *http.Request) {
	id, ok := appID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, msgInvalidID)
		return
	}
	rec, err := h.store.Get(r.Context(), id)
	if errors.Is(err, apps.ErrNotFound) {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}
	if err != nil {
		h.logger(r).Error().Err(err).Int64("app_id", id).Msg("get app for archive")
		writeError(w, http.StatusInternalServerError, msgFetchApp)
		return
	}

	slug := types.Slug(rec.AppName)
	if slug == "" {
		slug = fmt.Sprintf("app-%d", rec.ID)
	}
	var buf bytes.Buffer
	if err := archive.WriteTarGz(&buf, slug, rec.Files, rec.CreatedAt); err != nil {
		h.logger(r).Error().Err(err).Int64("app_id", id).Msg("build archive")
		writeError(w, http.StatusInternalServerError, msgArchiveApp)
		return
	}
	w.Header().Set("Content-Type", "application/gzip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.tar.gz"`, slug))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
