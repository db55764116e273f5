package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/starford/notearchiver/internal/apperr"
	"github.com/starford/notearchiver/internal/archiveservice"
	"github.com/starford/notearchiver/internal/settings"
)

// Handler holds API route handlers.
type Handler struct {
	svc *archiveservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *archiveservice.Service) *Handler {
	return &Handler{svc: svc}
}

// writeArchiveError maps domain errors onto HTTP statuses.
func writeArchiveError(w http.ResponseWriter, op, path string, err error) {
	var pm *apperr.PartialMoveError
	switch {
	case errors.As(err, &pm):
		slog.Error(op+" failed", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, partialMoveResponse{
			Error:       err.Error(),
			Code:        errorCode(err),
			Warning:     archiveservice.FailureMessage(path, err),
			Source:      pm.Source,
			Destination: pm.Destination,
		})
	case errors.Is(err, apperr.ErrInvalidConfiguration):
		writeJSON(w, http.StatusBadRequest, errorFrom(err))
	case errors.Is(err, apperr.ErrSourceNotFound):
		writeJSON(w, http.StatusNotFound, errorFrom(err))
	case errors.Is(err, apperr.ErrDestinationPathConflict),
		errors.Is(err, apperr.ErrDestinationAlreadyExists),
		errors.Is(err, apperr.ErrAlreadyArchived):
		writeJSON(w, http.StatusConflict, errorFrom(err))
	default:
		slog.Error(op+" failed", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// Archive handles POST /api/archive.
//
//	@Summary		Move a note into the archive folder
//	@Tags			archive
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ArchiveRequest	true	"Note to archive"
//	@Success		200		{object}	ArchiveResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		500		{object}	partialMoveResponse
//	@Security		BearerAuth
//	@Router			/archive [post]
func (h *Handler) Archive(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req ArchiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}

	res, err := h.svc.Archive(r.Context(), req.Path)
	if err != nil {
		writeArchiveError(w, "archive", req.Path, err)
		return
	}
	created := res.Created
	if created == nil {
		created = []string{}
	}
	writeJSON(w, http.StatusOK, ArchiveResponse{
		Source:         res.Source,
		Destination:    res.Destination,
		CreatedFolders: created,
		Message:        res.Message(),
	})
}

// Preview handles GET /api/archive/preview.
//
//	@Summary		Show where a note would be archived
//	@Tags			archive
//	@Produce		json
//	@Param			path	query		string	true	"Note path"
//	@Success		200		{object}	PreviewResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/archive/preview [get]
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'path' is required"))
		return
	}
	dst, err := h.svc.Preview(r.Context(), path)
	if err != nil {
		writeArchiveError(w, "preview", path, err)
		return
	}
	writeJSON(w, http.StatusOK, PreviewResponse{Path: path, Destination: dst})
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List notes outside the archive folder
//	@Tags			notes
//	@Produce		json
//	@Param			q		query		string	false	"Filter by path or title"
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	notes, total, err := h.svc.ArchivableNotes(r.Context(), q.Get("q"), limit, offset)
	if err != nil {
		slog.Error("list notes failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes, Total: total})
}

// GetSettings handles GET /api/settings.
//
//	@Summary		Get the archive settings
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	SettingsResponse
//	@Security		BearerAuth
//	@Router			/settings [get]
func (h *Handler) GetSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Settings())
}

// UpdateSettings handles PUT /api/settings.
//
//	@Summary		Change the archive folder or grouping
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		UpdateSettingsRequest	true	"Fields to change"
//	@Success		200		{object}	SettingsResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings [put]
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req settings.Patch
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	updated, err := h.svc.UpdateSettings(r.Context(), req)
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidConfiguration) {
			writeJSON(w, http.StatusBadRequest, errorFrom(err))
			return
		}
		slog.Error("update settings failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// FolderStatus handles GET /api/settings/folder-status.
//
//	@Summary		Inspect the configured archive folder
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	FolderStatusResponse
//	@Security		BearerAuth
//	@Router			/settings/folder-status [get]
func (h *Handler) FolderStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.FolderStatus(r.Context())
	if err != nil {
		slog.Error("folder status failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, st)
}
