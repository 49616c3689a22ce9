package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/kirosamy12/otrade-backend/internal/domain/enums"
	contentsvc "github.com/kirosamy12/otrade-backend/internal/services/content"
	"github.com/kirosamy12/otrade-backend/internal/transport/http/dto"
	httperrors "github.com/kirosamy12/otrade-backend/internal/transport/http/errors"
)

// AdminContentHandler is the ungated management surface for content items.
// Route-level permission middleware decides who reaches it.
type AdminContentHandler struct {
	content *contentsvc.Service
}

func NewAdminContentHandler(content *contentsvc.Service) *AdminContentHandler {
	return &AdminContentHandler{content: content}
}

func (h *AdminContentHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.content == nil {
		writeInternal(w, "CONTENT_SERVICE_UNAVAILABLE", "content service is unavailable")
		return
	}

	category, ok := categoryFromPath(r)
	if !ok {
		writeNotFound(w, "NOT_FOUND", "unknown content category")
		return
	}

	items, err := h.content.ListByCategory(r.Context(), category)
	if err != nil {
		handleContentError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.AdminContentListFromModels(items))
}

func (h *AdminContentHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.content == nil {
		writeInternal(w, "CONTENT_SERVICE_UNAVAILABLE", "content service is unavailable")
		return
	}

	contentID, ok := pathUUID(r, "id")
	if !ok {
		writeNotFound(w, "NOT_FOUND", "content item not found")
		return
	}

	item, err := h.content.FindByID(r.Context(), contentID)
	if err != nil {
		handleContentError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.AdminContentFromModel(item))
}

func (h *AdminContentHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.content == nil {
		writeInternal(w, "CONTENT_SERVICE_UNAVAILABLE", "content service is unavailable")
		return
	}

	category, ok := categoryFromPath(r)
	if !ok {
		writeNotFound(w, "NOT_FOUND", "unknown content category")
		return
	}

	var req dto.ContentUpsertRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	in, ok := contentInputFrom(category, req)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid plan id reference")
		return
	}

	item, err := h.content.Create(r.Context(), in)
	if err != nil {
		handleContentError(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, dto.AdminContentFromModel(item))
}

func (h *AdminContentHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h.content == nil {
		writeInternal(w, "CONTENT_SERVICE_UNAVAILABLE", "content service is unavailable")
		return
	}

	category, ok := categoryFromPath(r)
	if !ok {
		writeNotFound(w, "NOT_FOUND", "unknown content category")
		return
	}

	contentID, ok := pathUUID(r, "id")
	if !ok {
		writeNotFound(w, "NOT_FOUND", "content item not found")
		return
	}

	var req dto.ContentUpsertRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	in, ok := contentInputFrom(category, req)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid plan id reference")
		return
	}

	item, err := h.content.Update(r.Context(), contentID, in)
	if err != nil {
		handleContentError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.AdminContentFromModel(item))
}

func (h *AdminContentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.content == nil {
		writeInternal(w, "CONTENT_SERVICE_UNAVAILABLE", "content service is unavailable")
		return
	}

	contentID, ok := pathUUID(r, "id")
	if !ok {
		writeNotFound(w, "NOT_FOUND", "content item not found")
		return
	}

	if err := h.content.Delete(r.Context(), contentID); err != nil {
		handleContentError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, map[string]any{"ok": true})
}

func contentInputFrom(category enums.ContentCategory, req dto.ContentUpsertRequest) (contentsvc.Input, bool) {
	planIDs := make([]uuid.UUID, 0, len(req.RequiredPlanIDs))
	for _, raw := range req.RequiredPlanIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return contentsvc.Input{}, false
		}
		planIDs = append(planIDs, id)
	}

	return contentsvc.Input{
		Category:         category,
		Unrestricted:     req.Unrestricted,
		RequiredPlanKeys: req.RequiredPlanKeys,
		RequiredPlanIDs:  planIDs,
		ContentURL:       req.ContentURL,
		CoverImageURL:    req.CoverImageURL,
		Market:           req.Market,
		Level:            req.Level,
		EventAt:          req.EventAt,
		Translations:     req.Translations.ToModel(),
	}, true
}
