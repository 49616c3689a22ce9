package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kirosamy12/otrade-backend/internal/domain/enums"
	"github.com/kirosamy12/otrade-backend/internal/services/access"
	authsvc "github.com/kirosamy12/otrade-backend/internal/services/auth"
	contentsvc "github.com/kirosamy12/otrade-backend/internal/services/content"
	userssvc "github.com/kirosamy12/otrade-backend/internal/services/users"
	"github.com/kirosamy12/otrade-backend/internal/transport/http/dto"
	httperrors "github.com/kirosamy12/otrade-backend/internal/transport/http/errors"
)

// ContentHandler serves the viewer-facing catalog. Requests may be
// anonymous; authenticated viewers get their entitlements applied and
// administrators see everything unlocked.
type ContentHandler struct {
	content *contentsvc.Service
	users   *userssvc.Service
}

func NewContentHandler(content *contentsvc.Service, users *userssvc.Service) *ContentHandler {
	return &ContentHandler{content: content, users: users}
}

func (h *ContentHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.content == nil {
		writeInternal(w, "CONTENT_SERVICE_UNAVAILABLE", "content service is unavailable")
		return
	}

	category, ok := categoryFromPath(r)
	if !ok {
		writeNotFound(w, "NOT_FOUND", "unknown content category")
		return
	}

	viewer, err := h.viewerFor(r, category)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
		return
	}

	decisions, err := h.content.ListForViewer(r.Context(), category, viewer, localeFrom(r))
	if err != nil {
		handleContentError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.ContentListFromDecisions(decisions))
}

func (h *ContentHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	viewer, err := h.viewerFor(r, category)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
		return
	}

	decision, err := h.content.GetForViewer(r.Context(), category, contentID, viewer, localeFrom(r))
	if err != nil {
		handleContentError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.ContentItemFromDecision(decision))
}

// viewerFor builds the access viewer for the request. Anonymous requests
// and unknown subjects degrade to the free-tier viewer.
func (h *ContentHandler) viewerFor(r *http.Request, category enums.ContentCategory) (access.Viewer, error) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		return access.Viewer{}, nil
	}
	if enums.Role(identity.Role).IsAdministrative() {
		return access.Viewer{IsAdmin: true}, nil
	}
	if h.users == nil {
		return access.Viewer{}, nil
	}

	subjectID, err := uuid.Parse(identity.SubjectID)
	if err != nil {
		return access.Viewer{}, nil
	}
	return h.users.ViewerFor(r.Context(), subjectID, category)
}

func handleContentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, contentsvc.ErrNotFound):
		writeNotFound(w, "NOT_FOUND", "content item not found")
	case errors.Is(err, contentsvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "request validation failed")
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}

func categoryFromPath(r *http.Request) (enums.ContentCategory, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, "category"))
	return enums.ParseContentCategory(raw)
}

func pathUUID(r *http.Request, name string) (uuid.UUID, bool) {
	return parseBodyUUID(chi.URLParam(r, name))
}

func parseBodyUUID(raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// localeFrom picks the response language: the lang query parameter wins,
// then the first Accept-Language tag. Anything unrecognized is english.
func localeFrom(r *http.Request) enums.Language {
	if raw := strings.TrimSpace(r.URL.Query().Get("lang")); raw != "" {
		return enums.ParseLanguage(raw)
	}

	header := r.Header.Get("Accept-Language")
	if header == "" {
		return enums.LanguageEnglish
	}
	first := strings.TrimSpace(strings.Split(header, ",")[0])
	if i := strings.IndexByte(first, ';'); i >= 0 {
		first = first[:i]
	}
	if i := strings.IndexByte(first, '-'); i >= 0 {
		first = first[:i]
	}
	return enums.ParseLanguage(first)
}
