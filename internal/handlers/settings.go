package handlers

import (
	"net/http"

	"github.com/cbr-records/apiserver/internal/services"
	"github.com/go-chi/chi/v5"
)

// SettingsHandler serves the singleton config documents.
type SettingsHandler struct {
	service *services.SettingsService
}

func NewSettingsHandler(service *services.SettingsService) *SettingsHandler {
	return &SettingsHandler{service: service}
}

// SocialLinksRouter registers the social-links singleton routes.
func SocialLinksRouter(r chi.Router, service *services.SettingsService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewSettingsHandler(service)
	r.Get("/", handler.GetSocialLinks)
	r.With(authMiddleware).Put("/", handler.UpdateSocialLinks)
}

// StudioConfigRouter registers the studio-config singleton routes.
func StudioConfigRouter(r chi.Router, service *services.SettingsService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewSettingsHandler(service)
	r.Get("/", handler.GetStudioConfig)
	r.With(authMiddleware).Put("/", handler.UpdateStudioConfig)
}

// GetSocialLinks returns the singleton, creating it with defaults on the
// first call. It never returns not-found.
func (h *SettingsHandler) GetSocialLinks(w http.ResponseWriter, r *http.Request) {
	links, err := h.service.GetSocialLinks(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch social links")
		return
	}
	writeJSON(w, http.StatusOK, links)
}

func (h *SettingsHandler) UpdateSocialLinks(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := decodeBody(r, &payload); err != nil || payload == nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	links, err := h.service.UpdateSocialLinks(r.Context(), payload)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update social links")
		return
	}
	writeJSON(w, http.StatusOK, ItemResponse{Message: "social links updated", Item: links})
}

// GetStudioConfig returns the singleton, creating it with defaults on the
// first call.
func (h *SettingsHandler) GetStudioConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.GetStudioConfig(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch studio config")
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (h *SettingsHandler) UpdateStudioConfig(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := decodeBody(r, &payload); err != nil || payload == nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	cfg, err := h.service.UpdateStudioConfig(r.Context(), payload)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update studio config")
		return
	}
	writeJSON(w, http.StatusOK, ItemResponse{Message: "studio config updated", Item: cfg})
}
