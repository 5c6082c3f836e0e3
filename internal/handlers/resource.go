package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/cbr-records/apiserver/internal/services"
	"github.com/cbr-records/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
)

// RouteOptions tunes the per-entity visibility split of the generic
// resource routes.
type RouteOptions struct {
	// PublicCreate leaves POST / unauthenticated (testimonial submission).
	PublicCreate bool

	// PublicGet leaves GET /{id} unauthenticated (blog post and
	// downloadable item detail pages).
	PublicGet bool
}

// ResourceHandler provides HTTP handlers for one resource collection.
type ResourceHandler struct {
	service *services.ResourceService

	// name appears in user-facing messages ("blog post not found").
	name string
}

// NewResourceHandler constructs a handler for the provided service.
func NewResourceHandler(service *services.ResourceService, name string) *ResourceHandler {
	return &ResourceHandler{service: service, name: name}
}

// ResourceRouter registers the CRUD routes for one collection. Moderated
// collections additionally get /all and /{id}/approve.
func ResourceRouter(
	r chi.Router,
	service *services.ResourceService,
	name string,
	authMiddleware func(http.Handler) http.Handler,
	opts RouteOptions,
) {
	handler := NewResourceHandler(service, name)

	r.Get("/", handler.List)
	if opts.PublicCreate {
		r.Post("/", handler.Create)
	} else {
		r.With(authMiddleware).Post("/", handler.Create)
	}
	if service.Schema().Moderated {
		r.With(authMiddleware).Get("/all", handler.ListAll)
	}
	r.Route("/{resourceID}", func(r chi.Router) {
		if opts.PublicGet {
			r.Get("/", handler.Get)
		} else {
			r.With(authMiddleware).Get("/", handler.Get)
		}
		r.With(authMiddleware).Put("/", handler.Update)
		r.With(authMiddleware).Delete("/", handler.Delete)
		if service.Schema().Moderated {
			r.With(authMiddleware).Put("/approve", handler.Approve)
		}
	})
}

// List returns the collection newest-first; moderated collections only
// expose approved entries here.
func (h *ResourceHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context(), true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list %ss", h.name))
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// ListAll returns the collection without the moderation filter.
func (h *ResourceHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context(), false)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list %ss", h.name))
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ResourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseResourceID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("%s not found", h.name))
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to fetch %s", h.name))
		return
	}

	writeJSON(w, http.StatusOK, item)
}

func (h *ResourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := decodeBody(r, &payload); err != nil || payload == nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	created, err := h.service.Create(r.Context(), payload)
	if err != nil {
		h.writeServiceError(w, err, fmt.Sprintf("failed to create %s", h.name))
		return
	}

	writeJSON(w, http.StatusCreated, ItemResponse{
		Message: fmt.Sprintf("%s created", h.name),
		Item:    created,
	})
}

func (h *ResourceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseResourceID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var payload map[string]any
	if err := decodeBody(r, &payload); err != nil || payload == nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	updated, err := h.service.Update(r.Context(), id, payload)
	if err != nil {
		h.writeServiceError(w, err, fmt.Sprintf("failed to update %s", h.name))
		return
	}

	writeJSON(w, http.StatusOK, ItemResponse{
		Message: fmt.Sprintf("%s updated", h.name),
		Item:    updated,
	})
}

// Approve flips the moderation flag; approving twice is a no-op success.
func (h *ResourceHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := parseResourceID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	approved, err := h.service.Approve(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("%s not found", h.name))
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to approve %s", h.name))
		return
	}

	writeJSON(w, http.StatusOK, ItemResponse{
		Message: fmt.Sprintf("%s approved", h.name),
		Item:    approved,
	})
}

func (h *ResourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseResourceID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("%s not found", h.name))
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to delete %s", h.name))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ResourceHandler) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	var validationErr *services.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Message)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, fmt.Sprintf("%s not found", h.name))
	case errors.Is(err, store.ErrDuplicate):
		writeError(w, http.StatusConflict, fmt.Sprintf("%s already exists", h.name))
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func parseResourceID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "resourceID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}
