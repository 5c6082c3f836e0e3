package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/cbr-records/apiserver/internal/services"
	"github.com/cbr-records/apiserver/internal/storage"
	"github.com/cbr-records/apiserver/internal/store"
	"github.com/cbr-records/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	maxUploadMemory = 32 << 20
	maxUploadBytes  = 256 << 20
	formFieldFile   = "file"
)

var allowedUploadExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".zip":  true,
	".rar":  true,
	".pdf":  true,
	".doc":  true,
	".docx": true,
}

// FileHandler attaches uploaded files to downloadable items and streams
// them back from object storage.
type FileHandler struct {
	service *services.ResourceService
	storage *storage.Storage
}

func NewFileHandler(service *services.ResourceService, objects *storage.Storage) *FileHandler {
	return &FileHandler{service: service, storage: objects}
}

// FileRouter registers the upload/download routes under an item subtree.
func FileRouter(r chi.Router, handler *FileHandler, authMiddleware func(http.Handler) http.Handler) {
	r.With(authMiddleware).Post("/{resourceID}/file", handler.Upload)
	r.Get("/{resourceID}/file", handler.Download)
}

// Upload stores a multipart file in the bucket and points the item's
// download URL at the streaming route.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	id, err := parseResourceID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile(formFieldFile)
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if !allowedUploadExtensions[strings.ToLower(filepath.Ext(filename))] {
		writeError(w, http.StatusBadRequest, "file type not allowed")
		return
	}
	if header.Size > maxUploadBytes {
		writeError(w, http.StatusBadRequest, "uploaded file too large")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := fmt.Sprintf("downloads/%d/%s-%s", id, uuid.New().String(), filename)
	if err := h.storage.Put(r.Context(), key, file, header.Size, contentType); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store file")
		return
	}

	item, err := h.service.AttachFile(r.Context(), id, key, filename, contentType)
	if err != nil {
		_ = h.storage.Delete(r.Context(), key)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "downloadable item not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to attach file")
		return
	}

	writeJSON(w, http.StatusCreated, ItemResponse{Message: "file uploaded", Item: item})
}

// Download streams the item's stored object.
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := parseResourceID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "downloadable item not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch downloadable item")
		return
	}

	key, _ := item.Fields[types.FieldFileKey].(string)
	if key == "" {
		writeError(w, http.StatusNotFound, "no file uploaded for this item")
		return
	}

	reader, err := h.storage.Get(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to open file")
		return
	}
	defer reader.Close()

	if contentType, ok := item.Fields[types.FieldFileContentType].(string); ok && contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	if filename, ok := item.Fields[types.FieldFileName].(string); ok && filename != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
	_, _ = io.Copy(w, reader)
}
