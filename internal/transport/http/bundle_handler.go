package http

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"snapquiz-service/internal/app"
	"snapquiz-service/internal/storage"
)

// BundleHandler exposes bundle upload and remote fetch.
type BundleHandler struct {
	bundles *app.BundleService
}

func NewBundleHandler(bundles *app.BundleService) *BundleHandler {
	return &BundleHandler{bundles: bundles}
}

type bundleResponse struct {
	QuizID string `json:"quizId"`
	Frames int    `json:"frames"`
}

// Upload accepts a multipart zip bundle and registers it for play.
func (h *BundleHandler) Upload(w http.ResponseWriter, r *http.Request) {
	f, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file required", http.StatusBadRequest)
		return
	}
	defer f.Close()

	set, err := h.bundles.Load(r.Context(), f)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, bundleResponse{QuizID: set.ID, Frames: len(set.Frames)})
}

type fetchRequest struct {
	URL string `json:"url"`
}

// Fetch downloads a remote bundle archive server-side and registers it.
func (h *BundleHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	var req fetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		http.Error(w, "url required", http.StatusBadRequest)
		return
	}
	set, err := h.bundles.Fetch(r.Context(), req.URL)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, bundleResponse{QuizID: set.ID, Frames: len(set.Frames)})
}

// MountAssets serves bundle images out of the blob store.
func MountAssets(r chi.Router, bs storage.BlobStore) {
	// GET /assets/* -> returns the blob at whatever follows /assets/
	r.Get("/*", func(w http.ResponseWriter, req *http.Request) {
		key := chi.URLParam(req, "*")
		key = strings.TrimPrefix(key, "/")
		rc, err := bs.Get(key)
		if err != nil {
			http.Error(w, "not found: "+err.Error(), http.StatusNotFound)
			return
		}
		defer rc.Close()
		ctype := mime.TypeByExtension(path.Ext(key))
		if ctype == "" {
			ctype = "application/octet-stream"
		}
		w.Header().Set("Content-Type", ctype)
		_, _ = io.Copy(w, rc)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
