package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tendant/content-ledger/pkg/ledger"
)

// RegisterContentRequest is the request body for registering content.
// PriceE8s is the price in e8s; Price is an alternative decimal ICP string.
// A UUID is generated when ID is absent; an explicit empty ID is kept.
type RegisterContentRequest struct {
	ID          *string `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	ContentHash string  `json:"content_hash"`
	PriceE8s    *uint64 `json:"price_icp,omitempty"`
	Price       string  `json:"price,omitempty"`
}

// UpdateContentStatusRequest is the request body for toggling availability
type UpdateContentStatusRequest struct {
	IsActive *bool `json:"is_active"`
}

// RegisterContent registers content on behalf of the caller
func (h *Handler) RegisterContent(w http.ResponseWriter, r *http.Request) {
	caller := IdentityFromContext(r.Context())
	if caller.IsAnonymous() {
		writeServiceError(w, r, ledger.ErrUnauthorized)
		return
	}

	var req RegisterContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	price, err := resolveAmount(req.PriceE8s, req.Price)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	id := uuid.NewString()
	if req.ID != nil {
		id = *req.ID
	}

	content, err := h.service.RegisterContent(r.Context(), ledger.RegisterContentRequest{
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
		ContentHash: req.ContentHash,
		PriceE8s:    price,
	}, caller)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, content)
}

// PublishContent uploads the "file" part of a multipart form and registers
// it. The remaining form fields mirror RegisterContentRequest.
func (h *Handler) PublishContent(w http.ResponseWriter, r *http.Request) {
	caller := IdentityFromContext(r.Context())
	if caller.IsAnonymous() {
		writeServiceError(w, r, ledger.ErrUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "expected multipart form: "+err.Error())
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "missing file part")
		return
	}
	defer file.Close()

	var priceE8s *uint64
	if v := r.FormValue("price_icp"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid_amount", "price_icp must be an e8s integer")
			return
		}
		priceE8s = &n
	}
	price, err := resolveAmount(priceE8s, r.FormValue("price"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	id := uuid.NewString()
	if values, ok := r.MultipartForm.Value["id"]; ok && len(values) > 0 {
		id = values[0]
	}

	content, err := h.service.PublishContent(r.Context(), ledger.PublishContentRequest{
		ID:          id,
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		PriceE8s:    price,
		Body:        file,
	}, caller)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, content)
}

// GetContent returns a content registration, or JSON null when it does not exist
func (h *Handler) GetContent(w http.ResponseWriter, r *http.Request) {
	content, err := h.service.GetContent(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, ledger.ErrContentNotFound) {
		render.JSON(w, r, nil)
		return
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	render.JSON(w, r, content)
}

// UpdateContentStatus activates or deactivates content. Only its creator may do so.
func (h *Handler) UpdateContentStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateContentStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.IsActive == nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "is_active is required")
		return
	}

	content, err := h.service.UpdateContentStatus(r.Context(), chi.URLParam(r, "id"), *req.IsActive, IdentityFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	render.JSON(w, r, content)
}

// GetPaymentsForContent lists the payments recorded against a content item
func (h *Handler) GetPaymentsForContent(w http.ResponseWriter, r *http.Request) {
	payments, err := h.service.GetPaymentsForContent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	render.JSON(w, r, payments)
}

// DownloadContent redirects to a direct download URL when the blob store
// issues one and streams the bytes through the server otherwise.
func (h *Handler) DownloadContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	caller := IdentityFromContext(r.Context())

	url, err := h.service.GetDownloadURL(r.Context(), id, caller)
	if err == nil {
		http.Redirect(w, r, url, http.StatusFound)
		return
	}
	if !errors.Is(err, ledger.ErrDirectAccessRequired) {
		writeServiceError(w, r, err)
		return
	}

	reader, err := h.service.DownloadContent(r.Context(), id, caller)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": id}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, reader); err != nil {
		slog.Error("Failed to stream content", "content_id", id, "error", err)
	}
}

// GetContentByCreator lists content registered by a creator
func (h *Handler) GetContentByCreator(w http.ResponseWriter, r *http.Request) {
	contents, err := h.service.GetContentByCreator(r.Context(), ledger.Identity(chi.URLParam(r, "creator")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	render.JSON(w, r, contents)
}

// GetCreatorSummary returns the creator's upload and earnings totals
func (h *Handler) GetCreatorSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.GetCreatorSummary(r.Context(), ledger.Identity(chi.URLParam(r, "creator")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	render.JSON(w, r, summary)
}
