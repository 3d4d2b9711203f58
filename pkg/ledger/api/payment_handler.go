package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tendant/content-ledger/pkg/ledger"
)

// RecordPaymentRequest is the request body for recording a payment.
// AmountE8s is the amount in e8s; Amount is an alternative decimal ICP string.
// A UUID is generated when PaymentID is absent; an explicit empty ID is kept.
type RecordPaymentRequest struct {
	PaymentID       *string `json:"payment_id"`
	ContentID       string  `json:"content_id"`
	AmountE8s       *uint64 `json:"amount_icp,omitempty"`
	Amount          string  `json:"amount,omitempty"`
	TransactionHash string  `json:"transaction_hash"`
}

// PurchasedResponse answers whether a buyer has paid for a content item
type PurchasedResponse struct {
	Purchased bool `json:"purchased"`
}

// RecordPayment records a payment by the caller
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	// The caller is checked before the body so an anonymous request fails
	// with 401 whatever else is wrong with it.
	caller := IdentityFromContext(r.Context())
	if caller.IsAnonymous() {
		writeServiceError(w, r, ledger.ErrUnauthorized)
		return
	}

	var req RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	amount, err := resolveAmount(req.AmountE8s, req.Amount)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	paymentID := uuid.NewString()
	if req.PaymentID != nil {
		paymentID = *req.PaymentID
	}

	payment, err := h.service.RecordPayment(r.Context(), ledger.RecordPaymentRequest{
		PaymentID:       paymentID,
		ContentID:       req.ContentID,
		AmountE8s:       amount,
		TransactionHash: req.TransactionHash,
	}, caller)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, payment)
}

// GetPaymentsByBuyer lists the payments made by a buyer
func (h *Handler) GetPaymentsByBuyer(w http.ResponseWriter, r *http.Request) {
	payments, err := h.service.GetPaymentsByBuyer(r.Context(), ledger.Identity(chi.URLParam(r, "buyer")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	render.JSON(w, r, payments)
}

// HasPurchased reports whether the buyer has at least one payment for the content
func (h *Handler) HasPurchased(w http.ResponseWriter, r *http.Request) {
	purchased, err := h.service.HasPurchasedContent(r.Context(),
		ledger.Identity(chi.URLParam(r, "buyer")),
		chi.URLParam(r, "contentID"),
	)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	render.JSON(w, r, PurchasedResponse{Purchased: purchased})
}
