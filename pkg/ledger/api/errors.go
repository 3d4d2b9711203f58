package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/tendant/content-ledger/pkg/ledger"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed request
type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: ErrorDetail{
		Code:      code,
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	}})
}

// writeServiceError maps ledger errors onto HTTP status codes. Unauthorized
// becomes 401 for anonymous callers and 403 for everyone else.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ledger.ErrUnauthorized):
		if IdentityFromContext(r.Context()).IsAnonymous() {
			writeError(w, r, http.StatusUnauthorized, "unauthenticated", err.Error())
			return
		}
		writeError(w, r, http.StatusForbidden, "unauthorized", err.Error())
	case errors.Is(err, ledger.ErrContentNotFound):
		writeError(w, r, http.StatusNotFound, "content_not_found", err.Error())
	case errors.Is(err, ledger.ErrBlobNotFound):
		writeError(w, r, http.StatusNotFound, "object_not_found", err.Error())
	case errors.Is(err, ledger.ErrInactiveContent):
		writeError(w, r, http.StatusConflict, "inactive_content", err.Error())
	case errors.Is(err, ledger.ErrInsufficientPayment):
		writeError(w, r, http.StatusPaymentRequired, "insufficient_payment", err.Error())
	case errors.Is(err, ledger.ErrDuplicateID):
		writeError(w, r, http.StatusConflict, "duplicate_id", err.Error())
	case errors.Is(err, ledger.ErrRevenueOverflow):
		writeError(w, r, http.StatusUnprocessableEntity, "revenue_overflow", err.Error())
	case errors.Is(err, ledger.ErrInvalidAmount):
		writeError(w, r, http.StatusBadRequest, "invalid_amount", err.Error())
	case errors.Is(err, ledger.ErrNoBlobStore):
		writeError(w, r, http.StatusNotImplemented, "storage_disabled", err.Error())
	default:
		slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
