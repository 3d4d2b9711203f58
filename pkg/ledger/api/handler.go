package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"github.com/tendant/content-ledger/pkg/ledger"
)

// defaultMaxUploadBytes bounds the in-memory part of a multipart publish
const defaultMaxUploadBytes = 32 << 20

// Handler serves the ledger over HTTP
type Handler struct {
	service        ledger.Service
	auth           *jwtauth.JWTAuth
	maxUploadBytes int64
}

// NewHandler creates a new ledger handler. auth verifies bearer tokens; a
// nil auth serves every request as the anonymous identity.
func NewHandler(service ledger.Service, auth *jwtauth.JWTAuth) *Handler {
	return &Handler{
		service:        service,
		auth:           auth,
		maxUploadBytes: defaultMaxUploadBytes,
	}
}

// Routes returns the ledger routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(IdentityMiddleware(h.auth))

	r.Route("/contents", func(r chi.Router) {
		r.Post("/", h.RegisterContent)
		r.Post("/publish", h.PublishContent)
		r.Get("/{id}", h.GetContent)
		r.Put("/{id}/status", h.UpdateContentStatus)
		r.Get("/{id}/payments", h.GetPaymentsForContent)
		r.Get("/{id}/download", h.DownloadContent)
	})

	r.Get("/creators/{creator}/contents", h.GetContentByCreator)
	r.Get("/creators/{creator}/summary", h.GetCreatorSummary)

	r.Post("/payments", h.RecordPayment)
	r.Get("/buyers/{buyer}/payments", h.GetPaymentsByBuyer)
	r.Get("/buyers/{buyer}/purchases/{contentID}", h.HasPurchased)

	r.Get("/stats", h.GetStats)
	r.Get("/whoami", h.WhoAmI)

	return r
}

// GetStats returns the number of registered contents and recorded payments
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStats(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	render.JSON(w, r, stats)
}

// WhoAmIResponse reports the identity resolved for the request
type WhoAmIResponse struct {
	Identity  ledger.Identity `json:"identity"`
	Anonymous bool            `json:"anonymous"`
}

// WhoAmI echoes the caller identity, the way the front end shows the
// logged-in principal.
func (h *Handler) WhoAmI(w http.ResponseWriter, r *http.Request) {
	id := IdentityFromContext(r.Context())
	render.JSON(w, r, WhoAmIResponse{Identity: id, Anonymous: id.IsAnonymous()})
}

// resolveAmount picks the e8s amount from either the integer e8s field or
// the decimal ICP string. Supplying both is rejected.
func resolveAmount(e8s *uint64, icp string) (uint64, error) {
	switch {
	case e8s != nil && icp != "":
		return 0, fmt.Errorf("%w: give the amount in e8s or as an ICP string, not both", ledger.ErrInvalidAmount)
	case icp != "":
		return ledger.ParseICP(icp)
	case e8s != nil:
		return *e8s, nil
	default:
		return 0, nil
	}
}
