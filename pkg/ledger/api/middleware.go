package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/jwtauth"
	"github.com/tendant/content-ledger/pkg/ledger"
)

type contextKey string

const identityKey contextKey = "ledger_identity"

// WithIdentity returns a context carrying the caller identity
func WithIdentity(ctx context.Context, id ledger.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the caller identity, or ledger.Anonymous when
// the request carried none.
func IdentityFromContext(ctx context.Context) ledger.Identity {
	if id, ok := ctx.Value(identityKey).(ledger.Identity); ok && id != "" {
		return id
	}
	return ledger.Anonymous
}

// IdentityMiddleware resolves the caller from a bearer token (Authorization
// header or "jwt" cookie). The token subject becomes the identity. Requests
// without a token run as the anonymous identity; requests with a token that
// fails verification are rejected with 401. A nil verifier treats every
// request as anonymous.
func IdentityMiddleware(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	if ja == nil {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), ledger.Anonymous)))
			})
		}
	}

	verify := jwtauth.Verifier(ja)
	return func(next http.Handler) http.Handler {
		return verify(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, _, err := jwtauth.FromContext(r.Context())
			switch {
			case errors.Is(err, jwtauth.ErrNoTokenFound):
				next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), ledger.Anonymous)))
				return
			case err != nil:
				writeError(w, r, http.StatusUnauthorized, "invalid_token", err.Error())
				return
			case token == nil || token.Subject() == "":
				writeError(w, r, http.StatusUnauthorized, "invalid_token", "token has no subject")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), ledger.Identity(token.Subject()))))
		}))
	}
}
