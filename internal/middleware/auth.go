package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/dukerupert/roastbox/internal/auth"
	"github.com/dukerupert/roastbox/internal/domain"
	"github.com/rs/zerolog"
)

// TokenVerifier resolves a bearer token to the caller identity.
type TokenVerifier interface {
	Verify(token string) (*domain.Identity, error)
}

// RequireBearer authenticates the request with an Authorization: Bearer
// token and stores the identity in the context. Requests without a valid
// token get 401.
//
// The request logger is extended with user_id so every later log line of the
// request carries it.
func RequireBearer(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				respondUnauthorized(w, r, "Authentication required")
				return
			}

			identity, err := verifier.Verify(token)
			if err != nil {
				zerolog.Ctx(r.Context()).Debug().Err(err).Msg("bearer token rejected")
				respondUnauthorized(w, r, "Invalid or expired token")
				return
			}

			ctx := domain.NewContextWithIdentity(r.Context(), identity)
			logger := zerolog.Ctx(ctx).With().Str("user_id", identity.UserID.String()).Logger()
			ctx = logger.WithContext(ctx)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireInternalSecret admits only requests carrying the shared internal
// secret header. An empty secret rejects everything.
func RequireInternalSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(domain.InternalWebhookSecretHeader)
			if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				respondUnauthorized(w, r, "Authentication required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
