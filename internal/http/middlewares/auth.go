package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	httperrors "github.com/dropDatabas3/didjohn/internal/http/errors"
	"github.com/dropDatabas3/didjohn/internal/observability/logger"
	"github.com/dropDatabas3/didjohn/internal/store/core"
)

// TokenParser valida el bearer token y devuelve el subject (DID).
type TokenParser interface {
	ParseSubject(raw string) (string, error)
}

// IdentityResolver re-resuelve la identidad en cada request. Devolver
// (nil, nil) significa que el DID ya no existe: el token queda inválido
// aunque su firma sea correcta.
type IdentityResolver interface {
	ValidateUser(ctx context.Context, did string) (*core.User, error)
}

// RequireAuth es el guard de bearer token: extrae el token, valida firma y
// expiración, y re-resuelve la identidad contra el store.
func RequireAuth(parser TokenParser, resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw := bearerToken(r)
			if raw == "" {
				httperrors.WriteError(w, httperrors.ErrTokenMissing)
				return
			}

			sub, err := parser.ParseSubject(raw)
			if err != nil {
				logger.From(ctx).Debug("token rejected", logger.Err(err))
				httperrors.WriteError(w, httperrors.ErrTokenInvalid)
				return
			}

			u, err := resolver.ValidateUser(ctx, sub)
			if err != nil {
				httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
				return
			}
			if u == nil {
				// Identidad borrada después de emitir el token.
				httperrors.WriteError(w, httperrors.ErrUnauthorized)
				return
			}

			ctx = WithIdentity(ctx, u)
			ctx = logger.ToContext(ctx, logger.From(ctx).With(logger.DID(u.DID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireDIDOwner exige que el DID autenticado coincida con el path param
// {did}. Fail-closed: sin identidad en contexto se rechaza siempre.
func RequireDIDOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := GetIdentity(r.Context())
		if u == nil {
			httperrors.WriteError(w, httperrors.ErrUnauthorized)
			return
		}
		pathDID := chi.URLParam(r, "did")
		if pathDID != "" && !strings.EqualFold(pathDID, u.DID) {
			httperrors.WriteError(w, httperrors.ErrNotResourceOwner)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
