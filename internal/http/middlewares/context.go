// Package middlewares contiene los middlewares HTTP del servicio.
package middlewares

import (
	"context"

	"github.com/dropDatabas3/didjohn/internal/store/core"
)

type ctxKey string

const (
	// ctxIdentityKey guarda el registro de identidad autenticado
	ctxIdentityKey ctxKey = "identity"
	// ctxRequestIDKey guarda el request ID
	ctxRequestIDKey ctxKey = "request_id"
)

// WithIdentity inyecta la identidad autenticada en el contexto
func WithIdentity(ctx context.Context, u *core.User) context.Context {
	return context.WithValue(ctx, ctxIdentityKey, u)
}

// GetIdentity obtiene la identidad autenticada del contexto.
// Retorna nil si no hay identidad (guard no aplicado o token inválido).
func GetIdentity(ctx context.Context) *core.User {
	if v := ctx.Value(ctxIdentityKey); v != nil {
		if u, ok := v.(*core.User); ok {
			return u
		}
	}
	return nil
}

func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

// GetRequestID obtiene el request ID del contexto.
// Retorna cadena vacía si no hay request ID.
func GetRequestID(ctx context.Context) string {
	if v := ctx.Value(ctxRequestIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
