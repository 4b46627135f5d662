// Package audit persiste eventos de auditoría.
//
// Fire-and-forget: Record nunca propaga su propio fallo al caller — un sink
// caído no puede tirar un login ni una emisión de credencial. El detalle queda
// en el log de la aplicación.
package audit

import (
	"context"
	"net/http"
	"time"

	"github.com/dropDatabas3/didjohn/internal/observability/logger"
	"github.com/dropDatabas3/didjohn/internal/store/core"
)

// Entry es el contexto opcional de un evento.
type Entry struct {
	Metadata      map[string]any
	GSYDexAddress string
	IPAddress     string
	UserAgent     string
	Success       bool
}

// OK arma una Entry exitosa con metadata. El mapa se copia: el del caller
// nunca queda compartido entre registros.
func OK(meta map[string]any) Entry {
	return Entry{Metadata: cloneMeta(meta, 0), Success: true}
}

// Failure arma una Entry fallida con la razón adjunta, sin tocar el mapa
// del caller.
func Failure(meta map[string]any, reason string) Entry {
	out := cloneMeta(meta, 1)
	out["error"] = reason
	return Entry{Metadata: out, Success: false}
}

func cloneMeta(meta map[string]any, extra int) map[string]any {
	out := make(map[string]any, len(meta)+extra)
	for k, v := range meta {
		out[k] = v
	}
	return out
}

// WithRequest adjunta IP y User-Agent del request.
func (e Entry) WithRequest(r *http.Request) Entry {
	if r == nil {
		return e
	}
	e.IPAddress = r.RemoteAddr
	e.UserAgent = r.UserAgent()
	return e
}

// WithAddress adjunta la dirección enlazada.
func (e Entry) WithAddress(addr string) Entry {
	e.GSYDexAddress = addr
	return e
}

type Service struct {
	store core.Repository
}

func NewService(store core.Repository) *Service {
	return &Service{store: store}
}

// Record persiste el evento. No devuelve error.
func (s *Service) Record(ctx context.Context, action core.AuditAction, did string, e Entry) {
	if s == nil || s.store == nil {
		return
	}
	err := s.store.InsertAuditLog(ctx, &core.AuditLog{
		Action:        action,
		DID:           did,
		GSYDexAddress: e.GSYDexAddress,
		Metadata:      e.Metadata,
		IPAddress:     e.IPAddress,
		UserAgent:     e.UserAgent,
		Success:       e.Success,
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		logger.From(ctx).Warn("audit record failed",
			logger.AuditAction(string(action)), logger.DID(did), logger.Err(err))
	}
}

// ListByDID expone el historial para la superficie de operador.
func (s *Service) ListByDID(ctx context.Context, did string) ([]core.AuditLog, error) {
	return s.store.ListAuditLogsByDID(ctx, did)
}
