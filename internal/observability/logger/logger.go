package logger

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

var (
	once     sync.Once
	instance *zap.Logger
)

// Init inicializa el singleton. Idempotente: solo la primera llamada tiene
// efecto. Llamar al inicio de main, antes de cualquier log.
func Init(cfg Config) {
	once.Do(func() { instance = build(cfg) })
}

// L retorna el singleton; si Init no corrió todavía arma uno de desarrollo.
func L() *zap.Logger {
	if instance == nil {
		Init(Config{Env: "dev"})
	}
	return instance
}

// With retorna un logger con campos persistentes sobre el singleton.
func With(fields ...zap.Field) *zap.Logger {
	return L().With(fields...)
}

// Sync flushea buffers pendientes. Para el defer de main.
func Sync() error {
	if instance != nil {
		return instance.Sync()
	}
	return nil
}

type ctxKey struct{}

// ToContext inyecta un logger scoped en el contexto; lo usan los middlewares
// para propagar request_id y did.
func ToContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From extrae el logger del contexto, o el singleton si no hay ninguno.
// Seguro con ctx nil.
func From(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return L()
	}
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	return L()
}
