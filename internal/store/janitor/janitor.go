// Package janitor corre barridos periódicos de limpieza del store.
// Postgres no tiene índices TTL: los challenges vencidos hay que borrarlos
// desde el proceso.
package janitor

import (
	"context"
	"time"

	"github.com/dropDatabas3/didjohn/internal/observability/logger"
)

// Sweep borra registros vencidos a un corte dado y devuelve cuántos eliminó.
type Sweep func(ctx context.Context, now time.Time) (int64, error)

// Run ejecuta sweep cada intervalo hasta que el contexto se cancele.
// Un barrido fallido se loguea y se reintenta en el próximo tick; siempre
// devuelve nil para no tumbar el grupo de goroutines del servicio.
func Run(ctx context.Context, every time.Duration, sweep Sweep) error {
	if every <= 0 {
		every = time.Minute
	}
	t := time.NewTicker(every)
	defer t.Stop()

	log := logger.L().With(logger.Component("janitor"))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			n, err := sweep(ctx, time.Now().UTC())
			if err != nil {
				log.Warn("challenge sweep failed", logger.Err(err))
				continue
			}
			if n > 0 {
				log.Debug("expired challenges removed", logger.Count(int(n)))
			}
		}
	}
}
