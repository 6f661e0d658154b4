package worker

// alertas_cron.go
// Background goroutine that runs the expiry scan on a fixed interval. The scan
// is idempotent per day, so restarts and overlapping replicas only repeat
// no-op work.

import (
	"context"
	"fmt"
	"time"

	"farmapos/internal/dto"

	"github.com/rs/zerolog/log"
)

type escanerVencimientos interface {
	EscanearVencimientos(ctx context.Context) (*dto.EscaneoResponse, error)
}

// AlertasCronConfig holds the dependencies of the scan goroutine.
type AlertasCronConfig struct {
	Escaner    escanerVencimientos
	Intervalo  time.Duration
	Dispatcher *Dispatcher // optional
	Destino    []string
}

// StartAlertasCron runs one scan right away and then one per Intervalo until
// ctx is cancelled.
func StartAlertasCron(ctx context.Context, cfg AlertasCronConfig) {
	go func() {
		ticker := time.NewTicker(cfg.Intervalo)
		defer ticker.Stop()

		log.Info().Dur("intervalo", cfg.Intervalo).Msg("alertas_cron: started")
		ejecutarEscaneo(ctx, cfg)

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("alertas_cron: shutting down")
				return
			case <-ticker.C:
				ejecutarEscaneo(ctx, cfg)
			}
		}
	}()
}

func ejecutarEscaneo(ctx context.Context, cfg AlertasCronConfig) {
	resp, err := cfg.Escaner.EscanearVencimientos(ctx)
	if err != nil {
		log.Error().Err(err).Msg("alertas_cron: scan failed")
		return
	}
	if resp.AlertasCreadas == 0 && resp.PromocionesSugeridas == 0 {
		return
	}
	log.Info().
		Int("alertas", resp.AlertasCreadas).
		Int("promociones_sugeridas", resp.PromocionesSugeridas).
		Msg("alertas_cron: scan completed")

	if cfg.Dispatcher == nil || len(cfg.Destino) == 0 {
		return
	}
	body := fmt.Sprintf(
		"Escaneo de vencimientos del %s:\n  alertas nuevas: %d\n  promociones sugeridas pendientes de aprobación: %d\n",
		time.Now().Format("02/01/2006"), resp.AlertasCreadas, resp.PromocionesSugeridas)
	if err := cfg.Dispatcher.EnqueueEmail(ctx, EmailJobPayload{
		To:      cfg.Destino,
		Subject: "FarmaPOS: lotes próximos a vencer",
		Body:    body,
	}); err != nil {
		log.Warn().Err(err).Msg("alertas_cron: failed to enqueue digest")
	}
}
