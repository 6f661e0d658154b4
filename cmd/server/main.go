package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"farmapos/internal/config"
	"farmapos/internal/infra"
	"farmapos/internal/router"
	"farmapos/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: pretty in development, JSON in production
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.Env != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	// Redis backs the price cache, the rate limiter and the job queues. The
	// sale engine does not need it, so a missing Redis only degrades those.
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = infra.NewRedis(cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, continuing without cache and async jobs")
			rdb = nil
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app := router.New(cfg, db, rdb)

	destino := destinatarios(cfg.AlertasEmailDestino)
	mailer := infra.NewMailer(cfg)
	if !mailer.Habilitado() {
		destino = nil
	}

	// Worker handlers are wired here (composition root) so the pool shares the
	// service instances used by the HTTP layer.
	if rdb != nil {
		ventaWorker := worker.NewVentaWorker(app.Precios, app.Alertas, app.Dispatcher, destino)
		emailWorker := worker.NewEmailWorker(mailer)
		worker.StartWorkerPool(ctx, rdb, cfg.WorkerPoolSize, worker.Handlers{
			worker.JobVentaRegistrada: func(ctx context.Context, p json.RawMessage) error { return ventaWorker.Process(ctx, p) },
			worker.JobEmail:           func(ctx context.Context, p json.RawMessage) error { return emailWorker.Process(ctx, p) },
		})
	}
	worker.StartAlertasCron(ctx, worker.AlertasCronConfig{
		Escaner:    app.Alertas,
		Intervalo:  cfg.AlertasIntervalo(),
		Dispatcher: app.Dispatcher,
		Destino:    destino,
	})
	go app.Limitador.IniciarPurga(ctx, 5*time.Minute)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      app.Engine,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Msgf("FarmaPOS backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}

func destinatarios(csv string) []string {
	var out []string
	for _, s := range strings.Split(csv, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
