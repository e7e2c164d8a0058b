package worker

// cron.go
// Scheduled maintenance driven by robfig/cron: resource reconciliation and a
// low-stock summary in the logs. Both tasks are plain funcs so the worker
// package does not depend on the service layer.

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// CronConfig holds the scheduled tasks. A nil task or an empty Spec is skipped.
type CronConfig struct {
	Spec string
	// Reconciliar devuelve cuántos recursos corrigió.
	Reconciliar func(ctx context.Context) (int, error)
	// BajoStock devuelve cuántos productos están bajo el umbral.
	BajoStock func(ctx context.Context) (int, error)
}

// StartCron schedules the tasks and stops the scheduler when ctx is done.
// Returns nil when nothing was scheduled.
func StartCron(ctx context.Context, cfg CronConfig) (*cron.Cron, error) {
	if cfg.Spec == "" {
		log.Info().Msg("cron: disabled")
		return nil, nil
	}
	c := cron.New()
	if _, err := c.AddFunc(cfg.Spec, func() { runTareas(ctx, cfg) }); err != nil {
		return nil, err
	}
	c.Start()
	log.Info().Str("spec", cfg.Spec).Msg("cron: started")

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		log.Info().Msg("cron: shutting down")
	}()
	return c, nil
}

func runTareas(ctx context.Context, cfg CronConfig) {
	if ctx.Err() != nil {
		return
	}
	if cfg.Reconciliar != nil {
		n, err := cfg.Reconciliar(ctx)
		switch {
		case err != nil:
			log.Error().Err(err).Msg("cron: reconciliation failed")
		case n > 0:
			log.Warn().Int("correcciones", n).Msg("cron: resource states corrected")
		default:
			log.Debug().Msg("cron: resources consistent")
		}
	}
	if cfg.BajoStock != nil {
		n, err := cfg.BajoStock(ctx)
		if err != nil {
			log.Error().Err(err).Msg("cron: low-stock query failed")
			return
		}
		if n > 0 {
			log.Warn().Int("productos", n).Msg("cron: products below stock threshold")
		}
	}
}
