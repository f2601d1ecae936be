package consultation

import (
	"context"
	"time"

	"teleconsult-backend/pkg/logger"

	"go.uber.org/zap"
)

// Reaper closes consultations that have been open longer than the
// configured maximum age. It reuses Close, so reaped consultations go
// through the same archival and teardown path as a manual close.
type Reaper struct {
	service  *Service
	maxAge   time.Duration
	interval time.Duration
}

func NewReaper(service *Service, maxAge time.Duration) *Reaper {
	return &Reaper{
		service:  service,
		maxAge:   maxAge,
		interval: time.Hour,
	}
}

// Run sweeps until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	logger.Log.Info("consultation reaper started", zap.Duration("max_age", r.maxAge))
	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("consultation reaper stopped")
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reaper) sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-r.maxAge)
	ids, err := r.service.consultations.ListStaleOpen(ctx, cutoff)
	if err != nil {
		logger.Log.Warn("stale consultation sweep failed", zap.Error(err))
		return
	}
	for _, id := range ids {
		if err := r.service.Close(ctx, id); err != nil {
			logger.Log.Warn("reaping consultation failed",
				zap.String("consultation_id", id.String()), zap.Error(err))
			continue
		}
		logger.Log.Info("reaped stale consultation", zap.String("consultation_id", id.String()))
	}
}
