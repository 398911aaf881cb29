// internal/joblistings/sweeper.go
package joblistings

import (
	"context"
	"time"

	"jobboard-backend/internal/common/logger"
)

// Sweeper periodically closes listings whose expiry has passed.
type Sweeper struct {
	service  *Service
	interval time.Duration
	logger   logger.Logger
}

func NewSweeper(service *Service, interval time.Duration, log logger.Logger) *Sweeper {
	return &Sweeper{
		service:  service,
		interval: interval,
		logger:   log.WithFields(map[string]interface{}{"component": "expiry-sweeper"}),
	}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("expiry sweeper started", map[string]interface{}{
		"interval": s.interval.String(),
	})

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("expiry sweeper stopped", nil)
			return
		case <-ticker.C:
			if _, err := s.service.CloseExpired(ctx); err != nil {
				s.logger.WithError(err).Warn("expiry sweep failed", nil)
			}
		}
	}
}
