package workers

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

type Sweeper interface {
	Sweep(idle time.Duration) int
}

// RunSessionSweeper drops idle sessions every interval until ctx ends.
func RunSessionSweeper(ctx context.Context, s Sweeper, interval, idle time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(idle); n > 0 {
				log.Info().Int("sessions", n).Msg("swept idle sessions")
			}
		}
	}
}
