package cleanup

import (
	"context"
	"log/slog"
	"time"
)

// Reclaimer purges rows whose validity window has passed. The dynamo tables
// carry a TTL attribute but DynamoDB's expiry is best-effort, so the sweeper
// runs as a belt alongside it and is the only expiry mechanism against
// LocalStack.
type Reclaimer interface {
	Reclaim(ctx context.Context, now time.Time) (int, error)
}

// ReclaimerFunc adapts a function to the Reclaimer interface.
type ReclaimerFunc func(ctx context.Context, now time.Time) (int, error)

func (f ReclaimerFunc) Reclaim(ctx context.Context, now time.Time) (int, error) {
	return f(ctx, now)
}

// Sweeper periodically reclaims expired captchas and passcodes. It is owned
// by the process lifecycle: Start launches the loop and the loop exits when
// the given context is cancelled.
type Sweeper struct {
	interval   time.Duration
	reclaimers map[string]Reclaimer
}

func NewSweeper(interval time.Duration, reclaimers map[string]Reclaimer) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{interval: interval, reclaimers: reclaimers}
}

// Start runs the sweep loop in a new goroutine and returns immediately.
func (s *Sweeper) Start(ctx context.Context) {
	go s.run(ctx)
}

func (s *Sweeper) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("cleanup sweeper stopped")
			return
		case now := <-ticker.C:
			s.sweep(ctx, now)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context, now time.Time) {
	for name, r := range s.reclaimers {
		removed, err := r.Reclaim(ctx, now)
		if err != nil {
			slog.Error("cleanup sweep failed", "target", name, "err", err)
			continue
		}
		if removed > 0 {
			slog.Info("cleanup sweep", "target", name, "removed", removed)
		}
	}
}
