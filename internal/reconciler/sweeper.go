package reconciler

import (
	"context"
	"sync"
	"time"

	"github.com/patronlabs/patron-gateway/pkg/logger"
	"github.com/patronlabs/patron-gateway/pkg/prom"
)

// Sweeper periodically rebuilds statistics for every settled campaign. It
// backstops the event consumer: a lost settlement event only delays the
// repair until the next sweep.
type Sweeper struct {
	campaigns CampaignStore
	rebuilder *StatsRebuilder
	interval  time.Duration
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func NewSweeper(campaigns CampaignStore, rebuilder *StatsRebuilder, interval time.Duration) *Sweeper {
	ctx, cancel := context.WithCancel(context.Background())
	return &Sweeper{
		campaigns: campaigns,
		rebuilder: rebuilder,
		interval:  interval,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (s *Sweeper) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.Sweep(s.ctx)
			case <-s.ctx.Done():
				return
			}
		}
	}()
	logger.Info("reconciliation sweeper started", "interval", s.interval)
}

// Sweep runs one full pass. Individual campaign failures are logged and
// skipped; the rest of the pass continues.
func (s *Sweeper) Sweep(ctx context.Context) {
	start := time.Now()

	campaigns, err := s.campaigns.ListSettled(ctx)
	if err != nil {
		logger.Error("sweep failed to list campaigns", "error", err)
		prom.IncReconcileRun("sweep_failure")
		return
	}

	var repaired, failed int
	for _, c := range campaigns {
		select {
		case <-ctx.Done():
			logger.Warn("sweep interrupted", "processed", repaired)
			return
		default:
		}

		if err := s.rebuilder.Rebuild(ctx, c); err != nil {
			logger.Error("sweep failed for campaign", "campaign_id", c.ID, "error", err)
			failed++
			continue
		}
		repaired++
	}

	prom.IncReconcileRun("sweep")
	logger.Info("reconciliation sweep complete",
		"campaigns", len(campaigns),
		"failed", failed,
		"duration", time.Since(start))
}

func (s *Sweeper) Stop() {
	s.cancel()
	s.wg.Wait()
}
