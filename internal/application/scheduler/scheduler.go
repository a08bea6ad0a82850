// Package scheduler runs the periodic product sync for every enabled adapter.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/themepark-booking/internal/domain/booking"
)

type Syncer interface {
	AvailableAdapters() []string
	SyncProducts(ctx context.Context, adapter string) *booking.ProductSyncResult
}

// Scheduler syncs each adapter on Interval. A failed sync is retried up to
// RetryAttempts times in total, RetryDelay apart. Adapters never retry on
// their own, so this is the only retry loop.
type Scheduler struct {
	Syncer        Syncer
	Interval      time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	Log           logrus.FieldLogger

	mu      sync.Mutex
	running map[string]bool
	wg      sync.WaitGroup
}

func (s *Scheduler) Run(ctx context.Context) error {
	t := time.NewTicker(s.Interval)
	defer t.Stop()

	// kick immediately
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return ctx.Err()
		case <-t.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	for _, name := range s.Syncer.AvailableAdapters() {
		if !s.claim(name) {
			s.log().WithField("adapter", name).Debug("Sync still running, skipping tick")
			continue
		}
		name := name
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.release(name)
			s.SyncWithRetry(ctx, name)
		}()
	}
}

func (s *Scheduler) claim(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running == nil {
		s.running = map[string]bool{}
	}
	if s.running[name] {
		return false
	}
	s.running[name] = true
	return true
}

func (s *Scheduler) release(name string) {
	s.mu.Lock()
	delete(s.running, name)
	s.mu.Unlock()
}

func (s *Scheduler) log() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}

// SyncWithRetry runs one sync for adapter, retrying failures. It returns the
// last result.
func (s *Scheduler) SyncWithRetry(ctx context.Context, adapter string) *booking.ProductSyncResult {
	attempts := s.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	var res *booking.ProductSyncResult
	for i := 1; i <= attempts; i++ {
		res = s.Syncer.SyncProducts(ctx, adapter)
		if res != nil && res.Success {
			return res
		}
		log := s.log().WithFields(logrus.Fields{"adapter": adapter, "attempt": i, "attempts": attempts})
		if res != nil {
			log = log.WithField("errors", res.Errors)
		}
		log.Warn("Product sync failed")
		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return res
		case <-time.After(s.RetryDelay):
		}
	}
	return res
}
