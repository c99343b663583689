package messaging

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/saleflow/backend/internal/logger"
	"github.com/saleflow/backend/internal/models"
)

// Fetcher loads the whole message collection.
type Fetcher func(ctx context.Context) ([]models.Message, error)

// Publisher receives every successful refresh.
type Publisher interface {
	Publish(msgs []models.Message)
}

// Poller re-reads messages on a fixed interval. A tick that arrives while the
// previous refresh is still running is dropped.
type Poller struct {
	fetch     Fetcher
	interval  time.Duration
	publisher Publisher

	busy    atomic.Bool
	dropped atomic.Int64
	wg      sync.WaitGroup

	mu       sync.RWMutex
	snapshot []models.Message
	lastErr  error
}

func NewPoller(fetch Fetcher, interval time.Duration, publisher Publisher) *Poller {
	return &Poller{fetch: fetch, interval: interval, publisher: publisher}
}

// Run refreshes once immediately and then on every tick until ctx is done.
// It waits for an in-flight refresh before returning.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	defer p.wg.Wait()

	p.spawn(ctx)
	for {
		select {
		case <-ticker.C:
			p.spawn(ctx)
		case <-ctx.Done():
			logger.Info("Message poller stopping", map[string]interface{}{
				"dropped_ticks": p.dropped.Load(),
			})
			return
		}
	}
}

func (p *Poller) spawn(ctx context.Context) {
	if !p.busy.CompareAndSwap(false, true) {
		p.dropped.Add(1)
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.busy.Store(false)
		p.refresh(ctx)
	}()
}

// Refresh runs one refresh in the caller's goroutine. It returns false when
// another refresh is already in flight.
func (p *Poller) Refresh(ctx context.Context) bool {
	if !p.busy.CompareAndSwap(false, true) {
		p.dropped.Add(1)
		return false
	}
	defer p.busy.Store(false)
	p.refresh(ctx)
	return true
}

func (p *Poller) refresh(ctx context.Context) {
	msgs, err := p.fetch(ctx)
	p.mu.Lock()
	p.lastErr = err
	if err == nil {
		p.snapshot = msgs
	}
	p.mu.Unlock()

	if err != nil {
		if ctx.Err() == nil {
			logger.WithError(err, "message_poller").Warn("Message refresh failed")
		}
		return
	}
	if p.publisher != nil {
		p.publisher.Publish(msgs)
	}
}

// Snapshot returns the messages from the last successful refresh.
func (p *Poller) Snapshot() []models.Message {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot
}

func (p *Poller) LastError() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastErr
}

// Dropped counts ticks skipped because a refresh was still running.
func (p *Poller) Dropped() int64 {
	return p.dropped.Load()
}
