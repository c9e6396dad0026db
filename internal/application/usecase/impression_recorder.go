// internal/application/usecase/impression_recorder.go
package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	ruledom "storefront/internal/domain/upsellRule"
)

// ImpressionRecorder counts impressions in the background.
// Record never blocks: when the buffer is full the impression is dropped and logged.
type ImpressionRecorder struct {
	repo    ruledom.Repository
	metrics RuleMetrics
	log     *zap.Logger

	queue   chan string
	stopCh  chan struct{}
	wg      sync.WaitGroup
	closed  atomic.Bool
	once    sync.Once
	timeout time.Duration

	dropped atomic.Int64
}

const (
	defaultImpressionBuffer  = 1024
	defaultImpressionTimeout = 5 * time.Second
)

func NewImpressionRecorder(repo ruledom.Repository, metrics RuleMetrics, logger *zap.Logger, buffer int) *ImpressionRecorder {
	if buffer <= 0 {
		buffer = defaultImpressionBuffer
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &ImpressionRecorder{
		repo:    repo,
		metrics: metrics,
		log:     logger.Named("impression_recorder"),
		queue:   make(chan string, buffer),
		stopCh:  make(chan struct{}),
		timeout: defaultImpressionTimeout,
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// Record enqueues one impression per rule id.
func (r *ImpressionRecorder) Record(ruleIDs []string) {
	if r == nil || r.closed.Load() {
		return
	}
	for _, id := range ruleIDs {
		if id == "" {
			continue
		}
		select {
		case r.queue <- id:
		default:
			n := r.dropped.Add(1)
			r.log.Warn("impression buffer full; dropping", zap.String("ruleId", id), zap.Int64("dropped", n))
		}
	}
}

// Dropped returns how many impressions were discarded because the buffer was full.
func (r *ImpressionRecorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close stops accepting impressions and flushes what is queued.
func (r *ImpressionRecorder) Close() error {
	r.once.Do(func() {
		r.closed.Store(true)
		close(r.stopCh)
		r.wg.Wait()
	})
	return nil
}

func (r *ImpressionRecorder) run() {
	defer r.wg.Done()
	for {
		select {
		case id := <-r.queue:
			r.write(id)
		case <-r.stopCh:
			for {
				select {
				case id := <-r.queue:
					r.write(id)
				default:
					return
				}
			}
		}
	}
}

func (r *ImpressionRecorder) write(ruleID string) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.repo.IncrementStats(ctx, ruleID, ruledom.StatsDelta{Impressions: 1}); err != nil {
		r.log.Warn("impression write failed", zap.String("ruleId", ruleID), zap.Error(err))
		return
	}
	r.metrics.ImpressionRecorded(ctx, ruleID)
}
