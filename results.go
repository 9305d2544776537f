package main

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	resultBuffer     = 256
	resultBatchSize  = 50
	resultFlushEvery = time.Second
)

// MatchStore persists finished matches
type MatchStore interface {
	RecordMatches(ctx context.Context, results []MatchResult) error
}

// ResultWriter records match results with batched background writes so the
// room loops never wait on the database.
type ResultWriter struct {
	store   MatchStore
	results chan MatchResult
	stop    chan struct{}
	wg      sync.WaitGroup
	log     *zap.Logger
	metrics *Metrics
}

// NewResultWriter creates and starts the background writer
func NewResultWriter(store MatchStore, log *zap.Logger, metrics *Metrics) *ResultWriter {
	w := &ResultWriter{
		store:   store,
		results: make(chan MatchResult, resultBuffer),
		stop:    make(chan struct{}),
		log:     log.Named("results"),
		metrics: metrics,
	}
	w.wg.Add(1)
	go w.writer()
	return w
}

// Submit enqueues a result for persistence (non-blocking)
func (w *ResultWriter) Submit(r MatchResult) {
	select {
	case w.results <- r:
	default:
		w.log.Warn("result buffer full, dropping match", zap.String("room_id", r.RoomID))
		w.metrics.ResultDropped()
	}
}

// Stop flushes anything buffered and shuts the writer down
func (w *ResultWriter) Stop() {
	close(w.stop)
	w.wg.Wait()
}

func (w *ResultWriter) writer() {
	defer w.wg.Done()

	batch := make([]MatchResult, 0, resultBatchSize)
	ticker := time.NewTicker(resultFlushEvery)
	defer ticker.Stop()

	for {
		select {
		case r := <-w.results:
			batch = append(batch, r)
			if len(batch) >= resultBatchSize {
				w.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				w.flush(batch)
				batch = batch[:0]
			}
		case <-w.stop:
		drain:
			for {
				select {
				case r := <-w.results:
					batch = append(batch, r)
					if len(batch) >= resultBatchSize {
						w.flush(batch)
						batch = batch[:0]
					}
				default:
					break drain
				}
			}
			if len(batch) > 0 {
				w.flush(batch)
			}
			return
		}
	}
}

func (w *ResultWriter) flush(batch []MatchResult) {
	if w.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.store.RecordMatches(ctx, batch); err != nil {
		w.log.Error("record matches failed", zap.Int("count", len(batch)), zap.Error(err))
		return
	}
	w.log.Debug("recorded matches", zap.Int("count", len(batch)))
}
