package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memMatchStore struct {
	mu      sync.Mutex
	batches [][]MatchResult
	fail    bool
}

func (s *memMatchStore) RecordMatches(_ context.Context, results []MatchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("disk full")
	}
	s.batches = append(s.batches, append([]MatchResult(nil), results...))
	return nil
}

func (s *memMatchStore) rooms() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, b := range s.batches {
		for _, r := range b {
			ids = append(ids, r.RoomID)
		}
	}
	return ids
}

func TestResultWriterFlushesOnStop(t *testing.T) {
	store := &memMatchStore{}
	w := NewResultWriter(store, zap.NewNop(), nil)

	w.Submit(MatchResult{RoomID: "a", Outcome: OutcomeWin})
	w.Submit(MatchResult{RoomID: "b", Outcome: OutcomeForfeit})
	w.Stop()

	assert.Equal(t, []string{"a", "b"}, store.rooms())
}

func TestResultWriterFlushesPeriodically(t *testing.T) {
	store := &memMatchStore{}
	w := NewResultWriter(store, zap.NewNop(), nil)
	defer w.Stop()

	w.Submit(MatchResult{RoomID: "a", Outcome: OutcomeDraw})
	require.Eventually(t, func() bool {
		return len(store.rooms()) == 1
	}, 3*resultFlushEvery, 20*time.Millisecond)
}

func TestResultWriterBatchesFullBuffers(t *testing.T) {
	store := &memMatchStore{}
	w := NewResultWriter(store, zap.NewNop(), nil)

	for i := 0; i < resultBatchSize+1; i++ {
		w.Submit(MatchResult{RoomID: GenerateID(), Outcome: OutcomeWin})
	}
	w.Stop()

	assert.Len(t, store.rooms(), resultBatchSize+1)
	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Len(t, store.batches[0], resultBatchSize)
}

func TestResultWriterSurvivesStoreErrors(t *testing.T) {
	store := &memMatchStore{fail: true}
	w := NewResultWriter(store, zap.NewNop(), NewMetrics())
	w.Submit(MatchResult{RoomID: "a", Outcome: OutcomeWin})
	w.Stop()
	assert.Empty(t, store.rooms())
}
