package service

import (
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// runStore keeps recent schedule responses in memory for re-download and listing.
type runStore struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]dto.GenerateScheduleResponse
	now   func() time.Time
}

func newRunStore(ttl time.Duration) *runStore {
	return &runStore{
		ttl:   ttl,
		items: make(map[string]dto.GenerateScheduleResponse),
		now:   time.Now,
	}
}

// Save stores run and drops any entries that have outlived the TTL.
func (s *runStore) Save(run dto.GenerateScheduleResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.items {
		if s.expired(existing) {
			delete(s.items, id)
		}
	}
	s.items[run.RunID] = run
}

func (s *runStore) Get(id string) (dto.GenerateScheduleResponse, bool) {
	s.mu.RLock()
	run, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return dto.GenerateScheduleResponse{}, false
	}
	if s.expired(run) {
		s.Delete(id)
		return dto.GenerateScheduleResponse{}, false
	}
	return run, true
}

func (s *runStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}

// Recent lists live runs newest first, pruning expired ones on the way.
func (s *runStore) Recent(limit int) []models.ScheduleRunSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	summaries := make([]models.ScheduleRunSummary, 0, len(s.items))
	for id, run := range s.items {
		if s.expired(run) {
			delete(s.items, id)
			continue
		}
		summaries = append(summaries, models.ScheduleRunSummary{
			ID:        run.RunID,
			Source:    run.Source,
			ItemCount: len(run.ScheduleItems),
			Feasible:  run.Feasible,
			CreatedAt: run.GeneratedAt,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries
}

func (s *runStore) expired(run dto.GenerateScheduleResponse) bool {
	return s.ttl > 0 && s.now().Sub(run.GeneratedAt) > s.ttl
}
