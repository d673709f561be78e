// internal/service/tracking/store.go

package tracking

import (
	"sync"
	"time"

	"narratrack/internal/domain/narrative"
)

// record is the unit of serialization: one narrative's evolution, its spread
// tracker, and the open-bucket aggregation state. All mutation and copy-out
// happens under the record's own mutex; the store-level lock only guards the
// map itself.
type record struct {
	mu     sync.Mutex
	ev     *narrative.Evolution
	spread *narrative.CrossPlatformSpread

	// Open-bucket state, reset whenever a new snapshot is opened.
	keywords *frequencyRanker
	entities *frequencyRanker
	sources  map[string]struct{}

	// Index of the snapshot for which the last mutation was recorded, so a
	// filling bucket is evaluated at most once. -1 means none yet.
	lastMutationIdx int
}

// evolutionStore is the concurrency-safe map of live narrative records owned
// by the service instance.
type evolutionStore struct {
	mu      sync.RWMutex
	records map[string]*record
}

func newEvolutionStore() *evolutionStore {
	return &evolutionStore{records: make(map[string]*record)}
}

// get returns the record for id, if present.
func (s *evolutionStore) get(id string) (*record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	return rec, ok
}

// getOrCreate returns the record for id, creating an empty tracking record
// on first use. The second return reports whether this call created it.
func (s *evolutionStore) getOrCreate(id, name string, firstSeen time.Time) (*record, bool) {
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	if ok {
		return rec, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[id]; ok {
		return rec, false
	}

	rec = &record{
		ev: &narrative.Evolution{
			ID:                 id,
			Name:               name,
			FirstSeen:          firstSeen,
			LastSeen:           firstSeen,
			Status:             narrative.StatusEmerging,
			PropagationPattern: narrative.PatternOrganic,
		},
		spread: &narrative.CrossPlatformSpread{
			NarrativeID:  id,
			TimeToSpread: make(map[string]float64),
		},
		keywords:        newFrequencyRanker(maxKeywords),
		entities:        newFrequencyRanker(maxEntities),
		sources:         make(map[string]struct{}),
		lastMutationIdx: -1,
	}
	s.records[id] = rec
	return rec, true
}

// ids snapshots the current id list so report generation can iterate without
// holding the map lock.
func (s *evolutionStore) ids() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.records))
	for id := range s.records {
		out = append(out, id)
	}
	return out
}

func (s *evolutionStore) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}
