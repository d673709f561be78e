// internal/service/tracking/service.go

package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"narratrack/internal/domain/narrative"
)

// ServiceConfig contains configuration for the tracking service.
type ServiceConfig struct {
	// EventsTopic is the NATS subject prefix for published events.
	EventsTopic string

	// SkewTolerance bounds how far behind the open bucket's start an
	// occurrence may arrive and still be merged instead of rejected.
	SkewTolerance time.Duration

	// ActiveWindow bounds how recently a narrative must have been seen to
	// count as active in reports.
	ActiveWindow time.Duration
}

// Archiver persists narrative state write-behind. Failures are logged and
// never fail the ingest call; the in-memory store stays the source of truth.
type Archiver interface {
	SaveEvolution(ctx context.Context, ev narrative.Evolution, spread narrative.CrossPlatformSpread) error
}

// Service implements the narrative.Tracker interface. All per-narrative
// state transitions are serialized on the narrative's record lock; callers
// updating different narratives do not contend.
type Service struct {
	registry   *Registry
	store      *evolutionStore
	aggregator snapshotAggregator
	config     ServiceConfig
	eventBus   *nats.Conn
	archiver   Archiver

	mu               sync.RWMutex
	mutationHandlers []func(narrative.Mutation) error

	now func() time.Time
}

// NewService creates a new tracking service. Both archiver and eventBus may
// be nil, in which case archival and event publishing are skipped.
func NewService(archiver Archiver, eventBus *nats.Conn, config ServiceConfig) *Service {
	if config.EventsTopic == "" {
		config.EventsTopic = "narrative"
	}
	if config.SkewTolerance <= 0 {
		config.SkewTolerance = 5 * time.Minute
	}
	if config.ActiveWindow <= 0 {
		config.ActiveWindow = 72 * time.Hour
	}

	return &Service{
		registry:   NewRegistry(),
		store:      newEvolutionStore(),
		aggregator: snapshotAggregator{skewTolerance: config.SkewTolerance},
		config:     config,
		eventBus:   eventBus,
		archiver:   archiver,
		now:        time.Now,
	}
}

// RegisterMutationHandler registers a callback invoked whenever a mutation
// is recorded. Handlers run outside the record lock.
func (s *Service) RegisterMutationHandler(handler func(narrative.Mutation) error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mutationHandlers = append(s.mutationHandlers, handler)
}

// TrackOccurrence applies one occurrence and returns the narrative's state
// after the update.
func (s *Service) TrackOccurrence(ctx context.Context, occ narrative.Occurrence) (*narrative.Evolution, error) {
	occ.NarrativeName = strings.TrimSpace(occ.NarrativeName)
	if occ.NarrativeName == "" {
		return nil, narrative.ErrEmptyName
	}

	if occ.Timestamp.IsZero() {
		occ.Timestamp = s.now()
	}
	occ.Sentiment = clamp(occ.Sentiment, -1, 1, occ.NarrativeName, "sentiment")
	occ.CoordinationScore = clamp(occ.CoordinationScore, 0, 1, occ.NarrativeName, "coordination_score")

	id, created := s.registry.ResolveOrCreate(occ.NarrativeName)
	rec, _ := s.store.getOrCreate(id, occ.NarrativeName, occ.Timestamp)

	rec.mu.Lock()

	prevStatus := rec.ev.Status

	if _, err := s.aggregator.apply(rec, occ); err != nil {
		rec.mu.Unlock()
		log.Warn().
			Str("narrative", occ.NarrativeName).
			Time("timestamp", occ.Timestamp).
			Err(err).
			Msg("Occurrence rejected")
		return nil, err
	}

	recordSpread(rec.spread, occ.Platform, occ.Timestamp)
	recomputeMetrics(rec.ev, len(rec.spread.PlatformSequence))
	mut := detectMutation(rec, s.now())

	evCopy := rec.ev.Clone()
	spreadCopy := rec.spread.Clone()

	rec.mu.Unlock()

	// Side effects run outside the record lock so slow consumers cannot
	// stall ingestion of the same narrative.
	if created {
		s.publishEvent("detected", evolutionEvent(evCopy))
	}
	s.publishEvent("updated", evolutionEvent(evCopy))
	if evCopy.Status != prevStatus && !created {
		s.publishEvent("status", statusEvent{
			ID:       evCopy.ID,
			Name:     evCopy.Name,
			Previous: prevStatus,
			Current:  evCopy.Status,
		})
	}
	if mut != nil {
		s.publishEvent("mutation", *mut)
		s.callMutationHandlers(*mut)
	}

	if s.archiver != nil {
		if err := s.archiver.SaveEvolution(ctx, evCopy, spreadCopy); err != nil {
			log.Error().Str("narrative_id", evCopy.ID).Err(err).Msg("Failed to archive narrative state")
		}
	}

	return &evCopy, nil
}

// GetEvolution returns a narrative's current state by id.
func (s *Service) GetEvolution(ctx context.Context, id string) (*narrative.Evolution, error) {
	rec, ok := s.store.get(id)
	if !ok {
		return nil, fmt.Errorf("id %q: %w", id, narrative.ErrNotFound)
	}

	rec.mu.Lock()
	evCopy := rec.ev.Clone()
	rec.mu.Unlock()

	return &evCopy, nil
}

// GetEvolutionByName returns a narrative's current state by its name.
func (s *Service) GetEvolutionByName(ctx context.Context, name string) (*narrative.Evolution, error) {
	id, ok := s.registry.IDOf(strings.TrimSpace(name))
	if !ok {
		return nil, fmt.Errorf("name %q: %w", name, narrative.ErrNotFound)
	}
	return s.GetEvolution(ctx, id)
}

// GetMutations returns the recorded mutation events for a narrative.
func (s *Service) GetMutations(ctx context.Context, id string) ([]narrative.Mutation, error) {
	ev, err := s.GetEvolution(ctx, id)
	if err != nil {
		return nil, err
	}
	return ev.Mutations, nil
}

// GetCrossPlatformAnalysis returns the platform spread record for a
// narrative.
func (s *Service) GetCrossPlatformAnalysis(ctx context.Context, id string) (*narrative.CrossPlatformSpread, error) {
	rec, ok := s.store.get(id)
	if !ok {
		return nil, fmt.Errorf("id %q: %w", id, narrative.ErrNotFound)
	}

	rec.mu.Lock()
	spreadCopy := rec.spread.Clone()
	rec.mu.Unlock()

	return &spreadCopy, nil
}

// GetTimeline returns the narrative's snapshots within the trailing window
// of the given number of hours, oldest first.
func (s *Service) GetTimeline(ctx context.Context, id string, hours float64) ([]narrative.Snapshot, error) {
	ev, err := s.GetEvolution(ctx, id)
	if err != nil {
		return nil, err
	}

	if hours <= 0 {
		return ev.Snapshots, nil
	}

	cutoff := s.now().Add(-time.Duration(hours * float64(time.Hour)))
	out := make([]narrative.Snapshot, 0, len(ev.Snapshots))
	for _, snap := range ev.Snapshots {
		if !snap.Timestamp.Before(cutoff) {
			out = append(out, snap)
		}
	}
	return out, nil
}

// callMutationHandlers calls all registered mutation handlers.
func (s *Service) callMutationHandlers(mut narrative.Mutation) {
	s.mu.RLock()
	handlers := make([]func(narrative.Mutation) error, len(s.mutationHandlers))
	copy(handlers, s.mutationHandlers)
	s.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(mut); err != nil {
			log.Error().Str("narrative_id", mut.NarrativeID).Err(err).Msg("Mutation handler failed")
		}
	}
}

// publishEvent publishes an event on the bus; failures are logged only.
func (s *Service) publishEvent(suffix string, payload interface{}) {
	if s.eventBus == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Str("event", suffix).Err(err).Msg("Failed to marshal event")
		return
	}

	subject := fmt.Sprintf("%s.%s", s.config.EventsTopic, suffix)
	if err := s.eventBus.Publish(subject, data); err != nil {
		log.Error().Str("subject", subject).Err(err).Msg("Failed to publish event")
	}
}

// statusEvent is the payload published on lifecycle transitions.
type statusEvent struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Previous narrative.Status `json:"previous"`
	Current  narrative.Status `json:"current"`
}

// updateEvent is the summary payload published on every applied occurrence.
type updateEvent struct {
	ID                 string                       `json:"id"`
	Name               string                       `json:"name"`
	Status             narrative.Status             `json:"status"`
	PropagationPattern narrative.PropagationPattern `json:"propagation_pattern"`
	TotalVolume        int                          `json:"total_volume"`
	GrowthRate         float64                      `json:"growth_rate"`
	Velocity           float64                      `json:"velocity"`
	LastSeen           time.Time                    `json:"last_seen"`
}

func evolutionEvent(ev narrative.Evolution) updateEvent {
	return updateEvent{
		ID:                 ev.ID,
		Name:               ev.Name,
		Status:             ev.Status,
		PropagationPattern: ev.PropagationPattern,
		TotalVolume:        ev.TotalVolume,
		GrowthRate:         ev.GrowthRate,
		Velocity:           ev.Velocity,
		LastSeen:           ev.LastSeen,
	}
}

// clamp bounds v to [lo, hi], logging when the supplied value was out of
// range.
func clamp(v, lo, hi float64, name, field string) float64 {
	if v < lo {
		log.Warn().Str("narrative", name).Str("field", field).Float64("value", v).Msg("Value below bounds, clamping")
		return lo
	}
	if v > hi {
		log.Warn().Str("narrative", name).Str("field", field).Float64("value", v).Msg("Value above bounds, clamping")
		return hi
	}
	return v
}
