// internal/domain/narrative/tracker.go

package narrative

import (
	"context"
	"errors"
)

// Common errors returned by the tracker.
var (
	// ErrNotFound is returned when a narrative id or name is unknown.
	ErrNotFound = errors.New("narrative not found")

	// ErrEmptyName is returned when an occurrence carries no narrative name.
	ErrEmptyName = errors.New("narrative name is empty")

	// ErrOutOfOrder is returned when an occurrence's timestamp falls before
	// the narrative's recorded history and outside the skew tolerance. The
	// occurrence is dropped; existing state is untouched.
	ErrOutOfOrder = errors.New("occurrence timestamp out of order")
)

// Tracker defines the interface for narrative evolution tracking.
type Tracker interface {
	// TrackOccurrence applies one pre-tagged content occurrence and returns
	// the narrative's full state after the update.
	TrackOccurrence(ctx context.Context, occ Occurrence) (*Evolution, error)

	// GetEvolution returns a narrative's current state by id.
	GetEvolution(ctx context.Context, id string) (*Evolution, error)

	// GetEvolutionByName returns a narrative's current state by its name.
	GetEvolutionByName(ctx context.Context, name string) (*Evolution, error)

	// GetActiveNarratives returns narratives with recent activity matching
	// the filter, sorted by growth rate then total volume, descending.
	GetActiveNarratives(ctx context.Context, filter Filter) ([]Evolution, error)

	// GetEmergingNarratives returns fast-growing early-stage narratives,
	// sorted by growth rate descending.
	GetEmergingNarratives(ctx context.Context, limit int) ([]Evolution, error)

	// GetMutations returns the recorded mutation events for a narrative.
	GetMutations(ctx context.Context, id string) ([]Mutation, error)

	// GetCrossPlatformAnalysis returns the platform spread record for a
	// narrative.
	GetCrossPlatformAnalysis(ctx context.Context, id string) (*CrossPlatformSpread, error)

	// GetTimeline returns the narrative's snapshots within the trailing
	// window of the given number of hours.
	GetTimeline(ctx context.Context, id string, hours float64) ([]Snapshot, error)

	// CompareNarratives computes the similarity breakdown between two
	// narratives' latest snapshots.
	CompareNarratives(ctx context.Context, firstID, secondID string) (*ComparisonResult, error)

	// GetStats returns aggregate counts across all tracked narratives.
	GetStats(ctx context.Context) (*StatsSummary, error)
}
