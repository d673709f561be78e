// internal/adapter/storage/narrative_store.go

package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"narratrack/internal/domain/narrative"
)

// NarrativeStore is the write-behind Postgres archive of narrative state.
// The tracking service remains the source of truth; this table exists so
// narrative history survives the process and retention can be handled
// operationally.
type NarrativeStore struct {
	db *pgxpool.Pool
}

// NewNarrativeStore creates a new narrative store
func NewNarrativeStore(db *pgxpool.Pool) *NarrativeStore {
	return &NarrativeStore{
		db: db,
	}
}

// SaveEvolution upserts a narrative's full tracked state.
func (s *NarrativeStore) SaveEvolution(ctx context.Context, ev narrative.Evolution, spread narrative.CrossPlatformSpread) error {
	query := `
		INSERT INTO narratives (
			id, name, status, propagation_pattern,
			first_seen, last_seen,
			total_volume, peak_volume, peak_time,
			growth_rate, velocity,
			snapshots, mutations, spread, related_narratives
		) VALUES (
			$1, $2, $3, $4,
			$5, $6,
			$7, $8, $9,
			$10, $11,
			$12, $13, $14, $15
		)
		ON CONFLICT (id) DO UPDATE
		SET
			status = $3,
			propagation_pattern = $4,
			last_seen = $6,
			total_volume = $7,
			peak_volume = $8,
			peak_time = $9,
			growth_rate = $10,
			velocity = $11,
			snapshots = $12,
			mutations = $13,
			spread = $14,
			related_narratives = $15
	`

	snapshotsJSON, err := json.Marshal(ev.Snapshots)
	if err != nil {
		return fmt.Errorf("error marshaling snapshots: %w", err)
	}

	mutationsJSON, err := json.Marshal(ev.Mutations)
	if err != nil {
		return fmt.Errorf("error marshaling mutations: %w", err)
	}

	spreadJSON, err := json.Marshal(spread)
	if err != nil {
		return fmt.Errorf("error marshaling spread: %w", err)
	}

	_, err = s.db.Exec(
		ctx,
		query,
		ev.ID,
		ev.Name,
		string(ev.Status),
		string(ev.PropagationPattern),
		ev.FirstSeen,
		ev.LastSeen,
		ev.TotalVolume,
		ev.PeakVolume,
		ev.PeakTime,
		ev.GrowthRate,
		ev.Velocity,
		snapshotsJSON,
		mutationsJSON,
		spreadJSON,
		ev.RelatedNarratives,
	)

	if err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}

	return nil
}
