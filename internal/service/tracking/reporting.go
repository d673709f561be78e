// internal/service/tracking/reporting.go

package tracking

import (
	"context"
	"fmt"
	"math"
	"sort"

	"narratrack/internal/domain/narrative"
)

// Comparison weights and thresholds for relating two narratives.
const (
	keywordWeight   = 0.4
	entityWeight    = 0.3
	platformWeight  = 0.2
	sentimentWeight = 0.1

	relatedThreshold   = 0.6
	emergingGrowthRate = 50.0
)

// GetActiveNarratives returns narratives seen within the active window with
// at least the requested volume, optionally filtered by status, sorted by
// growth rate then total volume, descending.
func (s *Service) GetActiveNarratives(ctx context.Context, filter narrative.Filter) ([]narrative.Evolution, error) {
	cutoff := s.now().Add(-s.config.ActiveWindow)

	var out []narrative.Evolution
	for _, ev := range s.collectEvolutions() {
		if ev.TotalVolume < filter.MinVolume {
			continue
		}
		if ev.LastSeen.Before(cutoff) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ev.Status) {
			continue
		}
		out = append(out, ev)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].GrowthRate != out[j].GrowthRate {
			return out[i].GrowthRate > out[j].GrowthRate
		}
		return out[i].TotalVolume > out[j].TotalVolume
	})

	return out, nil
}

// GetEmergingNarratives returns early-stage narratives growing faster than
// 50%/hour, sorted by growth rate descending.
func (s *Service) GetEmergingNarratives(ctx context.Context, limit int) ([]narrative.Evolution, error) {
	var out []narrative.Evolution
	for _, ev := range s.collectEvolutions() {
		if ev.Status != narrative.StatusEmerging && ev.Status != narrative.StatusGrowing {
			continue
		}
		if ev.GrowthRate <= emergingGrowthRate {
			continue
		}
		out = append(out, ev)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].GrowthRate > out[j].GrowthRate
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CompareNarratives computes keyword, entity, platform and sentiment
// similarity between two narratives' latest snapshots.
func (s *Service) CompareNarratives(ctx context.Context, firstID, secondID string) (*narrative.ComparisonResult, error) {
	first, err := s.GetEvolution(ctx, firstID)
	if err != nil {
		return nil, err
	}
	second, err := s.GetEvolution(ctx, secondID)
	if err != nil {
		return nil, err
	}

	if len(first.Snapshots) == 0 || len(second.Snapshots) == 0 {
		return nil, fmt.Errorf("comparison requires at least one snapshot per narrative: %w", narrative.ErrNotFound)
	}

	a := first.Snapshots[len(first.Snapshots)-1]
	b := second.Snapshots[len(second.Snapshots)-1]

	result := &narrative.ComparisonResult{
		FirstID:             firstID,
		SecondID:            secondID,
		KeywordOverlap:      jaccard(a.TopKeywords, b.TopKeywords),
		EntityOverlap:       jaccard(a.TopEntities, b.TopEntities),
		PlatformOverlap:     jaccard(a.Platforms, b.Platforms),
		SentimentSimilarity: math.Max(0, 1-math.Abs(a.SentimentAvg-b.SentimentAvg)),
	}

	result.OverallSimilarity = keywordWeight*result.KeywordOverlap +
		entityWeight*result.EntityOverlap +
		platformWeight*result.PlatformOverlap +
		sentimentWeight*result.SentimentSimilarity
	result.PotentiallyRelated = result.OverallSimilarity > relatedThreshold

	return result, nil
}

// GetStats returns aggregate counts across all tracked narratives.
func (s *Service) GetStats(ctx context.Context) (*narrative.StatsSummary, error) {
	stats := &narrative.StatsSummary{
		StatusCounts: make(map[narrative.Status]int),
	}

	for _, ev := range s.collectEvolutions() {
		stats.TotalNarratives++
		stats.StatusCounts[ev.Status]++
		stats.TotalMutations += len(ev.Mutations)
	}

	return stats, nil
}

// collectEvolutions copies out every narrative's state. The id list is
// snapshotted first so no map-level lock is held across the iteration; each
// record lock is taken only long enough to clone.
func (s *Service) collectEvolutions() []narrative.Evolution {
	ids := s.store.ids()

	out := make([]narrative.Evolution, 0, len(ids))
	for _, id := range ids {
		rec, ok := s.store.get(id)
		if !ok {
			continue
		}
		rec.mu.Lock()
		out = append(out, rec.ev.Clone())
		rec.mu.Unlock()
	}
	return out
}

// jaccard is intersection over union of two string sets.
func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[s] = struct{}{}
	}

	union := make(map[string]struct{}, len(a)+len(b))
	for _, s := range a {
		union[s] = struct{}{}
	}
	for _, s := range b {
		union[s] = struct{}{}
	}

	shared := 0
	for _, s := range b {
		if _, ok := set[s]; ok {
			shared++
		}
	}

	return float64(shared) / float64(len(union))
}

func containsStatus(statuses []narrative.Status, status narrative.Status) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}
