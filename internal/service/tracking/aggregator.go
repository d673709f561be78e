// internal/service/tracking/aggregator.go

package tracking

import (
	"fmt"
	"time"

	"narratrack/internal/domain/narrative"
)

const (
	// bucketWidth is the fixed snapshot bucket size.
	bucketWidth = 30 * time.Minute

	// maxKeywords and maxEntities cap a snapshot's ranked top lists.
	maxKeywords = 20
	maxEntities = 10
)

// snapshotAggregator rolls individual occurrences into the narrative's
// snapshot series. History is append-only: an occurrence either merges into
// the open bucket or opens a new one; it never rewrites a closed bucket.
type snapshotAggregator struct {
	skewTolerance time.Duration
}

// apply folds occ into rec's snapshot series. It reports whether a new
// bucket was opened. The caller holds the record lock.
func (a snapshotAggregator) apply(rec *record, occ narrative.Occurrence) (bool, error) {
	ev := rec.ev

	if len(ev.Snapshots) == 0 {
		a.openBucket(rec, occ)
		ev.FirstSeen = occ.Timestamp
		ev.LastSeen = occ.Timestamp
		ev.TotalVolume = 1
		return true, nil
	}

	if occ.Timestamp.Before(ev.FirstSeen) {
		return false, fmt.Errorf("timestamp %s precedes first seen %s: %w",
			occ.Timestamp.Format(time.RFC3339), ev.FirstSeen.Format(time.RFC3339), narrative.ErrOutOfOrder)
	}

	last := ev.Snapshots[len(ev.Snapshots)-1]

	switch {
	case !occ.Timestamp.Before(last.Timestamp.Add(bucketWidth)):
		// Past the open bucket's interval: close it and open a new one.
		a.openBucket(rec, occ)
		ev.LastSeen = occ.Timestamp
		ev.TotalVolume++
		return true, nil

	case !occ.Timestamp.Before(last.Timestamp.Add(-a.skewTolerance)):
		// Covered by the open bucket, or behind its start within the skew
		// tolerance: merge without moving the bucket.
		a.mergeIntoOpenBucket(rec, occ)
		ev.TotalVolume++
		return false, nil

	default:
		return false, fmt.Errorf("timestamp %s precedes open bucket %s beyond tolerance: %w",
			occ.Timestamp.Format(time.RFC3339), last.Timestamp.Format(time.RFC3339), narrative.ErrOutOfOrder)
	}
}

// openBucket closes the current bucket, resets the open-bucket counters and
// appends a fresh snapshot seeded from occ.
func (a snapshotAggregator) openBucket(rec *record, occ narrative.Occurrence) {
	rec.keywords = newFrequencyRanker(maxKeywords)
	rec.entities = newFrequencyRanker(maxEntities)
	rec.sources = make(map[string]struct{})

	observeAll(rec.keywords, occ.Keywords)
	observeAll(rec.entities, occ.Entities)
	if occ.SourceID != "" {
		rec.sources[occ.SourceID] = struct{}{}
	}

	rec.ev.Snapshots = append(rec.ev.Snapshots, narrative.Snapshot{
		Timestamp:         occ.Timestamp,
		Volume:            1,
		SourceCount:       len(rec.sources),
		Platforms:         []string{occ.Platform},
		SentimentAvg:      occ.Sentiment,
		CoordinationScore: occ.CoordinationScore,
		TopKeywords:       rec.keywords.Top(maxKeywords),
		TopEntities:       rec.entities.Top(maxEntities),
	})
}

// mergeIntoOpenBucket folds occ into the latest snapshot.
func (a snapshotAggregator) mergeIntoOpenBucket(rec *record, occ narrative.Occurrence) {
	snap := &rec.ev.Snapshots[len(rec.ev.Snapshots)-1]

	snap.Volume++
	n := float64(snap.Volume)
	snap.SentimentAvg = (snap.SentimentAvg*(n-1) + occ.Sentiment) / n

	// Coordination score is externally supplied; last observed wins.
	snap.CoordinationScore = occ.CoordinationScore

	if !containsString(snap.Platforms, occ.Platform) {
		snap.Platforms = append(snap.Platforms, occ.Platform)
	}

	if occ.SourceID != "" {
		rec.sources[occ.SourceID] = struct{}{}
	}
	snap.SourceCount = len(rec.sources)

	observeAll(rec.keywords, occ.Keywords)
	observeAll(rec.entities, occ.Entities)
	snap.TopKeywords = rec.keywords.Top(maxKeywords)
	snap.TopEntities = rec.entities.Top(maxEntities)
}

func observeAll(r *frequencyRanker, items []string) {
	for _, item := range items {
		r.Observe(item)
	}
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
