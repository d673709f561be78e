// internal/service/tracking/mutation.go

package tracking

import (
	"math"
	"time"

	"github.com/google/uuid"

	"narratrack/internal/domain/narrative"
)

// Mutation detection thresholds over top-10 keyword similarity and absolute
// sentiment change.
const (
	mutationLookback = 5
	mutationTopN     = 10

	topicPivotSimilarity   = 0.3
	sentimentFlipDelta     = 0.5
	framingShiftSimilarity = 0.6
	framingShiftDelta      = 0.3
)

// detectMutation compares the latest snapshot against the one five positions
// back and returns a mutation event if the narrative's topic or sentiment
// shifted. It records at most one mutation per snapshot position, so a still
// filling bucket is not re-flagged; recorded mutations are never revised.
// The caller holds the record lock.
func detectMutation(rec *record, detectedAt time.Time) *narrative.Mutation {
	snaps := rec.ev.Snapshots
	if len(snaps) < mutationLookback {
		return nil
	}

	latestIdx := len(snaps) - 1
	if rec.lastMutationIdx == latestIdx {
		return nil
	}

	recent := snaps[latestIdx]
	earlier := snaps[len(snaps)-mutationLookback]

	recentTop := topN(recent.TopKeywords, mutationTopN)
	earlierTop := topN(earlier.TopKeywords, mutationTopN)

	similarity := keywordSimilarity(recentTop, earlierTop)
	sentimentDelta := math.Abs(recent.SentimentAvg - earlier.SentimentAvg)

	var kind narrative.MutationType
	switch {
	case similarity < topicPivotSimilarity:
		kind = narrative.MutationTopicPivot
	case sentimentDelta > sentimentFlipDelta:
		kind = narrative.MutationSentimentFlip
	case similarity < framingShiftSimilarity && sentimentDelta > framingShiftDelta:
		kind = narrative.MutationFramingShift
	default:
		return nil
	}

	rec.lastMutationIdx = latestIdx

	mut := narrative.Mutation{
		ID:              uuid.New().String(),
		NarrativeID:     rec.ev.ID,
		Type:            kind,
		BeforeKeywords:  append([]string(nil), earlierTop...),
		AfterKeywords:   append([]string(nil), recentTop...),
		BeforeSentiment: earlier.SentimentAvg,
		AfterSentiment:  recent.SentimentAvg,
		Confidence:      1 - similarity,
		DetectedAt:      detectedAt,
	}
	rec.ev.Mutations = append(rec.ev.Mutations, mut)
	return &mut
}

// keywordSimilarity is the share of the recent top keywords also present in
// the earlier set. An empty recent set makes no shift detectable, which
// counts as full similarity.
func keywordSimilarity(recent, earlier []string) float64 {
	if len(recent) == 0 {
		return 1
	}

	earlierSet := make(map[string]struct{}, len(earlier))
	for _, kw := range earlier {
		earlierSet[kw] = struct{}{}
	}

	shared := 0
	for _, kw := range recent {
		if _, ok := earlierSet[kw]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(recent))
}

func topN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
