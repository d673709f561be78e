package narrative

import (
	"time"
)

// Status describes where a narrative sits in its lifecycle.
type Status string

const (
	StatusEmerging   Status = "emerging"
	StatusGrowing    Status = "growing"
	StatusStable     Status = "stable"
	StatusDeclining  Status = "declining"
	StatusDormant    Status = "dormant"
	StatusResurfaced Status = "resurfaced"
)

// PropagationPattern classifies how a narrative is spreading.
type PropagationPattern string

const (
	PatternOrganic       PropagationPattern = "organic"
	PatternCoordinated   PropagationPattern = "coordinated"
	PatternBotDriven     PropagationPattern = "bot_driven"
	PatternInfluencerLed PropagationPattern = "influencer_led"
	PatternCrossPlatform PropagationPattern = "cross_platform"
)

// MutationType classifies a detected qualitative shift in a narrative.
type MutationType string

const (
	MutationTopicPivot    MutationType = "topic_pivot"
	MutationSentimentFlip MutationType = "sentiment_flip"
	MutationFramingShift  MutationType = "framing_shift"
)

// Occurrence is a single piece of pre-tagged content attributed to a
// narrative, as delivered by the upstream extraction pipeline.
type Occurrence struct {
	NarrativeName     string    `json:"narrative_name"`
	Content           string    `json:"content"` // kept for audit, unused by the tracker
	SourceID          string    `json:"source_id"`
	Platform          string    `json:"platform"`
	Timestamp         time.Time `json:"timestamp"`
	Sentiment         float64   `json:"sentiment"`
	Keywords          []string  `json:"keywords"`
	Entities          []string  `json:"entities"`
	CoordinationScore float64   `json:"coordination_score"`
	Locations         []string  `json:"locations"`
}

// Snapshot is a fixed-width time-bucketed aggregate of occurrences for one
// narrative. Timestamp marks the bucket start. A snapshot stays mutable only
// while it is the latest bucket; opening a newer bucket closes it.
type Snapshot struct {
	Timestamp         time.Time `json:"timestamp"`
	Volume            int       `json:"volume"`
	SourceCount       int       `json:"source_count"`
	Platforms         []string  `json:"platforms"`
	SentimentAvg      float64   `json:"sentiment_avg"`
	CoordinationScore float64   `json:"coordination_score"`
	TopKeywords       []string  `json:"top_keywords"`
	TopEntities       []string  `json:"top_entities"`
}

// Mutation is an immutable record of a detected topic or sentiment shift
// between two points of a narrative's snapshot history.
type Mutation struct {
	ID              string       `json:"id"`
	NarrativeID     string       `json:"narrative_id"`
	Type            MutationType `json:"type"`
	BeforeKeywords  []string     `json:"before_keywords"`
	AfterKeywords   []string     `json:"after_keywords"`
	BeforeSentiment float64      `json:"before_sentiment"`
	AfterSentiment  float64      `json:"after_sentiment"`
	Confidence      float64      `json:"confidence"`
	DetectedAt      time.Time    `json:"detected_at"`
}

// PlatformAppearance records the first time a narrative surfaced on a
// platform.
type PlatformAppearance struct {
	Platform        string    `json:"platform"`
	FirstSeen       time.Time `json:"first_seen"`
	HoursFromOrigin float64   `json:"hours_from_origin"`
}

// CrossPlatformSpread tracks the order in which a narrative appeared on
// distinct platforms. Origin fields are set on the first occurrence and
// never change; the sequence gains at most one entry per platform.
type CrossPlatformSpread struct {
	NarrativeID      string               `json:"narrative_id"`
	OriginPlatform   string               `json:"origin_platform"`
	OriginTime       time.Time            `json:"origin_time"`
	PlatformSequence []PlatformAppearance `json:"platform_sequence"`
	TimeToSpread     map[string]float64   `json:"time_to_spread"`
}

// Evolution is the live per-narrative tracking record: the snapshot series
// plus the scalars derived from it.
type Evolution struct {
	ID                 string             `json:"id"`
	Name               string             `json:"name"`
	FirstSeen          time.Time          `json:"first_seen"`
	LastSeen           time.Time          `json:"last_seen"`
	Status             Status             `json:"status"`
	PropagationPattern PropagationPattern `json:"propagation_pattern"`
	Snapshots          []Snapshot         `json:"snapshots"`
	TotalVolume        int                `json:"total_volume"`
	PeakVolume         int                `json:"peak_volume"`
	PeakTime           time.Time          `json:"peak_time"`
	GrowthRate         float64            `json:"growth_rate"` // percent per hour
	Velocity           float64            `json:"velocity"`    // distinct platforms per hour
	Mutations          []Mutation         `json:"mutations"`
	RelatedNarratives  []string           `json:"related_narratives"`
}

// Filter defines criteria for the active-narratives query.
type Filter struct {
	MinVolume int
	Statuses  []Status
}

// ComparisonResult holds the pairwise similarity breakdown of two narratives'
// latest snapshots.
type ComparisonResult struct {
	FirstID             string  `json:"first_id"`
	SecondID            string  `json:"second_id"`
	KeywordOverlap      float64 `json:"keyword_overlap"`
	EntityOverlap       float64 `json:"entity_overlap"`
	PlatformOverlap     float64 `json:"platform_overlap"`
	SentimentSimilarity float64 `json:"sentiment_similarity"`
	OverallSimilarity   float64 `json:"overall_similarity"`
	PotentiallyRelated  bool    `json:"potentially_related"`
}

// StatsSummary aggregates counts across all tracked narratives.
type StatsSummary struct {
	TotalNarratives int            `json:"total_narratives"`
	StatusCounts    map[Status]int `json:"status_counts"`
	TotalMutations  int            `json:"total_mutations"`
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Platforms = append([]string(nil), s.Platforms...)
	out.TopKeywords = append([]string(nil), s.TopKeywords...)
	out.TopEntities = append([]string(nil), s.TopEntities...)
	return out
}

// Clone returns a deep copy of the mutation.
func (m Mutation) Clone() Mutation {
	out := m
	out.BeforeKeywords = append([]string(nil), m.BeforeKeywords...)
	out.AfterKeywords = append([]string(nil), m.AfterKeywords...)
	return out
}

// Clone returns a deep copy of the spread record.
func (c CrossPlatformSpread) Clone() CrossPlatformSpread {
	out := c
	out.PlatformSequence = append([]PlatformAppearance(nil), c.PlatformSequence...)
	out.TimeToSpread = make(map[string]float64, len(c.TimeToSpread))
	for k, v := range c.TimeToSpread {
		out.TimeToSpread[k] = v
	}
	return out
}

// Clone returns a deep copy of the evolution record so readers can hold it
// without observing later writes.
func (e Evolution) Clone() Evolution {
	out := e
	out.Snapshots = make([]Snapshot, len(e.Snapshots))
	for i := range e.Snapshots {
		out.Snapshots[i] = e.Snapshots[i].Clone()
	}
	out.Mutations = make([]Mutation, len(e.Mutations))
	for i := range e.Mutations {
		out.Mutations[i] = e.Mutations[i].Clone()
	}
	out.RelatedNarratives = append([]string(nil), e.RelatedNarratives...)
	return out
}
