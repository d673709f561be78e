package tracking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"narratrack/internal/domain/narrative"
)

func snapshotSeries(start time.Time, volumes ...int) []narrative.Snapshot {
	snaps := make([]narrative.Snapshot, len(volumes))
	for i, v := range volumes {
		snaps[i] = narrative.Snapshot{
			Timestamp: start.Add(time.Duration(i) * bucketWidth),
			Volume:    v,
			Platforms: []string{"twitter"},
		}
	}
	return snaps
}

func TestComputeGrowthRate(t *testing.T) {
	tests := []struct {
		name    string
		volumes []int
		want    float64
	}{
		{
			name:    "Surge across four buckets",
			volumes: []int{1, 1, 1, 50},
			// ((50-1)/1)*100 over 1.5 hours
			want: 4900.0 / 1.5,
		},
		{
			name:    "Flat series",
			volumes: []int{5, 5, 5},
			want:    0,
		},
		{
			name:    "Zero base volume guarded",
			volumes: []int{0, 10, 20},
			want:    0,
		},
		{
			name:    "Single snapshot",
			volumes: []int{7},
			want:    0,
		},
		{
			name:    "Decline is negative",
			volumes: []int{10, 5},
			// ((5-10)/10)*100 over 0.5 hours
			want: -100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snaps := snapshotSeries(testBase, tt.volumes...)
			assert.InDelta(t, tt.want, computeGrowthRate(snaps), 1e-9)
		})
	}
}

func TestComputeGrowthRateUsesLastTenSnapshots(t *testing.T) {
	// 15 buckets; the window starts at index 5 (volume 2), ends at 64.
	volumes := []int{100, 100, 100, 100, 100, 2, 4, 8, 10, 12, 20, 30, 40, 50, 64}
	snaps := snapshotSeries(testBase, volumes...)

	// (64-2)/2*100 over 9 buckets = 4.5 hours
	want := 3100.0 / 4.5
	assert.InDelta(t, want, computeGrowthRate(snaps), 1e-9)
}

func TestComputeGrowthRateZeroElapsed(t *testing.T) {
	snaps := []narrative.Snapshot{
		{Timestamp: testBase, Volume: 1},
		{Timestamp: testBase, Volume: 50},
	}
	assert.Equal(t, 0.0, computeGrowthRate(snaps))
}

func TestComputeVelocity(t *testing.T) {
	assert.InDelta(t, 2.0, computeVelocity(4, testBase, testBase.Add(2*time.Hour)), 1e-9)
	assert.Equal(t, 0.0, computeVelocity(4, testBase, testBase), "zero elapsed time is guarded")
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name     string
		volumes  []int
		peak     int
		previous narrative.Status
		want     narrative.Status
	}{
		{
			name:     "Fewer than three snapshots is emerging",
			volumes:  []int{5, 9},
			peak:     9,
			previous: narrative.StatusEmerging,
			want:     narrative.StatusEmerging,
		},
		{
			name:     "Faded after high peak is dormant",
			volumes:  []int{20, 20, 18, 15, 12, 9, 6, 3, 1, 0, 0, 0},
			peak:     20,
			previous: narrative.StatusDeclining,
			want:     narrative.StatusDormant,
		},
		{
			name:     "Faded after low peak is declining",
			volumes:  []int{3, 2, 1, 0, 0, 0},
			peak:     3,
			previous: narrative.StatusStable,
			want:     narrative.StatusDeclining,
		},
		{
			name:     "Recent average doubling is growing",
			volumes:  []int{1, 1, 1, 50},
			peak:     50,
			previous: narrative.StatusEmerging,
			want:     narrative.StatusGrowing,
		},
		{
			name:     "Recent average halved is declining",
			volumes:  []int{10, 10, 10, 10, 10, 10, 2, 2, 2},
			peak:     10,
			previous: narrative.StatusStable,
			want:     narrative.StatusDeclining,
		},
		{
			name:     "Dormant narrative picking up resurfaces",
			volumes:  []int{10, 10, 10, 10, 10, 10, 8, 8, 8},
			peak:     10,
			previous: narrative.StatusDormant,
			want:     narrative.StatusResurfaced,
		},
		{
			name:     "Steady volume is stable",
			volumes:  []int{8, 8, 8, 8, 8, 8, 8, 8},
			peak:     8,
			previous: narrative.StatusStable,
			want:     narrative.StatusStable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snaps := snapshotSeries(testBase, tt.volumes...)
			assert.Equal(t, tt.want, classifyStatus(snaps, tt.peak, tt.previous))
		})
	}
}

func TestClassifyStatusDeterministic(t *testing.T) {
	snaps := snapshotSeries(testBase, 1, 2, 4, 9, 3, 8, 2, 7)

	first := classifyStatus(snaps, 9, narrative.StatusEmerging)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, classifyStatus(snaps, 9, narrative.StatusEmerging))
	}
}

func TestClassifyPattern(t *testing.T) {
	coordinated := snapshotSeries(testBase, 5, 5, 5)
	for i := range coordinated {
		coordinated[i].CoordinationScore = 0.9
	}

	crossPlatform := snapshotSeries(testBase, 5, 5, 5)
	crossPlatform[0].Platforms = []string{"twitter"}
	crossPlatform[1].Platforms = []string{"reddit"}
	crossPlatform[2].Platforms = []string{"telegram"}

	botDriven := snapshotSeries(testBase, 1, 50)
	for i := range botDriven {
		botDriven[i].CoordinationScore = 0.5
	}

	tests := []struct {
		name       string
		snaps      []narrative.Snapshot
		growthRate float64
		want       narrative.PropagationPattern
	}{
		{"High coordination wins first", coordinated, 500, narrative.PatternCoordinated},
		{"Three platforms is cross-platform", crossPlatform, 0, narrative.PatternCrossPlatform},
		{"Viral growth with moderate coordination is bot-driven", botDriven, 500, narrative.PatternBotDriven},
		{"Viral growth alone is influencer-led", snapshotSeries(testBase, 1, 50), 500, narrative.PatternInfluencerLed},
		{"Default is organic", snapshotSeries(testBase, 2, 2, 2), 10, narrative.PatternOrganic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyPattern(tt.snaps, tt.growthRate))
		})
	}
}

func TestGrowthScenarioEndToEnd(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	// Volumes 1, 1, 1, 50 over four consecutive buckets.
	for bucket := 0; bucket < 3; bucket++ {
		_, err := svc.TrackOccurrence(ctx, occurrence("X", "twitter", testBase.Add(time.Duration(bucket)*bucketWidth)))
		require.NoError(t, err)
	}
	start := testBase.Add(3 * bucketWidth)
	for i := 0; i < 50; i++ {
		_, err := svc.TrackOccurrence(ctx, occurrence("X", "twitter", start.Add(time.Duration(i)*time.Second)))
		require.NoError(t, err)
	}

	ev, err := svc.GetEvolutionByName(ctx, "X")
	require.NoError(t, err)

	require.Len(t, ev.Snapshots, 4)
	assert.InDelta(t, 4900.0/1.5, ev.GrowthRate, 1e-6)
	assert.Equal(t, narrative.StatusGrowing, ev.Status)
	assert.Equal(t, 50, ev.PeakVolume)
	assert.Equal(t, start, ev.PeakTime)
}
