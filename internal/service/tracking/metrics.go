// internal/service/tracking/metrics.go

package tracking

import (
	"time"

	"narratrack/internal/domain/narrative"
)

// Classification thresholds. Volumes are per-snapshot counts, growth rates
// percent per hour, coordination scores in [0, 1].
const (
	growthWindow = 10
	recentWindow = 3

	dormantPeakVolume  = 10
	resurfaceVolume    = 5
	coordinatedScore   = 0.6
	botDrivenScore     = 0.4
	viralGrowthRate    = 200
	crossPlatformCount = 3
)

// recomputeMetrics refreshes the narrative's derived scalars from its
// snapshot series after an aggregator update. Every computation here is a
// pure function of the stored window, so replaying the same snapshot
// sequence always yields the same classification. The caller holds the
// record lock.
func recomputeMetrics(ev *narrative.Evolution, platformCount int) {
	latest := ev.Snapshots[len(ev.Snapshots)-1]

	if latest.Volume > ev.PeakVolume {
		ev.PeakVolume = latest.Volume
		ev.PeakTime = latest.Timestamp
	}

	ev.GrowthRate = computeGrowthRate(ev.Snapshots)
	ev.Velocity = computeVelocity(platformCount, ev.FirstSeen, ev.LastSeen)
	ev.Status = classifyStatus(ev.Snapshots, ev.PeakVolume, ev.Status)
	ev.PropagationPattern = classifyPattern(ev.Snapshots, ev.GrowthRate)
}

// computeGrowthRate derives percent volume change per hour across the last
// ten snapshots. Zero denominators fall back to 0 rather than propagating
// infinities into stored state.
func computeGrowthRate(snaps []narrative.Snapshot) float64 {
	window := tailWindow(snaps, growthWindow)
	if len(window) < 2 {
		return 0
	}

	first := window[0]
	last := window[len(window)-1]

	hours := last.Timestamp.Sub(first.Timestamp).Hours()
	if first.Volume <= 0 || hours <= 0 {
		return 0
	}

	change := float64(last.Volume-first.Volume) / float64(first.Volume) * 100
	return change / hours
}

// computeVelocity derives distinct platforms acquired per hour since the
// narrative was first seen.
func computeVelocity(platformCount int, firstSeen, lastSeen time.Time) float64 {
	hours := lastSeen.Sub(firstSeen).Hours()
	if hours <= 0 {
		return 0
	}
	return float64(platformCount) / hours
}

// classifyStatus evaluates the lifecycle transition rules in fixed priority
// order over the recent-3 window against the snapshots preceding it.
func classifyStatus(snaps []narrative.Snapshot, peakVolume int, previous narrative.Status) narrative.Status {
	if len(snaps) < recentWindow {
		return narrative.StatusEmerging
	}

	recent := snaps[len(snaps)-recentWindow:]
	earlier := snaps[:len(snaps)-recentWindow]

	recentAvg := meanVolume(recent)

	// With fewer than three earlier snapshots the earliest volume stands in
	// for the baseline.
	earlierAvg := float64(snaps[0].Volume)
	if len(earlier) >= recentWindow {
		earlierAvg = meanVolume(earlier)
	}

	switch {
	case recentAvg < 1 && peakVolume > dormantPeakVolume:
		return narrative.StatusDormant
	case recentAvg < 1:
		return narrative.StatusDeclining
	case earlierAvg > 0 && recentAvg > 2*earlierAvg:
		return narrative.StatusGrowing
	case earlierAvg > 0 && recentAvg < 0.5*earlierAvg:
		return narrative.StatusDeclining
	case previous == narrative.StatusDormant && recentAvg > resurfaceVolume:
		return narrative.StatusResurfaced
	default:
		return narrative.StatusStable
	}
}

// classifyPattern evaluates the propagation rules over the last ten
// snapshots in fixed priority order; first match wins.
func classifyPattern(snaps []narrative.Snapshot, growthRate float64) narrative.PropagationPattern {
	window := tailWindow(snaps, growthWindow)
	if len(window) == 0 {
		return narrative.PatternOrganic
	}

	var coordSum float64
	platforms := make(map[string]struct{})
	for _, snap := range window {
		coordSum += snap.CoordinationScore
		for _, p := range snap.Platforms {
			platforms[p] = struct{}{}
		}
	}
	avgCoordination := coordSum / float64(len(window))

	switch {
	case avgCoordination > coordinatedScore:
		return narrative.PatternCoordinated
	case len(platforms) >= crossPlatformCount:
		return narrative.PatternCrossPlatform
	case growthRate > viralGrowthRate && avgCoordination > botDrivenScore:
		return narrative.PatternBotDriven
	case growthRate > viralGrowthRate:
		return narrative.PatternInfluencerLed
	default:
		return narrative.PatternOrganic
	}
}

func tailWindow(snaps []narrative.Snapshot, n int) []narrative.Snapshot {
	if len(snaps) <= n {
		return snaps
	}
	return snaps[len(snaps)-n:]
}

func meanVolume(snaps []narrative.Snapshot) float64 {
	if len(snaps) == 0 {
		return 0
	}
	var sum int
	for _, snap := range snaps {
		sum += snap.Volume
	}
	return float64(sum) / float64(len(snaps))
}
