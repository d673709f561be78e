// internal/service/tracking/spread.go

package tracking

import (
	"time"

	"narratrack/internal/domain/narrative"
)

// recordSpread notes a narrative's first appearance on a platform. The first
// occurrence fixes the origin; later platforms are appended in arrival order
// with their elapsed hours from origin. A platform already in the sequence is
// never re-recorded or re-timed. The caller holds the record lock. Returns
// true when a new platform was added.
func recordSpread(spread *narrative.CrossPlatformSpread, platform string, ts time.Time) bool {
	if platform == "" {
		return false
	}

	if spread.OriginPlatform == "" {
		spread.OriginPlatform = platform
		spread.OriginTime = ts
	}

	if _, seen := spread.TimeToSpread[platform]; seen {
		return false
	}

	hours := ts.Sub(spread.OriginTime).Hours()
	if hours < 0 {
		hours = 0
	}

	spread.PlatformSequence = append(spread.PlatformSequence, narrative.PlatformAppearance{
		Platform:        platform,
		FirstSeen:       ts,
		HoursFromOrigin: hours,
	})
	spread.TimeToSpread[platform] = hours
	return true
}
