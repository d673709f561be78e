// internal/service/tracking/topk.go

package tracking

import (
	"sort"
)

// frequencyRanker is a bounded counter used to merge keywords and entities
// into a snapshot's top-N lists. Capacity bounds memory per open bucket: when
// a new item arrives at capacity, the current lowest-frequency item is
// evicted (the most recently first-seen one on a frequency tie).
type frequencyRanker struct {
	capacity int
	counts   map[string]int
	arrival  map[string]int
	seq      int
}

func newFrequencyRanker(capacity int) *frequencyRanker {
	return &frequencyRanker{
		capacity: capacity,
		counts:   make(map[string]int, capacity),
		arrival:  make(map[string]int, capacity),
	}
}

// Observe counts one sighting of item.
func (r *frequencyRanker) Observe(item string) {
	if item == "" {
		return
	}

	if _, ok := r.counts[item]; ok {
		r.counts[item]++
		return
	}

	if len(r.counts) >= r.capacity {
		r.evictLowest()
	}

	r.seq++
	r.counts[item] = 1
	r.arrival[item] = r.seq
}

// evictLowest removes the lowest-frequency item, breaking ties toward the
// most recently first-seen so long-standing items survive churn.
func (r *frequencyRanker) evictLowest() {
	victim := ""
	for item, count := range r.counts {
		if victim == "" {
			victim = item
			continue
		}
		vc := r.counts[victim]
		if count < vc || (count == vc && r.arrival[item] > r.arrival[victim]) {
			victim = item
		}
	}
	if victim != "" {
		delete(r.counts, victim)
		delete(r.arrival, victim)
	}
}

// Ranked returns all items ordered by frequency descending, first-seen order
// breaking ties.
func (r *frequencyRanker) Ranked() []string {
	items := make([]string, 0, len(r.counts))
	for item := range r.counts {
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool {
		ci, cj := r.counts[items[i]], r.counts[items[j]]
		if ci != cj {
			return ci > cj
		}
		return r.arrival[items[i]] < r.arrival[items[j]]
	})

	return items
}

// Top returns up to n items in ranked order.
func (r *frequencyRanker) Top(n int) []string {
	ranked := r.Ranked()
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
