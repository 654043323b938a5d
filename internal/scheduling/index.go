package scheduling

import (
	"slices"
	"sort"
	"time"
)

// Index is the set of active booking intervals of one calendar, searchable
// for buffered conflicts in O(log n).
type Index struct {
	buffers Buffers
	items   []Interval
	// maxEnd[i] is the largest padded end among items[:i+1].
	maxEnd []time.Time
}

// NewIndex builds an index over intervals padded by buffers.
func NewIndex(buffers Buffers, intervals []Interval) *Index {
	items := slices.Clone(intervals)
	slices.SortFunc(items, func(a, b Interval) int { return a.Start.Compare(b.Start) })

	maxEnd := make([]time.Time, len(items))
	for i, iv := range items {
		end := buffers.Expand(iv).End
		if i > 0 && maxEnd[i-1].After(end) {
			end = maxEnd[i-1]
		}
		maxEnd[i] = end
	}
	return &Index{buffers: buffers, items: items, maxEnd: maxEnd}
}

func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.items)
}

// Blocks reports whether candidate conflicts with any indexed interval.
func (x *Index) Blocks(candidate Interval) bool {
	if x.Len() == 0 {
		return false
	}
	padded := x.buffers.Expand(candidate)
	// Items before k start (padded) strictly before the candidate's padded end.
	k := sort.Search(len(x.items), func(i int) bool {
		return !x.buffers.Expand(x.items[i]).Start.Before(padded.End)
	})
	if k == 0 {
		return false
	}
	return x.maxEnd[k-1].After(padded.Start)
}
