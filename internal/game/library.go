package game

import (
	"sort"
	"sync"
)

// Point is one recorded ball position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// RecordedPath is a ball trajectory, one point per physics step. The final
// point sits on the center of the slot it was recorded for.
type RecordedPath []Point

// Final returns the last point of the path.
func (p RecordedPath) Final() (Point, bool) {
	if len(p) == 0 {
		return Point{}, false
	}
	return p[len(p)-1], true
}

func (p RecordedPath) clone() RecordedPath {
	return append(RecordedPath(nil), p...)
}

// SlotBuckets maps slot index to the paths that land there.
type SlotBuckets map[int][]RecordedPath

// Count is the total number of paths across all slots.
func (s SlotBuckets) Count() int {
	n := 0
	for _, paths := range s {
		n += len(paths)
	}
	return n
}

func (s SlotBuckets) clone() SlotBuckets {
	out := make(SlotBuckets, len(s))
	for slot, paths := range s {
		cp := make([]RecordedPath, len(paths))
		for i, p := range paths {
			cp[i] = p.clone()
		}
		out[slot] = cp
	}
	return out
}

// PathLibrary holds recorded paths by row count and slot. It is safe for
// concurrent use; readers get copies.
type PathLibrary struct {
	mu       sync.RWMutex
	capacity int
	rows     map[int]SlotBuckets
}

// NewPathLibrary creates a library that keeps at most capacity paths per
// slot. A capacity of 0 means unbounded.
func NewPathLibrary(capacity int) *PathLibrary {
	if capacity < 0 {
		capacity = 0
	}
	return &PathLibrary{capacity: capacity, rows: make(map[int]SlotBuckets)}
}

func (l *PathLibrary) Capacity() int { return l.capacity }

// Append adds a path for (rows, slot) unless the bucket is full. limit, when
// positive, caps the bucket below the library capacity.
func (l *PathLibrary) Append(rows, slot int, path RecordedPath, limit int) bool {
	if len(path) == 0 || slot < 0 {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	max := l.capacity
	if limit > 0 && (max == 0 || limit < max) {
		max = limit
	}
	buckets := l.rows[rows]
	if buckets == nil {
		buckets = make(SlotBuckets)
		l.rows[rows] = buckets
	}
	if max > 0 && len(buckets[slot]) >= max {
		return false
	}
	buckets[slot] = append(buckets[slot], path.clone())
	return true
}

// MergeRows appends every path in buckets for rows, respecting capacity. It
// returns how many were accepted.
func (l *PathLibrary) MergeRows(rows int, buckets SlotBuckets) int {
	slots := make([]int, 0, len(buckets))
	for s := range buckets {
		slots = append(slots, s)
	}
	sort.Ints(slots)

	added := 0
	for _, slot := range slots {
		for _, p := range buckets[slot] {
			if l.Append(rows, slot, p, 0) {
				added++
			}
		}
	}
	return added
}

// Merge copies all of other into l.
func (l *PathLibrary) Merge(other *PathLibrary) int {
	if other == nil || other == l {
		return 0
	}
	added := 0
	for _, rows := range other.Rows() {
		added += l.MergeRows(rows, other.Snapshot(rows))
	}
	return added
}

// Snapshot returns a deep copy of the buckets for rows, or nil if none exist.
func (l *PathLibrary) Snapshot(rows int) SlotBuckets {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.rows[rows]
	if !ok {
		return nil
	}
	return b.clone()
}

// Replace swaps the buckets for rows wholesale.
func (l *PathLibrary) Replace(rows int, buckets SlotBuckets) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if buckets == nil {
		delete(l.rows, rows)
		return
	}
	l.rows[rows] = buckets.clone()
}

// Count returns the number of paths stored for (rows, slot).
func (l *PathLibrary) Count(rows, slot int) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.rows[rows][slot])
}

// Counts returns the per-slot path counts for rows.
func (l *PathLibrary) Counts(rows int) map[int]int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[int]int, len(l.rows[rows]))
	for slot, paths := range l.rows[rows] {
		out[slot] = len(paths)
	}
	return out
}

// Total returns the number of paths stored for rows.
func (l *PathLibrary) Total(rows int) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.rows[rows].Count()
}

// Rows lists row counts with at least one bucket, ascending.
func (l *PathLibrary) Rows() []int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]int, 0, len(l.rows))
	for r := range l.rows {
		out = append(out, r)
	}
	sort.Ints(out)
	return out
}

// Full reports whether every one of slotCount slots holds perSlot paths.
func (l *PathLibrary) Full(rows, slotCount, perSlot int) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b := l.rows[rows]
	for s := 0; s < slotCount; s++ {
		if len(b[s]) < perSlot {
			return false
		}
	}
	return true
}

// ValidateBuckets returns the paths from buckets that can replay on a board
// of rows: slot in range, non-empty, final point classifying into its own
// slot, and at most capacity per slot when capacity > 0. It also returns how
// many paths were dropped.
func ValidateBuckets(rows int, buckets SlotBuckets, capacity int) (SlotBuckets, int, error) {
	board, err := BuildBoard(rows)
	if err != nil {
		return nil, buckets.Count(), err
	}
	kept := make(SlotBuckets)
	dropped := 0
	for slot, paths := range buckets {
		if slot < 0 || slot >= board.SlotCount() {
			dropped += len(paths)
			continue
		}
		for _, path := range paths {
			final, ok := path.Final()
			if !ok || Classify(final.X, board.LastRowXCoords) != slot || (capacity > 0 && len(kept[slot]) >= capacity) {
				dropped++
				continue
			}
			kept[slot] = append(kept[slot], path.clone())
		}
	}
	return kept, dropped, nil
}
