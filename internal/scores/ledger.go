package scores

import (
	"sort"
	"sync"
)

// Entry is one (name, score) pair in a ledger snapshot.
type Entry struct {
	Name  string
	Score int
}

// Ledger is the global high-score table: a mapping from score to the ordered
// list of names that achieved it. Identical (name, score) pairs coexist as
// distinct entries.
type Ledger struct {
	mu      sync.RWMutex
	buckets map[int][]string
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		buckets: make(map[int][]string),
	}
}

// Add records a score for a name, appending to that score's bucket.
func (l *Ledger) Add(name string, score int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buckets[score] = append(l.buckets[score], name)
}

// Remove deletes the first matching (name, score) entry from that score's
// bucket. An emptied bucket is dropped. Removing an absent entry is a no-op.
func (l *Ledger) Remove(name string, score int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, ok := l.buckets[score]
	if !ok {
		return
	}
	for i, n := range bucket {
		if n == name {
			l.buckets[score] = append(bucket[:i], bucket[i+1:]...)
			if len(l.buckets[score]) == 0 {
				delete(l.buckets, score)
			}
			return
		}
	}
}

// Contains reports whether a (name, score) entry is present.
func (l *Ledger) Contains(name string, score int) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, n := range l.buckets[score] {
		if n == name {
			return true
		}
	}
	return false
}

// Snapshot returns a stable ordered view: scores descending, names within a
// score in insertion order.
func (l *Ledger) Snapshot() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	keys := make([]int, 0, len(l.buckets))
	for score := range l.buckets {
		keys = append(keys, score)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(keys)))

	var entries []Entry
	for _, score := range keys {
		for _, name := range l.buckets[score] {
			entries = append(entries, Entry{Name: name, Score: score})
		}
	}
	return entries
}

// Len returns the total number of entries across all buckets.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := 0
	for _, bucket := range l.buckets {
		n += len(bucket)
	}
	return n
}

// Clear drops every entry.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buckets = make(map[int][]string)
}
