package tle

import (
	"sync/atomic"
	"time"
)

// Store holds the active catalog together with an index of its objects
// by catalog number. Set swaps both in one step, so a reader never
// pairs one catalog with another catalog's index.
type Store struct {
	snap atomic.Pointer[storeSnapshot]
}

type storeSnapshot struct {
	catalog *Catalog
	byID    map[int]*ElementSet
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Set replaces the active catalog and rebuilds the index. When the
// catalog carries several element sets for one object, the index keeps
// the one with the latest epoch.
func (s *Store) Set(c *Catalog) {
	snap := &storeSnapshot{catalog: c}
	if c != nil {
		snap.byID = make(map[int]*ElementSet, len(c.Objects))
		for _, e := range c.Objects {
			if prev, ok := snap.byID[e.NORADID]; ok && !e.Epoch.After(prev.Epoch) {
				continue
			}
			snap.byID[e.NORADID] = e
		}
	}
	s.snap.Store(snap)
}

// Get returns the active catalog, or nil when none has been set.
func (s *Store) Get() *Catalog {
	snap := s.snap.Load()
	if snap == nil {
		return nil
	}
	return snap.catalog
}

// Lookup returns the element set for one catalog number.
func (s *Store) Lookup(noradID int) (*ElementSet, bool) {
	snap := s.snap.Load()
	if snap == nil {
		return nil, false
	}
	e, ok := snap.byID[noradID]
	return e, ok
}

// Select resolves catalog numbers to element sets, preserving request
// order and dropping ids the catalog does not carry.
func (s *Store) Select(ids []int) []*ElementSet {
	var out []*ElementSet
	for _, id := range ids {
		if e, ok := s.Lookup(id); ok {
			out = append(out, e)
		}
	}
	return out
}

// Age reports how long ago the active catalog was fetched. The second
// return is false when no catalog has been set.
func (s *Store) Age(now time.Time) (time.Duration, bool) {
	snap := s.snap.Load()
	if snap == nil || snap.catalog == nil {
		return 0, false
	}
	return now.Sub(snap.catalog.FetchedAt), true
}
