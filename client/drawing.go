package client

import (
	"sync"

	"codesync/internal/models"
)

// ChangeSource tags where a drawing change originated. Listeners register
// for exactly one source, so a remote merge can never fire the listeners
// that re-broadcast local edits.
type ChangeSource int

const (
	// SourceUser marks direct user edits (Put/Remove).
	SourceUser ChangeSource = iota
	// SourceRemote marks deltas merged from other participants.
	SourceRemote
)

type storeListener struct {
	source ChangeSource
	fn     func(models.DrawingDelta)
}

// DrawingStore is the local replica of the shared drawing document.
// User edits and remote merges run through separate paths: both mutate
// the record set atomically, but only the matching source's listeners
// observe the resulting delta. Suppressing the echo of remote updates is
// therefore structural, not a matter of removing listeners at the right
// moment.
type DrawingStore struct {
	mu        sync.Mutex
	records   map[string]models.DrawingRecord
	listeners map[int]storeListener
	nextID    int
}

func NewDrawingStore() *DrawingStore {
	return &DrawingStore{
		records:   make(map[string]models.DrawingRecord),
		listeners: make(map[int]storeListener),
	}
}

// Listen registers fn for changes of the given source and returns its
// cancel function.
func (s *DrawingStore) Listen(source ChangeSource, fn func(models.DrawingDelta)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = storeListener{source: source, fn: fn}

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Put inserts or replaces a record as a direct user edit and notifies
// user-source listeners with the resulting delta.
func (s *DrawingStore) Put(id string, rec models.DrawingRecord) {
	s.mu.Lock()
	delta := models.DrawingDelta{}
	if _, exists := s.records[id]; exists {
		delta.Updated = map[string]models.DrawingRecord{id: rec}
	} else {
		delta.Added = map[string]models.DrawingRecord{id: rec}
	}
	s.records[id] = rec
	fns := s.matching(SourceUser)
	s.mu.Unlock()

	notify(fns, delta)
}

// Remove deletes records as a direct user edit. Unknown ids are ignored;
// nothing is emitted when no record was actually removed.
func (s *DrawingStore) Remove(ids ...string) {
	s.mu.Lock()
	removed := make(map[string]models.DrawingRecord)
	for _, id := range ids {
		if rec, ok := s.records[id]; ok {
			removed[id] = rec
			delete(s.records, id)
		}
	}
	fns := s.matching(SourceUser)
	s.mu.Unlock()

	if len(removed) == 0 {
		return
	}
	notify(fns, models.DrawingDelta{Removed: removed})
}

// MergeRemote applies a delta received from another participant as one
// atomic transaction: added records are inserted, updated records are
// replaced by their new value, removed records are deleted by id. Only
// remote-source listeners observe the change, so nothing is echoed back.
func (s *DrawingStore) MergeRemote(delta models.DrawingDelta) {
	s.mu.Lock()
	for id, rec := range delta.Added {
		s.records[id] = rec
	}
	for id, rec := range delta.Updated {
		s.records[id] = rec
	}
	for id := range delta.Removed {
		delete(s.records, id)
	}
	fns := s.matching(SourceRemote)
	s.mu.Unlock()

	if delta.Empty() {
		return
	}
	notify(fns, delta)
}

// Snapshot returns a copy of the full document.
func (s *DrawingStore) Snapshot() models.DrawingSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := make(models.DrawingSnapshot, len(s.records))
	for id, rec := range s.records {
		snap[id] = rec
	}
	return snap
}

// Load replaces the document wholesale, as when bootstrapping from a
// peer's snapshot. No listeners fire.
func (s *DrawingStore) Load(snap models.DrawingSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]models.DrawingRecord, len(snap))
	for id, rec := range snap {
		s.records[id] = rec
	}
}

// Get returns the record with the given id.
func (s *DrawingStore) Get(id string) (models.DrawingRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	return rec, ok
}

// Len reports the number of records in the document.
func (s *DrawingStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// matching collects listener callbacks for a source. Callers hold s.mu;
// the callbacks run after it is released.
func (s *DrawingStore) matching(source ChangeSource) []func(models.DrawingDelta) {
	fns := make([]func(models.DrawingDelta), 0, len(s.listeners))
	for _, l := range s.listeners {
		if l.source == source {
			fns = append(fns, l.fn)
		}
	}
	return fns
}

func notify(fns []func(models.DrawingDelta), delta models.DrawingDelta) {
	for _, fn := range fns {
		fn(delta)
	}
}
