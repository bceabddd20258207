package annotation

import (
	"github.com/heimdex/heimdex-annotator/internal/identity"
)

// Store maps video identities to their ordered annotation ranges. Identities
// keep their insertion order so the persisted document stays stable between saves.
type Store struct {
	order []identity.VideoIdentity
	lists map[identity.VideoIdentity][]Range
	// explicitEmpty holds identities that were stored with an empty list.
	// Delete keeps their key when the list empties again.
	explicitEmpty map[identity.VideoIdentity]bool
}

func NewStore() *Store {
	return &Store{
		lists:         make(map[identity.VideoIdentity][]Range),
		explicitEmpty: make(map[identity.VideoIdentity]bool),
	}
}

// Get returns a copy of the ranges for id, or an empty slice.
func (s *Store) Get(id identity.VideoIdentity) []Range {
	list := s.lists[id]
	out := make([]Range, len(list))
	copy(out, list)
	return out
}

func (s *Store) Has(id identity.VideoIdentity) bool {
	_, ok := s.lists[id]
	return ok
}

// UpsertAll replaces the full list for id.
func (s *Store) UpsertAll(id identity.VideoIdentity, ranges []Range) {
	if _, ok := s.lists[id]; !ok {
		s.order = append(s.order, id)
	}
	s.lists[id] = append([]Range{}, ranges...)
	if len(ranges) == 0 {
		s.explicitEmpty[id] = true
	}
}

// Remove drops id and its list.
func (s *Store) Remove(id identity.VideoIdentity) {
	if _, ok := s.lists[id]; !ok {
		return
	}
	delete(s.lists, id)
	delete(s.explicitEmpty, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Identities returns every key in insertion order.
func (s *Store) Identities() []identity.VideoIdentity {
	return append([]identity.VideoIdentity(nil), s.order...)
}

func (s *Store) Len() int { return len(s.order) }

// Count returns the number of ranges stored for id.
func (s *Store) Count(id identity.VideoIdentity) int {
	return len(s.lists[id])
}

// Document renders the store in its persisted form.
func (s *Store) Document() Document {
	var d Document
	for _, id := range s.order {
		d.Set(id.String(), s.lists[id])
	}
	return d
}
