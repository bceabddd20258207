package annotation

import (
	"fmt"

	"github.com/heimdex/heimdex-annotator/internal/identity"
)

// IndexOutOfRangeError reports a delete at a position the list does not have.
type IndexOutOfRangeError struct {
	Identity identity.VideoIdentity
	Index    int
	Len      int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("annotation index %d out of range for %q (%d annotations)", e.Index, e.Identity.Name(), e.Len)
}

// Add appends [start, end) to the list for id and returns the updated list.
// The store is left untouched when validation fails.
func Add(s *Store, id identity.VideoIdentity, start, end float64) ([]Range, error) {
	r, err := NewRange(start, end)
	if err != nil {
		return nil, err
	}

	list := append(s.Get(id), r)
	s.UpsertAll(id, list)
	return s.Get(id), nil
}

// Delete removes the range at index; later ranges shift down by one. A list
// emptied by Delete is dropped from the store, unless its key was stored with
// an empty list, in which case the empty key stays.
func Delete(s *Store, id identity.VideoIdentity, index int) ([]Range, error) {
	list := s.Get(id)
	if index < 0 || index >= len(list) {
		return nil, &IndexOutOfRangeError{Identity: id, Index: index, Len: len(list)}
	}

	list = append(list[:index], list[index+1:]...)
	if len(list) == 0 && !s.explicitEmpty[id] {
		s.Remove(id)
		return []Range{}, nil
	}
	s.UpsertAll(id, list)
	return s.Get(id), nil
}
