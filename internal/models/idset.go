package models

import (
	"slices"
)

// IDSet is a set of user ids.
type IDSet map[uint]struct{}

// NewIDSet returns a set holding ids.
func NewIDSet(ids ...uint) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IDSet) Add(id uint) {
	s[id] = struct{}{}
}

func (s IDSet) Remove(id uint) {
	delete(s, id)
}

func (s IDSet) Has(id uint) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet) Len() int {
	return len(s)
}

// Slice returns the members in ascending order. It never returns nil.
func (s IDSet) Slice() []uint {
	out := make([]uint, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
