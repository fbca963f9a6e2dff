package model

import (
	"sort"
	"sync"
)

// Store is a fingerprint keyed map with one writer and many readers.
// A key is written at most once until the next Clear.
type Store[V any] struct {
	mutex  sync.RWMutex
	values map[Fingerprint]V
}

type ResultStore[V any] struct {
	Store[Result[V]]
}

func NewStore[V any]() *Store[V] {
	return &Store[V]{
		values: map[Fingerprint]V{},
	}
}

func NewResultStore[V any]() *ResultStore[V] {
	return &ResultStore[V]{
		Store: Store[Result[V]]{
			values: map[Fingerprint]Result[V]{},
		},
	}
}

// Put stores the value if there is none for the fingerprint yet, and returns if it was stored.
func (s *Store[V]) Put(fp Fingerprint, value V) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.values[fp]; ok {
		return false
	}

	s.values[fp] = value
	return true
}

func (s *Store[V]) Get(fp Fingerprint) (V, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	v, ok := s.values[fp]
	return v, ok
}

func (s *Store[V]) Has(fp Fingerprint) bool {
	_, ok := s.Get(fp)
	return ok
}

func (s *Store[V]) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.values)
}

func (s *Store[V]) Keys() []Fingerprint {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	result := make([]Fingerprint, 0, len(s.values))
	for k := range s.values {
		result = append(result, k)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// Snapshot returns a copy of the current content.
func (s *Store[V]) Snapshot() map[Fingerprint]V {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	result := make(map[Fingerprint]V, len(s.values))
	for k, v := range s.values {
		result[k] = v
	}
	return result
}

func (s *Store[V]) Clear() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.values = map[Fingerprint]V{}
}
