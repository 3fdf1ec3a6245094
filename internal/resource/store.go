// Package resource holds the client-side cache of stages.
//
// The cache is never the source of truth: it is replaced wholesale by a fresh
// List after every successful mutation. Readers always see a complete snapshot.
package resource

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"etapas-cli/internal/gateway"
	"etapas-cli/internal/model"
)

// Lister is the part of the gateway the store needs.
type Lister interface {
	List(ctx context.Context) ([]model.Etapa, error)
}

// FetchFailedError reports a refresh that did not replace the list.
type FetchFailedError struct {
	Err error
}

func (e *FetchFailedError) Error() string {
	return fmt.Sprintf("fetch etapas: %v", e.Err)
}

func (e *FetchFailedError) Unwrap() error { return e.Err }

// Description is the human-readable cause.
func (e *FetchFailedError) Description() string {
	return gateway.Describe(e.Err)
}

type snapshot struct {
	version uint64
	records []model.Etapa
	byID    map[string]int
}

type Store struct {
	lister Lister
	snap   atomic.Pointer[snapshot]
}

func New(l Lister) *Store {
	s := &Store{lister: l}
	s.snap.Store(&snapshot{byID: map[string]int{}})
	return s
}

// Refresh fetches the full list and replaces the cache. On failure the prior
// list is kept and a *FetchFailedError is returned.
func (s *Store) Refresh(ctx context.Context) error {
	records, err := s.Fetch(ctx)
	if err != nil {
		return err
	}
	return s.Replace(records)
}

// Fetch calls the gateway without touching the cache. It is safe to run off
// the event loop; pair it with Replace on the loop.
func (s *Store) Fetch(ctx context.Context) ([]model.Etapa, error) {
	if s.lister == nil {
		return nil, &FetchFailedError{Err: fmt.Errorf("no gateway configured")}
	}
	records, err := s.lister.List(ctx)
	if err != nil {
		return nil, &FetchFailedError{Err: err}
	}
	return records, nil
}

// Replace swaps in a new list. Lists with empty or duplicate ids are rejected
// and leave the cache untouched.
func (s *Store) Replace(records []model.Etapa) error {
	byID := make(map[string]int, len(records))
	cp := make([]model.Etapa, len(records))
	for i, r := range records {
		id := strings.TrimSpace(r.ID)
		if id == "" {
			return &FetchFailedError{Err: fmt.Errorf("etapa at index %d has no id", i)}
		}
		if _, dup := byID[id]; dup {
			return &FetchFailedError{Err: fmt.Errorf("duplicate etapa id %q", id)}
		}
		byID[id] = i
		cp[i] = r
	}
	for {
		prev := s.snap.Load()
		next := &snapshot{version: prev.version + 1, records: cp, byID: byID}
		if s.snap.CompareAndSwap(prev, next) {
			return nil
		}
	}
}

// Records returns a copy of the current snapshot in gateway order.
func (s *Store) Records() []model.Etapa {
	snap := s.snap.Load()
	return append([]model.Etapa(nil), snap.records...)
}

func (s *Store) Find(id string) (model.Etapa, bool) {
	snap := s.snap.Load()
	i, ok := snap.byID[strings.TrimSpace(id)]
	if !ok {
		return model.Etapa{}, false
	}
	return snap.records[i], true
}

func (s *Store) Len() int { return len(s.snap.Load().records) }

// Version increases by one on every successful Replace.
func (s *Store) Version() uint64 { return s.snap.Load().version }
