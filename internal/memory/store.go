// Package memory provides an in-process Store used by tests and
// zero-configuration runs. Identifiers are monotonic and never reused,
// matching the durable backends.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"tally/internal/core"
	"tally/internal/ledger"
)

type Store struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]core.Transaction
	cats   map[string]string // lower(normalized) -> display name
}

func New(seedCategories ...string) *Store {
	s := &Store{
		nextID: 1,
		items:  make(map[int64]core.Transaction),
		cats:   make(map[string]string),
	}
	for _, c := range seedCategories {
		s.register(c)
	}
	return s
}

func (s *Store) register(name string) {
	name = core.NormalizeCategory(name)
	if name == "" {
		return
	}
	key := strings.ToLower(name)
	if _, ok := s.cats[key]; !ok {
		s.cats[key] = name
	}
}

func (s *Store) Insert(_ context.Context, tx core.Transaction) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx.ID = s.nextID
	s.nextID++
	s.items[tx.ID] = tx
	s.register(tx.Category)
	return tx.ID, nil
}

func (s *Store) Get(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.items[id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	return tx, nil
}

func (s *Store) Update(_ context.Context, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[tx.ID]; !ok {
		return core.ErrNotFound
	}
	s.items[tx.ID] = tx
	s.register(tx.Category)
	return nil
}

func (s *Store) Delete(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return false, nil
	}
	delete(s.items, id)
	return true, nil
}

func (s *Store) Select(_ context.Context, f ledger.Filter) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, 0, len(s.items))
	for _, tx := range s.items {
		if f.Matches(tx) {
			out = append(out, tx)
		}
	}
	// Date descending, newest first; id descending breaks same-day ties.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) Categories(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.cats))
	for _, name := range s.cats {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}
