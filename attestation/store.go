package attestation

import (
	"sync"

	"github.com/BitcoinSchema/go-zk-attest/types"
)

// store keeps attestations in insertion order, keyed by id.
type store struct {
	mu    sync.RWMutex
	byID  map[string]*types.Attestation
	order []string
}

func newStore() *store {
	return &store{byID: map[string]*types.Attestation{}}
}

func (s *store) has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byID[id]
	return ok
}

// add inserts a copy of a; it reports false when the id is taken.
func (s *store) add(a types.Attestation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[a.Id]; ok {
		return false
	}
	cp := a.Clone()
	s.byID[a.Id] = &cp
	s.order = append(s.order, a.Id)
	return true
}

func (s *store) get(id string) (types.Attestation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[id]
	if !ok {
		return types.Attestation{}, false
	}
	return a.Clone(), true
}

// settle moves a pending record to status. Terminal records are left alone.
func (s *store) settle(id string, status types.AttestationStatus) (types.Attestation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return types.Attestation{}, false
	}
	if !a.Status.Terminal() {
		a.Status = status
	}
	return a.Clone(), true
}

func (s *store) filter(match func(*types.Attestation) bool) []types.Attestation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Attestation, 0)
	for _, id := range s.order {
		if a := s.byID[id]; match(a) {
			out = append(out, a.Clone())
		}
	}
	return out
}

func (s *store) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
