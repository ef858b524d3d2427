package execstore

import (
	"sync"

	"github.com/joripage/marketsim/pkg/oms/model"
)

// InMemoryExecutionStore is an append-only ledger of fills keyed by order id.
// Per-order insertion order is preserved; records are never mutated.
type InMemoryExecutionStore struct {
	mu       sync.RWMutex
	byOrder  map[string][]*model.Execution
	orderSeq []string // order ids in first-execution order, for stable Find
}

func NewInMemoryExecutionStore() *InMemoryExecutionStore {
	return &InMemoryExecutionStore{
		byOrder: make(map[string][]*model.Execution),
	}
}

func (s *InMemoryExecutionStore) Append(exec *model.Execution) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byOrder[exec.OrderID]; !ok {
		s.orderSeq = append(s.orderSeq, exec.OrderID)
	}
	s.byOrder[exec.OrderID] = append(s.byOrder[exec.OrderID], exec)
}

func (s *InMemoryExecutionStore) ByOrder(orderID string) []*model.Execution {
	s.mu.RLock()
	defer s.mu.RUnlock()

	execs := s.byOrder[orderID]
	out := make([]*model.Execution, len(execs))
	copy(out, execs)
	return out
}

func (s *InMemoryExecutionStore) Find(q Query) []*model.Execution {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var candidates []*model.Execution
	if q.OrderID != "" {
		candidates = s.byOrder[q.OrderID]
	} else {
		for _, orderID := range s.orderSeq {
			candidates = append(candidates, s.byOrder[orderID]...)
		}
	}

	out := make([]*model.Execution, 0, len(candidates))
	for _, e := range candidates {
		if !q.Start.IsZero() && e.Timestamp.Before(q.Start) {
			continue
		}
		if !q.End.IsZero() && e.Timestamp.After(q.End) {
			continue
		}
		out = append(out, e)
	}
	return out
}
