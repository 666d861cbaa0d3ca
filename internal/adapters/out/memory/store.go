// Package memory provides in-memory implementations of the persistence
// ports. The bootstrap wires them in place of the Postgres adapters for
// tests and local experiments; they honor the same tracking, draining and
// idempotency contracts as the real adapters.
package memory

import (
	"context"
	"sort"
	"sync"

	"allocation/internal/core/application/messages"
	"allocation/internal/core/domain/model/product"
	"allocation/internal/core/ports"
)

// Store is the shared in-memory backing state: products by SKU, the
// allocations view and the committed event history. A Store outlives the
// unit-of-work scopes opened against it.
type Store struct {
	mu       sync.Mutex
	products map[string]*product.Product
	views    map[viewKey]ports.Allocation
	history  []messages.Event
}

type viewKey struct {
	orderID string
	sku     string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		products: make(map[string]*product.Product),
		views:    make(map[viewKey]ports.Allocation),
	}
}

// History returns the committed events in insertion order.
func (s *Store) History(_ context.Context) ([]messages.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]messages.Event, len(s.history))
	copy(out, s.history)
	return out, nil
}

func (s *Store) appendHistory(events []messages.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, events...)
}

func (s *Store) getProduct(sku string) (*product.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[sku]
	return p, ok
}

func (s *Store) getProductByBatchRef(ref string) (*product.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.products {
		for _, b := range p.Batches() {
			if b.Ref() == ref {
				return p, true
			}
		}
	}
	return nil, false
}

func (s *Store) putProduct(p *product.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.SKU()] = p
}

func (s *Store) upsertView(a ports.Allocation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views[viewKey{orderID: a.OrderID, sku: a.SKU}] = a
}

func (s *Store) removeView(orderID, sku string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.views, viewKey{orderID: orderID, sku: sku})
}

func (s *Store) viewsForOrder(orderID string) []ports.Allocation {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []ports.Allocation
	for key, a := range s.views {
		if key.orderID == orderID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out
}

func (s *Store) clearViews() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views = make(map[viewKey]ports.Allocation)
}
