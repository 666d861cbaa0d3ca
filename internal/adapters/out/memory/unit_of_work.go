package memory

import (
	"context"
	"errors"

	"allocation/internal/core/application/messages"
	"allocation/internal/core/domain/model/product"
	"allocation/internal/core/ports"
	"allocation/internal/pkg/errs"
)

// ErrNoTransaction is returned by Commit and Rollback outside a Begin scope.
var ErrNoTransaction = errors.New("memory: no active transaction")

// UnitOfWorkFactory creates fresh units of work over one shared store, one
// per bus invocation, mirroring the Postgres factory.
type UnitOfWorkFactory struct {
	store *Store
}

// NewUnitOfWorkFactory creates a factory over the store.
func NewUnitOfWorkFactory(store *Store) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{store: store}
}

// Create returns a new unit of work sharing the factory's store.
func (f *UnitOfWorkFactory) Create() ports.UnitOfWork {
	return NewUnitOfWork(f.store)
}

// UnitOfWork is the in-memory ports.UnitOfWork. There is no real
// transaction isolation; what it faithfully reproduces is the lifecycle:
// idempotent Begin, commit-time history logging, aggregate tracking and the
// exactly-once event drain.
type UnitOfWork struct {
	store *Store

	inTx      bool
	seen      []*product.Product
	committed int
}

// NewUnitOfWork creates a unit of work over the store.
func NewUnitOfWork(store *Store) *UnitOfWork {
	return &UnitOfWork{store: store}
}

// Begin opens a scope. Beginning inside an open scope is a no-op, matching
// the Postgres implementation.
func (u *UnitOfWork) Begin(_ context.Context) error {
	u.inTx = true
	return nil
}

// Commit closes the scope and appends the facts recorded by tracked
// aggregates to the committed history.
func (u *UnitOfWork) Commit(_ context.Context) error {
	if !u.inTx {
		return ErrNoTransaction
	}

	var pending []messages.Event
	for _, p := range u.seen {
		pending = append(pending, p.PendingEvents()...)
	}
	u.store.appendHistory(pending)

	u.inTx = false
	u.committed++
	return nil
}

// Rollback closes the scope, discarding nothing (the fake has no real
// transaction), but still errors outside a scope so lifecycle bugs show up
// in tests.
func (u *UnitOfWork) Rollback(_ context.Context) error {
	if !u.inTx {
		return ErrNoTransaction
	}

	u.inTx = false
	return nil
}

// Commits reports how many scopes committed. Test helper.
func (u *UnitOfWork) Commits() int { return u.committed }

// ProductRepository returns the tracking product repository.
func (u *UnitOfWork) ProductRepository() ports.ProductRepository {
	return &productRepository{uow: u}
}

// AllocationViewRepository returns the in-memory view store.
func (u *UnitOfWork) AllocationViewRepository() ports.AllocationViewRepository {
	return &viewRepository{store: u.store}
}

// CollectNewEvents drains events from every tracked aggregate, in tracking
// order, each event exactly once. Events recorded by a rolled-back scope
// are still returned: the domain decided them, and facts like OutOfStock
// matter even when nothing was written.
func (u *UnitOfWork) CollectNewEvents() []messages.Event {
	var out []messages.Event
	for _, p := range u.seen {
		out = append(out, p.CollectEvents()...)
	}
	return out
}

func (u *UnitOfWork) track(p *product.Product) {
	for _, existing := range u.seen {
		if existing == p {
			return
		}
	}
	u.seen = append(u.seen, p)
}

type productRepository struct {
	uow *UnitOfWork
}

func (r *productRepository) Add(_ context.Context, p *product.Product) error {
	if err := p.Validate(); err != nil {
		return err
	}

	r.uow.store.putProduct(p)
	r.uow.track(p)
	return nil
}

func (r *productRepository) Get(_ context.Context, sku string) (*product.Product, error) {
	p, ok := r.uow.store.getProduct(sku)
	if !ok {
		return nil, errs.NewObjectNotFoundError("sku", sku)
	}

	r.uow.track(p)
	return p, nil
}

func (r *productRepository) GetByBatchRef(_ context.Context, ref string) (*product.Product, error) {
	p, ok := r.uow.store.getProductByBatchRef(ref)
	if !ok {
		return nil, errs.NewObjectNotFoundError("batchref", ref)
	}

	r.uow.track(p)
	return p, nil
}

func (r *productRepository) Update(_ context.Context, p *product.Product) error {
	if err := p.Validate(); err != nil {
		return err
	}

	r.uow.store.putProduct(p)
	r.uow.track(p)
	return nil
}

type viewRepository struct {
	store *Store
}

func (r *viewRepository) Add(_ context.Context, a ports.Allocation) error {
	r.store.upsertView(a)
	return nil
}

func (r *viewRepository) Remove(_ context.Context, orderID, sku string) error {
	r.store.removeView(orderID, sku)
	return nil
}

func (r *viewRepository) ForOrder(_ context.Context, orderID string) ([]ports.Allocation, error) {
	return r.store.viewsForOrder(orderID), nil
}

func (r *viewRepository) Clear(_ context.Context) error {
	r.store.clearViews()
	return nil
}
