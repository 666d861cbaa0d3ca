// Package postgres provides the GORM-based implementation of the unit of
// work and its repositories. A unit of work owns one transaction at a time;
// repositories created from it run inside that transaction. Aggregates the
// repositories load or add are tracked, so the message bus can drain the
// domain events they record, and every event pending at commit time is
// appended to the allocation_events history inside the same transaction.
package postgres

import (
	"context"

	"allocation/internal/adapters/out/postgres/eventlog"
	"allocation/internal/adapters/out/postgres/productrepo"
	"allocation/internal/adapters/out/postgres/viewrepo"
	"allocation/internal/core/application/messages"
	"allocation/internal/core/domain/model/product"
	"allocation/internal/core/ports"

	"gorm.io/gorm"
)

// GormUnitOfWorkFactory creates unit of work instances over one shared
// connection pool. Every bus invocation gets a fresh instance, so
// concurrent invocations never share a transaction handle or a tracked
// aggregate list.
type GormUnitOfWorkFactory struct {
	db *gorm.DB
}

// NewGormUnitOfWorkFactory creates a factory over the database connection.
func NewGormUnitOfWorkFactory(db *gorm.DB) *GormUnitOfWorkFactory {
	return &GormUnitOfWorkFactory{db: db}
}

// Create returns a new unit of work sharing the factory's connection pool.
func (f *GormUnitOfWorkFactory) Create() ports.UnitOfWork {
	return NewGormUnitOfWork(f.db)
}

// GormUnitOfWork implements ports.UnitOfWork over a GORM connection.
// One instance is threaded through one bus invocation; each handler opens
// its own Begin/Commit scope against it.
type GormUnitOfWork struct {
	db   *gorm.DB
	tx   *gorm.DB
	seen []*product.Product
}

// NewGormUnitOfWork creates a unit of work over the database connection.
func NewGormUnitOfWork(db *gorm.DB) *GormUnitOfWork {
	return &GormUnitOfWork{db: db}
}

// Begin starts a transaction. Beginning inside an open transaction is a
// no-op, so nested handler scopes do not stack transactions.
func (uow *GormUnitOfWork) Begin(ctx context.Context) error {
	if uow.tx != nil {
		return nil
	}

	tx := uow.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}

	uow.tx = tx
	return nil
}

// Commit appends the events pending on tracked aggregates to the
// allocation_events history, then commits. History rows and domain writes
// land atomically or not at all.
func (uow *GormUnitOfWork) Commit(_ context.Context) error {
	if uow.tx == nil {
		return gorm.ErrInvalidTransaction
	}

	for _, p := range uow.seen {
		if err := eventlog.Append(uow.tx, p.PendingEvents()); err != nil {
			rollbackErr := uow.tx.Rollback().Error
			uow.tx = nil
			if rollbackErr != nil {
				return rollbackErr
			}
			return err
		}
	}

	err := uow.tx.Commit().Error
	uow.tx = nil
	return err
}

// Rollback discards the current transaction.
func (uow *GormUnitOfWork) Rollback(_ context.Context) error {
	if uow.tx == nil {
		return gorm.ErrInvalidTransaction
	}

	err := uow.tx.Rollback().Error
	uow.tx = nil
	return err
}

// ProductRepository returns a product repository bound to the current
// transaction, or to the main connection outside one.
func (uow *GormUnitOfWork) ProductRepository() ports.ProductRepository {
	return productrepo.NewGormProductRepository(uow.conn(), uow)
}

// AllocationViewRepository returns the read-model store bound to the
// current transaction, or to the main connection outside one.
func (uow *GormUnitOfWork) AllocationViewRepository() ports.AllocationViewRepository {
	return viewrepo.NewGormAllocationViewRepository(uow.conn())
}

// CollectNewEvents drains events from every tracked aggregate, in tracking
// order, each event exactly once. Events survive rollback: they live on the
// in-memory aggregates, not in the transaction.
func (uow *GormUnitOfWork) CollectNewEvents() []messages.Event {
	var out []messages.Event
	for _, p := range uow.seen {
		out = append(out, p.CollectEvents()...)
	}
	return out
}

// TrackAggregate registers a product as seen by this unit of work.
// Repositories call it from Add, Get and Update.
func (uow *GormUnitOfWork) TrackAggregate(p *product.Product) {
	for _, existing := range uow.seen {
		if existing == p {
			return
		}
	}
	uow.seen = append(uow.seen, p)
}

func (uow *GormUnitOfWork) conn() *gorm.DB {
	if uow.tx != nil {
		return uow.tx
	}
	return uow.db
}
