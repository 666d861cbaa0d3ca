package productrepo

import (
	"context"
	"errors"

	"allocation/internal/core/domain/model/product"
	"allocation/internal/pkg/errs"

	"gorm.io/gorm"
)

// ErrConcurrentUpdate is returned when an optimistic version check fails:
// another transaction updated the product since this aggregate was loaded.
var ErrConcurrentUpdate = errors.New("productrepo: product was updated concurrently")

// aggregateTracker is the unit-of-work interface the repository reports
// loaded and saved aggregates to, so their events can be collected.
type aggregateTracker interface {
	TrackAggregate(p *product.Product)
}

// GormProductRepository implements ports.ProductRepository using GORM.
type GormProductRepository struct {
	db      *gorm.DB
	tracker aggregateTracker
}

// NewGormProductRepository creates a repository bound to db, which is the
// unit of work's current transaction.
func NewGormProductRepository(db *gorm.DB, tracker aggregateTracker) *GormProductRepository {
	return &GormProductRepository{db: db, tracker: tracker}
}

// Add saves a new product aggregate and tracks it.
func (r *GormProductRepository) Add(ctx context.Context, p *product.Product) error {
	if err := p.Validate(); err != nil {
		return err
	}

	productDTO, batches, lines := fromDomain(p)
	db := r.db.WithContext(ctx)

	if err := db.Create(&productDTO).Error; err != nil {
		return err
	}
	if len(batches) > 0 {
		if err := db.Create(&batches).Error; err != nil {
			// The ref column is the primary key across all products, so a
			// collision with another SKU's batch surfaces here rather than
			// in the aggregate.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return product.ErrDuplicateBatchRef
			}
			return err
		}
	}
	if len(lines) > 0 {
		if err := db.Create(&lines).Error; err != nil {
			return err
		}
	}

	r.tracker.TrackAggregate(p)
	return nil
}

// Get loads the product for a SKU with its batches and allocations.
func (r *GormProductRepository) Get(ctx context.Context, sku string) (*product.Product, error) {
	db := r.db.WithContext(ctx)

	var dto ProductDTO
	if err := db.First(&dto, "sku = ?", sku).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("sku", sku)
		}
		return nil, err
	}

	p, err := r.load(db, dto)
	if err != nil {
		return nil, err
	}

	r.tracker.TrackAggregate(p)
	return p, nil
}

// GetByBatchRef loads the product owning the batch with the given reference.
func (r *GormProductRepository) GetByBatchRef(ctx context.Context, ref string) (*product.Product, error) {
	db := r.db.WithContext(ctx)

	var batch BatchDTO
	if err := db.First(&batch, "ref = ?", ref).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("batchref", ref)
		}
		return nil, err
	}

	return r.Get(ctx, batch.SKU)
}

// Update persists the aggregate's current state. The products row carries a
// version for optimistic concurrency: the update only applies if the stored
// version is older than the aggregate's, otherwise ErrConcurrentUpdate.
// Batches and allocations are replaced wholesale; the aggregate is small
// enough that diffing buys nothing.
func (r *GormProductRepository) Update(ctx context.Context, p *product.Product) error {
	if err := p.Validate(); err != nil {
		return err
	}

	productDTO, batches, lines := fromDomain(p)
	db := r.db.WithContext(ctx)

	result := db.Model(&ProductDTO{}).
		Where("sku = ? AND version < ?", productDTO.SKU, productDTO.Version).
		Update("version", productDTO.Version)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}

	if err := db.Where("sku = ?", productDTO.SKU).Delete(&AllocationLineDTO{}).Error; err != nil {
		return err
	}
	if err := db.Where("sku = ?", productDTO.SKU).Delete(&BatchDTO{}).Error; err != nil {
		return err
	}
	if len(batches) > 0 {
		if err := db.Create(&batches).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return product.ErrDuplicateBatchRef
			}
			return err
		}
	}
	if len(lines) > 0 {
		if err := db.Create(&lines).Error; err != nil {
			return err
		}
	}

	r.tracker.TrackAggregate(p)
	return nil
}

// load fetches the batch and allocation rows for a product row and rebuilds
// the aggregate. Allocations are ordered by position so restore preserves
// allocation order.
func (r *GormProductRepository) load(db *gorm.DB, dto ProductDTO) (*product.Product, error) {
	var batches []BatchDTO
	if err := db.Order("ref").Find(&batches, "sku = ?", dto.SKU).Error; err != nil {
		return nil, err
	}

	var lines []AllocationLineDTO
	if err := db.Order("batch_ref, position").Find(&lines, "sku = ?", dto.SKU).Error; err != nil {
		return nil, err
	}

	return toDomain(dto, batches, lines)
}
