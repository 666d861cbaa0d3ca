// Package viewrepo stores the denormalized allocations read model. It is
// written by event handlers after the write-side transaction commits and
// read by the allocations query, so the two sides never share tables.
package viewrepo

import (
	"context"

	"allocation/internal/core/ports"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllocationViewDTO is one row of the allocations_view table, keyed by
// {order_id, sku}. The batch reference is the only payload column.
type AllocationViewDTO struct {
	OrderID  string `gorm:"primaryKey;column:order_id"`
	SKU      string `gorm:"primaryKey;column:sku"`
	BatchRef string `gorm:"not null;column:batchref"`
}

// TableName implements gorm schema.Tabler.
func (AllocationViewDTO) TableName() string { return "allocations_view" }

// GormAllocationViewRepository implements ports.AllocationViewRepository
// on Postgres.
type GormAllocationViewRepository struct {
	db *gorm.DB
}

// NewGormAllocationViewRepository creates a view repository over db.
func NewGormAllocationViewRepository(db *gorm.DB) *GormAllocationViewRepository {
	return &GormAllocationViewRepository{db: db}
}

// Add upserts one allocation row. A redelivered Allocated event hits the
// conflict path and rewrites the same batch reference, so it is harmless.
func (r *GormAllocationViewRepository) Add(ctx context.Context, a ports.Allocation) error {
	dto := AllocationViewDTO{OrderID: a.OrderID, SKU: a.SKU, BatchRef: a.BatchRef}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}, {Name: "sku"}},
			DoUpdates: clause.AssignmentColumns([]string{"batchref"}),
		}).
		Create(&dto).Error
}

// Remove deletes the row matching {order_id, sku}. Deleting a missing row
// is a no-op, not an error.
func (r *GormAllocationViewRepository) Remove(ctx context.Context, orderID, sku string) error {
	return r.db.WithContext(ctx).
		Where("order_id = ? AND sku = ?", orderID, sku).
		Delete(&AllocationViewDTO{}).Error
}

// ForOrder returns the allocations for an order, sorted by SKU. An unknown
// order yields an empty slice.
func (r *GormAllocationViewRepository) ForOrder(ctx context.Context, orderID string) ([]ports.Allocation, error) {
	allocations := make([]ports.Allocation, 0)

	rows, err := r.db.WithContext(ctx).Raw(`
		SELECT
			order_id,
			sku,
			batchref
		FROM allocations_view
		WHERE order_id = ?
		ORDER BY sku
	`, orderID).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var a ports.Allocation
		if err := rows.Scan(&a.OrderID, &a.SKU, &a.BatchRef); err != nil {
			return nil, err
		}
		allocations = append(allocations, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return allocations, nil
}

// Clear empties the view store before an event-history replay.
func (r *GormAllocationViewRepository) Clear(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Where("1 = 1").
		Delete(&AllocationViewDTO{}).Error
}
