// Package productrepo persists Product aggregates. The aggregate maps to
// three tables: products (one row per SKU, with the optimistic-concurrency
// version), batches and allocations (the order lines held by each batch).
package productrepo

import (
	"time"

	"allocation/internal/core/domain/model/product"
)

// ProductDTO is the products table row.
type ProductDTO struct {
	SKU     string `gorm:"primaryKey;column:sku"`
	Version int
}

// TableName overrides GORM's default naming.
func (ProductDTO) TableName() string {
	return "products"
}

// BatchDTO is the batches table row.
type BatchDTO struct {
	Ref          string `gorm:"primaryKey"`
	SKU          string `gorm:"column:sku;index"`
	PurchasedQty int
	ETA          *time.Time `gorm:"column:eta"`
}

// TableName overrides GORM's default naming.
func (BatchDTO) TableName() string {
	return "batches"
}

// AllocationLineDTO is the allocations table row: one order line allocated
// to one batch.
type AllocationLineDTO struct {
	BatchRef string `gorm:"primaryKey"`
	OrderID  string `gorm:"primaryKey;column:order_id"`
	SKU      string `gorm:"primaryKey;column:sku"`
	Qty      int
	Position int `gorm:"column:position"`
}

// TableName overrides GORM's default naming.
func (AllocationLineDTO) TableName() string {
	return "allocations"
}

// fromDomain flattens a product aggregate into its table rows. Position
// preserves allocation order so restore keeps deallocation LIFO semantics.
func fromDomain(p *product.Product) (ProductDTO, []BatchDTO, []AllocationLineDTO) {
	productDTO := ProductDTO{SKU: p.SKU(), Version: p.Version()}

	var batches []BatchDTO
	var lines []AllocationLineDTO
	for _, b := range p.Batches() {
		batches = append(batches, BatchDTO{
			Ref:          b.Ref(),
			SKU:          b.SKU(),
			PurchasedQty: b.PurchasedQty(),
			ETA:          b.ETA(),
		})

		for i, line := range b.Allocations() {
			lines = append(lines, AllocationLineDTO{
				BatchRef: b.Ref(),
				OrderID:  line.OrderID(),
				SKU:      line.SKU(),
				Qty:      line.Qty(),
				Position: i,
			})
		}
	}

	return productDTO, batches, lines
}

// toDomain rebuilds the aggregate from its table rows.
func toDomain(dto ProductDTO, batchDTOs []BatchDTO, lineDTOs []AllocationLineDTO) (*product.Product, error) {
	linesByBatch := make(map[string][]AllocationLineDTO)
	for _, line := range lineDTOs {
		linesByBatch[line.BatchRef] = append(linesByBatch[line.BatchRef], line)
	}

	batches := make([]*product.Batch, 0, len(batchDTOs))
	for _, batchDTO := range batchDTOs {
		var allocations []product.OrderLine
		for _, lineDTO := range linesByBatch[batchDTO.Ref] {
			line, err := product.NewOrderLine(lineDTO.OrderID, lineDTO.SKU, lineDTO.Qty)
			if err != nil {
				return nil, err
			}
			allocations = append(allocations, line)
		}

		batch, err := product.RestoreBatch(
			batchDTO.Ref,
			batchDTO.SKU,
			batchDTO.PurchasedQty,
			batchDTO.ETA,
			allocations,
		)
		if err != nil {
			return nil, err
		}
		batches = append(batches, batch)
	}

	return product.RestoreProduct(dto.SKU, batches, dto.Version)
}
