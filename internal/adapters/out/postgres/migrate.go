package postgres

import (
	"allocation/internal/adapters/out/postgres/eventlog"
	"allocation/internal/adapters/out/postgres/productrepo"
	"allocation/internal/adapters/out/postgres/viewrepo"

	"gorm.io/gorm"
)

// Migrate creates or updates the schema for every table this adapter owns:
// the write-side product tables, the allocations read model and the event
// log. Safe to call on every startup.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&productrepo.ProductDTO{},
		&productrepo.BatchDTO{},
		&productrepo.AllocationLineDTO{},
		&viewrepo.AllocationViewDTO{},
		&eventlog.EventDTO{},
	)
}
