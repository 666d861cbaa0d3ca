// Package eventlog persists committed domain events to the allocation_events
// table. The log is append-only and lives in the same transaction as the
// write-side changes, so history and state cannot diverge. Replaying it
// rebuilds the allocations read model from scratch.
package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"allocation/internal/core/application/messages"

	"gorm.io/gorm"
)

// EventDTO is a stored domain event. Payload is the JSON encoding of the
// event struct; Name selects the type on replay.
type EventDTO struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	Name      string    `gorm:"not null"`
	Payload   []byte    `gorm:"type:jsonb;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName implements gorm schema.Tabler.
func (EventDTO) TableName() string { return "allocation_events" }

// Append writes events to the log in order, within the given transaction.
func Append(tx *gorm.DB, events []messages.Event) error {
	if len(events) == 0 {
		return nil
	}

	dtos := make([]EventDTO, 0, len(events))
	now := time.Now().UTC()
	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("eventlog: marshal %s: %w", e.Name(), err)
		}
		dtos = append(dtos, EventDTO{Name: e.Name(), Payload: payload, CreatedAt: now})
	}

	return tx.Create(&dtos).Error
}

// GormEventLog reads the event history back for replay.
type GormEventLog struct {
	db *gorm.DB
}

// NewGormEventLog creates an event log reader over db.
func NewGormEventLog(db *gorm.DB) *GormEventLog {
	return &GormEventLog{db: db}
}

// History returns every logged event in insertion order.
func (l *GormEventLog) History(ctx context.Context) ([]messages.Event, error) {
	var dtos []EventDTO
	if err := l.db.WithContext(ctx).Order("id").Find(&dtos).Error; err != nil {
		return nil, err
	}

	events := make([]messages.Event, 0, len(dtos))
	for _, dto := range dtos {
		event, err := decode(dto)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

func decode(dto EventDTO) (messages.Event, error) {
	switch dto.Name {
	case messages.AllocatedName:
		var e messages.Allocated
		if err := json.Unmarshal(dto.Payload, &e); err != nil {
			return nil, fmt.Errorf("eventlog: decode %s #%d: %w", dto.Name, dto.ID, err)
		}
		return e, nil
	case messages.DeallocatedName:
		var e messages.Deallocated
		if err := json.Unmarshal(dto.Payload, &e); err != nil {
			return nil, fmt.Errorf("eventlog: decode %s #%d: %w", dto.Name, dto.ID, err)
		}
		return e, nil
	case messages.OutOfStockName:
		var e messages.OutOfStock
		if err := json.Unmarshal(dto.Payload, &e); err != nil {
			return nil, fmt.Errorf("eventlog: decode %s #%d: %w", dto.Name, dto.ID, err)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("eventlog: unknown event name %q (#%d)", dto.Name, dto.ID)
	}
}
