package schedules

import (
	"context"
	"time"
)

type Repository interface {
	CreateBatch(ctx context.Context, items []DoseInstance) error
	GetByID(ctx context.Context, id string) (DoseInstance, error)
	Update(ctx context.Context, d DoseInstance) error
	Delete(ctx context.Context, id string) error

	// DeleteFutureUntaken borra las tomas de (medicine, owner) con
	// scheduled_time >= from y taken = false. Devuelve cuántas borró.
	DeleteFutureUntaken(ctx context.Context, medicineID, ownerUserID string, from time.Time) (int, error)

	ListByOwner(ctx context.Context, ownerUserID string, filter ListFilter) ([]DoseInstance, error)
}

// ListFilter: From inclusive, To exclusivo. Orden por scheduled_time asc.
type ListFilter struct {
	From        *time.Time
	To          *time.Time
	MedicineID  string
	PendingOnly bool
	Limit       int
}

// Matches aplica el filtro en memoria (usado por el adapter in-memory y en tests).
func (f ListFilter) Matches(d DoseInstance) bool {
	if f.From != nil && d.ScheduledTime.Before(*f.From) {
		return false
	}
	if f.To != nil && !d.ScheduledTime.Before(*f.To) {
		return false
	}
	if f.MedicineID != "" && d.MedicineID != f.MedicineID {
		return false
	}
	if f.PendingOnly && d.State() != StatePending {
		return false
	}
	return true
}
