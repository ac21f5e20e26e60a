package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"pharmabot/internal/domain/schedules"
)

type scheduleRepo struct {
	s *Store
}

func NewScheduleRepo(s *Store) schedules.Repository {
	return &scheduleRepo{s: s}
}

func (r *scheduleRepo) CreateBatch(ctx context.Context, items []schedules.DoseInstance) error {
	defer r.s.lock(ctx)()

	for _, d := range items {
		if strings.TrimSpace(d.ID) == "" {
			return errors.New("schedule id required")
		}
		if _, exists := r.s.doses[d.ID]; exists {
			return errors.New("schedule already exists")
		}
	}
	for _, d := range items {
		r.s.doses[d.ID] = d
	}
	return nil
}

func (r *scheduleRepo) GetByID(ctx context.Context, id string) (schedules.DoseInstance, error) {
	defer r.s.rlock(ctx)()

	d, ok := r.s.doses[id]
	if !ok {
		return schedules.DoseInstance{}, schedules.ErrNotFound
	}
	return d, nil
}

func (r *scheduleRepo) Update(ctx context.Context, d schedules.DoseInstance) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.doses[d.ID]; !ok {
		return schedules.ErrNotFound
	}
	r.s.doses[d.ID] = d
	return nil
}

func (r *scheduleRepo) Delete(ctx context.Context, id string) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.doses[id]; !ok {
		return schedules.ErrNotFound
	}
	delete(r.s.doses, id)
	return nil
}

func (r *scheduleRepo) DeleteFutureUntaken(ctx context.Context, medicineID, ownerUserID string, from time.Time) (int, error) {
	defer r.s.lock(ctx)()

	n := 0
	for id, d := range r.s.doses {
		if d.MedicineID != medicineID || d.OwnerUserID != ownerUserID {
			continue
		}
		if d.Taken || d.ScheduledTime.Before(from) {
			continue
		}
		delete(r.s.doses, id)
		n++
	}
	return n, nil
}

func (r *scheduleRepo) ListByOwner(ctx context.Context, ownerUserID string, filter schedules.ListFilter) ([]schedules.DoseInstance, error) {
	defer r.s.rlock(ctx)()

	out := make([]schedules.DoseInstance, 0)
	for _, d := range r.s.doses {
		if d.OwnerUserID == ownerUserID && filter.Matches(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ScheduledTime.Equal(out[j].ScheduledTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].ScheduledTime.Before(out[j].ScheduledTime)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}
