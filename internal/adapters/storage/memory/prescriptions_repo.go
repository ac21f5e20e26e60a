package memory

import (
	"context"
	"errors"
	"sort"
	"strings"

	"pharmabot/internal/domain/prescriptions"
)

type prescriptionRepo struct {
	s *Store
}

func NewPrescriptionRepo(s *Store) prescriptions.Repository {
	return &prescriptionRepo{s: s}
}

func (r *prescriptionRepo) Create(ctx context.Context, p prescriptions.Prescription) error {
	defer r.s.lock(ctx)()

	if strings.TrimSpace(p.ID) == "" {
		return errors.New("prescription id required")
	}
	if _, exists := r.s.prescriptions[p.ID]; exists {
		return errors.New("prescription already exists")
	}
	r.s.prescriptions[p.ID] = p
	return nil
}

func (r *prescriptionRepo) GetByID(ctx context.Context, id string) (prescriptions.Prescription, error) {
	defer r.s.rlock(ctx)()

	p, ok := r.s.prescriptions[id]
	if !ok {
		return prescriptions.Prescription{}, prescriptions.ErrNotFound
	}
	return p, nil
}

// ListByOwner: más recientes primero.
func (r *prescriptionRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]prescriptions.Prescription, error) {
	defer r.s.rlock(ctx)()

	out := make([]prescriptions.Prescription, 0)
	for _, p := range r.s.prescriptions {
		if p.OwnerUserID == ownerUserID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *prescriptionRepo) CreateMedicines(ctx context.Context, items []prescriptions.Medicine) error {
	defer r.s.lock(ctx)()

	for _, m := range items {
		if strings.TrimSpace(m.ID) == "" {
			return errors.New("medicine id required")
		}
		if _, exists := r.s.medicines[m.ID]; exists {
			return errors.New("medicine already exists")
		}
	}
	for _, m := range items {
		r.s.medicines[m.ID] = m
	}
	return nil
}

func (r *prescriptionRepo) GetMedicine(ctx context.Context, id string) (prescriptions.Medicine, error) {
	defer r.s.rlock(ctx)()

	m, ok := r.s.medicines[id]
	if !ok {
		return prescriptions.Medicine{}, prescriptions.ErrNotFound
	}
	return m, nil
}

func (r *prescriptionRepo) UpdateMedicine(ctx context.Context, m prescriptions.Medicine) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.medicines[m.ID]; !ok {
		return prescriptions.ErrNotFound
	}
	r.s.medicines[m.ID] = m
	return nil
}

func (r *prescriptionRepo) ListMedicinesByPrescription(ctx context.Context, prescriptionID string) ([]prescriptions.Medicine, error) {
	defer r.s.rlock(ctx)()

	out := make([]prescriptions.Medicine, 0)
	for _, m := range r.s.medicines {
		if m.PrescriptionID == prescriptionID {
			out = append(out, m)
		}
	}
	sortMedicines(out)
	return out, nil
}

func (r *prescriptionRepo) ListMedicinesByOwner(ctx context.Context, ownerUserID string) ([]prescriptions.Medicine, error) {
	defer r.s.rlock(ctx)()

	out := make([]prescriptions.Medicine, 0)
	for _, m := range r.s.medicines {
		if m.OwnerUserID == ownerUserID {
			out = append(out, m)
		}
	}
	sortMedicines(out)
	return out, nil
}

// Mismo orden que el adapter SQL: created_at, position, id.
func sortMedicines(items []prescriptions.Medicine) {
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.ID < b.ID
	})
}
