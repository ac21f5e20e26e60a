package prescriptions

import (
	"context"
	"errors"
	"strings"
	"time"

	"pharmabot/internal/domain/schedules"
	"pharmabot/internal/domain/timing"
	"pharmabot/internal/platform/clock"
	"pharmabot/internal/ports/tx"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
)

// MaxCompartments es la cantidad de slots físicos del dispensador.
const MaxCompartments = 3

type Service struct {
	repo  Repository
	doses schedules.Repository
	tx    tx.Transactor
	now   func() time.Time
}

func NewService(repo Repository, doses schedules.Repository, t tx.Transactor) *Service {
	if t == nil {
		t = tx.None
	}
	return &Service{
		repo:  repo,
		doses: doses,
		tx:    t,
		now:   clock.Now,
	}
}

type CreateResult struct {
	Prescription Prescription
	Medicines    []Medicine
	DosesCreated int
}

// Create valida el registro del extractor y, en una sola transacción, guarda
// la receta, sus medicamentos y todas las tomas materializadas. Nada queda
// persistido si algo falla.
func (s *Service) Create(ctx context.Context, ownerUserID string, rec ParsedRecord, raw string) (CreateResult, error) {
	ownerUserID = strings.TrimSpace(ownerUserID)
	if ownerUserID == "" {
		return CreateResult{}, ErrInvalidInput
	}
	if err := Validate(rec); err != nil {
		return CreateResult{}, err
	}

	now := s.now()
	p := Prescription{
		ID:            uuid.NewString(),
		OwnerUserID:   ownerUserID,
		DoctorName:    cleanNullish(rec.DoctorName),
		PatientName:   cleanNullish(rec.PatientName),
		PatientAge:    cleanNullish(rec.PatientAge),
		PatientGender: cleanNullish(rec.PatientGender),
		ParsedData:    raw,
		Active:        true,
		CreatedAt:     now,
	}
	if d := cleanNullish(rec.PrescriptionDate); d != "" {
		t, err := clock.ParseDate(d)
		if err != nil {
			return CreateResult{}, &ValidationError{Index: -1, Field: "prescription_date", Reason: "must be YYYY-MM-DD"}
		}
		p.PrescriptionDate = &t
	}

	meds := lo.Map(rec.Medicines, func(m ParsedMedicine, i int) Medicine {
		return Medicine{
			ID:             uuid.NewString(),
			PrescriptionID: p.ID,
			OwnerUserID:    ownerUserID,
			Name:           strings.TrimSpace(m.Name),
			Dosage:         strings.TrimSpace(m.Dosage),
			Frequency:      strings.TrimSpace(m.Frequency),
			Duration:       cleanNullish(m.Duration),
			Instructions:   cleanNullish(m.Instructions),
			Timing:         cleanNullish(m.Timing),
			Position:       i,
			Active:         true,
			CreatedAt:      now,
		}
	})

	anchor := schedules.AnchorFor(p.PrescriptionDate, now)
	total := 0

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, p); err != nil {
			return err
		}
		if err := s.repo.CreateMedicines(ctx, meds); err != nil {
			return err
		}
		for _, m := range meds {
			batch := schedules.Materialize(timingOf(m), ownerUserID, anchor, now)
			if err := s.doses.CreateBatch(ctx, batch); err != nil {
				return err
			}
			total += len(batch)
		}
		return nil
	})
	if err != nil {
		return CreateResult{}, err
	}

	return CreateResult{Prescription: p, Medicines: meds, DosesCreated: total}, nil
}

func (s *Service) GetByID(ctx context.Context, id, ownerUserID string) (Prescription, []Medicine, error) {
	p, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return Prescription{}, nil, err
	}
	if p.OwnerUserID != ownerUserID {
		return Prescription{}, nil, ErrNotFound
	}
	meds, err := s.repo.ListMedicinesByPrescription(ctx, p.ID)
	if err != nil {
		return Prescription{}, nil, err
	}
	return p, meds, nil
}

func (s *Service) ListByOwner(ctx context.Context, ownerUserID string) ([]Prescription, error) {
	if strings.TrimSpace(ownerUserID) == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByOwner(ctx, ownerUserID)
}

func (s *Service) GetMedicine(ctx context.Context, id, ownerUserID string) (Medicine, error) {
	m, err := s.repo.GetMedicine(ctx, strings.TrimSpace(id))
	if err != nil {
		return Medicine{}, err
	}
	if m.OwnerUserID != ownerUserID {
		return Medicine{}, ErrNotFound
	}
	return m, nil
}

type RegenerateResult struct {
	Medicine Medicine
	Deleted  int
	Created  int
	Anchor   time.Time
}

// Regenerate borra la porción futura no tomada de las tomas del medicamento y
// vuelve a materializar desde newAnchor (hoy si es nil). Las tomas pasadas y
// las ya tomadas no se tocan.
func (s *Service) Regenerate(ctx context.Context, medicineID, ownerUserID string, newAnchor *time.Time) (RegenerateResult, error) {
	var out RegenerateResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		m, err := s.GetMedicine(ctx, medicineID, ownerUserID)
		if err != nil {
			return err
		}
		out, err = s.regenerate(ctx, m, newAnchor)
		return err
	})
	return out, err
}

func (s *Service) regenerate(ctx context.Context, m Medicine, newAnchor *time.Time) (RegenerateResult, error) {
	now := s.now()
	anchor := schedules.AnchorFor(newAnchor, now)

	deleted, err := s.doses.DeleteFutureUntaken(ctx, m.ID, m.OwnerUserID, now)
	if err != nil {
		return RegenerateResult{}, err
	}
	// Lo anterior a now sigue en la tabla (historial); sólo se recrea el futuro.
	batch := lo.Filter(schedules.Materialize(timingOf(m), m.OwnerUserID, anchor, now), func(d schedules.DoseInstance, _ int) bool {
		return !d.ScheduledTime.Before(now)
	})
	if err := s.doses.CreateBatch(ctx, batch); err != nil {
		return RegenerateResult{}, err
	}
	return RegenerateResult{Medicine: m, Deleted: deleted, Created: len(batch), Anchor: anchor}, nil
}

type UpdateTimingInput struct {
	// nil = no tocar
	Frequency *string
	Duration  *string
	Timing    *string
}

// UpdateTiming edita los textos crudos y regenera desde hoy.
func (s *Service) UpdateTiming(ctx context.Context, medicineID, ownerUserID string, in UpdateTimingInput) (RegenerateResult, error) {
	if in.Frequency != nil && strings.TrimSpace(*in.Frequency) == "" {
		return RegenerateResult{}, ErrInvalidInput
	}
	if in.Duration != nil && timing.DurationTooLong(*in.Duration) {
		return RegenerateResult{}, &ValidationError{Index: -1, Field: "duration", Reason: durationTooLongReason}
	}

	var out RegenerateResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		m, err := s.GetMedicine(ctx, medicineID, ownerUserID)
		if err != nil {
			return err
		}
		if in.Frequency != nil {
			m.Frequency = strings.TrimSpace(*in.Frequency)
		}
		if in.Duration != nil {
			m.Duration = strings.TrimSpace(*in.Duration)
		}
		if in.Timing != nil {
			m.Timing = strings.TrimSpace(*in.Timing)
		}
		if err := s.repo.UpdateMedicine(ctx, m); err != nil {
			return err
		}
		out, err = s.regenerate(ctx, m, nil)
		return err
	})
	return out, err
}

// AssignCompartment asigna un slot (0 libera). Un slot ocupado por otro
// medicamento activo del mismo usuario es ErrInvalidState.
func (s *Service) AssignCompartment(ctx context.Context, medicineID, ownerUserID string, compartment int) (Medicine, error) {
	if compartment < 0 || compartment > MaxCompartments {
		return Medicine{}, ErrInvalidInput
	}

	var out Medicine
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		m, err := s.GetMedicine(ctx, medicineID, ownerUserID)
		if err != nil {
			return err
		}
		if compartment != 0 {
			all, err := s.repo.ListMedicinesByOwner(ctx, ownerUserID)
			if err != nil {
				return err
			}
			for _, other := range all {
				if other.ID != m.ID && other.Active && other.CompartmentNumber == compartment {
					return ErrInvalidState
				}
			}
		}
		m.CompartmentNumber = compartment
		if err := s.repo.UpdateMedicine(ctx, m); err != nil {
			return err
		}
		out = m
		return nil
	})
	return out, err
}

// AutoAssignCompartments reparte los slots libres entre los medicamentos sin
// asignar de la receta. Si no alcanzan los slots no asigna ninguno.
func (s *Service) AutoAssignCompartments(ctx context.Context, prescriptionID, ownerUserID string) ([]Medicine, error) {
	var out []Medicine
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		_, meds, err := s.GetByID(ctx, prescriptionID, ownerUserID)
		if err != nil {
			return err
		}
		all, err := s.repo.ListMedicinesByOwner(ctx, ownerUserID)
		if err != nil {
			return err
		}

		used := map[int]struct{}{}
		for _, m := range all {
			if m.Active && schedules.ValidCompartment(m.CompartmentNumber) {
				used[m.CompartmentNumber] = struct{}{}
			}
		}
		free := make([]int, 0, MaxCompartments)
		for n := 1; n <= MaxCompartments; n++ {
			if _, ok := used[n]; !ok {
				free = append(free, n)
			}
		}

		pending := lo.Filter(meds, func(m Medicine, _ int) bool {
			return m.Active && m.CompartmentNumber == 0
		})
		if len(pending) > len(free) {
			return ErrInvalidState
		}

		for i := range pending {
			pending[i].CompartmentNumber = free[i]
			if err := s.repo.UpdateMedicine(ctx, pending[i]); err != nil {
				return err
			}
		}

		out, err = s.repo.ListMedicinesByPrescription(ctx, prescriptionID)
		return err
	})
	return out, err
}

// MedicinesForOwner implementa schedules.MedicineLookup.
func (s *Service) MedicinesForOwner(ctx context.Context, ownerUserID string) ([]schedules.MedicineInfo, error) {
	meds, err := s.repo.ListMedicinesByOwner(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}
	return lo.Map(meds, func(m Medicine, _ int) schedules.MedicineInfo {
		return schedules.MedicineInfo{
			ID:                m.ID,
			Name:              m.Name,
			Dosage:            m.Dosage,
			Instructions:      m.Instructions,
			CompartmentNumber: m.CompartmentNumber,
			Active:            m.Active,
		}
	}), nil
}

func timingOf(m Medicine) schedules.MedicineTiming {
	return schedules.MedicineTiming{ID: m.ID, Frequency: m.Frequency, Duration: m.Duration}
}

func cleanNullish(s string) string {
	s = strings.TrimSpace(s)
	if isNullish(s) {
		return ""
	}
	return s
}
