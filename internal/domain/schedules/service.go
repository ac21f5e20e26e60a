package schedules

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"pharmabot/internal/platform/clock"
	"pharmabot/internal/ports/tx"

	"github.com/samber/lo"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("schedule not found")
	ErrInvalidState = errors.New("invalid state")
)

const (
	// DeviceWindow es el horizonte que ve el dispensador.
	DeviceWindow = 7 * 24 * time.Hour

	defaultUpcomingLimit = 20
	maxUpcomingLimit     = 200
)

// MedicineLookup evita importar prescriptions (rompe ciclos).
type MedicineLookup interface {
	MedicinesForOwner(ctx context.Context, ownerUserID string) ([]MedicineInfo, error)
}

// DeviceOwnerLookup evita importar devices (rompe ciclos).
type DeviceOwnerLookup interface {
	OwnerOfDevice(ctx context.Context, deviceID string) (string, error)
}

type Options struct {
	Medicines MedicineLookup
	Devices   DeviceOwnerLookup
	Tx        tx.Transactor

	// StrictPairing: si es true, DeviceConfirmDispense exige que el dispositivo
	// exista y pertenezca al dueño de la toma.
	StrictPairing bool
}

type Service struct {
	repo          Repository
	medicines     MedicineLookup
	devices       DeviceOwnerLookup
	tx            tx.Transactor
	strictPairing bool
	now           func() time.Time
}

func NewService(repo Repository, opts Options) *Service {
	t := opts.Tx
	if t == nil {
		t = tx.None
	}
	return &Service{
		repo:          repo,
		medicines:     opts.Medicines,
		devices:       opts.Devices,
		tx:            t,
		strictPairing: opts.StrictPairing,
		now:           clock.Now,
	}
}

func (s *Service) GetByID(ctx context.Context, id, ownerUserID string) (DoseInstance, error) {
	d, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return DoseInstance{}, err
	}
	if d.OwnerUserID != ownerUserID {
		return DoseInstance{}, ErrNotFound
	}
	return d, nil
}

// ListUpcoming devuelve las próximas tomas (desde now) del usuario.
func (s *Service) ListUpcoming(ctx context.Context, ownerUserID string, limit int) ([]DoseInstance, error) {
	if strings.TrimSpace(ownerUserID) == "" {
		return nil, ErrInvalidInput
	}
	if limit <= 0 {
		limit = defaultUpcomingLimit
	}
	if limit > maxUpcomingLimit {
		limit = maxUpcomingLimit
	}
	now := s.now()
	return s.repo.ListByOwner(ctx, ownerUserID, ListFilter{From: &now, Limit: limit})
}

// ListToday devuelve todas las tomas del día civil local.
func (s *Service) ListToday(ctx context.Context, ownerUserID string) ([]DoseInstance, error) {
	if strings.TrimSpace(ownerUserID) == "" {
		return nil, ErrInvalidInput
	}
	from := clock.StartOfDay(s.now())
	to := from.AddDate(0, 0, 1)
	return s.repo.ListByOwner(ctx, ownerUserID, ListFilter{From: &from, To: &to})
}

// ListForDevice devuelve las tomas pendientes de los próximos 7 días cuyo
// medicamento tiene compartimento válido (1..3).
func (s *Service) ListForDevice(ctx context.Context, ownerUserID string) ([]DeviceDose, error) {
	if strings.TrimSpace(ownerUserID) == "" {
		return nil, ErrInvalidInput
	}
	if s.medicines == nil {
		return nil, errors.New("schedules: medicine lookup not configured")
	}

	meds, err := s.medicines.MedicinesForOwner(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}
	byID := lo.KeyBy(lo.Filter(meds, func(m MedicineInfo, _ int) bool {
		return m.Active && ValidCompartment(m.CompartmentNumber)
	}), func(m MedicineInfo) string { return m.ID })
	if len(byID) == 0 {
		return []DeviceDose{}, nil
	}

	now := s.now()
	to := now.Add(DeviceWindow)
	items, err := s.repo.ListByOwner(ctx, ownerUserID, ListFilter{From: &now, To: &to, PendingOnly: true})
	if err != nil {
		return nil, err
	}

	out := make([]DeviceDose, 0, len(items))
	for _, d := range items {
		m, ok := byID[d.MedicineID]
		if !ok {
			continue
		}
		out = append(out, DeviceDose{Dose: d, Medicine: m})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Dose.ScheduledTime.Before(out[j].Dose.ScheduledTime)
	})
	return out, nil
}

// MarkTaken pasa la toma a taken y sella taken_at. Si ya estaba tomada es
// idempotente: no vuelve a sellar taken_at.
func (s *Service) MarkTaken(ctx context.Context, id, ownerUserID string) (DoseInstance, error) {
	var out DoseInstance
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		d, err := s.GetByID(ctx, id, ownerUserID)
		if err != nil {
			return err
		}
		out, err = s.markTaken(ctx, d)
		return err
	})
	return out, err
}

func (s *Service) MarkSkipped(ctx context.Context, id, ownerUserID string) (DoseInstance, error) {
	var out DoseInstance
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		d, err := s.GetByID(ctx, id, ownerUserID)
		if err != nil {
			return err
		}
		switch d.State() {
		case StateTaken:
			return ErrInvalidState
		case StateSkipped:
			out = d
			return nil
		}
		d.Skipped = true
		if err := s.repo.Update(ctx, d); err != nil {
			return err
		}
		out = d
		return nil
	})
	return out, err
}

// DeviceConfirmDispense es el equivalente de MarkTaken reportado por el
// dispensador. Por defecto se autoriza sólo por schedule id.
func (s *Service) DeviceConfirmDispense(ctx context.Context, id, deviceID string) (DoseInstance, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return DoseInstance{}, ErrInvalidInput
	}

	var out DoseInstance
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		d, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if s.strictPairing {
			if s.devices == nil {
				return ErrNotFound
			}
			owner, err := s.devices.OwnerOfDevice(ctx, strings.TrimSpace(deviceID))
			if err != nil || owner != d.OwnerUserID {
				return ErrNotFound
			}
		}
		out, err = s.markTaken(ctx, d)
		return err
	})
	return out, err
}

func (s *Service) markTaken(ctx context.Context, d DoseInstance) (DoseInstance, error) {
	if d.Taken {
		return d, nil
	}
	now := s.now()
	d.Taken = true
	d.TakenAt = &now
	d.Skipped = false
	if err := s.repo.Update(ctx, d); err != nil {
		return DoseInstance{}, err
	}
	return d, nil
}

// Edit reprograma una toma todavía no tomada.
func (s *Service) Edit(ctx context.Context, id, ownerUserID string, scheduledTime time.Time) (DoseInstance, error) {
	if scheduledTime.IsZero() {
		return DoseInstance{}, ErrInvalidInput
	}

	var out DoseInstance
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		d, err := s.GetByID(ctx, id, ownerUserID)
		if err != nil {
			return err
		}
		if d.Taken {
			return ErrInvalidState
		}
		d.ScheduledTime = scheduledTime.In(clock.Local)
		if err := s.repo.Update(ctx, d); err != nil {
			return err
		}
		out = d
		return nil
	})
	return out, err
}

// Delete borra una toma todavía no tomada.
func (s *Service) Delete(ctx context.Context, id, ownerUserID string) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		d, err := s.GetByID(ctx, id, ownerUserID)
		if err != nil {
			return err
		}
		if d.Taken {
			return ErrInvalidState
		}
		return s.repo.Delete(ctx, d.ID)
	})
}

// ValidCompartment: 1..3 son slots físicos; 0 = sin asignar.
func ValidCompartment(n int) bool {
	return n >= 1 && n <= 3
}
