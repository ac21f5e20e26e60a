package dashboard

import (
	"context"
	"errors"
	"strings"

	"pharmabot/internal/domain/devices"
	"pharmabot/internal/domain/prescriptions"
	"pharmabot/internal/domain/schedules"
)

var ErrInvalidInput = errors.New("invalid input")

type PrescriptionSource interface {
	ListByOwner(ctx context.Context, ownerUserID string) ([]prescriptions.Prescription, error)
	MedicinesForOwner(ctx context.Context, ownerUserID string) ([]schedules.MedicineInfo, error)
}

type DoseSource interface {
	ListToday(ctx context.Context, ownerUserID string) ([]schedules.DoseInstance, error)
}

type DeviceSource interface {
	ListByOwner(ctx context.Context, ownerUserID string) ([]devices.Device, error)
	IsOnline(d devices.Device) bool
}

// Stats es el resumen del panel del usuario.
type Stats struct {
	TotalPrescriptions int
	ActiveMedicines    int
	TodayTotal         int
	TodayTaken         int
	TodaySkipped       int
	DevicesOnline      int
}

type Service struct {
	prescriptions PrescriptionSource
	doses         DoseSource
	devices       DeviceSource
}

func NewService(p PrescriptionSource, d DoseSource, dev DeviceSource) *Service {
	return &Service{prescriptions: p, doses: d, devices: dev}
}

func (s *Service) Stats(ctx context.Context, ownerUserID string) (Stats, error) {
	if strings.TrimSpace(ownerUserID) == "" {
		return Stats{}, ErrInvalidInput
	}

	var out Stats

	ps, err := s.prescriptions.ListByOwner(ctx, ownerUserID)
	if err != nil {
		return Stats{}, err
	}
	out.TotalPrescriptions = len(ps)

	meds, err := s.prescriptions.MedicinesForOwner(ctx, ownerUserID)
	if err != nil {
		return Stats{}, err
	}
	for _, m := range meds {
		if m.Active {
			out.ActiveMedicines++
		}
	}

	today, err := s.doses.ListToday(ctx, ownerUserID)
	if err != nil {
		return Stats{}, err
	}
	out.TodayTotal = len(today)
	for _, d := range today {
		switch d.State() {
		case schedules.StateTaken:
			out.TodayTaken++
		case schedules.StateSkipped:
			out.TodaySkipped++
		}
	}

	devs, err := s.devices.ListByOwner(ctx, ownerUserID)
	if err != nil {
		return Stats{}, err
	}
	for _, d := range devs {
		if s.devices.IsOnline(d) {
			out.DevicesOnline++
		}
	}

	return out, nil
}
