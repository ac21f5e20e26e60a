package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"pharmabot/internal/domain/devices"
	"pharmabot/internal/domain/prescriptions"
	"pharmabot/internal/domain/schedules"
)

type fakePrescriptions struct {
	items []prescriptions.Prescription
	meds  []schedules.MedicineInfo
	err   error
}

func (f fakePrescriptions) ListByOwner(ctx context.Context, owner string) ([]prescriptions.Prescription, error) {
	return f.items, f.err
}

func (f fakePrescriptions) MedicinesForOwner(ctx context.Context, owner string) ([]schedules.MedicineInfo, error) {
	return f.meds, nil
}

type fakeDoses []schedules.DoseInstance

func (f fakeDoses) ListToday(ctx context.Context, owner string) ([]schedules.DoseInstance, error) {
	return f, nil
}

type fakeDevices []devices.Device

func (f fakeDevices) ListByOwner(ctx context.Context, owner string) ([]devices.Device, error) {
	return f, nil
}

func (f fakeDevices) IsOnline(d devices.Device) bool { return d.Online }

func TestStats_Counts(t *testing.T) {
	now := time.Now()
	svc := NewService(
		fakePrescriptions{
			items: []prescriptions.Prescription{{ID: "p1"}, {ID: "p2"}},
			meds:  []schedules.MedicineInfo{{ID: "m1", Active: true}, {ID: "m2", Active: false}, {ID: "m3", Active: true}},
		},
		fakeDoses{
			{ID: "d1", Taken: true, TakenAt: &now},
			{ID: "d2", Skipped: true},
			{ID: "d3"},
		},
		fakeDevices{{DeviceID: "a", Online: true}, {DeviceID: "b"}},
	)

	st, err := svc.Stats(context.Background(), "u1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := Stats{TotalPrescriptions: 2, ActiveMedicines: 2, TodayTotal: 3, TodayTaken: 1, TodaySkipped: 1, DevicesOnline: 1}
	if st != want {
		t.Fatalf("stats=%+v want %+v", st, want)
	}
}

func TestStats_PropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	svc := NewService(fakePrescriptions{err: boom}, fakeDoses{}, fakeDevices{})
	if _, err := svc.Stats(context.Background(), "u1"); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := svc.Stats(context.Background(), " "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
