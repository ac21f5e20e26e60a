package memory

import (
	"context"
	"errors"
	"sort"
	"strings"

	"pharmabot/internal/domain/devices"
)

type DeviceRepo struct {
	s *Store
}

// NewDeviceRepo devuelve el registro y la cola de comandos sobre el mismo store.
func NewDeviceRepo(s *Store) *DeviceRepo {
	return &DeviceRepo{s: s}
}

var (
	_ devices.Repository   = (*DeviceRepo)(nil)
	_ devices.CommandQueue = (*DeviceRepo)(nil)
)

func (r *DeviceRepo) Create(ctx context.Context, d devices.Device) error {
	defer r.s.lock(ctx)()

	if strings.TrimSpace(d.DeviceID) == "" {
		return errors.New("device id required")
	}
	if _, exists := r.s.devices[d.DeviceID]; exists {
		return errors.New("device already exists")
	}
	state, err := devices.EncodeHardwareState(d.State)
	if err != nil {
		return err
	}
	r.s.devices[d.DeviceID] = deviceRow{device: d, state: state}
	return nil
}

// Update no toca hardware_state: la telemetría sólo cambia por UpdateTelemetry.
func (r *DeviceRepo) Update(ctx context.Context, d devices.Device) error {
	defer r.s.lock(ctx)()

	row, ok := r.s.devices[d.DeviceID]
	if !ok {
		return devices.ErrNotFound
	}
	row.device = d
	r.s.devices[d.DeviceID] = row
	return nil
}

func (r *DeviceRepo) Get(ctx context.Context, deviceID string) (devices.Device, error) {
	defer r.s.rlock(ctx)()

	row, ok := r.s.devices[deviceID]
	if !ok {
		return devices.Device{}, devices.ErrNotFound
	}
	return row.decode(), nil
}

func (r *DeviceRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]devices.Device, error) {
	defer r.s.rlock(ctx)()

	out := make([]devices.Device, 0)
	for _, row := range r.s.devices {
		if row.device.OwnerUserID == ownerUserID {
			out = append(out, row.decode())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *DeviceRepo) SetOnline(ctx context.Context, deviceID string, online bool) error {
	defer r.s.lock(ctx)()

	row, ok := r.s.devices[deviceID]
	if !ok {
		return devices.ErrNotFound
	}
	row.device.Online = online
	r.s.devices[deviceID] = row
	return nil
}

func (r *DeviceRepo) UpdateTelemetry(ctx context.Context, deviceID string, t devices.Telemetry) error {
	defer r.s.lock(ctx)()

	row, ok := r.s.devices[deviceID]
	if !ok {
		return devices.ErrNotFound
	}
	state, err := devices.EncodeHardwareState(devices.NewHardwareState(t))
	if err != nil {
		return err
	}
	row.state = state
	r.s.devices[deviceID] = row
	return nil
}

// Enqueue agrega al final del log del dispositivo.
func (r *DeviceRepo) Enqueue(ctx context.Context, deviceID string, c devices.Command) (devices.Command, error) {
	defer r.s.lock(ctx)()

	if _, ok := r.s.devices[deviceID]; !ok {
		return devices.Command{}, devices.ErrNotFound
	}
	r.s.seq++
	c.Seq = r.s.seq
	c.DeviceID = deviceID
	r.s.commands[deviceID] = append(r.s.commands[deviceID], c)
	return c, nil
}

// Drain entrega y vacía la lista bajo el mismo lock que usa Enqueue.
func (r *DeviceRepo) Drain(ctx context.Context, deviceID string) ([]devices.Command, error) {
	defer r.s.lock(ctx)()

	if _, ok := r.s.devices[deviceID]; !ok {
		return nil, devices.ErrNotFound
	}
	pending := r.s.commands[deviceID]
	delete(r.s.commands, deviceID)

	out := make([]devices.Command, len(pending))
	copy(out, pending)
	return out, nil
}

// SetHardwareStateRaw escribe el blob tal cual. Sirve para cargar datos viejos.
func (r *DeviceRepo) SetHardwareStateRaw(ctx context.Context, deviceID, raw string) error {
	defer r.s.lock(ctx)()

	row, ok := r.s.devices[deviceID]
	if !ok {
		return devices.ErrNotFound
	}
	row.state = raw
	r.s.devices[deviceID] = row
	return nil
}

func (row deviceRow) decode() devices.Device {
	d := row.device
	state, err := devices.DecodeHardwareState(row.state)
	d.State = state
	d.StateMalformed = err != nil
	return d
}
