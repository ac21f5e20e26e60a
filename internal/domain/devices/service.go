package devices

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"pharmabot/internal/platform/clock"
	"pharmabot/internal/platform/logger"
	"pharmabot/internal/ports/tx"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("device not found")
	ErrInvalidState = errors.New("device not available")
	ErrTransport    = errors.New("device unreachable")
)

// ErrDeviceRejected: el dispositivo respondió, pero con status no-2xx.
var ErrDeviceRejected = errors.New("device rejected request")

// TransportError envuelve el error de red de una llamada saliente. Como efecto
// colateral el dispositivo ya quedó marcado offline.
type TransportError struct {
	DeviceID string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("device %s unreachable: %v", e.DeviceID, e.Err)
}

func (e *TransportError) Unwrap() []error { return []error{ErrTransport, e.Err} }

const drainAttempts = 3

type Options struct {
	Queue    CommandQueue
	Notifier Notifier
	Tx       tx.Transactor
	Logger   logger.Logger

	// Timeout de vivacidad (default 300s).
	Timeout time.Duration
}

type Service struct {
	repo     Repository
	queue    CommandQueue
	notifier Notifier
	tx       tx.Transactor
	log      logger.Logger
	timeout  time.Duration
	now      func() time.Time
}

func NewService(repo Repository, opts Options) *Service {
	t := opts.Tx
	if t == nil {
		t = tx.None
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:     repo,
		queue:    opts.Queue,
		notifier: opts.Notifier,
		tx:       t,
		log:      log.With(map[string]any{"component": "devices"}),
		timeout:  timeout,
		now:      clock.Now,
	}
}

type UpsertInput struct {
	DeviceID string
	Name     string
	Address  string
}

// Upsert crea o actualiza por device_id. Sella last_seen=now y online=true.
// El device_id es global: si ya existía con otro dueño se reasigna.
func (s *Service) Upsert(ctx context.Context, ownerUserID string, in UpsertInput) (Device, error) {
	ownerUserID = strings.TrimSpace(ownerUserID)
	deviceID := strings.TrimSpace(in.DeviceID)
	if ownerUserID == "" || deviceID == "" {
		return Device{}, ErrInvalidInput
	}

	var out Device
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		now := s.now()
		d, err := s.repo.Get(ctx, deviceID)
		switch {
		case errors.Is(err, ErrNotFound):
			name := strings.TrimSpace(in.Name)
			if name == "" {
				name = deviceID
			}
			d = Device{
				DeviceID:    deviceID,
				OwnerUserID: ownerUserID,
				Name:        name,
				Type:        DefaultDeviceType,
				Address:     strings.TrimSpace(in.Address),
				Online:      true,
				LastSeen:    &now,
				State:       NewHardwareState(Telemetry{}),
				Active:      true,
				CreatedAt:   now,
			}
			if err := s.repo.Create(ctx, d); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if d.OwnerUserID != ownerUserID {
				s.log.Warn("device owner reassigned", map[string]any{
					"device_id": deviceID,
					"from":      d.OwnerUserID,
					"to":        ownerUserID,
				})
			}
			d.OwnerUserID = ownerUserID
			if name := strings.TrimSpace(in.Name); name != "" {
				d.Name = name
			}
			if addr := strings.TrimSpace(in.Address); addr != "" {
				d.Address = addr
			}
			d.Online = true
			d.Active = true
			d.LastSeen = &now
			if err := s.repo.Update(ctx, d); err != nil {
				return err
			}
		}
		out = d
		return nil
	})
	return out, err
}

// Heartbeat sella last_seen (y la dirección si vino) y vuelve a marcar el
// dispositivo online: un latido es prueba de vida tras una falla de transporte.
func (s *Service) Heartbeat(ctx context.Context, deviceID, address string) (Device, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return Device{}, ErrInvalidInput
	}

	var out Device
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		d, err := s.repo.Get(ctx, deviceID)
		if err != nil {
			return err
		}
		now := s.now()
		d.LastSeen = &now
		d.Online = true
		if addr := strings.TrimSpace(address); addr != "" {
			d.Address = addr
		}
		if err := s.repo.Update(ctx, d); err != nil {
			return err
		}
		out = d
		return nil
	})
	return out, err
}

func (s *Service) Get(ctx context.Context, deviceID string) (Device, error) {
	d, err := s.repo.Get(ctx, strings.TrimSpace(deviceID))
	if err != nil {
		return Device{}, err
	}
	if d.StateMalformed {
		s.log.Warn("hardware state discarded", map[string]any{"device_id": d.DeviceID})
	}
	return d, nil
}

// GetOwned devuelve el dispositivo sólo si pertenece a ownerUserID.
func (s *Service) GetOwned(ctx context.Context, deviceID, ownerUserID string) (Device, error) {
	d, err := s.Get(ctx, deviceID)
	if err != nil {
		return Device{}, err
	}
	if d.OwnerUserID != ownerUserID {
		return Device{}, ErrNotFound
	}
	return d, nil
}

func (s *Service) ListByOwner(ctx context.Context, ownerUserID string) ([]Device, error) {
	if strings.TrimSpace(ownerUserID) == "" {
		return nil, ErrInvalidInput
	}
	items, err := s.repo.ListByOwner(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}
	out := make([]Device, 0, len(items))
	for _, d := range items {
		if d.Active {
			out = append(out, d)
		}
	}
	return out, nil
}

// Deactivate da de baja el dispositivo (no se borra).
func (s *Service) Deactivate(ctx context.Context, deviceID, ownerUserID string) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		d, err := s.GetOwned(ctx, deviceID, ownerUserID)
		if err != nil {
			return err
		}
		d.Active = false
		d.Online = false
		return s.repo.Update(ctx, d)
	})
}

// IsOnline usa el timeout configurado.
func (s *Service) IsOnline(d Device) bool {
	return d.IsOnline(s.now(), s.timeout)
}

// OwnerOfDevice implementa schedules.DeviceOwnerLookup.
func (s *Service) OwnerOfDevice(ctx context.Context, deviceID string) (string, error) {
	d, err := s.repo.Get(ctx, strings.TrimSpace(deviceID))
	if err != nil {
		return "", err
	}
	return d.OwnerUserID, nil
}

// UpdateTelemetry reemplaza la foto de telemetría del dispositivo del usuario.
func (s *Service) UpdateTelemetry(ctx context.Context, deviceID, ownerUserID string, t Telemetry) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.GetOwned(ctx, deviceID, ownerUserID); err != nil {
			return err
		}
		now := s.now()
		t.ReportedAt = &now
		return s.repo.UpdateTelemetry(ctx, strings.TrimSpace(deviceID), t)
	})
}

// Enqueue agrega un comando al log del dispositivo. No hay deduplicación.
func (s *Service) Enqueue(ctx context.Context, deviceID, ownerUserID, command string, params json.RawMessage) (Command, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return Command{}, ErrInvalidInput
	}
	params = json.RawMessage(strings.TrimSpace(string(params)))
	if len(params) == 0 || string(params) == "null" {
		params = json.RawMessage(`{}`)
	}
	// params siempre es un objeto JSON
	if params[0] != '{' || !json.Valid(params) {
		return Command{}, ErrInvalidInput
	}
	if s.queue == nil {
		return Command{}, errors.New("devices: command queue not configured")
	}

	if _, err := s.GetOwned(ctx, deviceID, ownerUserID); err != nil {
		return Command{}, err
	}
	return s.queue.Enqueue(ctx, strings.TrimSpace(deviceID), Command{
		Command:   command,
		Params:    params,
		Timestamp: s.now(),
	})
}

// Drain entrega al único consumidor (el dispositivo) los comandos pendientes.
// Sin ack: si el dispositivo se cae después de leer, el lote se pierde.
func (s *Service) Drain(ctx context.Context, deviceID, ownerUserID string) ([]Command, error) {
	if s.queue == nil {
		return nil, errors.New("devices: command queue not configured")
	}
	if _, err := s.GetOwned(ctx, deviceID, ownerUserID); err != nil {
		return nil, err
	}

	var lastErr error
	for i := 0; i < drainAttempts; i++ {
		cmds, err := s.queue.Drain(ctx, strings.TrimSpace(deviceID))
		if err == nil {
			return cmds, nil
		}
		if !errors.Is(err, ErrDrainConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

type NotifyInput struct {
	MedicineName string
	Dosage       string
	Instructions string
}

// SendNotification manda un recordatorio al dispositivo.
func (s *Service) SendNotification(ctx context.Context, deviceID, ownerUserID string, in NotifyInput) (map[string]any, error) {
	return s.send(ctx, deviceID, ownerUserID, "/notify", map[string]any{
		"type":         "medication_reminder",
		"medicine":     in.MedicineName,
		"dosage":       in.Dosage,
		"instructions": in.Instructions,
		"timestamp":    s.now().Format(time.RFC3339),
	})
}

// SendDispense ordena dispensar un compartimento.
func (s *Service) SendDispense(ctx context.Context, deviceID, ownerUserID string, compartment int, medicineName string) (map[string]any, error) {
	if compartment < 1 || compartment > 3 {
		return nil, ErrInvalidInput
	}
	if strings.TrimSpace(medicineName) == "" {
		medicineName = "Medicine"
	}
	return s.send(ctx, deviceID, ownerUserID, "/dispense", map[string]any{
		"command":     "dispense",
		"compartment": compartment,
		"medicine":    medicineName,
		"timestamp":   s.now().Format(time.RFC3339),
	})
}

// send: un único intento. Sólo una falla de transporte (sin respuesta) deja
// el dispositivo offline.
func (s *Service) send(ctx context.Context, deviceID, ownerUserID, path string, payload any) (map[string]any, error) {
	if s.notifier == nil {
		return nil, errors.New("devices: notifier not configured")
	}
	d, err := s.GetOwned(ctx, deviceID, ownerUserID)
	if err != nil {
		return nil, err
	}
	if !d.Active || !s.IsOnline(d) || strings.TrimSpace(d.Address) == "" {
		return nil, ErrInvalidState
	}

	resp, err := s.notifier.Send(ctx, d.Address, path, payload)
	if err != nil && !errors.Is(err, ErrTransport) {
		return nil, err
	}
	if err != nil {
		if markErr := s.repo.SetOnline(ctx, d.DeviceID, false); markErr != nil {
			s.log.Error("mark device offline failed", map[string]any{"device_id": d.DeviceID, "error": markErr.Error()})
		}
		s.log.Warn("device call failed, marked offline", map[string]any{
			"device_id": d.DeviceID,
			"path":      path,
			"error":     err.Error(),
		})
		return nil, &TransportError{DeviceID: d.DeviceID, Err: err}
	}
	return resp, nil
}
