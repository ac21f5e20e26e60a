package devices

import (
	"context"
	"errors"
)

// ErrDrainConflict: otro consumidor avanzó el cursor entre la lectura y la
// actualización. El servicio reintenta.
var ErrDrainConflict = errors.New("command cursor moved concurrently")

type Repository interface {
	Get(ctx context.Context, deviceID string) (Device, error)
	Create(ctx context.Context, d Device) error
	Update(ctx context.Context, d Device) error
	ListByOwner(ctx context.Context, ownerUserID string) ([]Device, error)

	SetOnline(ctx context.Context, deviceID string, online bool) error
	// UpdateTelemetry reemplaza sólo la telemetría; no toca el log de comandos.
	UpdateTelemetry(ctx context.Context, deviceID string, t Telemetry) error
}

// CommandQueue es la cola store-and-forward por dispositivo. Puede
// implementarse como lista en memoria o como log durable con cursor.
type CommandQueue interface {
	Enqueue(ctx context.Context, deviceID string, c Command) (Command, error)
	// Drain devuelve, en orden de inserción, todo lo encolado desde el último
	// Drain y avanza el cursor en un solo paso atómico (at-most-once).
	Drain(ctx context.Context, deviceID string) ([]Command, error)
}

// Notifier hace la llamada HTTP saliente al dispositivo (fire-and-forget).
// Un status no-2xx debe devolverse envolviendo ErrDeviceRejected y una falla
// sin respuesta envolviendo ErrTransport.
type Notifier interface {
	Send(ctx context.Context, address, path string, payload any) (map[string]any, error)
}
