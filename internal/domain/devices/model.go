package devices

import (
	"encoding/json"
	"time"
)

const DefaultDeviceType = "ESP32"

// Device es un dispensador remoto. DeviceID es global (MAC o id del firmware).
type Device struct {
	DeviceID    string
	OwnerUserID string

	Name    string
	Type    string
	Address string // IP/host para llamadas salientes

	// Online se apaga cuando falla una llamada saliente; la vivacidad real
	// se deriva al leer (ver IsOnline).
	Online   bool
	LastSeen *time.Time

	State HardwareState
	// StateMalformed se marca al leer si el blob guardado no validó.
	StateMalformed bool

	Active    bool
	CreatedAt time.Time
}

// IsOnline: flag online y heartbeat más reciente que timeout.
func (d Device) IsOnline(now time.Time, timeout time.Duration) bool {
	if !d.Online || d.LastSeen == nil {
		return false
	}
	return DeriveOnline(*d.LastSeen, now, timeout)
}

// Telemetry es la última foto reportada por el hardware.
type Telemetry struct {
	ServoAngles        []float64  `json:"servo_angles"`
	UltrasonicDistance *float64   `json:"ultrasonic_distance,omitempty"`
	MedicineDetected   bool       `json:"medicine_detected"`
	LEDState           string     `json:"led_state"`
	BuzzerState        string     `json:"buzzer_state"`
	CurrentOperation   string     `json:"current_operation"`
	LastDispenseTime   string     `json:"last_dispense_time,omitempty"`
	ReportedAt         *time.Time `json:"reported_at,omitempty"`
}

// Command es una entrada del log de comandos de un dispositivo.
type Command struct {
	Seq       int64
	DeviceID  string
	Command   string
	Params    json.RawMessage
	Timestamp time.Time
}
