package devices

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const hardwareStateVersion = 1

var ErrMalformedState = errors.New("malformed hardware state")

// HardwareState es la estructura persistida en devices.hardware_state.
// Sólo lleva telemetría: los comandos viven en su propio log.
type HardwareState struct {
	Version   int       `json:"version"`
	Telemetry Telemetry `json:"telemetry"`
}

func NewHardwareState(t Telemetry) HardwareState {
	return HardwareState{Version: hardwareStateVersion, Telemetry: t}
}

// EncodeHardwareState serializa el estado (versión siempre presente).
func EncodeHardwareState(s HardwareState) (string, error) {
	s.Version = hardwareStateVersion
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode hardware state: %w", err)
	}
	return string(b), nil
}

// DecodeHardwareState valida el blob guardado. Un blob vacío es un estado
// vacío. Cualquier otra cosa que no sea la estructura actual (p.ej. el formato
// viejo con pending_commands mezclado) devuelve estado vacío + ErrMalformedState.
func DecodeHardwareState(raw string) (HardwareState, error) {
	if strings.TrimSpace(raw) == "" {
		return NewHardwareState(Telemetry{}), nil
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()

	var s HardwareState
	if err := dec.Decode(&s); err != nil {
		return NewHardwareState(Telemetry{}), fmt.Errorf("%w: %v", ErrMalformedState, err)
	}
	if s.Version != hardwareStateVersion {
		return NewHardwareState(Telemetry{}), fmt.Errorf("%w: version %d", ErrMalformedState, s.Version)
	}
	return s, nil
}
