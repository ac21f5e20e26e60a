package prescriptions

import (
	"errors"
	"fmt"
	"strings"

	"pharmabot/internal/domain/timing"
	"pharmabot/internal/platform/clock"
)

var ErrValidation = errors.New("validation failed")

var durationTooLongReason = fmt.Sprintf("exceeds %d days", timing.MaxDurationDays)

// ValidationError indica el medicamento (Index, -1 para la receta) y el campo
// que fallaron.
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("validation failed: medicines[%d].%s: %s", e.Index, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Validate revisa el registro del extractor antes de persistir nada.
func Validate(rec ParsedRecord) error {
	if len(rec.Medicines) == 0 {
		return &ValidationError{Index: -1, Field: "medicines", Reason: "no medicines found in prescription"}
	}
	if d := strings.TrimSpace(rec.PrescriptionDate); d != "" && !isNullish(d) {
		if _, err := clock.ParseDate(d); err != nil {
			return &ValidationError{Index: -1, Field: "prescription_date", Reason: "must be YYYY-MM-DD"}
		}
	}

	for i, m := range rec.Medicines {
		if strings.TrimSpace(m.Name) == "" {
			return &ValidationError{Index: i, Field: "name", Reason: "required"}
		}
		if strings.TrimSpace(m.Dosage) == "" {
			return &ValidationError{Index: i, Field: "dosage", Reason: "required"}
		}
		if strings.TrimSpace(m.Frequency) == "" {
			return &ValidationError{Index: i, Field: "frequency", Reason: "required"}
		}
		if timing.DurationTooLong(m.Duration) {
			return &ValidationError{Index: i, Field: "duration", Reason: durationTooLongReason}
		}
	}
	return nil
}

// El extractor a veces devuelve "null" como texto.
func isNullish(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "null")
}
