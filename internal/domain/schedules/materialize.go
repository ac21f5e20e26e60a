package schedules

import (
	"time"

	"pharmabot/internal/domain/timing"
	"pharmabot/internal/platform/clock"

	"github.com/google/uuid"
)

// Materialize expande frecuencia + duración en tomas concretas a partir de
// la medianoche de anchor. Es puramente aditivo: invocarlo dos veces para el
// mismo medicamento sin limpiar antes duplica filas.
func Materialize(med MedicineTiming, ownerUserID string, anchor, now time.Time) []DoseInstance {
	times := timing.NormalizeFrequency(med.Frequency)
	days := timing.NormalizeDuration(med.Duration)

	type clockTime struct{ h, m int }
	parsed := make([]clockTime, 0, len(times))
	for _, t := range times {
		h, m, err := timing.ParseClock(t)
		if err != nil {
			// la tabla sólo tiene horas válidas
			continue
		}
		parsed = append(parsed, clockTime{h, m})
	}

	start := clock.StartOfDay(anchor)
	out := make([]DoseInstance, 0, days*len(parsed))
	for day := 0; day < days; day++ {
		date := start.AddDate(0, 0, day)
		for _, ct := range parsed {
			out = append(out, DoseInstance{
				ID:            uuid.NewString(),
				MedicineID:    med.ID,
				OwnerUserID:   ownerUserID,
				ScheduledTime: time.Date(date.Year(), date.Month(), date.Day(), ct.h, ct.m, 0, 0, clock.Local),
				CreatedAt:     now,
			})
		}
	}
	return out
}

// AnchorFor elige el día cero: la fecha de la receta si existe, si no hoy.
func AnchorFor(prescriptionDate *time.Time, now time.Time) time.Time {
	if prescriptionDate != nil && !prescriptionDate.IsZero() {
		return clock.StartOfDay(*prescriptionDate)
	}
	return clock.StartOfDay(now)
}
