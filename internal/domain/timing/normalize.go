package timing

import (
	"errors"
	"strconv"
	"strings"
)

var ErrInvalidClock = errors.New("invalid time of day")

// DefaultTimes se usa cuando la frecuencia no coincide con ninguna frase conocida.
var DefaultTimes = []string{"09:00"}

type frequencyRule struct {
	phrase string
	times  []string
}

// frequencyTable está ordenada por prioridad: gana la primera frase contenida
// en el texto. "twice daily" debe ir antes que "daily" genéricos, etc.
var frequencyTable = []frequencyRule{
	{"once daily", []string{"09:00"}},
	{"once a day", []string{"09:00"}},
	{"twice daily", []string{"09:00", "21:00"}},
	{"twice a day", []string{"09:00", "21:00"}},
	{"three times daily", []string{"08:00", "14:00", "20:00"}},
	{"three times a day", []string{"08:00", "14:00", "20:00"}},
	{"four times daily", []string{"08:00", "12:00", "16:00", "20:00"}},
	{"four times a day", []string{"08:00", "12:00", "16:00", "20:00"}},
	{"every 6 hours", []string{"06:00", "12:00", "18:00", "00:00"}},
	{"every 8 hours", []string{"08:00", "16:00", "00:00"}},
	{"every 12 hours", []string{"08:00", "20:00"}},
	{"morning", []string{"09:00"}},
	{"evening", []string{"21:00"}},
	{"night", []string{"22:00"}},
	{"bedtime", []string{"22:00"}},
	{"before bed", []string{"22:00"}},
}

type durationUnit struct {
	keyword     string
	days        int
	defaultSize int
}

// Orden de búsqueda: day, week, month. Sin magnitud se usa defaultSize
// (nunca cero, para no generar schedules vacíos).
var durationUnits = []durationUnit{
	{"day", 1, 7},
	{"week", 7, 1},
	{"month", 30, 1},
}

// DefaultDurationDays aplica cuando el texto no trae unidad reconocible.
const DefaultDurationDays = 7

// NormalizeFrequency convierte un texto de frecuencia en horas del día "HH:MM".
func NormalizeFrequency(text string) []string {
	lower := strings.ToLower(text)
	for _, rule := range frequencyTable {
		if strings.Contains(lower, rule.phrase) {
			return append([]string(nil), rule.times...)
		}
	}
	return append([]string(nil), DefaultTimes...)
}

// MaxDurationDays es el tope de días que se materializan por medicamento.
const MaxDurationDays = 3650

// NormalizeDuration convierte un texto de duración en cantidad de días,
// acotada a MaxDurationDays.
func NormalizeDuration(text string) int {
	return min(durationDays(text), MaxDurationDays)
}

// DurationTooLong indica que el texto pide más de MaxDurationDays.
func DurationTooLong(text string) bool {
	return durationDays(text) > MaxDurationDays
}

// durationDays no desborda: la magnitud queda acotada antes de escalar.
func durationDays(text string) int {
	lower := strings.ToLower(text)
	for _, u := range durationUnits {
		if !strings.Contains(lower, u.keyword) {
			continue
		}
		n := digitMagnitude(lower)
		if n <= 0 {
			n = u.defaultSize
		}
		return n * u.days
	}
	return DefaultDurationDays
}

// digitMagnitude concatena todos los dígitos del texto, no sólo el primer
// número: "take 2 tablets for 5 days" => 25. Devuelve 0 si no hay dígitos y
// satura en MaxDurationDays+1.
func digitMagnitude(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			continue
		}
		n = n*10 + int(r-'0')
		if n > MaxDurationDays {
			return MaxDurationDays + 1
		}
	}
	return n
}

// ParseClock parsea "HH:MM" (00:00..23:59).
func ParseClock(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, ErrInvalidClock
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, ErrInvalidClock
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, ErrInvalidClock
	}
	return hour, minute, nil
}
