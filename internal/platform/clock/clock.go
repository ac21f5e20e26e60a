package clock

import "time"

// Zona fija del sistema. Todos los timestamps se guardan "naive" en hora local
// de Dhaka (UTC+06:00, sin horario de verano), así que lectores y escritores
// deben usar exactamente esta función de "now".
const (
	ZoneName     = "Asia/Dhaka"
	offsetSecond = 6 * 60 * 60

	DateLayout = "2006-01-02"
)

// Local es la zona de offset fijo usada para materializar y comparar horarios.
var Local = time.FixedZone(ZoneName, offsetSecond)

// Now devuelve la hora actual en la zona fija.
func Now() time.Time {
	return time.Now().In(Local)
}

// StartOfDay devuelve la medianoche (00:00) del día civil de t en la zona fija.
func StartOfDay(t time.Time) time.Time {
	t = t.In(Local)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, Local)
}

// Date construye una fecha civil a medianoche en la zona fija.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, Local)
}

// ParseDate parsea "YYYY-MM-DD" como día civil local.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, Local)
}
