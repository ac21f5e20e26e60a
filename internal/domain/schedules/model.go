package schedules

import "time"

type State string

const (
	StatePending State = "pending"
	StateTaken   State = "taken"
	StateSkipped State = "skipped"
)

// DoseInstance es una toma concreta planificada de un medicamento.
// TakenAt se setea sólo si Taken es true. Una vez tomada, la fila no se
// edita ni se borra (historial de adherencia).
type DoseInstance struct {
	ID          string
	MedicineID  string
	OwnerUserID string

	ScheduledTime time.Time

	Taken   bool
	TakenAt *time.Time
	Skipped bool

	CreatedAt time.Time
}

func (d DoseInstance) State() State {
	switch {
	case d.Taken:
		return StateTaken
	case d.Skipped:
		return StateSkipped
	default:
		return StatePending
	}
}

// MedicineTiming es lo mínimo que necesita el materializador de un medicamento.
type MedicineTiming struct {
	ID        string
	Frequency string
	Duration  string
}

// MedicineInfo es la vista de un medicamento que necesita el dispositivo.
type MedicineInfo struct {
	ID                string
	Name              string
	Dosage            string
	Instructions      string
	CompartmentNumber int
	Active            bool
}

// DeviceDose es una toma pendiente enriquecida para el dispensador.
type DeviceDose struct {
	Dose     DoseInstance
	Medicine MedicineInfo
}
