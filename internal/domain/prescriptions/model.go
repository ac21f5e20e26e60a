package prescriptions

import "time"

// Prescription es la receta ya extraída por el parser externo.
type Prescription struct {
	ID          string
	OwnerUserID string

	DoctorName       string
	PrescriptionDate *time.Time // día civil local, opcional

	PatientName   string
	PatientAge    string
	PatientGender string

	// ParsedData guarda el registro crudo recibido (auditoría).
	ParsedData string

	Active    bool
	CreatedAt time.Time
}

// Medicine conserva los textos crudos de frecuencia/duración/timing para
// auditoría y regeneración.
type Medicine struct {
	ID             string
	PrescriptionID string
	OwnerUserID    string

	Name         string
	Dosage       string
	Frequency    string
	Duration     string
	Instructions string
	Timing       string

	CompartmentNumber int // 0 = sin asignar, 1..3

	// Position es el orden del medicamento dentro de la receta.
	Position int

	Active    bool
	CreatedAt time.Time
}

// ParsedRecord es el contrato del extractor de recetas. Puede venir parcial
// y no es confiable: se valida antes de materializar.
type ParsedRecord struct {
	DoctorName       string           `json:"doctor_name"`
	PrescriptionDate string           `json:"prescription_date"` // YYYY-MM-DD o vacío
	PatientName      string           `json:"patient_name"`
	PatientAge       string           `json:"patient_age"`
	PatientGender    string           `json:"patient_gender"`
	Medicines        []ParsedMedicine `json:"medicines"`
}

type ParsedMedicine struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	Duration     string `json:"duration"`
	Instructions string `json:"instructions"`
	Timing       string `json:"timing"`
}
