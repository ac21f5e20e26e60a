package prescriptions

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"pharmabot/internal/middleware"
	"pharmabot/internal/platform/clock"
	"pharmabot/internal/platform/logger"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
)

// maxRecordBytes limita el registro que manda el extractor.
const maxRecordBytes = 1 << 20

func RegisterRoutes(r chi.Router, svc *Service, log logger.Logger) {
	r.Route("/prescriptions", func(pr chi.Router) {
		pr.Post("/", createPrescriptionHandler(svc, log))
		pr.Get("/", listPrescriptionsHandler(svc, log))
		pr.Get("/{prescriptionID}", getPrescriptionHandler(svc, log))
		pr.Post("/{prescriptionID}/compartments/auto", autoAssignHandler(svc, log))
	})

	r.Route("/medicines/{medicineID}", func(mr chi.Router) {
		mr.Patch("/compartment", assignCompartmentHandler(svc, log))
		mr.Post("/regenerate", regenerateHandler(svc, log))
		mr.Patch("/timing", updateTimingHandler(svc, log))
	})
}

type prescriptionResponse struct {
	ID               string             `json:"id"`
	DoctorName       string             `json:"doctor_name"`
	PrescriptionDate *string            `json:"prescription_date,omitempty"`
	PatientName      string             `json:"patient_name"`
	PatientAge       string             `json:"patient_age"`
	PatientGender    string             `json:"patient_gender"`
	IsActive         bool               `json:"is_active"`
	CreatedAt        time.Time          `json:"created_at"`
	Medicines        []medicineResponse `json:"medicines,omitempty"`
}

type medicineResponse struct {
	ID                string    `json:"id"`
	PrescriptionID    string    `json:"prescription_id"`
	Name              string    `json:"name"`
	Dosage            string    `json:"dosage"`
	Frequency         string    `json:"frequency"`
	Duration          string    `json:"duration"`
	Instructions      string    `json:"instructions"`
	Timing            string    `json:"timing"`
	CompartmentNumber int       `json:"compartment_number"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
}

type createPrescriptionResponse struct {
	Prescription     prescriptionResponse `json:"prescription"`
	SchedulesCreated int                  `json:"schedules_created"`
}

type assignCompartmentRequest struct {
	CompartmentNumber *int `json:"compartment_number"`
}

type regenerateRequest struct {
	StartDate string `json:"start_date"` // YYYY-MM-DD opcional
}

type updateTimingRequest struct {
	Frequency *string `json:"frequency"`
	Duration  *string `json:"duration"`
	Timing    *string `json:"timing"`
}

type regenerateResponse struct {
	MedicineID string `json:"medicine_id"`
	Deleted    int    `json:"deleted"`
	Created    int    `json:"created"`
	StartDate  string `json:"start_date"`
}

// createPrescriptionHandler godoc
// @Summary Registrar receta ya extraída
// @Description Recibe el registro del extractor, lo valida y en una sola transacción guarda receta, medicamentos y tomas planificadas. Si algo falla no queda nada persistido.
// @Tags prescriptions
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param payload body ParsedRecord true "Registro del extractor"
// @Success 201 {object} createPrescriptionResponse
// @Failure 400 {string} string "invalid json / validation failed: medicines[i].field"
// @Failure 401 {string} string "unauthorized"
// @Failure 500 {string} string "internal error"
// @Router /prescriptions [post]
func createPrescriptionHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		raw, err := io.ReadAll(io.LimitReader(r.Body, maxRecordBytes))
		if err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		var rec ParsedRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		res, err := svc.Create(r.Context(), claims.UserID, rec, string(raw))
		if err != nil {
			writeError(w, log, err)
			return
		}

		out := toPrescriptionResponse(res.Prescription, res.Medicines)
		writeJSON(w, http.StatusCreated, createPrescriptionResponse{
			Prescription:     out,
			SchedulesCreated: res.DosesCreated,
		})
	}
}

// listPrescriptionsHandler godoc
// @Summary Listar recetas del usuario
// @Tags prescriptions
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Success 200 {array} prescriptionResponse
// @Failure 401 {string} string "unauthorized"
// @Router /prescriptions [get]
func listPrescriptionsHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListByOwner(r.Context(), claims.UserID)
		if err != nil {
			writeError(w, log, err)
			return
		}

		writeJSON(w, http.StatusOK, lo.Map(items, func(p Prescription, _ int) prescriptionResponse {
			return toPrescriptionResponse(p, nil)
		}))
	}
}

// getPrescriptionHandler godoc
// @Summary Obtener receta con sus medicamentos
// @Tags prescriptions
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param prescriptionID path string true "ID de la receta"
// @Success 200 {object} prescriptionResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "not found"
// @Router /prescriptions/{prescriptionID} [get]
func getPrescriptionHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		p, meds, err := svc.GetByID(r.Context(), chi.URLParam(r, "prescriptionID"), claims.UserID)
		if err != nil {
			writeError(w, log, err)
			return
		}

		writeJSON(w, http.StatusOK, toPrescriptionResponse(p, meds))
	}
}

// autoAssignHandler godoc
// @Summary Asignar compartimentos automáticamente
// @Description Reparte los compartimentos libres (1..3) entre los medicamentos sin asignar de la receta. Si no alcanzan, no asigna ninguno.
// @Tags prescriptions
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param prescriptionID path string true "ID de la receta"
// @Success 200 {array} medicineResponse
// @Failure 404 {string} string "not found"
// @Failure 409 {string} string "invalid state"
// @Router /prescriptions/{prescriptionID}/compartments/auto [post]
func autoAssignHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		meds, err := svc.AutoAssignCompartments(r.Context(), chi.URLParam(r, "prescriptionID"), claims.UserID)
		if err != nil {
			writeError(w, log, err)
			return
		}

		writeJSON(w, http.StatusOK, lo.Map(meds, func(m Medicine, _ int) medicineResponse {
			return toMedicineResponse(m)
		}))
	}
}

// assignCompartmentHandler godoc
// @Summary Asignar compartimento a un medicamento
// @Description 0 libera el compartimento. Un compartimento ocupado por otro medicamento activo devuelve 409.
// @Tags medicines
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param medicineID path string true "ID del medicamento"
// @Param payload body assignCompartmentRequest true "compartment_number 0..3"
// @Success 200 {object} medicineResponse
// @Failure 400 {string} string "invalid input"
// @Failure 404 {string} string "not found"
// @Failure 409 {string} string "invalid state"
// @Router /medicines/{medicineID}/compartment [patch]
func assignCompartmentHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req assignCompartmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CompartmentNumber == nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		m, err := svc.AssignCompartment(r.Context(), chi.URLParam(r, "medicineID"), claims.UserID, *req.CompartmentNumber)
		if err != nil {
			writeError(w, log, err)
			return
		}

		writeJSON(w, http.StatusOK, toMedicineResponse(m))
	}
}

// regenerateHandler godoc
// @Summary Regenerar tomas futuras de un medicamento
// @Description Borra las tomas futuras no tomadas y vuelve a materializar desde start_date (hoy si se omite). Historial y tomas ya tomadas no se tocan.
// @Tags medicines
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param medicineID path string true "ID del medicamento"
// @Param payload body regenerateRequest false "start_date YYYY-MM-DD opcional"
// @Success 200 {object} regenerateResponse
// @Failure 400 {string} string "start_date must be YYYY-MM-DD"
// @Failure 404 {string} string "not found"
// @Router /medicines/{medicineID}/regenerate [post]
func regenerateHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		// Body opcional
		var req regenerateRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
		}

		var anchor *time.Time
		if s := strings.TrimSpace(req.StartDate); s != "" {
			t, err := clock.ParseDate(s)
			if err != nil {
				http.Error(w, "start_date must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			anchor = &t
		}

		res, err := svc.Regenerate(r.Context(), chi.URLParam(r, "medicineID"), claims.UserID, anchor)
		if err != nil {
			writeError(w, log, err)
			return
		}

		writeJSON(w, http.StatusOK, regenerateResponse{
			MedicineID: res.Medicine.ID,
			Deleted:    res.Deleted,
			Created:    res.Created,
			StartDate:  res.Anchor.Format(clock.DateLayout),
		})
	}
}

// updateTimingHandler godoc
// @Summary Editar frecuencia, duración o momento de un medicamento
// @Description Actualiza los textos crudos que vengan en el body y regenera las tomas futuras desde hoy.
// @Tags medicines
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param medicineID path string true "ID del medicamento"
// @Param payload body updateTimingRequest true "Campos a cambiar"
// @Success 200 {object} regenerateResponse
// @Failure 400 {string} string "invalid json"
// @Failure 404 {string} string "not found"
// @Router /medicines/{medicineID}/timing [patch]
func updateTimingHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req updateTimingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Frequency == nil && req.Duration == nil && req.Timing == nil {
			http.Error(w, "nothing to update", http.StatusBadRequest)
			return
		}

		res, err := svc.UpdateTiming(r.Context(), chi.URLParam(r, "medicineID"), claims.UserID, UpdateTimingInput{
			Frequency: req.Frequency,
			Duration:  req.Duration,
			Timing:    req.Timing,
		})
		if err != nil {
			writeError(w, log, err)
			return
		}

		writeJSON(w, http.StatusOK, regenerateResponse{
			MedicineID: res.Medicine.ID,
			Deleted:    res.Deleted,
			Created:    res.Created,
			StartDate:  res.Anchor.Format(clock.DateLayout),
		})
	}
}

func toPrescriptionResponse(p Prescription, meds []Medicine) prescriptionResponse {
	out := prescriptionResponse{
		ID:            p.ID,
		DoctorName:    p.DoctorName,
		PatientName:   p.PatientName,
		PatientAge:    p.PatientAge,
		PatientGender: p.PatientGender,
		IsActive:      p.Active,
		CreatedAt:     p.CreatedAt,
	}
	if p.PrescriptionDate != nil {
		d := p.PrescriptionDate.Format(clock.DateLayout)
		out.PrescriptionDate = &d
	}
	if meds != nil {
		out.Medicines = lo.Map(meds, func(m Medicine, _ int) medicineResponse {
			return toMedicineResponse(m)
		})
	}
	return out
}

func toMedicineResponse(m Medicine) medicineResponse {
	return medicineResponse{
		ID:                m.ID,
		PrescriptionID:    m.PrescriptionID,
		Name:              m.Name,
		Dosage:            m.Dosage,
		Frequency:         m.Frequency,
		Duration:          m.Duration,
		Instructions:      m.Instructions,
		Timing:            m.Timing,
		CompartmentNumber: m.CompartmentNumber,
		IsActive:          m.Active,
		CreatedAt:         m.CreatedAt,
	}
}

func writeError(w http.ResponseWriter, log logger.Logger, err error) {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		http.Error(w, ve.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, ErrInvalidState):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		log.Error("prescriptions request failed", map[string]any{"error": err.Error()})
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
