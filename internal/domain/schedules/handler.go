package schedules

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pharmabot/internal/middleware"
	"pharmabot/internal/platform/logger"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
)

func RegisterRoutes(r chi.Router, svc *Service, log logger.Logger) {
	r.Route("/schedules", func(sr chi.Router) {
		sr.Get("/", listUpcomingHandler(svc, log))
		sr.Get("/today", listTodayHandler(svc, log))
		sr.Patch("/{scheduleID}", editHandler(svc, log))
		sr.Delete("/{scheduleID}", deleteHandler(svc, log))
		sr.Post("/{scheduleID}/mark-taken", markTakenHandler(svc, log))
		sr.Post("/{scheduleID}/mark-skipped", markSkippedHandler(svc, log))
	})
}

type scheduleResponse struct {
	ID            string     `json:"id"`
	MedicineID    string     `json:"medicine_id"`
	ScheduledTime time.Time  `json:"scheduled_time"`
	Status        State      `json:"status"`
	Taken         bool       `json:"taken"`
	TakenAt       *time.Time `json:"taken_at,omitempty"`
	Skipped       bool       `json:"skipped"`
	CreatedAt     time.Time  `json:"created_at"`
}

type editRequest struct {
	ScheduledTime string `json:"scheduled_time"` // RFC3339
}

// listUpcomingHandler godoc
// @Summary Próximas tomas
// @Description Tomas pendientes desde ahora en orden cronológico.
// @Tags schedules
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param limit query int false "Máximo a devolver (1-200). Por defecto 20"
// @Success 200 {array} scheduleResponse
// @Failure 400 {string} string "limit must be a positive integer"
// @Failure 401 {string} string "unauthorized"
// @Router /schedules [get]
func listUpcomingHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		limit := 0
		if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
			limit = n
		}

		items, err := svc.ListUpcoming(r.Context(), claims.UserID, limit)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, toScheduleResponses(items))
	}
}

// listTodayHandler godoc
// @Summary Tomas de hoy
// @Description Todas las tomas del día civil local (Asia/Dhaka), en cualquier estado.
// @Tags schedules
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Success 200 {array} scheduleResponse
// @Failure 401 {string} string "unauthorized"
// @Router /schedules/today [get]
func listTodayHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListToday(r.Context(), claims.UserID)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, toScheduleResponses(items))
	}
}

// markTakenHandler godoc
// @Summary Marcar toma como tomada
// @Description Idempotente: si ya estaba tomada no cambia taken_at.
// @Tags schedules
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param scheduleID path string true "ID de la toma"
// @Success 200 {object} scheduleResponse
// @Failure 404 {string} string "schedule not found"
// @Router /schedules/{scheduleID}/mark-taken [post]
func markTakenHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		d, err := svc.MarkTaken(r.Context(), chi.URLParam(r, "scheduleID"), claims.UserID)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, toScheduleResponse(d))
	}
}

// markSkippedHandler godoc
// @Summary Marcar toma como salteada
// @Tags schedules
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param scheduleID path string true "ID de la toma"
// @Success 200 {object} scheduleResponse
// @Failure 404 {string} string "schedule not found"
// @Failure 409 {string} string "invalid state"
// @Router /schedules/{scheduleID}/mark-skipped [post]
func markSkippedHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		d, err := svc.MarkSkipped(r.Context(), chi.URLParam(r, "scheduleID"), claims.UserID)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, toScheduleResponse(d))
	}
}

// editHandler godoc
// @Summary Reprogramar una toma
// @Description Sólo mientras no esté tomada.
// @Tags schedules
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param scheduleID path string true "ID de la toma"
// @Param payload body editRequest true "scheduled_time en RFC3339"
// @Success 200 {object} scheduleResponse
// @Failure 400 {string} string "scheduled_time must be RFC3339"
// @Failure 404 {string} string "schedule not found"
// @Failure 409 {string} string "invalid state"
// @Router /schedules/{scheduleID} [patch]
func editHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req editRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(req.ScheduledTime))
		if err != nil {
			http.Error(w, "scheduled_time must be RFC3339", http.StatusBadRequest)
			return
		}

		d, err := svc.Edit(r.Context(), chi.URLParam(r, "scheduleID"), claims.UserID, t)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, toScheduleResponse(d))
	}
}

// deleteHandler godoc
// @Summary Borrar una toma
// @Description Sólo mientras no esté tomada.
// @Tags schedules
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param scheduleID path string true "ID de la toma"
// @Success 204
// @Failure 404 {string} string "schedule not found"
// @Failure 409 {string} string "invalid state"
// @Router /schedules/{scheduleID} [delete]
func deleteHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if err := svc.Delete(r.Context(), chi.URLParam(r, "scheduleID"), claims.UserID); err != nil {
			writeError(w, log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func toScheduleResponses(items []DoseInstance) []scheduleResponse {
	return lo.Map(items, func(d DoseInstance, _ int) scheduleResponse {
		return toScheduleResponse(d)
	})
}

func toScheduleResponse(d DoseInstance) scheduleResponse {
	return scheduleResponse{
		ID:            d.ID,
		MedicineID:    d.MedicineID,
		ScheduledTime: d.ScheduledTime,
		Status:        d.State(),
		Taken:         d.Taken,
		TakenAt:       d.TakenAt,
		Skipped:       d.Skipped,
		CreatedAt:     d.CreatedAt,
	}
}

func writeError(w http.ResponseWriter, log logger.Logger, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "schedule not found", http.StatusNotFound)
	case errors.Is(err, ErrInvalidState):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		log.Error("schedules request failed", map[string]any{"error": err.Error()})
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
