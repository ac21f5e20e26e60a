package dashboard

import (
	"encoding/json"
	"net/http"
	"strings"

	"pharmabot/internal/middleware"
	"pharmabot/internal/platform/logger"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, log logger.Logger) {
	r.Get("/dashboard/stats", statsHandler(svc, log))
}

type statsResponse struct {
	TotalPrescriptions int `json:"total_prescriptions"`
	ActiveMedicines    int `json:"active_medicines"`
	TodayTotal         int `json:"today_total"`
	TodayTaken         int `json:"today_taken"`
	TodaySkipped       int `json:"today_skipped"`
	DevicesOnline      int `json:"devices_online"`
}

// statsHandler godoc
// @Summary Resumen del panel
// @Description Conteos del usuario: recetas, medicamentos activos, tomas de hoy y dispositivos online.
// @Tags dashboard
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Success 200 {object} statsResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 500 {string} string "internal error"
// @Router /dashboard/stats [get]
func statsHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		st, err := svc.Stats(r.Context(), claims.UserID)
		if err != nil {
			log.Error("dashboard stats failed", map[string]any{"error": err.Error()})
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, statsResponse{
			TotalPrescriptions: st.TotalPrescriptions,
			ActiveMedicines:    st.ActiveMedicines,
			TodayTotal:         st.TodayTotal,
			TodayTaken:         st.TodayTaken,
			TodaySkipped:       st.TodaySkipped,
			DevicesOnline:      st.DevicesOnline,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
