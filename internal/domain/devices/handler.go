package devices

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"pharmabot/internal/middleware"
	"pharmabot/internal/platform/logger"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
)

// RegisterRoutes monta la API de dispositivos para el usuario autenticado.
func RegisterRoutes(r chi.Router, svc *Service, log logger.Logger) {
	r.Route("/devices", func(dr chi.Router) {
		dr.Post("/", registerDeviceHandler(svc, log))
		dr.Get("/", listDevicesHandler(svc, log))
		dr.Delete("/{deviceID}", deactivateDeviceHandler(svc, log))
		dr.Post("/{deviceID}/notify", notifyHandler(svc, log))
		dr.Post("/{deviceID}/dispense", dispenseHandler(svc, log))
	})
}

type registerDeviceRequest struct {
	DeviceID   string `json:"device_id"`
	DeviceName string `json:"device_name"`
	IPAddress  string `json:"ip_address"`
}

type deviceResponse struct {
	DeviceID   string     `json:"device_id"`
	DeviceName string     `json:"device_name"`
	DeviceType string     `json:"device_type"`
	IPAddress  string     `json:"ip_address,omitempty"`
	IsOnline   bool       `json:"is_online"`
	LastSeen   *time.Time `json:"last_seen,omitempty"`
	Telemetry  Telemetry  `json:"telemetry"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
}

type notifyRequest struct {
	MedicineName string `json:"medicine_name"`
	Dosage       string `json:"dosage"`
	Instructions string `json:"instructions"`
}

type dispenseRequest struct {
	Compartment  int    `json:"compartment"`
	MedicineName string `json:"medicine_name"`
}

type deviceCallResponse struct {
	Success  bool           `json:"success"`
	Response map[string]any `json:"response,omitempty"`
}

// registerDeviceHandler godoc
// @Summary Registrar (o actualizar) un dispositivo
// @Description Upsert por device_id. Si el device_id ya pertenecía a otro usuario, queda reasignado al caller.
// @Tags devices
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param payload body registerDeviceRequest true "device_id obligatorio"
// @Success 201 {object} deviceResponse
// @Failure 400 {string} string "invalid input"
// @Failure 401 {string} string "unauthorized"
// @Router /devices [post]
func registerDeviceHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req registerDeviceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		d, err := svc.Upsert(r.Context(), claims.UserID, UpsertInput{
			DeviceID: req.DeviceID,
			Name:     req.DeviceName,
			Address:  req.IPAddress,
		})
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, toDeviceResponse(svc, d))
	}
}

// listDevicesHandler godoc
// @Summary Listar dispositivos activos
// @Description is_online se calcula al leer: flag online y heartbeat dentro del timeout.
// @Tags devices
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Success 200 {array} deviceResponse
// @Failure 401 {string} string "unauthorized"
// @Router /devices [get]
func listDevicesHandler(svc *Service, log logger.Logger) http.HandlerFunc {
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
		writeJSON(w, http.StatusOK, lo.Map(items, func(d Device, _ int) deviceResponse {
			return toDeviceResponse(svc, d)
		}))
	}
}

// deactivateDeviceHandler godoc
// @Summary Dar de baja un dispositivo
// @Tags devices
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param deviceID path string true "ID del dispositivo"
// @Success 204
// @Failure 404 {string} string "device not found"
// @Router /devices/{deviceID} [delete]
func deactivateDeviceHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if err := svc.Deactivate(r.Context(), chi.URLParam(r, "deviceID"), claims.UserID); err != nil {
			writeError(w, log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// notifyHandler godoc
// @Summary Enviar recordatorio al dispositivo
// @Description Llamada saliente única a http://{ip}/notify. Si falla el transporte el dispositivo queda offline y responde 502.
// @Tags devices
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param deviceID path string true "ID del dispositivo"
// @Param payload body notifyRequest true "Datos del recordatorio"
// @Success 200 {object} deviceCallResponse
// @Failure 404 {string} string "device not found"
// @Failure 409 {string} string "device not available"
// @Failure 502 {string} string "device unreachable"
// @Router /devices/{deviceID}/notify [post]
func notifyHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req notifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		resp, err := svc.SendNotification(r.Context(), chi.URLParam(r, "deviceID"), claims.UserID, NotifyInput{
			MedicineName: req.MedicineName,
			Dosage:       req.Dosage,
			Instructions: req.Instructions,
		})
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, deviceCallResponse{Success: true, Response: resp})
	}
}

// dispenseHandler godoc
// @Summary Ordenar dispensar un compartimento
// @Description Llamada saliente única a http://{ip}/dispense. compartment debe ser 1..3.
// @Tags devices
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param deviceID path string true "ID del dispositivo"
// @Param payload body dispenseRequest true "Compartimento y nombre del medicamento"
// @Success 200 {object} deviceCallResponse
// @Failure 400 {string} string "invalid input"
// @Failure 409 {string} string "device not available"
// @Failure 502 {string} string "device unreachable"
// @Router /devices/{deviceID}/dispense [post]
func dispenseHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req dispenseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		resp, err := svc.SendDispense(r.Context(), chi.URLParam(r, "deviceID"), claims.UserID, req.Compartment, req.MedicineName)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, deviceCallResponse{Success: true, Response: resp})
	}
}

func toDeviceResponse(svc *Service, d Device) deviceResponse {
	return deviceResponse{
		DeviceID:   d.DeviceID,
		DeviceName: d.Name,
		DeviceType: d.Type,
		IPAddress:  d.Address,
		IsOnline:   svc.IsOnline(d),
		LastSeen:   d.LastSeen,
		Telemetry:  d.State.Telemetry,
		IsActive:   d.Active,
		CreatedAt:  d.CreatedAt,
	}
}

func writeError(w http.ResponseWriter, log logger.Logger, err error) {
	var te *TransportError
	switch {
	case errors.As(err, &te):
		http.Error(w, te.Error(), http.StatusBadGateway)
	case errors.Is(err, ErrDeviceRejected):
		http.Error(w, err.Error(), http.StatusBadGateway)
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "device not found", http.StatusNotFound)
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrDrainConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		log.Error("devices request failed", map[string]any{"error": err.Error()})
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
