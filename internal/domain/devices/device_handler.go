package devices

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"pharmabot/internal/domain/schedules"
	"pharmabot/internal/domain/users"
	"pharmabot/internal/middleware"
	"pharmabot/internal/platform/clock"
	"pharmabot/internal/platform/logger"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
)

// DeviceAPI agrupa lo que necesita el firmware. El dispensador se identifica
// por device_id + username; no manda token.
type DeviceAPI struct {
	Devices   *Service
	Schedules *schedules.Service
	Users     *users.Service
	Logger    logger.Logger
}

// RegisterDeviceRoutes monta /device/*. El rate limit lo pone el router.
func RegisterDeviceRoutes(r chi.Router, api DeviceAPI) {
	r.Get("/time", deviceTimeHandler(api))
	r.Get("/schedules", deviceSchedulesHandler(api))
	r.Post("/heartbeat", deviceHeartbeatHandler(api))
	r.Post("/{deviceID}/status", deviceStatusHandler(api))
	r.Post("/dispense", deviceDispenseHandler(api))
	r.Post("/state", deviceStateHandler(api))
	r.Get("/commands", deviceCommandsHandler(api))
	r.Post("/command", enqueueCommandHandler(api))
}

type deviceTimeResponse struct {
	Timestamp int64  `json:"timestamp"`
	Datetime  string `json:"datetime"`
	Timezone  string `json:"timezone"`
}

type deviceScheduleItem struct {
	ScheduleID        string    `json:"schedule_id"`
	MedicineID        string    `json:"medicine_id"`
	Name              string    `json:"name"`
	Dosage            string    `json:"dosage"`
	Instructions      string    `json:"instructions"`
	CompartmentNumber int       `json:"compartment_number"`
	ScheduledTime     time.Time `json:"scheduled_time"`
	Taken             bool      `json:"taken"`
	Skipped           bool      `json:"skipped"`
}

type deviceSchedulesResponse struct {
	Username  string               `json:"username"`
	Count     int                  `json:"count"`
	Schedules []deviceScheduleItem `json:"schedules"`
}

type heartbeatRequest struct {
	DeviceID   string `json:"device_id"`
	Username   string `json:"username"`
	DeviceName string `json:"device_name"`
}

type statusRequest struct {
	IPAddress string `json:"ip_address"`
}

type heartbeatResponse struct {
	Success    bool      `json:"success"`
	DeviceID   string    `json:"device_id"`
	ServerTime time.Time `json:"server_time"`
}

type deviceDispenseRequest struct {
	ScheduleID string `json:"schedule_id"`
	DeviceID   string `json:"device_id"`
}

type deviceDispenseResponse struct {
	Success    bool       `json:"success"`
	ScheduleID string     `json:"schedule_id"`
	TakenAt    *time.Time `json:"taken_at,omitempty"`
}

type stateRequest struct {
	DeviceID           string    `json:"device_id"`
	Username           string    `json:"username"`
	ServoAngles        []float64 `json:"servo_angles"`
	UltrasonicDistance *float64  `json:"ultrasonic_distance"`
	MedicineDetected   bool      `json:"medicine_detected"`
	LEDState           string    `json:"led_state"`
	BuzzerState        string    `json:"buzzer_state"`
	CurrentOperation   string    `json:"current_operation"`
	LastDispenseTime   string    `json:"last_dispense_time"`
}

type commandItem struct {
	Command   string          `json:"command"`
	Params    json.RawMessage `json:"params"`
	Timestamp time.Time       `json:"timestamp"`
}

type commandsResponse struct {
	DeviceID string        `json:"device_id"`
	Count    int           `json:"count"`
	Commands []commandItem `json:"commands"`
}

type enqueueCommandRequest struct {
	DeviceID string          `json:"device_id"`
	Command  string          `json:"command"`
	Params   json.RawMessage `json:"params"`
}

type enqueueCommandResponse struct {
	Success bool  `json:"success"`
	Seq     int64 `json:"seq"`
}

// deviceTimeHandler godoc
// @Summary Hora del servidor para el firmware
// @Tags device
// @Produce json
// @Success 200 {object} deviceTimeResponse
// @Router /device/time [get]
func deviceTimeHandler(api DeviceAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := api.Devices.now()
		writeJSON(w, http.StatusOK, deviceTimeResponse{
			Timestamp: now.Unix(),
			Datetime:  now.In(clock.Local).Format("2006-01-02 15:04:05"),
			Timezone:  clock.ZoneName,
		})
	}
}

// deviceSchedulesHandler godoc
// @Summary Tomas pendientes de los próximos 7 días
// @Description Sólo medicamentos activos con compartimento 1..3, en orden cronológico.
// @Tags device
// @Produce json
// @Param username query string true "Usuario dueño del dispensador"
// @Success 200 {object} deviceSchedulesResponse
// @Failure 400 {string} string "username is required"
// @Failure 404 {string} string "user not found"
// @Router /device/schedules [get]
func deviceSchedulesHandler(api DeviceAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := strings.TrimSpace(r.URL.Query().Get("username"))
		if username == "" {
			http.Error(w, "username is required", http.StatusBadRequest)
			return
		}
		u, err := api.Users.GetByUsername(r.Context(), username)
		if err != nil {
			writeDeviceError(w, api.Logger, err)
			return
		}

		items, err := api.Schedules.ListForDevice(r.Context(), u.ID)
		if err != nil {
			writeDeviceError(w, api.Logger, err)
			return
		}

		writeJSON(w, http.StatusOK, deviceSchedulesResponse{
			Username: u.Username,
			Count:    len(items),
			Schedules: lo.Map(items, func(d schedules.DeviceDose, _ int) deviceScheduleItem {
				return deviceScheduleItem{
					ScheduleID:        d.Dose.ID,
					MedicineID:        d.Medicine.ID,
					Name:              d.Medicine.Name,
					Dosage:            d.Medicine.Dosage,
					Instructions:      d.Medicine.Instructions,
					CompartmentNumber: d.Medicine.CompartmentNumber,
					ScheduledTime:     d.Dose.ScheduledTime,
					Taken:             d.Dose.Taken,
					Skipped:           d.Dose.Skipped,
				}
			}),
		})
	}
}

// deviceHeartbeatHandler godoc
// @Summary Heartbeat / auto-registro del dispensador
// @Description Upsert por device_id; la dirección se toma de la IP de origen.
// @Tags device
// @Accept json
// @Produce json
// @Param payload body heartbeatRequest true "device_id y username obligatorios"
// @Success 200 {object} heartbeatResponse
// @Failure 400 {string} string "device_id and username are required"
// @Failure 404 {string} string "user not found"
// @Router /device/heartbeat [post]
func deviceHeartbeatHandler(api DeviceAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req heartbeatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.DeviceID) == "" || strings.TrimSpace(req.Username) == "" {
			http.Error(w, "device_id and username are required", http.StatusBadRequest)
			return
		}

		u, err := api.Users.GetByUsername(r.Context(), req.Username)
		if err != nil {
			writeDeviceError(w, api.Logger, err)
			return
		}

		d, err := api.Devices.Upsert(r.Context(), u.ID, UpsertInput{
			DeviceID: req.DeviceID,
			Name:     req.DeviceName,
			Address:  remoteHost(r),
		})
		if err != nil {
			writeDeviceError(w, api.Logger, err)
			return
		}

		writeJSON(w, http.StatusOK, heartbeatResponse{
			Success:    true,
			DeviceID:   d.DeviceID,
			ServerTime: api.Devices.now(),
		})
	}
}

// deviceStatusHandler godoc
// @Summary Reporte de estado (sólo heartbeat)
// @Description Sella last_seen. Un device_id desconocido devuelve 404 sin efectos.
// @Tags device
// @Accept json
// @Produce json
// @Param deviceID path string true "ID del dispositivo"
// @Param payload body statusRequest false "ip_address opcional"
// @Success 200 {object} heartbeatResponse
// @Failure 404 {string} string "device not found"
// @Router /device/{deviceID}/status [post]
func deviceStatusHandler(api DeviceAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req statusRequest
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
		}

		d, err := api.Devices.Heartbeat(r.Context(), chi.URLParam(r, "deviceID"), req.IPAddress)
		if err != nil {
			writeDeviceError(w, api.Logger, err)
			return
		}

		writeJSON(w, http.StatusOK, heartbeatResponse{
			Success:    true,
			DeviceID:   d.DeviceID,
			ServerTime: api.Devices.now(),
		})
	}
}

// deviceDispenseHandler godoc
// @Summary Confirmación de dispensado
// @Description Marca la toma como tomada. Idempotente.
// @Tags device
// @Accept json
// @Produce json
// @Param payload body deviceDispenseRequest true "schedule_id obligatorio"
// @Success 200 {object} deviceDispenseResponse
// @Failure 400 {string} string "schedule_id is required"
// @Failure 404 {string} string "schedule not found"
// @Router /device/dispense [post]
func deviceDispenseHandler(api DeviceAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req deviceDispenseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.ScheduleID) == "" {
			http.Error(w, "schedule_id is required", http.StatusBadRequest)
			return
		}

		d, err := api.Schedules.DeviceConfirmDispense(r.Context(), req.ScheduleID, req.DeviceID)
		if err != nil {
			writeDeviceError(w, api.Logger, err)
			return
		}

		api.Logger.Info("dose dispensed", map[string]any{
			"schedule_id": d.ID,
			"device_id":   strings.TrimSpace(req.DeviceID),
		})
		writeJSON(w, http.StatusOK, deviceDispenseResponse{
			Success:    true,
			ScheduleID: d.ID,
			TakenAt:    d.TakenAt,
		})
	}
}

// deviceStateHandler godoc
// @Summary Telemetría del hardware
// @Description Reemplaza la foto de telemetría. No toca la cola de comandos.
// @Tags device
// @Accept json
// @Produce json
// @Param payload body stateRequest true "device_id, username y sensores"
// @Success 200 {object} heartbeatResponse
// @Failure 400 {string} string "device_id and username are required"
// @Failure 404 {string} string "device not found"
// @Router /device/state [post]
func deviceStateHandler(api DeviceAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req stateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.DeviceID) == "" || strings.TrimSpace(req.Username) == "" {
			http.Error(w, "device_id and username are required", http.StatusBadRequest)
			return
		}

		u, err := api.Users.GetByUsername(r.Context(), req.Username)
		if err != nil {
			writeDeviceError(w, api.Logger, err)
			return
		}

		err = api.Devices.UpdateTelemetry(r.Context(), req.DeviceID, u.ID, Telemetry{
			ServoAngles:        req.ServoAngles,
			UltrasonicDistance: req.UltrasonicDistance,
			MedicineDetected:   req.MedicineDetected,
			LEDState:           req.LEDState,
			BuzzerState:        req.BuzzerState,
			CurrentOperation:   req.CurrentOperation,
			LastDispenseTime:   req.LastDispenseTime,
		})
		if err != nil {
			writeDeviceError(w, api.Logger, err)
			return
		}

		writeJSON(w, http.StatusOK, heartbeatResponse{
			Success:    true,
			DeviceID:   strings.TrimSpace(req.DeviceID),
			ServerTime: api.Devices.now(),
		})
	}
}

// deviceCommandsHandler godoc
// @Summary Drenar comandos pendientes
// @Description Devuelve en orden todo lo encolado desde el último drenado y lo marca entregado. Sin ack.
// @Tags device
// @Produce json
// @Param device_id query string true "ID del dispositivo"
// @Param username query string true "Usuario dueño"
// @Success 200 {object} commandsResponse
// @Failure 400 {string} string "device_id and username are required"
// @Failure 404 {string} string "device not found"
// @Router /device/commands [get]
func deviceCommandsHandler(api DeviceAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		deviceID := strings.TrimSpace(q.Get("device_id"))
		username := strings.TrimSpace(q.Get("username"))
		if deviceID == "" || username == "" {
			http.Error(w, "device_id and username are required", http.StatusBadRequest)
			return
		}

		u, err := api.Users.GetByUsername(r.Context(), username)
		if err != nil {
			writeDeviceError(w, api.Logger, err)
			return
		}

		cmds, err := api.Devices.Drain(r.Context(), deviceID, u.ID)
		if err != nil {
			writeDeviceError(w, api.Logger, err)
			return
		}

		writeJSON(w, http.StatusOK, commandsResponse{
			DeviceID: deviceID,
			Count:    len(cmds),
			Commands: lo.Map(cmds, func(c Command, _ int) commandItem {
				return commandItem{Command: c.Command, Params: c.Params, Timestamp: c.Timestamp}
			}),
		})
	}
}

// enqueueCommandHandler godoc
// @Summary Encolar un comando para el dispensador
// @Description Requiere usuario autenticado dueño del dispositivo. No hay deduplicación.
// @Tags device
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param payload body enqueueCommandRequest true "device_id, command y params (objeto JSON)"
// @Success 201 {object} enqueueCommandResponse
// @Failure 400 {string} string "invalid input"
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "device not found"
// @Router /device/command [post]
func enqueueCommandHandler(api DeviceAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req enqueueCommandRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		c, err := api.Devices.Enqueue(r.Context(), req.DeviceID, claims.UserID, req.Command, req.Params)
		if err != nil {
			writeDeviceError(w, api.Logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, enqueueCommandResponse{Success: true, Seq: c.Seq})
	}
}

// remoteHost asume que chi RealIP ya corrió.
func remoteHost(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

func writeDeviceError(w http.ResponseWriter, log logger.Logger, err error) {
	switch {
	case errors.Is(err, users.ErrNotFound):
		http.Error(w, "user not found", http.StatusNotFound)
	case errors.Is(err, schedules.ErrNotFound):
		http.Error(w, "schedule not found", http.StatusNotFound)
	case errors.Is(err, users.ErrInvalidInput), errors.Is(err, schedules.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		writeError(w, log, err)
	}
}
