package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"pharmabot/internal/adapters/storage/sqlstore"
	"pharmabot/internal/router"
)

type recordedCall struct {
	address string
	path    string
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (f *fakeNotifier) Send(_ context.Context, address, path string, _ any) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedCall{address: address, path: path})
	return map[string]any{"status": "ok"}, nil
}

func newSQLiteStore(t *testing.T) *sqlstore.DB {
	t.Helper()
	db, err := sqlstore.Open(sqlstore.SQLite, filepath.Join(t.TempDir(), "e2e.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := sqlstore.New(db, sqlstore.SQLite)
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestHTTP_EndToEnd_PrescriptionToDevice(t *testing.T) {
	backends := []struct {
		name  string
		store func(t *testing.T) *sqlstore.DB
	}{
		{name: "memory", store: func(*testing.T) *sqlstore.DB { return nil }},
		{name: "sqlite", store: newSQLiteStore},
	}

	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			notifier := &fakeNotifier{}
			ts := httptest.NewServer(router.NewRouter(router.Options{
				Store:    b.store(t),
				Notifier: notifier,
			}))
			defer ts.Close()

			runEndToEnd(t, ts.URL, notifier)
		})
	}
}

func runEndToEnd(t *testing.T, baseURL string, notifier *fakeNotifier) {
	const userID = "u-1"

	// 1) Usuario se registra con su propio ID
	{
		st, body := doReq(t, baseURL, "POST", "/users", userID, map[string]any{
			"username": "Alice",
			"email":    "alice@example.com",
		})
		if st != http.StatusCreated {
			t.Fatalf("expected 201 register, got %d body=%s", st, string(body))
		}
		var u struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		}
		decode(t, body, &u)
		if u.ID != userID || u.Username != "alice" {
			t.Fatalf("unexpected user: %+v", u)
		}
	}

	// 2) Sin identidad no hay acceso
	{
		st, _ := doReq(t, baseURL, "GET", "/prescriptions", "", nil)
		if st != http.StatusUnauthorized {
			t.Fatalf("expected 401 without claims, got %d", st)
		}
	}

	// 3) Receta ya extraída
	var medicineID string
	{
		st, body := doReq(t, baseURL, "POST", "/prescriptions", userID, map[string]any{
			"doctor_name":  "Dr. Rahman",
			"patient_name": "Alice",
			"medicines": []map[string]any{{
				"name":      "Napa",
				"dosage":    "500mg",
				"frequency": "four times daily",
				"duration":  "5 days",
				"timing":    "after meal",
			}},
		})
		if st != http.StatusCreated {
			t.Fatalf("expected 201 create prescription, got %d body=%s", st, string(body))
		}
		var res struct {
			Prescription struct {
				Medicines []struct {
					ID string `json:"id"`
				} `json:"medicines"`
			} `json:"prescription"`
			SchedulesCreated int `json:"schedules_created"`
		}
		decode(t, body, &res)
		if len(res.Prescription.Medicines) != 1 || res.SchedulesCreated == 0 {
			t.Fatalf("unexpected create response: %s", string(body))
		}
		medicineID = res.Prescription.Medicines[0].ID
	}

	// 4) Registro inválido no persiste nada
	{
		st, _ := doReq(t, baseURL, "POST", "/prescriptions", userID, map[string]any{
			"medicines": []map[string]any{{"name": "", "dosage": "1"}},
		})
		if st != http.StatusBadRequest {
			t.Fatalf("expected 400 invalid record, got %d", st)
		}
	}

	// 5) Sin compartimento el dispensador no ve nada
	{
		st, body := doReq(t, baseURL, "GET", "/device/schedules?username=alice", "", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 device schedules, got %d body=%s", st, string(body))
		}
		if n := deviceSchedules(t, body); len(n) != 0 {
			t.Fatalf("expected no schedules without compartment, got %d", len(n))
		}
	}

	// 6) Asignar compartimento 1
	{
		st, body := doReq(t, baseURL, "PATCH", "/medicines/"+medicineID+"/compartment", userID, map[string]any{
			"compartment_number": 1,
		})
		if st != http.StatusOK {
			t.Fatalf("expected 200 assign compartment, got %d body=%s", st, string(body))
		}
	}

	// 7) Heartbeat auto-registra el dispensador
	{
		st, body := doReq(t, baseURL, "POST", "/device/heartbeat", "", map[string]any{
			"device_id":   "esp-1",
			"username":    "alice",
			"device_name": "Kitchen",
		})
		if st != http.StatusOK {
			t.Fatalf("expected 200 heartbeat, got %d body=%s", st, string(body))
		}
	}

	// 8) Heartbeat con usuario desconocido
	{
		st, _ := doReq(t, baseURL, "POST", "/device/heartbeat", "", map[string]any{
			"device_id": "esp-9",
			"username":  "nobody",
		})
		if st != http.StatusNotFound {
			t.Fatalf("expected 404 unknown user, got %d", st)
		}
	}

	// 9) El dispensador ve y confirma una toma
	var scheduleID string
	{
		st, body := doReq(t, baseURL, "GET", "/device/schedules?username=alice", "", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 device schedules, got %d", st)
		}
		items := deviceSchedules(t, body)
		if len(items) == 0 {
			t.Fatalf("expected schedules after compartment assignment")
		}
		for _, it := range items {
			if it.CompartmentNumber != 1 || it.Taken {
				t.Fatalf("unexpected device item: %+v", it)
			}
		}
		scheduleID = items[0].ScheduleID
	}
	for i := 0; i < 2; i++ {
		st, body := doReq(t, baseURL, "POST", "/device/dispense", "", map[string]any{
			"schedule_id": scheduleID,
			"device_id":   "esp-1",
		})
		if st != http.StatusOK {
			t.Fatalf("dispense %d: expected 200, got %d body=%s", i, st, string(body))
		}
	}
	{
		st, _ := doReq(t, baseURL, "POST", "/device/dispense", "", map[string]any{
			"schedule_id": "missing",
		})
		if st != http.StatusNotFound {
			t.Fatalf("expected 404 unknown schedule, got %d", st)
		}
	}

	// 10) Cola de comandos: FIFO, se drena una sola vez
	for _, cmd := range []string{"test_buzzer", "open_compartment"} {
		st, body := doReq(t, baseURL, "POST", "/device/command", userID, map[string]any{
			"device_id": "esp-1",
			"command":   cmd,
			"params":    map[string]any{"n": 1},
		})
		if st != http.StatusCreated {
			t.Fatalf("expected 201 enqueue, got %d body=%s", st, string(body))
		}
	}
	{
		st, _ := doReq(t, baseURL, "POST", "/device/command", "", map[string]any{
			"device_id": "esp-1",
			"command":   "test_buzzer",
		})
		if st != http.StatusUnauthorized {
			t.Fatalf("expected 401 enqueue without claims, got %d", st)
		}
	}
	{
		st, body := doReq(t, baseURL, "GET", "/device/commands?device_id=esp-1&username=alice", "", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 drain, got %d body=%s", st, string(body))
		}
		var res struct {
			Count    int `json:"count"`
			Commands []struct {
				Command string `json:"command"`
			} `json:"commands"`
		}
		decode(t, body, &res)
		if res.Count != 2 || res.Commands[0].Command != "test_buzzer" || res.Commands[1].Command != "open_compartment" {
			t.Fatalf("unexpected drain: %s", string(body))
		}

		st, body = doReq(t, baseURL, "GET", "/device/commands?device_id=esp-1&username=alice", "", nil)
		decode(t, body, &res)
		if st != http.StatusOK || res.Count != 0 {
			t.Fatalf("expected empty second drain, got %d body=%s", st, string(body))
		}
	}

	// 11) Telemetría
	{
		st, body := doReq(t, baseURL, "POST", "/device/state", "", map[string]any{
			"device_id":         "esp-1",
			"username":          "alice",
			"servo_angles":      []float64{0, 90, 180},
			"medicine_detected": true,
			"led_state":         "on",
		})
		if st != http.StatusOK {
			t.Fatalf("expected 200 state, got %d body=%s", st, string(body))
		}
	}

	// 12) Dueño ve el dispositivo online con telemetría
	{
		st, body := doReq(t, baseURL, "GET", "/devices", userID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 list devices, got %d", st)
		}
		var list []struct {
			DeviceID  string `json:"device_id"`
			IsOnline  bool   `json:"is_online"`
			Telemetry struct {
				LEDState string `json:"led_state"`
			} `json:"telemetry"`
		}
		decode(t, body, &list)
		if len(list) != 1 || !list[0].IsOnline || list[0].Telemetry.LEDState != "on" {
			t.Fatalf("unexpected devices: %s", string(body))
		}
	}

	// 13) Notificación saliente a la IP del heartbeat
	{
		st, body := doReq(t, baseURL, "POST", "/devices/esp-1/notify", userID, map[string]any{
			"medicine_name": "Napa",
			"dosage":        "500mg",
		})
		if st != http.StatusOK {
			t.Fatalf("expected 200 notify, got %d body=%s", st, string(body))
		}
		notifier.mu.Lock()
		calls := append([]recordedCall(nil), notifier.calls...)
		notifier.mu.Unlock()
		if len(calls) != 1 || calls[0].address != "127.0.0.1" || calls[0].path != "/notify" {
			t.Fatalf("unexpected notifier calls: %+v", calls)
		}
	}

	// 14) Dashboard
	{
		st, body := doReq(t, baseURL, "GET", "/dashboard/stats", userID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 stats, got %d", st)
		}
		var stats struct {
			TotalPrescriptions int `json:"total_prescriptions"`
			ActiveMedicines    int `json:"active_medicines"`
			DevicesOnline      int `json:"devices_online"`
		}
		decode(t, body, &stats)
		if stats.TotalPrescriptions != 1 || stats.ActiveMedicines != 1 || stats.DevicesOnline != 1 {
			t.Fatalf("unexpected stats: %s", string(body))
		}
	}
}

func TestHTTP_DeviceRateLimit(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{
		Device: router.DeviceOptions{RatePerSec: 0.001, RateBurst: 1},
	}))
	defer ts.Close()

	if st, _ := doReq(t, ts.URL, "GET", "/device/time", "", nil); st != http.StatusOK {
		t.Fatalf("expected 200 first call, got %d", st)
	}
	if st, _ := doReq(t, ts.URL, "GET", "/device/time", "", nil); st != http.StatusTooManyRequests {
		t.Fatalf("expected 429 second call, got %d", st)
	}
	// el límite es sólo para /device
	if st, _ := doReq(t, ts.URL, "GET", "/health", "", nil); st != http.StatusOK {
		t.Fatalf("expected 200 health, got %d", st)
	}
}

func TestHTTP_DeviceTime(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{}))
	defer ts.Close()

	st, body := doReq(t, ts.URL, "GET", "/device/time", "", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200, got %d", st)
	}
	var res struct {
		Timestamp int64  `json:"timestamp"`
		Datetime  string `json:"datetime"`
		Timezone  string `json:"timezone"`
	}
	decode(t, body, &res)
	if res.Timestamp == 0 || len(res.Datetime) != len("2006-01-02 15:04:05") || res.Timezone == "" {
		t.Fatalf("unexpected time response: %s", string(body))
	}
}

type deviceItem struct {
	ScheduleID        string `json:"schedule_id"`
	CompartmentNumber int    `json:"compartment_number"`
	Taken             bool   `json:"taken"`
}

func deviceSchedules(t *testing.T, body []byte) []deviceItem {
	t.Helper()
	var res struct {
		Count     int          `json:"count"`
		Schedules []deviceItem `json:"schedules"`
	}
	decode(t, body, &res)
	if res.Count != len(res.Schedules) {
		t.Fatalf("count mismatch: %s", string(body))
	}
	return res.Schedules
}

func decode(t *testing.T, body []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(body, v); err != nil {
		t.Fatalf("invalid json response: %v body=%s", err, string(body))
	}
}

func doReq(t *testing.T, baseURL, method, path, debugUserID string, body any) (int, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, baseURL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if debugUserID != "" {
		req.Header.Set("X-Debug-User-ID", debugUserID)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()

	respBody, _ := io.ReadAll(res.Body)
	return res.StatusCode, respBody
}
