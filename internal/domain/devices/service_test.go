package devices

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"
)

// -------------------------
// Fakes
// -------------------------

type testRepo struct {
	byID map[string]Device
}

func newTestRepo() *testRepo { return &testRepo{byID: map[string]Device{}} }

func (r *testRepo) Get(ctx context.Context, id string) (Device, error) {
	d, ok := r.byID[id]
	if !ok {
		return Device{}, ErrNotFound
	}
	return d, nil
}

func (r *testRepo) Create(ctx context.Context, d Device) error {
	r.byID[d.DeviceID] = d
	return nil
}

func (r *testRepo) Update(ctx context.Context, d Device) error {
	if _, ok := r.byID[d.DeviceID]; !ok {
		return ErrNotFound
	}
	r.byID[d.DeviceID] = d
	return nil
}

func (r *testRepo) ListByOwner(ctx context.Context, owner string) ([]Device, error) {
	out := []Device{}
	for _, d := range r.byID {
		if d.OwnerUserID == owner {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out, nil
}

func (r *testRepo) SetOnline(ctx context.Context, id string, online bool) error {
	d, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	d.Online = online
	r.byID[id] = d
	return nil
}

func (r *testRepo) UpdateTelemetry(ctx context.Context, id string, t Telemetry) error {
	d, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	d.State = NewHardwareState(t)
	r.byID[id] = d
	return nil
}

type testQueue struct {
	seq       int64
	items     map[string][]Command
	conflicts int
}

func newTestQueue() *testQueue { return &testQueue{items: map[string][]Command{}} }

func (q *testQueue) Enqueue(ctx context.Context, id string, c Command) (Command, error) {
	q.seq++
	c.Seq = q.seq
	c.DeviceID = id
	q.items[id] = append(q.items[id], c)
	return c, nil
}

func (q *testQueue) Drain(ctx context.Context, id string) ([]Command, error) {
	if q.conflicts > 0 {
		q.conflicts--
		return nil, ErrDrainConflict
	}
	out := q.items[id]
	delete(q.items, id)
	if out == nil {
		out = []Command{}
	}
	return out, nil
}

type testNotifier struct {
	calls []string
	err   error
}

func (n *testNotifier) Send(ctx context.Context, address, path string, payload any) (map[string]any, error) {
	n.calls = append(n.calls, address+path)
	if n.err != nil {
		return nil, n.err
	}
	return map[string]any{"status": "ok"}, nil
}

var testNow = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

func newTestService() (*Service, *testRepo, *testQueue, *testNotifier) {
	repo := newTestRepo()
	q := newTestQueue()
	n := &testNotifier{}
	svc := NewService(repo, Options{Queue: q, Notifier: n})
	svc.now = func() time.Time { return testNow }
	return svc, repo, q, n
}

// -------------------------
// Tests
// -------------------------

func TestUpsert_CreatesThenUpdates(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	d, err := svc.Upsert(ctx, "u1", UpsertInput{DeviceID: "esp-1", Address: "10.0.0.5"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if d.Name != "esp-1" || d.Type != DefaultDeviceType || !d.Online || d.LastSeen == nil {
		t.Fatalf("unexpected new device: %+v", d)
	}

	svc.now = func() time.Time { return testNow.Add(time.Minute) }
	d2, err := svc.Upsert(ctx, "u1", UpsertInput{DeviceID: "esp-1", Name: "Kitchen"})
	if err != nil {
		t.Fatalf("upsert 2: %v", err)
	}
	if d2.Name != "Kitchen" || d2.Address != "10.0.0.5" {
		t.Fatalf("expected name updated and address kept: %+v", d2)
	}
	if !d2.LastSeen.Equal(testNow.Add(time.Minute)) {
		t.Fatalf("last_seen not stamped: %v", d2.LastSeen)
	}
	if !d2.CreatedAt.Equal(testNow) {
		t.Fatalf("created_at must not change")
	}
}

func TestUpsert_ReassignsOwner(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	_, _ = svc.Upsert(ctx, "u1", UpsertInput{DeviceID: "esp-1"})
	d, err := svc.Upsert(ctx, "u2", UpsertInput{DeviceID: "esp-1"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if d.OwnerUserID != "u2" {
		t.Fatalf("expected owner u2, got %s", d.OwnerUserID)
	}
	if _, err := svc.GetOwned(ctx, "esp-1", "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("old owner should not see device, got %v", err)
	}
}

func TestUpsert_InvalidInput(t *testing.T) {
	svc, _, _, _ := newTestService()
	if _, err := svc.Upsert(context.Background(), "u1", UpsertInput{DeviceID: " "}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestHeartbeat_UnknownDevice(t *testing.T) {
	svc, _, _, _ := newTestService()
	if _, err := svc.Heartbeat(context.Background(), "ghost", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHeartbeat_KeepsOnlineWithinTimeout(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	_, _ = svc.Upsert(ctx, "u1", UpsertInput{DeviceID: "esp-1"})

	svc.now = func() time.Time { return testNow.Add(4 * time.Minute) }
	if _, err := svc.Heartbeat(ctx, "esp-1", "10.0.0.9"); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}

	svc.now = func() time.Time { return testNow.Add(8 * time.Minute) }
	d, _ := svc.Get(ctx, "esp-1")
	if !svc.IsOnline(d) {
		t.Fatalf("device should still be online 4 minutes after heartbeat")
	}
	if d.Address != "10.0.0.9" {
		t.Fatalf("address not refreshed: %s", d.Address)
	}

	svc.now = func() time.Time { return testNow.Add(9 * time.Minute) }
	if svc.IsOnline(d) {
		t.Fatalf("device should be offline at exactly 300s")
	}
}

func TestDeactivate_HidesFromList(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	_, _ = svc.Upsert(ctx, "u1", UpsertInput{DeviceID: "a"})
	_, _ = svc.Upsert(ctx, "u1", UpsertInput{DeviceID: "b"})

	if err := svc.Deactivate(ctx, "a", "u1"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	items, _ := svc.ListByOwner(ctx, "u1")
	if len(items) != 1 || items[0].DeviceID != "b" {
		t.Fatalf("unexpected list: %+v", items)
	}
	if err := svc.Deactivate(ctx, "b", "u2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign owner should get ErrNotFound, got %v", err)
	}
}

func TestEnqueueDrain_OrderAndAtMostOnce(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	_, _ = svc.Upsert(ctx, "u1", UpsertInput{DeviceID: "esp-1"})

	for _, c := range []string{"dispense", "beep", "dispense"} {
		if _, err := svc.Enqueue(ctx, "esp-1", "u1", c, nil); err != nil {
			t.Fatalf("enqueue %s: %v", c, err)
		}
	}

	cmds, err := svc.Drain(ctx, "esp-1", "u1")
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(cmds) != 3 || cmds[0].Command != "dispense" || cmds[1].Command != "beep" {
		t.Fatalf("unexpected batch: %+v", cmds)
	}
	if string(cmds[0].Params) != "{}" {
		t.Fatalf("params should default to {}: %s", cmds[0].Params)
	}

	again, err := svc.Drain(ctx, "esp-1", "u1")
	if err != nil {
		t.Fatalf("drain 2: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("second drain must be empty, got %d", len(again))
	}
}

func TestEnqueue_ValidatesOwnerAndParams(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	_, _ = svc.Upsert(ctx, "u1", UpsertInput{DeviceID: "esp-1"})

	if _, err := svc.Enqueue(ctx, "esp-1", "u2", "beep", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Enqueue(ctx, "esp-1", "u1", "", nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.Enqueue(ctx, "esp-1", "u1", "beep", json.RawMessage(`{bad`)); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad params, got %v", err)
	}
	if _, err := svc.Enqueue(ctx, "esp-1", "u1", "beep", json.RawMessage(`[1,2]`)); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for non-object params, got %v", err)
	}
}

func TestDrain_RetriesOnConflict(t *testing.T) {
	svc, _, q, _ := newTestService()
	ctx := context.Background()
	_, _ = svc.Upsert(ctx, "u1", UpsertInput{DeviceID: "esp-1"})
	_, _ = svc.Enqueue(ctx, "esp-1", "u1", "beep", nil)

	q.conflicts = 2
	cmds, err := svc.Drain(ctx, "esp-1", "u1")
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(cmds) != 1 {
		t.Fatalf("expected 1 command after retries, got %d", len(cmds))
	}

	q.conflicts = drainAttempts
	if _, err := svc.Drain(ctx, "esp-1", "u1"); !errors.Is(err, ErrDrainConflict) {
		t.Fatalf("expected ErrDrainConflict after exhausting retries, got %v", err)
	}
}

func TestUpdateTelemetry_DoesNotTouchQueue(t *testing.T) {
	svc, repo, _, _ := newTestService()
	ctx := context.Background()
	_, _ = svc.Upsert(ctx, "u1", UpsertInput{DeviceID: "esp-1"})
	_, _ = svc.Enqueue(ctx, "esp-1", "u1", "dispense", nil)

	if err := svc.UpdateTelemetry(ctx, "esp-1", "u1", Telemetry{ServoAngles: []float64{1, 2, 3}}); err != nil {
		t.Fatalf("telemetry: %v", err)
	}
	d := repo.byID["esp-1"]
	if len(d.State.Telemetry.ServoAngles) != 3 || d.State.Telemetry.ReportedAt == nil {
		t.Fatalf("telemetry not stored: %+v", d.State)
	}

	cmds, _ := svc.Drain(ctx, "esp-1", "u1")
	if len(cmds) != 1 {
		t.Fatalf("queued command lost after telemetry update")
	}
}

func TestSend_RequiresOnlineAndAddress(t *testing.T) {
	svc, _, _, n := newTestService()
	ctx := context.Background()
	_, _ = svc.Upsert(ctx, "u1", UpsertInput{DeviceID: "esp-1"})

	if _, err := svc.SendNotification(ctx, "esp-1", "u1", NotifyInput{MedicineName: "Napa"}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("no address should be ErrInvalidState, got %v", err)
	}

	_, _ = svc.Upsert(ctx, "u1", UpsertInput{DeviceID: "esp-1", Address: "10.0.0.5"})
	if _, err := svc.SendDispense(ctx, "esp-1", "u1", 4, "Napa"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("compartment 4 should be ErrInvalidInput, got %v", err)
	}

	resp, err := svc.SendDispense(ctx, "esp-1", "u1", 2, "Napa")
	if err != nil {
		t.Fatalf("dispense: %v", err)
	}
	if resp["status"] != "ok" || len(n.calls) != 1 || n.calls[0] != "10.0.0.5/dispense" {
		t.Fatalf("unexpected call: %v %v", resp, n.calls)
	}

	svc.now = func() time.Time { return testNow.Add(10 * time.Minute) }
	if _, err := svc.SendNotification(ctx, "esp-1", "u1", NotifyInput{}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("stale device should be ErrInvalidState, got %v", err)
	}
}

func TestSend_TransportFailureMarksOffline(t *testing.T) {
	svc, repo, _, n := newTestService()
	ctx := context.Background()
	_, _ = svc.Upsert(ctx, "u1", UpsertInput{DeviceID: "esp-1", Address: "10.0.0.5"})

	n.err = fmt.Errorf("%w: connection refused", ErrTransport)
	_, err := svc.SendNotification(ctx, "esp-1", "u1", NotifyInput{MedicineName: "Napa"})

	var te *TransportError
	if !errors.As(err, &te) || !errors.Is(err, ErrTransport) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if repo.byID["esp-1"].Online {
		t.Fatalf("device should be marked offline")
	}
}

func TestOwnerOfDevice(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	_, _ = svc.Upsert(ctx, "u1", UpsertInput{DeviceID: "esp-1"})

	owner, err := svc.OwnerOfDevice(ctx, "esp-1")
	if err != nil || owner != "u1" {
		t.Fatalf("unexpected owner=%q err=%v", owner, err)
	}
	if _, err := svc.OwnerOfDevice(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSend_RejectionKeepsOnline(t *testing.T) {
	svc, repo, _, n := newTestService()
	ctx := context.Background()
	_, _ = svc.Upsert(ctx, "u1", UpsertInput{DeviceID: "esp-1", Address: "10.0.0.5"})

	n.err = fmt.Errorf("%w: HTTP 500", ErrDeviceRejected)
	_, err := svc.SendDispense(ctx, "esp-1", "u1", 1, "Napa")
	if !errors.Is(err, ErrDeviceRejected) {
		t.Fatalf("expected ErrDeviceRejected, got %v", err)
	}
	if !repo.byID["esp-1"].Online {
		t.Fatalf("HTTP rejection must not mark the device offline")
	}
}

func TestSend_NonTransportErrorKeepsOnline(t *testing.T) {
	svc, repo, _, n := newTestService()
	ctx := context.Background()
	_, _ = svc.Upsert(ctx, "u1", UpsertInput{DeviceID: "esp-1", Address: "10.0.0.5"})

	n.err = errors.New("devicelink: marshal payload")
	_, err := svc.SendNotification(ctx, "esp-1", "u1", NotifyInput{MedicineName: "Napa"})
	if err == nil || errors.Is(err, ErrTransport) {
		t.Fatalf("expected plain error, got %v", err)
	}
	if !repo.byID["esp-1"].Online {
		t.Fatalf("only a transport failure may mark the device offline")
	}
}

func TestHeartbeat_RestoresOnlineAfterTransportFailure(t *testing.T) {
	svc, repo, _, n := newTestService()
	ctx := context.Background()
	_, _ = svc.Upsert(ctx, "u1", UpsertInput{DeviceID: "esp-1", Address: "10.0.0.5"})

	n.err = fmt.Errorf("%w: i/o timeout", ErrTransport)
	if _, err := svc.SendDispense(ctx, "esp-1", "u1", 1, "Napa"); !errors.Is(err, ErrTransport) {
		t.Fatalf("expected transport failure, got %v", err)
	}
	if _, err := svc.SendDispense(ctx, "esp-1", "u1", 1, "Napa"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("offline device should be ErrInvalidState, got %v", err)
	}

	svc.now = func() time.Time { return testNow.Add(10 * time.Second) }
	d, err := svc.Heartbeat(ctx, "esp-1", "")
	if err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
	if !d.Online || !repo.byID["esp-1"].Online {
		t.Fatalf("heartbeat should mark the device online again")
	}

	n.err = nil
	if _, err := svc.SendDispense(ctx, "esp-1", "u1", 1, "Napa"); err != nil {
		t.Fatalf("send after heartbeat: %v", err)
	}
}
