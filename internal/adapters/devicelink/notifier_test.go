package devicelink

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pharmabot/internal/domain/devices"
)

func hostOf(srv *httptest.Server) string {
	return strings.TrimPrefix(srv.URL, "http://")
}

func TestSend_PostsPayload(t *testing.T) {
	var gotPath string
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	n := NewNotifier(time.Second)

	out, err := n.Send(context.Background(), hostOf(srv), "/notify", map[string]any{"type": "medication_reminder"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotPath != "/notify" || got["type"] != "medication_reminder" {
		t.Fatalf("unexpected request path=%q body=%v", gotPath, got)
	}
	if out["status"] != "ok" {
		t.Fatalf("unexpected response: %v", out)
	}
}

func TestSend_EmptyBodyIsOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier(time.Second)
	out, err := n.Send(context.Background(), hostOf(srv), "dispense", map[string]any{"compartment": 1})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty map, got %v", out)
	}
}

func TestSend_Non2xxIsRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewNotifier(time.Second)
	_, err := n.Send(context.Background(), hostOf(srv), "/notify", map[string]any{})
	if !errors.Is(err, devices.ErrDeviceRejected) {
		t.Fatalf("expected ErrDeviceRejected, got %v", err)
	}
}

func TestSend_UnreachableIsNotRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := hostOf(srv)
	srv.Close()

	n := NewNotifier(300 * time.Millisecond)
	_, err := n.Send(context.Background(), addr, "/notify", map[string]any{})
	if err == nil {
		t.Fatalf("expected error")
	}
	if errors.Is(err, devices.ErrDeviceRejected) || !errors.Is(err, devices.ErrTransport) {
		t.Fatalf("expected transport failure, got %v", err)
	}
}

func TestSend_PlainTextReplyIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	}))
	defer srv.Close()

	n := NewNotifier(time.Second)
	out, err := n.Send(context.Background(), hostOf(srv), "/dispense", map[string]any{"compartment": 1})
	if err != nil {
		t.Fatalf("plain 200 reply must succeed, got %v", err)
	}
	if out["raw"] != "OK" {
		t.Fatalf("expected raw body in response, got %v", out)
	}
}

func TestSend_EmptyAddress(t *testing.T) {
	n := NewNotifier(time.Second)
	if _, err := n.Send(context.Background(), " ", "/notify", nil); err == nil {
		t.Fatalf("expected error for empty address")
	}
}
