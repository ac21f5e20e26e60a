package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestPostJSON_SendsHeadersAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "k" || r.Header.Get("Content-Type") != "application/json" {
			http.Error(w, "missing headers", http.StatusBadRequest)
			return
		}
		var in map[string]any
		_ = json.NewDecoder(r.Body).Decode(&in)
		_ = json.NewEncoder(w).Encode(map[string]any{"echo": in["msg"]})
	}))
	defer srv.Close()

	c, err := New(Options{BaseURL: srv.URL, Headers: map[string]string{"X-Api-Key": "k"}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	var out map[string]any
	if err := c.PostJSON(context.Background(), "/echo", map[string]string{"msg": "hi"}, &out); err != nil {
		t.Fatalf("post: %v", err)
	}
	if out["echo"] != "hi" {
		t.Fatalf("unexpected response: %v", out)
	}
}

func TestDoJSON_Non2xxIsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, _ := New(Options{})
	err := c.PostJSON(context.Background(), srv.URL+"/x", nil, nil)

	var he *HTTPError
	if !errors.As(err, &he) || he.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected HTTPError 503, got %v", err)
	}
	if errors.Is(err, ErrTransport) {
		t.Fatalf("HTTP error must not be a transport failure")
	}
}

func TestDoJSON_UnreachableIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	c, _ := New(Options{Timeout: 500 * time.Millisecond})
	err := c.PostJSON(context.Background(), addr+"/notify", map[string]string{}, nil)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestDoJSON_UndecodableSuccessBodyIsDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK\n"))
	}))
	defer srv.Close()

	c, _ := New(Options{})
	var out map[string]any
	err := c.PostJSON(context.Background(), srv.URL, map[string]string{}, &out)

	var de *DecodeError
	if !errors.As(err, &de) || de.Body != "OK" {
		t.Fatalf("expected DecodeError with body OK, got %v", err)
	}
	if errors.Is(err, ErrTransport) {
		t.Fatalf("decode failure must not be a transport failure")
	}
}

func TestResolveURL(t *testing.T) {
	c, _ := New(Options{})
	if _, err := c.resolveURL("/relative"); err == nil {
		t.Fatalf("relative path without BaseURL must fail")
	}
	if _, err := New(Options{BaseURL: "::bad"}); err == nil {
		t.Fatalf("invalid base url must fail")
	}
}
