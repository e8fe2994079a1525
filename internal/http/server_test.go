package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"tunecard/internal/core"
)

func TestNewServer(t *testing.T) {
	t.Skip("Skipping NewServer test due to global prometheus registry conflicts")
}

func TestCreateHTTPServer(t *testing.T) {
	config := &core.ServerConfig{
		Host:         "0.0.0.0",
		Port:         9090,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	mux := http.NewServeMux()
	server := createHTTPServer(config, mux)

	if server.Addr != "0.0.0.0:9090" {
		t.Errorf("createHTTPServer() Addr = %q, want %q", server.Addr, "0.0.0.0:9090")
	}
	if server.Handler != mux {
		t.Error("createHTTPServer() Handler mismatch")
	}
	if server.ReadTimeout != config.ReadTimeout {
		t.Errorf("createHTTPServer() ReadTimeout = %v, want %v", server.ReadTimeout, config.ReadTimeout)
	}
	if server.WriteTimeout != config.WriteTimeout {
		t.Errorf("createHTTPServer() WriteTimeout = %v, want %v", server.WriteTimeout, config.WriteTimeout)
	}
}

func TestSetupRoutes(t *testing.T) {
	mux := setupRoutes(zap.NewNop())
	if mux == nil {
		t.Fatal("setupRoutes() returned nil")
	}

	server := httptest.NewServer(mux)
	defer server.Close()

	ctx := context.Background()
	client := &http.Client{}

	for _, path := range []string{"/healthz", "/readyz", "/metrics", "/"} {
		req, _ := http.NewRequestWithContext(ctx, "GET", server.URL+path, http.NoBody)
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("Failed to call %s: %v", path, err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s returned status %d, want %d", path, resp.StatusCode, http.StatusOK)
		}
	}
}

func TestHealthzEndpoint(t *testing.T) {
	mux := setupRoutes(zap.NewNop())
	server := httptest.NewServer(mux)
	defer server.Close()

	ctx := context.Background()
	req, _ := http.NewRequestWithContext(ctx, "GET", server.URL+"/healthz", http.NoBody)
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		t.Fatalf("Failed to call /healthz: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if contentType := resp.Header.Get("Content-Type"); contentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", contentType)
	}

	body := make([]byte, 1024)
	n, _ := resp.Body.Read(body)
	want := `{"status":"ok","service":"tunecard"}`
	if string(body[:n]) != want {
		t.Errorf("body = %q, want %q", string(body[:n]), want)
	}
}

func TestReadyzEndpoint(t *testing.T) {
	mux := setupRoutes(zap.NewNop())
	server := httptest.NewServer(mux)
	defer server.Close()

	ctx := context.Background()
	req, _ := http.NewRequestWithContext(ctx, "GET", server.URL+"/readyz", http.NoBody)
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		t.Fatalf("Failed to call /readyz: %v", err)
	}
	defer resp.Body.Close()

	body := make([]byte, 1024)
	n, _ := resp.Body.Read(body)
	want := `{"status":"ready","service":"tunecard"}`
	if string(body[:n]) != want {
		t.Errorf("body = %q, want %q", string(body[:n]), want)
	}
}

func TestHomeHandler(t *testing.T) {
	handler := homeHandler(zap.NewNop())

	req := httptest.NewRequest("GET", "/", http.NoBody)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if contentType := rec.Header().Get("Content-Type"); contentType != "text/html" {
		t.Errorf("Content-Type = %q, want text/html", contentType)
	}

	body := rec.Body.String()
	for _, element := range []string{
		"<!DOCTYPE html>",
		"<title>tunecard</title>",
		"/metrics",
		"/healthz",
		"/readyz",
	} {
		if !strings.Contains(body, element) {
			t.Errorf("body should contain %q", element)
		}
	}
}
