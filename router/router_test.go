// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/danielhkuo/roompick/db"
	"github.com/danielhkuo/roompick/hub"
	"github.com/danielhkuo/roompick/memstore"
	"github.com/danielhkuo/roompick/models"
	"github.com/danielhkuo/roompick/session"
	"github.com/danielhkuo/roompick/testutil"
)

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	coord, registry := testutil.NewTestCoordinator(t, memstore.NewStore())
	return NewRouter(coord, registry, nil)
}

func TestHealthEndpoint(t *testing.T) {
	mux := newTestMux(t)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	if w.Body.String() != "OK" {
		t.Errorf("Expected body 'OK', got '%s'", w.Body.String())
	}
}

func TestRootEndpoint(t *testing.T) {
	mux := newTestMux(t)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if expected := "roompick API v1"; w.Body.String() != expected {
		t.Errorf("Expected body '%s', got '%s'", expected, w.Body.String())
	}

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/nowhere", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown path, got %d", w.Code)
	}
}

func TestRouteExistence(t *testing.T) {
	mux := newTestMux(t)

	// unknown rooms and missing identity are fine here; only a 405 means the
	// route is missing
	testCases := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"GET", "/"},
		{"POST", "/rooms"},
		{"GET", "/rooms/ABCD1234"},
		{"GET", "/rooms/ABCD1234/progress"},
		{"POST", "/rooms/ABCD1234/join"},
		{"POST", "/rooms/ABCD1234/start"},
		{"POST", "/rooms/ABCD1234/votes"},
		{"POST", "/rooms/ABCD1234/finish"},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			if w.Code == http.StatusMethodNotAllowed {
				t.Errorf("Route %s %s returned 405, expected route handler to exist", tc.method, tc.path)
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	mux := newTestMux(t)

	testCases := []struct {
		method string
		path   string
	}{
		{"POST", "/health"},
		{"DELETE", "/rooms/ABCD1234"},
		{"GET", "/rooms/ABCD1234/votes"},
		{"PUT", "/rooms/ABCD1234/finish"},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			if w.Code != http.StatusMethodNotAllowed {
				t.Errorf("Expected 405 for %s %s, got %d", tc.method, tc.path, w.Code)
			}
		})
	}
}

func TestPathParameterExtraction(t *testing.T) {
	coord, registry := testutil.NewTestCoordinator(t, db.NewStore(testutil.SetupTestDB(t)))
	room := testutil.CreateTestRoom(t, coord, "alice")
	mux := NewRouter(coord, registry, nil)

	// lower-case codes reach the same room
	for _, code := range []string{room.Code, strings.ToLower(room.Code)} {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest("GET", "/rooms/"+code, nil))

		testutil.AssertStatus(t, w, http.StatusOK)
		var view models.RoomView
		testutil.AssertJSON(t, w, &view)
		if view.Room.Code != room.Code {
			t.Errorf("Expected room %s, got %s", room.Code, view.Room.Code)
		}
	}

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, testutil.MakeRequest("POST", "/rooms/"+room.Code+"/join", nil, "bob"))
	testutil.AssertStatus(t, w, http.StatusCreated)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	registry := hub.NewRegistry(reg, nil)
	t.Cleanup(registry.Close)
	coord, err := session.New(session.Config{
		Store:        memstore.NewStore(),
		Catalog:      testutil.TestCatalog(),
		Broadcaster:  registry,
		PromRegistry: reg,
	})
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	mux := NewRouter(coord, registry, reg)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, testutil.MakeRequest("POST", "/rooms", nil, "alice"))
	testutil.AssertStatus(t, w, http.StatusCreated)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	testutil.AssertStatus(t, w, http.StatusOK)

	body := w.Body.String()
	for _, want := range []string{"roompick_rooms_created_total 1", "roompick_live_connections 0"} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected metrics output to contain %q", want)
		}
	}
}

func TestMetricsUnmountedWithoutGatherer(t *testing.T) {
	mux := newTestMux(t)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	// falls through to the root handler
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 without a gatherer, got %d", w.Code)
	}
}

func TestErrorBodyShape(t *testing.T) {
	mux := newTestMux(t)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/rooms/ABCD1234", nil))

	testutil.AssertStatus(t, w, http.StatusNotFound)
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode error body: %v", err)
	}
	if body["reason"] != "not_found" || body["error"] == "" {
		t.Errorf("Unexpected error body %v", body)
	}
}
