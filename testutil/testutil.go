// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielhkuo/roompick/auth"
	"github.com/danielhkuo/roompick/catalog"
	"github.com/danielhkuo/roompick/cliparse"
	"github.com/danielhkuo/roompick/db"
	"github.com/danielhkuo/roompick/hub"
	"github.com/danielhkuo/roompick/models"
	"github.com/danielhkuo/roompick/session"
)

// TestCategory is served by TestCatalog with three candidates A, B and C
const TestCategory = "movies"

// TestCatalog is the catalog every handler test runs against
func TestCatalog() *catalog.StaticCatalog {
	return catalog.NewStaticCatalog(map[string][]models.Candidate{
		TestCategory: {
			{ID: "A", Title: "Alpha"},
			{ID: "B", Title: "Beta"},
			{ID: "C", Title: "Gamma"},
		},
	})
}

// SetupTestDB opens a fresh sqlite database with the full schema
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(db.TypeSQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:            3318,
		DatabaseType:    cliparse.DatabaseSQLite,
		StoreTimeout:    5 * time.Second,
		ShutdownTimeout: time.Second,
	}
}

// NewTestCoordinator wires a coordinator and live registry over store
func NewTestCoordinator(t *testing.T, store session.Store) (*session.Coordinator, *hub.Registry) {
	t.Helper()

	registry := hub.NewRegistry(nil, nil)
	t.Cleanup(registry.Close)

	coord, err := session.New(session.Config{
		Store:        store,
		Catalog:      TestCatalog(),
		Broadcaster:  registry,
		StoreTimeout: GetTestConfig().StoreTimeout,
	})
	if err != nil {
		t.Fatalf("Failed to create coordinator: %v", err)
	}
	return coord, registry
}

// CreateTestRoom creates a room hosted by host and joins every other user
func CreateTestRoom(t *testing.T, coord *session.Coordinator, host string, users ...string) models.Room {
	t.Helper()
	ctx := context.Background()

	room, err := coord.CreateRoom(ctx, host)
	if err != nil {
		t.Fatalf("Failed to create test room: %v", err)
	}
	for _, u := range users {
		if _, _, err := coord.Join(ctx, room.Code, u); err != nil {
			t.Fatalf("Failed to join %s: %v", u, err)
		}
	}
	return room
}

// StartTestVoting moves a test room to voting on TestCategory
func StartTestVoting(t *testing.T, coord *session.Coordinator, room models.Room) models.Room {
	t.Helper()

	room, err := coord.StartVoting(context.Background(), room.Code, room.HostID, TestCategory)
	if err != nil {
		t.Fatalf("Failed to start voting: %v", err)
	}
	return room
}

// MakeRequest creates an HTTP test request. A non-empty userID is sent as
// the identity header.
func MakeRequest(method, path string, body any, userID string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	if userID != "" {
		req.Header.Set(auth.UserHeader, userID)
	}
	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}

// AssertReason checks the machine-readable reason of an error response
func AssertReason(t *testing.T, w *httptest.ResponseRecorder, reason string) {
	t.Helper()
	var resp models.ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	if resp.Reason != reason {
		t.Errorf("Expected reason %q, got %q (%s)", reason, resp.Reason, resp.Message)
	}
}
