package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielhkuo/roompick/cliparse"
	"github.com/danielhkuo/roompick/models"
)

func TestOpenStore(t *testing.T) {
	testCases := []struct {
		name string
		cfg  cliparse.Config
	}{
		{"sqlite", cliparse.Config{DatabaseType: cliparse.DatabaseSQLite, DatabaseURL: filepath.Join(t.TempDir(), "roompick.db")}},
		{"memory", cliparse.Config{DatabaseType: cliparse.DatabaseMemory}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store, closeStore, err := openStore(tc.cfg)
			if err != nil {
				t.Fatalf("openStore() error = %v", err)
			}
			defer closeStore()

			ctx := context.Background()
			room := models.Room{ID: "room-1", Code: "ABCD1234", HostID: "host", Status: models.StatusWaiting, CreatedAt: time.Now().UTC()}
			if err := store.CreateRoom(ctx, room); err != nil {
				t.Fatalf("CreateRoom() error = %v", err)
			}
			if _, err := store.GetRoomByCode(ctx, room.Code); err != nil {
				t.Errorf("GetRoomByCode() error = %v", err)
			}
		})
	}
}

func TestOpenStoreUnreachable(t *testing.T) {
	// db.Open pings, so a bad location fails before any schema work
	cfg := cliparse.Config{
		DatabaseType: cliparse.DatabaseSQLite,
		DatabaseURL:  filepath.Join(t.TempDir(), "missing", "dir", "roompick.db"),
	}
	if _, _, err := openStore(cfg); err == nil {
		t.Error("openStore() should fail for a database in a missing directory")
	}
}
