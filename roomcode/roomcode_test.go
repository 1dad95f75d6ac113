// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package roomcode

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danielhkuo/roompick/memstore"
	"github.com/danielhkuo/roompick/models"
)

// failingLookup always returns err
type failingLookup struct {
	err   error
	calls int
}

func (f *failingLookup) GetRoomByCode(ctx context.Context, code string) (models.Room, error) {
	f.calls++
	return models.Room{}, f.err
}

func TestGenerateShape(t *testing.T) {
	g := NewGenerator(memstore.NewStore())

	code, err := g.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !Valid(code) {
		t.Errorf("Generate() = %q is not a valid room code", code)
	}
}

func TestGenerateUnique(t *testing.T) {
	store := memstore.NewStore()
	g := NewGenerator(store)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code, err := g.Generate(ctx)
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if seen[code] {
			t.Fatalf("duplicate code %s", code)
		}
		seen[code] = true
		if err := store.CreateRoom(ctx, models.Room{ID: code, Code: code, Status: models.StatusWaiting}); err != nil {
			t.Fatal(err)
		}
	}
}

func TestGenerateRetriesCollisions(t *testing.T) {
	store := memstore.NewStore()
	ctx := context.Background()
	if err := store.CreateRoom(ctx, models.Room{ID: "r1", Code: "TAKEN000"}); err != nil {
		t.Fatal(err)
	}

	g := NewGenerator(store)
	draws := []string{"TAKEN000", "TAKEN000", "FREE0000"}
	g.draw = func() (string, error) {
		c := draws[0]
		draws = draws[1:]
		return c, nil
	}

	code, err := g.Generate(ctx)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if code != "FREE0000" {
		t.Errorf("Generate() = %s, want FREE0000", code)
	}
}

func TestGenerateExhausted(t *testing.T) {
	store := memstore.NewStore()
	ctx := context.Background()
	if err := store.CreateRoom(ctx, models.Room{ID: "r1", Code: "TAKEN000"}); err != nil {
		t.Fatal(err)
	}

	draws := 0
	g := NewGenerator(store, WithMaxAttempts(4))
	g.draw = func() (string, error) {
		draws++
		return "TAKEN000", nil
	}

	_, err := g.Generate(ctx)
	if !errors.Is(err, models.ErrCodeExhausted) {
		t.Fatalf("expected ErrCodeExhausted, got %v", err)
	}
	if draws != 4 {
		t.Errorf("expected 4 attempts, got %d", draws)
	}
}

func TestGenerateRecoversFromTransientLookup(t *testing.T) {
	store := memstore.NewStore()
	store.FailNextLookups(2)

	g := NewGenerator(store, WithLookupRetries(3, time.Millisecond))
	code, err := g.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !Valid(code) {
		t.Errorf("invalid code %q", code)
	}
}

func TestGenerateFailsClosed(t *testing.T) {
	lookup := &failingLookup{err: models.ErrTransientStorage}
	g := NewGenerator(lookup, WithLookupRetries(2, time.Millisecond))

	code, err := g.Generate(context.Background())
	if !errors.Is(err, models.ErrTransientStorage) {
		t.Fatalf("expected ErrTransientStorage, got %v", err)
	}
	if code != "" {
		t.Errorf("Generate() returned unchecked code %q", code)
	}
	// First call plus two retries
	if lookup.calls != 3 {
		t.Errorf("expected 3 lookups, got %d", lookup.calls)
	}
}

func TestGeneratePermanentLookupError(t *testing.T) {
	boom := errors.New("boom")
	lookup := &failingLookup{err: boom}
	g := NewGenerator(lookup, WithLookupRetries(5, time.Millisecond))

	if _, err := g.Generate(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if lookup.calls != 1 {
		t.Errorf("non-transient error should not be retried, got %d calls", lookup.calls)
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"ABCD1234", true},
		{"00000000", true},
		{"abcd1234", false},
		{"ABC123", false},
		{"ABCD12345", false},
		{"ABCD-234", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := Valid(tt.code); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}
