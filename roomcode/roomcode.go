// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package roomcode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/danielhkuo/roompick/auth"
	"github.com/danielhkuo/roompick/models"
)

const (
	// Alphabet is the set of characters a room code is drawn from
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// Length of every room code
	Length = 8
	// DefaultMaxAttempts bounds collision retries
	DefaultMaxAttempts = 10
	// DefaultLookupRetries bounds retries of a failing existence check
	DefaultLookupRetries = 3
)

// Lookup checks whether a code is in use. It returns models.ErrNotFound
// when the code is free.
type Lookup interface {
	GetRoomByCode(ctx context.Context, code string) (models.Room, error)
}

type Generator struct {
	lookup        Lookup
	maxAttempts   int
	lookupRetries uint64
	initialDelay  time.Duration
	logger        *slog.Logger

	// draw is swapped in tests to force collisions
	draw func() (string, error)
}

type Option func(*Generator)

func WithMaxAttempts(n int) Option {
	return func(g *Generator) { g.maxAttempts = n }
}

func WithLookupRetries(n uint64, initialDelay time.Duration) Option {
	return func(g *Generator) {
		g.lookupRetries = n
		g.initialDelay = initialDelay
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) { g.logger = logger }
}

func NewGenerator(lookup Lookup, opts ...Option) *Generator {
	g := &Generator{
		lookup:        lookup,
		maxAttempts:   DefaultMaxAttempts,
		lookupRetries: DefaultLookupRetries,
		initialDelay:  50 * time.Millisecond,
		logger:        slog.Default(),
		draw:          func() (string, error) { return auth.RandomString(Alphabet, Length) },
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	return g
}

// Generate returns a code that no stored room uses. It gives up with
// ErrCodeExhausted after maxAttempts collisions. A lookup that keeps failing
// transiently aborts generation; an unchecked code is never returned.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		code, err := g.draw()
		if err != nil {
			return "", err
		}

		free, err := g.isFree(ctx, code)
		if err != nil {
			g.logger.Error("room code lookup failed", "attempt", attempt, "error", err)
			return "", err
		}
		if free {
			return code, nil
		}
		g.logger.Debug("room code collision", "code", code, "attempt", attempt)
	}
	return "", fmt.Errorf("%w after %d attempts", models.ErrCodeExhausted, g.maxAttempts)
}

// isFree retries transient lookup failures with exponential backoff.
// Anything other than a transient failure or not-found stops immediately.
func (g *Generator) isFree(ctx context.Context, code string) (bool, error) {
	var free bool
	op := func() error {
		_, err := g.lookup.GetRoomByCode(ctx, code)
		switch {
		case err == nil:
			free = false
			return nil
		case errors.Is(err, models.ErrNotFound):
			free = true
			return nil
		case errors.Is(err, models.ErrTransientStorage):
			return err
		default:
			return backoff.Permanent(err)
		}
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = g.initialDelay
	policy := backoff.WithContext(backoff.WithMaxRetries(b, g.lookupRetries), ctx)

	if err := backoff.Retry(op, policy); err != nil {
		return false, fmt.Errorf("check room code: %w", err)
	}
	return free, nil
}

// Valid reports whether s has the shape of a room code
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
