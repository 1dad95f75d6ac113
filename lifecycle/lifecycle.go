// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package lifecycle owns the room state machine: waiting → voting → completed.
package lifecycle

import (
	"fmt"

	"github.com/danielhkuo/roompick/models"
)

// transitions lists the only legal next status for each status
var transitions = map[string]string{
	models.StatusWaiting: models.StatusVoting,
	models.StatusVoting:  models.StatusCompleted,
}

// CanTransition reports whether from → to is a legal step
func CanTransition(from, to string) bool {
	next, ok := transitions[from]
	return ok && next == to
}

// StartVoting moves a waiting room to voting and fixes its candidate list.
// The room is left untouched on error.
func StartVoting(room *models.Room, candidates []models.Candidate) error {
	if !CanTransition(room.Status, models.StatusVoting) {
		return fmt.Errorf("%w: cannot start voting from %q", models.ErrInvalidTransition, room.Status)
	}
	if len(room.Candidates) > 0 {
		return fmt.Errorf("%w: candidates already set", models.ErrInvalidTransition)
	}
	if len(candidates) == 0 {
		return models.ErrNoCandidates
	}

	room.Candidates = append([]models.Candidate(nil), candidates...)
	room.Status = models.StatusVoting
	return nil
}

// Complete moves a voting room to completed and records its results.
// A room that is already completed yields ErrInvalidTransition so the
// caller can treat it as "someone else finished first".
func Complete(room *models.Room, results models.RankedResult) error {
	if !CanTransition(room.Status, models.StatusCompleted) {
		return fmt.Errorf("%w: cannot complete from %q", models.ErrInvalidTransition, room.Status)
	}

	room.Results = append(models.RankedResult(nil), results...)
	room.Status = models.StatusCompleted
	return nil
}
