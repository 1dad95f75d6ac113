// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrRoomNotFound        = fmt.Errorf("room %w", ErrNotFound)
	ErrParticipantNotFound = fmt.Errorf("participant %w", ErrNotFound)
	ErrCandidateNotFound   = fmt.Errorf("candidate %w", ErrNotFound)

	ErrInvalidTransition = errors.New("invalid room state transition")
	ErrCodeExhausted     = errors.New("room code space exhausted")
	ErrCodeTaken         = errors.New("room code already taken")
	ErrDuplicateVote     = errors.New("vote already recorded")
	ErrTransientStorage  = errors.New("storage temporarily unavailable")

	ErrNotHost      = errors.New("only the host may do this")
	ErrInvalidScore = errors.New("score must be one of -2, -1, 1, 2")
	ErrNoCandidates = errors.New("catalog returned no candidates")

	ErrCatalogUnavailable = errors.New("catalog unavailable")
)

// Reason returns the machine-readable reason for an error, or "internal"
// when it is not part of the taxonomy.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrDuplicateVote):
		return "duplicate_vote"
	case errors.Is(err, ErrCodeExhausted), errors.Is(err, ErrCodeTaken):
		return "code_exhausted"
	case errors.Is(err, ErrTransientStorage):
		return "storage_unavailable"
	case errors.Is(err, ErrNotHost):
		return "not_host"
	case errors.Is(err, ErrInvalidScore):
		return "invalid_score"
	case errors.Is(err, ErrNoCandidates):
		return "no_candidates"
	case errors.Is(err, ErrCatalogUnavailable):
		return "catalog_unavailable"
	}
	return "internal"
}
