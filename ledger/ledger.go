// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package ledger records votes and answers whether a room has finished voting.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danielhkuo/roompick/models"
)

var errRecordIncomplete = errors.New("record vote: room, user and candidate are required")

// Store is the subset of room storage the ledger needs
type Store interface {
	RecordVote(ctx context.Context, vote models.Vote) error
	ListVotes(ctx context.Context, roomID string) ([]models.Vote, error)
	ListParticipants(ctx context.Context, roomID string) ([]models.Participant, error)
}

// RecordResult is what Record hands back to the caller
type RecordResult struct {
	Vote models.Vote
}

// Progress counts recorded votes against the votes needed to finish
type Progress struct {
	Votes        int `json:"votes"`
	Participants int `json:"participants"`
	Candidates   int `json:"candidates"`
	Expected     int `json:"expected"`
}

// Complete is true once every participant has scored every candidate
func (p Progress) Complete() bool {
	return p.Expected > 0 && p.Votes >= p.Expected
}

type Ledger struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// Record stores a vote. A second vote for the same (room, user, candidate)
// is rejected with ErrDuplicateVote and never counted.
func (l *Ledger) Record(ctx context.Context, vote models.Vote) (RecordResult, error) {
	if strings.TrimSpace(vote.RoomID) == "" || strings.TrimSpace(vote.UserID) == "" || strings.TrimSpace(vote.CandidateID) == "" {
		return RecordResult{}, errRecordIncomplete
	}
	if !models.ValidScore(vote.Score) {
		return RecordResult{}, models.ErrInvalidScore
	}
	if vote.CreatedAt.IsZero() {
		vote.CreatedAt = l.now()
	}

	if err := l.store.RecordVote(ctx, vote); err != nil {
		return RecordResult{}, fmt.Errorf("record vote: %w", err)
	}
	return RecordResult{Vote: vote}, nil
}

// Progress reports how far a room is through voting
func (l *Ledger) Progress(ctx context.Context, room models.Room) (Progress, error) {
	participants, err := l.store.ListParticipants(ctx, room.ID)
	if err != nil {
		return Progress{}, fmt.Errorf("list participants: %w", err)
	}
	votes, err := l.store.ListVotes(ctx, room.ID)
	if err != nil {
		return Progress{}, fmt.Errorf("list votes: %w", err)
	}

	return Progress{
		Votes:        len(votes),
		Participants: len(participants),
		Candidates:   len(room.Candidates),
		Expected:     len(participants) * len(room.Candidates),
	}, nil
}

// IsComplete reports count(votes) >= count(participants) * count(candidates).
// A participant who never votes keeps this false.
func (l *Ledger) IsComplete(ctx context.Context, room models.Room) (bool, error) {
	p, err := l.Progress(ctx, room)
	if err != nil {
		return false, err
	}
	return p.Complete(), nil
}
