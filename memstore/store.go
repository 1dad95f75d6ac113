// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package memstore is a process-local room store. It backs tests and the
// "memory" database type; every operation is atomic under one mutex, so the
// conditional updates behave like their SQL counterparts.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/danielhkuo/roompick/models"
)

type voteKey struct {
	userID      string
	candidateID string
}

type Store struct {
	mu sync.RWMutex

	rooms        map[string]models.Room // by id
	codes        map[string]string      // code -> id
	participants map[string][]models.Participant
	votes        map[string][]models.Vote
	voteIndex    map[string]map[voteKey]struct{}

	// remaining GetRoomByCode calls that fail with ErrTransientStorage
	failLookups int
}

func NewStore() *Store {
	return &Store{
		rooms:        make(map[string]models.Room),
		codes:        make(map[string]string),
		participants: make(map[string][]models.Participant),
		votes:        make(map[string][]models.Vote),
		voteIndex:    make(map[string]map[voteKey]struct{}),
	}
}

// FailNextLookups makes the next n GetRoomByCode calls fail transiently
func (s *Store) FailNextLookups(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failLookups = n
}

func (s *Store) GetRoomByCode(ctx context.Context, code string) (models.Room, error) {
	if err := ctx.Err(); err != nil {
		return models.Room{}, fmt.Errorf("%w: %v", models.ErrTransientStorage, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failLookups > 0 {
		s.failLookups--
		return models.Room{}, fmt.Errorf("%w: injected lookup failure", models.ErrTransientStorage)
	}
	id, ok := s.codes[code]
	if !ok {
		return models.Room{}, models.ErrRoomNotFound
	}
	return cloneRoom(s.rooms[id]), nil
}

func (s *Store) CreateRoom(ctx context.Context, room models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.codes[room.Code]; taken {
		return models.ErrCodeTaken
	}
	if _, exists := s.rooms[room.ID]; exists {
		return fmt.Errorf("room %s already exists", room.ID)
	}
	s.rooms[room.ID] = cloneRoom(room)
	s.codes[room.Code] = room.ID
	return nil
}

// UpdateRoomStatus moves the room from → to only if it is still in from
func (s *Store) UpdateRoomStatus(ctx context.Context, roomID, from, to string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return false, models.ErrRoomNotFound
	}
	if room.Status != from {
		return false, nil
	}
	room.Status = to
	s.rooms[roomID] = room
	return true, nil
}

func (s *Store) UpdateRoomCandidates(ctx context.Context, roomID string, candidates []models.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return models.ErrRoomNotFound
	}
	if room.Status != models.StatusWaiting || len(room.Candidates) > 0 {
		return fmt.Errorf("%w: voting already started", models.ErrInvalidTransition)
	}
	room.Candidates = append([]models.Candidate(nil), candidates...)
	room.Status = models.StatusVoting
	s.rooms[roomID] = room
	return nil
}

func (s *Store) UpdateRoomResults(ctx context.Context, roomID string, results models.RankedResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return models.ErrRoomNotFound
	}
	if room.Results != nil {
		return fmt.Errorf("%w: results already set", models.ErrInvalidTransition)
	}
	room.Results = append(models.RankedResult{}, results...)
	s.rooms[roomID] = room
	return nil
}

// AddParticipant reports false when the user had already joined
func (s *Store) AddParticipant(ctx context.Context, p models.Participant) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[p.RoomID]; !ok {
		return false, models.ErrRoomNotFound
	}
	for _, existing := range s.participants[p.RoomID] {
		if existing.UserID == p.UserID {
			return false, nil
		}
	}
	s.participants[p.RoomID] = append(s.participants[p.RoomID], p)
	return true, nil
}

func (s *Store) ListParticipants(ctx context.Context, roomID string) ([]models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]models.Participant{}, s.participants[roomID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

func (s *Store) GetParticipantByRoomAndUser(ctx context.Context, roomID, userID string) (models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.participants[roomID] {
		if p.UserID == userID {
			return p, nil
		}
	}
	return models.Participant{}, models.ErrParticipantNotFound
}

func (s *Store) RecordVote(ctx context.Context, v models.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[v.RoomID]
	if !ok {
		return models.ErrRoomNotFound
	}
	if room.Status != models.StatusVoting {
		return fmt.Errorf("%w: room is %s, not voting", models.ErrInvalidTransition, room.Status)
	}
	idx, ok := s.voteIndex[v.RoomID]
	if !ok {
		idx = make(map[voteKey]struct{})
		s.voteIndex[v.RoomID] = idx
	}
	key := voteKey{userID: v.UserID, candidateID: v.CandidateID}
	if _, dup := idx[key]; dup {
		return models.ErrDuplicateVote
	}
	idx[key] = struct{}{}
	s.votes[v.RoomID] = append(s.votes[v.RoomID], v)
	return nil
}

func (s *Store) ListVotes(ctx context.Context, roomID string) ([]models.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Vote{}, s.votes[roomID]...), nil
}

func cloneRoom(r models.Room) models.Room {
	if r.Candidates != nil {
		r.Candidates = append([]models.Candidate(nil), r.Candidates...)
	}
	if r.Results != nil {
		r.Results = append(models.RankedResult{}, r.Results...)
	}
	return r
}
