// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"encoding/json"
	"time"
)

// EventKind tags both pushed events and inbound live messages
type EventKind string

// Server -> client
const (
	EventParticipantJoined EventKind = "participant-joined"
	EventVotingStarted     EventKind = "voting-started"
	EventVoteRecorded      EventKind = "vote-recorded"
	EventVotingCompleted   EventKind = "voting-completed"
	EventJoined            EventKind = "joined"
	EventPong              EventKind = "pong"
	EventError             EventKind = "error"
)

// Client -> server
const (
	MessageJoin EventKind = "join"
	MessageVote EventKind = "vote"
	MessagePing EventKind = "ping"
)

// Event is the push-event envelope. Data holds one of the *Payload types
// below, selected by Kind.
type Event struct {
	Kind      EventKind `json:"type"`
	RoomCode  string    `json:"room_code,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

func NewEvent(kind EventKind, roomCode string, data any) Event {
	return Event{
		Kind:      kind,
		RoomCode:  roomCode,
		Timestamp: time.Now(),
		Data:      data,
	}
}

type ParticipantJoinedPayload struct {
	UserID           string `json:"user_id"`
	ParticipantCount int    `json:"participant_count"`
}

type VotingStartedPayload struct {
	Candidates []Candidate `json:"candidates"`
}

type VoteRecordedPayload struct {
	UserID      string `json:"user_id"`
	CandidateID string `json:"candidate_id"`
	Score       int    `json:"score"`
}

type VotingCompletedPayload struct {
	Results RankedResult `json:"results"`
}

type JoinedPayload struct {
	Room Room `json:"room"`
}

type ErrorPayload struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// Message is an inbound live message. Data is decoded once Kind is known.
type Message struct {
	Kind EventKind       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type JoinMessage struct {
	Code   string `json:"code"`
	UserID string `json:"user_id"`
}

type VoteMessage struct {
	CandidateID string `json:"candidate_id"`
	Score       int    `json:"score"`
}
