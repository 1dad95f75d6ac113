// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, domain and event types for the API.

# Request Types

  - StartVotingRequest: category
  - CastVoteRequest: candidate_id, score

# Domain Types

  - Room: code, host, status, candidates and (once completed) results
  - Participant: a user's membership of a room
  - Candidate: one item up for a vote
  - Vote: one user's score for one candidate
  - RankedResult: candidates ordered by total score, ranks 1-indexed

# Events

Event is the envelope pushed to live connections. Kind selects the payload:

	participant-joined  ParticipantJoinedPayload
	voting-started      VotingStartedPayload
	vote-recorded       VoteRecordedPayload
	voting-completed    VotingCompletedPayload
	joined              JoinedPayload
	error               ErrorPayload

Inbound live frames decode into Message, then JoinMessage or VoteMessage.

# Errors

The sentinel errors in errors.go are the whole error taxonomy. Reason maps
any of them, wrapped or not, to the reason string clients see.

# Constants

Status values:

	StatusWaiting   = "waiting"
	StatusVoting    = "voting"
	StatusCompleted = "completed"

Scores are one of -2, -1, 1, 2.
*/
package models
