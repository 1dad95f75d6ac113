package models

import "time"

// Room status constants
const (
	StatusWaiting   = "waiting"
	StatusVoting    = "voting"
	StatusCompleted = "completed"
)

// Score values (strong-dislike, dislike, like, strong-like)
const (
	ScoreStrongDislike = -2
	ScoreDislike       = -1
	ScoreLike          = 1
	ScoreStrongLike    = 2
)

// ValidScore reports whether score is one of the allowed values
func ValidScore(score int) bool {
	switch score {
	case ScoreStrongDislike, ScoreDislike, ScoreLike, ScoreStrongLike:
		return true
	}
	return false
}

// Request types

type StartVotingRequest struct {
	Category string `json:"category"`
}

type CastVoteRequest struct {
	CandidateID string `json:"candidate_id"`
	Score       int    `json:"score"`
}

// Domain types

type Candidate struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	ImageURL    string `json:"image_url,omitempty"`
	Description string `json:"description,omitempty"`
}

type Room struct {
	ID         string       `json:"id"`
	Code       string       `json:"code"`
	HostID     string       `json:"host_id"`
	Status     string       `json:"status"`
	Candidates []Candidate  `json:"candidates,omitempty"`
	Results    RankedResult `json:"results,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

type Participant struct {
	RoomID   string    `json:"room_id"`
	UserID   string    `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}

type Vote struct {
	RoomID      string    `json:"room_id"`
	UserID      string    `json:"user_id"`
	CandidateID string    `json:"candidate_id"`
	Score       int       `json:"score"`
	CreatedAt   time.Time `json:"created_at"`
}

// Result types

type VoteDetail struct {
	UserID string `json:"user_id"`
	Score  int    `json:"score"`
}

type CandidateResult struct {
	CandidateID string       `json:"candidate_id"`
	Title       string       `json:"title"`
	TotalScore  int          `json:"total_score"`
	Rank        int          `json:"rank"` // 1-indexed ranking
	Votes       []VoteDetail `json:"votes"`
}

// RankedResult is ordered best first
type RankedResult []CandidateResult

// Winner returns the top-ranked candidate, if any
func (r RankedResult) Winner() (CandidateResult, bool) {
	if len(r) == 0 {
		return CandidateResult{}, false
	}
	return r[0], true
}

// Response types

type RoomView struct {
	Room         Room          `json:"room"`
	Participants []Participant `json:"participants"`
	CreatedAgo   string        `json:"created_ago"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}
