// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/danielhkuo/roompick/auth"
	"github.com/danielhkuo/roompick/catalog"
	"github.com/danielhkuo/roompick/ledger"
	"github.com/danielhkuo/roompick/lifecycle"
	"github.com/danielhkuo/roompick/models"
	"github.com/danielhkuo/roompick/results"
	"github.com/danielhkuo/roompick/roomcode"
)

// DefaultStoreTimeout applies when Config.StoreTimeout is zero
const DefaultStoreTimeout = 5 * time.Second

// createRoomAttempts bounds retries when a generated code is claimed by
// another room between the existence check and the insert
const createRoomAttempts = 3

// Store is the durable storage the coordinator works against. Conditional
// updates return ok=false (or ErrInvalidTransition) when the row is not in
// the expected state, which is what makes completion exactly-once across
// processes. UpdateRoomCandidates fixes the candidates and moves a waiting
// room to voting in one write. RecordVote refuses votes unless the room is
// voting.
type Store interface {
	GetRoomByCode(ctx context.Context, code string) (models.Room, error)
	CreateRoom(ctx context.Context, room models.Room) error
	UpdateRoomStatus(ctx context.Context, roomID, from, to string) (bool, error)
	UpdateRoomCandidates(ctx context.Context, roomID string, candidates []models.Candidate) error
	UpdateRoomResults(ctx context.Context, roomID string, results models.RankedResult) error
	AddParticipant(ctx context.Context, p models.Participant) (bool, error)
	ListParticipants(ctx context.Context, roomID string) ([]models.Participant, error)
	GetParticipantByRoomAndUser(ctx context.Context, roomID, userID string) (models.Participant, error)
	RecordVote(ctx context.Context, vote models.Vote) error
	ListVotes(ctx context.Context, roomID string) ([]models.Vote, error)
}

// Broadcaster pushes an event to everyone live in a room
type Broadcaster interface {
	Broadcast(code string, evt models.Event)
}

type Config struct {
	Store       Store
	Catalog     catalog.Catalog
	Broadcaster Broadcaster
	Codes       *roomcode.Generator

	StoreTimeout time.Duration
	PromRegistry prometheus.Registerer
	Logger       *slog.Logger
}

// Coordinator runs room operations end to end: validation, storage,
// lifecycle transitions and the events that follow them.
type Coordinator struct {
	store        Store
	catalog      catalog.Catalog
	broadcaster  Broadcaster
	codes        *roomcode.Generator
	ledger       *ledger.Ledger
	locks        *roomLocks
	storeTimeout time.Duration
	metrics      *sessionMetrics
	logger       *slog.Logger
	now          func() time.Time
}

func New(cfg Config) (*Coordinator, error) {
	if cfg.Store == nil {
		return nil, errors.New("session: store is required")
	}
	if cfg.Catalog == nil {
		return nil, errors.New("session: catalog is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	broadcaster := cfg.Broadcaster
	if broadcaster == nil {
		broadcaster = discard{}
	}
	codes := cfg.Codes
	if codes == nil {
		codes = roomcode.NewGenerator(cfg.Store, roomcode.WithLogger(logger))
	}
	timeout := cfg.StoreTimeout
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}

	c := &Coordinator{
		store:        cfg.Store,
		catalog:      cfg.Catalog,
		broadcaster:  broadcaster,
		codes:        codes,
		ledger:       ledger.New(cfg.Store),
		locks:        newRoomLocks(),
		storeTimeout: timeout,
		logger:       logger,
		now:          time.Now,
	}
	if cfg.PromRegistry != nil {
		c.initMetrics(cfg.PromRegistry)
	}
	return c, nil
}

type discard struct{}

func (discard) Broadcast(string, models.Event) {}

func (c *Coordinator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.storeTimeout)
}

// CreateRoom makes a waiting room with a fresh code and joins the host to it
func (c *Coordinator) CreateRoom(ctx context.Context, hostID string) (models.Room, error) {
	hostID, err := auth.ValidateUserID(hostID)
	if err != nil {
		return models.Room{}, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var room models.Room
	for attempt := 1; ; attempt++ {
		code, err := c.codes.Generate(ctx)
		if err != nil {
			return models.Room{}, fmt.Errorf("generate room code: %w", err)
		}
		room = models.Room{
			ID:        auth.GenerateID(),
			Code:      code,
			HostID:    hostID,
			Status:    models.StatusWaiting,
			CreatedAt: c.now().UTC(),
		}
		err = c.store.CreateRoom(ctx, room)
		if err == nil {
			break
		}
		if errors.Is(err, models.ErrCodeTaken) && attempt < createRoomAttempts {
			c.logger.Debug("room code taken at insert, regenerating", "code", code, "attempt", attempt)
			continue
		}
		return models.Room{}, fmt.Errorf("create room: %w", err)
	}

	if _, err := c.store.AddParticipant(ctx, models.Participant{
		RoomID:   room.ID,
		UserID:   hostID,
		JoinedAt: room.CreatedAt,
	}); err != nil {
		return models.Room{}, fmt.Errorf("add host as participant: %w", err)
	}

	if c.metrics != nil {
		c.metrics.roomsCreated.Inc()
	}
	c.logger.Info("room created", "room_code", room.Code, "room_id", room.ID, "host_id", hostID)
	return room, nil
}

// Join adds userID to the room. New participants are only accepted while
// the room is waiting; a user who already joined may rejoin in any state,
// which is how a dropped live connection recovers. created reports whether
// the user is new to the room.
func (c *Coordinator) Join(ctx context.Context, code, userID string) (p models.Participant, created bool, err error) {
	userID, err = auth.ValidateUserID(userID)
	if err != nil {
		return models.Participant{}, false, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	room, err := c.store.GetRoomByCode(ctx, normalizeCode(code))
	if err != nil {
		return models.Participant{}, false, err
	}

	existing, err := c.store.GetParticipantByRoomAndUser(ctx, room.ID, userID)
	switch {
	case err == nil:
		return existing, false, nil
	case !errors.Is(err, models.ErrNotFound):
		return models.Participant{}, false, fmt.Errorf("lookup participant: %w", err)
	}

	if room.Status != models.StatusWaiting {
		return models.Participant{}, false, fmt.Errorf("%w: room is %s, no new participants", models.ErrInvalidTransition, room.Status)
	}

	p = models.Participant{RoomID: room.ID, UserID: userID, JoinedAt: c.now().UTC()}
	added, err := c.store.AddParticipant(ctx, p)
	if err != nil {
		return models.Participant{}, false, fmt.Errorf("add participant: %w", err)
	}
	if !added {
		// lost a race with our own reconnect; report the stored row
		existing, err := c.store.GetParticipantByRoomAndUser(ctx, room.ID, userID)
		if err != nil {
			return models.Participant{}, false, fmt.Errorf("lookup participant: %w", err)
		}
		return existing, false, nil
	}

	count := 0
	if all, err := c.store.ListParticipants(ctx, room.ID); err == nil {
		count = len(all)
	} else {
		c.logger.Warn("failed to count participants", "room_code", room.Code, "error", err)
	}

	c.broadcaster.Broadcast(room.Code, models.NewEvent(models.EventParticipantJoined, room.Code, models.ParticipantJoinedPayload{
		UserID:           userID,
		ParticipantCount: count,
	}))
	c.logger.Info("participant joined", "room_code", room.Code, "user_id", userID, "participants", count)
	return p, true, nil
}

// StartVoting fetches the category's candidates, fixes them on the room and
// moves it to voting. Only the host may start.
func (c *Coordinator) StartVoting(ctx context.Context, code, userID, category string) (models.Room, error) {
	userID, err := auth.ValidateUserID(userID)
	if err != nil {
		return models.Room{}, err
	}
	code = normalizeCode(code)
	unlock := c.locks.lock(code)
	defer unlock()

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	room, err := c.store.GetRoomByCode(ctx, code)
	if err != nil {
		return models.Room{}, err
	}
	if room.HostID != userID {
		return models.Room{}, models.ErrNotHost
	}
	if !lifecycle.CanTransition(room.Status, models.StatusVoting) {
		return models.Room{}, fmt.Errorf("%w: cannot start voting from %q", models.ErrInvalidTransition, room.Status)
	}

	candidates, err := c.catalog.FetchCandidates(ctx, category)
	if err != nil {
		return models.Room{}, fmt.Errorf("fetch candidates: %w", err)
	}
	if err := lifecycle.StartVoting(&room, candidates); err != nil {
		return models.Room{}, err
	}

	// candidates and status land together, so a failed write leaves the
	// room waiting with nothing fixed and the host can retry
	if err := c.store.UpdateRoomCandidates(ctx, room.ID, room.Candidates); err != nil {
		return models.Room{}, fmt.Errorf("start voting: %w", err)
	}

	c.broadcaster.Broadcast(room.Code, models.NewEvent(models.EventVotingStarted, room.Code, models.VotingStartedPayload{
		Candidates: room.Candidates,
	}))
	c.logger.Info("voting started", "room_code", room.Code, "category", category, "candidates", len(room.Candidates))
	return room, nil
}

// CastVote records one score and announces it. When it is the last vote
// the room needs, the room is completed and the results are announced.
func (c *Coordinator) CastVote(ctx context.Context, code, userID, candidateID string, score int) (models.Vote, error) {
	userID, err := auth.ValidateUserID(userID)
	if err != nil {
		return models.Vote{}, err
	}
	code = normalizeCode(code)
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	room, err := c.store.GetRoomByCode(ctx, code)
	if err != nil {
		return models.Vote{}, err
	}
	if room.Status != models.StatusVoting {
		return models.Vote{}, fmt.Errorf("%w: room is %s, not voting", models.ErrInvalidTransition, room.Status)
	}
	if _, err := c.store.GetParticipantByRoomAndUser(ctx, room.ID, userID); err != nil {
		return models.Vote{}, err
	}
	if !hasCandidate(room.Candidates, candidateID) {
		return models.Vote{}, models.ErrCandidateNotFound
	}
	if !models.ValidScore(score) {
		return models.Vote{}, models.ErrInvalidScore
	}

	// the store refuses the vote once the room leaves voting; holding the
	// room lock keeps vote-recorded ahead of voting-completed
	unlock := c.locks.lock(room.Code)
	defer unlock()

	res, err := c.ledger.Record(ctx, models.Vote{
		RoomID:      room.ID,
		UserID:      userID,
		CandidateID: candidateID,
		Score:       score,
		CreatedAt:   c.now().UTC(),
	})
	if err != nil {
		return models.Vote{}, err
	}
	if c.metrics != nil {
		c.metrics.votes.Inc()
	}

	c.broadcaster.Broadcast(room.Code, models.NewEvent(models.EventVoteRecorded, room.Code, models.VoteRecordedPayload{
		UserID:      userID,
		CandidateID: candidateID,
		Score:       score,
	}))

	if _, err := c.completeLocked(ctx, room.Code, false); err != nil {
		// the vote itself is stored; a later vote or the host can finish
		c.logger.Error("completion check failed", "room_code", room.Code, "error", err)
	}
	return res.Vote, nil
}

// FinishVoting lets the host close voting early, for example when a
// participant walked away without scoring everything
func (c *Coordinator) FinishVoting(ctx context.Context, code, userID string) (models.Room, error) {
	userID, err := auth.ValidateUserID(userID)
	if err != nil {
		return models.Room{}, err
	}
	code = normalizeCode(code)
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	room, err := c.store.GetRoomByCode(ctx, code)
	if err != nil {
		return models.Room{}, err
	}
	if room.HostID != userID {
		return models.Room{}, models.ErrNotHost
	}

	completed, err := c.completeIfDone(ctx, code, true)
	if err != nil {
		return models.Room{}, err
	}
	if !completed {
		return models.Room{}, fmt.Errorf("%w: room is not voting", models.ErrInvalidTransition)
	}
	return c.store.GetRoomByCode(ctx, code)
}

// completeIfDone runs the completion check, aggregation, transition and
// announcement as one critical section per room. force skips the
// everyone-voted check. It reports whether this call completed the room.
func (c *Coordinator) completeIfDone(ctx context.Context, code string, force bool) (bool, error) {
	unlock := c.locks.lock(code)
	defer unlock()
	return c.completeLocked(ctx, code, force)
}

// completeLocked is completeIfDone for callers already holding the room lock
func (c *Coordinator) completeLocked(ctx context.Context, code string, force bool) (bool, error) {
	room, err := c.store.GetRoomByCode(ctx, code)
	if err != nil {
		return false, err
	}
	if room.Status != models.StatusVoting {
		return false, nil
	}

	if !force {
		done, err := c.ledger.IsComplete(ctx, room)
		if err != nil {
			return false, err
		}
		if !done {
			return false, nil
		}
	}

	// the conditional update is the cross-process guard; losing it means
	// another coordinator already completed this room. Once it lands the
	// store takes no more votes, so the list read below is final.
	ok, err := c.store.UpdateRoomStatus(ctx, room.ID, models.StatusVoting, models.StatusCompleted)
	if err != nil {
		return false, fmt.Errorf("complete room: %w", err)
	}
	if !ok {
		return false, nil
	}

	votes, err := c.store.ListVotes(ctx, room.ID)
	if err != nil {
		// completed without stored results; GetRoom aggregates on demand
		c.logger.Error("failed to list votes for completed room", "room_code", room.Code, "error", err)
		return true, fmt.Errorf("list votes: %w", err)
	}
	ranked := results.Aggregate(room.Candidates, votes)
	if err := lifecycle.Complete(&room, ranked); err != nil {
		return true, err
	}
	if err := c.store.UpdateRoomResults(ctx, room.ID, ranked); err != nil {
		// status already moved; readers fall back to aggregating on demand
		c.logger.Error("failed to store results", "room_code", room.Code, "error", err)
	}

	if c.metrics != nil {
		trigger := "votes"
		if force {
			trigger = "host"
		}
		c.metrics.completions.WithLabelValues(trigger).Inc()
	}

	c.broadcaster.Broadcast(room.Code, models.NewEvent(models.EventVotingCompleted, room.Code, models.VotingCompletedPayload{
		Results: ranked,
	}))

	attrs := []any{"room_code", room.Code, "votes", len(votes), "forced", force}
	if w, ok := ranked.Winner(); ok {
		attrs = append(attrs, "winner", w.CandidateID)
	}
	c.logger.Info("voting completed", attrs...)
	return true, nil
}

// GetRoom returns the room with its participants. A completed room always
// carries results, aggregated on demand if they were never stored.
func (c *Coordinator) GetRoom(ctx context.Context, code string) (models.RoomView, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	room, err := c.store.GetRoomByCode(ctx, normalizeCode(code))
	if err != nil {
		return models.RoomView{}, err
	}
	participants, err := c.store.ListParticipants(ctx, room.ID)
	if err != nil {
		return models.RoomView{}, fmt.Errorf("list participants: %w", err)
	}
	if room.Status == models.StatusCompleted && room.Results == nil {
		votes, err := c.store.ListVotes(ctx, room.ID)
		if err != nil {
			return models.RoomView{}, fmt.Errorf("list votes: %w", err)
		}
		room.Results = results.Aggregate(room.Candidates, votes)
	}
	if room.Status != models.StatusCompleted {
		room.Results = nil
	}

	return models.RoomView{
		Room:         room,
		Participants: participants,
		CreatedAgo:   humanize.Time(room.CreatedAt),
	}, nil
}

// Progress reports how many of the expected votes a room has
func (c *Coordinator) Progress(ctx context.Context, code string) (ledger.Progress, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	room, err := c.store.GetRoomByCode(ctx, normalizeCode(code))
	if err != nil {
		return ledger.Progress{}, err
	}
	return c.ledger.Progress(ctx, room)
}

func hasCandidate(candidates []models.Candidate, id string) bool {
	for _, cand := range candidates {
		if cand.ID == id {
			return true
		}
	}
	return false
}

// normalizeCode accepts codes typed in lower case or with stray spaces
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
