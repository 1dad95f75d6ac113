// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/danielhkuo/roompick/models"
)

// Store implements room storage on database/sql. Queries use $N
// placeholders, which both lib/pq and modernc sqlite accept.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetRoomByCode(ctx context.Context, code string) (models.Room, error) {
	var (
		room       models.Room
		candidates sql.NullString
		results    sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, code, host_id, status, candidates, results, created_at
		FROM room WHERE code = $1
	`, code).Scan(&room.ID, &room.Code, &room.HostID, &room.Status, &candidates, &results, &room.CreatedAt)
	if err == sql.ErrNoRows {
		return models.Room{}, models.ErrRoomNotFound
	}
	if err != nil {
		return models.Room{}, classify("get room", err)
	}

	if candidates.Valid && candidates.String != "" {
		if err := json.Unmarshal([]byte(candidates.String), &room.Candidates); err != nil {
			return models.Room{}, fmt.Errorf("decode candidates for room %s: %w", room.ID, err)
		}
	}
	if results.Valid && results.String != "" {
		if err := json.Unmarshal([]byte(results.String), &room.Results); err != nil {
			return models.Room{}, fmt.Errorf("decode results for room %s: %w", room.ID, err)
		}
	}
	return room, nil
}

func (s *Store) CreateRoom(ctx context.Context, room models.Room) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO room (id, code, host_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, room.ID, room.Code, room.HostID, room.Status, room.CreatedAt)
	if isUniqueViolation(err) {
		return models.ErrCodeTaken
	}
	if err != nil {
		return classify("create room", err)
	}
	return nil
}

// UpdateRoomStatus moves the room from → to only if it is still in from
func (s *Store) UpdateRoomStatus(ctx context.Context, roomID, from, to string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE room SET status = $1 WHERE id = $2 AND status = $3
	`, to, roomID, from)
	if err != nil {
		return false, classify("update room status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, classify("update room status", err)
	}
	if n == 1 {
		return true, nil
	}
	return false, s.ensureRoom(ctx, roomID)
}

// UpdateRoomCandidates fixes the candidates and opens voting in one
// conditional update, so a waiting room never carries candidates
func (s *Store) UpdateRoomCandidates(ctx context.Context, roomID string, candidates []models.Candidate) error {
	payload, err := json.Marshal(candidates)
	if err != nil {
		return fmt.Errorf("encode candidates: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE room SET candidates = $1, status = $2
		WHERE id = $3 AND status = $4 AND candidates IS NULL
	`, string(payload), models.StatusVoting, roomID, models.StatusWaiting)
	if err != nil {
		return classify("update room candidates", err)
	}
	return s.expectOneRow(ctx, res, roomID, "voting already started")
}

func (s *Store) UpdateRoomResults(ctx context.Context, roomID string, results models.RankedResult) error {
	payload, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE room SET results = $1 WHERE id = $2 AND results IS NULL
	`, string(payload), roomID)
	if err != nil {
		return classify("update room results", err)
	}
	return s.expectOneRow(ctx, res, roomID, "results already set")
}

// AddParticipant reports false when the user had already joined
func (s *Store) AddParticipant(ctx context.Context, p models.Participant) (bool, error) {
	if err := s.ensureRoom(ctx, p.RoomID); err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO participant (room_id, user_id, joined_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (room_id, user_id) DO NOTHING
	`, p.RoomID, p.UserID, p.JoinedAt)
	if err != nil {
		return false, classify("add participant", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, classify("add participant", err)
	}
	return n == 1, nil
}

func (s *Store) ListParticipants(ctx context.Context, roomID string) ([]models.Participant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT room_id, user_id, joined_at FROM participant
		WHERE room_id = $1
		ORDER BY joined_at, user_id
	`, roomID)
	if err != nil {
		return nil, classify("list participants", err)
	}
	defer rows.Close()

	participants := []models.Participant{}
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.RoomID, &p.UserID, &p.JoinedAt); err != nil {
			return nil, classify("scan participant", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list participants", err)
	}
	return participants, nil
}

func (s *Store) GetParticipantByRoomAndUser(ctx context.Context, roomID, userID string) (models.Participant, error) {
	var p models.Participant
	err := s.db.QueryRowContext(ctx, `
		SELECT room_id, user_id, joined_at FROM participant
		WHERE room_id = $1 AND user_id = $2
	`, roomID, userID).Scan(&p.RoomID, &p.UserID, &p.JoinedAt)
	if err == sql.ErrNoRows {
		return models.Participant{}, models.ErrParticipantNotFound
	}
	if err != nil {
		return models.Participant{}, classify("get participant", err)
	}
	return p, nil
}

// RecordVote stores a vote only while the room is voting. The no-op update
// takes the room row lock, so a vote commits either before the completing
// status change or not at all.
func (s *Store) RecordVote(ctx context.Context, vote models.Vote) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin vote", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE room SET status = status WHERE id = $1 AND status = $2
	`, vote.RoomID, models.StatusVoting)
	if err != nil {
		return classify("lock room", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify("rows affected", err)
	}
	if n != 1 {
		if err := roomExists(ctx, tx, vote.RoomID); err != nil {
			return err
		}
		return fmt.Errorf("%w: room is not voting", models.ErrInvalidTransition)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO vote (room_id, user_id, candidate_id, score, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, vote.RoomID, vote.UserID, vote.CandidateID, vote.Score, vote.CreatedAt)
	if isUniqueViolation(err) {
		return models.ErrDuplicateVote
	}
	if err != nil {
		return classify("record vote", err)
	}
	if err := tx.Commit(); err != nil {
		return classify("commit vote", err)
	}
	return nil
}

func (s *Store) ListVotes(ctx context.Context, roomID string) ([]models.Vote, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT room_id, user_id, candidate_id, score, created_at FROM vote
		WHERE room_id = $1
		ORDER BY created_at, user_id, candidate_id
	`, roomID)
	if err != nil {
		return nil, classify("list votes", err)
	}
	defer rows.Close()

	votes := []models.Vote{}
	for rows.Next() {
		var v models.Vote
		if err := rows.Scan(&v.RoomID, &v.UserID, &v.CandidateID, &v.Score, &v.CreatedAt); err != nil {
			return nil, classify("scan vote", err)
		}
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list votes", err)
	}
	return votes, nil
}

// ensureRoom returns ErrRoomNotFound when no room has roomID
func (s *Store) ensureRoom(ctx context.Context, roomID string) error {
	return roomExists(ctx, s.db, roomID)
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// roomExists runs on the given handle so callers inside a transaction do not
// wait on a second connection
func roomExists(ctx context.Context, q rowQuerier, roomID string) error {
	var exists int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM room WHERE id = $1`, roomID).Scan(&exists)
	if err == sql.ErrNoRows {
		return models.ErrRoomNotFound
	}
	if err != nil {
		return classify("lookup room", err)
	}
	return nil
}

// expectOneRow turns a conditional update that matched nothing into
// ErrRoomNotFound or ErrInvalidTransition
func (s *Store) expectOneRow(ctx context.Context, res sql.Result, roomID, reason string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return classify("rows affected", err)
	}
	if n == 1 {
		return nil
	}
	if err := s.ensureRoom(ctx, roomID); err != nil {
		return err
	}
	return fmt.Errorf("%w: %s", models.ErrInvalidTransition, reason)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return true
		}
		return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE constraint failed")
	}
	return false
}

// classify wraps err, marking failures worth retrying as ErrTransientStorage
func classify(op string, err error) error {
	if isTransient(err) {
		return fmt.Errorf("%s: %w: %v", op, models.ErrTransientStorage, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "53", "57":
			// connection exception, insufficient resources, operator intervention
			return true
		}
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
	}
	return false
}
