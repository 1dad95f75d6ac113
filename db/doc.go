// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db is the SQL storage layer: connection setup, schema creation and
a Store that backs the session coordinator.

# Connecting

Open accepts the DATABASE_TYPE and DATABASE_URL values from configuration:

	conn, err := db.Open(db.TypeSQLite, "roompick.db")
	if err != nil {
		log.Fatal(err)
	}
	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}
	store := db.NewStore(conn)

Postgres goes through lib/pq, SQLite through the pure-Go modernc driver.
SQLite connections get foreign keys and a busy timeout, and the pool is
capped at one connection.

# Tables

  - room: code (unique), host, status, candidates and results as JSON text
  - participant: one row per (room_id, user_id)
  - vote: one row per (room_id, user_id, candidate_id)

	room 1──* participant
	room 1──* vote

All foreign keys use ON DELETE CASCADE.

# Conditional Updates

UpdateRoomStatus only moves a room that is still in the expected status and
reports whether it did. UpdateRoomCandidates and UpdateRoomResults only
write a column that is still NULL. These are what keep completion
exactly-once when more than one process shares the database.

# Errors

Unique-key violations become ErrCodeTaken (room code) or ErrDuplicateVote
(vote). Connection loss, lock contention and context expiry are wrapped
with ErrTransientStorage.
*/
package db
