// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP and websocket handlers for the roompick API.

# Handler Types

  - RoomHandler: REST operations on rooms, one method per route
  - LiveHandler: the /live websocket endpoint

Both are thin; all rules live in session.Coordinator:

	roomHandler := handlers.NewRoomHandler(coord)
	liveHandler := handlers.NewLiveHandler(coord, registry)

# Room Lifecycle

Rooms move waiting → voting → completed:

	POST /rooms                → CreateRoom (host auto-joins)
	POST /rooms/{code}/join    → JoinRoom (201 first time, 200 on repeat)
	POST /rooms/{code}/start   → StartVoting (host only)
	POST /rooms/{code}/votes   → CastVote
	POST /rooms/{code}/finish  → FinishVoting (host only)

The last vote a room needs completes it automatically. Errors come back as
models.ErrorResponse with a machine-readable reason; see
middleware.WriteError for the status mapping.

# Live Protocol

Clients send {"type": ..., "data": ...} frames:

	join  {"code": "ABCD1234", "user_id": "optional"}
	vote  {"candidate_id": "A", "score": 2}
	ping

and receive the room's events (participant-joined, voting-started,
vote-recorded, voting-completed) plus joined, pong and error replies.
Errors are sent only to the connection that caused them.
*/
package handlers
