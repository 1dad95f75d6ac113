// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the roompick API server.

roompick runs short group votes: a host opens a room, friends join with its
eight-character code, everyone scores the same candidates from -2 to 2, and
the room completes as soon as the last score is in.

# Starting the Server

With no configuration the server listens on 3318 with a local sqlite file:

	go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..."
	go run . -t memory -debug

Settings may also come from the environment or a .env file; see cliparse.

# Architecture

  - session: the coordinator, every room operation goes through it
  - roomcode: collision-checked room code generation
  - lifecycle: waiting → voting → completed transitions
  - ledger: vote recording and completion detection
  - results: aggregation and ranking
  - hub: per-room fan-out of live events
  - catalog: candidate sources (built in or remote HTTP)
  - db, memstore: room storage (postgres/sqlite, or in memory)
  - handlers, router, middleware: the HTTP and websocket surface
  - auth: caller identity and random ids
  - cliparse: configuration parsing

On SIGINT or SIGTERM the server stops accepting requests, closes every live
connection and drains in-flight requests for up to the shutdown timeout.
*/
package main
