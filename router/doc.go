// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the roompick API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(coord, registry, promRegistry)

Passing a nil gatherer leaves /metrics unmounted.

# Endpoints

Health and metrics:

	GET /health
	GET /metrics

Rooms (identity from X-User-ID):

	POST /rooms                 - Create room, caller becomes host
	GET  /rooms/{code}          - Room, participants and results
	GET  /rooms/{code}/progress - Votes recorded against votes expected
	POST /rooms/{code}/join     - Join while waiting
	POST /rooms/{code}/start    - Host starts voting on a category
	POST /rooms/{code}/votes    - Score one candidate
	POST /rooms/{code}/finish   - Host ends voting early

Live:

	GET /live - websocket; send {"type":"join","data":{"code":"..."}} first

Every route except /health, /metrics and / is wrapped in
middleware.WithLogging.
*/
package router
