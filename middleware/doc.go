// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs completion with method, path, status, response size and duration_ms.
The wrapper supports hijacking, so websocket upgrades can be logged too.

# CORS Middleware

	server := http.Server{
		Handler: middleware.CORS(mux),
	}

Allows GET, POST, OPTIONS with headers Content-Type and X-User-ID.

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")

WriteError maps a domain error to its status and reason:

	room, err := coord.StartVoting(ctx, code, userID, req.Category)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	not found            404  not_found
	invalid transition   409  invalid_transition
	duplicate vote       409  duplicate_vote
	invalid score        400  invalid_score
	not host             403  not_host
	code exhausted       503  code_exhausted
	transient storage    503  storage_unavailable
	catalog unavailable  502  catalog_unavailable

Anything else is a 500 whose text is logged, not returned.

# Client IP Extraction

	ip := middleware.GetClientIP(r)
*/
package middleware
