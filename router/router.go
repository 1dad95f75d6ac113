// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danielhkuo/roompick/handlers"
	"github.com/danielhkuo/roompick/hub"
	"github.com/danielhkuo/roompick/middleware"
	"github.com/danielhkuo/roompick/session"
)

// NewRouter wires every endpoint. A nil gatherer leaves /metrics unmounted.
func NewRouter(coord *session.Coordinator, registry *hub.Registry, gatherer prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()

	roomHandler := handlers.NewRoomHandler(coord)
	liveHandler := handlers.NewLiveHandler(coord, registry)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	// Rooms
	mux.HandleFunc("POST /rooms", middleware.WithLogging(roomHandler.CreateRoom))
	mux.HandleFunc("GET /rooms/{code}", middleware.WithLogging(roomHandler.GetRoom))
	mux.HandleFunc("GET /rooms/{code}/progress", middleware.WithLogging(roomHandler.GetProgress))
	mux.HandleFunc("POST /rooms/{code}/join", middleware.WithLogging(roomHandler.JoinRoom))
	mux.HandleFunc("POST /rooms/{code}/start", middleware.WithLogging(roomHandler.StartVoting))
	mux.HandleFunc("POST /rooms/{code}/votes", middleware.WithLogging(roomHandler.CastVote))
	mux.HandleFunc("POST /rooms/{code}/finish", middleware.WithLogging(roomHandler.FinishVoting))

	// Live push channel
	mux.HandleFunc("GET /live", middleware.WithLogging(liveHandler.ServeHTTP))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("roompick API v1"))
	})

	return mux
}
