// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package hub

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/danielhkuo/roompick/models"
)

var ErrConnClosed = errors.New("connection closed")

// Conn is one live connection. Send must be safe to call from any
// goroutine; Close must be idempotent.
type Conn interface {
	Send(data []byte) error
	Closed() bool
	Close() error
}

// member wraps a registered connection so an in-flight broadcast can see
// that it was unregistered after the snapshot was taken
type member struct {
	conn    Conn
	removed atomic.Bool
}

type room struct {
	// held for the whole of a broadcast so events reach each connection
	// in the order they were issued
	sendMu  sync.Mutex
	members map[Conn]*member
}

type hubMetrics struct {
	connections    prometheus.Gauge
	rooms          prometheus.Gauge
	broadcasts     *prometheus.CounterVec
	deliveries     prometheus.Counter
	deliveryErrors prometheus.Counter
}

// Registry maps room codes to their live connections and fans events out.
// It is created at startup and torn down with Close.
type Registry struct {
	mu      sync.RWMutex
	rooms   map[string]*room
	closed  bool
	metrics *hubMetrics
	logger  *slog.Logger
}

// NewRegistry creates an empty registry. promRegistry may be nil.
func NewRegistry(promRegistry prometheus.Registerer, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		rooms:  make(map[string]*room),
		logger: logger,
	}
	if promRegistry != nil {
		r.initMetrics(promRegistry)
	}
	return r
}

func (r *Registry) initMetrics(promRegistry prometheus.Registerer) {
	factory := promauto.With(promRegistry)
	r.metrics = &hubMetrics{
		connections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "roompick_live_connections",
			Help: "number of registered live connections",
		}),
		rooms: factory.NewGauge(prometheus.GaugeOpts{
			Name: "roompick_live_rooms",
			Help: "number of rooms with at least one live connection",
		}),
		broadcasts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "roompick_broadcasts_total",
			Help: "broadcasts issued, by event type",
		}, []string{"type"}),
		deliveries: factory.NewCounter(prometheus.CounterOpts{
			Name: "roompick_deliveries_total",
			Help: "events written to a live connection",
		}),
		deliveryErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "roompick_delivery_errors_total",
			Help: "events that could not be written to a live connection",
		}),
	}
}

// Register adds conn to the room's set. Registering the same conn twice is
// a no-op. After Close, the connection is closed instead of registered.
func (r *Registry) Register(code string, conn Conn) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = conn.Close()
		return
	}
	rm, ok := r.rooms[code]
	if !ok {
		rm = &room{members: make(map[Conn]*member)}
		r.rooms[code] = rm
		if r.metrics != nil {
			r.metrics.rooms.Inc()
		}
	}
	if _, dup := rm.members[conn]; dup {
		r.mu.Unlock()
		return
	}
	rm.members[conn] = &member{conn: conn}
	total := len(rm.members)
	if r.metrics != nil {
		r.metrics.connections.Inc()
	}
	r.mu.Unlock()

	r.logger.Debug("live connection registered", "room_code", code, "room_connections", total)
}

// Unregister removes conn from the room. It is safe to call while a
// broadcast to the same room is in progress; the removed connection is
// skipped from then on. An emptied room is pruned.
func (r *Registry) Unregister(code string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[code]
	if !ok {
		return
	}
	m, ok := rm.members[conn]
	if !ok {
		return
	}
	m.removed.Store(true)
	delete(rm.members, conn)
	if r.metrics != nil {
		r.metrics.connections.Dec()
	}
	if len(rm.members) == 0 {
		delete(r.rooms, code)
		if r.metrics != nil {
			r.metrics.rooms.Dec()
		}
	}
	r.logger.Debug("live connection unregistered", "room_code", code)
}

// Broadcast delivers evt to every open connection registered to code.
// Closed connections are skipped but stay registered until their own
// close handling unregisters them. Delivery failures are logged and
// never reported to the caller.
func (r *Registry) Broadcast(code string, evt models.Event) {
	if evt.RoomCode == "" {
		evt.RoomCode = code
	}
	data, err := json.Marshal(evt)
	if err != nil {
		r.logger.Error("failed to encode event", "type", evt.Kind, "error", err)
		return
	}

	r.mu.RLock()
	rm, ok := r.rooms[code]
	var members []*member
	if ok {
		members = make([]*member, 0, len(rm.members))
		for _, m := range rm.members {
			members = append(members, m)
		}
	}
	r.mu.RUnlock()

	if r.metrics != nil {
		r.metrics.broadcasts.WithLabelValues(string(evt.Kind)).Inc()
	}
	if !ok {
		return
	}

	rm.sendMu.Lock()
	defer rm.sendMu.Unlock()
	for _, m := range members {
		if m.removed.Load() || m.conn.Closed() {
			continue
		}
		if err := deliver(m.conn, data); err != nil {
			if r.metrics != nil {
				r.metrics.deliveryErrors.Inc()
			}
			r.logger.Debug("event delivery error", "room_code", code, "type", evt.Kind, "error", err)
			continue
		}
		if r.metrics != nil {
			r.metrics.deliveries.Inc()
		}
	}
}

// deliver protects the broadcast loop from a misbehaving connection
func deliver(conn Conn, data []byte) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("connection send panic: %v", rec)
		}
	}()
	return conn.Send(data)
}

// SendTo writes evt to a single connection, outside of any room fan-out
func (r *Registry) SendTo(conn Conn, evt models.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return deliver(conn, data)
}

// Count returns the number of connections registered to code
func (r *Registry) Count(code string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rm, ok := r.rooms[code]; ok {
		return len(rm.members)
	}
	return 0
}

// Rooms returns the number of rooms with live connections
func (r *Registry) Rooms() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Close closes every registered connection and empties the registry.
// Later Register calls close their connection immediately.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	rooms := r.rooms
	r.rooms = make(map[string]*room)
	r.mu.Unlock()

	closed := 0
	for _, rm := range rooms {
		for conn, m := range rm.members {
			m.removed.Store(true)
			_ = conn.Close()
			closed++
		}
	}
	if r.metrics != nil {
		r.metrics.connections.Set(0)
		r.metrics.rooms.Set(0)
	}
	r.logger.Info("live registry closed", "connections", closed)
}
