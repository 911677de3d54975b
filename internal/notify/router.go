package notify

import (
	"log/slog"
	"sync"

	"github.com/emilythestrangee/forum/backend/internal/metrics"
)

// Conn is a live client connection. Implementations must be comparable
// (pointer types); the router identifies handles by equality.
type Conn interface {
	Send(payload any) error
}

// Router is the presence registry: it maps a user id to that user's most
// recently registered connection. It is process-local and never persisted.
type Router struct {
	mu     sync.RWMutex
	conns  map[string]Conn
	logger *slog.Logger
}

func NewRouter(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		conns:  make(map[string]Conn),
		logger: logger,
	}
}

// Register maps userID to conn. A previous mapping for the same user is
// silently superseded.
func (r *Router) Register(userID string, conn Conn) {
	r.mu.Lock()
	prev, existed := r.conns[userID]
	r.conns[userID] = conn
	n := len(r.conns)
	r.mu.Unlock()

	metrics.RegisteredUsers.Set(float64(n))
	if existed && prev != conn {
		r.logger.Debug("Superseded notification connection", "user_id", userID)
	}
	r.logger.Debug("Registered notification connection", "user_id", userID, "registered_users", n)
}

// Deliver pushes event to userID's current connection. It reports whether a
// send happened; an offline user or a failed send is not an error.
func (r *Router) Deliver(userID string, event Event) bool {
	r.mu.RLock()
	conn, ok := r.conns[userID]
	r.mu.RUnlock()

	if !ok {
		metrics.NotificationsDroppedTotal.WithLabelValues("offline").Inc()
		r.logger.Debug("Dropped notification for offline user", "user_id", userID, "kind", event.Kind)
		return false
	}

	if err := conn.Send(event.Payload()); err != nil {
		metrics.NotificationsDroppedTotal.WithLabelValues("send_failed").Inc()
		r.logger.Warn("Failed to send notification", "user_id", userID, "kind", event.Kind, "error", err)
		return false
	}

	metrics.NotificationsDeliveredTotal.WithLabelValues(string(event.Kind)).Inc()
	return true
}

// Disconnect removes every mapping that points at conn and returns how many
// were removed.
func (r *Router) Disconnect(conn Conn) int {
	r.mu.Lock()
	removed := 0
	for userID, c := range r.conns {
		if c == conn {
			delete(r.conns, userID)
			removed++
		}
	}
	n := len(r.conns)
	r.mu.Unlock()

	metrics.RegisteredUsers.Set(float64(n))
	return removed
}

// Connected reports whether userID currently has a registered connection.
func (r *Router) Connected(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[userID]
	return ok
}

// Len returns the number of registered users.
func (r *Router) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
