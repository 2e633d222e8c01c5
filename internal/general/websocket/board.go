package websocket

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"smart-valet/internal/domain/notification"
	"smart-valet/internal/domain/user"
	"smart-valet/internal/general/contracts"
	"smart-valet/internal/general/jwt"
	"smart-valet/internal/general/logger"
	"smart-valet/internal/notify"

	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout   = 5 * time.Second
	wsCloseAckWindow = 2 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Board accepts staff dashboard WebSocket connections and registers each as
// a push observer. The notification fan-out does the actual writing; this
// handler only authenticates, registers, and watches for disconnect.
type Board struct {
	logger   *logger.Logger
	jwtMgr   *jwt.Manager
	registry *notify.Registry
	producer string
}

// NewBoard creates the staff board WebSocket handler.
func NewBoard(logger *logger.Logger, jwtMgr *jwt.Manager, registry *notify.Registry, producer string) *Board {
	return &Board{logger: logger, jwtMgr: jwtMgr, registry: registry, producer: producer}
}

// Connect handles GET /ws/board. The JWT travels in the Authorization
// header or query parameter because browsers cannot set headers on
// WebSocket dials.
func (board *Board) Connect(w http.ResponseWriter, r *http.Request) {
	raw, err := jwt.FromAuthorization(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	_, claims, err := board.jwtMgr.ParseAndValidate(raw)
	if err != nil {
		http.Error(w, "authentication failed: invalid token", http.StatusUnauthorized)
		return
	}

	if err := jwt.RoleAllowed(claims, user.RoleStaff, user.RoleAdmin); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		board.logger.Error(r.Context(), "websocket_upgrade_failed", "Failed to upgrade to WebSocket", err, nil)
		return
	}

	obs := newPushObserver(conn, board.producer)
	id := board.registry.Register(notify.TransportPush, obs)

	board.logger.Info(r.Context(), "ws_board_connected", "Staff board WebSocket connected",
		map[string]any{"observer_id": id, "subject": claims.Subject})

	// the board is push-only; the read loop exists to notice disconnects
	// and to answer client pings per the websocket protocol
	conn.SetReadLimit(1 << 16)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	// the fan-out may already have evicted this observer after a failed
	// write; Unregister and Close are both idempotent
	board.registry.Unregister(id)
	obs.Close()

	board.logger.Info(r.Context(), "ws_board_disconnected", "Staff board WebSocket disconnected",
		map[string]any{"observer_id": id})
}

// pushObserver adapts one gorilla connection to the Observer interface.
// gorilla allows a single concurrent writer, hence the write mutex.
type pushObserver struct {
	conn     *websocket.Conn
	producer string

	mu     sync.Mutex
	closed bool
}

func newPushObserver(conn *websocket.Conn, producer string) *pushObserver {
	return &pushObserver{conn: conn, producer: producer}
}

// Deliver writes the event as a single JSON text frame. Any write error
// means the socket is unusable, so it is reported as a dead observer.
func (obs *pushObserver) Deliver(ctx context.Context, ev notification.Event) error {
	obs.mu.Lock()
	defer obs.mu.Unlock()

	if obs.closed {
		return fmt.Errorf("board connection closed: %w", notify.ErrObserverDead)
	}

	_ = obs.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := obs.conn.WriteJSON(contracts.FromEvent(ev, obs.producer)); err != nil {
		return fmt.Errorf("board write failed: %v: %w", err, notify.ErrObserverDead)
	}

	return nil
}

// Close sends a close frame best-effort and tears the socket down.
func (obs *pushObserver) Close() {
	obs.mu.Lock()
	defer obs.mu.Unlock()

	if obs.closed {
		return
	}
	obs.closed = true

	_ = obs.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	_ = obs.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "server closing"),
		time.Now().Add(wsCloseAckWindow),
	)
	_ = obs.conn.Close()
}
