package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"smart-valet/internal/domain/user"
	"smart-valet/internal/general/jwt"
	"smart-valet/internal/notify"
)

const sseKeepAliveInterval = 25 * time.Second

// ----- Handler: GET /api/events -----

// handleEvents streams lifecycle events as server-sent events. Each
// connection registers a stream observer; the fan-out fills its buffer and
// this loop drains it into the response. The connection lives until the
// client goes away or a write fails.
func (handler *ValetHTTPHandler) handleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	// same auth as the board: header or query parameter
	raw, err := jwt.FromAuthorization(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	_, claims, err := handler.auth.ParseAndValidate(raw)
	if err != nil {
		http.Error(w, "authentication failed: invalid token", http.StatusUnauthorized)
		return
	}
	if err := jwt.RoleAllowed(claims, user.RoleStaff, user.RoleAdmin); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		handler.httpError(ctx, w, http.StatusInternalServerError, "streaming unsupported", nil)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	obs := notify.NewStreamObserver(32)
	id := handler.registry.Register(notify.TransportStream, obs)

	handler.logger.Info(ctx, "sse_connected", "Event stream connected",
		map[string]any{"observer_id": id, "subject": claims.Subject})

	defer func() {
		// the fan-out may have evicted the observer already; both calls
		// are idempotent
		handler.registry.Unregister(id)
		obs.Close()
		handler.logger.Info(ctx, "sse_disconnected", "Event stream disconnected",
			map[string]any{"observer_id": id})
	}()

	keepAlive := time.NewTicker(sseKeepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case <-keepAlive.C:
			// comment frame keeps proxies from timing the stream out
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()

		case ev, open := <-obs.Events():
			if !open {
				return
			}

			data, err := json.Marshal(ev)
			if err != nil {
				handler.logger.Error(ctx, "sse_encode_failed", "Failed to encode event", err, nil)
				continue
			}

			eventName := strings.ToLower(ev.Kind.String())
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventName, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
