package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"smart-valet/internal/domain/user"
	"smart-valet/internal/domain/vehicle"
	"smart-valet/internal/general/jwt"
	"smart-valet/internal/general/logger"
	"smart-valet/internal/general/websocket"
	"smart-valet/internal/notify"
	"smart-valet/internal/ports"

	"github.com/jackc/pgx/v5/pgconn"
)

// ValetHTTPHandler adapts HTTP requests to the ValetService.
type ValetHTTPHandler struct {
	svc       ports.ValetService
	logger    *logger.Logger
	auth      *jwt.Manager
	board     *websocket.Board
	registry  *notify.Registry
	staticDir string
}

// NewValetHTTPHandler wires an HTTP handler around the ValetService.
func NewValetHTTPHandler(
	svc ports.ValetService,
	logger *logger.Logger,
	auth *jwt.Manager,
	board *websocket.Board,
	registry *notify.Registry,
	staticDir string,
) *ValetHTTPHandler {
	return &ValetHTTPHandler{svc: svc, logger: logger, auth: auth, board: board, registry: registry, staticDir: staticDir}
}

// RegisterRoutes mounts valet endpoints on the provided mux.
func (handler *ValetHTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	staffOnly := jwt.AuthMiddlewareFunc(handler.auth, user.RoleStaff, user.RoleAdmin)

	// staff API
	mux.HandleFunc("GET /api/vehicles", staffOnly(handler.handleListVehicles))
	mux.HandleFunc("POST /api/vehicles", staffOnly(handler.handleCreateVehicle))
	mux.HandleFunc("POST /api/vehicles/{vehicle_id}/link", staffOnly(handler.handleIssueLink))
	mux.HandleFunc("POST /api/vehicles/{vehicle_id}/delivered", staffOnly(handler.handleMarkDelivered))

	// customer API (capability token in the URL is the only credential)
	mux.HandleFunc("GET /api/vehicles/code/{code}", handler.handleVehicleByCode)
	mux.HandleFunc("POST /api/pickup/{code}", handler.handlePickupByCode)
	mux.HandleFunc("POST /api/pickup", handler.handlePickupByPlate)

	// observers: board WebSocket authenticates inside the handler, the
	// SSE stream takes the token via header or query parameter
	mux.HandleFunc("GET /ws/board", handler.board.Connect)
	mux.HandleFunc("GET /api/events", handler.handleEvents)

	mux.HandleFunc("GET /api/health", handler.handleHealth)
	mux.HandleFunc("POST /api/tokens", handler.handleCreateToken)

	// static dashboard pages, when deployed alongside the binary
	if handler.staticDir != "" {
		if st, err := os.Stat(handler.staticDir); err == nil && st.IsDir() {
			mux.Handle("/", http.FileServer(http.Dir(handler.staticDir)))
		}
	}
}

// ----- shared DTOs -----

// vehicleView is the JSON shape of a vehicle on the staff API.
type vehicleView struct {
	ID           string    `json:"id"`
	PlateNumber  string    `json:"plate_number"`
	PhoneContact string    `json:"phone_contact,omitempty"`
	AccessToken  string    `json:"access_token,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toVehicleView(v *vehicle.Vehicle) vehicleView {
	return vehicleView{
		ID:           v.ID,
		PlateNumber:  v.PlateNumber,
		PhoneContact: v.PhoneContact,
		AccessToken:  v.AccessToken,
		Status:       v.Status.String(),
		CreatedAt:    v.CreatedAt,
		UpdatedAt:    v.UpdatedAt,
	}
}

// ----- dev token endpoint -----

type TokenRequest struct {
	UserID string    `json:"user_id"`
	Role   user.Role `json:"role"`
}

// TokenResponse represents the response for token generation
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
	Role      user.Role `json:"role"`
}

func (handler *ValetHTTPHandler) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	// Validate required fields
	if strings.TrimSpace(req.UserID) == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "user_id is required", nil)
		return
	}

	// Generate token
	tokenString, claims, err := handler.auth.IssueUserToken(req.UserID, req.Role)
	if err != nil {
		handler.httpError(ctx, w, http.StatusInternalServerError, "Failed to generate token", err)
		return
	}

	response := TokenResponse{
		Token:     tokenString,
		ExpiresAt: claims.ExpiresAt.Time,
		UserID:    req.UserID,
		Role:      req.Role,
	}

	handler.logger.Info(ctx, "token_generated", "JWT token generated successfully",
		map[string]any{"user_id": req.UserID, "role": req.Role.String()})

	handler.jsonResponse(ctx, w, http.StatusCreated, response)
}

// ----- general helpers -----

func (handler *ValetHTTPHandler) jsonResponse(ctx context.Context, w http.ResponseWriter, status int, data any) {
	// encode to buffer first so we can control status on failure
	var buf []byte
	var err error

	if data != nil {
		buf, err = json.Marshal(data)
		if err != nil {
			handler.logger.Error(ctx, "response_encode_failed", "Failed to encode response", err, nil)
			http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
			return
		}
	} else {
		buf = []byte("{}")
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

// httpError sends a JSON error response with a message.
func (handler *ValetHTTPHandler) httpError(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
	action := "request_failed"
	if status >= 500 {
		action = "http_internal_error"
	} else if status == http.StatusBadRequest {
		action = "validation_failed"
	} else if status == http.StatusUnsupportedMediaType {
		action = "unsupported_media_type"
	}
	handler.logger.Error(ctx, action, msg, err, nil)

	type errBody struct {
		Error string `json:"error"`
	}
	handler.jsonResponse(ctx, w, status, errBody{Error: msg})
}

// serviceError maps lifecycle errors onto HTTP statuses.
func (handler *ValetHTTPHandler) serviceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, vehicle.ErrNotFound):
		handler.httpError(ctx, w, http.StatusNotFound, "Vehicle not found", err)
	case errors.Is(err, vehicle.ErrInvalidTransition):
		handler.httpError(ctx, w, http.StatusConflict, "Operation not allowed in the vehicle's current state", err)
	case errors.Is(err, vehicle.ErrConcurrentModification):
		handler.httpError(ctx, w, http.StatusConflict, "Vehicle was modified concurrently, please retry", err)
	case errors.Is(err, vehicle.ErrEmptyPlate):
		handler.httpError(ctx, w, http.StatusBadRequest, "plate_number is required", err)
	default:
		// distinguish DB failures for the logs, same status either way
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			handler.httpError(ctx, w, http.StatusInternalServerError, "database error", err)
			return
		}
		handler.httpError(ctx, w, http.StatusInternalServerError, "internal error", err)
	}
}

// decodeJSONBody enforces content type, size limit, and strict field set.
func (handler *ValetHTTPHandler) decodeJSONBody(ctx context.Context, w http.ResponseWriter, r *http.Request, dst any) bool {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		handler.httpError(ctx, w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", nil)
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MiB
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			handler.httpError(ctx, w, http.StatusRequestEntityTooLarge, "Request body too large", err)
			return false
		}
		handler.httpError(ctx, w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}

	return true
}

// withReqID extracts or generates a request ID and adds it to the context.
func (handler *ValetHTTPHandler) withReqID(ctx context.Context, r *http.Request) context.Context {
	reqID := r.Header.Get("X-Request-ID")
	if strings.TrimSpace(reqID) == "" {
		reqID = randID()
	}
	return handler.logger.WithRequestID(ctx, reqID)
}

// randID generates a random 24-char hex string suitable for request IDs.
func randID() string {
	var b [12]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
