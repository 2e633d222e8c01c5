package handler

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// --- Request DTOs (HTTP boundary) ---

type createVehicleRequest struct {
	PlateNumber string `json:"plate_number"`
}

type issueLinkRequest struct {
	PhoneNumber string `json:"phone_number"`
}

// ----- Handler: GET /api/vehicles -----

func (handler *ValetHTTPHandler) handleListVehicles(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	// bound service call
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	vehicles, err := handler.svc.ListActiveVehicles(ctxWithTimeout)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	out := make([]vehicleView, 0, len(vehicles))
	for _, v := range vehicles {
		out = append(out, toVehicleView(v))
	}

	handler.jsonResponse(ctx, w, http.StatusOK, out)
}

// ----- Handler: POST /api/vehicles -----

func (handler *ValetHTTPHandler) handleCreateVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	var req createVehicleRequest
	if !handler.decodeJSONBody(ctx, w, r, &req) {
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	v, err := handler.svc.CreateVehicle(ctxWithTimeout, req.PlateNumber)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctx, w, http.StatusCreated, toVehicleView(v))
}

// ----- Handler: POST /api/vehicles/{vehicle_id}/link -----

func (handler *ValetHTTPHandler) handleIssueLink(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	vehicleID := strings.TrimSpace(r.PathValue("vehicle_id"))
	if vehicleID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "vehicle_id is required", nil)
		return
	}

	var req issueLinkRequest
	if !handler.decodeJSONBody(ctx, w, r, &req) {
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := handler.svc.IssueLink(ctxWithTimeout, vehicleID, req.PhoneNumber)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctx, w, http.StatusOK, result)
}

// ----- Handler: POST /api/vehicles/{vehicle_id}/delivered -----

func (handler *ValetHTTPHandler) handleMarkDelivered(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	vehicleID := strings.TrimSpace(r.PathValue("vehicle_id"))
	if vehicleID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "vehicle_id is required", nil)
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	v, err := handler.svc.MarkDelivered(ctxWithTimeout, vehicleID)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctx, w, http.StatusOK, toVehicleView(v))
}

// ----- Handler: GET /api/vehicles/code/{code} -----

// handleVehicleByCode backs the customer status page behind the pickup
// link. The access code in the path is the only credential, so the view is
// trimmed: no phone contact, no code echo.
func (handler *ValetHTTPHandler) handleVehicleByCode(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	code := strings.TrimSpace(r.PathValue("code"))
	if code == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "code is required", nil)
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	v, err := handler.svc.GetVehicleByToken(ctxWithTimeout, code)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	type customerView struct {
		PlateNumber string    `json:"plate_number"`
		Status      string    `json:"status"`
		CreatedAt   time.Time `json:"created_at"`
	}
	handler.jsonResponse(ctx, w, http.StatusOK, customerView{
		PlateNumber: v.PlateNumber,
		Status:      v.Status.String(),
		CreatedAt:   v.CreatedAt,
	})
}
