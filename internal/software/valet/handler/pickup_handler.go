package handler

import (
	"context"
	"net/http"
	"strings"
	"time"
)

type pickupByPlateRequest struct {
	PlateNumber string `json:"plate_number"`
}

type pickupResponse struct {
	Message     string `json:"message"`
	PlateNumber string `json:"plate_number"`
	Status      string `json:"status"`
}

// ----- Handler: POST /api/pickup/{code} -----

func (handler *ValetHTTPHandler) handlePickupByCode(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	code := strings.TrimSpace(r.PathValue("code"))
	if code == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "code is required", nil)
		return
	}

	handler.processPickup(ctx, w, code)
}

// ----- Handler: POST /api/pickup -----

// handlePickupByPlate serves the kiosk flow where a customer without a link
// types their plate number.
func (handler *ValetHTTPHandler) handlePickupByPlate(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	var req pickupByPlateRequest
	if !handler.decodeJSONBody(ctx, w, r, &req) {
		return
	}

	if strings.TrimSpace(req.PlateNumber) == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "plate_number is required", nil)
		return
	}

	handler.processPickup(ctx, w, req.PlateNumber)
}

// processPickup runs the shared pickup path for both lookups.
func (handler *ValetHTTPHandler) processPickup(ctx context.Context, w http.ResponseWriter, codeOrPlate string) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	v, err := handler.svc.RequestPickup(ctxWithTimeout, codeOrPlate)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctx, w, http.StatusOK, pickupResponse{
		Message:     "Your vehicle request has been submitted successfully!",
		PlateNumber: v.PlateNumber,
		Status:      v.Status.String(),
	})
}
