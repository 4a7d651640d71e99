package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/taskfi/marketplace/internal/api/rest/middleware"
	"github.com/taskfi/marketplace/internal/domain"
	"github.com/taskfi/marketplace/internal/service/order"
)

// OrderPlacer executes validated gig orders.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, in order.PlaceOrderInput) (*order.Result, error)
}

// OrderHandler handles HTTP requests for gig orders
type OrderHandler struct {
	orders OrderPlacer
	logger *slog.Logger
}

// NewOrderHandler creates a new OrderHandler instance
func NewOrderHandler(orders OrderPlacer, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		orders: orders,
		logger: logger,
	}
}

// PlaceOrderRequest is the request payload for ordering a gig package. The
// package snapshot is the client's claim and is validated server-side.
type PlaceOrderRequest struct {
	PackageIndex *int           `json:"packageIndex"`
	PackageData  packagePayload `json:"packageData"`
}

type packagePayload struct {
	Name         string   `json:"name"`
	Price        float64  `json:"price"`
	DeliveryDays int      `json:"deliveryDays"`
	Features     []string `json:"features"`
}

// PlaceOrderResponse is the success payload for a placed order.
type PlaceOrderResponse struct {
	Success   bool          `json:"success"`
	OrderID   uuid.UUID     `json:"orderId"`
	PaymentID uuid.UUID     `json:"paymentId"`
	Message   string        `json:"message"`
	Order     order.Summary `json:"order"`
}

// PlaceOrder handles POST /gigs/{id}/order.
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	gigID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "invalid_input", "Gig ID must be a valid UUID")
		return
	}

	var req PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "invalid_input", "Invalid request body")
		return
	}

	if fields := validatePlaceOrder(req); len(fields) > 0 {
		WriteJSONResponse(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "order validation failed",
			Details: fields,
		})
		return
	}

	buyerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		WriteErrorResponse(w, http.StatusUnauthorized, "unauthorized", "User authentication is required")
		return
	}

	result, err := h.orders.PlaceOrder(r.Context(), order.PlaceOrderInput{
		BuyerID:      buyerID,
		GigID:        gigID,
		PackageIndex: *req.PackageIndex,
		Package: domain.Package{
			Name:         req.PackageData.Name,
			Price:        req.PackageData.Price,
			DeliveryDays: req.PackageData.DeliveryDays,
			Features:     req.PackageData.Features,
		},
	})
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}

	WriteJSONResponse(w, http.StatusOK, PlaceOrderResponse{
		Success:   true,
		OrderID:   result.OrderID,
		PaymentID: result.PaymentID,
		Message:   "Gig order created successfully",
		Order:     result.Order,
	})
}

func validatePlaceOrder(req PlaceOrderRequest) map[string]string {
	fields := make(map[string]string)

	if req.PackageIndex == nil {
		fields["packageIndex"] = "is required"
	} else if *req.PackageIndex < 0 || *req.PackageIndex > order.MaxPackageIndex {
		fields["packageIndex"] = "must be between 0 and 2"
	}
	if req.PackageData.Name == "" {
		fields["packageData.name"] = "is required"
	}
	if req.PackageData.Price < 1 {
		fields["packageData.price"] = "must be at least 1"
	}
	if req.PackageData.DeliveryDays < 1 {
		fields["packageData.deliveryDays"] = "must be at least 1"
	}

	return fields
}
