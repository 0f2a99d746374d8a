// Package rest provides HTTP handlers for storefront operations.
package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	serrors "github.com/avelichko/storefront/internal/errors"
	"github.com/avelichko/storefront/internal/service"
	"github.com/avelichko/storefront/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

type OrderHandler struct {
	service  service.OrderService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewOrderHandler creates a new instance of OrderHandler with the provided service.
func NewOrderHandler(service service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes for orders.
func (h *OrderHandler) RegisterRoutes(r *chi.Mux) {
	r.Group(func(r chi.Router) {
		r.Use(web.AuthMiddleware)
		r.Route("/api/v1/orders", func(r chi.Router) {
			r.Get("/", h.FindOrdersByUserID)
			r.Post("/", h.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.FindByID)
				r.Put("/", h.UpdateStatus)
			})
		})
	})
	r.Get("/healthz", h.HealthCheck)
}

// FindByID retrieves an order by its ID.
func (h *OrderHandler) FindByID(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	// Parse the order ID from the request URL.
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}

	userID, ok := web.GetUserID(w, r, mLogger)
	if !ok {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to find order by ID", "ID", id)
	found, err := h.service.FindByID(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, serrors.ErrOrderNotFound) {
			mLogger.WarnContext(r.Context(), "Order not found", "ID", id)
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Order with ID %s not found", id))
			return
		} else if errors.Is(err, serrors.ErrAccessDenied) {
			mLogger.WarnContext(r.Context(), "Access denied to order", "ID", id, "UserID", userID)
			web.RespondError(w, mLogger, http.StatusForbidden, fmt.Sprintf("Access denied to order with ID %s", id))
			return
		}
		mLogger.ErrorContext(r.Context(), "Error retrieving order", "ID", id, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve order with ID %s", id))
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved order", slog.String("ID", found.ID.String()))
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

// FindOrdersByUserID retrieves the list of the caller's orders.
func (h *OrderHandler) FindOrdersByUserID(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	limit, ok := web.ParseValidateGt(r, w, mLogger, "limit", 0)
	if !ok {
		return
	}
	offset, ok := web.ParseValidateGte(r, w, mLogger, "offset", 0)
	if !ok {
		return
	}
	userID, ok := web.GetUserID(w, r, mLogger)
	if !ok {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to find all orders", "limit", limit, "offset", offset)
	list, err := h.service.FindOrdersByUserID(r.Context(), userID, offset, limit)
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error retrieving order list", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to fetch orders")
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved order list", "count", len(list))
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// Create handles the creation of a new order. The candidate order is
// validated against the catalog before anything is written; a rejected order
// is never persisted.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	userID, ok := web.GetUserID(w, r, mLogger)
	if !ok {
		return
	}
	var orderCreateDto service.OrderCreateDto
	if err := json.NewDecoder(r.Body).Decode(&orderCreateDto); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}
	// The buyer is always the authenticated caller.
	orderCreateDto.UserID = userID

	mLogger.DebugContext(r.Context(), "Received request to create order", "order", orderCreateDto)
	if !validateStruct(h.validate, w, r, mLogger, orderCreateDto) {
		return
	}

	newOrder, err := h.service.Create(r.Context(), orderCreateDto)
	if err != nil {
		h.respondCreateError(w, r, mLogger, err)
		return
	}
	mLogger.InfoContext(r.Context(), "Order created successfully", slog.String("ID", newOrder.ID.String()))
	web.RespondJSON(w, mLogger, http.StatusCreated, newOrder)
}

// respondCreateError maps validation pipeline errors to HTTP responses.
func (h *OrderHandler) respondCreateError(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, err error) {
	switch {
	case errors.Is(err, serrors.ErrUserNotFound),
		errors.Is(err, serrors.ErrProductNotFound),
		errors.Is(err, serrors.ErrUnderage),
		errors.Is(err, serrors.ErrInvalidQuantity),
		errors.Is(err, serrors.ErrEmptyOrder):
		mLogger.WarnContext(r.Context(), "Order rejected", "error", err)
		web.RespondError(w, mLogger, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, serrors.ErrStoreUnavailable):
		mLogger.ErrorContext(r.Context(), "Store unavailable during order validation", "error", err)
		web.RespondError(w, mLogger, http.StatusServiceUnavailable, "Service is temporarily unavailable")
	default:
		mLogger.ErrorContext(r.Context(), "Error creating order", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to create order")
	}
}

// UpdateStatus changes an order's status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	userID, ok := web.GetUserID(w, r, mLogger)
	if !ok {
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to update order status", "ID", id)
	var statusUpdateDto service.OrderStatusUpdateDto
	if err := json.NewDecoder(r.Body).Decode(&statusUpdateDto); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Set the ID in the status update DTO.
	statusUpdateDto.ID = id

	if !validateStruct(h.validate, w, r, mLogger, statusUpdateDto) {
		return
	}

	updated, err := h.service.UpdateStatus(r.Context(), userID, statusUpdateDto)
	if err != nil {
		if errors.Is(err, serrors.ErrOrderNotFound) {
			mLogger.WarnContext(r.Context(), "Order not found for update", "ID", id)
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Order with ID %s not found", id))
			return
		} else if errors.Is(err, serrors.ErrOptimisticLock) {
			mLogger.WarnContext(r.Context(), "Optimistic lock error during order update", "ID", id)
			web.RespondError(w, mLogger, http.StatusConflict, fmt.Sprintf("Order with ID %s has been modified by another user", id))
			return
		} else if errors.Is(err, serrors.ErrAccessDenied) {
			mLogger.WarnContext(r.Context(), "Access denied to order update", "ID", id, "UserID", userID)
			web.RespondError(w, mLogger, http.StatusForbidden, fmt.Sprintf("Access denied to order with ID %s", id))
			return
		} else if errors.Is(err, serrors.ErrInvalidStatus) {
			mLogger.WarnContext(r.Context(), "Invalid order status", "ID", id, "error", err)
			web.RespondError(w, mLogger, http.StatusBadRequest, err.Error())
			return
		}
		mLogger.ErrorContext(r.Context(), "Error updating order", "ID", id, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, fmt.Sprintf("Failed to update order with ID %s", id))
		return
	}
	mLogger.InfoContext(r.Context(), "Order updated successfully", slog.String("ID", updated.ID.String()))
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

// HealthCheck is a simple health check endpoint.
func (h *OrderHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// validateStruct runs struct validation and writes field-specific errors on failure.
func validateStruct(validate *validator.Validate, w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, v any) bool {
	if err := validate.Struct(v); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			// If the error is a validation error, we can extract field-specific errors.
			errorResponse := make(map[string]string)
			for _, fieldErr := range validationErrors {
				// fieldErr.Tag() returns "required", "max", etc.
				errorResponse[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
			}
			mLogger.WarnContext(r.Context(), "Validation errors occurred", "errors", errorResponse)
			web.RespondJSON(w, mLogger, http.StatusBadRequest, map[string]any{"validation_errors": errorResponse})
			return false
		}
		mLogger.ErrorContext(r.Context(), "Error validating request body", "error", err)
		// If it's not a validation error, we can return a generic error.
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *OrderHandler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
