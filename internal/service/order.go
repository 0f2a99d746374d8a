// Package service provides the implementation of storefront business logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	serrors "github.com/avelichko/storefront/internal/errors"
	"github.com/avelichko/storefront/internal/store"
	"github.com/avelichko/storefront/pkg/messaging"
	"github.com/avelichko/storefront/pkg/messaging/events"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/google/uuid"
)

// Order statuses. New orders always start as pending; the remaining values
// are reachable only through UpdateStatus.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusShipped   = "shipped"
	StatusDelivered = "delivered"
	StatusCancelled = "cancelled"
)

var validStatuses = map[string]struct{}{
	StatusPending:   {},
	StatusConfirmed: {},
	StatusShipped:   {},
	StatusDelivered: {},
	StatusCancelled: {},
}

// OrderService defines the methods for managing orders.
// It abstracts the underlying business logic and data access.
type OrderService interface {
	// FindByID retrieves a single order by its unique identifier.
	// Returns ErrOrderNotFound if no order exists with the given ID.
	FindByID(ctx context.Context, userID uuid.UUID, id uuid.UUID) (*OrderDto, error)

	// FindOrdersByUserID returns all available orders for a specific user.
	// Returns an empty slice if no orders exist.
	FindOrdersByUserID(ctx context.Context, userID uuid.UUID, offset, limit int32) ([]OrderDto, error)

	// Create validates the candidate order and, only on full success,
	// persists it with status pending.
	Create(ctx context.Context, order OrderCreateDto) (*OrderDto, error)

	// UpdateStatus changes an existing order's status.
	// Returns ErrOrderNotFound if no order exists with the given ID and version.
	UpdateStatus(ctx context.Context, userID uuid.UUID, order OrderStatusUpdateDto) (*OrderDto, error)
}

// Service implements OrderService and provides methods to manage orders.
type Service struct {
	orderStore      store.OrderStore
	validator       *Validator
	publisher       messaging.Publisher
	logger          *slog.Logger
	ordersCounter   metric.Int64Counter
	rejectedCounter metric.Int64Counter
}

// NewService creates a new instance of OrderService with the provided stores and publisher.
func NewService(orderStore store.OrderStore, validator *Validator, publisher messaging.Publisher, logger *slog.Logger) *Service {
	meter := otel.Meter("storefront")
	ordersCounter, err := meter.Int64Counter("orders_created", metric.WithDescription("Total number of created orders"))
	if err != nil {
		panic(fmt.Sprintf("failed to create orders_created counter: %v", err))
	}
	rejectedCounter, err := meter.Int64Counter("orders_rejected", metric.WithDescription("Total number of orders rejected by validation"))
	if err != nil {
		panic(fmt.Sprintf("failed to create orders_rejected counter: %v", err))
	}
	return &Service{
		orderStore:      orderStore,
		validator:       validator,
		publisher:       publisher,
		logger:          logger.With("component", "order_service"),
		ordersCounter:   ordersCounter,
		rejectedCounter: rejectedCounter,
	}
}

// OrderDto represents the data transfer object for an order.
// Version is read-only and used for optimistic concurrency control.
type OrderDto struct {
	ID               uuid.UUID      `json:"id"`
	UserID           uuid.UUID      `json:"user_id"`
	Status           string         `json:"status"`
	TotalAmount      int64          `json:"total_amount"`
	DiscountedAmount int64          `json:"discounted_amount"`
	Version          int32          `json:"version"`
	CreatedAt        string         `json:"created_at"`
	Items            []OrderItemDto `json:"items,omitempty"`
}

type OrderItemDto struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int32     `json:"quantity"`
	CreatedAt string    `json:"created_at"`
}

// OrderCreateDto represents the data transfer object for creating a new order.
// Amounts are caller-supplied and persisted as-is; the service never recomputes them.
type OrderCreateDto struct {
	UserID           uuid.UUID            `json:"user_id" validate:"required"`
	TotalAmount      int64                `json:"total_amount"      validate:"min=0"`
	DiscountedAmount int64                `json:"discounted_amount" validate:"min=0"`
	Items            []OrderItemCreateDto `json:"items"             validate:"required,gt=0,dive"`
}

// OrderItemCreateDto represents the data transfer object for creating a new order item.
type OrderItemCreateDto struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int32     `json:"quantity"   validate:"required,min=1"`
}

// OrderStatusUpdateDto represents the data transfer object for updating an order's status.
type OrderStatusUpdateDto struct {
	ID      uuid.UUID `json:"id"      validate:"required"`
	Status  string    `json:"status"  validate:"required"`
	Version int32     `json:"version" validate:"required,min=1"`
}

// FindByID retrieves an order by its ID and returns it as an OrderDto.
// Returns ErrOrderNotFound if no order exists with the given ID.
func (s *Service) FindByID(ctx context.Context, userID uuid.UUID, id uuid.UUID) (*OrderDto, error) {
	order, items, err := s.orderStore.FindByID(ctx, id)
	if err != nil {
		return nil, err
	} else if order.UserID != userID {
		return nil, serrors.ErrAccessDenied
	}

	return toOrderDto(order, items), nil
}

// FindOrdersByUserID retrieves a list of all orders placed by the user.
func (s *Service) FindOrdersByUserID(ctx context.Context, userID uuid.UUID, offset, limit int32) ([]OrderDto, error) {
	orders, err := s.orderStore.FindOrdersByUserID(ctx, userID, offset, limit)
	if err != nil {
		return nil, err
	}
	orderDtos := make([]OrderDto, len(orders))
	for i := range orders {
		orderDtos[i] = *toOrderDto(&orders[i], nil)
	}

	return orderDtos, nil
}

// Create runs the validation pipeline and persists the order only on full
// success. The write is transactional: a rejected order leaves no trace.
func (s *Service) Create(ctx context.Context, order OrderCreateDto) (*OrderDto, error) {
	if err := s.validator.Validate(ctx, order); err != nil {
		s.logger.WarnContext(ctx, "Order rejected by validation", "user_id", order.UserID, "error", err)
		s.rejectedCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", rejectionReason(err))))
		return nil, err
	}

	orderParams := store.CreateOrderParams{
		UserID:           order.UserID,
		TotalAmount:      order.TotalAmount,
		DiscountedAmount: order.DiscountedAmount,
	}
	items := make([]store.CreateOrderItemParams, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, store.CreateOrderItemParams{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	createdOrder, createdItems, err := s.orderStore.CreateOrder(ctx, orderParams, items)
	if err != nil {
		return nil, err
	}
	s.ordersCounter.Add(ctx, 1)

	event := events.OrderCreatedEvent{
		OrderID:          createdOrder.ID,
		UserID:           createdOrder.UserID,
		TotalAmount:      createdOrder.TotalAmount,
		DiscountedAmount: createdOrder.DiscountedAmount,
		CreatedAt:        createdOrder.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		// The order is already committed; a lost event must not fail the request.
		s.logger.ErrorContext(ctx, "Failed to publish OrderCreatedEvent", "order_id", createdOrder.ID, "error", err)
	}

	return toOrderDto(createdOrder, createdItems), nil
}

// UpdateStatus changes an existing order's status under optimistic locking.
func (s *Service) UpdateStatus(ctx context.Context, userID uuid.UUID, order OrderStatusUpdateDto) (*OrderDto, error) {
	if _, ok := validStatuses[order.Status]; !ok {
		return nil, fmt.Errorf("%w: %s", serrors.ErrInvalidStatus, order.Status)
	}

	current, _, err := s.orderStore.FindByID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if current.UserID != userID {
		return nil, serrors.ErrAccessDenied
	}

	updated, err := s.orderStore.UpdateStatus(ctx, order.ID, order.Status, order.Version)
	if err != nil {
		return nil, err
	}

	return toOrderDto(updated, nil), nil
}

// rejectionReason maps a validation error to a low-cardinality metric label.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, serrors.ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, serrors.ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, serrors.ErrUnderage):
		return "underage"
	case errors.Is(err, serrors.ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, serrors.ErrEmptyOrder):
		return "empty_order"
	case errors.Is(err, serrors.ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "other"
	}
}

// toOrderDto converts a store.Order with its items to an OrderDto.
func toOrderDto(order *store.Order, items []store.OrderItem) *OrderDto {
	dto := &OrderDto{
		ID:               order.ID,
		UserID:           order.UserID,
		Status:           order.Status,
		TotalAmount:      order.TotalAmount,
		DiscountedAmount: order.DiscountedAmount,
		Version:          order.Version,
		CreatedAt:        order.CreatedAt.Format(time.RFC3339),
	}
	for _, item := range items {
		dto.Items = append(dto.Items, OrderItemDto{
			ID:        item.ID,
			OrderID:   item.OrderID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			CreatedAt: item.CreatedAt.Format(time.RFC3339),
		})
	}
	return dto
}
