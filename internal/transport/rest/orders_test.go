package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	serrors "github.com/avelichko/storefront/internal/errors"
	"github.com/avelichko/storefront/internal/service"
	"github.com/avelichko/storefront/pkg/web"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// mockOrderService is a mock implementation of the OrderService interface
type mockOrderService struct {
	order  *service.OrderDto
	orders []service.OrderDto
	err    error
}

func (m *mockOrderService) FindByID(_ context.Context, _ uuid.UUID, _ uuid.UUID) (*service.OrderDto, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.order, nil
}

func (m *mockOrderService) FindOrdersByUserID(_ context.Context, _ uuid.UUID, _, _ int32) ([]service.OrderDto, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.orders, nil
}

func (m *mockOrderService) Create(_ context.Context, _ service.OrderCreateDto) (*service.OrderDto, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.order, nil
}

func (m *mockOrderService) UpdateStatus(_ context.Context, _ uuid.UUID, _ service.OrderStatusUpdateDto) (*service.OrderDto, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.order, nil
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// toJSON is a helper function to convert a struct to JSON string
func toJSON(t *testing.T, v interface{}) string {
	t.Helper()
	bytes, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal to JSON: %v", err)
	}
	return string(bytes)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func withUserID(req *http.Request, userID uuid.UUID) *http.Request {
	ctx := context.WithValue(req.Context(), web.UserIDKey, userID.String())
	return req.WithContext(ctx)
}

func Test_OrderAPI_FindByID(t *testing.T) {
	mockID, _ := uuid.Parse("123e4567-e89b-12d3-a456-426614174000")
	mockUserID, _ := uuid.Parse("123e4567-e89b-12d3-a456-426614174001")
	createdAt := time.Now().Format(time.RFC3339)
	testCases := []struct {
		name         string
		mockService  mockOrderService
		orderID      string
		userID       uuid.UUID
		expectedCode int
		expectedBody string
	}{
		{
			name: "Success - order found",
			mockService: mockOrderService{
				order: &service.OrderDto{ID: mockID, UserID: mockUserID, Status: "pending", TotalAmount: 100, DiscountedAmount: 90, Version: 1, CreatedAt: createdAt},
			},
			orderID:      mockID.String(),
			userID:       mockUserID,
			expectedCode: http.StatusOK,
			expectedBody: toJSON(t, service.OrderDto{ID: mockID, UserID: mockUserID, Status: "pending", TotalAmount: 100, DiscountedAmount: 90, Version: 1, CreatedAt: createdAt}),
		},
		{
			name:         "Error - order not found",
			mockService:  mockOrderService{err: serrors.ErrOrderNotFound},
			orderID:      mockID.String(),
			userID:       mockUserID,
			expectedCode: http.StatusNotFound,
			expectedBody: toJSON(t, ErrorResponse{Error: "Order with ID " + mockID.String() + " not found"}),
		},
		{
			name:         "Error - access denied",
			mockService:  mockOrderService{err: serrors.ErrAccessDenied},
			orderID:      mockID.String(),
			userID:       mockUserID,
			expectedCode: http.StatusForbidden,
			expectedBody: toJSON(t, ErrorResponse{Error: "Access denied to order with ID " + mockID.String()}),
		},
		{
			name:         "Error - invalid id",
			mockService:  mockOrderService{},
			orderID:      "123-invalid-id",
			userID:       mockUserID,
			expectedCode: http.StatusBadRequest,
			expectedBody: toJSON(t, ErrorResponse{Error: "Invalid ID: 123-invalid-id"}),
		},
		{
			name:         "Error - missing user ID",
			mockService:  mockOrderService{},
			orderID:      mockID.String(),
			userID:       uuid.Nil,
			expectedCode: http.StatusUnauthorized,
			expectedBody: toJSON(t, ErrorResponse{Error: "Unauthorized: Missing or invalid user ID"}),
		},
		{
			name:         "Error - service error",
			mockService:  mockOrderService{err: errors.New("boom")},
			orderID:      mockID.String(),
			userID:       mockUserID,
			expectedCode: http.StatusInternalServerError,
			expectedBody: toJSON(t, ErrorResponse{Error: "Failed to retrieve order with ID " + mockID.String()}),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			api := NewOrderHandler(&tc.mockService, testLogger())
			req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+tc.orderID, nil)
			if tc.userID != uuid.Nil {
				req = withUserID(req, tc.userID)
			}
			req.SetPathValue("id", tc.orderID)
			rr := httptest.NewRecorder()

			// when
			api.FindByID(rr, req)

			// then
			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.JSONEq(t, tc.expectedBody, rr.Body.String())
		})
	}
}

func Test_OrderAPI_FindOrdersByUserID(t *testing.T) {
	mockUserID, _ := uuid.Parse("123e4567-e89b-12d3-a456-426614174001")
	mockOrderID, _ := uuid.Parse("123e4567-e89b-12d3-a456-426614174002")
	createdAt := time.Now().Format(time.RFC3339)

	orders := []service.OrderDto{
		{ID: mockOrderID, UserID: mockUserID, Status: "pending", TotalAmount: 100, Version: 1, CreatedAt: createdAt},
	}

	testCases := []struct {
		name         string
		mockService  mockOrderService
		query        string
		expectedCode int
		expectedBody string
	}{
		{
			name:         "Success - orders found",
			mockService:  mockOrderService{orders: orders},
			query:        "?limit=10&offset=0",
			expectedCode: http.StatusOK,
			expectedBody: toJSON(t, orders),
		},
		{
			name:         "Success - no orders",
			mockService:  mockOrderService{orders: []service.OrderDto{}},
			query:        "?limit=10&offset=0",
			expectedCode: http.StatusOK,
			expectedBody: `[]`,
		},
		{
			name:         "Error - no limit provided",
			mockService:  mockOrderService{},
			query:        "?offset=0",
			expectedCode: http.StatusBadRequest,
			expectedBody: toJSON(t, ErrorResponse{Error: "limit url parameter is required"}),
		},
		{
			name:         "Error - invalid offset",
			mockService:  mockOrderService{},
			query:        "?limit=10&offset=-1",
			expectedCode: http.StatusBadRequest,
			expectedBody: toJSON(t, ErrorResponse{Error: "Invalid offset number: -1"}),
		},
		{
			name:         "Error - service error",
			mockService:  mockOrderService{err: serrors.ErrStoreUnavailable},
			query:        "?limit=10&offset=0",
			expectedCode: http.StatusInternalServerError,
			expectedBody: toJSON(t, ErrorResponse{Error: "Failed to fetch orders"}),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			api := NewOrderHandler(&tc.mockService, testLogger())
			req := withUserID(httptest.NewRequest(http.MethodGet, "/api/v1/orders"+tc.query, nil), mockUserID)
			rr := httptest.NewRecorder()

			// when
			api.FindOrdersByUserID(rr, req)

			// then
			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.JSONEq(t, tc.expectedBody, rr.Body.String())
		})
	}
}

func Test_OrderAPI_Create(t *testing.T) {
	mockID, _ := uuid.Parse("123e4567-e89b-12d3-a456-426614174000")
	mockUserID, _ := uuid.Parse("123e4567-e89b-12d3-a456-426614174001")
	wineID, _ := uuid.Parse("123e4567-e89b-12d3-a456-426614174002")
	createdAt := time.Now().Format(time.RFC3339)

	validBody := toJSON(t, service.OrderCreateDto{
		TotalAmount:      100,
		DiscountedAmount: 90,
		Items:            []service.OrderItemCreateDto{{ProductID: wineID, Quantity: 1}},
	})
	underageErr := &serrors.UnderageError{ProductID: wineID, MinimumAge: 21}

	testCases := []struct {
		name         string
		mockService  mockOrderService
		body         string
		expectedCode int
		expectedBody string
	}{
		{
			name: "Success - order created",
			mockService: mockOrderService{
				order: &service.OrderDto{ID: mockID, UserID: mockUserID, Status: "pending", TotalAmount: 100, DiscountedAmount: 90, Version: 1, CreatedAt: createdAt},
			},
			body:         validBody,
			expectedCode: http.StatusCreated,
			expectedBody: toJSON(t, service.OrderDto{ID: mockID, UserID: mockUserID, Status: "pending", TotalAmount: 100, DiscountedAmount: 90, Version: 1, CreatedAt: createdAt}),
		},
		{
			name:         "Error - underage buyer",
			mockService:  mockOrderService{err: underageErr},
			body:         validBody,
			expectedCode: http.StatusUnprocessableEntity,
			expectedBody: toJSON(t, ErrorResponse{Error: underageErr.Error()}),
		},
		{
			name:         "Error - unknown product",
			mockService:  mockOrderService{err: serrors.ErrProductNotFound},
			body:         validBody,
			expectedCode: http.StatusUnprocessableEntity,
			expectedBody: toJSON(t, ErrorResponse{Error: serrors.ErrProductNotFound.Error()}),
		},
		{
			name:         "Error - store unavailable",
			mockService:  mockOrderService{err: serrors.ErrStoreUnavailable},
			body:         validBody,
			expectedCode: http.StatusServiceUnavailable,
			expectedBody: toJSON(t, ErrorResponse{Error: "Service is temporarily unavailable"}),
		},
		{
			name:         "Error - malformed body",
			mockService:  mockOrderService{},
			body:         "{not json",
			expectedCode: http.StatusBadRequest,
			expectedBody: toJSON(t, ErrorResponse{Error: "Invalid request body"}),
		},
		{
			name:         "Error - missing items",
			mockService:  mockOrderService{},
			body:         `{"total_amount": 100}`,
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"validation_errors": {"Items": "failed on rule: required"}}`,
		},
		{
			name:         "Error - service error",
			mockService:  mockOrderService{err: errors.New("boom")},
			body:         validBody,
			expectedCode: http.StatusInternalServerError,
			expectedBody: toJSON(t, ErrorResponse{Error: "Failed to create order"}),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			api := NewOrderHandler(&tc.mockService, testLogger())
			req := withUserID(httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(tc.body)), mockUserID)
			rr := httptest.NewRecorder()

			// when
			api.Create(rr, req)

			// then
			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.JSONEq(t, tc.expectedBody, rr.Body.String())
		})
	}
}

func Test_OrderAPI_UpdateStatus(t *testing.T) {
	mockID, _ := uuid.Parse("123e4567-e89b-12d3-a456-426614174000")
	mockUserID, _ := uuid.Parse("123e4567-e89b-12d3-a456-426614174001")
	createdAt := time.Now().Format(time.RFC3339)

	validBody := `{"status": "confirmed", "version": 1}`

	testCases := []struct {
		name         string
		mockService  mockOrderService
		body         string
		expectedCode int
		expectedBody string
	}{
		{
			name: "Success - status updated",
			mockService: mockOrderService{
				order: &service.OrderDto{ID: mockID, UserID: mockUserID, Status: "confirmed", Version: 2, CreatedAt: createdAt},
			},
			body:         validBody,
			expectedCode: http.StatusOK,
			expectedBody: toJSON(t, service.OrderDto{ID: mockID, UserID: mockUserID, Status: "confirmed", Version: 2, CreatedAt: createdAt}),
		},
		{
			name:         "Error - order not found",
			mockService:  mockOrderService{err: serrors.ErrOrderNotFound},
			body:         validBody,
			expectedCode: http.StatusNotFound,
			expectedBody: toJSON(t, ErrorResponse{Error: "Order with ID " + mockID.String() + " not found"}),
		},
		{
			name:         "Error - stale version",
			mockService:  mockOrderService{err: serrors.ErrOptimisticLock},
			body:         validBody,
			expectedCode: http.StatusConflict,
			expectedBody: toJSON(t, ErrorResponse{Error: "Order with ID " + mockID.String() + " has been modified by another user"}),
		},
		{
			name:         "Error - access denied",
			mockService:  mockOrderService{err: serrors.ErrAccessDenied},
			body:         validBody,
			expectedCode: http.StatusForbidden,
			expectedBody: toJSON(t, ErrorResponse{Error: "Access denied to order with ID " + mockID.String()}),
		},
		{
			name:         "Error - unknown status",
			mockService:  mockOrderService{err: serrors.ErrInvalidStatus},
			body:         `{"status": "archived", "version": 1}`,
			expectedCode: http.StatusBadRequest,
			expectedBody: toJSON(t, ErrorResponse{Error: serrors.ErrInvalidStatus.Error()}),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			api := NewOrderHandler(&tc.mockService, testLogger())
			req := withUserID(httptest.NewRequest(http.MethodPut, "/api/v1/orders/"+mockID.String(), strings.NewReader(tc.body)), mockUserID)
			req.SetPathValue("id", mockID.String())
			rr := httptest.NewRecorder()

			// when
			api.UpdateStatus(rr, req)

			// then
			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.JSONEq(t, tc.expectedBody, rr.Body.String())
		})
	}
}
