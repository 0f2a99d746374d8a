// Package store provides interfaces and row types for catalog storage operations.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User is a catalog customer. BirthDate is the source for all age checks;
// age itself is derived, never stored.
type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	BirthDate time.Time `json:"birth_date"`
	Version   int32     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Product is a catalog item. MinimumAge is nil for unrestricted products;
// a non-nil value is the buyer's required minimum age in whole years.
type Product struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       int64     `json:"price"`
	Discount    int64     `json:"discount"`
	MinimumAge  *int32    `json:"minimum_age,omitempty"`
	Version     int32     `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Restricted reports whether the product carries an age restriction.
func (p *Product) Restricted() bool {
	return p.MinimumAge != nil
}

type Order struct {
	ID               uuid.UUID `json:"id"`
	UserID           uuid.UUID `json:"user_id"`
	TotalAmount      int64     `json:"total_amount"`
	DiscountedAmount int64     `json:"discounted_amount"`
	Status           string    `json:"status"`
	Version          int32     `json:"version"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type OrderItem struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int32     `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateUserParams struct {
	Name      string
	Email     string
	BirthDate time.Time
}

type UpdateUserParams struct {
	ID        uuid.UUID
	Name      string
	Email     string
	BirthDate time.Time
	Version   int32
}

type CreateProductParams struct {
	Name        string
	Description string
	Price       int64
	Discount    int64
	MinimumAge  *int32
}

type UpdateProductParams struct {
	ID          uuid.UUID
	Name        string
	Description string
	Price       int64
	Discount    int64
	MinimumAge  *int32
	Version     int32
}

type CreateOrderParams struct {
	UserID           uuid.UUID
	TotalAmount      int64
	DiscountedAmount int64
}

type CreateOrderItemParams struct {
	ProductID uuid.UUID
	Quantity  int32
}

// UserStore is an interface for user storage operations.
// It abstracts the underlying data store, allowing for different implementations (e.g., in-memory, database).
type UserStore interface {
	// FindByID retrieves a single user by its unique identifier.
	// Returns ErrUserNotFound if no user exists with the given ID.
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)

	// FindAll returns all registered users.
	// Returns an empty slice if no users exist.
	FindAll(ctx context.Context, offset, limit int32) ([]User, error)

	// Create adds a new user to the system.
	Create(ctx context.Context, params CreateUserParams) (*User, error)

	// Update modifies an existing user's details.
	// Returns ErrUserNotFound if no user exists with the given ID and version.
	Update(ctx context.Context, params UpdateUserParams) (*User, error)

	// DeleteByID removes a user by its ID.
	// Returns ErrUserNotFound if no user exists with the given ID.
	DeleteByID(ctx context.Context, id uuid.UUID, version int32) error
}

// ProductStore is an interface for product storage operations.
type ProductStore interface {
	// FindByID retrieves a single product by its unique identifier.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindAll returns all available products.
	// Returns an empty slice if no products exist.
	FindAll(ctx context.Context, offset, limit int32) ([]Product, error)

	// Create adds a new product to the system.
	Create(ctx context.Context, params CreateProductParams) (*Product, error)

	// Update modifies an existing product's details.
	// Returns ErrProductNotFound if no product exists with the given ID and version.
	Update(ctx context.Context, params UpdateProductParams) (*Product, error)

	// DeleteByID removes a product by its ID.
	// Returns ErrProductNotFound if no product exists with the given ID.
	DeleteByID(ctx context.Context, id uuid.UUID, version int32) error
}

// OrderStore is an interface for order storage operations.
type OrderStore interface {
	// FindByID retrieves a single order with its line items.
	// Returns ErrOrderNotFound if no order exists with the given ID.
	FindByID(ctx context.Context, id uuid.UUID) (*Order, []OrderItem, error)

	// FindOrdersByUserID returns all orders placed by a specific user.
	// Returns an empty slice if no orders exist.
	FindOrdersByUserID(ctx context.Context, userID uuid.UUID, offset, limit int32) ([]Order, error)

	// CreateOrder inserts the order and all line items in one transaction.
	// The order is stored with status 'pending'. Nothing is written on error.
	CreateOrder(ctx context.Context, params CreateOrderParams, items []CreateOrderItemParams) (*Order, []OrderItem, error)

	// UpdateStatus changes an order's status.
	// Returns ErrOrderNotFound if no order exists with the given ID and version.
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, version int32) (*Order, error)
}
