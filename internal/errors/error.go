// Package errors provides custom error types for storefront operations.
package errors

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrUserNotFound = errors.New("user not found")
var ErrProductNotFound = errors.New("product not found")
var ErrOrderNotFound = errors.New("order not found")

// ErrUnderage is returned when the buyer does not meet a product's minimum age.
var ErrUnderage = errors.New("user is underage for this product")
var ErrInvalidQuantity = errors.New("line item quantity must be at least 1")
var ErrEmptyOrder = errors.New("order must contain at least one line item")

// ErrStoreUnavailable marks transient infrastructure failures during a lookup,
// as opposed to a definitive not-found answer.
var ErrStoreUnavailable = errors.New("store unavailable")

var ErrCreateOrder = errors.New("failed to create order")
var ErrCreateOrderItem = errors.New("failed to create order item")
var ErrUpdateOrder = errors.New("failed to update order")
var ErrOptimisticLock = errors.New("optimistic lock error: the record has been modified by another transaction")
var ErrInvalidStatus = errors.New("invalid order status")

var ErrCreateUser = errors.New("failed to create user")
var ErrUpdateUser = errors.New("failed to update user")
var ErrEmailTaken = errors.New("email is already registered")
var ErrCreateProduct = errors.New("failed to create product")
var ErrUpdateProduct = errors.New("failed to update product")

var ErrAccessDenied = errors.New("access denied")

var ErrTransactionBegin = errors.New("failed to begin transaction")
var ErrTransactionCommit = errors.New("failed to commit transaction")
var ErrTransactionRollback = errors.New("failed to rollback transaction")

// UnderageError carries the offending product so callers can report which
// line item failed the age check.
type UnderageError struct {
	ProductID  uuid.UUID
	MinimumAge int32
}

func (e *UnderageError) Error() string {
	return fmt.Sprintf("%v: product %s requires minimum age %d", ErrUnderage, e.ProductID, e.MinimumAge)
}

func (e *UnderageError) Unwrap() error {
	return ErrUnderage
}
