package service

import (
	"context"
	"fmt"
	"time"

	serrors "github.com/avelichko/storefront/internal/errors"
	"github.com/avelichko/storefront/internal/store"
)

// Clock supplies the current time. Injected so tests can pin the date
// instead of depending on the wall clock.
type Clock func() time.Time

// Validator runs the pre-persistence checks for a candidate order: the buyer
// must exist, every line item must reference an existing product, and the
// buyer must meet each restricted product's minimum age.
//
// Validation is read-only and fail-fast: items are checked in sequence order
// and the first failing item aborts the whole order.
type Validator struct {
	users    store.UserStore
	products store.ProductStore
	now      Clock
}

// NewValidator creates a Validator. A nil clock defaults to time.Now.
func NewValidator(users store.UserStore, products store.ProductStore, now Clock) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{
		users:    users,
		products: products,
		now:      now,
	}
}

// Validate checks the candidate order against the catalog.
// Returns ErrUserNotFound, ErrProductNotFound, ErrInvalidQuantity,
// ErrEmptyOrder, an UnderageError naming the offending product, or an
// ErrStoreUnavailable-wrapped error when a lookup itself fails.
func (v *Validator) Validate(ctx context.Context, order OrderCreateDto) error {
	if len(order.Items) == 0 {
		return serrors.ErrEmptyOrder
	}

	user, err := v.users.FindByID(ctx, order.UserID)
	if err != nil {
		return err
	}

	// Age is whole calendar years: birth year subtracted from the current
	// year. Month and day are ignored, so a buyer counts as a full year
	// older from January 1st of their birthday year.
	age := int32(v.now().Year() - user.BirthDate.Year())

	for _, item := range order.Items {
		if item.Quantity < 1 {
			return fmt.Errorf("product %s: %w", item.ProductID, serrors.ErrInvalidQuantity)
		}
		product, err := v.products.FindByID(ctx, item.ProductID)
		if err != nil {
			return err
		}
		if product.Restricted() && age < *product.MinimumAge {
			return &serrors.UnderageError{ProductID: product.ID, MinimumAge: *product.MinimumAge}
		}
	}

	return nil
}
