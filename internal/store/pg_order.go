package store

import (
	"context"
	"errors"
	"fmt"

	serrors "github.com/avelichko/storefront/internal/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgOrderStore implements OrderStore using PostgreSQL as the data store.
type PgOrderStore struct {
	db *pgxpool.Pool
}

// NewPgOrderStore creates a new instance of OrderStore using a PostgreSQL connection pool.
func NewPgOrderStore(dbp *pgxpool.Pool) *PgOrderStore {
	return &PgOrderStore{db: dbp}
}

const orderColumns = "id, user_id, total_amount, discounted_amount, status, version, created_at, updated_at"
const orderItemColumns = "id, order_id, product_id, quantity, created_at"

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.TotalAmount, &o.DiscountedAmount, &o.Status, &o.Version, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// FindByID retrieves an order and its line items.
// Returns ErrOrderNotFound if no order exists with the given ID.
func (p *PgOrderStore) FindByID(ctx context.Context, id uuid.UUID) (*Order, []OrderItem, error) {
	var order *Order
	var orderItems []OrderItem

	// Use transaction to ensure the order and its items come from one snapshot
	txErr := p.withTransaction(ctx, func(tx pgx.Tx) error {
		o, err := scanOrder(tx.QueryRow(ctx,
			"SELECT "+orderColumns+" FROM orders WHERE id = $1", id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return serrors.ErrOrderNotFound
			}
			return fmt.Errorf("%w: %v", serrors.ErrStoreUnavailable, err)
		}
		rows, err := tx.Query(ctx,
			"SELECT "+orderItemColumns+" FROM order_items WHERE order_id = $1 ORDER BY created_at", id)
		if err != nil {
			return fmt.Errorf("%w: %v", serrors.ErrStoreUnavailable, err)
		}
		items, err := pgx.CollectRows(rows, pgx.RowToStructByPos[OrderItem])
		if err != nil {
			return fmt.Errorf("%w: %v", serrors.ErrStoreUnavailable, err)
		}
		order = o
		orderItems = items
		return nil
	})

	if txErr != nil {
		return nil, nil, txErr
	}

	return order, orderItems, nil
}

// FindOrdersByUserID returns all orders placed by a specific user.
func (p *PgOrderStore) FindOrdersByUserID(ctx context.Context, userID uuid.UUID, offset, limit int32) ([]Order, error) {

	// No need for transaction here as we are making just one query to fetch orders
	rows, err := p.db.Query(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE user_id = $1 ORDER BY created_at DESC OFFSET $2 LIMIT $3",
		userID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", serrors.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	orders, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Order])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", serrors.ErrStoreUnavailable, err)
	}
	return orders, nil
}

// CreateOrder inserts the order and all line items in one transaction.
// The order row is created with status 'pending'; on any failure the
// transaction rolls back and nothing is visible to readers.
func (p *PgOrderStore) CreateOrder(ctx context.Context, params CreateOrderParams, items []CreateOrderItemParams) (*Order, []OrderItem, error) {
	var createdOrder *Order
	var createdItems []OrderItem

	txErr := p.withTransaction(ctx, func(tx pgx.Tx) error {
		order, err := scanOrder(tx.QueryRow(ctx,
			`INSERT INTO orders (user_id, total_amount, discounted_amount)
			 VALUES ($1, $2, $3)
			 RETURNING `+orderColumns,
			params.UserID, params.TotalAmount, params.DiscountedAmount))
		if err != nil {
			return serrors.ErrCreateOrder
		}
		orderItems := make([]OrderItem, 0, len(items))
		for _, item := range items {
			var oi OrderItem
			err := tx.QueryRow(ctx,
				`INSERT INTO order_items (order_id, product_id, quantity)
				 VALUES ($1, $2, $3)
				 RETURNING `+orderItemColumns,
				order.ID, item.ProductID, item.Quantity).
				Scan(&oi.ID, &oi.OrderID, &oi.ProductID, &oi.Quantity, &oi.CreatedAt)
			if err != nil {
				return serrors.ErrCreateOrderItem
			}
			orderItems = append(orderItems, oi)
		}
		createdOrder = order
		createdItems = orderItems
		return nil
	})

	if txErr != nil {
		return nil, nil, txErr
	}

	return createdOrder, createdItems, nil
}

// UpdateStatus changes an order's status under optimistic locking.
func (p *PgOrderStore) UpdateStatus(ctx context.Context, id uuid.UUID, status string, version int32) (*Order, error) {
	var order *Order

	txErr := p.withTransaction(ctx, func(tx pgx.Tx) error {
		o, err := scanOrder(tx.QueryRow(ctx,
			`UPDATE orders
			 SET status = $1, version = version + 1, updated_at = now()
			 WHERE id = $2 AND version = $3
			 RETURNING `+orderColumns,
			status, id, version))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// Check if the order exists, or it's an optimistic lock error.
				_, err = scanOrder(tx.QueryRow(ctx,
					"SELECT "+orderColumns+" FROM orders WHERE id = $1", id))
				if err != nil {
					if errors.Is(err, pgx.ErrNoRows) {
						return serrors.ErrOrderNotFound
					}
					return fmt.Errorf("%w: %v", serrors.ErrStoreUnavailable, err)
				}
				return serrors.ErrOptimisticLock
			}
			return serrors.ErrUpdateOrder
		}
		order = o
		return nil
	})

	if txErr != nil {
		return nil, txErr
	}

	return order, nil
}

func (p *PgOrderStore) withTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return serrors.ErrTransactionBegin
	}

	err = fn(tx)
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return serrors.ErrTransactionRollback
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return serrors.ErrTransactionCommit
	}

	return nil
}
