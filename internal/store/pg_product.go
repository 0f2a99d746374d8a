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

// PgProductStore implements ProductStore using PostgreSQL as the data store.
type PgProductStore struct {
	db *pgxpool.Pool
}

// NewPgProductStore creates a new instance of ProductStore using a PostgreSQL connection pool.
func NewPgProductStore(dbp *pgxpool.Pool) *PgProductStore {
	return &PgProductStore{db: dbp}
}

const productColumns = "id, name, description, price, discount, minimum_age, version, created_at, updated_at"

func scanProduct(row pgx.Row) (*Product, error) {
	var pr Product
	err := row.Scan(&pr.ID, &pr.Name, &pr.Description, &pr.Price, &pr.Discount, &pr.MinimumAge, &pr.Version, &pr.CreatedAt, &pr.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &pr, nil
}

// FindByID retrieves a product by its unique identifier.
// Returns ErrProductNotFound if no product exists with the given ID.
func (p *PgProductStore) FindByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	row := p.db.QueryRow(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = $1", id)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, serrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("%w: %v", serrors.ErrStoreUnavailable, err)
	}
	return product, nil
}

// FindAll returns catalog products ordered by creation time.
func (p *PgProductStore) FindAll(ctx context.Context, offset, limit int32) ([]Product, error) {
	rows, err := p.db.Query(ctx,
		"SELECT "+productColumns+" FROM products ORDER BY created_at OFFSET $1 LIMIT $2", offset, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", serrors.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	products, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Product])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", serrors.ErrStoreUnavailable, err)
	}
	return products, nil
}

// Create adds a new product to the catalog.
func (p *PgProductStore) Create(ctx context.Context, params CreateProductParams) (*Product, error) {
	row := p.db.QueryRow(ctx,
		`INSERT INTO products (name, description, price, discount, minimum_age)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+productColumns,
		params.Name, params.Description, params.Price, params.Discount, params.MinimumAge)
	product, err := scanProduct(row)
	if err != nil {
		return nil, serrors.ErrCreateProduct
	}
	return product, nil
}

// Update modifies an existing product's details.
// Returns ErrProductNotFound if no product exists with the given ID,
// or ErrOptimisticLock if the stored version does not match.
func (p *PgProductStore) Update(ctx context.Context, params UpdateProductParams) (*Product, error) {
	row := p.db.QueryRow(ctx,
		`UPDATE products
		 SET name = $1, description = $2, price = $3, discount = $4, minimum_age = $5,
		     version = version + 1, updated_at = now()
		 WHERE id = $6 AND version = $7
		 RETURNING `+productColumns,
		params.Name, params.Description, params.Price, params.Discount, params.MinimumAge,
		params.ID, params.Version)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, p.notFoundOrStale(ctx, params.ID)
		}
		return nil, serrors.ErrUpdateProduct
	}
	return product, nil
}

// DeleteByID removes a product by its ID and version.
func (p *PgProductStore) DeleteByID(ctx context.Context, id uuid.UUID, version int32) error {
	tag, err := p.db.Exec(ctx, "DELETE FROM products WHERE id = $1 AND version = $2", id, version)
	if err != nil {
		return fmt.Errorf("%w: %v", serrors.ErrStoreUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return p.notFoundOrStale(ctx, id)
	}
	return nil
}

// notFoundOrStale distinguishes a missing row from an optimistic lock conflict.
func (p *PgProductStore) notFoundOrStale(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := p.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)", id).Scan(&exists); err != nil {
		return fmt.Errorf("%w: %v", serrors.ErrStoreUnavailable, err)
	}
	if exists {
		return serrors.ErrOptimisticLock
	}
	return serrors.ErrProductNotFound
}
