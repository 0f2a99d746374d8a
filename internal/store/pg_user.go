package store

import (
	"context"
	"errors"
	"fmt"

	serrors "github.com/avelichko/storefront/internal/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgUserStore implements UserStore using PostgreSQL as the data store.
type PgUserStore struct {
	db *pgxpool.Pool
}

// NewPgUserStore creates a new instance of UserStore using a PostgreSQL connection pool.
func NewPgUserStore(dbp *pgxpool.Pool) *PgUserStore {
	return &PgUserStore{db: dbp}
}

const userColumns = "id, name, email, birth_date, version, created_at, updated_at"

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.BirthDate, &u.Version, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByID retrieves a user by its unique identifier.
// Returns ErrUserNotFound if no user exists with the given ID.
func (p *PgUserStore) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := p.db.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, serrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", serrors.ErrStoreUnavailable, err)
	}
	return user, nil
}

// FindAll returns registered users ordered by creation time.
func (p *PgUserStore) FindAll(ctx context.Context, offset, limit int32) ([]User, error) {
	rows, err := p.db.Query(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY created_at OFFSET $1 LIMIT $2", offset, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", serrors.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	users, err := pgx.CollectRows(rows, pgx.RowToStructByPos[User])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", serrors.ErrStoreUnavailable, err)
	}
	return users, nil
}

// Create adds a new user. Returns ErrEmailTaken on a duplicate email.
func (p *PgUserStore) Create(ctx context.Context, params CreateUserParams) (*User, error) {
	row := p.db.QueryRow(ctx,
		"INSERT INTO users (name, email, birth_date) VALUES ($1, $2, $3) RETURNING "+userColumns,
		params.Name, params.Email, params.BirthDate)
	user, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, serrors.ErrEmailTaken
		}
		return nil, serrors.ErrCreateUser
	}
	return user, nil
}

// Update modifies an existing user's details.
// Returns ErrUserNotFound if no user exists with the given ID,
// or ErrOptimisticLock if the stored version does not match.
func (p *PgUserStore) Update(ctx context.Context, params UpdateUserParams) (*User, error) {
	row := p.db.QueryRow(ctx,
		`UPDATE users
		 SET name = $1, email = $2, birth_date = $3, version = version + 1, updated_at = now()
		 WHERE id = $4 AND version = $5
		 RETURNING `+userColumns,
		params.Name, params.Email, params.BirthDate, params.ID, params.Version)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, p.notFoundOrStale(ctx, params.ID)
		}
		return nil, serrors.ErrUpdateUser
	}
	return user, nil
}

// DeleteByID removes a user by its ID and version.
func (p *PgUserStore) DeleteByID(ctx context.Context, id uuid.UUID, version int32) error {
	tag, err := p.db.Exec(ctx, "DELETE FROM users WHERE id = $1 AND version = $2", id, version)
	if err != nil {
		return fmt.Errorf("%w: %v", serrors.ErrStoreUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return p.notFoundOrStale(ctx, id)
	}
	return nil
}

// notFoundOrStale distinguishes a missing row from an optimistic lock conflict.
func (p *PgUserStore) notFoundOrStale(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := p.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)", id).Scan(&exists); err != nil {
		return fmt.Errorf("%w: %v", serrors.ErrStoreUnavailable, err)
	}
	if exists {
		return serrors.ErrOptimisticLock
	}
	return serrors.ErrUserNotFound
}

// isUniqueViolation reports whether the error is a PostgreSQL unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
