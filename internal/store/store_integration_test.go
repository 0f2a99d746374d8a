package store

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	serrors "github.com/avelichko/storefront/internal/errors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const skipIntegrationTests = "STOREFRONT_SKIP_INTEGRATION_TESTS"

// StoreSuite is a test suite for the Postgres store implementations.
type StoreSuite struct {
	suite.Suite
	pgContainer *postgres.PostgresContainer
	dbPool      *pgxpool.Pool
	users       UserStore
	products    ProductStore
	orders      OrderStore
	logger      *slog.Logger
	ctx         context.Context
}

// SetupSuite starts a PostgreSQL container and applies migrations.
func (s *StoreSuite) SetupSuite() {
	s.ctx = context.Background()
	var err error
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	dbName := "storefront_db"
	dbUser := "user"
	dbPassword := "password"

	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:17.5-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPassword),
		// Wait for a specific log message indicating the database service is ready.
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("5432/tcp"),
		),
	)
	require.NoError(s.T(), err, "Failed to run PostgreSQL container")

	connStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err, "Failed to get connection string from container")

	s.dbPool, err = pgxpool.New(s.ctx, connStr)
	require.NoError(s.T(), err, "Failed to create pgxpool")

	for i := range 10 {
		s.logger.Info("Pinging PostgreSQL database", "attempt", i+1)
		err = s.dbPool.Ping(s.ctx)
		if err == nil {
			break
		}
		time.Sleep(time.Second * 2)
	}
	require.NoError(s.T(), err, "Failed to connect to PostgreSQL after retries")

	wd, _ := os.Getwd()
	migrationsPath := filepath.Join(wd, "../../migrations")
	sourceURL := "file://" + migrationsPath
	m, err := migrate.New(sourceURL, connStr)
	require.NoError(s.T(), err, "Failed to create migrate instance")
	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		_, _ = m.Close()
		require.NoError(s.T(), err, "Failed to apply migrations")
	}
	s.logger.Info("Migrations applied for integration tests")

	s.users = NewPgUserStore(s.dbPool)
	s.products = NewPgProductStore(s.dbPool)
	s.orders = NewPgOrderStore(s.dbPool)
}

// TearDownSuite cleans up resources after all tests in the suite have run.
func (s *StoreSuite) TearDownSuite() {
	if s.dbPool != nil {
		s.dbPool.Close()
	}
	if s.pgContainer != nil {
		if err := s.pgContainer.Terminate(s.ctx); err != nil {
			s.logger.Warn("failed to terminate PostgreSQL container", "error", err)
		}
	}
}

// SetupTest truncates all tables before each test.
func (s *StoreSuite) SetupTest() {
	_, err := s.dbPool.Exec(s.ctx, "TRUNCATE TABLE users, products, orders RESTART IDENTITY CASCADE")
	require.NoError(s.T(), err, "Failed to truncate tables")
}

func TestStoreIntegration(t *testing.T) {
	if os.Getenv(skipIntegrationTests) == "1" {
		t.Skip("Skipping integration tests based on " + skipIntegrationTests + " env var")
	}
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) createTestUser(email string) *User {
	s.T().Helper()
	user, err := s.users.Create(s.ctx, CreateUserParams{
		Name:      "Alice",
		Email:     email,
		BirthDate: time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(s.T(), err, "createTestUser helper failed")
	return user
}

func (s *StoreSuite) createTestProduct(minimumAge *int32) *Product {
	s.T().Helper()
	product, err := s.products.Create(s.ctx, CreateProductParams{
		Name:        "Wine",
		Description: "Red, dry",
		Price:       100,
		Discount:    10,
		MinimumAge:  minimumAge,
	})
	require.NoError(s.T(), err, "createTestProduct helper failed")
	return product
}

func (s *StoreSuite) TestUserCreateAndFind() {
	s.SetupTest()
	// given
	created := s.createTestUser("alice@example.com")
	require.NotZero(s.T(), created.ID)
	require.Equal(s.T(), int32(1), created.Version, "Version should be 1 for newly created user")
	require.Equal(s.T(), "1990-01-01", created.BirthDate.Format("2006-01-02"))

	// when
	fetched, err := s.users.FindByID(s.ctx, created.ID)

	// then
	require.NoError(s.T(), err)
	require.Equal(s.T(), created.ID, fetched.ID)
	require.Equal(s.T(), created.Email, fetched.Email)
	require.Equal(s.T(), "1990-01-01", fetched.BirthDate.Format("2006-01-02"))
}

func (s *StoreSuite) TestUserFindByID_NotFound() {
	s.SetupTest()
	// when
	_, err := s.users.FindByID(s.ctx, uuid.New())
	// then
	require.ErrorIs(s.T(), err, serrors.ErrUserNotFound)
}

func (s *StoreSuite) TestUserCreate_DuplicateEmail() {
	s.SetupTest()
	// given
	s.createTestUser("alice@example.com")

	// when
	_, err := s.users.Create(s.ctx, CreateUserParams{
		Name:      "Another Alice",
		Email:     "alice@example.com",
		BirthDate: time.Date(1985, time.May, 5, 0, 0, 0, 0, time.UTC),
	})

	// then
	require.ErrorIs(s.T(), err, serrors.ErrEmailTaken)
}

func (s *StoreSuite) TestUserUpdate() {
	s.SetupTest()
	// given
	created := s.createTestUser("alice@example.com")

	// when
	updated, err := s.users.Update(s.ctx, UpdateUserParams{
		ID:        created.ID,
		Name:      "Alice B.",
		Email:     created.Email,
		BirthDate: created.BirthDate,
		Version:   created.Version,
	})

	// then
	require.NoError(s.T(), err)
	require.Equal(s.T(), "Alice B.", updated.Name)
	require.Equal(s.T(), int32(2), updated.Version, "Version should be bumped on update")
}

func (s *StoreSuite) TestUserUpdate_StaleVersion() {
	s.SetupTest()
	// given
	created := s.createTestUser("alice@example.com")

	// when
	_, err := s.users.Update(s.ctx, UpdateUserParams{
		ID:        created.ID,
		Name:      "Alice B.",
		Email:     created.Email,
		BirthDate: created.BirthDate,
		Version:   created.Version + 1,
	})

	// then
	require.ErrorIs(s.T(), err, serrors.ErrOptimisticLock)
}

func (s *StoreSuite) TestUserDelete() {
	s.SetupTest()
	// given
	created := s.createTestUser("alice@example.com")

	// when
	err := s.users.DeleteByID(s.ctx, created.ID, created.Version)

	// then
	require.NoError(s.T(), err)
	_, err = s.users.FindByID(s.ctx, created.ID)
	require.ErrorIs(s.T(), err, serrors.ErrUserNotFound)
}

func (s *StoreSuite) TestProductCreate_Restricted() {
	s.SetupTest()
	// given
	minimumAge := int32(21)

	// when
	created := s.createTestProduct(&minimumAge)

	// then
	require.NotZero(s.T(), created.ID)
	require.True(s.T(), created.Restricted())
	require.Equal(s.T(), int32(21), *created.MinimumAge)

	fetched, err := s.products.FindByID(s.ctx, created.ID)
	require.NoError(s.T(), err)
	require.True(s.T(), fetched.Restricted())
	require.Equal(s.T(), int32(21), *fetched.MinimumAge)
}

func (s *StoreSuite) TestProductCreate_Unrestricted() {
	s.SetupTest()
	// when
	created := s.createTestProduct(nil)

	// then
	require.False(s.T(), created.Restricted())

	fetched, err := s.products.FindByID(s.ctx, created.ID)
	require.NoError(s.T(), err)
	require.Nil(s.T(), fetched.MinimumAge)
}

func (s *StoreSuite) TestProductUpdate_RemoveRestriction() {
	s.SetupTest()
	// given
	minimumAge := int32(21)
	created := s.createTestProduct(&minimumAge)

	// when
	updated, err := s.products.Update(s.ctx, UpdateProductParams{
		ID:          created.ID,
		Name:        created.Name,
		Description: created.Description,
		Price:       created.Price,
		Discount:    created.Discount,
		MinimumAge:  nil,
		Version:     created.Version,
	})

	// then
	require.NoError(s.T(), err)
	require.False(s.T(), updated.Restricted())
	require.Equal(s.T(), int32(2), updated.Version)
}

func (s *StoreSuite) TestProductFindByID_NotFound() {
	s.SetupTest()
	// when
	_, err := s.products.FindByID(s.ctx, uuid.New())
	// then
	require.ErrorIs(s.T(), err, serrors.ErrProductNotFound)
}

func (s *StoreSuite) TestOrderCreate() {
	s.SetupTest()
	// given
	orderParams := CreateOrderParams{
		UserID:           uuid.New(),
		TotalAmount:      200,
		DiscountedAmount: 180,
	}
	itemParams := []CreateOrderItemParams{
		{ProductID: uuid.New(), Quantity: 2},
	}

	// when
	createdOrder, createdItems, err := s.orders.CreateOrder(s.ctx, orderParams, itemParams)

	// then
	require.NoError(s.T(), err)
	require.NotZero(s.T(), createdOrder.ID)
	require.Equal(s.T(), orderParams.UserID, createdOrder.UserID)
	require.Equal(s.T(), "pending", createdOrder.Status, "New orders always start as pending")
	require.Equal(s.T(), int64(200), createdOrder.TotalAmount)
	require.Equal(s.T(), int64(180), createdOrder.DiscountedAmount)
	require.Equal(s.T(), int32(1), createdOrder.Version)

	require.Len(s.T(), createdItems, 1)
	require.Equal(s.T(), itemParams[0].ProductID, createdItems[0].ProductID)
	require.Equal(s.T(), int32(2), createdItems[0].Quantity)
}

func (s *StoreSuite) TestOrderCreate_RollbackOnBadItem() {
	s.SetupTest()
	// given an item that violates the quantity check
	orderParams := CreateOrderParams{
		UserID:      uuid.New(),
		TotalAmount: 100,
	}
	itemParams := []CreateOrderItemParams{
		{ProductID: uuid.New(), Quantity: 1},
		{ProductID: uuid.New(), Quantity: 0},
	}

	// when
	_, _, err := s.orders.CreateOrder(s.ctx, orderParams, itemParams)

	// then the whole write is rolled back
	require.Error(s.T(), err)
	var orderCount int
	require.NoError(s.T(), s.dbPool.QueryRow(s.ctx, "SELECT count(*) FROM orders").Scan(&orderCount))
	require.Zero(s.T(), orderCount, "No order row should survive a failed item insert")
	var itemCount int
	require.NoError(s.T(), s.dbPool.QueryRow(s.ctx, "SELECT count(*) FROM order_items").Scan(&itemCount))
	require.Zero(s.T(), itemCount, "No item rows should survive a failed item insert")
}

func (s *StoreSuite) TestOrderFindByID() {
	s.SetupTest()
	// given
	createdOrder, createdItems, err := s.orders.CreateOrder(s.ctx,
		CreateOrderParams{UserID: uuid.New(), TotalAmount: 100},
		[]CreateOrderItemParams{{ProductID: uuid.New(), Quantity: 1}},
	)
	require.NoError(s.T(), err)

	// when
	fetchedOrder, fetchedItems, err := s.orders.FindByID(s.ctx, createdOrder.ID)

	// then
	require.NoError(s.T(), err)
	require.Equal(s.T(), createdOrder.ID, fetchedOrder.ID)
	require.Equal(s.T(), createdOrder.UserID, fetchedOrder.UserID)
	require.Equal(s.T(), createdOrder.Status, fetchedOrder.Status)
	require.WithinDuration(s.T(), createdOrder.CreatedAt, fetchedOrder.CreatedAt, time.Second)

	require.Len(s.T(), fetchedItems, 1)
	require.Equal(s.T(), createdItems[0].ID, fetchedItems[0].ID)
	require.Equal(s.T(), createdItems[0].ProductID, fetchedItems[0].ProductID)
}

func (s *StoreSuite) TestOrderFindByID_NotFound() {
	s.SetupTest()
	// when
	_, _, err := s.orders.FindByID(s.ctx, uuid.New())
	// then
	require.ErrorIs(s.T(), err, serrors.ErrOrderNotFound)
}

func (s *StoreSuite) TestOrderList() {
	s.SetupTest()
	// given
	userID := uuid.New()
	for range 2 {
		_, _, err := s.orders.CreateOrder(s.ctx,
			CreateOrderParams{UserID: userID, TotalAmount: 100},
			[]CreateOrderItemParams{{ProductID: uuid.New(), Quantity: 1}},
		)
		require.NoError(s.T(), err)
	}

	// when
	all, err := s.orders.FindOrdersByUserID(s.ctx, userID, 0, 10)
	require.NoError(s.T(), err)
	one, err := s.orders.FindOrdersByUserID(s.ctx, userID, 0, 1)
	require.NoError(s.T(), err)
	none, err := s.orders.FindOrdersByUserID(s.ctx, uuid.New(), 0, 10)
	require.NoError(s.T(), err)

	// then
	require.Len(s.T(), all, 2)
	require.Len(s.T(), one, 1)
	require.Len(s.T(), none, 0)
}

func (s *StoreSuite) TestOrderUpdateStatus() {
	s.SetupTest()
	// given
	createdOrder, _, err := s.orders.CreateOrder(s.ctx,
		CreateOrderParams{UserID: uuid.New(), TotalAmount: 100},
		[]CreateOrderItemParams{{ProductID: uuid.New(), Quantity: 1}},
	)
	require.NoError(s.T(), err)

	// when
	updated, err := s.orders.UpdateStatus(s.ctx, createdOrder.ID, "confirmed", createdOrder.Version)

	// then
	require.NoError(s.T(), err)
	require.Equal(s.T(), "confirmed", updated.Status)
	require.Equal(s.T(), int32(2), updated.Version)
}

func (s *StoreSuite) TestOrderUpdateStatus_StaleVersion() {
	s.SetupTest()
	// given
	createdOrder, _, err := s.orders.CreateOrder(s.ctx,
		CreateOrderParams{UserID: uuid.New(), TotalAmount: 100},
		[]CreateOrderItemParams{{ProductID: uuid.New(), Quantity: 1}},
	)
	require.NoError(s.T(), err)

	// when
	_, err = s.orders.UpdateStatus(s.ctx, createdOrder.ID, "confirmed", createdOrder.Version+1)

	// then
	require.ErrorIs(s.T(), err, serrors.ErrOptimisticLock)
}

func (s *StoreSuite) TestOrderUpdateStatus_NotFound() {
	s.SetupTest()
	// when
	_, err := s.orders.UpdateStatus(s.ctx, uuid.New(), "confirmed", 1)
	// then
	require.ErrorIs(s.T(), err, serrors.ErrOrderNotFound)
}
