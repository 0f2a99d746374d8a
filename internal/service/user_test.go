package service

import (
	"context"
	"testing"
	"time"

	serrors "github.com/avelichko/storefront/internal/errors"
	"github.com/avelichko/storefront/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_UserService_FindByID(t *testing.T) {
	mockID, _ := uuid.Parse("123e4567-e89b-12d3-a456-426614174000")
	createdAt := time.Now()
	testCases := []struct {
		name        string
		mockStore   *mockUserStore
		expected    *UserDto
		expectError error
	}{
		{
			name: "Success - user found",
			mockStore: &mockUserStore{
				user: &store.User{ID: mockID, Name: "Alice", Email: "alice@example.com", BirthDate: birthDate(1990, time.January, 1), Version: 1, CreatedAt: createdAt},
			},
			expected: &UserDto{
				ID:        mockID,
				Name:      "Alice",
				Email:     "alice@example.com",
				BirthDate: "1990-01-01",
				Version:   1,
				CreatedAt: createdAt.Format(time.RFC3339),
			},
		},
		{
			name:        "Error - user not found",
			mockStore:   &mockUserStore{err: serrors.ErrUserNotFound},
			expectError: serrors.ErrUserNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			service := NewUserService(tc.mockStore)
			// when
			found, err := service.FindByID(context.Background(), mockID)
			// then
			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
				assert.Nil(t, found)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, found)
		})
	}
}

func Test_UserService_Create(t *testing.T) {
	mockID, _ := uuid.Parse("123e4567-e89b-12d3-a456-426614174000")
	createdAt := time.Now()
	testCases := []struct {
		name            string
		mockStore       *mockUserStore
		user            UserCreateDto
		expected        *UserDto
		expectError     error
		expectStoreCall bool
	}{
		{
			name: "Success - birth date parsed to store params",
			mockStore: &mockUserStore{
				user: &store.User{ID: mockID, Name: "Alice", Email: "alice@example.com", BirthDate: birthDate(1990, time.January, 1), Version: 1, CreatedAt: createdAt},
			},
			user: UserCreateDto{Name: "Alice", Email: "alice@example.com", BirthDate: "1990-01-01"},
			expected: &UserDto{
				ID:        mockID,
				Name:      "Alice",
				Email:     "alice@example.com",
				BirthDate: "1990-01-01",
				Version:   1,
				CreatedAt: createdAt.Format(time.RFC3339),
			},
			expectStoreCall: true,
		},
		{
			name:      "Error - malformed birth date, store untouched",
			mockStore: &mockUserStore{},
			user:      UserCreateDto{Name: "Alice", Email: "alice@example.com", BirthDate: "01.01.1990"},
		},
		{
			name:            "Error - email already taken",
			mockStore:       &mockUserStore{err: serrors.ErrEmailTaken},
			user:            UserCreateDto{Name: "Alice", Email: "alice@example.com", BirthDate: "1990-01-01"},
			expectError:     serrors.ErrEmailTaken,
			expectStoreCall: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			service := NewUserService(tc.mockStore)
			// when
			created, err := service.Create(context.Background(), tc.user)
			// then
			if tc.expected == nil {
				require.Error(t, err)
				if tc.expectError != nil {
					assert.ErrorIs(t, err, tc.expectError)
				}
				assert.Nil(t, created)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.expected, created)
			}
			if tc.expectStoreCall {
				require.NotNil(t, tc.mockStore.createParams)
				assert.Equal(t, birthDate(1990, time.January, 1), tc.mockStore.createParams.BirthDate)
			} else {
				assert.Nil(t, tc.mockStore.createParams)
			}
		})
	}
}

func Test_UserService_Update(t *testing.T) {
	mockID, _ := uuid.Parse("123e4567-e89b-12d3-a456-426614174000")
	createdAt := time.Now()
	testCases := []struct {
		name        string
		mockStore   *mockUserStore
		user        UserUpdateDto
		expected    *UserDto
		expectError error
	}{
		{
			name: "Success - user updated",
			mockStore: &mockUserStore{
				user: &store.User{ID: mockID, Name: "Alice B.", Email: "alice@example.com", BirthDate: birthDate(1990, time.January, 1), Version: 2, CreatedAt: createdAt},
			},
			user: UserUpdateDto{ID: mockID, Name: "Alice B.", Email: "alice@example.com", BirthDate: "1990-01-01", Version: 1},
			expected: &UserDto{
				ID:        mockID,
				Name:      "Alice B.",
				Email:     "alice@example.com",
				BirthDate: "1990-01-01",
				Version:   2,
				CreatedAt: createdAt.Format(time.RFC3339),
			},
		},
		{
			name:        "Error - stale version",
			mockStore:   &mockUserStore{err: serrors.ErrOptimisticLock},
			user:        UserUpdateDto{ID: mockID, Name: "Alice", Email: "alice@example.com", BirthDate: "1990-01-01", Version: 1},
			expectError: serrors.ErrOptimisticLock,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			service := NewUserService(tc.mockStore)
			// when
			updated, err := service.Update(context.Background(), tc.user)
			// then
			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
				assert.Nil(t, updated)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, updated)
		})
	}
}

func Test_UserService_DeleteByID(t *testing.T) {
	// given
	service := NewUserService(&mockUserStore{err: serrors.ErrUserNotFound})
	// when
	err := service.DeleteByID(context.Background(), uuid.New(), 1)
	// then
	assert.ErrorIs(t, err, serrors.ErrUserNotFound)
}
