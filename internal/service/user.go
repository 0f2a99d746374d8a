package service

import (
	"context"
	"fmt"
	"time"

	"github.com/avelichko/storefront/internal/store"
	"github.com/google/uuid"
)

// birthDateLayout is the wire format for dates of birth.
const birthDateLayout = "2006-01-02"

// UserService defines the methods for managing catalog customers.
type UserService interface {
	// FindByID retrieves a single user by its unique identifier.
	// Returns ErrUserNotFound if no user exists with the given ID.
	FindByID(ctx context.Context, id uuid.UUID) (*UserDto, error)

	// FindAll returns all registered users.
	// Returns an empty slice if no users exist.
	FindAll(ctx context.Context, offset, limit int32) ([]UserDto, error)

	// Create adds a new user to the system.
	Create(ctx context.Context, user UserCreateDto) (*UserDto, error)

	// Update modifies an existing user's details.
	// Returns ErrUserNotFound if no user exists with the given ID and version.
	Update(ctx context.Context, user UserUpdateDto) (*UserDto, error)

	// DeleteByID removes a user by its ID.
	// Returns ErrUserNotFound if no user exists with the given ID.
	DeleteByID(ctx context.Context, id uuid.UUID, version int32) error
}

// Users implements UserService on top of a UserStore.
type Users struct {
	userStore store.UserStore
}

// NewUserService creates a new instance of UserService with the provided store.
func NewUserService(userStore store.UserStore) *Users {
	return &Users{userStore: userStore}
}

// UserDto represents the data transfer object for a user.
// Version is read-only and used for optimistic concurrency control.
type UserDto struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	BirthDate string    `json:"birth_date"`
	Version   int32     `json:"version"`
	CreatedAt string    `json:"created_at"`
}

// UserCreateDto represents the data transfer object for creating a new user.
type UserCreateDto struct {
	Name      string `json:"name"       validate:"required,max=100"`
	Email     string `json:"email"      validate:"required,email"`
	BirthDate string `json:"birth_date" validate:"required,datetime=2006-01-02"`
}

// UserUpdateDto represents the data transfer object for updating an existing user.
type UserUpdateDto struct {
	ID        uuid.UUID `json:"id"         validate:"required"`
	Name      string    `json:"name"       validate:"required,max=100"`
	Email     string    `json:"email"      validate:"required,email"`
	BirthDate string    `json:"birth_date" validate:"required,datetime=2006-01-02"`
	Version   int32     `json:"version"    validate:"required,min=1"`
}

// FindByID retrieves a user by its ID and returns it as a UserDto.
func (s *Users) FindByID(ctx context.Context, id uuid.UUID) (*UserDto, error) {
	user, err := s.userStore.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toUserDto(user), nil
}

// FindAll retrieves a list of all users and returns them as UserDtos.
func (s *Users) FindAll(ctx context.Context, offset, limit int32) ([]UserDto, error) {
	users, err := s.userStore.FindAll(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users: %w", err)
	}
	userDtos := make([]UserDto, len(users))
	for i := range users {
		userDtos[i] = *toUserDto(&users[i])
	}
	return userDtos, nil
}

// Create creates a new user and returns it as a UserDto.
func (s *Users) Create(ctx context.Context, user UserCreateDto) (*UserDto, error) {
	birthDate, err := time.Parse(birthDateLayout, user.BirthDate)
	if err != nil {
		return nil, fmt.Errorf("invalid birth date %q: %w", user.BirthDate, err)
	}
	created, err := s.userStore.Create(ctx, store.CreateUserParams{
		Name:      user.Name,
		Email:     user.Email,
		BirthDate: birthDate,
	})
	if err != nil {
		return nil, err
	}
	return toUserDto(created), nil
}

// Update modifies an existing user's details and returns the updated user as a UserDto.
func (s *Users) Update(ctx context.Context, user UserUpdateDto) (*UserDto, error) {
	birthDate, err := time.Parse(birthDateLayout, user.BirthDate)
	if err != nil {
		return nil, fmt.Errorf("invalid birth date %q: %w", user.BirthDate, err)
	}
	updated, err := s.userStore.Update(ctx, store.UpdateUserParams{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		BirthDate: birthDate,
		Version:   user.Version,
	})
	if err != nil {
		return nil, err
	}
	return toUserDto(updated), nil
}

// DeleteByID deletes a user by its ID.
func (s *Users) DeleteByID(ctx context.Context, id uuid.UUID, version int32) error {
	return s.userStore.DeleteByID(ctx, id, version)
}

// toUserDto converts a store.User to a UserDto.
func toUserDto(user *store.User) *UserDto {
	return &UserDto{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		BirthDate: user.BirthDate.Format(birthDateLayout),
		Version:   user.Version,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}
}
