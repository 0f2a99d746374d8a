package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	serrors "github.com/avelichko/storefront/internal/errors"
	"github.com/avelichko/storefront/internal/service"
	"github.com/avelichko/storefront/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

type UserHandler struct {
	service  service.UserService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewUserHandler creates a new instance of UserHandler with the provided service.
func NewUserHandler(service service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes for users.
func (h *UserHandler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/users", func(r chi.Router) {
		r.Get("/", h.FindAll)
		r.Post("/", h.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.FindByID)
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)
		})
	})
}

// FindByID retrieves a user by its ID.
func (h *UserHandler) FindByID(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to find user by ID", "ID", id)
	found, err := h.service.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, serrors.ErrUserNotFound) {
			mLogger.WarnContext(r.Context(), "User not found", "ID", id)
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("User with ID %s not found", id))
			return
		}
		mLogger.ErrorContext(r.Context(), "Error retrieving user", "ID", id, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve user with ID %s", id))
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

// FindAll retrieves the list of registered users.
func (h *UserHandler) FindAll(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	limit, ok := web.ParseValidateGt(r, w, mLogger, "limit", 0)
	if !ok {
		return
	}
	offset, ok := web.ParseValidateGte(r, w, mLogger, "offset", 0)
	if !ok {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to find all users", "limit", limit, "offset", offset)
	list, err := h.service.FindAll(r.Context(), offset, limit)
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error retrieving user list", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to fetch users")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// Create handles the registration of a new user.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var userCreateDto service.UserCreateDto
	if err := json.NewDecoder(r.Body).Decode(&userCreateDto); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to create user", "email", userCreateDto.Email)
	if !validateStruct(h.validate, w, r, mLogger, userCreateDto) {
		return
	}

	newUser, err := h.service.Create(r.Context(), userCreateDto)
	if err != nil {
		if errors.Is(err, serrors.ErrEmailTaken) {
			mLogger.WarnContext(r.Context(), "Email already registered", "email", userCreateDto.Email)
			web.RespondError(w, mLogger, http.StatusConflict, err.Error())
			return
		}
		mLogger.ErrorContext(r.Context(), "Error creating user", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to create user")
		return
	}
	mLogger.InfoContext(r.Context(), "User created successfully", slog.String("ID", newUser.ID.String()))
	web.RespondJSON(w, mLogger, http.StatusCreated, newUser)
}

// Update modifies an existing user.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	var userUpdateDto service.UserUpdateDto
	if err := json.NewDecoder(r.Body).Decode(&userUpdateDto); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Set the ID in the user update DTO.
	userUpdateDto.ID = id

	if !validateStruct(h.validate, w, r, mLogger, userUpdateDto) {
		return
	}

	updated, err := h.service.Update(r.Context(), userUpdateDto)
	if err != nil {
		h.respondMutationError(w, r, mLogger, id.String(), err)
		return
	}
	mLogger.InfoContext(r.Context(), "User updated successfully", slog.String("ID", updated.ID.String()))
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

// Delete removes a user.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	version, ok := web.ParseValidateGte(r, w, mLogger, "version", 1)
	if !ok {
		return
	}

	if err := h.service.DeleteByID(r.Context(), id, version); err != nil {
		h.respondMutationError(w, r, mLogger, id.String(), err)
		return
	}
	mLogger.InfoContext(r.Context(), "User deleted successfully", slog.String("ID", id.String()))
	web.RespondJSON(w, mLogger, http.StatusNoContent, nil)
}

// respondMutationError maps update/delete errors to HTTP responses.
func (h *UserHandler) respondMutationError(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, id string, err error) {
	if errors.Is(err, serrors.ErrUserNotFound) {
		mLogger.WarnContext(r.Context(), "User not found", "ID", id)
		web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("User with ID %s not found", id))
		return
	} else if errors.Is(err, serrors.ErrOptimisticLock) {
		mLogger.WarnContext(r.Context(), "Optimistic lock error during user mutation", "ID", id)
		web.RespondError(w, mLogger, http.StatusConflict, fmt.Sprintf("User with ID %s has been modified by another request", id))
		return
	} else if errors.Is(err, serrors.ErrEmailTaken) {
		mLogger.WarnContext(r.Context(), "Email already registered", "ID", id)
		web.RespondError(w, mLogger, http.StatusConflict, err.Error())
		return
	}
	mLogger.ErrorContext(r.Context(), "Error mutating user", "ID", id, "error", err)
	web.RespondError(w, mLogger, http.StatusInternalServerError, fmt.Sprintf("Failed to update user with ID %s", id))
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *UserHandler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
