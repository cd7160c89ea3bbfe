package controller

import (
	"ctchen222/car-dealership/internal/api/models"
	"ctchen222/car-dealership/internal/api/response"
	"ctchen222/car-dealership/internal/api/service"
	"ctchen222/car-dealership/internal/session"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// UserController serves the JSON API under /api.
type UserController struct {
	userService service.UserService
	sessions    *session.Manager
}

// NewUserController creates a new UserController.
func NewUserController(userService service.UserService, sessions *session.Manager) *UserController {
	return &UserController{
		userService: userService,
		sessions:    sessions,
	}
}

// Register handles the user registration endpoint.
func (uc *UserController) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := uc.userService.Register(c.Request.Context(), &req)
	var verr *service.ValidationError
	switch {
	case err == nil:
		response.SuccessResponse(c, http.StatusCreated, "Registration successful! Please log in.")
	case errors.As(err, &verr):
		response.ErrorResponse(c, http.StatusBadRequest, verr.Error())
	case errors.Is(err, service.ErrDuplicateUsername):
		response.ErrorResponse(c, http.StatusInternalServerError, "Username already exists")
	default:
		slog.ErrorContext(c.Request.Context(), "Registration failed", "error", err)
		response.ErrorResponse(c, http.StatusInternalServerError, "Registration failed")
	}
}

// Login handles the user login endpoint.
func (uc *UserController) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := uc.userService.Authenticate(c.Request.Context(), &req)
	var verr *service.ValidationError
	switch {
	case err == nil:
	case errors.As(err, &verr):
		response.ErrorResponse(c, http.StatusBadRequest, verr.Error())
		return
	case errors.Is(err, service.ErrInvalidCredentials):
		response.ErrorResponse(c, http.StatusUnauthorized, "Invalid username or password")
		return
	default:
		slog.ErrorContext(c.Request.Context(), "Login failed", "error", err)
		response.ErrorResponse(c, http.StatusInternalServerError, "Login failed")
		return
	}

	if err := uc.sessions.Login(c, user); err != nil {
		slog.ErrorContext(c.Request.Context(), "Failed to start session", "error", err)
		response.ErrorResponse(c, http.StatusInternalServerError, "Login failed")
		return
	}

	response.SuccessResponseContent(c, http.StatusOK, models.LoginResponse{
		Message: "Login successful",
		User:    &models.User{ID: user.ID, Username: user.Username},
	})
}

// Logout ends the caller's session.
func (uc *UserController) Logout(c *gin.Context) {
	if err := uc.sessions.Logout(c); err != nil {
		slog.ErrorContext(c.Request.Context(), "Logout failed", "error", err)
		response.ErrorResponse(c, http.StatusInternalServerError, "Logout failed")
		return
	}
	response.SuccessResponse(c, http.StatusOK, "Logout successful")
}

func (uc *UserController) Inventory(c *gin.Context) {
	response.SuccessResponse(c, http.StatusOK, "Here is the car inventory.")
}

func (uc *UserController) SavedCars(c *gin.Context) {
	response.SuccessResponse(c, http.StatusOK, "Here are your saved cars.")
}
