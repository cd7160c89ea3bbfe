package controller

import (
	"ctchen222/car-dealership/internal/api/models"
	"ctchen222/car-dealership/internal/api/service"
	"ctchen222/car-dealership/internal/session"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// PageController serves the HTML site. Outcomes of form posts are shown
// as flash messages on the page the visitor is redirected to.
type PageController struct {
	userService service.UserService
	sessions    *session.Manager
}

func NewPageController(userService service.UserService, sessions *session.Manager) *PageController {
	return &PageController{
		userService: userService,
		sessions:    sessions,
	}
}

func (pc *PageController) Index(c *gin.Context) {
	if pc.sessions.IsAuthenticated(c) {
		c.Redirect(http.StatusFound, "/inventory")
		return
	}
	pc.render(c, http.StatusOK, "index.html", "Home", nil)
}

func (pc *PageController) RegisterPage(c *gin.Context) {
	pc.render(c, http.StatusOK, "register.html", "Register", nil)
}

func (pc *PageController) LoginPage(c *gin.Context) {
	pc.render(c, http.StatusOK, "login.html", "Log in", nil)
}

// Register handles the registration form.
func (pc *PageController) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		pc.redirectWithFlash(c, "/register", session.FlashError, "Registration failed. Please try again.")
		return
	}

	err := pc.userService.Register(c.Request.Context(), &req)
	var verr *service.ValidationError
	switch {
	case err == nil:
		pc.redirectWithFlash(c, "/login", session.FlashSuccess, "Registration successful! Please log in.")
	case errors.As(err, &verr):
		pc.redirectWithFlash(c, "/register", session.FlashError, verr.Error())
	case errors.Is(err, service.ErrDuplicateUsername):
		pc.redirectWithFlash(c, "/register", session.FlashError, "Username already exists")
	default:
		slog.ErrorContext(c.Request.Context(), "Registration failed", "error", err)
		pc.redirectWithFlash(c, "/register", session.FlashError, "Registration failed. Please try again.")
	}
}

// Login handles the login form.
func (pc *PageController) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		pc.redirectWithFlash(c, "/login", session.FlashError, "Invalid username or password")
		return
	}

	user, err := pc.userService.Authenticate(c.Request.Context(), &req)
	var verr *service.ValidationError
	switch {
	case err == nil:
	case errors.As(err, &verr):
		pc.redirectWithFlash(c, "/login", session.FlashError, verr.Error())
		return
	case errors.Is(err, service.ErrInvalidCredentials):
		pc.redirectWithFlash(c, "/login", session.FlashError, "Invalid username or password")
		return
	default:
		slog.ErrorContext(c.Request.Context(), "Login failed", "error", err)
		pc.redirectWithFlash(c, "/login", session.FlashError, "Login failed. Please try again.")
		return
	}

	if err := pc.sessions.Login(c, user); err != nil {
		slog.ErrorContext(c.Request.Context(), "Failed to start session", "error", err)
		pc.redirectWithFlash(c, "/login", session.FlashError, "Login failed. Please try again.")
		return
	}
	c.Redirect(http.StatusFound, "/inventory")
}

// Logout ends the session and says goodbye on the home page.
func (pc *PageController) Logout(c *gin.Context) {
	if err := pc.sessions.Logout(c); err != nil {
		slog.ErrorContext(c.Request.Context(), "Logout failed", "error", err)
		pc.render(c, http.StatusInternalServerError, "error.html", "Error", gin.H{"Message": "Logout failed. Please try again."})
		return
	}
	pc.redirectWithFlash(c, "/", session.FlashSuccess, "You have been logged out.")
}

func (pc *PageController) Inventory(c *gin.Context) {
	pc.render(c, http.StatusOK, "inventory.html", "Inventory", nil)
}

func (pc *PageController) SavedCars(c *gin.Context) {
	pc.render(c, http.StatusOK, "saved-cars.html", "Saved Cars", nil)
}

func (pc *PageController) Financing(c *gin.Context) {
	pc.render(c, http.StatusOK, "financing.html", "Financing", nil)
}

// ApplyFinancing acknowledges a financing application. Nothing is stored.
func (pc *PageController) ApplyFinancing(c *gin.Context) {
	var app models.FinancingApplication
	if err := c.ShouldBind(&app); err != nil {
		slog.WarnContext(c.Request.Context(), "Malformed financing form", "error", err)
	}
	pc.redirectWithFlash(c, "/financing", session.FlashSuccess, "Financing application submitted successfully!")
}

func (pc *PageController) redirectWithFlash(c *gin.Context, location string, kind session.FlashKind, text string) {
	if err := pc.sessions.AddFlash(c, kind, text); err != nil {
		slog.ErrorContext(c.Request.Context(), "Failed to store flash", "error", err)
	}
	c.Redirect(http.StatusFound, location)
}

func (pc *PageController) render(c *gin.Context, code int, page, title string, extra gin.H) {
	data := gin.H{
		"Title":   title,
		"Flashes": pc.sessions.Flashes(c),
	}
	if s := pc.sessions.Current(c); s.IsAuthenticated() {
		data["Authenticated"] = true
		data["Username"] = s.Username
	}
	for k, v := range extra {
		data[k] = v
	}
	c.HTML(code, page, data)
}
