package server

import (
	"ctchen222/car-dealership/internal/api/controller"
	"ctchen222/car-dealership/internal/api/middleware"
	"ctchen222/car-dealership/internal/session"
	"ctchen222/car-dealership/internal/web"
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"
)

// Server owns the gin engine serving both the JSON API and the HTML site.
type Server struct {
	engine *gin.Engine
}

func NewServer(logger *slog.Logger, sessions *session.Manager, users *controller.UserController, pages *controller.PageController) (*Server, error) {
	tmpl, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	engine := gin.New()
	engine.SetHTMLTemplate(tmpl)
	engine.Use(
		middleware.Recovery(),
		middleware.Tracing(),
		middleware.RequestLogger(logger),
		sessions.Middleware(),
	)

	s := &Server{engine: engine}
	s.registerAPIRoutes(sessions, users)
	s.registerPageRoutes(sessions, pages)
	return s, nil
}

func (s *Server) registerAPIRoutes(sessions *session.Manager, users *controller.UserController) {
	api := s.engine.Group("/api")
	api.POST("/register", users.Register)
	api.POST("/login", users.Login)

	protected := api.Group("", middleware.RequireAuthJSON(sessions))
	protected.POST("/logout", users.Logout)
	protected.GET("/inventory", users.Inventory)
	protected.GET("/saved-cars", users.SavedCars)
}

func (s *Server) registerPageRoutes(sessions *session.Manager, pages *controller.PageController) {
	s.engine.GET("/", pages.Index)
	s.engine.GET("/register", pages.RegisterPage)
	s.engine.POST("/register", pages.Register)
	s.engine.GET("/login", pages.LoginPage)
	s.engine.POST("/login", pages.Login)
	s.engine.GET("/logout", pages.Logout)

	protected := s.engine.Group("", middleware.RequireAuthPage(sessions))
	protected.GET("/inventory", pages.Inventory)
	protected.GET("/saved-cars", pages.SavedCars)
	protected.GET("/financing", pages.Financing)
	protected.POST("/financing/apply", pages.ApplyFinancing)
}

// Engine returns the http.Handler to serve.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}
