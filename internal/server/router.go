package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/classpulse-systems/classpulse/internal/handlers"
	"github.com/classpulse-systems/classpulse/internal/middleware"
	"github.com/classpulse-systems/classpulse/internal/models"
)

// NewRouter constructs the service's HTTP surface.
func NewRouter(h *handlers.AuthHandler, ws *handlers.WSHandler, auth *middleware.AuthMiddleware, cors middleware.CORSConfig) http.Handler {
	mux := http.NewServeMux()

	// Authentication endpoints
	mux.HandleFunc("POST /api/v1/auth/login", h.Login)
	mux.HandleFunc("POST /api/v1/auth/refresh", h.Refresh)
	mux.HandleFunc("POST /api/v1/auth/logout", h.Logout)
	mux.HandleFunc("GET /api/v1/auth/me", auth.RequireAuth(h.Me))

	// Account management (admin-only except self reads)
	mux.HandleFunc("POST /api/v1/users", auth.RequireRole(models.RoleAdmin)(h.CreateUser))
	mux.HandleFunc("GET /api/v1/users", auth.RequireRole(models.RoleAdmin)(h.ListUsers))
	mux.HandleFunc("GET /api/v1/users/{id}", auth.RequireAuth(h.GetUser))

	// Push channel
	mux.HandleFunc("GET /ws/notifications", ws.Serve)

	// Operational endpoints
	mux.HandleFunc("GET /healthz", h.HealthCheck)
	mux.Handle("GET /metrics", promhttp.Handler())

	return middleware.RequestID(middleware.CORS(cors)(mux))
}
