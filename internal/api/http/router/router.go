// Package router wires HTTP handlers and middleware into a mux.
package router

import (
	"net/http"

	"github.com/vkoshelev/identityd/internal/api/http/handler"
	"github.com/vkoshelev/identityd/internal/api/http/middleware"
	"github.com/vkoshelev/identityd/internal/logger"
	"github.com/vkoshelev/identityd/internal/model"
	"github.com/vkoshelev/identityd/internal/validate"
)

// Router assembles the HTTP surface: auth endpoints are public, user
// endpoints sit behind the authentication gate, and everything is logged.
type Router struct {
	authService    handler.AuthService
	userService    handler.UserService
	tokenManager   model.TokenManager
	revocations    model.RevocationStore
	contextManager model.ContextManager
	emailValidator *validate.EmailValidator
	logger         *logger.Logger
}

// New creates a new Router instance.
func New(
	authService handler.AuthService,
	userService handler.UserService,
	tokenManager model.TokenManager,
	revocations model.RevocationStore,
	contextManager model.ContextManager,
	emailValidator *validate.EmailValidator,
	logger *logger.Logger,
) *Router {
	return &Router{
		authService:    authService,
		userService:    userService,
		tokenManager:   tokenManager,
		revocations:    revocations,
		contextManager: contextManager,
		emailValidator: emailValidator,
		logger:         logger,
	}
}

// Register builds the routing table and returns the root handler.
func (r *Router) Register() http.Handler {
	logging := middleware.NewLogging(r.logger)
	authenticate := middleware.NewAuthenticate(r.tokenManager, r.revocations, r.contextManager, r.logger)

	authHandler := handler.NewAuth(r.authService, r.emailValidator, r.logger)
	userHandler := handler.NewUser(r.userService, r.contextManager, r.logger)

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/v1/auth/refresh", authHandler.Refresh)
	mux.HandleFunc("POST /api/v1/auth/logout", authHandler.Logout)
	mux.HandleFunc("GET /api/v1/auth/confirm", authHandler.Confirm)

	users := http.NewServeMux()
	users.HandleFunc("GET /api/v1/users/me", userHandler.Me)
	mux.Handle("/api/v1/users/", authenticate.Handle(users))

	return logging.Handle(mux)
}
