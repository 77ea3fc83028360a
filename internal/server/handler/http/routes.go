package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/atinyakov/imagerepo/internal/middleware"
)

// NewRouter constructs the HTTP handler that serves the image repository API.
//
// Routes:
//
//	GET  /ping                → Ping
//	POST /login               → authHandler.Login
//	POST /users/register      → userHandler.Register
//	POST /logout              → authHandler.Logout       (token)
//	POST /users/update        → userHandler.Update       (token)
//	POST /users/unregister    → userHandler.Unregister   (token)
//	GET  /users/search        → userHandler.Search       (token)
//	GET  /users/{id}          → userHandler.Get          (token)
//	POST /repo/add            → imageHandler.Add         (token, multipart)
//	POST /repo/update|delete|image|search|share|unshare  (token, JSON)
//
// Middleware chain (applied in order):
//  1. Recoverer: turns panics into 500 responses
//  2. WithRequestLogging: logs every request with its request id
//  3. TokenAuth: only on the protected groups
func NewRouter(
	authHandler *AuthHandler,
	userHandler *UserHandler,
	imageHandler *ImageHandler,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.WithRequestLogging(logger))

	r.Get("/ping", Ping)

	// Public endpoints
	r.Group(func(r chi.Router) {
		r.Use(chiMiddleware.AllowContentType("application/json"))
		r.Post("/login", authHandler.Login)
		r.Post("/users/register", userHandler.Register)
	})

	// Protected endpoints: require a valid session token
	r.Group(func(r chi.Router) {
		r.Use(middleware.TokenAuth(authHandler.AuthService, logger))

		r.Post("/logout", authHandler.Logout)
		r.Get("/users/search", userHandler.Search)
		r.Get("/users/{id}", userHandler.Get)

		r.With(chiMiddleware.AllowContentType("multipart/form-data")).
			Post("/repo/add", imageHandler.Add)

		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.AllowContentType("application/json"))
			r.Post("/users/update", userHandler.Update)
			r.Post("/users/unregister", userHandler.Unregister)
			r.Post("/repo/update", imageHandler.Update)
			r.Post("/repo/delete", imageHandler.Delete)
			r.Post("/repo/image", imageHandler.Image)
			r.Post("/repo/search", imageHandler.Search)
			r.Post("/repo/share", imageHandler.Share)
			r.Post("/repo/unshare", imageHandler.Unshare)
		})
	})

	return r
}
