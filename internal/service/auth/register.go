package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/studysync/tutormatch/internal/app"
)

// Registrar ties the auth service into the HTTP server. Auth routes
// are public; everything else hangs behind the verifier this service
// exposes.
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the auth service.
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register mounts the auth routes.
func (r *Registrar) Register(fapp *fiber.App) {
	svc := NewService(r.appCtx)

	g := fapp.Group("/api/auth")
	g.Post("/signup", svc.handleSignup)
	g.Post("/login", svc.handleLogin)
	g.Post("/delete", svc.handleDelete)
}
