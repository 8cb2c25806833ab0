package user

import (
	"github.com/gofiber/fiber/v2"

	"github.com/studysync/tutormatch/internal/app"
	authn "github.com/studysync/tutormatch/internal/auth"
	"github.com/studysync/tutormatch/internal/server/middleware"
)

// Registrar ties the user service into the HTTP server.
type Registrar struct {
	appCtx   *app.AppContext
	verifier authn.Verifier
}

// NewRegistrar creates a new Registrar for the user service.
func NewRegistrar(appCtx *app.AppContext, verifier authn.Verifier) *Registrar {
	return &Registrar{appCtx: appCtx, verifier: verifier}
}

// Register mounts the user routes behind the auth middleware.
func (r *Registrar) Register(fapp *fiber.App) {
	svc := NewService(r.appCtx)

	g := fapp.Group("/api/user", middleware.Protected(r.verifier))
	g.Get("/:userId", svc.handleGet)
	g.Put("/:userId", svc.handleUpdate)
	g.Post("/:userId/preference", svc.handleUpdatePreference)
}
