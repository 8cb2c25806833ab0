package match

import (
	"github.com/gofiber/fiber/v2"

	"github.com/studysync/tutormatch/internal/app"
	authn "github.com/studysync/tutormatch/internal/auth"
	"github.com/studysync/tutormatch/internal/server/middleware"
)

// Registrar ties the matching service into the HTTP server.
type Registrar struct {
	appCtx   *app.AppContext
	verifier authn.Verifier
}

// NewRegistrar creates a new Registrar for the matching service.
func NewRegistrar(appCtx *app.AppContext, verifier authn.Verifier) *Registrar {
	return &Registrar{appCtx: appCtx, verifier: verifier}
}

// Register mounts the matching routes behind the auth middleware.
func (r *Registrar) Register(fapp *fiber.App) {
	svc := NewService(r.appCtx)

	g := fapp.Group("/api/matches", middleware.Protected(r.verifier))
	g.Get("/find/:userId", svc.handleFind)
	g.Post("/swipe", svc.handleSwipe)
	g.Get("/profile/:userId", svc.handleProfile)
	g.Get("/admirers/:userId", svc.handleAdmirers)
	g.Get("/admirers/:userId/count", svc.handleCountAdmirers)
}
