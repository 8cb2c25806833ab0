package server

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/studysync/tutormatch/internal/config"
)

// Registrar is a common interface for all HTTP service registrars.
type Registrar interface {
	Register(app *fiber.App)
}

// ErrorResponse is the JSON body for failed requests.
type ErrorResponse struct {
	Message string `json:"message"`
}

// NewApp builds the Fiber app and mounts all provided services.
func NewApp(registrars ...Registrar) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "tutormatch",
		DisableStartupMessage: true,
	})

	for _, r := range registrars {
		r.Register(app)
	}

	return app
}

// StartHTTPServer boots the HTTP server with all provided services.
func StartHTTPServer(cfg *config.Config, registrars ...Registrar) error {
	app := NewApp(registrars...)
	addr := fmt.Sprintf("%s:%s", cfg.HTTP.Host, cfg.HTTP.Port)
	return app.Listen(addr)
}
