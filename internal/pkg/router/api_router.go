package router

import (
	"github.com/gofiber/fiber/v2"

	apiv1 "github.com/ManuelReschke/BookForge/internal/api/v1"
	"github.com/ManuelReschke/BookForge/internal/pkg/constants"
	"github.com/ManuelReschke/BookForge/internal/pkg/middleware"
)

type ApiRouter struct {
	server   *apiv1.APIServer
	verifier *middleware.TokenVerifier
	storage  fiber.Storage
	max      int
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	// auth first so the limiter can key on the user
	api := app.Group(constants.APIRoute, middleware.BearerAuth(h.verifier), newLimiter(h.storage, h.max))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// API v1 routes
	v1 := api.Group("/v1")
	apiv1.RegisterHandlers(v1, h.server)
}

// NewApiRouter wires the v1 API. storage may be nil to keep limiter state in
// memory; max is the number of requests per minute and key.
func NewApiRouter(server *apiv1.APIServer, verifier *middleware.TokenVerifier, storage fiber.Storage, max int) *ApiRouter {
	return &ApiRouter{server: server, verifier: verifier, storage: storage, max: max}
}
