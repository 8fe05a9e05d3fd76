package apiv1

import (
	"github.com/gofiber/fiber/v2"

	// Delegate to existing controllers to keep behavior consistent
	"github.com/ManuelReschke/BookForge/app/controllers"
	"github.com/ManuelReschke/BookForge/internal/pkg/middleware"
)

// APIServer bundles the controllers behind the v1 routes.
type APIServer struct {
	Credits    *controllers.CreditController
	Generation *controllers.GenerationController
	Payments   *controllers.PaymentController
	Director   *controllers.DirectorController
	Exports    *controllers.ExportController
}

// NewAPIServer creates a new API server instance
func NewAPIServer(credits *controllers.CreditController, generation *controllers.GenerationController,
	payments *controllers.PaymentController, director *controllers.DirectorController,
	exports *controllers.ExportController) *APIServer {
	return &APIServer{
		Credits:    credits,
		Generation: generation,
		Payments:   payments,
		Director:   director,
		Exports:    exports,
	}
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	response := Pong{
		Ping: "pong",
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

// RegisterHandlers mounts the v1 routes on router. The bearer token must
// already be resolved into the user context by middleware.BearerAuth.
func RegisterHandlers(router fiber.Router, s *APIServer) {
	auth := middleware.RequireAPIAuth

	router.Get("/ping", s.GetPing)
	router.Get("/embed", controllers.HandleEmbed)

	if s.Credits != nil {
		router.Get("/credits", auth, s.Credits.HandleGetBalance)
		router.Get("/credits/transactions", auth, s.Credits.HandleListTransactions)
		router.Post("/credits/deduct", auth, s.Credits.HandleDeduct)
	}

	if s.Generation != nil {
		router.Post("/generate", auth, s.Generation.HandleGenerate)
	}

	if s.Payments != nil {
		router.Get("/payments/packages", s.Payments.HandleListPackages)
		router.Post("/payments/orders", auth, s.Payments.HandleCreateOrder)
		router.Post("/payments/verify", auth, s.Payments.HandleVerify)
		router.Post("/payments/support", auth, s.Payments.HandleSupport)
	}

	if s.Director != nil {
		router.Post("/director/projects", auth, s.Director.HandleCreateProject)
		router.Get("/director/projects/:id", auth, s.Director.HandleGetProject)
		router.Post("/director/projects/:id/messages", auth, s.Director.HandleSendMessage)
	}

	if s.Exports != nil {
		router.Post("/exports", auth, s.Exports.HandleCreateExport)
		router.Get("/exports/:id", auth, s.Exports.HandleGetExport)
	}
}
