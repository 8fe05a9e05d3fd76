package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/monitor"
)

// OperatorRouter serves /metrics and /metrics/stats behind basic auth.
type OperatorRouter struct {
	user     string
	password string
	stats    fiber.Handler
}

// NewOperatorRouter mounts nothing when password is empty.
func NewOperatorRouter(user, password string, stats fiber.Handler) *OperatorRouter {
	if user == "" {
		user = "admin"
	}
	return &OperatorRouter{user: user, password: password, stats: stats}
}

func (o OperatorRouter) InstallRouter(app *fiber.App) {
	if o.password == "" {
		log.Warn("[Router] METRICS_PASSWORD not set, operator routes disabled")
		return
	}
	operators := basicauth.New(basicauth.Config{
		Users: map[string]string{o.user: o.password},
	})
	app.Get("/metrics", operators, monitor.New())
	if o.stats != nil {
		app.Get("/metrics/stats", operators, o.stats)
	}
}
