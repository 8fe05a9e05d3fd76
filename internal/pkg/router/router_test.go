package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apiv1 "github.com/ManuelReschke/BookForge/internal/api/v1"
	"github.com/ManuelReschke/BookForge/internal/pkg/middleware"
)

func TestApiRouter_LimitsRequests(t *testing.T) {
	app := fiber.New()
	InstallRouter(app, NewApiRouter(&apiv1.APIServer{}, middleware.NewTokenVerifier("secret", ""), nil, 2))

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}

func TestApiRouter_Root(t *testing.T) {
	app := fiber.New()
	InstallRouter(app, NewApiRouter(&apiv1.APIServer{}, middleware.NewTokenVerifier("secret", ""), nil, 10))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestOperatorRouter(t *testing.T) {
	stats := func(c *fiber.Ctx) error { return c.SendString("stats") }

	t.Run("disabled without password", func(t *testing.T) {
		app := fiber.New()
		InstallRouter(app, NewOperatorRouter("admin", "", stats))

		for _, path := range []string{"/metrics", "/metrics/stats"} {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			req.SetBasicAuth("admin", "change-me")
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusNotFound, resp.StatusCode, path)
		}
	})

	t.Run("basic auth", func(t *testing.T) {
		app := fiber.New()
		InstallRouter(app, NewOperatorRouter("", "s3cret", stats))

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics/stats", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

		req := httptest.NewRequest(http.MethodGet, "/metrics/stats", nil)
		req.SetBasicAuth("admin", "s3cret")
		resp, err = app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})
}
