package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newApp() *fiber.App {
	app := fiber.New()
	log := zap.NewNop()
	app.Use(RequestLogger(log))
	app.Use(GatewayAuthMiddleware("secret", log, "/health"))
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/me", UserContextMiddleware(log), func(c *fiber.Ctx) error {
		return c.SendString(UserID(c))
	})
	app.Get("/admin", UserContextMiddleware(log), RequireRole("admin"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func TestGatewayAuth(t *testing.T) {
	app := newApp()

	cases := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"public path", "/health", "", fiber.StatusOK},
		{"missing token", "/me", "", fiber.StatusUnauthorized},
		{"wrong token", "/me", "Bearer nope", fiber.StatusUnauthorized},
		{"raw token", "/me", "secret", fiber.StatusUnauthorized}, // no user id yet
	}
	for _, c := range cases {
		req := httptest.NewRequest("GET", c.path, nil)
		if c.header != "" {
			req.Header.Set("Authorization", c.header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err, c.name)
		assert.Equal(t, c.want, resp.StatusCode, c.name)
	}
}

func TestUserContext(t *testing.T) {
	app := newApp()

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("X-User-ID", "user-42")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := make([]byte, 16)
	n, _ := resp.Body.Read(body)
	assert.Equal(t, "user-42", string(body[:n]))
}

func TestRequireRole(t *testing.T) {
	app := newApp()

	req := httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("X-User-ID", "user-42")
	req.Header.Set("X-User-Roles", "member")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	req.Header.Set("X-User-Roles", "member, Admin")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}
