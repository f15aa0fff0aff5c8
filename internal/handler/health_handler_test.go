package handler_test

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/presensi-api/internal/handler"
)

func TestHealthCheck(t *testing.T) {
	f := setupApp(t)

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Success bool                   `json:"success"`
		Data    handler.HealthResponse `json:"data"`
	}
	decodeBody(t, resp, &body)
	require.True(t, body.Success)
	require.Equal(t, "ok", body.Data.Status)
	require.Equal(t, "Test", body.Data.Service)
}
