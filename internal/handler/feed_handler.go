package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/presensi-api/internal/middleware"
	"github.com/noah-isme/presensi-api/internal/service"
)

// FeedHandler wires the live attendance feed websocket upgrade.
type FeedHandler struct {
	feed   service.FeedService
	logger zerolog.Logger
}

// NewFeedHandler creates a feed handler instance.
func NewFeedHandler(feed service.FeedService, logger zerolog.Logger) *FeedHandler {
	return &FeedHandler{
		feed:   feed,
		logger: logger.With().Str("component", "feed_handler").Logger(),
	}
}

// Register binds the websocket route under the provided router group.
func (h *FeedHandler) Register(router fiber.Router) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			ctx := c.UserContext()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
			c.Locals("request_ctx", ctx)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("/ws", websocket.New(h.handleConnection))
}

func (h *FeedHandler) handleConnection(conn *websocket.Conn) {
	userID := websocketUserID(conn)
	if userID == "" {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusUnauthorized, "user id missing"))
		_ = conn.Close()
		return
	}

	sessionRaw := strings.TrimSpace(conn.Query("session_id"))
	sessionID, err := strconv.ParseUint(sessionRaw, 10, 64)
	if err != nil || sessionID == 0 {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusBadRequest, "session_id required"))
		_ = conn.Close()
		return
	}

	role := fmt.Sprint(conn.Locals("user_role"))
	correlation := fmt.Sprint(conn.Locals("correlation_id"))
	baseCtx, _ := conn.Locals("request_ctx").(context.Context)

	opts := service.FeedConnectionOptions{
		UserID:        userID,
		Role:          role,
		SessionID:     uint(sessionID),
		CorrelationID: correlation,
		Context:       baseCtx,
	}

	h.logger.Info().Str("user_id", userID).Uint64("session_id", sessionID).Msg("feed websocket connected")
	h.feed.ServeConnection(conn, opts)
	h.logger.Info().Str("user_id", userID).Uint64("session_id", sessionID).Msg("feed websocket disconnected")
}

func websocketUserID(conn *websocket.Conn) string {
	if value := conn.Locals("user_id"); value != nil {
		switch v := value.(type) {
		case float64:
			return fmt.Sprintf("%d", uint(v))
		case uint:
			return fmt.Sprintf("%d", v)
		case int:
			return fmt.Sprintf("%d", v)
		case string:
			return strings.TrimSpace(v)
		}
	}
	return ""
}
