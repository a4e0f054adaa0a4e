package router

import (
	"context"

	"rural_skills_service/internal/messaging/app"
	"rural_skills_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes 注册 messaging 相关的路由
func RegisterRoutes(r *fiber.App, ws *app.MessagingWebsocketHandler, h *app.MessagingHTTPHandler) {
	r.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	r.Use(middlewares.JWTMiddleware())

	r.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		ws.HandleConnection(context.Background(), c)
	}))

	r.Get("/inbox", h.Inbox)
	r.Get("/conversations/:partnerID", h.Transcript)
	r.Post("/media/audio", h.UploadAudio)
}
