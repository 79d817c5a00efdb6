package router

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/adaptor"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/websocket"
	"github.com/mbeoliero/haven/internal/gateway"
	"github.com/mbeoliero/haven/internal/handler"
	"github.com/mbeoliero/haven/internal/metrics"
	"github.com/mbeoliero/haven/internal/middleware"
)

// Handlers holds all HTTP handlers
type Handlers struct {
	Auth         *handler.AuthHandler
	Conversation *handler.ConversationHandler
	Message      *handler.MessageHandler
	PushToken    *handler.PushTokenHandler
}

// Options carries what the route table needs besides handlers
type Options struct {
	Auth           middleware.Authenticator
	AllowedOrigins []string
	// HealthCheck reports dependency health; nil means always healthy
	HealthCheck func(ctx context.Context) error
}

// SetupRouter sets up all routes
func SetupRouter(h *server.Hertz, handlers *Handlers, wsServer *gateway.WsServer, opts Options) {
	h.Use(middleware.CORS(opts.AllowedOrigins))

	h.GET("/health", func(ctx context.Context, c *app.RequestContext) {
		if opts.HealthCheck != nil {
			if err := opts.HealthCheck(ctx); err != nil {
				c.JSON(consts.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
				return
			}
		}
		c.JSON(consts.StatusOK, map[string]string{"status": "ok"})
	})

	h.GET("/metrics", adaptor.HertzHandler(metrics.Handler()))

	authn := middleware.Auth(opts.Auth)

	authGroup := h.Group("/auth", authn)
	{
		authGroup.GET("/me", handlers.Auth.Me)
		authGroup.POST("/logout", handlers.Auth.Logout)
	}

	chatGroup := h.Group("/chat", authn)
	{
		chatGroup.POST("/conversations", handlers.Conversation.GetOrCreate)
		chatGroup.GET("/conversations", handlers.Conversation.ListConversations)
		chatGroup.GET("/conversations/:id", handlers.Conversation.GetConversation)
		chatGroup.DELETE("/conversations/:id", handlers.Conversation.DeleteConversation)
		chatGroup.GET("/conversations/:id/messages", handlers.Message.GetMessages)
		chatGroup.POST("/conversations/:id/messages", handlers.Message.SendMessage)
		chatGroup.POST("/conversations/:id/read", handlers.Message.MarkAsRead)
		chatGroup.GET("/:homeless_id/:counterparty_id", handlers.Conversation.GetOrCreateByPath)
	}

	pushGroup := h.Group("/push", authn)
	{
		pushGroup.POST("/token", handlers.PushToken.Register)
		pushGroup.DELETE("/token", handlers.PushToken.Unregister)
	}

	// The upgrade authenticates itself: browsers cannot set headers on a WebSocket handshake
	upgrader := &websocket.HertzUpgrader{
		CheckOrigin: func(c *app.RequestContext) bool {
			return checkOrigin(c, opts.AllowedOrigins)
		},
	}
	h.GET("/ws", func(ctx context.Context, c *app.RequestContext) {
		wsServer.HandleHertzConnection(ctx, c, upgrader)
	})
}

// checkOrigin allows non-browser clients (no Origin header) and configured origins
func checkOrigin(c *app.RequestContext, allowedOrigins []string) bool {
	origin := string(c.Request.Header.Peek("Origin"))
	if origin == "" {
		return true
	}
	return middleware.OriginAllowed(origin, allowedOrigins)
}
