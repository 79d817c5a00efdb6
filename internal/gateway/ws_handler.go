package gateway

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"
	"github.com/hertz-contrib/websocket"
	"github.com/mbeoliero/haven/pkg/jwt"
	"github.com/mbeoliero/kit/log"
)

// HandleHertzConnection authenticates the handshake and upgrades it.
// The token comes from ?token= or an Authorization: Bearer header.
func (s *WsServer) HandleHertzConnection(ctx context.Context, c *app.RequestContext, upgrader *websocket.HertzUpgrader) {
	if s.overLimit() {
		c.String(consts.StatusServiceUnavailable, "connection limit exceeded")
		return
	}

	token := string(c.Query(QueryToken))
	if token == "" {
		token = jwt.FromAuthorizationHeader(string(c.GetHeader("Authorization")))
	}

	principal, _, err := s.auth.Authenticate(ctx, token)
	if err != nil {
		log.CtxDebug(ctx, "websocket handshake rejected: error=%v", err)
		c.String(consts.StatusUnauthorized, "unauthorized")
		return
	}

	err = upgrader.Upgrade(c, func(conn *websocket.Conn) {
		client := NewClient(NewHertzClientConn(conn, s.connOptions()), principal, uuid.NewString(), s)
		s.hub.Register(ctx, client)

		// blocks until the peer goes away
		client.readLoop()
	})
	if err != nil {
		log.CtxWarn(ctx, "websocket upgrade failed: principal=%s, error=%v", principal, err)
	}
}
