package gateway

import (
	"context"
	"time"

	"github.com/mbeoliero/haven/common"
	"github.com/mbeoliero/haven/internal/config"
	"github.com/mbeoliero/haven/internal/entity"
	"github.com/mbeoliero/haven/internal/service"
	"github.com/mbeoliero/haven/pkg/constant"
	"github.com/mbeoliero/haven/pkg/errcode"
	"github.com/mbeoliero/haven/pkg/jwt"
	"github.com/mbeoliero/haven/pkg/ratelimit"
	"github.com/mbeoliero/kit/log"
)

// Authenticator resolves the bearer token presented at handshake
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*common.Principal, *jwt.Claims, error)
}

// Channels authorizes subscriptions and relays typing indicators
type Channels interface {
	AuthorizeJoin(ctx context.Context, principal *common.Principal, conversationId string) (*entity.Conversation, error)
	Typing(ctx context.Context, principal *common.Principal, conversationId string, isTyping bool) (*service.TypingEvent, error)
}

// Messages runs the message operations reachable over the socket
type Messages interface {
	SendMessage(ctx context.Context, principal *common.Principal, conversationId, text string) (*entity.ChatMessage, error)
	MarkAsRead(ctx context.Context, principal *common.Principal, conversationId string) (*service.ReadReceiptEvent, error)
}

// WsServer accepts WebSocket connections and serves the channel protocol
type WsServer struct {
	cfg      config.WebSocketConfig
	hub      *Hub
	auth     Authenticator
	channels Channels
	messages Messages
	typing   *ratelimit.KeyLimiter
}

// NewWsServer creates a new WebSocket server on top of hub
func NewWsServer(cfg config.WebSocketConfig, hub *Hub, auth Authenticator, channels Channels, messages Messages) *WsServer {
	return &WsServer{
		cfg:      cfg,
		hub:      hub,
		auth:     auth,
		channels: channels,
		messages: messages,
		typing:   ratelimit.New(cfg.TypingRate, cfg.TypingBurst, 0),
	}
}

// Hub returns the hub connections are registered in
func (s *WsServer) Hub() *Hub {
	return s.hub
}

func (s *WsServer) connOptions() ConnOptions {
	return ConnOptions{
		WriteWait:        s.cfg.WriteWait,
		PongWait:         s.cfg.PongWait,
		PingPeriod:       s.cfg.PingPeriod,
		MaxMessageSize:   s.cfg.MaxMessageSize,
		WriteChannelSize: s.cfg.WriteChannelSize,
	}
}

// overLimit reports whether a new connection would exceed max_conn_num
func (s *WsServer) overLimit() bool {
	return s.cfg.MaxConnNum > 0 && s.hub.ConnCount() >= s.cfg.MaxConnNum
}

// unregisterClient drops every subscription of a closed client
func (s *WsServer) unregisterClient(client *Client) {
	s.typing.Forget(client.ConnId)
	s.hub.Unregister(context.WithoutCancel(client.ctx), client)
}

func decodeConversationReq(req *WSRequest) (*ConversationReq, error) {
	var data ConversationReq
	if len(req.Data) == 0 {
		return nil, errcode.ErrInvalidParam.WithMsg("conversation_id is required")
	}
	if err := Decode(req.Data, &data); err != nil {
		return nil, errcode.ErrInvalidParam
	}
	return &data, nil
}

// ========== Message Handlers ==========

// HandleJoin subscribes the connection to conv:<id> after the access check
func (s *WsServer) HandleJoin(ctx context.Context, client *Client, req *WSRequest) ([]byte, error) {
	data, err := decodeConversationReq(req)
	if err != nil {
		return nil, err
	}

	conv, err := s.channels.AuthorizeJoin(ctx, client.Principal, data.ConversationId)
	if err != nil {
		return nil, err
	}

	channel := constant.ConversationChannel(conv.Id)
	if !s.hub.Subscribe(channel, client) {
		return nil, errcode.ErrConnClosed
	}
	log.CtxDebug(ctx, "joined conversation: user=%s, conn_id=%s, conversation_id=%s", client.Principal, client.ConnId, conv.Id)

	return Encode(JoinResp{ConversationId: conv.Id, Channel: channel})
}

// HandleLeave unsubscribes without an access check
func (s *WsServer) HandleLeave(ctx context.Context, client *Client, req *WSRequest) ([]byte, error) {
	data, err := decodeConversationReq(req)
	if err != nil {
		return nil, err
	}

	channel := constant.ConversationChannel(data.ConversationId)
	s.hub.Unsubscribe(channel, client)
	return Encode(JoinResp{ConversationId: data.ConversationId, Channel: channel})
}

// HandleTyping relays a typing indicator; typing-start is rate limited per connection
func (s *WsServer) HandleTyping(ctx context.Context, client *Client, req *WSRequest, isTyping bool) ([]byte, error) {
	data, err := decodeConversationReq(req)
	if err != nil {
		return nil, err
	}

	if isTyping && !s.typing.Allow(client.ConnId, time.Now()) {
		return nil, errcode.ErrTooManyRequests
	}

	event, err := s.channels.Typing(ctx, client.Principal, data.ConversationId, isTyping)
	if err != nil {
		return nil, err
	}
	return Encode(event)
}

// HandleMarkRead runs mark-as-read; the receipt is broadcast by the service
func (s *WsServer) HandleMarkRead(ctx context.Context, client *Client, req *WSRequest) ([]byte, error) {
	data, err := decodeConversationReq(req)
	if err != nil {
		return nil, err
	}

	receipt, err := s.messages.MarkAsRead(ctx, client.Principal, data.ConversationId)
	if err != nil {
		return nil, err
	}
	return Encode(receipt)
}

// HandleSendMessage runs the same pipeline as the HTTP send endpoint
func (s *WsServer) HandleSendMessage(ctx context.Context, client *Client, req *WSRequest) ([]byte, error) {
	data, err := decodeConversationReq(req)
	if err != nil {
		return nil, err
	}

	msg, err := s.messages.SendMessage(ctx, client.Principal, data.ConversationId, data.Text)
	if err != nil {
		return nil, err
	}
	return Encode(msg)
}

// HandleHeartbeat refreshes the online presence TTL
func (s *WsServer) HandleHeartbeat(ctx context.Context, client *Client, _ *WSRequest) ([]byte, error) {
	s.hub.Users().RefreshOnlineStatus(ctx, client.UserId)
	return Encode(HeartbeatResp{ServerTime: entity.NowUnixMilli()})
}
