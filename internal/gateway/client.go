package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/mbeoliero/haven/common"
	"github.com/mbeoliero/haven/pkg/errcode"
	"github.com/mbeoliero/kit/log"
)

// Client is one authenticated WebSocket connection
type Client struct {
	mu        sync.Mutex
	conn      ClientConn
	Principal *common.Principal
	UserId    string
	ConnId    string
	server    *WsServer
	closed    atomic.Bool
	closedErr error
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewClient creates a new client for an authenticated principal
func NewClient(conn ClientConn, principal *common.Principal, connId string, server *WsServer) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		conn:      conn,
		Principal: principal,
		UserId:    principal.Id,
		ConnId:    connId,
		server:    server,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start starts the client message handling
func (c *Client) Start() {
	go c.readLoop()
}

// readLoop reads frames until the connection fails or closes
func (c *Client) readLoop() {
	defer func() {
		if r := recover(); r != nil {
			c.closedErr = ErrPanic
			log.CtxError(c.ctx, "client read loop panic: user_id=%s, error=%v", c.UserId, r)
		}
		c.close()
	}()

	for {
		message, err := c.conn.ReadMessage()
		if err != nil {
			log.CtxDebug(c.ctx, "read message error: user_id=%s, error=%v", c.UserId, err)
			c.closedErr = err
			return
		}

		if c.closed.Load() {
			c.closedErr = ErrConnClosed
			return
		}

		if err := c.handleMessage(message); err != nil {
			log.CtxWarn(c.ctx, "handle message error: user_id=%s, error=%v", c.UserId, err)
			c.closedErr = err
			return
		}
	}
}

// handleMessage dispatches one frame. Only transport failures are returned;
// request errors are reported to the peer as 2005 frames.
func (c *Client) handleMessage(message []byte) error {
	var req WSRequest
	if err := json.Unmarshal(message, &req); err != nil {
		return c.replyError(&req, errcode.ErrInvalidProtocol)
	}

	log.CtxDebug(c.ctx, "received message: req_identifier=%d, user_id=%s", req.ReqIdentifier, c.UserId)

	var resp []byte
	var err error

	switch req.ReqIdentifier {
	case WSJoinConversation:
		resp, err = c.server.HandleJoin(c.ctx, c, &req)
	case WSLeaveConversation:
		resp, err = c.server.HandleLeave(c.ctx, c, &req)
	case WSTypingStart:
		resp, err = c.server.HandleTyping(c.ctx, c, &req, true)
	case WSTypingStop:
		resp, err = c.server.HandleTyping(c.ctx, c, &req, false)
	case WSMarkRead:
		resp, err = c.server.HandleMarkRead(c.ctx, c, &req)
	case WSSendMessage:
		resp, err = c.server.HandleSendMessage(c.ctx, c, &req)
	case WSHeartbeat:
		resp, err = c.server.HandleHeartbeat(c.ctx, c, &req)
	default:
		return c.replyError(&req, errcode.ErrInvalidProtocol)
	}

	if err != nil {
		return c.replyError(&req, err)
	}
	return c.reply(&req, resp)
}

// reply echoes the request identifier with the handler's data
func (c *Client) reply(req *WSRequest, data []byte) error {
	return c.writeResponse(WSResponse{
		ReqIdentifier: req.ReqIdentifier,
		MsgIncr:       req.MsgIncr,
		OperationId:   req.OperationId,
		Data:          data,
	})
}

// replyError sends a 2005 frame; internal causes never reach the peer
func (c *Client) replyError(req *WSRequest, err error) error {
	e, ok := errcode.As(err)
	if !ok {
		log.CtxError(c.ctx, "unexpected websocket handler error: user_id=%s, req_identifier=%d, error=%v",
			c.UserId, req.ReqIdentifier, err)
		e = errcode.ErrInternalServer
	}

	data, _ := json.Marshal(ErrorData{ReqIdentifier: req.ReqIdentifier})
	return c.writeResponse(WSResponse{
		ReqIdentifier: WSPushError,
		MsgIncr:       req.MsgIncr,
		OperationId:   req.OperationId,
		ErrCode:       e.Code,
		ErrMsg:        e.Msg,
		Data:          data,
	})
}

func (c *Client) writeResponse(resp WSResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return c.write(data)
}

func (c *Client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return nil
	}
	return c.conn.WriteMessage(data)
}

// Push writes an already encoded frame
func (c *Client) Push(frame []byte) error {
	if c.closed.Load() {
		return ErrConnClosed
	}
	return c.write(frame)
}

// Close closes the client connection
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return nil
	}

	c.closed.Store(true)
	c.cancel()
	return c.conn.Close()
}

// close runs once the read loop ends
func (c *Client) close() {
	_ = c.Close()
	c.server.unregisterClient(c)
}

// IsClosed returns whether the client is closed
func (c *Client) IsClosed() bool {
	return c.closed.Load()
}
