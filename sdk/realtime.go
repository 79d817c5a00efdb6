package sdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ErrTimeout is returned when no frame arrives in time
var ErrTimeout = errors.New("timeout waiting for frame")

// ErrRealtimeClosed is returned once the connection is gone
var ErrRealtimeClosed = errors.New("realtime connection closed")

// Frame is one server frame, either a reply or a push
type Frame struct {
	ReqIdentifier int32           `json:"req_identifier"`
	MsgIncr       string          `json:"msg_incr,omitempty"`
	OperationId   string          `json:"operation_id,omitempty"`
	ErrCode       int             `json:"err_code"`
	ErrMsg        string          `json:"err_msg,omitempty"`
	Data          json.RawMessage `json:"data,omitempty"`
}

// IsError reports whether the frame is a 2005 error push
func (f *Frame) IsError() bool {
	return f.ReqIdentifier == WSPushError
}

// Err converts an error frame into an *Error
func (f *Frame) Err() error {
	if f.ErrCode == 0 {
		return nil
	}
	return &Error{Code: f.ErrCode, Msg: f.ErrMsg}
}

// Decode unmarshals the frame payload into v
func (f *Frame) Decode(v interface{}) error {
	return json.Unmarshal(f.Data, v)
}

type request struct {
	ReqIdentifier int32       `json:"req_identifier"`
	MsgIncr       string      `json:"msg_incr"`
	OperationId   string      `json:"operation_id,omitempty"`
	Data          interface{} `json:"data,omitempty"`
}

type conversationData struct {
	ConversationId string `json:"conversation_id"`
	Text           string `json:"text,omitempty"`
}

// Realtime is a WebSocket connection to the gateway
type Realtime struct {
	conn   *websocket.Conn
	frames chan *Frame
	done   chan struct{}
	incr   atomic.Int64
	mu     sync.Mutex
}

// Connect opens a realtime connection authenticated with the client's token
func (c *Client) Connect() (*Realtime, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial websocket: status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial websocket: %w", err)
	}

	rt := &Realtime{
		conn:   conn,
		frames: make(chan *Frame, 100),
		done:   make(chan struct{}),
	}
	go rt.readLoop()
	return rt, nil
}

func (r *Realtime) readLoop() {
	defer close(r.done)
	for {
		_, data, err := r.conn.ReadMessage()
		if err != nil {
			return
		}

		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}

		select {
		case r.frames <- &f:
		default:
			// Channel full, drop frame
		}
	}
}

// send writes one request frame and returns its msg_incr
func (r *Realtime) send(reqIdentifier int32, data interface{}) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	incr := strconv.FormatInt(r.incr.Add(1), 10)
	payload, err := json.Marshal(&request{ReqIdentifier: reqIdentifier, MsgIncr: incr, Data: data})
	if err != nil {
		return "", err
	}
	if err := r.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return "", err
	}
	return incr, nil
}

// Join subscribes to a conversation's events
func (r *Realtime) Join(conversationId string) (string, error) {
	return r.send(WSJoinConversation, &conversationData{ConversationId: conversationId})
}

// Leave drops a conversation subscription
func (r *Realtime) Leave(conversationId string) (string, error) {
	return r.send(WSLeaveConversation, &conversationData{ConversationId: conversationId})
}

// Typing announces that the caller started or stopped typing
func (r *Realtime) Typing(conversationId string, typing bool) (string, error) {
	id := int32(WSTypingStop)
	if typing {
		id = WSTypingStart
	}
	return r.send(id, &conversationData{ConversationId: conversationId})
}

// MarkRead marks a conversation read over the socket
func (r *Realtime) MarkRead(conversationId string) (string, error) {
	return r.send(WSMarkRead, &conversationData{ConversationId: conversationId})
}

// SendMessage sends a message over the socket
func (r *Realtime) SendMessage(conversationId, text string) (string, error) {
	return r.send(WSSendMessage, &conversationData{ConversationId: conversationId, Text: text})
}

// Heartbeat keeps the caller's online status fresh
func (r *Realtime) Heartbeat() (string, error) {
	return r.send(WSHeartbeat, nil)
}

// Next waits for the next frame
func (r *Realtime) Next(timeout time.Duration) (*Frame, error) {
	select {
	case f := <-r.frames:
		return f, nil
	case <-time.After(timeout):
		return nil, ErrTimeout
	case <-r.done:
		return nil, ErrRealtimeClosed
	}
}

// WaitFor skips frames until one with the given identifier arrives
func (r *Realtime) WaitFor(reqIdentifier int32, timeout time.Duration) (*Frame, error) {
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, ErrTimeout
		}
		f, err := r.Next(remaining)
		if err != nil {
			return nil, err
		}
		if f.ReqIdentifier == reqIdentifier {
			return f, nil
		}
	}
}

// Close closes the connection
func (r *Realtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conn.Close()
}
