package gateway

import (
	"encoding/json"

	"github.com/mbeoliero/haven/internal/service"
)

// WSRequest is a client frame
type WSRequest struct {
	ReqIdentifier int32           `json:"req_identifier"` // Request type
	MsgIncr       string          `json:"msg_incr"`       // Client counter, echoed back
	OperationId   string          `json:"operation_id"`   // Trace id, echoed back
	Data          json.RawMessage `json:"data,omitempty"`
}

// WSResponse is a server frame, either a reply to a request or a push
type WSResponse struct {
	ReqIdentifier int32           `json:"req_identifier"`
	MsgIncr       string          `json:"msg_incr,omitempty"`
	OperationId   string          `json:"operation_id,omitempty"`
	ErrCode       int             `json:"err_code"`
	ErrMsg        string          `json:"err_msg,omitempty"`
	Data          json.RawMessage `json:"data,omitempty"`
}

// ConversationReq is the data of every conversation-scoped request
type ConversationReq struct {
	ConversationId string `json:"conversation_id"`
	Text           string `json:"text,omitempty"`
}

// JoinResp confirms a channel subscription
type JoinResp struct {
	ConversationId string `json:"conversation_id"`
	Channel        string `json:"channel"`
}

// HeartbeatResp answers a heartbeat
type HeartbeatResp struct {
	ServerTime int64 `json:"server_time"`
}

// ErrorData accompanies a 2005 frame and names the request that failed
type ErrorData struct {
	ReqIdentifier int32 `json:"req_identifier"`
}

// pushIdentifier maps a service event to its push frame identifier
func pushIdentifier(t service.EventType) (int32, bool) {
	switch t {
	case service.EventNewMessage:
		return WSPushMessage, true
	case service.EventTyping:
		return WSPushTyping, true
	case service.EventReadReceipt:
		return WSPushReadReceipt, true
	}
	return 0, false
}

// encodeEvent renders event as a ready-to-write push frame
func encodeEvent(event *service.Event) ([]byte, error) {
	id, ok := pushIdentifier(event.Type)
	if !ok {
		return nil, ErrUnknownEvent
	}
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(WSResponse{ReqIdentifier: id, Data: payload})
}

// Encode encodes data to JSON bytes
func Encode(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// Decode decodes JSON bytes to struct
func Decode(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}
