package sdk

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvelope(w http.ResponseWriter, status, code int, msg string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]interface{}{"code": code, "msg": msg}
	if data != nil {
		body["data"] = data
	}
	_ = json.NewEncoder(w).Encode(body)
}

func TestClient_DecodesEnvelope(t *testing.T) {
	var gotAuth, gotBody, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		writeEnvelope(w, http.StatusOK, 0, "success", map[string]interface{}{
			"id": "m-1", "conversation_id": "c-1", "sender_id": "acc-1", "sender_role": "merchant", "text": "hi",
		})
	}))
	defer srv.Close()

	c := MustNewClient(srv.URL, WithToken("tok"))
	msg, err := c.SendMessage(context.Background(), "c-1", "hi")
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "/chat/conversations/c-1/messages", gotPath)
	assert.JSONEq(t, `{"text":"hi"}`, gotBody)
	assert.Equal(t, "m-1", msg.Id)
	assert.Equal(t, "merchant", msg.SenderRole)
}

func TestClient_ReturnsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/me" {
			writeEnvelope(w, http.StatusUnauthorized, CodeTokenMissing, "token missing", nil)
			return
		}
		writeEnvelope(w, http.StatusOK, CodeCounterpartyMissing, "Organization or Merchant not found", nil)
	}))
	defer srv.Close()

	c := MustNewClient(srv.URL)

	_, err := c.Me(context.Background())
	require.Error(t, err)
	assert.Equal(t, CodeTokenMissing, CodeOf(err))

	_, err = c.GetOrCreateConversation(context.Background(), "h-1", "x-1")
	require.Error(t, err)
	assert.Equal(t, CodeCounterpartyMissing, CodeOf(err))
	assert.Equal(t, -1, CodeOf(io.EOF))
}

func TestClient_LogoutForgetsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, 0, "success", nil)
	}))
	defer srv.Close()

	c := MustNewClient(srv.URL, WithToken("tok"))
	require.NoError(t, c.Logout(context.Background()))
	assert.Empty(t, c.GetToken())
}

func TestRealtime_RoundTrip(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws" || r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var req map[string]interface{}
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			// echo an error frame for the request
			_ = conn.WriteJSON(map[string]interface{}{
				"req_identifier": WSPushError,
				"msg_incr":       req["msg_incr"],
				"err_code":       CodeConvNotFound,
				"err_msg":        "conversation not found",
				"data":           map[string]interface{}{"req_identifier": req["req_identifier"]},
			})
		}
	}))
	defer srv.Close()

	_, err := MustNewClient(srv.URL).Connect()
	require.Error(t, err)

	rt, err := MustNewClient(srv.URL, WithToken("tok")).Connect()
	require.NoError(t, err)
	defer rt.Close()

	incr, err := rt.Join("c-404")
	require.NoError(t, err)
	assert.Equal(t, "1", incr)

	f, err := rt.WaitFor(WSPushError, 2*time.Second)
	require.NoError(t, err)
	assert.True(t, f.IsError())
	assert.Equal(t, incr, f.MsgIncr)
	assert.Equal(t, CodeConvNotFound, CodeOf(f.Err()))

	var data struct {
		ReqIdentifier int32 `json:"req_identifier"`
	}
	require.NoError(t, f.Decode(&data))
	assert.Equal(t, int32(WSJoinConversation), data.ReqIdentifier)

	incr, err = rt.Heartbeat()
	require.NoError(t, err)
	assert.Equal(t, "2", incr)
}
