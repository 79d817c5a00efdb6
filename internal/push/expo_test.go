package push

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mbeoliero/haven/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpoSender_Send(t *testing.T) {
	var got expoMessage
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		_, _ = w.Write([]byte(`{"data":{"status":"ok","id":"ticket-1"}}`))
	}))
	defer srv.Close()

	sender, err := NewExpoSender(srv.URL, "secret-token", time.Second)
	require.NoError(t, err)

	err = sender.Send(context.Background(), &service.PushNotification{
		Token: "ExponentPushToken[abc]",
		Title: "Sam",
		Body:  "hello",
		Data:  map[string]string{"type": "chat_message", "conversationId": "c-1", "messageId": "m-1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret-token", auth)
	assert.Equal(t, "ExponentPushToken[abc]", got.To)
	assert.Equal(t, "Sam", got.Title)
	assert.Equal(t, "hello", got.Body)
	assert.Equal(t, "c-1", got.Data["conversationId"])
}

func TestExpoSender_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"ticket error", http.StatusOK, `{"data":{"status":"error","message":"not registered","details":{"error":"DeviceNotRegistered"}}}`},
		{"request error", http.StatusOK, `{"errors":[{"code":"VALIDATION_ERROR","message":"bad"}]}`},
		{"http failure", http.StatusInternalServerError, `oops`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			sender, err := NewExpoSender(srv.URL, "", time.Second)
			require.NoError(t, err)
			err = sender.Send(context.Background(), &service.PushNotification{Token: "t", Body: "b"})
			assert.Error(t, err)
		})
	}
}
