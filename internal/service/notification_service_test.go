package service

import (
	"context"
	"strings"
	"testing"

	"github.com/mbeoliero/haven/pkg/constant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", Preview("short"))

	exact := strings.Repeat("a", 50)
	assert.Equal(t, exact, Preview(exact))

	long := strings.Repeat("ü", 60)
	got := Preview(long)
	assert.Equal(t, strings.Repeat("ü", 50)+"...", got)
}

func TestDeliver_RecipientByRole(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	conv := f.orgConversation(t)

	tokens := memTokens{
		f.org.Id:      {"org-device"},
		f.homeless.Id: {"phone-1", "phone-2"},
	}
	sender := &pushRecorder{}
	svc := NewNotificationService(f.store, f.dir, tokens, sender, nil)

	sent := svc.Deliver(ctx, &NewMessageJob{
		ConversationId: conv.Id,
		MessageId:      "m-1",
		SenderId:       f.homeless.Id,
		SenderRole:     "homeless",
		SenderName:     "Sam",
		Text:           strings.Repeat("x", 80),
	})
	assert.Equal(t, 1, sent)
	require.Len(t, sender.sent, 1)
	n := sender.sent[0]
	assert.Equal(t, "org-device", n.Token)
	assert.Equal(t, "Sam", n.Title)
	assert.Equal(t, strings.Repeat("x", 50)+"...", n.Body)
	assert.Equal(t, map[string]string{
		"type":           constant.NotificationTypeChatMessage,
		"conversationId": conv.Id,
		"messageId":      "m-1",
	}, n.Data)

	for _, role := range []string{"organization", "admin"} {
		sender.sent = nil
		sent = svc.Deliver(ctx, &NewMessageJob{ConversationId: conv.Id, MessageId: "m-2", SenderRole: role, Text: "hi"})
		assert.Equal(t, 2, sent, role)
		assert.Equal(t, "phone-1", sender.sent[0].Token)
	}
}

func TestDeliver_FailuresAreSwallowed(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	conv := f.orgConversation(t)

	tokens := memTokens{f.homeless.Id: {"bad", "good"}}
	sender := &pushRecorder{failFor: map[string]bool{"bad": true}}
	svc := NewNotificationService(f.store, f.dir, tokens, sender, nil)

	sent := svc.Deliver(ctx, &NewMessageJob{ConversationId: conv.Id, MessageId: "m", SenderRole: "organization", Text: "hi"})
	assert.Equal(t, 1, sent)
	assert.Equal(t, "good", sender.sent[0].Token)
}

func TestDeliver_NoTokensIsNoop(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	conv := f.orgConversation(t)

	sender := &pushRecorder{}
	svc := NewNotificationService(f.store, f.dir, memTokens{}, sender, nil)

	assert.Equal(t, 0, svc.Deliver(ctx, &NewMessageJob{ConversationId: conv.Id, SenderRole: "merchant", Text: "hi"}))
	assert.Equal(t, 0, svc.Deliver(ctx, &NewMessageJob{ConversationId: "missing", SenderRole: "merchant", Text: "hi"}))
	assert.Empty(t, sender.sent)
}

// onlineSet is a Presence backed by a fixed set of account ids
type onlineSet map[string]bool

func (o onlineSet) IsOnline(_ context.Context, userId string) bool { return o[userId] }

func TestDeliver_SkipsConnectedRecipient(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	conv := f.orgConversation(t)

	tokens := memTokens{
		f.org.Id:      {"org-device"},
		f.homeless.Id: {"phone-1"},
	}
	sender := &pushRecorder{}
	svc := NewNotificationService(f.store, f.dir, tokens, sender, onlineSet{f.homeless.Id: true})

	// the homeless recipient is connected and sees the message live
	sent := svc.Deliver(ctx, &NewMessageJob{ConversationId: conv.Id, MessageId: "m-1", SenderRole: "organization", Text: "hi"})
	assert.Equal(t, 0, sent)
	assert.Empty(t, sender.sent)

	// the organization is offline and gets the push
	sent = svc.Deliver(ctx, &NewMessageJob{ConversationId: conv.Id, MessageId: "m-2", SenderId: f.homeless.Id, SenderRole: "homeless", Text: "hello"})
	assert.Equal(t, 1, sent)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "org-device", sender.sent[0].Token)
}
