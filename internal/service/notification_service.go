package service

import (
	"context"

	"github.com/mbeoliero/haven/common"
	"github.com/mbeoliero/haven/internal/metrics"
	"github.com/mbeoliero/haven/pkg/constant"
	"github.com/mbeoliero/kit/log"
)

// NotificationService turns a sent message into device pushes for a recipient
// who is not connected. Every failure ends here: it is logged and never retried.
type NotificationService struct {
	store    ChatStore
	dir      Directory
	tokens   PushTokenRegistry
	sender   PushSender
	presence Presence
}

// NewNotificationService creates a new NotificationService.
// A nil presence pushes to every recipient.
func NewNotificationService(store ChatStore, dir Directory, tokens PushTokenRegistry, sender PushSender, presence Presence) *NotificationService {
	return &NotificationService{
		store:    store,
		dir:      dir,
		tokens:   tokens,
		sender:   sender,
		presence: presence,
	}
}

// Deliver executes one notification job and returns the number of pushes accepted
func (s *NotificationService) Deliver(ctx context.Context, job *NewMessageJob) int {
	conv, err := s.store.GetConversation(ctx, job.ConversationId)
	if err != nil {
		log.CtxWarn(ctx, "notification: load conversation failed: conversation_id=%s, error=%v", job.ConversationId, err)
		metrics.NotificationJobs.WithLabelValues("error").Inc()
		return 0
	}
	if conv == nil || conv.IsDeleted {
		metrics.NotificationJobs.WithLabelValues("skipped").Inc()
		return 0
	}

	senderRole, _ := common.ParseRole(job.SenderRole)
	recipient := PartyFor(&common.Principal{Id: job.SenderId, Role: senderRole}).NotificationRecipient(conv)

	profile, err := lookupProfile(ctx, s.dir, recipient)
	if err != nil {
		log.CtxWarn(ctx, "notification: resolve recipient failed: role=%s, id=%s, error=%v", recipient.Role, recipient.Id, err)
		metrics.NotificationJobs.WithLabelValues("error").Inc()
		return 0
	}
	if profile == nil || profile.AccountId == "" {
		metrics.NotificationJobs.WithLabelValues("skipped").Inc()
		return 0
	}
	// a live recipient already got the message on its personal channel
	if s.presence != nil && s.presence.IsOnline(ctx, profile.AccountId) {
		metrics.NotificationJobs.WithLabelValues("online").Inc()
		log.CtxDebug(ctx, "notification skipped, recipient online: message_id=%s, account_id=%s", job.MessageId, profile.AccountId)
		return 0
	}

	tokens, err := s.tokens.TokensForAccount(ctx, profile.AccountId)
	if err != nil {
		log.CtxWarn(ctx, "notification: load push tokens failed: account_id=%s, error=%v", profile.AccountId, err)
		metrics.NotificationJobs.WithLabelValues("error").Inc()
		return 0
	}
	if len(tokens) == 0 {
		metrics.NotificationJobs.WithLabelValues("no_tokens").Inc()
		return 0
	}

	data := map[string]string{
		"type":           constant.NotificationTypeChatMessage,
		"conversationId": job.ConversationId,
		"messageId":      job.MessageId,
	}
	body := Preview(job.Text)

	sent := 0
	for _, token := range tokens {
		err := s.sender.Send(ctx, &PushNotification{
			Token: token,
			Title: job.SenderName,
			Body:  body,
			Data:  data,
		})
		if err != nil {
			log.CtxWarn(ctx, "notification: push failed: account_id=%s, message_id=%s, error=%v", profile.AccountId, job.MessageId, err)
			metrics.PushSends.WithLabelValues("error").Inc()
			continue
		}
		metrics.PushSends.WithLabelValues("ok").Inc()
		sent++
	}

	metrics.NotificationJobs.WithLabelValues("delivered").Inc()
	log.CtxDebug(ctx, "notification delivered: message_id=%s, account_id=%s, sent=%d/%d", job.MessageId, profile.AccountId, sent, len(tokens))
	return sent
}

// Preview cuts text to the notification preview length
func Preview(text string) string {
	runes := []rune(text)
	if len(runes) <= constant.NotificationPreviewRunes {
		return text
	}
	return string(runes[:constant.NotificationPreviewRunes]) + constant.NotificationEllipsis
}
