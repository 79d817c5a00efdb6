package tests

import (
	"context"
	"fmt"
	"testing"

	"github.com/mbeoliero/haven/sdk"
)

// TestFullFlow_HomelessMerchant walks one conversation from creation to read receipt
func TestFullFlow_HomelessMerchant(t *testing.T) {
	ctx := context.Background()
	homeless, homelessId, merchant, merchantId := parties(t)

	t.Log("Step 1: get or create the conversation from both sides")
	conv, err := homeless.GetOrCreateConversation(ctx, homelessId, merchantId)
	if err != nil {
		t.Fatalf("get or create failed: %v", err)
	}
	again, err := merchant.GetOrCreateConversationByPath(ctx, homelessId, merchantId)
	if err != nil {
		t.Fatalf("get or create by path failed: %v", err)
	}
	if again.Id != conv.Id {
		t.Fatalf("expected the same conversation, got %s and %s", conv.Id, again.Id)
	}
	if conv.MerchantId == nil || *conv.MerchantId != merchantId || conv.OrganizationId != nil {
		t.Fatalf("unexpected counterparty: %+v", conv)
	}

	// Start from a clean counter for the homeless side
	if _, err := homeless.MarkRead(ctx, conv.Id); err != nil {
		t.Fatalf("initial mark read failed: %v", err)
	}

	t.Log("Step 2: merchant sends messages")
	for i := 1; i <= 3; i++ {
		msg, err := merchant.SendMessage(ctx, conv.Id, fmt.Sprintf("Hello %d from merchant", i))
		if err != nil {
			t.Fatalf("send message failed: %v", err)
		}
		if msg.SenderRole != sdk.RoleMerchant || msg.Read {
			t.Errorf("unexpected message: %+v", msg)
		}
	}

	t.Log("Step 3: homeless sees unread count")
	got, err := homeless.GetConversation(ctx, conv.Id)
	if err != nil {
		t.Fatalf("get conversation failed: %v", err)
	}
	if got.UnreadCountHomeless != 3 {
		t.Errorf("expected unread_count_homeless=3, got %d", got.UnreadCountHomeless)
	}
	if got.LastMessageText != "Hello 3 from merchant" {
		t.Errorf("unexpected last message: %q", got.LastMessageText)
	}

	list, err := homeless.GetConversationList(ctx)
	if err != nil {
		t.Fatalf("list conversations failed: %v", err)
	}
	found := false
	for _, s := range list {
		if s.Id == conv.Id {
			found = true
			if s.UnreadCount != 3 {
				t.Errorf("expected list unread_count=3, got %d", s.UnreadCount)
			}
		}
	}
	if !found {
		t.Errorf("conversation %s missing from list", conv.Id)
	}

	t.Log("Step 4: homeless reads")
	receipt, err := homeless.MarkRead(ctx, conv.Id)
	if err != nil {
		t.Fatalf("mark read failed: %v", err)
	}
	if receipt.UnreadCountHomeless != 0 || receipt.ReaderRole != sdk.RoleHomeless {
		t.Errorf("unexpected receipt: %+v", receipt)
	}

	msgs, err := merchant.GetMessages(ctx, conv.Id)
	if err != nil {
		t.Fatalf("get messages failed: %v", err)
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i-1].Seq >= msgs[i].Seq {
			t.Fatalf("messages out of order at %d", i)
		}
	}
	for _, m := range msgs {
		if m.SenderRole == sdk.RoleMerchant && !m.Read {
			t.Errorf("merchant message %s still unread", m.Id)
		}
	}
}

func TestChat_Errors(t *testing.T) {
	ctx := context.Background()
	homeless, homelessId, _, _ := parties(t)

	t.Run("unknown counterparty", func(t *testing.T) {
		_, err := homeless.GetOrCreateConversation(ctx, homelessId, "00000000-0000-0000-0000-000000000001")
		assertCode(t, err, sdk.CodeCounterpartyMissing)
	})

	t.Run("unknown conversation", func(t *testing.T) {
		_, err := homeless.GetConversation(ctx, "00000000-0000-0000-0000-000000000000")
		assertCode(t, err, sdk.CodeConvNotFound)
	})

	t.Run("donor cannot read conversations", func(t *testing.T) {
		_, err := newClientAs(t, "donor-it", sdk.RoleDonor).GetConversationList(ctx)
		assertCode(t, err, sdk.CodeAccessDenied)
	})

	t.Run("push token requires a token", func(t *testing.T) {
		err := homeless.RegisterPushToken(ctx, "", sdk.PlatformIOS)
		assertCode(t, err, sdk.CodeInvalidParam)
	})

	t.Run("push token round trip", func(t *testing.T) {
		if err := homeless.RegisterPushToken(ctx, "ExponentPushToken[it]", sdk.PlatformIOS); err != nil {
			t.Fatalf("register failed: %v", err)
		}
		if err := homeless.UnregisterPushToken(ctx, "ExponentPushToken[it]"); err != nil {
			t.Fatalf("unregister failed: %v", err)
		}
	})
}
