package service

import (
	"github.com/mbeoliero/haven/common"
	"github.com/mbeoliero/haven/internal/entity"
	"github.com/mbeoliero/haven/pkg/constant"
	"github.com/mbeoliero/haven/pkg/errcode"
)

// AccessResolver is the single participation check used by every entry point:
// fetch messages, send, mark read, channel join, typing and read receipts.
type AccessResolver struct{}

// HasAccess decides participation rights of principal in conv
func (AccessResolver) HasAccess(principal *common.Principal, conv *entity.Conversation) bool {
	if principal == nil || conv == nil {
		return false
	}
	return PartyFor(principal).CanAccess(conv)
}

// Authorize returns ErrAccessDenied when the principal is not a participant
func (r AccessResolver) Authorize(principal *common.Principal, conv *entity.Conversation) error {
	if !r.HasAccess(principal, conv) {
		return errcode.ErrAccessDenied
	}
	return nil
}

// AuthorizePair checks, before anything is looked up, that principal would
// take part in a conversation between homelessId and counterpartyId, whichever
// kind the counterparty turns out to be
func (r AccessResolver) AuthorizePair(principal *common.Principal, homelessId, counterpartyId string) error {
	for _, kind := range []string{constant.CounterpartyOrganization, constant.CounterpartyMerchant} {
		shell := entity.NewConversation("", homelessId, entity.CounterpartyRef{Kind: kind, Id: counterpartyId}, 0)
		if r.HasAccess(principal, shell) {
			return nil
		}
	}
	return errcode.ErrAccessDenied
}
