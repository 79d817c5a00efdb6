package service

import (
	"context"
	"sort"

	"github.com/mbeoliero/haven/common"
	"github.com/mbeoliero/haven/internal/entity"
	"github.com/mbeoliero/haven/pkg/constant"
	"github.com/mbeoliero/haven/pkg/errcode"
	"github.com/mbeoliero/haven/pkg/idgen"
	"github.com/mbeoliero/kit/log"
)

// CounterpartyResolution is the tagged outcome of resolving a shared route id
// that may name either an organization or a merchant.
type CounterpartyResolution struct {
	Ref      entity.CounterpartyRef
	Resolved bool
	// Ambiguous is set when the id names a live organization and a live merchant;
	// the organization wins.
	Ambiguous bool
	Name      string
}

// ConversationService handles conversation lookup, creation and listing
type ConversationService struct {
	store  ChatStore
	dir    Directory
	access AccessResolver
}

// NewConversationService creates a new ConversationService
func NewConversationService(store ChatStore, dir Directory) *ConversationService {
	return &ConversationService{
		store: store,
		dir:   dir,
	}
}

// ResolveCounterparty looks counterpartyId up as an organization and as a merchant
func (s *ConversationService) ResolveCounterparty(ctx context.Context, counterpartyId string) (*CounterpartyResolution, error) {
	org, err := s.dir.GetOrganization(ctx, counterpartyId)
	if err != nil {
		return nil, err
	}
	mer, err := s.dir.GetMerchant(ctx, counterpartyId)
	if err != nil {
		return nil, err
	}

	res := &CounterpartyResolution{}
	switch {
	case org.Active():
		res.Ref = entity.CounterpartyRef{Kind: constant.CounterpartyOrganization, Id: org.Id}
		res.Resolved = true
		res.Name = org.Name
		res.Ambiguous = mer.Active()
	case mer.Active():
		res.Ref = entity.CounterpartyRef{Kind: constant.CounterpartyMerchant, Id: mer.Id}
		res.Resolved = true
		res.Name = mer.Name
	}
	return res, nil
}

// GetOrCreate returns the live conversation between homelessId and the
// organization or merchant named by counterpartyId, creating an empty one
// when none exists. History is included.
func (s *ConversationService) GetOrCreate(ctx context.Context, principal *common.Principal, homelessId, counterpartyId string) (*entity.Conversation, error) {
	if err := entity.ValidateProfileId(homelessId, "homeless"); err != nil {
		return nil, err
	}
	if err := entity.ValidateProfileId(counterpartyId, "counterparty"); err != nil {
		return nil, err
	}
	// outsiders learn nothing about which ids exist
	if err := s.access.AuthorizePair(principal, homelessId, counterpartyId); err != nil {
		return nil, err
	}

	res, err := s.ResolveCounterparty(ctx, counterpartyId)
	if err != nil {
		log.CtxError(ctx, "resolve counterparty failed: counterparty_id=%s, error=%v", counterpartyId, err)
		return nil, errcode.ErrInternalServer
	}
	if !res.Resolved {
		return nil, errcode.ErrCounterpartyMissing
	}
	if res.Ambiguous {
		log.CtxWarn(ctx, "counterparty id names both an organization and a merchant, using organization: counterparty_id=%s", counterpartyId)
	}

	homeless, err := s.dir.GetHomeless(ctx, homelessId)
	if err != nil {
		log.CtxError(ctx, "get homeless profile failed: homeless_id=%s, error=%v", homelessId, err)
		return nil, errcode.ErrInternalServer
	}
	if !homeless.Active() {
		return nil, errcode.ErrHomelessNotFound
	}

	shell := entity.NewConversation(idgen.NewConversationId(), homelessId, res.Ref, entity.NowUnixMilli())
	if err := s.access.Authorize(principal, shell); err != nil {
		return nil, err
	}

	conv, err := s.store.FindActiveConversation(ctx, res.Ref, homelessId)
	if err != nil {
		log.CtxError(ctx, "find conversation failed: homeless_id=%s, counterparty_id=%s, error=%v", homelessId, counterpartyId, err)
		return nil, errcode.ErrInternalServer
	}
	if conv == nil {
		conv, err = s.store.CreateConversation(ctx, shell)
		if err != nil {
			log.CtxError(ctx, "create conversation failed: homeless_id=%s, counterparty_id=%s, error=%v", homelessId, counterpartyId, err)
			return nil, errcode.ErrInternalServer
		}
		if conv.Id == shell.Id {
			log.CtxInfo(ctx, "conversation created: conversation_id=%s, homeless_id=%s, %s_id=%s",
				conv.Id, homelessId, res.Ref.Kind, res.Ref.Id)
		}
	}

	msgs, err := s.store.ListMessages(ctx, conv.Id)
	if err != nil {
		log.CtxError(ctx, "list messages failed: conversation_id=%s, error=%v", conv.Id, err)
		return nil, errcode.ErrInternalServer
	}
	conv.Messages = msgs
	return conv, nil
}

// LoadAuthorized fetches a live conversation and checks that principal participates in it
func (s *ConversationService) LoadAuthorized(ctx context.Context, principal *common.Principal, conversationId string) (*entity.Conversation, error) {
	if err := entity.ValidateConversationId(conversationId); err != nil {
		return nil, err
	}

	conv, err := s.store.GetConversation(ctx, conversationId)
	if err != nil {
		log.CtxError(ctx, "get conversation failed: conversation_id=%s, error=%v", conversationId, err)
		return nil, errcode.ErrInternalServer
	}
	if conv == nil || conv.IsDeleted {
		return nil, errcode.ErrConvNotFound
	}

	if err := s.access.Authorize(principal, conv); err != nil {
		log.CtxDebug(ctx, "conversation access denied: principal=%s, conversation_id=%s", principal, conversationId)
		return nil, err
	}
	return conv, nil
}

// GetConversation returns one conversation without its history
func (s *ConversationService) GetConversation(ctx context.Context, principal *common.Principal, conversationId string) (*entity.Conversation, error) {
	return s.LoadAuthorized(ctx, principal, conversationId)
}

// ListConversations returns the principal's conversations, most recently updated first
func (s *ConversationService) ListConversations(ctx context.Context, principal *common.Principal) ([]*entity.ConversationSummary, error) {
	party := PartyFor(principal)
	filter, ok := party.ListFilter()
	if !ok {
		return nil, errcode.ErrAccessDenied
	}

	convs, err := s.store.ListConversations(ctx, filter)
	if err != nil {
		log.CtxError(ctx, "list conversations failed: principal=%s, error=%v", principal, err)
		return nil, errcode.ErrInternalServer
	}

	names := make(map[ProfileRef]*entity.PartySummary)
	summaryOf := func(ref ProfileRef) *entity.PartySummary {
		if ps, ok := names[ref]; ok {
			return ps
		}
		ps := &entity.PartySummary{Id: ref.Id, Role: string(ref.Role)}
		profile, err := lookupProfile(ctx, s.dir, ref)
		if err != nil {
			log.CtxWarn(ctx, "lookup profile for summary failed: role=%s, id=%s, error=%v", ref.Role, ref.Id, err)
		} else if profile != nil {
			ps.Name = profile.Name
		}
		names[ref] = ps
		return ps
	}

	result := make([]*entity.ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		if conv.IsDeleted {
			continue
		}
		counterparty := counterpartyProfileRef(conv.Counterparty())
		homeless := ProfileRef{Role: common.RoleHomeless, Id: conv.HomelessId}

		summary := &entity.ConversationSummary{
			Id:              conv.Id,
			LastMessageId:   conv.LastMessageId,
			LastMessageText: conv.LastMessageText,
			LastMessageAt:   conv.LastMessageAt,
			UnreadCount:     conv.Counter(party.OwnUnreadCounter()),
			UnreadCounts:    conv.Counts(),
			UpdatedAt:       conv.UpdatedAt,
		}
		switch party.Role() {
		case common.RoleHomeless:
			summary.Counterpart = summaryOf(counterparty)
		case common.RoleOrganization, common.RoleMerchant:
			summary.Counterpart = summaryOf(homeless)
		default:
			summary.Counterpart = summaryOf(counterparty)
			summary.Homeless = summaryOf(homeless)
		}
		result = append(result, summary)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].UpdatedAt > result[j].UpdatedAt
	})
	return result, nil
}

// SoftDelete hides a conversation for good. Admin only.
func (s *ConversationService) SoftDelete(ctx context.Context, principal *common.Principal, conversationId string) error {
	if principal == nil || principal.Role != common.RoleAdmin {
		return errcode.ErrAccessDenied
	}

	conv, err := s.LoadAuthorized(ctx, principal, conversationId)
	if err != nil {
		return err
	}

	if err := s.store.SoftDeleteConversation(ctx, conv.Id, entity.NowUnixMilli()); err != nil {
		log.CtxError(ctx, "soft delete conversation failed: conversation_id=%s, error=%v", conv.Id, err)
		return errcode.ErrInternalServer
	}
	log.CtxInfo(ctx, "conversation soft deleted: conversation_id=%s, by=%s", conv.Id, principal)
	return nil
}
