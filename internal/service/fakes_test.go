package service

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/mbeoliero/haven/common"
	"github.com/mbeoliero/haven/internal/entity"
	"github.com/mbeoliero/haven/pkg/constant"
)

// memStore is an in-memory ChatStore; one mutex stands in for the row lock
type memStore struct {
	mu    sync.Mutex
	convs map[string]*entity.Conversation
	msgs  map[string][]*entity.ChatMessage
}

func newMemStore() *memStore {
	return &memStore{
		convs: make(map[string]*entity.Conversation),
		msgs:  make(map[string][]*entity.ChatMessage),
	}
}

func cloneConv(c *entity.Conversation) *entity.Conversation {
	cp := *c
	cp.Messages = nil
	return &cp
}

func (m *memStore) GetConversation(_ context.Context, id string) (*entity.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.convs[id]
	if !ok {
		return nil, nil
	}
	return cloneConv(c), nil
}

func (m *memStore) FindActiveConversation(_ context.Context, ref entity.CounterpartyRef, homelessId string) (*entity.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := ref.PairKey(homelessId)
	for _, c := range m.convs {
		if c.PairKey == key && !c.IsDeleted {
			return cloneConv(c), nil
		}
	}
	return nil, nil
}

func (m *memStore) CreateConversation(_ context.Context, conv *entity.Conversation) (*entity.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.convs {
		if c.PairKey == conv.PairKey && !c.IsDeleted {
			return cloneConv(c), nil
		}
	}
	m.convs[conv.Id] = cloneConv(conv)
	return cloneConv(conv), nil
}

func (m *memStore) ListConversations(_ context.Context, f ConversationFilter) ([]*entity.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Conversation
	for _, c := range m.convs {
		if c.IsDeleted {
			continue
		}
		if f.HomelessId != "" && c.HomelessId != f.HomelessId {
			continue
		}
		if f.OrganizationId != "" && (!c.HasOrganization() || *c.OrganizationId != f.OrganizationId) {
			continue
		}
		if f.MerchantId != "" && (!c.HasMerchant() || *c.MerchantId != f.MerchantId) {
			continue
		}
		out = append(out, cloneConv(c))
	}
	return out, nil
}

func (m *memStore) SoftDeleteConversation(_ context.Context, id string, at int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.convs[id]; ok {
		c.IsDeleted = true
		c.DeletedAt = &at
		c.PairKey = c.PairKey + "#deleted#" + c.Id
	}
	return nil
}

func (m *memStore) AppendMessage(_ context.Context, conversationId string, msg *entity.ChatMessage, bump constant.UnreadCounter) (*entity.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.convs[conversationId]
	if !ok || c.IsDeleted {
		return nil, nil
	}
	msg.Seq = c.MessageSeq + 1
	msg.CreatedAt = entity.NowUnixMilli()
	if msg.CreatedAt < c.LastMessageAt {
		msg.CreatedAt = c.LastMessageAt
	}
	stored := *msg
	m.msgs[conversationId] = append(m.msgs[conversationId], &stored)
	c.ApplyMessage(msg, bump)
	return cloneConv(c), nil
}

func (m *memStore) ListMessages(_ context.Context, conversationId string) ([]*entity.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*entity.ChatMessage, 0, len(m.msgs[conversationId]))
	for _, msg := range m.msgs[conversationId] {
		cp := *msg
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}

func (m *memStore) MarkRead(_ context.Context, conversationId, readerId string, reset constant.UnreadCounter, at int64) (*entity.Conversation, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.convs[conversationId]
	if !ok || c.IsDeleted {
		return nil, 0, nil
	}
	var n int64
	for _, msg := range m.msgs[conversationId] {
		if msg.IsUnreadFor(readerId) {
			msg.MarkRead(at)
			n++
		}
	}
	c.ResetCounter(reset)
	return cloneConv(c), n, nil
}

// memDirectory holds profiles keyed by id per role
type memDirectory struct {
	orgs     map[string]*entity.Profile
	merchant map[string]*entity.Profile
	homeless map[string]*entity.Profile
	accounts map[string]*entity.Account
}

func newMemDirectory() *memDirectory {
	return &memDirectory{
		orgs:     make(map[string]*entity.Profile),
		merchant: make(map[string]*entity.Profile),
		homeless: make(map[string]*entity.Profile),
		accounts: make(map[string]*entity.Account),
	}
}

func (d *memDirectory) table(role common.RoleType) map[string]*entity.Profile {
	switch role {
	case common.RoleOrganization:
		return d.orgs
	case common.RoleMerchant:
		return d.merchant
	case common.RoleHomeless:
		return d.homeless
	}
	return nil
}

// add registers a profile plus its owning account and returns the principal acting for it
func (d *memDirectory) add(role common.RoleType, name string) *common.Principal {
	p := &entity.Profile{Id: uuid.NewString(), Role: string(role), AccountId: "acc-" + uuid.NewString(), Name: name}
	d.table(role)[p.Id] = p
	d.accounts[p.AccountId] = &entity.Account{Id: p.AccountId, Role: string(role), DisplayName: name}
	return &common.Principal{Id: p.AccountId, Role: role, ProfileId: p.Id, DisplayName: name}
}

func (d *memDirectory) GetOrganization(_ context.Context, id string) (*entity.Profile, error) {
	return d.orgs[id], nil
}

func (d *memDirectory) GetMerchant(_ context.Context, id string) (*entity.Profile, error) {
	return d.merchant[id], nil
}

func (d *memDirectory) GetHomeless(_ context.Context, id string) (*entity.Profile, error) {
	return d.homeless[id], nil
}

func (d *memDirectory) ProfileForAccount(_ context.Context, role common.RoleType, accountId string) (*entity.Profile, error) {
	for _, p := range d.table(role) {
		if p.AccountId == accountId {
			return p, nil
		}
	}
	return nil, nil
}

func (d *memDirectory) GetAccount(_ context.Context, accountId string) (*entity.Account, error) {
	return d.accounts[accountId], nil
}

type sentEvent struct {
	channel string
	exclude string
	event   *Event
}

// recordingBroadcaster captures every broadcast
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []sentEvent
}

func (b *recordingBroadcaster) BroadcastToConversation(_ context.Context, conversationId string, event *Event, excludeUserId string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, sentEvent{channel: constant.ConversationChannel(conversationId), exclude: excludeUserId, event: event})
}

func (b *recordingBroadcaster) BroadcastToUser(_ context.Context, userId string, event *Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, sentEvent{channel: constant.UserChannel(userId), event: event})
}

func (b *recordingBroadcaster) ConversationHasSubscriber(string) bool { return false }

func (b *recordingBroadcaster) channels(t EventType) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, e := range b.events {
		if e.event.Type == t {
			out = append(out, e.channel)
		}
	}
	return out
}

// queueRecorder is a NotificationQueue collecting jobs
type queueRecorder struct {
	mu   sync.Mutex
	jobs []*NewMessageJob
}

func (q *queueRecorder) Enqueue(_ context.Context, job *NewMessageJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

type memTokens map[string][]string

func (m memTokens) TokensForAccount(_ context.Context, accountId string) ([]string, error) {
	return m[accountId], nil
}

func (m memTokens) Register(_ context.Context, accountId, token, _ string) error {
	m[accountId] = append(m[accountId], token)
	return nil
}

func (m memTokens) Unregister(context.Context, string, string) error { return nil }

// pushRecorder is a PushSender that fails for tokens listed in failFor
type pushRecorder struct {
	sent    []*PushNotification
	failFor map[string]bool
}

func (p *pushRecorder) Send(_ context.Context, n *PushNotification) error {
	if p.failFor[n.Token] {
		return context.DeadlineExceeded
	}
	p.sent = append(p.sent, n)
	return nil
}

// fixture wires the services against in-memory fakes
type fixture struct {
	store *memStore
	dir   *memDirectory
	bc    *recordingBroadcaster
	queue *queueRecorder

	convs    *ConversationService
	messages *MessageService
	channels *ChannelService

	org      *common.Principal
	merchant *common.Principal
	homeless *common.Principal
	admin    *common.Principal
	donor    *common.Principal
}

func newFixture() *fixture {
	f := &fixture{
		store: newMemStore(),
		dir:   newMemDirectory(),
		bc:    &recordingBroadcaster{},
		queue: &queueRecorder{},
	}
	f.org = f.dir.add(common.RoleOrganization, "Shelter Org")
	f.merchant = f.dir.add(common.RoleMerchant, "Corner Bakery")
	f.homeless = f.dir.add(common.RoleHomeless, "Sam")
	f.admin = &common.Principal{Id: "acc-admin", Role: common.RoleAdmin, DisplayName: "Admin"}
	f.donor = &common.Principal{Id: "acc-donor", Role: common.RoleDonor, DisplayName: "Donor"}

	f.convs = NewConversationService(f.store, f.dir)
	f.messages = NewMessageService(f.store, f.dir, f.convs,
		WithBroadcaster(f.bc), WithNotificationQueue(f.queue), WithMaxMessageRunes(100))
	f.channels = NewChannelService(f.convs, f.bc)
	return f
}
