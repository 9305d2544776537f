package main

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// InviteStatus is the lifecycle state of an invite
type InviteStatus string

const (
	InvitePending  InviteStatus = "PENDING"
	InviteAccepted InviteStatus = "ACCEPTED"
	InviteRejected InviteStatus = "REJECTED"
)

// InviteTypeGame is the only invite type the server issues
const InviteTypeGame = "GAME"

const (
	maxPendingInvites = 3
	inviteRetention   = time.Hour
	storeTimeout      = 2 * time.Second
)

// Invite is a direct challenge from one user to another
type Invite struct {
	ID         string
	SenderID   int64
	ReceiverID int64
	Type       string
	Status     InviteStatus
	CreatedAt  time.Time
	ResolvedAt time.Time
}

// InviteStore persists invites. Failures are logged and do not fail the
// in-memory operation.
type InviteStore interface {
	SaveInvite(ctx context.Context, inv Invite) error
	UpdateInviteStatus(ctx context.Context, id string, status InviteStatus) error
}

type invitePair struct {
	sender, receiver int64
}

// InviteManager tracks invites and enforces the pending cap per
// sender/receiver pair.
type InviteManager struct {
	mu      sync.Mutex
	invites map[string]*Invite
	pending map[invitePair]int

	store InviteStore
	log   *zap.Logger
	now   func() time.Time
}

// NewInviteManager creates a manager. store may be nil.
func NewInviteManager(store InviteStore, log *zap.Logger) *InviteManager {
	return &InviteManager{
		invites: make(map[string]*Invite),
		pending: make(map[invitePair]int),
		store:   store,
		log:     log.Named("invites"),
		now:     time.Now,
	}
}

// Create records a new PENDING invite. It fails with ErrInviteLimit when
// the sender already has three pending invites to the receiver.
func (m *InviteManager) Create(senderID, receiverID int64) (Invite, error) {
	if senderID == receiverID {
		return Invite{}, ErrSelfInvite
	}

	m.mu.Lock()
	now := m.now()
	m.pruneLocked(now)
	key := invitePair{senderID, receiverID}
	if m.pending[key] >= maxPendingInvites {
		m.mu.Unlock()
		return Invite{}, ErrInviteLimit
	}
	inv := &Invite{
		ID:         GenerateID(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Type:       InviteTypeGame,
		Status:     InvitePending,
		CreatedAt:  now,
	}
	m.invites[inv.ID] = inv
	m.pending[key]++
	out := *inv
	m.mu.Unlock()

	m.persist(func(ctx context.Context) error { return m.store.SaveInvite(ctx, out) }, out.ID)
	return out, nil
}

// Get returns a copy of the invite with the given id
func (m *InviteManager) Get(id string) (Invite, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invites[id]
	if !ok {
		return Invite{}, false
	}
	return *inv, true
}

// Accept moves a PENDING invite to ACCEPTED. Only the receiver may accept.
func (m *InviteManager) Accept(id string, userID int64) (Invite, error) {
	return m.resolve(id, userID, InviteAccepted)
}

// Reject moves a PENDING invite to REJECTED. Only the receiver may reject.
func (m *InviteManager) Reject(id string, userID int64) (Invite, error) {
	return m.resolve(id, userID, InviteRejected)
}

func (m *InviteManager) resolve(id string, userID int64, status InviteStatus) (Invite, error) {
	m.mu.Lock()
	inv, ok := m.invites[id]
	if !ok {
		m.mu.Unlock()
		return Invite{}, ErrInviteNotFound
	}
	if inv.ReceiverID != userID {
		m.mu.Unlock()
		return Invite{}, ErrNotInvitee
	}
	if inv.Status != InvitePending {
		m.mu.Unlock()
		return Invite{}, ErrInviteNotPending
	}
	inv.Status = status
	inv.ResolvedAt = m.now()
	key := invitePair{inv.SenderID, inv.ReceiverID}
	if m.pending[key]--; m.pending[key] <= 0 {
		delete(m.pending, key)
	}
	out := *inv
	m.mu.Unlock()

	m.persist(func(ctx context.Context) error { return m.store.UpdateInviteStatus(ctx, id, status) }, id)
	return out, nil
}

// PendingCount returns how many invites sender has outstanding to receiver
func (m *InviteManager) PendingCount(senderID, receiverID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending[invitePair{senderID, receiverID}]
}

// pruneLocked forgets resolved invites older than the retention window
func (m *InviteManager) pruneLocked(now time.Time) {
	for id, inv := range m.invites {
		if inv.Status != InvitePending && now.Sub(inv.ResolvedAt) > inviteRetention {
			delete(m.invites, id)
		}
	}
}

func (m *InviteManager) persist(fn func(ctx context.Context) error, id string) {
	if m.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		m.log.Warn("persist invite failed", zap.String("invite_id", id), zap.Error(err))
	}
}
