package main

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const lookupTimeout = 2 * time.Second

// TokenVerifier turns an identity token into an Identity
type TokenVerifier interface {
	ValidateToken(token string) (Identity, error)
}

// UserDirectory resolves usernames
type UserDirectory interface {
	FindUserByUsername(ctx context.Context, username string) (Identity, error)
}

// ResultSink receives finished matches for persistence
type ResultSink interface {
	Submit(MatchResult)
}

// GatewayDeps are the collaborators a Gateway needs. Invites, Results and
// Metrics may be nil.
type GatewayDeps struct {
	Auth     TokenVerifier
	Users    UserDirectory
	Invites  InviteStore
	Results  ResultSink
	Settings GameSettings
	Metrics  *Metrics
	Logger   *zap.Logger
}

// Gateway authenticates inbound events and routes them to the queue, the
// invite manager and the rooms.
type Gateway struct {
	sessions *SessionRegistry
	queue    *MatchQueue
	invites  *InviteManager
	rooms    *RoomManager

	auth     TokenVerifier
	users    UserDirectory
	results  ResultSink
	settings GameSettings
	metrics  *Metrics
	log      *zap.Logger

	// rooms run under ctx; cancelling it cancels every room
	ctx     context.Context
	closing atomic.Bool
}

// NewGateway wires a gateway with empty registries
func NewGateway(ctx context.Context, d GatewayDeps) *Gateway {
	log := d.Logger.Named("gateway")
	return &Gateway{
		sessions: NewSessionRegistry(),
		queue:    NewMatchQueue(d.Metrics.SetQueueLength),
		invites:  NewInviteManager(d.Invites, d.Logger),
		rooms:    NewRoomManager(),
		auth:     d.Auth,
		users:    d.Users,
		results:  d.Results,
		settings: d.Settings,
		metrics:  d.Metrics,
		log:      log,
		ctx:      ctx,
	}
}

// Authenticate verifies a handshake token
func (g *Gateway) Authenticate(token string) (Identity, error) {
	ident, err := g.auth.ValidateToken(token)
	if err != nil {
		return Identity{}, ErrUnauthorized
	}
	return ident, nil
}

// Connect registers conn as the live connection for ident
func (g *Gateway) Connect(ident Identity, conn Conn) *Session {
	sess := g.sessions.Set(ident, conn)
	g.metrics.SetSessions(g.sessions.Count())
	g.log.Info("session connected",
		zap.Int64("user_id", ident.ID),
		zap.String("username", ident.Username),
		zap.Stringer("status", sess.Status()),
	)
	return sess
}

// Disconnect tears down the session behind conn. If the user has already
// reconnected on another socket nothing happens.
func (g *Gateway) Disconnect(userID int64, conn Conn) {
	sess := g.sessions.Remove(userID, conn)
	if sess == nil {
		return
	}
	g.metrics.SetSessions(g.sessions.Count())
	g.queue.RemoveAll(userID)

	if roomID, _ := sess.Room(); roomID != "" {
		if game := g.rooms.Get(roomID); game != nil {
			game.Leave(userID)
		}
	}
	g.log.Info("session disconnected", zap.Int64("user_id", userID))
}

// Dispatch handles one inbound event. token is re-verified on every event;
// any failure is reported back to conn as an error event.
func (g *Gateway) Dispatch(conn Conn, token string, env InEnvelope) {
	ident, err := g.auth.ValidateToken(token)
	if err != nil {
		conn.SendJSON(errorEnvelope(ErrUnauthorized))
		return
	}
	sess := g.sessions.Get(ident.ID)
	if sess == nil || sess.Conn() != conn {
		conn.SendJSON(errorEnvelope(ErrUnauthorized))
		return
	}

	switch env.T {
	case MsgRegister:
		err = g.handleRegister(sess, env.D)
	case MsgUnregister:
		err = g.handleUnregister(sess, env.D)
	case MsgInvite:
		err = g.handleInvite(sess, env.D)
	case MsgAccept:
		err = g.handleAccept(sess, env.D)
	case MsgReject:
		err = g.handleReject(sess, env.D)
	case MsgMoveMouse:
		err = g.handleMoveMouse(sess, env.D)
	case MsgMove:
		err = g.handleMove(sess, env.D)
	case MsgStartGame:
		err = g.handleStartGame(sess, env.D)
	default:
		err = ErrUnknownEvent
	}
	if err != nil {
		if errors.Is(publicError(err), errInternal) {
			g.log.Error("event failed", zap.String("event", env.T), zap.Int64("user_id", ident.ID), zap.Error(err))
		} else {
			g.log.Debug("event rejected", zap.String("event", env.T), zap.Int64("user_id", ident.ID), zap.Error(err))
		}
		conn.SendJSON(errorEnvelope(err))
	}
}

func decode(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return ErrBadPayload
	}
	return nil
}

func (g *Gateway) handleRegister(sess *Session, data json.RawMessage) error {
	var msg RegisterMsg
	if err := decode(data, &msg); err != nil {
		return err
	}
	v := VariantOf(msg.HasMiddleWall)
	p1, p2, err := g.queue.Enqueue(sess, v)
	if err != nil {
		return err
	}
	g.log.Info("player queued", zap.Int64("user_id", sess.UserID), zap.Stringer("variant", v))
	if p1 == nil {
		sess.Send(Envelope{T: MsgQueued, Data: QueuedMsg{HasMiddleWall: msg.HasMiddleWall}})
		return nil
	}

	err = g.openRoom(p1, p2, v.HasMiddleWall())
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrAlreadyInMatch):
		// one side was taken by an invite meanwhile; the other keeps its place
		g.requeue(v, p1, p2)
		defer g.matchWaiting(v)
		if g.queue.Queued(sess.UserID) {
			sess.Send(Envelope{T: MsgQueued, Data: QueuedMsg{HasMiddleWall: msg.HasMiddleWall}})
			return nil
		}
		return err
	}

	// the partner keeps its place; the sender is left as it was before
	// registering
	partner := p1
	if partner == sess {
		partner = p2
	}
	g.requeue(v, partner)
	sess.setWaitingIfIdle()
	g.matchWaiting(v)
	return err
}

// requeue puts the sessions that are still connected and free back at the
// head of the v queue, keeping their order.
func (g *Gateway) requeue(v Variant, players ...*Session) {
	for i := len(players) - 1; i >= 0; i-- {
		p := players[i]
		if !p.InMatch() && g.sessions.Get(p.UserID) == p {
			g.queue.Requeue(p, v)
		}
	}
}

// matchWaiting seats queued players of v two at a time until fewer than two
// remain or a room cannot be opened.
func (g *Gateway) matchWaiting(v Variant) {
	if g.closing.Load() {
		return
	}
	for {
		p1, p2 := g.queue.Pair(v)
		if p1 == nil {
			return
		}
		if err := g.openRoom(p1, p2, v.HasMiddleWall()); err != nil {
			g.requeue(v, p1, p2)
			g.log.Warn("queued pair not seated", zap.Stringer("variant", v), zap.Error(err))
			return
		}
	}
}

func (g *Gateway) handleUnregister(sess *Session, data json.RawMessage) error {
	var msg RegisterMsg
	if err := decode(data, &msg); err != nil {
		return err
	}
	if !g.queue.Remove(sess.UserID, VariantOf(msg.HasMiddleWall)) {
		return ErrNotQueued
	}
	if !g.queue.Queued(sess.UserID) {
		sess.setStatus(StatusWaiting)
	}
	return nil
}

func (g *Gateway) handleInvite(sess *Session, data json.RawMessage) error {
	var msg InviteMsg
	if err := decode(data, &msg); err != nil {
		return err
	}
	username := strings.TrimSpace(msg.Username)
	if username == "" {
		return ErrBadPayload
	}

	ctx, cancel := context.WithTimeout(g.ctx, lookupTimeout)
	defer cancel()
	target, err := g.users.FindUserByUsername(ctx, username)
	if err != nil {
		return err
	}
	if target.ID == sess.UserID {
		return ErrSelfInvite
	}

	inv, err := g.invites.Create(sess.UserID, target.ID)
	if err != nil {
		if errors.Is(err, ErrInviteLimit) {
			g.metrics.Invite("limited")
		}
		return err
	}
	g.metrics.Invite("sent")
	g.log.Info("invite sent",
		zap.String("invite_id", inv.ID),
		zap.Int64("user_id", sess.UserID),
		zap.Int64("receiver_id", target.ID),
	)

	if rs := g.sessions.Get(target.ID); rs != nil && rs.Status() == StatusWaiting {
		rs.Send(Envelope{T: MsgInvited, Data: InvitedMsg{ID: sess.UserID, Username: sess.Username, InviteID: inv.ID}})
	}
	sess.Send(Envelope{T: MsgInviteSent, Data: InviteSentMsg{InviteID: inv.ID, Username: target.Username}})
	return nil
}

func (g *Gateway) handleAccept(sess *Session, data json.RawMessage) error {
	var msg AcceptMsg
	if err := decode(data, &msg); err != nil {
		return err
	}
	inv, ok := g.invites.Get(msg.InviteID)
	if !ok {
		return ErrInviteNotFound
	}
	if inv.ReceiverID != sess.UserID {
		return ErrNotInvitee
	}
	if inv.Status != InvitePending {
		return ErrInviteNotPending
	}
	if sess.InMatch() {
		return ErrAlreadyInMatch
	}
	sender := g.sessions.Get(inv.SenderID)
	if sender == nil {
		return ErrInviterUnavailable
	}
	if st := sender.Status(); st != StatusWaiting && st != StatusQueued {
		return ErrInviterUnavailable
	}

	roomID := GenerateID()
	if err := reservePair(sender, sess, roomID); err != nil {
		return ErrInviterUnavailable
	}
	if _, err := g.invites.Accept(inv.ID, sess.UserID); err != nil {
		sender.leaveRoom(roomID)
		sess.leaveRoom(roomID)
		return err
	}
	g.metrics.Invite("accepted")
	g.log.Info("invite accepted", zap.String("invite_id", inv.ID), zap.Int64("user_id", sess.UserID))

	return g.startRoom(roomID, sender, sess, msg.HasMiddleWall)
}

func (g *Gateway) handleReject(sess *Session, data json.RawMessage) error {
	var msg RejectMsg
	if err := decode(data, &msg); err != nil {
		return err
	}
	inv, err := g.invites.Reject(msg.InviteID, sess.UserID)
	if err != nil {
		return err
	}
	g.metrics.Invite("rejected")
	g.log.Info("invite rejected", zap.String("invite_id", inv.ID), zap.Int64("user_id", sess.UserID))

	if sender := g.sessions.Get(inv.SenderID); sender != nil && sender.Status() == StatusWaiting {
		sender.Send(Envelope{T: MsgRejected, Data: InvitedMsg{ID: sess.UserID, Username: sess.Username, InviteID: inv.ID}})
	}
	return nil
}

// participant returns the room roomID and the sender's slot in it
func (g *Gateway) participant(sess *Session, roomID string) (*Game, int, error) {
	game := g.rooms.Get(roomID)
	if game == nil {
		return nil, 0, ErrRoomNotFound
	}
	no := game.PlayerNo(sess.UserID)
	if no == 0 {
		return nil, 0, ErrNotParticipant
	}
	return game, no, nil
}

func (g *Gateway) handleMoveMouse(sess *Session, data json.RawMessage) error {
	var msg MoveMouseMsg
	if err := decode(data, &msg); err != nil {
		return err
	}
	if msg.Y == nil {
		return ErrBadPayload
	}
	game, no, err := g.participant(sess, msg.RoomID)
	if err != nil {
		return err
	}
	game.MoveMouse(no, *msg.Y)
	return nil
}

func (g *Gateway) handleMove(sess *Session, data json.RawMessage) error {
	var msg MoveMsg
	if err := decode(data, &msg); err != nil {
		return err
	}
	game, no, err := g.participant(sess, msg.RoomID)
	if err != nil {
		return err
	}
	game.Move(no, msg.Key, msg.IsPressed)
	return nil
}

func (g *Gateway) handleStartGame(sess *Session, data json.RawMessage) error {
	var msg StartGameMsg
	if err := decode(data, &msg); err != nil {
		return err
	}
	game, no, err := g.participant(sess, msg.RoomID)
	if err != nil {
		return err
	}
	return game.MarkReady(no)
}

// openRoom seats two queued players in a new room
func (g *Gateway) openRoom(p1, p2 *Session, hasMiddleWall bool) error {
	roomID := GenerateID()
	if err := reservePair(p1, p2, roomID); err != nil {
		return err
	}
	return g.startRoom(roomID, p1, p2, hasMiddleWall)
}

// startRoom creates and runs the room for an already reserved pair, then
// tells both players where they are.
func (g *Gateway) startRoom(roomID string, p1, p2 *Session, hasMiddleWall bool) error {
	game := NewGame(roomID, p1, p2, hasMiddleWall, g.settings, g.log, g.metrics)
	game.OnEnd(g.closeRoom)
	if err := g.rooms.Add(game); err != nil {
		p1.leaveRoom(roomID)
		p2.leaveRoom(roomID)
		return err
	}
	g.metrics.SetRooms(g.rooms.Count())
	g.queue.RemoveAll(p1.UserID)
	g.queue.RemoveAll(p2.UserID)

	go game.Run(g.ctx)

	players := PlayersInfo{Player1: p1.Info(), Player2: p2.Info()}
	p1.Send(Envelope{T: MsgStart, Data: StartMsg{PlayerNo: 1, Players: players, RoomID: roomID}})
	p2.Send(Envelope{T: MsgStart, Data: StartMsg{PlayerNo: 2, Players: players, RoomID: roomID}})

	g.log.Info("room opened",
		zap.String("room_id", roomID),
		zap.Int64("player1_id", p1.UserID),
		zap.Int64("player2_id", p2.UserID),
		zap.Bool("wall", hasMiddleWall),
	)

	// a player who disconnected before the room was registered was not
	// found by Disconnect
	for _, p := range []*Session{p1, p2} {
		if g.sessions.Get(p.UserID) != p {
			game.Leave(p.UserID)
		}
	}
	return nil
}

// closeRoom runs once per room when it ends
func (g *Gateway) closeRoom(game *Game, res MatchResult) {
	g.rooms.Remove(game.ID)
	p1, p2 := game.Players()
	p1.leaveRoom(game.ID)
	p2.leaveRoom(game.ID)

	g.metrics.SetRooms(g.rooms.Count())
	g.metrics.MatchEnded(res.Outcome)
	if res.Played() && g.results != nil {
		g.results.Submit(res)
	}
	// the freed slot may seat a pair that was waiting on capacity
	for _, v := range variants {
		g.matchWaiting(v)
	}
}

// Shutdown ends every room without recording results
func (g *Gateway) Shutdown() {
	g.closing.Store(true)
	g.rooms.CancelAll()
}
