package main

import "encoding/json"

// Client -> Server events
const (
	MsgRegister   = "Register"
	MsgUnregister = "Unregister"
	MsgInvite     = "Invite"
	MsgAccept     = "Accept"
	MsgReject     = "Reject"
	MsgMoveMouse  = "moveMouse"
	MsgMove       = "move"
	MsgStartGame  = "StartGame"
)

// Server -> Client events
const (
	MsgStart        = "start"
	MsgQueued       = "queued"
	MsgInvited      = "Invited"
	MsgInviteSent   = "inviteSent"
	MsgRejected     = "Rejected"
	MsgGameUpdate   = "gameUpdate"
	MsgPlayer1Score = "player1Score"
	MsgPlayer2Score = "player2Score"
	MsgWin          = "win"
	MsgLose         = "lose"
	MsgDraw         = "draw"
	MsgError        = "error"
)

// Envelope wraps all outgoing messages with a type field
type Envelope struct {
	T    string      `json:"t" msgpack:"t"`
	Data interface{} `json:"d,omitempty" msgpack:"d,omitempty"`
}

// InEnvelope is used for incoming messages; json.RawMessage avoids double-unmarshal
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// RegisterMsg asks to join the matchmaking queue for one map variant.
// Unregister uses the same payload.
type RegisterMsg struct {
	HasMiddleWall bool `json:"hasMiddleWall"`
}

// InviteMsg targets another user by username
type InviteMsg struct {
	Username string `json:"username"`
}

// AcceptMsg accepts a pending invite
type AcceptMsg struct {
	InviteID      string `json:"inviteID"`
	HasMiddleWall bool   `json:"hasMiddleWall"`
}

// RejectMsg rejects a pending invite
type RejectMsg struct {
	InviteID string `json:"inviteID"`
}

// MoveMouseMsg sets the sender's paddle centre directly
type MoveMouseMsg struct {
	RoomID string   `json:"roomID"`
	Y      *float64 `json:"y"`
}

// KeyPress names the key a move event refers to
type KeyPress struct {
	UpKey   bool `json:"upKey"`
	DownKey bool `json:"downKey"`
}

// MoveMsg presses or releases a paddle key
type MoveMsg struct {
	RoomID    string   `json:"roomID"`
	Key       KeyPress `json:"key"`
	IsPressed bool     `json:"isPressed"`
}

// StartGameMsg acknowledges a pairing and marks the sender ready
type StartGameMsg struct {
	RoomID        string `json:"roomID"`
	HasMiddleWall bool   `json:"hasMiddleWall"`
}

// PlayerInfo is the public identity of a player
type PlayerInfo struct {
	ID       int64  `json:"id" msgpack:"id"`
	Username string `json:"username" msgpack:"username"`
}

// PlayersInfo lists both participants of a room
type PlayersInfo struct {
	Player1 PlayerInfo `json:"player1"`
	Player2 PlayerInfo `json:"player2"`
}

// StartMsg tells a paired player its slot, the participants and the room
type StartMsg struct {
	PlayerNo int         `json:"playerNo"`
	Players  PlayersInfo `json:"players"`
	RoomID   string      `json:"roomID"`
}

// QueuedMsg acknowledges a Register that did not pair immediately
type QueuedMsg struct {
	HasMiddleWall bool `json:"hasMiddleWall"`
}

// InvitedMsg notifies the receiver of an invite (and the sender of a rejection)
type InvitedMsg struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	InviteID string `json:"inviteId"`
}

// InviteSentMsg acknowledges an invite to its sender
type InviteSentMsg struct {
	InviteID string `json:"inviteId"`
	Username string `json:"username"`
}

// BallState is the ball part of a snapshot
type BallState struct {
	X      float64 `json:"x" msgpack:"x"`
	Y      float64 `json:"y" msgpack:"y"`
	Radius float64 `json:"radius" msgpack:"radius"`
}

// PaddleState is one paddle in a snapshot
type PaddleState struct {
	X      float64 `json:"x" msgpack:"x"`
	Y      float64 `json:"y" msgpack:"y"`
	Width  float64 `json:"width" msgpack:"width"`
	Height float64 `json:"height" msgpack:"height"`
}

// WallState describes the middle wall and its gap
type WallState struct {
	X         float64 `json:"x" msgpack:"x"`
	Width     float64 `json:"width" msgpack:"width"`
	GapTop    float64 `json:"gapTop" msgpack:"gapTop"`
	GapBottom float64 `json:"gapBottom" msgpack:"gapBottom"`
}

// GameUpdate is the per-tick snapshot of a room
type GameUpdate struct {
	Ball          BallState   `json:"ball" msgpack:"ball"`
	Paddle1       PaddleState `json:"paddle1" msgpack:"paddle1"`
	Paddle2       PaddleState `json:"paddle2" msgpack:"paddle2"`
	Wall          *WallState  `json:"wall,omitempty" msgpack:"wall,omitempty"`
	RemainingTime *float64    `json:"remainingTime,omitempty" msgpack:"remainingTime,omitempty"`
}

// ScoreMsg carries one player's new score
type ScoreMsg struct {
	Value int `json:"value"`
}

// ErrorMsg sends error to client
type ErrorMsg struct {
	Message string `json:"message"`
}

// Credentials is the body of /auth/register and /auth/login
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// InviteStatusMsg is returned by GET /invites/{id}
type InviteStatusMsg struct {
	InviteID string       `json:"inviteId"`
	Status   InviteStatus `json:"status"`
}

// AuthOKMsg is returned by a successful register or login
type AuthOKMsg struct {
	Token    string `json:"token"`
	UserID   int64  `json:"userID"`
	Username string `json:"username"`
}

func errorEnvelope(err error) Envelope {
	return Envelope{T: MsgError, Data: ErrorMsg{Message: publicError(err).Error()}}
}
