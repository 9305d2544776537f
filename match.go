package main

import (
	"fmt"
	"time"
)

// GameStatus is the lifecycle phase of a room
type GameStatus int

const (
	GameWaiting GameStatus = iota // created, nobody has acknowledged start
	GameReady                     // one player has acknowledged start
	GamePlaying
	GameEnded
)

func (s GameStatus) String() string {
	switch s {
	case GameWaiting:
		return "WAITING"
	case GameReady:
		return "READY"
	case GamePlaying:
		return "PLAYING"
	case GameEnded:
		return "ENDED"
	}
	return fmt.Sprintf("GameStatus(%d)", int(s))
}

// Outcome says how a room ended
type Outcome string

const (
	OutcomeWin       Outcome = "win"       // a player reached the points limit
	OutcomeTime      Outcome = "time"      // the match clock ran out with a leader
	OutcomeDraw      Outcome = "draw"      // the match clock ran out level
	OutcomeForfeit   Outcome = "forfeit"   // a player left mid-match
	OutcomeAbandoned Outcome = "abandoned" // a player left before the match started
	OutcomeExpired   Outcome = "expired"   // the start acknowledgement window closed
	OutcomeCancelled Outcome = "cancelled" // server shutdown
)

// MatchResult describes a finished room
type MatchResult struct {
	RoomID        string
	Player1       PlayerInfo
	Player2       PlayerInfo
	Score1        int
	Score2        int
	WinnerID      int64 // 0 when nobody won
	HasMiddleWall bool
	Outcome       Outcome
	Duration      time.Duration
	EndedAt       time.Time
}

// Forfeit reports whether the match ended because a player left mid-match
func (r MatchResult) Forfeit() bool {
	return r.Outcome == OutcomeForfeit
}

// Played reports whether the match reached PLAYING and ended with a result
// worth recording.
func (r MatchResult) Played() bool {
	switch r.Outcome {
	case OutcomeWin, OutcomeTime, OutcomeDraw, OutcomeForfeit:
		return true
	}
	return false
}
