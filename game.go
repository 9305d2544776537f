package main

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Game simulates one two-player room: it owns the ball, both paddles, the
// optional middle wall and the score, and runs its own fixed-rate loop.
type Game struct {
	ID            string
	HasMiddleWall bool

	settings GameSettings
	players  [2]*Session
	log      *zap.Logger
	metrics  *Metrics
	onEnd    func(*Game, MatchResult)

	mu        sync.Mutex
	status    GameStatus
	ready     [2]bool
	ball      Ball
	paddles   [2]Paddle
	wall      *Wall
	score     [2]int
	elapsed   time.Duration // time spent PLAYING
	tick      uint64
	lastTick  time.Time
	createdAt time.Time
	rng       *rand.Rand
	now       func() time.Time

	stop    chan struct{}
	endOnce sync.Once
}

// NewGame creates a room in WAITING with p1 on the left and p2 on the right
func NewGame(id string, p1, p2 *Session, hasMiddleWall bool, settings GameSettings, log *zap.Logger, metrics *Metrics) *Game {
	g := &Game{
		ID:            id,
		HasMiddleWall: hasMiddleWall,
		settings:      settings,
		players:       [2]*Session{p1, p2},
		log:           log.With(zap.String("room_id", id)),
		metrics:       metrics,
		status:        GameWaiting,
		rng:           rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:           time.Now,
		stop:          make(chan struct{}),
	}
	g.createdAt = g.now()
	g.paddles[0] = NewPaddle(settings.PaddleMargin, settings)
	g.paddles[1] = NewPaddle(settings.Width-settings.PaddleMargin-settings.PaddleWidth, settings)
	g.ball = Ball{X: settings.Width / 2, Y: settings.Height / 2, Radius: settings.BallRadius}
	if hasMiddleWall {
		g.wall = NewWall(settings)
	}
	return g
}

// OnEnd registers the callback run exactly once when the room ends. It must
// be set before Run.
func (g *Game) OnEnd(fn func(*Game, MatchResult)) {
	g.onEnd = fn
}

// Run drives the room at the configured tick rate until it ends or ctx is
// cancelled.
func (g *Game) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second / time.Duration(g.settings.TickRate))
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			start := time.Now()
			g.update()
			g.metrics.ObserveTick(time.Since(start))
		case <-g.stop:
			return
		case <-ctx.Done():
			g.Cancel()
			return
		}
	}
}

// Done is closed once the room has ended
func (g *Game) Done() <-chan struct{} {
	return g.stop
}

// PlayerNo returns 1 or 2 for a participant, 0 otherwise
func (g *Game) PlayerNo(userID int64) int {
	for i, p := range g.players {
		if p.UserID == userID {
			return i + 1
		}
	}
	return 0
}

// Players returns player 1 and player 2
func (g *Game) Players() (*Session, *Session) {
	return g.players[0], g.players[1]
}

// Status returns the room's lifecycle phase
func (g *Game) Status() GameStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// Score returns both players' points
func (g *Game) Score() (int, int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.score[0], g.score[1]
}

// MarkReady records a player's start acknowledgement. The match starts once
// both players have acknowledged.
func (g *Game) MarkReady(playerNo int) error {
	if playerNo != 1 && playerNo != 2 {
		return ErrNotParticipant
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.status {
	case GameEnded:
		return ErrRoomNotFound
	case GamePlaying:
		return nil
	}
	g.ready[playerNo-1] = true
	g.status = GameReady
	if g.ready[0] && g.ready[1] {
		g.startLocked()
	}
	return nil
}

func (g *Game) startLocked() {
	g.status = GamePlaying
	dir := 1.0
	if g.rng.IntN(2) == 0 {
		dir = -1
	}
	g.ball.Serve(g.settings, dir, g.rng)
	g.lastTick = g.now()
	for _, p := range g.players {
		p.setStatusIfIn(g.ID, StatusPlaying)
	}
	g.log.Info("match started", zap.Bool("wall", g.HasMiddleWall))
	g.broadcastState()
}

// MoveMouse queues a mouse target for a player's paddle
func (g *Game) MoveMouse(playerNo int, y float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.status == GameEnded || playerNo < 1 || playerNo > 2 {
		return
	}
	g.paddles[playerNo-1].SetMouse(y)
}

// Move records a key press or release for a player's paddle
func (g *Game) Move(playerNo int, key KeyPress, pressed bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.status == GameEnded || playerNo < 1 || playerNo > 2 {
		return
	}
	g.paddles[playerNo-1].SetKey(key, pressed)
}

// Leave handles a participant disconnecting. Mid-match the opponent wins by
// forfeit; before the match starts the room is abandoned.
func (g *Game) Leave(userID int64) {
	no := g.PlayerNo(userID)
	if no == 0 {
		return
	}

	g.mu.Lock()
	var res *MatchResult
	switch g.status {
	case GameEnded:
	case GamePlaying:
		res = g.finishLocked(3-no, OutcomeForfeit)
	default:
		g.players[2-no].Send(Envelope{T: MsgError, Data: ErrorMsg{Message: "opponent left"}})
		res = g.endLocked(0, OutcomeAbandoned)
	}
	g.mu.Unlock()

	if res != nil {
		g.finish(*res)
	}
}

// Cancel ends the room without a result
func (g *Game) Cancel() {
	g.mu.Lock()
	var res *MatchResult
	if g.status != GameEnded {
		res = g.endLocked(0, OutcomeCancelled)
	}
	g.mu.Unlock()

	if res != nil {
		g.finish(*res)
	}
}

// update runs one loop iteration using wall-clock time
func (g *Game) update() {
	now := g.now()

	g.mu.Lock()
	var res *MatchResult
	switch g.status {
	case GameWaiting, GameReady:
		if g.settings.StartTimeout > 0 && now.Sub(g.createdAt) >= g.settings.StartTimeout {
			res = g.expireLocked()
		}
	case GamePlaying:
		dt := frameSeconds(now.Sub(g.lastTick).Seconds())
		g.lastTick = now
		res = g.stepLocked(dt)
	}
	g.mu.Unlock()

	if res != nil {
		g.finish(*res)
	}
}

// step advances a PLAYING room by dt seconds
func (g *Game) step(dt float64) {
	g.mu.Lock()
	var res *MatchResult
	if g.status == GamePlaying {
		res = g.stepLocked(dt)
	}
	g.mu.Unlock()

	if res != nil {
		g.finish(*res)
	}
}

func (g *Game) stepLocked(dt float64) *MatchResult {
	g.tick++
	s := g.settings

	for i := range g.paddles {
		g.paddles[i].Update(dt, s.PaddleSpeed, s.Height)
	}

	prevX := g.ball.X
	g.ball.Move(dt)
	collide(&g.ball, prevX, &g.paddles, g.wall, s)

	if who := scorer(&g.ball, s.Width); who != 0 {
		g.score[who-1]++
		msg := MsgPlayer1Score
		if who == 2 {
			msg = MsgPlayer2Score
		}
		g.broadcast(Envelope{T: msg, Data: ScoreMsg{Value: g.score[who-1]}})
		if g.score[who-1] >= s.PointsToWin {
			return g.finishLocked(who, OutcomeWin)
		}
		// serve toward the player who conceded
		dir := 1.0
		if who == 2 {
			dir = -1
		}
		g.ball.Serve(s, dir, g.rng)
	}

	g.elapsed += time.Duration(dt * float64(time.Second))
	if s.MatchDuration > 0 && g.elapsed >= s.MatchDuration {
		switch {
		case g.score[0] > g.score[1]:
			return g.finishLocked(1, OutcomeTime)
		case g.score[1] > g.score[0]:
			return g.finishLocked(2, OutcomeTime)
		default:
			return g.finishLocked(0, OutcomeDraw)
		}
	}

	g.broadcastState()
	return nil
}

// expireLocked ends a room whose players did not both acknowledge start in
// time. A lone ready player is awarded the match.
func (g *Game) expireLocked() *MatchResult {
	switch {
	case g.ready[0] && !g.ready[1]:
		return g.finishLocked(1, OutcomeExpired)
	case g.ready[1] && !g.ready[0]:
		return g.finishLocked(2, OutcomeExpired)
	}
	g.broadcast(Envelope{T: MsgError, Data: ErrorMsg{Message: "match expired"}})
	return g.endLocked(0, OutcomeExpired)
}

// finishLocked announces the result to both players and ends the room.
// winner is 1 or 2, or 0 for a draw.
func (g *Game) finishLocked(winner int, outcome Outcome) *MatchResult {
	for i, p := range g.players {
		switch {
		case winner == 0:
			p.Send(Envelope{T: MsgDraw, Data: struct{}{}})
		case winner == i+1:
			p.Send(Envelope{T: MsgWin, Data: struct{}{}})
		default:
			p.Send(Envelope{T: MsgLose, Data: struct{}{}})
		}
	}
	return g.endLocked(winner, outcome)
}

func (g *Game) endLocked(winner int, outcome Outcome) *MatchResult {
	g.status = GameEnded
	for _, p := range g.players {
		p.setStatusIfIn(g.ID, StatusEnded)
	}
	res := MatchResult{
		RoomID:        g.ID,
		Player1:       g.players[0].Info(),
		Player2:       g.players[1].Info(),
		Score1:        g.score[0],
		Score2:        g.score[1],
		HasMiddleWall: g.HasMiddleWall,
		Outcome:       outcome,
		Duration:      g.elapsed,
		EndedAt:       g.now(),
	}
	if winner > 0 {
		res.WinnerID = g.players[winner-1].UserID
	}
	g.log.Info("match ended",
		zap.String("outcome", string(outcome)),
		zap.Int("score1", res.Score1),
		zap.Int("score2", res.Score2),
		zap.Int64("winner_id", res.WinnerID),
	)
	return &res
}

// finish stops the loop and runs the end callback, once
func (g *Game) finish(res MatchResult) {
	g.endOnce.Do(func() {
		close(g.stop)
		if g.onEnd != nil {
			g.onEnd(g, res)
		}
	})
}

func (g *Game) snapshotLocked() GameUpdate {
	u := GameUpdate{
		Ball:    g.ball.State(),
		Paddle1: g.paddles[0].State(),
		Paddle2: g.paddles[1].State(),
	}
	if g.wall != nil {
		u.Wall = g.wall.State()
	}
	if g.settings.MatchDuration > 0 {
		left := (g.settings.MatchDuration - g.elapsed).Seconds()
		if left < 0 {
			left = 0
		}
		left = round1(left)
		u.RemainingTime = &left
	}
	return u
}

func (g *Game) broadcastState() {
	u := g.snapshotLocked()
	for _, p := range g.players {
		p.SendState(u)
	}
}

func (g *Game) broadcast(msg Envelope) {
	for _, p := range g.players {
		p.Send(msg)
	}
}
