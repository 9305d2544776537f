package main

import (
	"math"
	"math/rand/v2"
)

const (
	degree          = math.Pi / 180
	maxServeAngle   = 45 * degree
	maxFrameSeconds = 0.1
)

// Ball is the ball's position and velocity in px and px/s
type Ball struct {
	X, Y   float64
	VX, VY float64
	Radius float64
}

// Serve puts the ball in the middle of the field heading toward dir
// (-1 left, +1 right) at the serve speed and a random angle.
func (b *Ball) Serve(s GameSettings, dir float64, rng *rand.Rand) {
	b.X = s.Width / 2
	b.Y = s.Height / 2
	b.Radius = s.BallRadius
	angle := (rng.Float64()*2 - 1) * maxServeAngle
	b.VX, b.VY = directionalVelocity(s.BallSpeed, angle, dir)
}

// Move advances the ball by dt seconds
func (b *Ball) Move(dt float64) {
	b.X += b.VX * dt
	b.Y += b.VY * dt
}

// Speed returns the ball's speed in px/s
func (b *Ball) Speed() float64 {
	return Speed(b.VX, b.VY)
}

// bounceEdges reflects the ball off the top and bottom of the field
func (b *Ball) bounceEdges(height float64) bool {
	switch {
	case b.Y-b.Radius < 0:
		b.Y = b.Radius
		b.VY = math.Abs(b.VY)
		return true
	case b.Y+b.Radius > height:
		b.Y = height - b.Radius
		b.VY = -math.Abs(b.VY)
		return true
	}
	return false
}

// hitsPaddle reports whether the ball, moving from prevX, met p this step
func (b *Ball) hitsPaddle(p *Paddle, prevX float64) bool {
	if !verticalOverlap(b.Y, b.Radius, p.Y, p.Bottom()) {
		return false
	}
	return CheckCircleRect(b.X, b.Y, b.Radius, p.Rect) ||
		sweptCrossesBand(prevX, b.X, b.Radius, p.X, p.Right())
}

// bounceOffPaddle sends the ball back toward dir. The further from the
// paddle center it lands, the steeper it leaves. Speed grows by the
// configured increment up to the cap.
func (b *Ball) bounceOffPaddle(p *Paddle, dir float64, s GameSettings) {
	offset := (b.Y - p.Center()) / (p.H / 2)
	speed := math.Min(b.Speed()+s.SpeedIncrement, s.MaxBallSpeed)
	b.VX, b.VY = directionalVelocity(speed, bounceAngle(offset, s.MaxBounceAngle), dir)
	if dir > 0 {
		b.X = p.Right() + b.Radius
	} else {
		b.X = p.X - b.Radius
	}
}

// State returns the snapshot form of the ball
func (b *Ball) State() BallState {
	return BallState{X: round1(b.X), Y: round1(b.Y), Radius: b.Radius}
}

// Wall is the optional middle wall. The ball passes only through the gap.
type Wall struct {
	Rect
	GapTop, GapBottom float64
}

// NewWall builds a full-height wall in the middle of the field with a
// centered gap.
func NewWall(s GameSettings) *Wall {
	gapTop := (s.Height - s.WallGap) / 2
	return &Wall{
		Rect:      Rect{X: (s.Width - s.WallWidth) / 2, Y: 0, W: s.WallWidth, H: s.Height},
		GapTop:    gapTop,
		GapBottom: gapTop + s.WallGap,
	}
}

// Blocks reports whether the ball, moving from prevX, struck a solid part
// of the wall this step.
func (w *Wall) Blocks(b *Ball, prevX float64) bool {
	upper := Rect{X: w.X, Y: 0, W: w.W, H: w.GapTop}
	lower := Rect{X: w.X, Y: w.GapBottom, W: w.W, H: w.H - w.GapBottom}
	if CheckCircleRect(b.X, b.Y, b.Radius, upper) || CheckCircleRect(b.X, b.Y, b.Radius, lower) {
		return true
	}
	inGap := b.Y-b.Radius >= w.GapTop && b.Y+b.Radius <= w.GapBottom
	return !inGap && sweptCrossesBand(prevX, b.X, b.Radius, w.X, w.Right())
}

// Reflect pushes the ball back to the side it came from
func (w *Wall) Reflect(b *Ball, prevX float64) {
	if prevX < w.X+w.W/2 {
		b.X = w.X - b.Radius
		b.VX = -math.Abs(b.VX)
	} else {
		b.X = w.Right() + b.Radius
		b.VX = math.Abs(b.VX)
	}
}

// State returns the snapshot form of the wall
func (w *Wall) State() *WallState {
	return &WallState{X: w.X, Width: w.W, GapTop: w.GapTop, GapBottom: w.GapBottom}
}

// collide resolves every contact for one step. paddles[0] is on the left.
func collide(b *Ball, prevX float64, paddles *[2]Paddle, wall *Wall, s GameSettings) {
	b.bounceEdges(s.Height)

	switch {
	case b.VX < 0 && b.hitsPaddle(&paddles[0], prevX):
		b.bounceOffPaddle(&paddles[0], 1, s)
	case b.VX > 0 && b.hitsPaddle(&paddles[1], prevX):
		b.bounceOffPaddle(&paddles[1], -1, s)
	case wall != nil && wall.Blocks(b, prevX):
		wall.Reflect(b, prevX)
	}
}

// scorer returns 1 or 2 when the ball has fully left the field on the
// opposite side of that player, otherwise 0.
func scorer(b *Ball, width float64) int {
	switch {
	case b.X+b.Radius < 0:
		return 2
	case b.X-b.Radius > width:
		return 1
	}
	return 0
}

// frameSeconds turns a wall-clock gap into a simulation step, clamped so a
// stalled loop does not fling the ball across the field.
func frameSeconds(elapsed float64) float64 {
	return Clamp(elapsed, 0, maxFrameSeconds)
}
