package main

// Paddle is one player's bat. X and Y are the top-left corner.
type Paddle struct {
	Rect

	Up, Down bool // held keys

	pendingY *float64 // mouse target applied on the next tick
}

// NewPaddle places a paddle vertically centered at x
func NewPaddle(x float64, s GameSettings) Paddle {
	return Paddle{Rect: Rect{
		X: x,
		Y: (s.Height - s.PaddleHeight) / 2,
		W: s.PaddleWidth,
		H: s.PaddleHeight,
	}}
}

// SetKey records a key press or release. Pressing one direction releases
// the other.
func (p *Paddle) SetKey(key KeyPress, pressed bool) {
	if key.UpKey {
		p.Up = pressed
		if pressed {
			p.Down = false
		}
	}
	if key.DownKey {
		p.Down = pressed
		if pressed {
			p.Up = false
		}
	}
}

// SetMouse queues a mouse target. y is where the paddle center should go.
func (p *Paddle) SetMouse(y float64) {
	p.pendingY = &y
}

// Update applies pending intent and moves the paddle one tick (dt in seconds)
func (p *Paddle) Update(dt, speed, fieldHeight float64) {
	maxY := fieldHeight - p.H
	if p.pendingY != nil {
		p.Y = Clamp(*p.pendingY-p.H/2, 0, maxY)
		p.pendingY = nil
	}
	dir := 0.0
	if p.Up {
		dir--
	}
	if p.Down {
		dir++
	}
	if dir != 0 {
		p.Y = Clamp(p.Y+dir*speed*dt, 0, maxY)
	}
}

// Center returns the y coordinate of the paddle's midpoint
func (p *Paddle) Center() float64 {
	return p.Y + p.H/2
}

// State returns the snapshot form of the paddle
func (p *Paddle) State() PaddleState {
	return PaddleState{X: round1(p.X), Y: round1(p.Y), Width: p.W, Height: p.H}
}
