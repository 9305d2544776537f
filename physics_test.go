package main

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPaddles(s GameSettings) [2]Paddle {
	return [2]Paddle{
		NewPaddle(s.PaddleMargin, s),
		NewPaddle(s.Width-s.PaddleMargin-s.PaddleWidth, s),
	}
}

func TestBallServe(t *testing.T) {
	s := DefaultGameSettings()
	rng := rand.New(rand.NewPCG(1, 2))

	for _, dir := range []float64{1, -1} {
		for i := 0; i < 50; i++ {
			var b Ball
			b.Serve(s, dir, rng)
			assert.Equal(t, s.Width/2, b.X)
			assert.Equal(t, s.Height/2, b.Y)
			assert.InDelta(t, s.BallSpeed, b.Speed(), 1e-9)
			assert.Equal(t, dir > 0, b.VX > 0, "serve should head toward dir")
			assert.LessOrEqual(t, math.Abs(b.VY), math.Abs(b.VX)+1e-9, "serve angle within 45 degrees")
		}
	}
}

func TestBallBounceEdges(t *testing.T) {
	s := DefaultGameSettings()

	b := Ball{X: 400, Y: 5, VX: 100, VY: -100, Radius: 10}
	require.True(t, b.bounceEdges(s.Height))
	assert.Equal(t, 10.0, b.Y)
	assert.Equal(t, 100.0, b.VY)

	b = Ball{X: 400, Y: 598, VX: 100, VY: 100, Radius: 10}
	require.True(t, b.bounceEdges(s.Height))
	assert.Equal(t, 590.0, b.Y)
	assert.Equal(t, -100.0, b.VY)

	b = Ball{X: 400, Y: 300, VX: 100, VY: 100, Radius: 10}
	assert.False(t, b.bounceEdges(s.Height))
}

func TestPaddleBounceReflectsAndSpeedsUp(t *testing.T) {
	s := DefaultGameSettings()
	paddles := testPaddles(s)

	speeds := []float64{360, 500, 880, 900}
	offsets := []float64{-50, -20, 0, 35, 50}
	for _, v := range speeds {
		for _, off := range offsets {
			// left paddle, ball travelling left
			p := &paddles[0]
			b := Ball{X: p.Right() + 5, Y: p.Center() + off, VX: -v, Radius: s.BallRadius}
			collide(&b, b.X+5, &paddles, nil, s)

			want := math.Min(v+s.SpeedIncrement, s.MaxBallSpeed)
			assert.Greater(t, b.VX, 0.0, "horizontal direction should flip")
			assert.InDelta(t, want, b.Speed(), 1e-9)
			assert.Equal(t, p.Right()+s.BallRadius, b.X)

			// right paddle, ball travelling right
			p = &paddles[1]
			b = Ball{X: p.X - 5, Y: p.Center() + off, VX: v, Radius: s.BallRadius}
			collide(&b, b.X-5, &paddles, nil, s)
			assert.Less(t, b.VX, 0.0)
			assert.InDelta(t, want, b.Speed(), 1e-9)
			assert.Equal(t, p.X-s.BallRadius, b.X)
		}
	}
}

func TestPaddleBounceAngleFollowsContactPoint(t *testing.T) {
	s := DefaultGameSettings()
	paddles := testPaddles(s)
	p := &paddles[0]

	center := Ball{X: p.Right() + 5, Y: p.Center(), VX: -360, Radius: s.BallRadius}
	collide(&center, center.X+5, &paddles, nil, s)
	assert.InDelta(t, 0, center.VY, 1e-9, "center hit leaves flat")

	edge := Ball{X: p.Right() + 5, Y: p.Bottom(), VX: -360, Radius: s.BallRadius}
	collide(&edge, edge.X+5, &paddles, nil, s)
	assert.InDelta(t, math.Sin(s.MaxBounceAngle), edge.VY/edge.Speed(), 1e-9, "edge hit leaves at the max angle")

	top := Ball{X: p.Right() + 5, Y: p.Y, VX: -360, Radius: s.BallRadius}
	collide(&top, top.X+5, &paddles, nil, s)
	assert.Less(t, top.VY, 0.0, "top hit leaves upward")
}

func TestPaddleIgnoresBallMovingAway(t *testing.T) {
	s := DefaultGameSettings()
	paddles := testPaddles(s)
	p := &paddles[0]

	b := Ball{X: p.Right() + 5, Y: p.Center(), VX: 360, Radius: s.BallRadius}
	collide(&b, b.X-5, &paddles, nil, s)
	assert.Equal(t, 360.0, b.VX)
}

func TestPaddleMissedWhenOutOfReach(t *testing.T) {
	s := DefaultGameSettings()
	paddles := testPaddles(s)
	p := &paddles[0]

	b := Ball{X: p.Right() + 5, Y: p.Bottom() + 50, VX: -360, Radius: s.BallRadius}
	collide(&b, b.X+5, &paddles, nil, s)
	assert.Equal(t, -360.0, b.VX)
}

func TestPaddleCatchesFastBall(t *testing.T) {
	s := DefaultGameSettings()
	paddles := testPaddles(s)

	// one long step carries the ball from in front of the paddle to past it
	b := Ball{X: -50, Y: paddles[0].Center(), VX: -900, Radius: s.BallRadius}
	collide(&b, 100, &paddles, nil, s)
	assert.Greater(t, b.VX, 0.0)
	assert.Equal(t, paddles[0].Right()+s.BallRadius, b.X)
}

func TestWallGeometry(t *testing.T) {
	s := DefaultGameSettings()
	w := NewWall(s)
	assert.Equal(t, 395.0, w.X)
	assert.Equal(t, 10.0, w.W)
	assert.Equal(t, 200.0, w.GapTop)
	assert.Equal(t, 400.0, w.GapBottom)

	st := w.State()
	assert.Equal(t, 200.0, st.GapTop)
	assert.Equal(t, 400.0, st.GapBottom)
}

func TestWallReflectsOutsideGap(t *testing.T) {
	s := DefaultGameSettings()
	paddles := testPaddles(s)
	w := NewWall(s)

	b := Ball{X: 392, Y: 100, VX: 360, Radius: s.BallRadius}
	collide(&b, 380, &paddles, w, s)
	assert.Equal(t, -360.0, b.VX)
	assert.Equal(t, w.X-s.BallRadius, b.X)

	b = Ball{X: 408, Y: 500, VX: -360, Radius: s.BallRadius}
	collide(&b, 420, &paddles, w, s)
	assert.Equal(t, 360.0, b.VX)
	assert.Equal(t, w.Right()+s.BallRadius, b.X)
}

func TestWallLetsBallThroughGap(t *testing.T) {
	s := DefaultGameSettings()
	paddles := testPaddles(s)
	w := NewWall(s)

	b := Ball{X: 398, Y: 300, VX: 360, Radius: s.BallRadius}
	collide(&b, 390, &paddles, w, s)
	assert.Equal(t, 360.0, b.VX)
	assert.Equal(t, 398.0, b.X)
}

func TestWallClipsBallPartlyInGap(t *testing.T) {
	s := DefaultGameSettings()
	paddles := testPaddles(s)
	w := NewWall(s)

	b := Ball{X: 398, Y: 205, VX: 360, Radius: s.BallRadius}
	collide(&b, 390, &paddles, w, s)
	assert.Equal(t, -360.0, b.VX)
}

func TestScorer(t *testing.T) {
	s := DefaultGameSettings()
	assert.Equal(t, 2, scorer(&Ball{X: -11, Radius: 10}, s.Width))
	assert.Equal(t, 1, scorer(&Ball{X: 811, Radius: 10}, s.Width))
	assert.Equal(t, 0, scorer(&Ball{X: -5, Radius: 10}, s.Width), "ball must fully leave the field")
	assert.Equal(t, 0, scorer(&Ball{X: 400, Radius: 10}, s.Width))
}

func TestFrameSeconds(t *testing.T) {
	assert.Equal(t, maxFrameSeconds, frameSeconds(0.5))
	assert.Equal(t, 0.0, frameSeconds(-1))
	assert.Equal(t, 0.016, frameSeconds(0.016))
}
