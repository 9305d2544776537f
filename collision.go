package main

import "math"

// Rect is an axis aligned rectangle anchored at its top-left corner
type Rect struct {
	X, Y, W, H float64
}

// Bottom returns the y coordinate of the lower edge
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Right returns the x coordinate of the right edge
func (r Rect) Right() float64 { return r.X + r.W }

// CheckCircleRect checks if a circle overlaps a rectangle, using the point
// of the rectangle nearest to the circle center.
func CheckCircleRect(cx, cy, radius float64, r Rect) bool {
	nx := Clamp(cx, r.X, r.Right())
	ny := Clamp(cy, r.Y, r.Bottom())
	dx := cx - nx
	dy := cy - ny
	return dx*dx+dy*dy <= radius*radius
}

// sweptCrossesBand reports whether a circle moving horizontally from prevX
// to x passed entirely over the band [left, right] within one step.
func sweptCrossesBand(prevX, x, radius, left, right float64) bool {
	lo, hi := left-radius, right+radius
	return (prevX < lo && x > hi) || (prevX > hi && x < lo)
}

// verticalOverlap reports whether [y-radius, y+radius] intersects [top, bottom]
func verticalOverlap(y, radius, top, bottom float64) bool {
	return y+radius >= top && y-radius <= bottom
}

// bounceAngle maps where the ball met a paddle to an outgoing angle.
// offset is -1 at the top edge, 0 at the center and 1 at the bottom edge.
func bounceAngle(offset, maxAngle float64) float64 {
	return Clamp(offset, -1, 1) * maxAngle
}

// directionalVelocity splits speed along angle, pointing left when dir < 0
func directionalVelocity(speed, angle, dir float64) (vx, vy float64) {
	return math.Copysign(speed*math.Cos(angle), dir), speed * math.Sin(angle)
}
