package main

import (
	"math"

	"github.com/google/uuid"
)

// GenerateID returns a random UUID v4 string
func GenerateID() string {
	return uuid.NewString()
}

// Clamp restricts v to [min, max]
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Speed returns the magnitude of a velocity vector
func Speed(vx, vy float64) float64 {
	return math.Hypot(vx, vy)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
