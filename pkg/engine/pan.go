package engine

import "math"

// constantPowerPan maps pan in [-1,+1] to L/R gains using the standard
// quarter-wave law: cos((pan+1)*pi/4), sin((pan+1)*pi/4). At pan=0 both
// gains are ~0.707 (constant perceived loudness across the sweep).
func constantPowerPan(pan float64) (left, right float64) {
	angle := (pan + 1.0) * math.Pi / 4.0
	return math.Cos(angle), math.Sin(angle)
}
