package balloon

import (
	"math"
	"time"
)

// Spring is a critically damped spring integrated in closed form, so the
// step size does not affect stability.
type Spring struct {
	Omega    float64 // angular frequency, rad/s
	Value    float64
	Velocity float64
}

// Step advances the spring toward target by dt.
func (s *Spring) Step(target float64, dt time.Duration) float64 {
	t := dt.Seconds()
	if t <= 0 {
		return s.Value
	}
	x0 := s.Value - target
	v0 := s.Velocity
	w := s.Omega
	decay := math.Exp(-w * t)
	c := v0 + w*x0

	s.Value = target + (x0+c*t)*decay
	s.Velocity = (v0 - c*w*t) * decay
	return s.Value
}

// Reset pins the spring at v with no motion.
func (s *Spring) Reset(v float64) {
	s.Value = v
	s.Velocity = 0
}

// easeInOut is the sine ease-in-out curve on [0,1].
func easeInOut(p float64) float64 {
	p = clamp(p, 0, 1)
	return 0.5 - 0.5*math.Cos(math.Pi*p)
}
