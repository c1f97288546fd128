// Package balloon simulates the balloon that grows while the player breathes
// calmly and shrinks back when they stop.
package balloon

import (
	"fmt"
	"math"
	"sync"
	"time"

	"breathe/breath"
)

type Band int

const (
	None Band = iota
	Calm
	TooStrong
)

func (b Band) String() string {
	switch b {
	case Calm:
		return "calm"
	case TooStrong:
		return "too_strong"
	default:
		return "none"
	}
}

type Mode int

const (
	Deflating Mode = iota
	Inflating
)

func (m Mode) String() string {
	if m == Inflating {
		return "inflating"
	}
	return "deflating"
}

type Config struct {
	MinScale        float64       `yaml:"min_scale" env:"MIN_SCALE"`
	MaxScale        float64       `yaml:"max_scale" env:"MAX_SCALE"`
	RatePerSecond   float64       `yaml:"rate_per_second" env:"RATE_PER_SECOND"`
	DeflateDuration time.Duration `yaml:"deflate_duration" env:"DEFLATE_DURATION"`
	CalmMin         float64       `yaml:"calm_min" env:"CALM_MIN"`
	CalmMax         float64       `yaml:"calm_max" env:"CALM_MAX"`
	TooStrongStep   float64       `yaml:"too_strong_step" env:"TOO_STRONG_STEP"`
	NoBreathStep    float64       `yaml:"no_breath_step" env:"NO_BREATH_STEP"`
	SpringFrequency float64       `yaml:"spring_frequency" env:"SPRING_FREQUENCY"`
}

func DefaultConfig() Config {
	return Config{
		MinScale:        1.0,
		MaxScale:        1.8,
		RatePerSecond:   0.5,
		DeflateDuration: 2 * time.Second,
		CalmMin:         12,
		CalmMax:         40,
		TooStrongStep:   0.025,
		NoBreathStep:    0.02,
		SpringFrequency: 8,
	}
}

func (c Config) Validate() error {
	if c.MinScale <= 0 || c.MinScale >= c.MaxScale {
		return fmt.Errorf("balloon scale range invalid: min %v max %v", c.MinScale, c.MaxScale)
	}
	if c.CalmMin < 0 || c.CalmMin >= c.CalmMax {
		return fmt.Errorf("calm band invalid: min %v max %v", c.CalmMin, c.CalmMax)
	}
	if c.RatePerSecond <= 0 {
		return fmt.Errorf("inflate rate must be positive, got %v", c.RatePerSecond)
	}
	if c.DeflateDuration <= 0 {
		return fmt.Errorf("deflate duration must be positive, got %s", c.DeflateDuration)
	}
	if c.TooStrongStep < 0 || c.NoBreathStep < 0 {
		return fmt.Errorf("shrink steps must not be negative")
	}
	if c.SpringFrequency <= 0 {
		return fmt.Errorf("spring frequency must be positive, got %v", c.SpringFrequency)
	}
	return nil
}

// Classify places a frame in a calm band. Calm is strictly between CalmMin
// and CalmMax.
func Classify(f breath.Frame, cfg Config) Band {
	if !f.Breathing {
		return None
	}
	if f.Strength >= cfg.CalmMax {
		return TooStrong
	}
	if f.Strength > cfg.CalmMin {
		return Calm
	}
	return None
}

// Simulator owns the balloon scale. A mode command replaces whatever the
// previous command started.
type Simulator struct {
	cfg Config

	mu     sync.Mutex
	mode   Mode
	scale  float64
	target float64
	spring Spring

	deflateFrom    float64
	deflateElapsed time.Duration
}

// New returns a simulator resting at MinScale.
func New(cfg Config) *Simulator {
	s := &Simulator{
		cfg:    cfg,
		mode:   Deflating,
		scale:  cfg.MinScale,
		target: cfg.MinScale,
		spring: Spring{Omega: cfg.SpringFrequency},
	}
	s.spring.Reset(cfg.MinScale)
	s.deflateFrom = cfg.MinScale
	s.deflateElapsed = cfg.DeflateDuration
	return s
}

func (s *Simulator) SetInflating(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if on {
		s.mode = Inflating
		s.target = s.scale
		s.spring.Reset(s.scale)
		return
	}
	s.mode = Deflating
	s.deflateFrom = s.scale
	s.deflateElapsed = 0
}

// Step advances the animation by dt using the latest detector frame and
// returns the band the frame fell in and the new scale.
func (s *Simulator) Step(f breath.Frame, dt time.Duration) (Band, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	band := Classify(f, s.cfg)
	if s.mode == Deflating {
		s.stepDeflate(dt)
		return band, s.scale
	}

	switch band {
	case Calm:
		rate := clamp(f.Strength/100, 0, 1)
		s.target = s.clampScale(s.target + rate*s.cfg.RatePerSecond*dt.Seconds())
		next := s.spring.Step(s.target, dt)
		if next > s.scale {
			s.scale = s.clampScale(next)
		} else {
			s.spring.Reset(s.scale)
		}
	case TooStrong:
		s.shrink(s.cfg.TooStrongStep, dt)
	default:
		s.shrink(s.cfg.NoBreathStep, dt)
	}
	return band, s.scale
}

func (s *Simulator) shrink(step float64, dt time.Duration) {
	s.target = s.clampScale(s.target - step)
	s.scale = s.clampScale(s.spring.Step(s.target, dt))
}

func (s *Simulator) stepDeflate(dt time.Duration) {
	if s.deflateElapsed >= s.cfg.DeflateDuration {
		s.scale = s.cfg.MinScale
		return
	}
	s.deflateElapsed += dt
	p := float64(s.deflateElapsed) / float64(s.cfg.DeflateDuration)
	s.scale = s.clampScale(s.deflateFrom + (s.cfg.MinScale-s.deflateFrom)*easeInOut(p))
	s.target = s.scale
	s.spring.Reset(s.scale)
}

func (s *Simulator) Scale() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scale
}

func (s *Simulator) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *Simulator) clampScale(v float64) float64 {
	if math.IsNaN(v) {
		return s.cfg.MinScale
	}
	return clamp(v, s.cfg.MinScale, s.cfg.MaxScale)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
