package balloon

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"breathe/breath"
)

const tick = 100 * time.Millisecond

var (
	calmFrame   = breath.Frame{Strength: 30, Breathing: true}
	strongFrame = breath.Frame{Strength: 80, Breathing: true}
	quietFrame  = breath.Frame{Strength: 5}
)

func TestClassify(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		frame breath.Frame
		want  Band
	}{
		{breath.Frame{Strength: 30, Breathing: false}, None},
		{breath.Frame{Strength: 12, Breathing: true}, None},
		{breath.Frame{Strength: 12.1, Breathing: true}, Calm},
		{breath.Frame{Strength: 39.9, Breathing: true}, Calm},
		{breath.Frame{Strength: 40, Breathing: true}, TooStrong},
		{breath.Frame{Strength: 100, Breathing: true}, TooStrong},
	}
	for _, tt := range tests {
		if got := Classify(tt.frame, cfg); got != tt.want {
			t.Errorf("Classify(%+v) = %s, want %s", tt.frame, got, tt.want)
		}
	}
}

func TestNewRestsAtMin(t *testing.T) {
	s := New(DefaultConfig())
	if s.Scale() != 1.0 || s.Mode() != Deflating {
		t.Errorf("new simulator scale=%v mode=%s", s.Scale(), s.Mode())
	}
	_, scale := s.Step(calmFrame, tick)
	if scale != 1.0 {
		t.Errorf("deflating simulator moved to %v", scale)
	}
}

func TestCalmGrowsMonotonically(t *testing.T) {
	s := New(DefaultConfig())
	s.SetInflating(true)
	prev := s.Scale()
	for i := 0; i < 200; i++ {
		band, scale := s.Step(calmFrame, tick)
		if band != Calm {
			t.Fatalf("band = %s", band)
		}
		if scale < prev {
			t.Fatalf("step %d: scale fell from %v to %v", i, prev, scale)
		}
		prev = scale
	}
	if prev < 1.7 || prev > 1.8 {
		t.Errorf("sustained calm ended at %v, want near 1.8", prev)
	}
}

func TestTooStrongShrinks(t *testing.T) {
	s := New(DefaultConfig())
	s.SetInflating(true)
	for i := 0; i < 50; i++ {
		s.Step(calmFrame, tick)
	}
	grown := s.Scale()
	for i := 0; i < 30; i++ {
		s.Step(strongFrame, tick)
	}
	if s.Scale() >= grown {
		t.Errorf("too-strong breathing should shrink: %v -> %v", grown, s.Scale())
	}
}

func TestQuietShrinksToMin(t *testing.T) {
	s := New(DefaultConfig())
	s.SetInflating(true)
	for i := 0; i < 50; i++ {
		s.Step(calmFrame, tick)
	}
	for i := 0; i < 200; i++ {
		s.Step(quietFrame, tick)
	}
	if math.Abs(s.Scale()-1.0) > 1e-6 {
		t.Errorf("scale = %v, want 1.0", s.Scale())
	}
}

func TestDeflateTakesDuration(t *testing.T) {
	s := New(DefaultConfig())
	s.SetInflating(true)
	for i := 0; i < 100; i++ {
		s.Step(calmFrame, tick)
	}
	start := s.Scale()
	s.SetInflating(false)

	_, half := s.Step(calmFrame, time.Second)
	mid := 1.0 + (start-1.0)/2
	if math.Abs(half-mid) > 1e-9 {
		t.Errorf("halfway scale = %v, want %v", half, mid)
	}
	_, end := s.Step(calmFrame, time.Second)
	if math.Abs(end-1.0) > 1e-9 {
		t.Errorf("end scale = %v, want 1.0", end)
	}
	_, after := s.Step(calmFrame, tick)
	if after != 1.0 {
		t.Errorf("after deflate scale = %v", after)
	}
}

func TestModeCommandSupersedes(t *testing.T) {
	s := New(DefaultConfig())
	s.SetInflating(true)
	for i := 0; i < 50; i++ {
		s.Step(calmFrame, tick)
	}
	s.SetInflating(false)
	s.Step(calmFrame, tick)
	mid := s.Scale()
	s.SetInflating(true)
	_, scale := s.Step(calmFrame, tick)
	if s.Mode() != Inflating || scale < mid {
		t.Errorf("reinflate from %v gave %v mode %s", mid, scale, s.Mode())
	}
}

func TestScaleAlwaysClamped(t *testing.T) {
	cfg := DefaultConfig()
	rng := rand.New(rand.NewSource(7))
	s := New(cfg)
	for i := 0; i < 5000; i++ {
		if rng.Intn(25) == 0 {
			s.SetInflating(rng.Intn(2) == 0)
		}
		f := breath.Frame{Strength: rng.Float64() * 100, Breathing: rng.Intn(3) != 0}
		dt := time.Duration(rng.Intn(400)) * time.Millisecond
		_, scale := s.Step(f, dt)
		if scale < cfg.MinScale || scale > cfg.MaxScale {
			t.Fatalf("step %d: scale %v outside [%v,%v]", i, scale, cfg.MinScale, cfg.MaxScale)
		}
	}
}

func TestSpringConverges(t *testing.T) {
	sp := Spring{Omega: 8}
	sp.Reset(1)
	prev := sp.Value
	for i := 0; i < 30; i++ {
		v := sp.Step(2, tick)
		if v < prev || v > 2 {
			t.Fatalf("step %d: %v after %v", i, v, prev)
		}
		prev = v
	}
	if math.Abs(prev-2) > 1e-3 {
		t.Errorf("spring settled at %v", prev)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	cfg.MaxScale = cfg.MinScale
	if cfg.Validate() == nil {
		t.Error("equal min and max should be rejected")
	}
	cfg = DefaultConfig()
	cfg.CalmMin = 50
	if cfg.Validate() == nil {
		t.Error("calm min above calm max should be rejected")
	}
}
