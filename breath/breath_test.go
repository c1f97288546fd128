package breath

import (
	"math"
	"testing"
)

func feed(d *Detector, samples ...float64) []Frame {
	var out []Frame
	for _, s := range samples {
		if f, ok := d.Process(s); ok {
			out = append(out, f)
		}
	}
	return out
}

func TestFirstSampleSeeds(t *testing.T) {
	d := NewDetector(DefaultConfig())
	f, ok := d.Process(-20)
	if ok {
		t.Fatal("first sample should not publish")
	}
	if f.Breathing || f.Strength != 0 {
		t.Errorf("seed frame = %+v, want zero", f)
	}
}

func TestSpikeClassified(t *testing.T) {
	d := NewDetector(DefaultConfig())
	frames := feed(d, -50, -40)
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	// delta 10, target min(120,100) = 100, strength 0 + 100*0.5
	if !frames[0].Breathing || frames[0].Strength != 50 {
		t.Errorf("frame = %+v, want breathing strength 50", frames[0])
	}
}

func TestSpikeBelowFloorIgnored(t *testing.T) {
	d := NewDetector(DefaultConfig())
	frames := feed(d, -60, -50)
	if frames[0].Breathing {
		t.Error("spike ending under -45 dB should not count")
	}
}

func TestSmallDeltaIgnored(t *testing.T) {
	d := NewDetector(DefaultConfig())
	frames := feed(d, -30, -26)
	if frames[0].Breathing {
		t.Error("delta of exactly 4 dB should not count")
	}
}

func TestDecay(t *testing.T) {
	d := NewDetector(DefaultConfig())
	feed(d, -50, -40)
	prev := d.Frame().Strength
	for i := 0; i < 10; i++ {
		f, _ := d.Process(-40)
		if f.Breathing {
			t.Fatal("flat signal should not breathe")
		}
		if math.Abs(f.Strength-prev*0.85) > 1e-9 {
			t.Fatalf("step %d: strength %v, want %v", i, f.Strength, prev*0.85)
		}
		prev = f.Strength
	}
}

func TestEndToEndSequence(t *testing.T) {
	d := NewDetector(DefaultConfig())
	frames := feed(d, -50, -40, -38, -60, -60)

	// -50 seeds; the remaining four produce frames.
	want := []bool{true, false, false, false}
	if len(frames) != len(want) {
		t.Fatalf("got %d frames, want %d", len(frames), len(want))
	}
	for i, f := range frames {
		if f.Breathing != want[i] {
			t.Errorf("frame %d breathing = %v, want %v", i, f.Breathing, want[i])
		}
	}
	if !(frames[3].Strength < frames[2].Strength) {
		t.Errorf("strength should keep falling: %v then %v", frames[2].Strength, frames[3].Strength)
	}
}

func TestNonFiniteFloored(t *testing.T) {
	d := NewDetector(DefaultConfig())
	feed(d, math.Inf(-1))
	f, ok := d.Process(-40)
	if !ok {
		t.Fatal("expected frame")
	}
	// -160 -> -40 is a large spike above the floor.
	if !f.Breathing {
		t.Error("rise from floored silence should breathe")
	}

	f, _ = d.Process(math.NaN())
	if f.Breathing {
		t.Error("NaN must classify as non-breath")
	}
	if math.IsNaN(f.Strength) {
		t.Error("strength must stay finite")
	}
}

func TestStrengthBounded(t *testing.T) {
	d := NewDetector(DefaultConfig())
	samples := []float64{-100, 0, -100, 0, -100, 0, 0, 0, -30, -1}
	for _, f := range feed(d, samples...) {
		if f.Strength < 0 || f.Strength > 100 {
			t.Fatalf("strength %v out of range", f.Strength)
		}
	}
}

func TestResetReseeds(t *testing.T) {
	d := NewDetector(DefaultConfig())
	feed(d, -50, -40)
	before := d.Frame().Seq
	d.Reset()
	f := d.Frame()
	if f.Strength != 0 || f.Breathing {
		t.Errorf("after reset frame = %+v", f)
	}
	if f.Seq <= before {
		t.Error("reset should advance seq")
	}
	if _, ok := d.Process(-40); ok {
		t.Error("first sample after reset should only seed")
	}
}

func TestOverride(t *testing.T) {
	d := NewDetector(DefaultConfig())
	d.Override(true)
	if !d.Frame().Breathing {
		t.Error("override not applied")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*Config)
		ok   bool
	}{
		{"defaults", func(*Config) {}, true},
		{"zero alpha", func(c *Config) { c.Alpha = 0 }, false},
		{"alpha one", func(c *Config) { c.Alpha = 1 }, true},
		{"decay one", func(c *Config) { c.Decay = 1 }, false},
		{"negative gain", func(c *Config) { c.Gain = -1 }, false},
		{"zero threshold", func(c *Config) { c.SpikeThresholdDB = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mut(&cfg)
			err := cfg.Validate()
			if (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}
