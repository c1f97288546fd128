// Package breath turns a stream of decibel readings into a smoothed
// breathing strength and a breathing flag.
package breath

import (
	"fmt"
	"math"
	"sync"
)

// FloorDB replaces non-finite readings. Matches audio.MeterFloorDB.
const FloorDB = -160.0

type Config struct {
	SpikeThresholdDB float64 `yaml:"spike_threshold_db" env:"SPIKE_THRESHOLD_DB"`
	MinDBForBreath   float64 `yaml:"min_db_for_breath" env:"MIN_DB_FOR_BREATH"`
	Gain             float64 `yaml:"gain" env:"GAIN"`
	Alpha            float64 `yaml:"alpha" env:"ALPHA"`
	Decay            float64 `yaml:"decay" env:"DECAY"`
}

func DefaultConfig() Config {
	return Config{
		SpikeThresholdDB: 4,
		MinDBForBreath:   -45,
		Gain:             12,
		Alpha:            0.5,
		Decay:            0.85,
	}
}

func (c Config) Validate() error {
	if c.SpikeThresholdDB <= 0 {
		return fmt.Errorf("spike threshold must be positive, got %v", c.SpikeThresholdDB)
	}
	if c.Gain <= 0 {
		return fmt.Errorf("gain must be positive, got %v", c.Gain)
	}
	if c.Alpha <= 0 || c.Alpha > 1 {
		return fmt.Errorf("alpha must be in (0,1], got %v", c.Alpha)
	}
	if c.Decay <= 0 || c.Decay >= 1 {
		return fmt.Errorf("decay must be in (0,1), got %v", c.Decay)
	}
	return nil
}

// Frame is the published result of one processed sample.
type Frame struct {
	Strength  float64
	Breathing bool
	Seq       uint64
}

// Detector is written by a single goroutine (the sampler tick) and read by
// any number of others through Frame.
type Detector struct {
	cfg Config

	mu       sync.Mutex
	prev     float64
	hasPrev  bool
	strength float64
	frame    Frame
}

func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// Process consumes one reading. The first reading after construction or
// Reset only seeds the baseline and reports false.
func (d *Detector) Process(db float64) (Frame, bool) {
	if math.IsNaN(db) || math.IsInf(db, 0) {
		db = FloorDB
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.hasPrev {
		d.prev = db
		d.hasPrev = true
		return d.frame, false
	}

	delta := db - d.prev
	d.prev = db

	breathing := delta > d.cfg.SpikeThresholdDB && db > d.cfg.MinDBForBreath
	if breathing {
		target := math.Min(delta*d.cfg.Gain, 100)
		d.strength += (target - d.strength) * d.cfg.Alpha
	} else {
		d.strength *= d.cfg.Decay
	}
	d.strength = clamp(d.strength, 0, 100)

	d.frame = Frame{
		Strength:  d.strength,
		Breathing: breathing,
		Seq:       d.frame.Seq + 1,
	}
	return d.frame, true
}

// Frame returns the most recently published frame.
func (d *Detector) Frame() Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frame
}

// Reset clears the baseline and strength. Seq keeps counting so readers can
// tell a reset frame from a stale one.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hasPrev = false
	d.prev = 0
	d.strength = 0
	d.frame = Frame{Seq: d.frame.Seq + 1}
}

// Override replaces the breathing flag of the current frame.
func (d *Detector) Override(breathing bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frame.Breathing = breathing
	d.frame.Seq++
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
