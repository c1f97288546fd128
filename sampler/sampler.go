// Package sampler owns the microphone capture for one breathing session and
// turns it into a steady stream of decibel readings.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"breathe/audio"
	"breathe/encoder"
	"breathe/log"
	"breathe/schedule"
)

// ErrCaptureUnavailable marks a poll where the capture was not recording or
// had no metering data. The tick is skipped, nothing is delivered.
var ErrCaptureUnavailable = errors.New("capture unavailable")

type Config struct {
	Interval  time.Duration `yaml:"interval" env:"INTERVAL"`
	Record    bool          `yaml:"record" env:"RECORD"`
	RecordDir string        `yaml:"record_dir" env:"RECORD_DIR"`
}

func DefaultConfig() Config {
	return Config{
		Interval:  40 * time.Millisecond,
		Record:    true,
		RecordDir: filepath.Join(os.TempDir(), "breathe"),
	}
}

func (c Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("sampler interval must be positive, got %s", c.Interval)
	}
	if c.Record && c.RecordDir == "" {
		return fmt.Errorf("sampler record dir is required when recording")
	}
	return nil
}

// Sampler polls the capture's metering at a fixed cadence and hands each
// reading to onSample on the poll goroutine.
type Sampler struct {
	audio    audio.Context
	device   *audio.DeviceInfo
	cfg      Config
	onSample func(db float64)

	mu      sync.Mutex
	running bool
	capture audio.CaptureDevice
	meter   *audio.Meter
	rec     *recording
	task    *schedule.Task

	stopping atomic.Bool
	skipped  atomic.Int64
}

func New(actx audio.Context, device *audio.DeviceInfo, cfg Config, onSample func(db float64)) *Sampler {
	return &Sampler{
		audio:    actx,
		device:   device,
		cfg:      cfg,
		onSample: onSample,
	}
}

// Start asks for microphone access and begins capture. It is a no-op while
// already running. On a refused permission it returns an error wrapping
// audio.ErrPermissionDenied and leaves the sampler stopped.
func (s *Sampler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	if err := s.audio.RequestPermission(ctx); err != nil {
		return err
	}

	capture, err := s.audio.NewCapture(s.device, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	if err != nil {
		return fmt.Errorf("capture init: %w", err)
	}

	meter := &audio.Meter{}
	var rec *recording
	if s.cfg.Record {
		rec, err = newRecording(s.cfg.RecordDir)
		if err != nil {
			log.Warnf("recording disabled: %v", err)
			rec = nil
		}
	}

	capture.SetCallback(func(data []byte, _ uint32) {
		meter.Feed(data)
		if rec != nil {
			rec.Feed(data)
		}
	})
	if err := capture.Start(); err != nil {
		capture.ClearCallback()
		capture.Close()
		if rec != nil {
			rec.Abort()
		}
		return fmt.Errorf("capture start: %w", err)
	}

	s.capture = capture
	s.meter = meter
	s.rec = rec
	s.running = true
	s.skipped.Store(0)
	s.task = schedule.Every(s.cfg.Interval, s.tick)
	log.Info("capture_start: " + capture.DeviceName())
	return nil
}

func (s *Sampler) tick() bool {
	db, err := s.poll()
	if err != nil {
		s.skipped.Add(1)
		return true
	}
	s.onSample(db)
	return true
}

func (s *Sampler) poll() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.capture == nil || !s.capture.Recording() {
		return 0, ErrCaptureUnavailable
	}
	db, ok := s.meter.Level()
	if !ok {
		return 0, ErrCaptureUnavailable
	}
	return db, nil
}

// Stop ends polling, releases the capture and returns the path of the FLAC
// recording ("" when there is none). A Stop that arrives while another is
// in progress returns immediately. Safe to call when never started.
func (s *Sampler) Stop() (string, error) {
	if !s.stopping.CompareAndSwap(false, true) {
		return "", nil
	}
	defer s.stopping.Store(false)

	s.mu.Lock()
	task, capture, rec := s.task, s.capture, s.rec
	s.running = false
	s.task, s.capture, s.meter, s.rec = nil, nil, nil, nil
	s.mu.Unlock()

	// No tick may touch the capture once it is released.
	task.Stop()

	if capture != nil {
		capture.Stop()
		capture.ClearCallback()
		capture.Close()
		log.Info("capture_stop")
	}
	if rec == nil {
		return "", nil
	}
	return rec.Finish()
}

func (s *Sampler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Skipped counts polls dropped as ErrCaptureUnavailable since Start.
func (s *Sampler) Skipped() int64 { return s.skipped.Load() }
