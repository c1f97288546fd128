// Package session runs one breathing exercise: microphone sampling, breath
// detection, the balloon animation and the calm-time goal.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"breathe/audio"
	"breathe/balloon"
	"breathe/beep"
	"breathe/breath"
	"breathe/classify"
	"breathe/log"
	"breathe/rewards"
	"breathe/sampler"
	"breathe/schedule"
)

var (
	ErrClosed         = errors.New("session closed")
	ErrNothingToClaim = errors.New("no completed session to claim")
	ErrUnclaimed      = errors.New("completed session not yet claimed")
)

const classifyTimeout = 5 * time.Second

type Config struct {
	Detector breath.Config  `yaml:"detector" envPrefix:"DETECTOR_"`
	Balloon  balloon.Config `yaml:"balloon" envPrefix:"BALLOON_"`
	Sampler  sampler.Config `yaml:"sampler" envPrefix:"SAMPLER_"`

	StepInterval   time.Duration `yaml:"step_interval" env:"STEP_INTERVAL"`
	Goal           time.Duration `yaml:"goal" env:"GOAL"`
	Points         int           `yaml:"points" env:"POINTS"`
	KeepRecordings bool          `yaml:"keep_recordings" env:"KEEP_RECORDINGS"`
}

func DefaultConfig() Config {
	return Config{
		Detector:     breath.DefaultConfig(),
		Balloon:      balloon.DefaultConfig(),
		Sampler:      sampler.DefaultConfig(),
		StepInterval: 100 * time.Millisecond,
		Goal:         10 * time.Second,
		Points:       30,
	}
}

func (c Config) Validate() error {
	if err := c.Detector.Validate(); err != nil {
		return fmt.Errorf("detector: %w", err)
	}
	if err := c.Balloon.Validate(); err != nil {
		return fmt.Errorf("balloon: %w", err)
	}
	if err := c.Sampler.Validate(); err != nil {
		return fmt.Errorf("sampler: %w", err)
	}
	if c.StepInterval <= 0 {
		return fmt.Errorf("step interval must be positive, got %s", c.StepInterval)
	}
	if c.Goal <= 0 {
		return fmt.Errorf("goal must be positive, got %s", c.Goal)
	}
	if c.Points < 0 {
		return fmt.Errorf("points must not be negative, got %d", c.Points)
	}
	return nil
}

// Completion is delivered once per session that reaches the goal.
type Completion struct {
	SessionID     string
	Points        int
	Calm          time.Duration
	RecordingPath string // set only with KeepRecordings
	At            time.Time
}

type Deps struct {
	Audio  audio.Context
	Device *audio.DeviceInfo

	// Optional. Classifier defaults to classify.Absent, Rewards to
	// rewards.Discard.
	Classifier classify.Classifier
	Rewards    rewards.Sink

	// OnComplete runs on the session's step goroutine. It must not call
	// Close synchronously.
	OnComplete func(Completion)
}

// Snapshot is a read-only view for rendering.
type Snapshot struct {
	ID       string
	State    State
	Frame    breath.Frame
	Band     balloon.Band
	Scale    float64
	Mode     balloon.Mode
	Calm     time.Duration
	Goal     time.Duration
	Feedback Feedback
	Progress float64
}

type Session struct {
	cfg  Config
	deps Deps

	detector *breath.Detector
	sampler  *sampler.Sampler
	sim      *balloon.Simulator
	anim     *schedule.Task

	mu       sync.Mutex
	ctrl     *Controller
	id       string
	band     balloon.Band
	pending  *Completion
	closed   bool
	starting bool
	// stopDone is closed once the most recently scheduled capture teardown
	// (stop or completion) has finished, classifier included.
	stopDone chan struct{}

	stopMu sync.Mutex
}

// New builds an idle session and starts its animation loop. Close must be
// called to release it.
func New(cfg Config, deps Deps) (*Session, error) {
	return newSession(cfg, deps, cfg.StepInterval)
}

// newSession schedules the animation loop every period while each step
// still advances by cfg.StepInterval.
func newSession(cfg Config, deps Deps, period time.Duration) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Audio == nil {
		return nil, fmt.Errorf("audio context is required")
	}
	if deps.Classifier == nil {
		deps.Classifier = classify.Absent{}
	}
	if deps.Rewards == nil {
		deps.Rewards = rewards.Discard
	}

	s := &Session{
		cfg:      cfg,
		deps:     deps,
		detector: breath.NewDetector(cfg.Detector),
		sim:      balloon.New(cfg.Balloon),
		ctrl:     NewController(cfg.Goal),
	}
	s.sampler = sampler.New(deps.Audio, deps.Device, cfg.Sampler, s.onSample)
	s.anim = schedule.Every(period, s.step)
	return s, nil
}

func (s *Session) onSample(db float64) {
	s.detector.Process(db)
}

// Start begins an exercise. It is a no-op while one is active. It waits
// for the previous exercise's capture teardown, bounded by ctx. A refused
// microphone leaves the session idle and returns an error wrapping
// audio.ErrPermissionDenied.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	switch {
	case s.ctrl.State() == Complete:
		s.mu.Unlock()
		return ErrUnclaimed
	case s.ctrl.State() == Active || s.starting:
		s.mu.Unlock()
		return nil
	}
	s.starting = true
	wait := s.stopDone
	s.mu.Unlock()

	// The previous exercise must release the sampler and the detector first.
	if wait != nil {
		select {
		case <-wait:
		case <-ctx.Done():
			s.mu.Lock()
			s.starting = false
			s.mu.Unlock()
			return ctx.Err()
		}
	}

	s.detector.Reset()
	err := s.sampler.Start(ctx)

	s.mu.Lock()
	s.starting = false
	if err != nil {
		s.mu.Unlock()
		log.Errorf("session start: %v", err)
		beep.PlayError()
		return err
	}
	if s.closed {
		s.mu.Unlock()
		s.stopCapture("")
		return ErrClosed
	}
	s.ctrl.Start()
	s.id = uuid.NewString()
	s.band = balloon.None
	s.sim.SetInflating(true)
	id := s.id
	s.mu.Unlock()

	device := "default"
	if s.deps.Device != nil {
		device = s.deps.Device.Name
	}
	log.SessionStart(id, device)
	beep.PlayStart()
	return nil
}

// step is the animation tick. It reads only published detector frames.
func (s *Session) step() bool {
	frame := s.detector.Frame()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	band, _ := s.sim.Step(frame, s.cfg.StepInterval)
	s.band = band

	var done *Completion
	var stopped chan struct{}
	if s.ctrl.Step(band, s.cfg.StepInterval) {
		c := Completion{
			SessionID: s.id,
			Points:    s.cfg.Points,
			Calm:      s.ctrl.Calm(),
			At:        time.Now(),
		}
		s.pending = &c
		s.sim.SetInflating(false)
		done = &c
		stopped = s.beginStop()
	}
	s.mu.Unlock()

	if done != nil {
		s.finish(*done, stopped)
	}
	return true
}

// beginStop marks a capture teardown as in flight. s.mu must be held.
func (s *Session) beginStop() chan struct{} {
	ch := make(chan struct{})
	s.stopDone = ch
	return ch
}

func (s *Session) finish(c Completion, stopped chan struct{}) {
	c.RecordingPath = s.stopCapture(c.SessionID)
	close(stopped)

	s.mu.Lock()
	if s.pending != nil && s.pending.SessionID == c.SessionID {
		s.pending.RecordingPath = c.RecordingPath
	}
	s.mu.Unlock()

	log.Completion(c.SessionID, c.Points)
	log.SessionEnd(c.SessionID, c.Calm, true, s.sampler.Skipped())
	beep.PlayComplete()
	if s.deps.OnComplete != nil {
		s.deps.OnComplete(c)
	}
}

// Stop abandons an active exercise and discards its calm time. Repeated or
// late calls do nothing.
func (s *Session) Stop() {
	s.mu.Lock()
	id, calm := s.id, s.ctrl.Calm()
	if s.closed || !s.ctrl.Stop() {
		s.mu.Unlock()
		return
	}
	s.sim.SetInflating(false)
	stopped := s.beginStop()
	s.mu.Unlock()

	s.stopCapture(id)
	close(stopped)
	log.SessionEnd(id, calm, false, s.sampler.Skipped())
}

// Claim records the pending reward and returns the session to idle. If the
// sink fails the session stays complete so the claim can be retried.
func (s *Session) Claim(ctx context.Context) (Completion, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Completion{}, ErrClosed
	}
	if s.ctrl.State() != Complete || s.pending == nil {
		s.mu.Unlock()
		return Completion{}, ErrNothingToClaim
	}
	c := *s.pending
	s.mu.Unlock()

	err := s.deps.Rewards.Award(ctx, rewards.Reward{
		SessionID: c.SessionID,
		Points:    c.Points,
		Calm:      c.Calm,
		At:        c.At,
	})
	if err != nil {
		log.Errorf("claim %s: %v", c.SessionID, err)
		return c, fmt.Errorf("claim: %w", err)
	}

	s.mu.Lock()
	if s.pending != nil && s.pending.SessionID == c.SessionID {
		s.ctrl.Claim()
		s.pending = nil
	}
	s.mu.Unlock()
	return c, nil
}

// Close tears the session down whatever its state. After Close returns no
// task touches the session.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	active := s.ctrl.State() == Active
	id, calm := s.id, s.ctrl.Calm()
	s.mu.Unlock()

	s.anim.Stop()
	s.stopCapture(id)
	if active {
		log.SessionEnd(id, calm, false, s.sampler.Skipped())
	}
}

// stopCapture releases the microphone and runs the classifier over the
// recording. It returns the kept recording path, if any.
func (s *Session) stopCapture(id string) string {
	s.stopMu.Lock()
	defer s.stopMu.Unlock()

	path, err := s.sampler.Stop()
	if err != nil {
		log.Warnf("recording: %v", err)
	}
	s.detector.Reset()
	if path == "" {
		return ""
	}

	s.classifyRecording(id, path)
	if s.cfg.KeepRecordings {
		return path
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warnf("remove recording: %v", err)
	}
	return ""
}

func (s *Session) classifyRecording(id, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Classifier(id, 0, fmt.Errorf("read recording: %w", err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), classifyTimeout)
	defer cancel()

	score, err := s.deps.Classifier.Predict(ctx, classify.Input{
		Audio:    data,
		Features: classify.Zeros(),
	})
	log.Classifier(id, score, err)
	if err != nil {
		return
	}
	s.detector.Override(classify.Breathing(score))
}

func (s *Session) Snapshot() Snapshot {
	frame := s.detector.Frame()
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:       s.id,
		State:    s.ctrl.State(),
		Frame:    frame,
		Band:     s.band,
		Scale:    s.sim.Scale(),
		Mode:     s.sim.Mode(),
		Calm:     s.ctrl.Calm(),
		Goal:     s.cfg.Goal,
		Feedback: s.ctrl.Feedback(),
		Progress: s.ctrl.Progress(),
	}
}

// Pending returns the unclaimed completion, if any.
func (s *Session) Pending() (Completion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return Completion{}, false
	}
	return *s.pending, true
}
