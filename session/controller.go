package session

import (
	"time"

	"breathe/balloon"
)

type State string

const (
	Idle     State = "idle"
	Active   State = "active"
	Complete State = "complete"
)

type Feedback int

const (
	Ready Feedback = iota
	BlowSoftly
	Perfect
	SoftWind
	BlowGently
	WellDone
)

func (f Feedback) String() string {
	switch f {
	case BlowSoftly:
		return "Blow softly"
	case Perfect:
		return "That's perfect"
	case SoftWind:
		return "Soft wind..."
	case BlowGently:
		return "Blow gently"
	case WellDone:
		return "Beautiful breathing"
	default:
		return "Ready?"
	}
}

func feedbackFor(b balloon.Band) Feedback {
	switch b {
	case balloon.Calm:
		return Perfect
	case balloon.TooStrong:
		return SoftWind
	default:
		return BlowGently
	}
}

// Controller is the goal state machine. It holds no lock; Session
// serializes access.
type Controller struct {
	goal     time.Duration
	state    State
	calm     time.Duration
	feedback Feedback
}

func NewController(goal time.Duration) *Controller {
	return &Controller{goal: goal, state: Idle, feedback: Ready}
}

// Start moves Idle to Active with calm time cleared. It reports false in any
// other state.
func (c *Controller) Start() bool {
	if c.state != Idle {
		return false
	}
	c.state = Active
	c.calm = 0
	c.feedback = BlowSoftly
	return true
}

// Step accounts one tick of length dt spent in band. It returns true on the
// single tick that reaches the goal.
func (c *Controller) Step(band balloon.Band, dt time.Duration) bool {
	if c.state != Active {
		return false
	}
	c.feedback = feedbackFor(band)
	if band == balloon.Calm {
		c.calm += dt
	}
	if c.calm >= c.goal {
		c.state = Complete
		c.feedback = WellDone
		return true
	}
	return false
}

// Stop abandons an active session and discards its calm time.
func (c *Controller) Stop() bool {
	if c.state != Active {
		return false
	}
	c.state = Idle
	c.calm = 0
	c.feedback = Ready
	return true
}

// Claim returns a completed session to Idle.
func (c *Controller) Claim() bool {
	if c.state != Complete {
		return false
	}
	c.state = Idle
	c.calm = 0
	c.feedback = Ready
	return true
}

func (c *Controller) State() State        { return c.state }
func (c *Controller) Calm() time.Duration { return c.calm }
func (c *Controller) Feedback() Feedback  { return c.feedback }

// Progress is calm time over the goal, capped at 1.
func (c *Controller) Progress() float64 {
	if c.goal <= 0 {
		return 1
	}
	return min(float64(c.calm)/float64(c.goal), 1)
}
