package main

import "time"

const (
	quietWarnAfter   = 8 * time.Second
	quietAutoStop    = 30 * time.Second
	breathMinRatio   = 0.05
	breathClearRatio = 0.15 // higher threshold to clear warning (hysteresis)
)

type QuietEvent int

const (
	QuietNone     QuietEvent = iota
	QuietWarn                // no breath detected
	QuietClear               // breathing resumed after warning
	QuietAutoStop            // nobody has breathed for the whole window
)

// quietMonitor watches per-tick breathing flags during an active session and
// flags a child who has walked away from the microphone.
type quietMonitor struct {
	warnAt   int
	windowSz int

	ticks       int
	window      []bool
	breathCount int
	warned      bool
}

func newQuietMonitor(tick time.Duration) *quietMonitor {
	warnAt := int(quietWarnAfter / tick)
	windowSz := int(quietAutoStop / tick)
	return &quietMonitor{
		warnAt:   warnAt,
		windowSz: windowSz,
		window:   make([]bool, windowSz),
	}
}

func (m *quietMonitor) ratio(n int) float64 {
	if m.ticks < n {
		n = m.ticks
	}
	if n == 0 {
		return 1.0
	}
	count := 0
	for i := 0; i < n; i++ {
		if m.window[(m.ticks-1-i+m.windowSz)%m.windowSz] {
			count++
		}
	}
	return float64(count) / float64(n)
}

func (m *quietMonitor) Tick(breathing bool) QuietEvent {
	idx := m.ticks % m.windowSz
	if m.ticks >= m.windowSz && m.window[idx] {
		m.breathCount--
	}
	m.window[idx] = breathing
	if breathing {
		m.breathCount++
	}
	m.ticks++

	r := m.ratio(m.warnAt)

	if m.ticks >= m.windowSz && float64(m.breathCount)/float64(m.windowSz) < breathMinRatio {
		return QuietAutoStop
	}
	if m.ticks >= m.warnAt && r < breathMinRatio && !m.warned {
		m.warned = true
		return QuietWarn
	}
	if m.warned && r >= breathClearRatio {
		m.warned = false
		return QuietClear
	}
	return QuietNone
}

func (m *quietMonitor) Warned() bool { return m.warned }
