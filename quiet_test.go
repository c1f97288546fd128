package main

import (
	"testing"
	"time"
)

const quietTick = 100 * time.Millisecond

func feedN(m *quietMonitor, breathing bool, n int) QuietEvent {
	var last QuietEvent
	for i := 0; i < n; i++ {
		last = m.Tick(breathing)
	}
	return last
}

func TestQuietWarnAfter8s(t *testing.T) {
	m := newQuietMonitor(quietTick)
	for i := 0; i < 79; i++ {
		if ev := m.Tick(false); ev != QuietNone {
			t.Fatalf("unexpected event at tick %d: %d", i, ev)
		}
	}
	if ev := m.Tick(false); ev != QuietWarn {
		t.Fatalf("expected QuietWarn at tick 80, got %d", ev)
	}
	if !m.Warned() {
		t.Error("monitor should report warned")
	}
}

func TestQuietWarnOnlyOnce(t *testing.T) {
	m := newQuietMonitor(quietTick)
	feedN(m, false, 80)
	for i := 0; i < 100; i++ {
		if ev := m.Tick(false); ev == QuietWarn {
			t.Fatalf("repeated warning at tick %d", 80+i)
		}
	}
}

func TestQuietClearsOnBreathing(t *testing.T) {
	m := newQuietMonitor(quietTick)
	feedN(m, false, 80)

	cleared := false
	for i := 0; i < 80; i++ {
		if m.Tick(true) == QuietClear {
			cleared = true
			break
		}
	}
	if !cleared {
		t.Fatal("sustained breathing should clear the warning")
	}
	if m.Warned() {
		t.Error("warned flag should be reset")
	}
}

func TestQuietSteadyBreathingNeverWarns(t *testing.T) {
	m := newQuietMonitor(quietTick)
	for i := 0; i < 600; i++ {
		// one breathing tick in five
		if ev := m.Tick(i%5 == 0); ev != QuietNone {
			t.Fatalf("unexpected event %d at tick %d", ev, i)
		}
	}
}

func TestQuietAutoStopAfter30s(t *testing.T) {
	m := newQuietMonitor(quietTick)
	if ev := feedN(m, false, 299); ev == QuietAutoStop {
		t.Fatal("auto-stop before 30s")
	}
	if ev := m.Tick(false); ev != QuietAutoStop {
		t.Fatalf("expected QuietAutoStop at 30s, got %d", ev)
	}
}
