// Package beep plays short synthesized cues: a session starting, a session
// completing and a microphone failure.
package beep

import "math"

var disabled bool

func Disable() { disabled = true }

const sampleRate = 44100

// note is one decaying sine partial starting at offset seconds.
type note struct {
	freq   float64
	offset float64
	dur    float64
	volume float64
	decay  float64
}

var (
	// Start: soft two-note rise.
	startCue = []note{
		{freq: 660, offset: 0, dur: 0.15, volume: 0.35, decay: 25},
		{freq: 880, offset: 0.12, dur: 0.2, volume: 0.35, decay: 20},
	}
	// Complete: bright arpeggio.
	completeCue = []note{
		{freq: 784, offset: 0, dur: 0.18, volume: 0.4, decay: 18},
		{freq: 988, offset: 0.12, dur: 0.18, volume: 0.4, decay: 18},
		{freq: 1175, offset: 0.24, dur: 0.35, volume: 0.4, decay: 10},
	}
	// Error: low double beep.
	errorCue = []note{
		{freq: 350, offset: 0, dur: 0.08, volume: 0.6, decay: 30},
		{freq: 350, offset: 0.13, dur: 0.08, volume: 0.6, decay: 30},
	}
)

// render mixes notes into interleaved int16 PCM with the given channel count.
func render(notes []note, rate, channels int) []int16 {
	var end float64
	for _, n := range notes {
		end = math.Max(end, n.offset+n.dur)
	}
	frames := int(end * float64(rate))
	mix := make([]float64, frames)
	for _, n := range notes {
		start := int(n.offset * float64(rate))
		count := int(n.dur * float64(rate))
		for i := 0; i < count && start+i < frames; i++ {
			t := float64(i) / float64(rate)
			mix[start+i] += math.Sin(2*math.Pi*n.freq*t) * n.volume * math.Exp(-t*n.decay)
		}
	}

	out := make([]int16, frames*channels)
	for i, v := range mix {
		s := int16(math.Max(-1, math.Min(1, v)) * 32767)
		for c := 0; c < channels; c++ {
			out[i*channels+c] = s
		}
	}
	return out
}
