package audio

import (
	"encoding/binary"
	"math"
	"sync"
)

// MeterFloorDB is the reading reported for digital silence, matching the
// bottom of the metering range mobile capture APIs expose.
const MeterFloorDB = -160.0

// Meter accumulates PCM from the capture callback and reports its level in
// dBFS when polled. Each poll covers the audio since the previous one.
type Meter struct {
	mu         sync.Mutex
	sumSquares float64
	samples    int
}

func (m *Meter) Feed(pcm []byte) {
	var sum float64
	n := 0
	for i := 0; i+1 < len(pcm); i += 2 {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[i:]))) / 32768.0
		sum += s * s
		n++
	}
	if n == 0 {
		return
	}
	m.mu.Lock()
	m.sumSquares += sum
	m.samples += n
	m.mu.Unlock()
}

// Level returns the RMS level since the last call. ok is false when no audio
// arrived in between, i.e. metering is unavailable for this poll.
func (m *Meter) Level() (db float64, ok bool) {
	m.mu.Lock()
	sum, n := m.sumSquares, m.samples
	m.sumSquares, m.samples = 0, 0
	m.mu.Unlock()
	if n == 0 {
		return 0, false
	}
	return DB(math.Sqrt(sum / float64(n))), true
}

// DB converts a linear amplitude in [0,1] to dBFS, floored at MeterFloorDB.
func DB(amplitude float64) float64 {
	if amplitude <= 0 || math.IsNaN(amplitude) {
		return MeterFloorDB
	}
	db := 20 * math.Log10(amplitude)
	if db < MeterFloorDB {
		return MeterFloorDB
	}
	return db
}
