//go:build linux

package beep

import (
	"sync"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

var (
	startSamples    []int16
	completeSamples []int16
	errorSamples    []int16
	soundOnce       sync.Once
)

func initSound() {
	startSamples = render(startCue, sampleRate, 2)
	completeSamples = render(completeCue, sampleRate, 2)
	errorSamples = render(errorCue, sampleRate, 2)
}

func playSamples(samples []int16) {
	if len(samples) == 0 {
		return
	}
	c, err := pulse.NewClient(pulse.ClientApplicationName("breathe"))
	if err != nil {
		return
	}
	defer c.Close()

	pos := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if pos >= len(samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, samples[pos:])
		pos += n
		return n, nil
	})
	stream, err := c.NewPlayback(reader,
		pulse.PlaybackStereo,
		pulse.PlaybackSampleRate(sampleRate),
		pulse.PlaybackLatency(0.1),
		pulse.PlaybackRawOption(func(p *proto.CreatePlaybackStream) {
			p.ChannelVolumes = proto.ChannelVolumes{uint32(proto.VolumeNorm), uint32(proto.VolumeNorm)}
		}),
	)
	if err != nil {
		return
	}
	stream.Start()
	stream.Drain()
	stream.Stop()
	stream.Close()
}

func Init() {
	soundOnce.Do(initSound)
}

func play(samples *[]int16) {
	if disabled {
		return
	}
	soundOnce.Do(initSound)
	go playSamples(*samples)
}

func PlayStart()    { play(&startSamples) }
func PlayComplete() { play(&completeSamples) }
func PlayError()    { play(&errorSamples) }
