//go:build !linux && !darwin

package beep

// No playback backend here; cues are silent.

func Init()         {}
func PlayStart()    {}
func PlayComplete() {}
func PlayError()    {}
