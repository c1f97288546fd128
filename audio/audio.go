package audio

import (
	"context"
	"errors"
	"strings"
)

const WAVHeaderSize = 44

// ErrPermissionDenied is returned by RequestPermission when the platform
// refuses microphone access or has no capture source to grant.
var ErrPermissionDenied = errors.New("microphone permission denied")

var btKeywords = []string{
	"airpods", "beats", "bose", "wh-1000", "wf-1000",
	"jabra", "galaxy buds", "pixel buds", "powerbeats",
	"jbl ", "sennheiser momentum", "soundcore",
	"bluetooth", " bt ", " bt)", " bt]",
}

// IsBluetooth guesses from the device name whether capture goes over a
// Bluetooth headset profile, which meters noticeably lower than a wired mic.
func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// DataCallback receives 16-bit little-endian mono PCM.
type DataCallback func(data []byte, frameCount uint32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	RequestPermission(ctx context.Context) error
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	DeviceName() string
	// Recording reports whether the device is between Start and Stop.
	Recording() bool
}
