//go:build windows

package shutdown

import (
	"context"
	"os"
	"os/signal"
)

// NotifyContext is cancelled on interrupt.
func NotifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt)
}
