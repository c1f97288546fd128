//go:build !windows

package shutdown

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// NotifyContext is cancelled on interrupt or SIGTERM.
func NotifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
