//go:build !windows
// +build !windows

package osutil

import (
	"os"
	"os/signal"
	"syscall"
)

// SignalNotify asks the OS to send the signals tlsmydns acts on to the supplied channel.
func SignalNotify(c chan os.Signal) {
	signal.Notify(c, os.Interrupt, syscall.SIGTERM, syscall.SIGUSR1, syscall.SIGUSR2)
}

// ClassifySignal maps a received signal to the action the run loop should take.
func ClassifySignal(s os.Signal) SignalAction {
	switch s {
	case os.Interrupt, syscall.SIGTERM:
		return SignalStop
	case syscall.SIGUSR1:
		return SignalReport
	case syscall.SIGUSR2:
		return SignalToggleQueryLog
	}

	return SignalIgnore
}
