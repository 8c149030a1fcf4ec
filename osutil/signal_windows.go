package osutil

import (
	"os"
	"os/signal"
)

// SignalNotify only registers interrupt on Windows.
func SignalNotify(c chan os.Signal) {
	signal.Notify(c, os.Interrupt)
}

func ClassifySignal(s os.Signal) SignalAction {
	if s == os.Interrupt {
		return SignalStop
	}

	return SignalIgnore
}
