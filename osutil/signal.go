package osutil

// SignalAction is what a received signal asks the process to do.
type SignalAction int

const (
	SignalIgnore         SignalAction = iota // Reserved for future use
	SignalStop                               // SIGTERM, SIGINT - orderly shutdown
	SignalReport                             // SIGUSR1 - immediate stats report
	SignalToggleQueryLog                     // SIGUSR2 - flip --log-queries
)

func (t SignalAction) String() string {
	switch t {
	case SignalStop:
		return "stop"
	case SignalReport:
		return "report"
	case SignalToggleQueryLog:
		return "toggle-query-log"
	}

	return "ignore"
}
