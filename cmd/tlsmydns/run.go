package main

import (
	"fmt"
	"os"
	"time"

	"github.com/tlsmy/tlsmydns/log"
	"github.com/tlsmy/tlsmydns/osutil"
	"github.com/tlsmy/tlsmydns/pregen"
)

// Run the server loop checking for signals and stats reports events
func (t *tlsmyDNS) Run() {
	t.startTime = time.Now()
	t.statsTime = t.startTime

	var signal os.Signal
	osutil.SignalNotify(t.sig) // Register interest in signals

	log.Major("Zone Authority: ", t.resolver.Domain())
	fmt.Fprintln(log.Out(), programName, pregen.Version, "Ready")

	// Conditionally create the periodic report channel. Fortunately select purposely
	// doesn't mind a nil channel, which is very convenient.
	var reportChannel <-chan time.Time
	if t.cfg.reportInterval > 0 {
		reportTicker := time.NewTicker(t.cfg.reportInterval)
		reportChannel = reportTicker.C
		defer reportTicker.Stop()
	}

	stopFlag := false
	for !stopFlag {
		select {
		case <-reportChannel:
			t.statsReport(true)

		case signal = <-t.sig:
			switch osutil.ClassifySignal(signal) {
			case osutil.SignalStop:
				stopFlag = true

			case osutil.SignalReport:
				t.statsReport(false)

			case osutil.SignalToggleQueryLog:
				v := !t.cfg.queryLogging.Load()
				t.cfg.queryLogging.Store(v)
				log.Majorf("--log-queries=%t", v)

			default:
				log.Majorf("Signal '%s' reserved for future use", signal)
			}
		}
	}

	log.Majorf("Signal '%s' initiates shutdown", signal)
	close(t.done)   // Tell companion go-routines
	t.stopServers() // Tell servers and wait until they exit
	log.Minor("All Listen servers stopped")
	if t.metrics != nil {
		t.metrics.stop()
	}
}

var zeroStats serverStats

// Writes summary stats to log.Out()
func (t *tlsmyDNS) statsReport(resetCounters bool) {
	var totals serverStats
	for _, srv := range t.servers {
		srv.statsMu.Lock() // Take writer lock in case resetCounters is true
		totals.add(&srv.stats)
		if resetCounters {
			srv.stats = zeroStats
		}
		srv.statsMu.Unlock()
	}

	now := time.Now()
	upDuration := now.Sub(t.startTime).Round(time.Second)
	statsDuration := now.Sub(t.statsTime).Round(time.Second)
	if resetCounters {
		t.statsTime = now
	}

	// Version is included with uptime so stats parsers know exactly what to expect.

	log.Major("Stats: Uptime ", upDuration,
		" Stats Time: ", statsDuration, " ", pregen.Version)
	log.Major("Stats: Total ", totals.gen.String())
	log.Major("Stats: Outcome ", totals.outcome.String())

	var shared, throttled int64 // Store counters are cumulative
	if t.coalesced != nil {
		shared = t.coalesced.Shared()
	}
	if t.limited != nil {
		throttled = t.limited.Throttled()
	}
	log.Major("Stats: Store shared=", shared, " throttled=", throttled)
}
