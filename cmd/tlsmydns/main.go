package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tlsmy/tlsmydns/log"
	"github.com/tlsmy/tlsmydns/pregen"
)

func reportError(severity string, err error, messages ...string) {
	msg := severity
	if len(messages) > 0 {
		msg += ": " + strings.Join(messages, " ")
	}
	if err != nil {
		msg += ": " + err.Error()
	}
	fmt.Fprintln(log.Out(), msg)
}

func fatal(err error, messages ...string) {
	reportError("Fatal", err, messages...)
	os.Exit(1)
}

func warning(err error, messages ...string) {
	reportError("Warning", err, messages...)
}

//////////////////////////////////////////////////////////////////////

func main() {
	td := newTLSMyDNS(nil)
	switch td.parseOptions(os.Args) {
	case parseStop:
		return
	case parseFailed:
		os.Exit(1)
	case parseContinue:
	}

	// Transfer logging options to the log package

	if td.cfg.logMajorFlag {
		log.SetLevel(log.MajorLevel)
	}
	if td.cfg.logMinorFlag {
		log.SetLevel(log.MinorLevel)
	}
	if td.cfg.logDebugFlag {
		log.SetLevel(log.DebugLevel)
	}

	fmt.Fprintln(log.Out(),
		programName, pregen.Version, "Starting with Log Level:", log.Level())

	// Validate everything that is likely a typo or usage error
	err := td.ValidateCommandLineOptions()
	if err != nil {
		fatal(err)
	}

	err = td.openStore()
	if err != nil {
		fatal(err)
	}

	if len(td.cfg.metricsListen) > 0 {
		td.startMetrics()
	}

	td.startServers() // Only returns if listens succeed
	td.Constrain()    // setuid/setgid/chroot

	td.Run()

	td.statsReport(false) // Final stats - depending on log level
	td.closeStore()

	fmt.Fprintln(log.Out(), programName, pregen.Version, "Exiting after",
		time.Since(td.startTime).Round(time.Second))
}
