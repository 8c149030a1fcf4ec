//go:build !windows
// +build !windows

package main

import (
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/tlsmy/tlsmydns/log"
	"github.com/tlsmy/tlsmydns/mock"
)

func TestRun(t *testing.T) {
	testCases := []string{
		"Zone Authority: tlsmy.net.",
		programName,
		"Ready",
		"Stats: Uptime",
		"Stats: Total q=0",
		"Stats: Outcome out-of-domain=0",
		"Stats: Store shared=0 throttled=0",
		"reserved for future use",
		"log-queries=false",
		"log-queries=true",
		"initiates shutdown",
		"All Listen servers stopped",
	}

	out := &mock.IOWriter{}
	log.SetOut(out)
	defer log.SetLevel(log.Level())
	log.SetLevel(log.MinorLevel)

	td := newStartableTLSMyDNS(t, "127.0.0.1:0")
	td.cfg.reportInterval = time.Second
	td.startServers()
	go td.Run()
	time.Sleep(time.Second * 2) // Give stats report time to trigger

	// Send all non-terminating signals and toggle USR2 (--log-queries toggle)

	for _, sig := range []os.Signal{syscall.SIGUSR1, syscall.SIGHUP, syscall.SIGUSR2, syscall.SIGUSR2} {
		td.sig <- sig
		time.Sleep(time.Millisecond * 100)
	}

	// Send shutdown and wait for co-routine channel to close
	td.sig <- syscall.SIGTERM
	<-td.Done()
	time.Sleep(time.Second)
	got := out.String()
	for _, s := range testCases {
		if !strings.Contains(got, s) {
			t.Error("Does not contain", s)
			t.Error(got)
		}
	}
}
