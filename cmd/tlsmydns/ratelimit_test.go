package main

import (
	"net"
	"strings"
	"testing"

	"github.com/markdingo/rrl"
	"github.com/miekg/dns"

	"github.com/tlsmy/tlsmydns/log"
	"github.com/tlsmy/tlsmydns/mock"
)

func TestAllowanceCategory(t *testing.T) {
	testCases := []struct {
		rcode   int
		answers int
		expect  rrl.AllowanceCategory
	}{
		{dns.RcodeSuccess, 1, rrl.AllowanceAnswer},
		{dns.RcodeSuccess, 0, rrl.AllowanceNoData},
		{dns.RcodeNameError, 0, rrl.AllowanceNXDomain},
		{dns.RcodeRefused, 0, rrl.AllowanceError},
		{dns.RcodeFormatError, 0, rrl.AllowanceError},
		{dns.RcodeServerFailure, 0, rrl.AllowanceError},
	}

	for ix, tc := range testCases {
		m := new(dns.Msg)
		m.Rcode = tc.rcode
		for i := 0; i < tc.answers; i++ {
			m.Answer = append(m.Answer, newRR("tlsmy.net. IN A 192.0.2.1"))
		}
		if got := allowanceCategory(m); got != tc.expect {
			t.Error(ix, "Wrong category. Exp", tc.expect, "Got", got)
		}
	}
}

func newRRLServer(t *testing.T, dryRun bool) *server {
	cfg := newTestConfig()
	cfg.rrlDryRun = dryRun
	for _, o := range []struct{ name, value string }{
		{"responses-per-second", "1"},
		{"nxdomains-per-second", "1"},
		{"slip-ratio", "2"},
	} {
		if err := cfg.rrlConfig.SetValue(o.name, o.value); err != nil {
			t.Fatal("Setup error", o.name, err)
		}
	}
	if !cfg.rrlConfig.IsActive() {
		t.Fatal("Setup error - rrl config not active")
	}

	res := newTestServer(cfg, newTestStore()).resolver

	return newServer(cfg, res, rrl.NewRRL(cfg.rrlConfig), "", "")
}

const rrlQueries = 50

func TestRateLimit(t *testing.T) {
	out := &mock.IOWriter{}
	log.SetOut(out)
	server := newRRLServer(t, false)
	wtr := &mock.ResponseWriter{Remote: &net.UDPAddr{IP: net.ParseIP("192.0.2.10"), Port: 4056}}

	for i := 0; i < rrlQueries; i++ {
		server.ServeDNS(wtr, setQuestion(dns.ClassINET, dns.TypeA, "tlsmy.net."))
	}

	gen := server.stats.gen
	if gen.rrlDrop+gen.rrlSlip == 0 {
		t.Fatal("Expected RRL to act on a burst of", rrlQueries, "queries", gen.String())
	}
	if wtr.Writes() != rrlQueries-gen.rrlDrop {
		t.Error("Every non-dropped response should be written", wtr.Writes(), gen.String())
	}
	s := out.String()
	if gen.rrlDrop > 0 && !strings.Contains(s, "ru=ok/D ") {
		t.Error("Drops should be flagged in the log", s)
	}
	if gen.rrlSlip > 0 && !strings.Contains(s, "ru=ok/S ") {
		t.Error("Slips should be flagged in the log", s)
	}

	// A slipped response is empty and truncated so the client retries with TCP
	if gen.rrlSlip > 0 {
		var slipped *dns.Msg
		for i := 0; i < rrlQueries && slipped == nil; i++ {
			server.ServeDNS(wtr, setQuestion(dns.ClassINET, dns.TypeA, "tlsmy.net."))
			if m := wtr.Get(); m != nil && m.Truncated {
				slipped = m
			}
		}
		if slipped == nil {
			t.Fatal("Could not provoke a slip")
		}
		if len(slipped.Answer) != 0 || len(slipped.Ns) != 0 {
			t.Error("Slipped response should be empty", slipped)
		}
	}
}

// Different clients have their own accounts
func TestRateLimitPerClient(t *testing.T) {
	out := &mock.IOWriter{}
	log.SetOut(out)
	server := newRRLServer(t, false)
	wtr := &mock.ResponseWriter{Remote: &net.UDPAddr{IP: net.ParseIP("192.0.2.10"), Port: 4056}}
	for i := 0; i < rrlQueries; i++ {
		server.ServeDNS(wtr, setQuestion(dns.ClassINET, dns.TypeA, "tlsmy.net."))
	}

	wtr = &mock.ResponseWriter{Remote: &net.UDPAddr{IP: net.ParseIP("198.51.100.7"), Port: 4056}}
	server.ServeDNS(wtr, setQuestion(dns.ClassINET, dns.TypeA, "tlsmy.net."))
	resp := wtr.Get()
	if resp == nil || resp.Truncated || len(resp.Answer) != 1 {
		t.Error("First response to a new client should be sent unaltered", resp)
	}
}

func TestRateLimitDryRun(t *testing.T) {
	out := &mock.IOWriter{}
	log.SetOut(out)
	server := newRRLServer(t, true)
	wtr := &mock.ResponseWriter{Remote: &net.UDPAddr{IP: net.ParseIP("192.0.2.10"), Port: 4056}}

	for i := 0; i < rrlQueries; i++ {
		server.ServeDNS(wtr, setQuestion(dns.ClassINET, dns.TypeTXT,
			"_acme-challenge."+otherToken+".tlsmy.net."))
		resp := wtr.Get()
		if resp == nil {
			t.Fatal(i, "Dryrun should never drop")
		}
		if resp.Truncated {
			t.Fatal(i, "Dryrun should never slip")
		}
	}

	gen := server.stats.gen
	if gen.rrlDrop+gen.rrlSlip != 0 {
		t.Error("Dryrun should not count drops or slips", gen.String())
	}
	if !strings.Contains(out.String(), "RRL dryrun") {
		t.Error("Dryrun should note what RRL would have done", out.String())
	}
}
