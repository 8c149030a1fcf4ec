package main

import (
	"sort"
	"strings"
	"testing"

	"github.com/miekg/dns"

	"github.com/tlsmy/tlsmydns/dnsutil"
	"github.com/tlsmy/tlsmydns/log"
	"github.com/tlsmy/tlsmydns/mock"
)

// newStartableTLSMyDNS returns a tlsmyDNS with a resolver backed by a mock store, ready
// for startServers.
func newStartableTLSMyDNS(t *testing.T, listen ...string) *tlsmyDNS {
	td := newTLSMyDNS(newTestConfig())
	td.cfg.listen = listen
	if err := td.newResolver(newTestStore()); err != nil {
		t.Fatal("Setup error", err)
	}

	return td
}

func TestStartServersGood(t *testing.T) {
	out := &mock.IOWriter{}
	log.SetOut(out)
	defer log.SetLevel(log.Level())
	log.SetLevel(log.MajorLevel)
	td := newStartableTLSMyDNS(t, "127.0.0.1:2056", "127.0.0.1:2057", "[::1]:2058")
	td.startServers()
	td.stopServers()
	exp := `Listen on: udp 127.0.0.1:2056
Listen on: udp 127.0.0.1:2057
Listen on: udp [::1]:2058
Listen on: tcp 127.0.0.1:2056
Listen on: tcp 127.0.0.1:2057
Listen on: tcp [::1]:2058
`
	got := out.String()

	// The server start up order is effectively random as each listen interface is run
	// as a separate go-routine so sort the log lines to eliminate order issues when
	// comparing against expected.

	gar := strings.Split(got, "\n")
	ear := strings.Split(exp, "\n")
	sort.Strings(gar)
	sort.Strings(ear)
	nGot := strings.Join(gar, "\n")
	nExp := strings.Join(ear, "\n")

	if nGot != nExp {
		t.Error("Log mismatch. Exp", nExp, "\nGot", nGot)
	}
}

// Exercise the error path of starting a server
func TestStartServersBad(t *testing.T) {
	out := &mock.IOWriter{}
	log.SetOut(out)
	td := newStartableTLSMyDNS(t)
	srv := newServer(td.cfg, td.resolver, nil, dnsutil.UDPNetwork, "127.0.0.1:xx")
	err := td.startServer(srv)
	if err == nil {
		t.Error("Expected server to fail due to bogus port number")
	}
}

// Real queries over real sockets
func TestServerExchange(t *testing.T) {
	out := &mock.IOWriter{}
	log.SetOut(out)
	td := newStartableTLSMyDNS(t, "127.0.0.1:0")
	td.startServers()
	defer td.stopServers()

	if len(td.servers) != 2 {
		t.Fatal("Expected a UDP and a TCP server, got", len(td.servers))
	}

	for _, srv := range td.servers {
		var addr string
		if srv.network == dnsutil.UDPNetwork {
			addr = srv.miekg.PacketConn.LocalAddr().String()
		} else {
			addr = srv.miekg.Listener.Addr().String()
		}

		client := &dns.Client{Net: srv.network}
		query := new(dns.Msg)
		query.SetQuestion("_acme-challenge."+testToken+".tlsmy.net.", dns.TypeTXT)
		resp, _, err := client.Exchange(query, addr)
		if err != nil {
			t.Fatal(srv.network, "Exchange failed", err)
		}
		if resp.Rcode != dns.RcodeSuccess || !resp.Authoritative || len(resp.Answer) != 1 {
			t.Fatal(srv.network, "Unexpected response", resp)
		}
		txt, ok := resp.Answer[0].(*dns.TXT)
		if !ok || len(txt.Txt) != 1 || txt.Txt[0] != testPayload {
			t.Error(srv.network, "Wrong challenge answer", resp.Answer[0])
		}

		query.SetQuestion("10.1.2.3."+testToken+".tlsmy.net.", dns.TypeA)
		resp, _, err = client.Exchange(query, addr)
		if err != nil {
			t.Fatal(srv.network, "Exchange failed", err)
		}
		if len(resp.Answer) != 1 || resp.Answer[0].(*dns.A).A.String() != "10.1.2.3" {
			t.Error(srv.network, "Wrong address answer", resp.Answer)
		}
	}

	if td.coalesced.Shared() != 0 {
		t.Error("Sequential lookups should not be shared", td.coalesced.Shared())
	}
}

func TestNewResolverWrapping(t *testing.T) {
	td := newTLSMyDNS(newTestConfig())
	if err := td.newResolver(newTestStore()); err != nil {
		t.Fatal(err)
	}
	if td.limited != nil || td.coalesced == nil {
		t.Error("Without --store-qps only coalescing should wrap the store")
	}

	td = newTLSMyDNS(newTestConfig())
	td.cfg.storeQPS = 5
	if err := td.newResolver(newTestStore()); err != nil {
		t.Fatal(err)
	}
	if td.limited == nil || td.coalesced == nil {
		t.Error("--store-qps should add a rate limit")
	}

	td = newTLSMyDNS(newTestConfig())
	td.cfg.domain = "."
	if err := td.newResolver(newTestStore()); err == nil {
		t.Error("Expected the resolver to reject the root domain")
	}
}

func TestMsgAcceptFunc(t *testing.T) {
	testCases := []struct {
		hdr    dns.Header
		action dns.MsgAcceptAction
	}{
		{dns.Header{Qdcount: 1}, dns.MsgAccept},
		{dns.Header{Qdcount: 0, Arcount: 1}, dns.MsgAccept}, // Cookie-only
		{dns.Header{Bits: _QR, Qdcount: 1}, dns.MsgIgnore},
		{dns.Header{Bits: dns.OpcodeUpdate << 11, Qdcount: 1}, dns.MsgRejectNotImplemented},
		{dns.Header{Bits: dns.OpcodeNotify << 11, Qdcount: 1}, dns.MsgAccept},
		{dns.Header{Qdcount: 1, Ancount: 2}, dns.MsgReject},
		{dns.Header{Qdcount: 1, Nscount: 2}, dns.MsgReject},
		{dns.Header{Qdcount: 1, Arcount: 3}, dns.MsgReject},
	}

	srv := newTestServer(newTestConfig(), newTestStore())
	rejects := 0
	for ix, tc := range testCases {
		got := srv.customMsgAcceptFunc(tc.hdr)
		if got != tc.action {
			t.Error(ix, "Wrong action. Exp", tc.action, "Got", got)
		}
		if got != dns.MsgAccept {
			rejects++
		}
	}
	if srv.stats.gen.badRequest != rejects {
		t.Error("Rejects should count as bad requests", srv.stats.gen.badRequest, rejects)
	}
}
