package main

import (
	"sync"

	"github.com/markdingo/rrl"
	"github.com/miekg/dns"

	"github.com/tlsmy/tlsmydns/dnsutil"
	"github.com/tlsmy/tlsmydns/resolver"
)

// server is created for each listen address and network.
type server struct {
	cfg        *config
	resolver   *resolver.Resolver
	rrlHandler *rrl.RRL // May be nil if not configured
	metrics    *metrics // May be nil if not configured

	network string // Listen details
	address string

	miekg *dns.Server

	statsMu sync.RWMutex
	stats   serverStats

	cookieSecrets [2]uint64
}

func newServer(cfg *config, r *resolver.Resolver, rrlHandler *rrl.RRL, network, address string) *server {
	t := &server{
		cfg:        cfg,
		resolver:   r,
		rrlHandler: rrlHandler,
		network:    network,
		address:    address,
	}

	if len(t.network) == 0 {
		t.network = dnsutil.UDPNetwork
	}

	t.miekg = &dns.Server{Net: t.network, Addr: t.address, ReusePort: true, Handler: t}

	// The miekg.defaultMsgAcceptFunc rejects Server Cookie queries (RFC7873#5.4) as
	// qdcount==0, so that function has been replaced with our own which also gathers
	// stats on rejections.

	t.miekg.MsgAcceptFunc = func(dh dns.Header) dns.MsgAcceptAction {
		return t.customMsgAcceptFunc(dh)
	}

	return t
}

// startServer starts accepting DNS queries by calling dns.ListenAndServe(). It waits
// until the service has actually started prior to returning to the caller by way of
// NotifyStartedFunc.
//
// Returns error if the server fails to start or nil.
func (t *tlsmyDNS) startServer(srv *server) error {
	t.wg.Add(1)

	hasStarted := make(chan error, 1) // Make sure listener has started before returning
	srv.miekg.NotifyStartedFunc = func() {
		hasStarted <- nil
	}

	go func() {
		defer t.wg.Done()
		err := srv.miekg.ListenAndServe()
		if err != nil {
			select {
			case hasStarted <- err:
			default: // Already started so nobody is listening
			}
		}
	}()

	return <-hasStarted
}

func (t *server) stop() {
	t.miekg.Shutdown()
}

func (t *server) addStats(from *serverStats) {
	t.statsMu.Lock()
	t.stats.add(from)
	t.statsMu.Unlock()
}

// Called from acceptFunc from within miekg when a query fails prior to our ServeDNS()
func (t *server) addAcceptError() {
	t.statsMu.Lock()
	t.stats.gen.badRequest++
	t.statsMu.Unlock()
}

const (
	// Header.Bits
	_QR = 1 << 15 // query/response (response=1)
)

// customMsgAcceptFunc is a clone of miekg.defaultMsgAcceptFunc without the qdcount != 1
// test, so that queries for Server Cookies get thru to ServeDNS (RFC7873#5.4). It
// rejects if the message:
//
// * isn't a request (don't respond in that case)
//
// * opcode isn't OpcodeQuery or OpcodeNotify
//
// * has more than 1 RR in the Answer section
//
// * has more than 1 RR in the Authority section
//
// * has more than 2 RRs in the Additional section
func (t *server) customMsgAcceptFunc(dh dns.Header) dns.MsgAcceptAction {
	if isResponse := dh.Bits&_QR != 0; isResponse {
		t.addAcceptError()
		return dns.MsgIgnore
	}

	// Don't allow dynamic updates, because then the sections can contain a whole bunch of RRs.
	opcode := int(dh.Bits>>11) & 0xF
	if opcode != dns.OpcodeQuery && opcode != dns.OpcodeNotify {
		t.addAcceptError()
		return dns.MsgRejectNotImplemented
	}

	if dh.Ancount > 1 || dh.Nscount > 1 || dh.Arcount > 2 {
		t.addAcceptError()
		return dns.MsgReject
	}

	return dns.MsgAccept
}
