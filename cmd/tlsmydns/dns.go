package main

import (
	"context"
	"fmt"
	"time"

	"github.com/miekg/dns"

	"github.com/tlsmy/tlsmydns/dnsutil"
)

// ServeDNS is called from miekg for every query. Dispatch order:
//
// 1. EDNS pre-processing: NSID, cookies and cookie-only queries
// 2. Malformed queries
// 3. CHAOS
// 4. Not ClassINET
// 5. The resolver
//
// Every response passes thru writeMsg() which applies RRL.
func (t *server) ServeDNS(wtr dns.ResponseWriter, query *dns.Msg) {
	req := newRequest(query, wtr.RemoteAddr(), t.network)
	req.stats.gen.queries++
	if t.cfg.queryLogging.Load() {
		defer req.log()
	}
	defer t.addStats(&req.stats) // Add req.stats to t.stats
	if t.metrics != nil {
		defer t.metrics.observe(req)
	}

	// As of RFC7873 a query with no questions and a COOKIE OPT is valid so the
	// question is only extracted if present.
	if len(query.Question) > 0 {
		req.question = query.Question[0]
	}

	// Dispatch 1. EDNS
	req.opt = query.IsEdns0()
	if req.scanOpt() && len(t.cfg.nsid) > 0 {
		req.nsidOut = t.cfg.nsidAsHex
		req.stats.gen.nsid++
	}

	// Cookies are exchanged and checked, but a bad server cookie does not change the
	// answer. It's merely noted.
	if req.cookiesPresent {
		req.stats.gen.cookie++
		if !req.cookieWellFormed { // Specifically this means the OPT is malformed
			t.serveFormErr(wtr, req)
			req.addNote("Malformed cookie")
			req.stats.gen.malformedCookie++
			return
		}
		if !req.checkCookie(t.cookieSecrets, time.Now().Unix()) && len(req.serverCookie) > 0 {
			req.addNote("Server cookie mismatch")
			req.stats.gen.wrongCookie++
		}

		if len(query.Question) == 0 {
			req.response.SetReply(query)
			t.writeMsg(wtr, req)
			req.addNote("Cookie-only query")
			req.stats.gen.cookieOnly++
			return
		}
	}

	// Dispatch 2. Malformed queries
	//
	// Most of these tests are performed by the MsgAcceptFunc prior to calling
	// ServeDNS(), but precisely what validation miekg performs is undocumented and may
	// vary over time.
	if len(query.Question) != 1 ||
		len(query.Answer) != 0 ||
		len(query.Ns) != 0 ||
		query.Opcode != dns.OpcodeQuery {
		t.serveFormErr(wtr, req)
		req.addNote("Malformed Query")
		req.stats.gen.badRequest++
		return
	}

	// If query contains a UDP size value, use it if it's reasonable. Without EDNS the
	// classic limit applies.
	if t.network == dnsutil.UDPNetwork {
		req.maxSize = dnsutil.MinUDPSize
		if req.opt != nil {
			mz := req.opt.UDPSize()
			switch {
			case mz > dnsutil.MaxUDPSize:
				req.maxSize = dnsutil.MaxUDPSize
			case mz > dnsutil.MinUDPSize:
				req.maxSize = mz
			}
		}
	}

	// Dispatch 3. CHAOS
	if t.cfg.chaosFlag && req.question.Qclass == dns.ClassCHAOS {
		t.serveCHAOS(wtr, req)
		return
	}

	// Dispatch 4. Not ClassINET
	if req.question.Qclass != dns.ClassINET {
		t.serveRefused(wtr, req)
		req.addNote(fmt.Sprintf("Wrong class %s",
			dnsutil.ClassToString(dns.Class(req.question.Qclass))))
		req.stats.gen.wrongClass++
		return
	}

	// Dispatch 5. The resolver decides everything else. The store lookup is the only
	// thing which can block and the resolver bounds that itself.
	start := time.Now()
	req.reply = t.resolver.Resolve(context.Background(), req.question)
	req.resolveTime = time.Since(start)
	req.stats.outcome[req.reply.Outcome]++

	req.response.SetRcode(query, req.reply.Rcode)
	req.response.Answer = append(req.response.Answer, req.reply.Answer...)
	req.authoritative = req.reply.InDomain()
	req.addNote(req.reply.Outcome.String())
	if req.reply.Err != nil {
		req.addNote(req.reply.Err.Error())
	}

	t.writeMsg(wtr, req)
}

// SetRcodeFormatError does not echo the question, which may be the very thing that is
// malformed.
func (t *server) serveFormErr(wtr dns.ResponseWriter, req *request) {
	req.response.SetRcodeFormatError(req.query)
	t.writeMsg(wtr, req)
}

func (t *server) serveRefused(wtr dns.ResponseWriter, req *request) {
	req.response.SetRcode(req.query, dns.RcodeRefused)
	t.writeMsg(wtr, req)
}

// writeMsg finalizes the output message with all of the common processing then calls
// the response writer to send the message. Nothing is sent if RRL says drop. Any write
// error is recorded in req.logError.
func (t *server) writeMsg(wtr dns.ResponseWriter, req *request) {
	if !t.rateLimit(req) {
		return
	}

	if opt := req.genOpt(); opt != nil {
		req.response.Extra = append(req.response.Extra, opt)
	}
	req.response.Authoritative = req.authoritative

	// Truncate msg to fit max size. Only relevant if connection is UDP.
	if req.maxSize > 0 {
		req.response.Truncate(int(req.maxSize)) // Removes excess RRs and sets TC=1
	}

	req.msgSize = req.response.Len() // Transfer to Stats for reporting purposes
	req.compressed = req.response.Compress
	req.truncated = req.response.Truncated
	if req.truncated {
		req.stats.gen.truncated++
	}

	err := wtr.WriteMsg(req.response)
	if err != nil {
		req.logError = fmt.Errorf("WriteMsg failed: %w", dnsutil.ShortenError(err))
		req.stats.gen.writeErrors++
	}
}
