package main

import (
	"github.com/markdingo/rrl"
	"github.com/miekg/dns"
)

// allowanceCategory classifies a response the way rrl accounts for it.
func allowanceCategory(m *dns.Msg) rrl.AllowanceCategory {
	switch m.Rcode {
	case dns.RcodeSuccess:
		if len(m.Answer) > 0 {
			return rrl.AllowanceAnswer
		}
		return rrl.AllowanceNoData
	case dns.RcodeNameError:
		return rrl.AllowanceNXDomain
	}

	return rrl.AllowanceError
}

// rateLimit debits the response against the RRL account of the client. It returns false
// if the response must be dropped. A Slip replaces the response with an empty truncated
// one so a legitimate client retries over TCP. With --rrl-dryrun the action is recorded
// but the response always goes out unaltered.
//
// The salient name of negative answers is the Domain, as all names under it share the
// same non-existence.
func (t *server) rateLimit(req *request) bool {
	if t.rrlHandler == nil {
		return true
	}

	tuple := &rrl.ResponseTuple{
		Class:             req.question.Qclass,
		Type:              req.question.Qtype,
		AllowanceCategory: allowanceCategory(req.response),
		SalientName:       dns.CanonicalName(req.question.Name),
	}
	if tuple.AllowanceCategory != rrl.AllowanceAnswer &&
		req.reply != nil && req.reply.InDomain() {
		tuple.SalientName = t.resolver.Domain()
	}

	req.rrlAction, _, _ = t.rrlHandler.Debit(req.src, tuple)
	req.rrlDebited = true
	if t.cfg.rrlDryRun {
		if req.rrlAction != rrl.Send {
			req.addNote("RRL dryrun")
		}
		return true
	}

	switch req.rrlAction {
	case rrl.Drop:
		req.stats.gen.rrlDrop++
		return false

	case rrl.Slip:
		req.stats.gen.rrlSlip++
		req.response.Answer = nil
		req.response.Ns = nil
		req.response.Extra = nil
		req.response.Truncated = true
	}

	return true
}
