package main

import (
	"github.com/miekg/dns"

	"github.com/tlsmy/tlsmydns/pregen"
)

var commonCHAOSPrefix = programName + " " + pregen.Version + " " + pregen.ReleaseDate

// Called if Qclass = CHAOS. Given there is no defined syntax and each auth server seems
// to do something different, the version names all get the same details. nsd returns
// REFUSED for any non-matching CHAOS and so do we.
func (t *server) serveCHAOS(wtr dns.ResponseWriter, req *request) {
	req.stats.gen.chaos++
	var response string
	if req.question.Qtype == dns.TypeTXT {
		switch dns.CanonicalName(req.question.Name) {
		case "version.bind.", "version.server.", "authors.bind.":
			response = commonCHAOSPrefix + " " + t.cfg.projectURL
		case "hostname.bind.", "id.server.":
			response = t.cfg.nsid
		}
	}
	if len(response) == 0 {
		req.stats.gen.chaosRefused++
		t.serveRefused(wtr, req)
		return
	}

	req.response.SetReply(req.query)
	txt := new(dns.TXT)
	txt.Hdr.Name = req.question.Name
	txt.Hdr.Class = req.question.Qclass
	txt.Hdr.Rrtype = req.question.Qtype
	txt.Hdr.Ttl = t.cfg.TTLAsSecs
	txt.Txt = append(txt.Txt, response)

	req.response.Answer = append(req.response.Answer, txt)
	req.authoritative = true
	t.writeMsg(wtr, req)
}
