package main

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/markdingo/rrl"
	"github.com/miekg/dns"

	"github.com/tlsmy/tlsmydns/dnsutil"
	"github.com/tlsmy/tlsmydns/log"
	"github.com/tlsmy/tlsmydns/resolver"
)

// A request accumulates everything known about a query and its response as it
// progresses thru ServeDNS. The main purpose is readability and the other main purpose is
// to accumulate values for log reporting. A request is only ever accessed by a single
// go-routine and only lives for the life of a DNS query.
type request struct {
	query    *dns.Msg
	response *dns.Msg
	question dns.Question
	reply    *resolver.Reply // Nil unless the resolver was consulted

	authoritative bool          // Set AA in response
	resolveTime   time.Duration // Time spent in the resolver

	opt              *dns.OPT // From query, if present
	nsidOut          string   // Hex NSID to return
	cookiesPresent   bool
	cookieWellFormed bool
	cookieValid      bool
	clientCookie     []byte
	serverCookie     []byte
	cookieOut        []byte // Full cookie to return, if any

	rrlAction  rrl.Action // Only meaningful if rrlDebited
	rrlDebited bool

	src        net.Addr // From here on down is log data
	network    string
	logNote    string // Mixed in with log message, if set
	logError   error  // Append to log message, if set
	msgSize    int
	maxSize    uint16 // EDNS0 or zero which will cause dns.WriteMsg() to default
	compressed bool
	truncated  bool

	// Stats are accumulated in a private copy and added back into the aggregate server
	// stats at the end so that most of the query runs lock free.
	stats serverStats
}

func newRequest(query *dns.Msg, src net.Addr, network string) *request {
	return &request{
		query:    query,
		response: new(dns.Msg),
		src:      src,
		network:  network,
	}
}

func (t *request) addNote(note string) {
	if len(t.logNote) > 0 {
		t.logNote += " "
	}
	t.logNote += note
}

// rrlLetters are appended to the rcode in the log line.
var rrlLetters = map[rrl.Action]string{
	rrl.Send: "",
	rrl.Drop: "/D",
	rrl.Slip: "/S",
}

func (t *request) log() {
	var note []string
	if len(t.logNote) > 0 {
		note = append(note, t.logNote)
	}
	if t.logError != nil {
		note = append(note, t.logError.Error())
	}
	var noteStr string
	if len(note) > 0 {
		noteStr = " " + strings.Join(note, ":")
	}
	rcodeStr := "ok"
	if t.response.MsgHdr.Rcode != dns.RcodeSuccess {
		rcodeStr = dnsutil.RcodeToString(t.response.MsgHdr.Rcode)
	}
	if t.rrlDebited {
		rcodeStr += rrlLetters[t.rrlAction]
	}

	hFlags := make([]byte, 0, 10) // 'h' = humongous?
	if t.network == dnsutil.TCPNetwork {
		hFlags = append(hFlags, 'T')
	} else {
		hFlags = append(hFlags, 'U') // Superfluous but ensures h= doesn't dangle
	}
	if len(t.clientCookie) > 0 {
		hFlags = append(hFlags, 'C')
	}
	if len(t.serverCookie) > 0 {
		hFlags = append(hFlags, 'S')
		if t.cookieValid {
			hFlags = append(hFlags, 'V')
		}
	}
	if t.compressed {
		hFlags = append(hFlags, 'c')
	}
	if len(t.nsidOut) > 0 {
		hFlags = append(hFlags, 'n')
	}
	if t.truncated {
		hFlags = append(hFlags, 'z')
	}

	var src string
	if t.src != nil {
		src = t.src.String()
	}

	log.Line(fmt.Sprintf("ru=%s q=%s/%s s=%s id=%d h=%s sz=%d/%d C=%d/%d/%d%s\n",
		rcodeStr, dnsutil.TypeToString(t.question.Qtype), t.question.Name, src,
		t.response.MsgHdr.Id, string(hFlags), t.msgSize, t.maxSize,
		len(t.response.Answer), len(t.response.Ns), len(t.response.Extra), noteStr))
}
