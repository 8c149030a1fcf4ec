package mock

import (
	"net"

	"github.com/miekg/dns"
)

var (
	local  = NewNetAddr("udp", "127.0.0.1:53")
	remote = NewNetAddr("udp", "127.0.0.2:4056")
)

// ResponseWriter meets the dns.ResponseWriter interface and captures the last message
// written so tests can examine what ServeDNS decided to send. Remote can be changed to
// vary the client address seen by the server.
type ResponseWriter struct {
	Remote   net.Addr
	WriteErr error // Returned by WriteMsg if set

	m      *dns.Msg // Saved by WriteMsg
	writes int
}

func (t *ResponseWriter) Reset() {
	t.m = nil
	t.writes = 0
}

// Get returns the last response, if any, then clears it. A nil return means ServeDNS
// chose not to respond, e.g. an RRL drop.
func (t *ResponseWriter) Get() *dns.Msg {
	m := t.m
	t.m = nil
	return m
}

// Writes returns the number of calls to WriteMsg since the last Reset.
func (t *ResponseWriter) Writes() int {
	return t.writes
}

func (t *ResponseWriter) LocalAddr() net.Addr {
	return local
}

func (t *ResponseWriter) RemoteAddr() net.Addr {
	if t.Remote != nil {
		return t.Remote
	}
	return remote
}

func (t *ResponseWriter) WriteMsg(m *dns.Msg) error {
	t.m = m
	t.writes++

	return t.WriteErr
}

func (t *ResponseWriter) Write(b []byte) (int, error) {
	panic("Don't expect Write() to be called")
}

func (t *ResponseWriter) Close() error {
	return nil
}

func (t *ResponseWriter) TsigStatus() error {
	return nil
}

func (t *ResponseWriter) TsigTimersOnly(bool) {
}

func (t *ResponseWriter) Hijack() {
}

var _ dns.ResponseWriter = (*ResponseWriter)(nil)
