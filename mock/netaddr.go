package mock

import (
	"net"
)

// NetAddr meets the net.Addr interface so tests can supply arbitrary client addresses
// to code which only ever calls String() and Network().
type NetAddr struct {
	Net string
	Str string
}

// NewNetAddr returns a NetAddr. An empty network defaults to "udp".
func NewNetAddr(network, address string) *NetAddr {
	if len(network) == 0 {
		network = "udp"
	}
	return &NetAddr{Net: network, Str: address}
}

func (t *NetAddr) Network() string {
	return t.Net
}

func (t *NetAddr) String() string {
	return t.Str
}

var _ net.Addr = (*NetAddr)(nil)
