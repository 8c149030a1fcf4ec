package resolver

import (
	"net"
	"strconv"
)

// parseIPv4Labels converts four decimal labels, most-significant first, into an IPv4
// address. Each label must be a plain decimal in [0,255]; leading zeros are accepted,
// signs and whitespace are not. Returns nil if any label fails.
func parseIPv4Labels(labels []string) net.IP {
	if len(labels) != net.IPv4len {
		return nil
	}

	ip := make(net.IP, net.IPv4len)
	for ix, l := range labels {
		if len(l) == 0 || l[0] == '+' || l[0] == '-' {
			return nil
		}
		v, err := strconv.ParseUint(l, 10, 8)
		if err != nil {
			return nil
		}
		ip[ix] = byte(v)
	}

	return ip
}
