package dnsutil

import (
	"strings"

	"github.com/miekg/dns"
)

// InDomain returns true if sub is equal to, or a sub-domain of, parent. The comparison
// is label-wise and case-insensitive so neither "eviltlsmy.net" nor "evil\.tlsmy.net"
// is in-domain of "tlsmy.net". Parent may or may not have a leading ".".
func InDomain(sub, parent string) bool {
	_, ok := SubLabels(sub, parent)

	return ok
}

// SubLabels returns the labels of name which precede parent, most-specific first and in
// the case presented in name. The boolean is false if name is not in-domain of parent.
// An empty slice with true means name and parent are the same.
//
// Escaped dots within a label (\.) are honored, so "a\.b.example.net" has two labels
// below "example.net" and "a\.example.net" is not below "example.net" at all.
func SubLabels(name, parent string) ([]string, bool) {
	parent = strings.TrimPrefix(parent, ".")
	pl := dns.SplitDomainName(parent) // nil for root
	all := dns.SplitDomainName(name)
	keep := len(all) - len(pl)
	if keep < 0 {
		return nil, false
	}

	for ix, label := range pl {
		if !strings.EqualFold(all[keep+ix], label) {
			return nil, false
		}
	}
	if keep == 0 {
		return []string{}, true
	}

	return all[:keep], true
}
