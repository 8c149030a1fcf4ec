package dnsutil

import (
	"fmt"

	"github.com/miekg/dns"
)

// lookupOr returns m[k] or, if that's empty, a prefixed numeric form so log lines never
// contain an empty field.
func lookupOr[K uint16 | int](m map[K]string, k K, prefix string) string {
	if s := m[k]; len(s) > 0 {
		return s
	}

	return fmt.Sprintf("%s-%d", prefix, k)
}

// ClassToString converts a class to its mnemonic or "C-nnn".
func ClassToString(c dns.Class) string {
	return lookupOr(dns.ClassToString, uint16(c), "C")
}

// TypeToString converts a type to its mnemonic or "T-nnn".
func TypeToString(t uint16) string {
	return lookupOr(dns.TypeToString, t, "T")
}

// RcodeToString converts an rcode to its mnemonic or "r-nnn".
func RcodeToString(r int) string {
	return lookupOr(dns.RcodeToString, r, "r")
}

// OpcodeToString converts an opcode to its mnemonic or "o-nnn".
func OpcodeToString(o int) string {
	return lookupOr(dns.OpcodeToString, o, "o")
}
