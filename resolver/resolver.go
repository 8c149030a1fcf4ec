package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/tlsmy/tlsmydns/dnsutil"
	"github.com/tlsmy/tlsmydns/log"
	"github.com/tlsmy/tlsmydns/store"
)

const (
	// ChallengeLabel is the RFC8555 DNS-01 owner name prefix.
	ChallengeLabel = "_acme-challenge"

	DefaultTTL          = 300 // Seconds
	DefaultStoreTimeout = 2 * time.Second

	maxTXTSegment = 255 // Longest character-string in a TXT RR
)

// Config is the immutable configuration of a Resolver.
type Config struct {
	Domain       string        // Authoritative suffix, e.g. "tlsmy.net"
	ServerIP     net.IP        // IPv4 answered for A queries of Domain
	TTL          uint32        // Zero means DefaultTTL
	StoreTimeout time.Duration // Bounds each store lookup. Zero means DefaultStoreTimeout
}

// Resolver answers questions for a single Domain.
type Resolver struct {
	domain       string // Canonical
	serverIP     net.IP // Always 4 bytes
	ttl          uint32
	storeTimeout time.Duration
	store        store.ChallengeStore
}

// New validates cfg and returns a Resolver which consults cs for challenge payloads. cs
// may be nil in which case every challenge lookup is a StoreError.
func New(cfg Config, cs store.ChallengeStore) (*Resolver, error) {
	labels, ok := dns.IsDomainName(cfg.Domain)
	if !ok || labels < 1 || cfg.Domain == "." {
		return nil, fmt.Errorf("resolver: invalid domain '%s'", cfg.Domain)
	}
	ip4 := cfg.ServerIP.To4()
	if ip4 == nil {
		return nil, fmt.Errorf("resolver: server IP '%s' is not IPv4", cfg.ServerIP)
	}

	t := &Resolver{
		domain:       dns.CanonicalName(cfg.Domain),
		serverIP:     ip4,
		ttl:          cfg.TTL,
		storeTimeout: cfg.StoreTimeout,
		store:        cs,
	}
	if t.ttl == 0 {
		t.ttl = DefaultTTL
	}
	if t.storeTimeout <= 0 {
		t.storeTimeout = DefaultStoreTimeout
	}

	return t, nil
}

// Domain returns the canonical authoritative suffix.
func (t *Resolver) Domain() string {
	return t.domain
}

// Resolve decides the reply to q. It never fails; failures are expressed as rcodes. The
// only blocking operation is the challenge store lookup which is bounded by the
// configured StoreTimeout as well as by ctx.
//
// Answer owner names are always q.Name exactly as received, so case is preserved.
func (t *Resolver) Resolve(ctx context.Context, q dns.Question) *Reply {
	uname, ok := dnsutil.SubLabels(q.Name, t.domain)
	if !ok {
		return newReply(dns.RcodeRefused, OutOfDomain)
	}

	if len(uname) == 0 { // The Domain itself
		if q.Qtype == dns.TypeA {
			return newReply(dns.RcodeSuccess, Apex, t.newA(q.Name, t.serverIP))
		}
		return newReply(dns.RcodeSuccess, ApexNoData)
	}

	subject := strings.ToLower(uname[len(uname)-1])
	if !IsToken(subject) {
		return newReply(dns.RcodeNameError, NotToken)
	}

	switch {
	case len(uname) == 2 && strings.EqualFold(uname[0], ChallengeLabel) &&
		typeMatches(q.Qtype, dns.TypeTXT):
		return t.resolveChallenge(ctx, q.Name, subject)

	case len(uname) == 5 && typeMatches(q.Qtype, dns.TypeA):
		ip := parseIPv4Labels(uname[:4])
		if ip == nil {
			return newReply(dns.RcodeNameError, BadAddress)
		}
		return newReply(dns.RcodeSuccess, Address, t.newA(q.Name, ip))
	}

	return newReply(dns.RcodeNameError, Unsupported)
}

// ANY is only ever the single type appropriate to the name's shape.
func typeMatches(qType, want uint16) bool {
	return qType == want || qType == dns.TypeANY
}

func (t *Resolver) resolveChallenge(ctx context.Context, qName, token string) *Reply {
	if t.store == nil {
		return &Reply{Rcode: dns.RcodeNameError, Outcome: StoreError,
			Err: errors.New("no challenge store")}
	}

	ctx, cancel := context.WithTimeout(ctx, t.storeTimeout)
	defer cancel()

	payload, err := t.store.Challenge(ctx, token)
	switch {
	case err == nil && len(payload) > 0:
		return newReply(dns.RcodeSuccess, Challenge, t.newTXT(qName, payload))
	case err == nil, errors.Is(err, store.ErrNotFound): // An empty payload is no payload
		return newReply(dns.RcodeNameError, ChallengeMissing)
	}

	err = dnsutil.ShortenError(err)
	log.Minor("Challenge store lookup failed for ", token, ": ", err)

	return &Reply{Rcode: dns.RcodeNameError, Outcome: StoreError, Err: err}
}

func (t *Resolver) newA(name string, ip net.IP) *dns.A {
	rr := new(dns.A)
	rr.Hdr.Name = name
	rr.Hdr.Class = dns.ClassINET
	rr.Hdr.Rrtype = dns.TypeA
	rr.Hdr.Ttl = t.ttl
	rr.A = ip

	return rr
}

// newTXT splits payload into character-strings of at most 255 bytes.
func (t *Resolver) newTXT(name, payload string) *dns.TXT {
	rr := new(dns.TXT)
	rr.Hdr.Name = name
	rr.Hdr.Class = dns.ClassINET
	rr.Hdr.Rrtype = dns.TypeTXT
	rr.Hdr.Ttl = t.ttl
	for len(payload) > maxTXTSegment {
		rr.Txt = append(rr.Txt, payload[:maxTXTSegment])
		payload = payload[maxTXTSegment:]
	}
	rr.Txt = append(rr.Txt, payload)

	return rr
}
