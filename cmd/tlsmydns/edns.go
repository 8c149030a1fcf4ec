package main

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"net"

	"github.com/dchest/siphash"
	"github.com/miekg/dns"

	"github.com/tlsmy/tlsmydns/dnsutil"
)

// RFC7873 cookie sizes in bytes
const (
	cCookieLength    = 8 // Client cookie is always exactly this long
	sCookieMinLength = 8 // If present, a server cookie must be in this range
	sCookieMaxLength = 32
	sCookieV1Length  = 16 // A version '1' cookie is exactly 128 bits
)

// Cookie timestamp windows in seconds
const (
	wrapDistance = uint64(1<<31) - 1 // Assume wrap if gap is greater than this
	maxBehindGap = 60 * 60           // Timestamps older than this are ignored
	maxAheadGap  = 60 * 5            // Timestamps ahead by more than this much are ignored
	reissueGap   = maxAheadGap / 2   // Reissue cookie if their clock is getting old
)

// scanOpt walks the query OPT once, noting an NSID request and extracting any cookie
// material. Whatever cookie material is found is kept, valid or not, as it is useful in
// the log.
func (t *request) scanOpt() (nsidRequested bool) {
	if t.opt == nil {
		return
	}

	for _, subopt := range t.opt.Option {
		switch so := subopt.(type) {
		case *dns.EDNS0_NSID:
			nsidRequested = true
		case *dns.EDNS0_COOKIE:
			if !t.cookiesPresent {
				t.cookiesPresent = true
				t.splitCookie(so.Cookie)
			}
		}
	}

	return
}

// splitCookie separates the hex cookie into client and server parts. Bytes are used
// internally even tho miekg carries cookies in hex. Hex decode errors are ignored as the
// resulting short or empty slices fail the well-formed check any way.
func (t *request) splitCookie(cookie string) {
	if len(cookie) < 2*cCookieLength {
		t.clientCookie, _ = hex.DecodeString(cookie) // Log material only
		return
	}

	t.clientCookie, _ = hex.DecodeString(cookie[:2*cCookieLength])
	t.serverCookie, _ = hex.DecodeString(cookie[2*cCookieLength:])

	t.cookieWellFormed = len(t.clientCookie) == cCookieLength &&
		(len(t.serverCookie) == 0 ||
			(len(t.serverCookie) >= sCookieMinLength &&
				len(t.serverCookie) <= sCookieMaxLength))
}

// checkCookie compares the client supplied server cookie with the one we would have
// issued and sets cookieOut to the cookie to return. It returns cookieValid.
//
// A valid timestamp is in the range now-maxBehindGap to now+maxAheadGap. If it is
// valid but older than reissueGap a fresh cookie is issued, otherwise their current
// cookie is returned to them.
//
// Timestamps are uint32 Unix times so comparisons use serial number arithmetic by way of
// normalizeTimestamps().
func (t *request) checkCookie(secrets [2]uint64, unixTime int64) bool {
	ip := srcIP(t.src)
	now := uint32(unixTime & 0xFFFFFFFF)
	var now64, ts64 uint64
	sc := t.serverCookie
	if len(sc) == sCookieV1Length && sc[0] == 1 && sc[1] == 0 && sc[2] == 0 && sc[3] == 0 {
		ts := binary.BigEndian.Uint32(sc[4:8])
		now64, ts64 = normalizeTimestamps(now, ts)
		if ts64+maxBehindGap > now64 && now64+maxAheadGap > ts64 {
			t.cookieOut = v1Cookie(secrets, ts, ip, t.clientCookie)
			t.cookieValid = bytes.Equal(sc, t.cookieOut[cCookieLength:])
		}
	}

	if !t.cookieValid || ts64+reissueGap < now64 {
		t.cookieOut = v1Cookie(secrets, now, ip, t.clientCookie)
	}

	return t.cookieValid
}

// normalizeTimestamps converts "serial number arithmetic" uint32s into comparable
// uint64s by adding the capacity of a uint32 to the lower number if it is determined to
// have wrapped, i.e. if the difference exceeds half the capacity of a uint32.
func normalizeTimestamps(a, b uint32) (A, B uint64) {
	A = uint64(a)
	B = uint64(b)
	switch {
	case A > B && (A-B) > wrapDistance:
		B += wrapDistance + 1
	case B > A && (B-A) > wrapDistance:
		A += wrapDistance + 1
	}

	return
}

// v1Cookie returns the full cookie, client cookie first, with a version '1' server
// cookie of the form:
//
//	[0:1]  Version - 0x1
//	[1:4]  Reserved - 0x0
//	[4:8]  Timestamp - serial number arithmetic unsigned unix time
//	[8:16] SipHash-2-4(Client Cookie | Version | Reserved | Timestamp | Client-IP)
//
// The hash input is exactly 20 bytes for an IPv4 client and 32 bytes for IPv6. A nil
// ip returns an all-zero cookie which will never validate.
func v1Cookie(secrets [2]uint64, clock uint32, ip net.IP, clientCookie []byte) []byte {
	cookie := make([]byte, cCookieLength+8+net.IPv6len) // Largest hash input
	if ip == nil {
		return cookie[:cCookieLength+sCookieV1Length]
	}

	copy(cookie[:cCookieLength], clientCookie)
	cookie[8] = 1
	binary.BigEndian.PutUint32(cookie[12:16], clock)

	end := 16
	if ip4 := ip.To4(); ip4 != nil {
		end += copy(cookie[end:], ip4)
	} else {
		end += copy(cookie[end:], ip.To16())
	}

	// The hash overwrites the start of the Client-IP
	binary.BigEndian.PutUint64(cookie[16:24], siphash.Hash(secrets[0], secrets[1], cookie[:end]))

	return cookie[:cCookieLength+sCookieV1Length]
}

// srcIP extracts the client IP from the address miekg supplies. Anything else, such as
// a test address, is parsed from its host:port string.
func srcIP(addr net.Addr) net.IP {
	switch a := addr.(type) {
	case nil:
		return nil
	case *net.UDPAddr:
		return a.IP
	case *net.TCPAddr:
		return a.IP
	}

	h, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return nil
	}

	return net.ParseIP(h)
}

// genOpt creates the response OPT RR. An OPT is only ever returned if the query had one
// (RFC6891#7) in which case it advertises our UDP size along with any sub-opt values.
func (t *request) genOpt() *dns.OPT {
	if t.opt == nil {
		return nil
	}

	opt := new(dns.OPT)
	opt.Hdr.Name = "."
	opt.Hdr.Rrtype = dns.TypeOPT
	opt.SetUDPSize(dnsutil.MaxUDPSize)

	if len(t.nsidOut) > 0 {
		e := new(dns.EDNS0_NSID)
		e.Code = dns.EDNS0NSID
		e.Nsid = t.nsidOut
		opt.Option = append(opt.Option, e)
	}

	if len(t.cookieOut) > 0 {
		e := new(dns.EDNS0_COOKIE)
		e.Code = dns.EDNS0COOKIE
		e.Cookie = hex.EncodeToString(t.cookieOut) // Miekg wants it in hex
		opt.Option = append(opt.Option, e)
	}

	return opt
}
