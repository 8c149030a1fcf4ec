package main

import (
	"bytes"
	"encoding/hex"
	"net"
	"testing"

	"github.com/miekg/dns"

	"github.com/tlsmy/tlsmydns/dnsutil"
	"github.com/tlsmy/tlsmydns/mock"
)

func newOPT(options ...dns.EDNS0) *dns.OPT {
	o := new(dns.OPT)
	o.Hdr.Name = "."
	o.Hdr.Rrtype = dns.TypeOPT
	o.Option = append(o.Option, options...)

	return o
}

func TestScanOpt(t *testing.T) {
	testCases := []struct {
		options    []dns.EDNS0
		nsid       bool
		present    bool
		wellFormed bool
		client     string
		server     string
	}{
		{nil, false, false, false, "", ""},
		{[]dns.EDNS0{&dns.EDNS0_NSID{Code: dns.EDNS0NSID}}, true, false, false, "", ""},
		{[]dns.EDNS0{&dns.EDNS0_COOKIE{Code: dns.EDNS0COOKIE, Cookie: "0123456789abcdef"}},
			false, true, true, "0123456789abcdef", ""},
		{[]dns.EDNS0{&dns.EDNS0_NSID{Code: dns.EDNS0NSID},
			&dns.EDNS0_COOKIE{Code: dns.EDNS0COOKIE,
				Cookie: "0123456789abcdefabcdef0123456789"}},
			true, true, true, "0123456789abcdef", "abcdef0123456789"},
		{[]dns.EDNS0{&dns.EDNS0_COOKIE{Code: dns.EDNS0COOKIE, Cookie: "0123"}},
			false, true, false, "0123", ""}, // Short client cookie
		{[]dns.EDNS0{&dns.EDNS0_COOKIE{Code: dns.EDNS0COOKIE,
			Cookie: "0123456789abcdefabcd"}},
			false, true, false, "0123456789abcdef", "abcd"}, // Short server cookie
		{[]dns.EDNS0{&dns.EDNS0_COOKIE{Code: dns.EDNS0COOKIE, Cookie: "0123456789abcdef"},
			&dns.EDNS0_COOKIE{Code: dns.EDNS0COOKIE, Cookie: "00"}},
			false, true, true, "0123456789abcdef", ""}, // Only the first counts
	}

	for ix, tc := range testCases {
		query := setQuestion(dns.ClassINET, dns.TypeA, "tlsmy.net.")
		req := newRequest(query, nil, dnsutil.UDPNetwork)
		if tc.options != nil {
			req.opt = newOPT(tc.options...)
		}
		nsid := req.scanOpt()
		if nsid != tc.nsid {
			t.Error(ix, "NSID mismatch. Exp", tc.nsid)
		}
		if req.cookiesPresent != tc.present {
			t.Error(ix, "cookiesPresent mismatch. Exp", tc.present)
		}
		if req.cookieWellFormed != tc.wellFormed {
			t.Error(ix, "cookieWellFormed mismatch. Exp", tc.wellFormed)
		}
		if got := hex.EncodeToString(req.clientCookie); got != tc.client {
			t.Error(ix, "Client cookie mismatch. Exp", tc.client, "Got", got)
		}
		if got := hex.EncodeToString(req.serverCookie); got != tc.server {
			t.Error(ix, "Server cookie mismatch. Exp", tc.server, "Got", got)
		}
	}
}

func TestGenOpt(t *testing.T) {
	query := setQuestion(dns.ClassINET, dns.TypeA, "tlsmy.net.")
	req := newRequest(query, nil, dnsutil.UDPNetwork)
	req.nsidOut = "abcd"
	if o := req.genOpt(); o != nil {
		t.Error("Did not expect an OPT without one in the query")
	}

	req.opt = newOPT()
	cCookie, _ := hex.DecodeString("0123456789abcdef")
	sCookie, _ := hex.DecodeString("abcdef0123456789")
	req.cookieOut = append(append([]byte{}, cCookie...), sCookie...)
	o := req.genOpt()
	if o == nil {
		t.Fatal("Expected an OPT")
	}

	if mz := o.UDPSize(); mz != dnsutil.MaxUDPSize {
		t.Error("UDPSize should be our maximum, not", mz)
	}

	// Feed the generated OPT back in as if it were a query
	req = newRequest(query, nil, dnsutil.UDPNetwork)
	req.opt = o
	if !req.scanOpt() {
		t.Error("Expected to find NSID sub-opt")
	}
	for _, so := range o.Option {
		if e, ok := so.(*dns.EDNS0_NSID); ok && e.Nsid != "abcd" {
			t.Error("NSID mismatch. Exp: abcd, Got:", e.Nsid)
		}
	}
	if !req.cookiesPresent {
		t.Error("Cookies should be present")
	}
	if !bytes.Equal(req.clientCookie, cCookie) {
		t.Errorf("Client cookie did not transfer %x", req.clientCookie)
	}
	if !bytes.Equal(req.serverCookie, sCookie) {
		t.Errorf("Server cookie did not transfer %x", req.serverCookie)
	}
}

func TestV1Cookie(t *testing.T) {
	ip := net.ParseIP("0.0.0.0")
	var secrets [2]uint64
	var clock uint32
	var cCookie [8]byte
	got := v1Cookie(secrets, clock, ip, cCookie[:])
	expect, _ := hex.DecodeString("000000000000000001000000000000009cfc753b7275ad7f")
	if !bytes.Equal(got, expect) {
		t.Errorf("Zero-value cookie wrong. Expected: %x Got %x\n", expect, got)
	}

	clock++
	got = v1Cookie(secrets, clock, ip, cCookie[:])
	if bytes.Equal(got, expect) {
		t.Errorf("Clock-tick cookie should have changed")
	}
	clock = 0

	secrets[0] = 1
	got = v1Cookie(secrets, clock, ip, cCookie[:])
	if bytes.Equal(got, expect) {
		t.Errorf("New secrets cookie should have changed")
	}
	secrets[0] = 0

	got = v1Cookie(secrets, clock, net.ParseIP("0.0.0.1"), cCookie[:])
	if bytes.Equal(got, expect) {
		t.Errorf("New IP cookie should have changed")
	}

	cCookie[0] = 1
	got = v1Cookie(secrets, clock, ip, cCookie[:])
	if bytes.Equal(got, expect) {
		t.Errorf("New cCookie cookie should have changed")
	}
	cCookie[0] = 0

	got = v1Cookie(secrets, clock, nil, cCookie[:])
	if !bytes.Equal(got, make([]byte, 24)) {
		t.Errorf("nil IP should give an empty cookie, not %x", got)
	}
}

func TestCheckCookie(t *testing.T) {
	testCases := []struct {
		ipv4           bool
		client, server string
		unixTime       int64
		valid          bool
		output         string
	}{
		{true, "0123456789abcdef", "", 0x2000, false, // No sCookie
			"0123456789abcdef010000000000200078f6dcfbf17e8504"},

		{true, "0123456789abcdef", "010000000000200078f6dcfbf17e8504", 0x2000, true,
			"0123456789abcdef010000000000200078f6dcfbf17e8504"}, // Correct sCookie

		// TS is within range, but is GT reissue gap so a new cookie is expected
		{true, "0123456789abcdef", "010000000000200078f6dcfbf17e8504",
			0x2000 + maxBehindGap - 1, true,
			"0123456789abcdef0100000000002e0f2ef2835de77f0e45"},

		// TS is too old, should fail and get a new cookie
		{true, "0123456789abcdef", "010000000000200078f6dcfbf17e8504",
			0x2000 + maxBehindGap + 1, false,
			"0123456789abcdef0100000000002e113c19eb1777e9d7e0"},

		{true, "0123456789abcdef", "0200000000001000e99b04f5b59e5343", 0x2000, false, // Version
			"0123456789abcdef010000000000200078f6dcfbf17e8504"},

		{true, "0123456789abcdef", "0101000000001000e99b04f5b59e5343", 0x2000, false, // RFFU
			"0123456789abcdef010000000000200078f6dcfbf17e8504"},

		// IPV6
		{false, "0123456789abcdef", "", 0x2000, false, // No sCookie
			"0123456789abcdef010000000000200091992114bd52a849"},

		{false, "0123456789abcdef", "010000000000200091992114bd52a849", 0x2000, true,
			"0123456789abcdef010000000000200091992114bd52a849"}, // Correct sCookie
	}

	var secrets [2]uint64
	for ix, tc := range testCases {
		query := setQuestion(dns.ClassINET, dns.TypeTXT, "tlsmy.net.")
		src := mock.NewNetAddr("udp", "[::1]:4051")
		if tc.ipv4 {
			src = mock.NewNetAddr("udp", "127.0.0.1:53")
		}
		req := newRequest(query, src, dnsutil.UDPNetwork)
		req.clientCookie, _ = hex.DecodeString(tc.client)
		req.serverCookie, _ = hex.DecodeString(tc.server)
		v := req.checkCookie(secrets, tc.unixTime)
		if v != tc.valid {
			t.Error("Err", ix, "Valid mismatch. Expected", tc.valid)
		}
		if v != req.cookieValid {
			t.Error("Err", ix, "Return value differs from cookieValid")
		}
		exp, _ := hex.DecodeString(tc.output)
		if !bytes.Equal(exp, req.cookieOut) {
			t.Errorf("Err %d cookieOut mismatch. Got %x. Exp %s\n",
				ix, req.cookieOut, tc.output)
		}
	}
}

func TestSrcIP(t *testing.T) {
	testCases := []struct {
		addr net.Addr
		ip   string // Empty means nil
	}{
		{nil, ""},
		{&net.UDPAddr{IP: net.ParseIP("192.0.2.1"), Port: 53}, "192.0.2.1"},
		{&net.TCPAddr{IP: net.ParseIP("2001:db8::1"), Port: 53}, "2001:db8::1"},
		{mock.NewNetAddr("udp", "127.0.0.2:4056"), "127.0.0.2"},
		{mock.NewNetAddr("udp", "[::1]:53"), "::1"},
		{mock.NewNetAddr("udp", "no port"), ""},
	}

	for ix, tc := range testCases {
		ip := srcIP(tc.addr)
		switch {
		case len(tc.ip) == 0 && ip != nil:
			t.Error(ix, "Expected nil IP, got", ip)
		case len(tc.ip) > 0 && !ip.Equal(net.ParseIP(tc.ip)):
			t.Error(ix, "IP mismatch. Exp", tc.ip, "Got", ip)
		}
	}
}

func TestNormalizeTimestamps(t *testing.T) {
	testCases := []struct {
		ourClock, theirClock uint32
		oursGreater          bool
	}{
		{0x10, 0x2, true},       // Regular values - no wrap
		{0x80000001, 0x2, true}, // ours-theirs is one shy of wrapDistance

		{0x80000007, 0x7, false}, // ours-theirs equals wrapDistance
		{0x7, 0x80000007, false}, // The undefined cases mentioned in in rfc1982

		{0x80000102, 0x100, true}, // ours-theirs > wrapDistance

		{0x2, 0x80000001, false}, // Test bottom half of conditional
		{0x100, 0x80000102, false},
	}

	for ix, tc := range testCases {
		ourClock64, theirClock64 := normalizeTimestamps(tc.ourClock, tc.theirClock)
		if tc.oursGreater {
			if ourClock64 <= theirClock64 {
				t.Error(ix, ourClock64, "Not Greater", theirClock64)
			}
		} else {
			if ourClock64 > theirClock64 {
				t.Error(ix, ourClock64, "Is Greater", theirClock64)
			}
		}
	}
}

func BenchmarkV1Cookie(b *testing.B) {
	ip := net.ParseIP("0.0.0.0")
	var secrets [2]uint64
	var clock uint32
	var cCookie [8]byte
	for i := 0; i < b.N; i++ {
		v1Cookie(secrets, clock, ip, cCookie[:])
	}
}
