package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/miekg/dns"
)

// ValidateCommandLineOptions checks everything that is likely a typo or usage error and
// converts options into the forms used at run time. It must be called before any server
// is started.
func (t *tlsmyDNS) ValidateCommandLineOptions() error {
	if len(t.cfg.envErrors) > 0 {
		return errors.Join(t.cfg.envErrors...)
	}

	labels, ok := dns.IsDomainName(t.cfg.domain)
	if !ok || labels < 1 || t.cfg.domain == "." {
		return fmt.Errorf("--domain '%s' is not a valid domain name", t.cfg.domain)
	}
	t.cfg.domain = dns.CanonicalName(t.cfg.domain)

	if parseIPv4(t.cfg.serverIP) == nil {
		return fmt.Errorf("--server-ip '%s' is not an IPv4 address", t.cfg.serverIP)
	}

	port, err := strconv.ParseUint(t.cfg.port, 10, 16)
	if err != nil || port == 0 {
		return fmt.Errorf("--port '%s' must be in the range 1-65535", t.cfg.port)
	}

	if len(t.cfg.listen) == 0 {
		t.cfg.listen = []string{":" + t.cfg.port}
	}
	for ix, addr := range t.cfg.listen {
		t.cfg.listen[ix] = normalizeHostPort(addr, t.cfg.port)
	}

	if len(t.cfg.redisAddr) == 0 {
		return fmt.Errorf("--redis-addr must not be empty")
	}
	if _, _, err := net.SplitHostPort(t.cfg.redisAddr); err != nil {
		return fmt.Errorf("--redis-addr '%s' is not host:port: %w", t.cfg.redisAddr, err)
	}
	if t.cfg.redisDB < 0 {
		return fmt.Errorf("--redis-db %d must not be less than zero", t.cfg.redisDB)
	}

	if t.cfg.storeTimeout <= 0 {
		return fmt.Errorf("--store-timeout must be greater than zero")
	}
	if t.cfg.storeQPS < 0 {
		return fmt.Errorf("--store-qps must not be less than zero")
	}
	if t.cfg.storeBurst < 0 {
		return fmt.Errorf("--store-burst must not be less than zero")
	}

	if t.cfg.TTL < time.Second {
		return fmt.Errorf("--TTL must be at least 1 second")
	}
	t.cfg.TTLAsSecs = uint32(t.cfg.TTL.Round(time.Second).Seconds())

	if t.cfg.reportInterval < time.Second {
		return fmt.Errorf("--report must be at least 1 second")
	}

	if len(t.cfg.metricsListen) > 0 {
		if _, _, err := net.SplitHostPort(t.cfg.metricsListen); err != nil {
			return fmt.Errorf("--metrics-listen '%s' is not host:port: %w",
				t.cfg.metricsListen, err)
		}
	}

	t.cfg.nsidAsHex = hex.EncodeToString([]byte(t.cfg.nsid)) // Convert nsid to hex
	t.cfg.queryLogging.Store(t.cfg.logQueriesFlag)

	return nil
}

// parseIPv4 returns the 4-byte form of s or nil if s is not an IPv4 address.
func parseIPv4(s string) net.IP {
	ip := net.ParseIP(s)
	if ip == nil {
		return nil
	}

	return ip.To4()
}

// Be helpful with host:port strings. If the original string only contains a naked IP
// address or host, append the port to create a fully formed host:port. This function
// is useful for prepping Listen() host:port strings.
func normalizeHostPort(addr, port string) string {
	ip := net.ParseIP(addr)
	if ip != nil { // naked IP?
		return net.JoinHostPort(addr, port)
	}
	_, _, err := net.SplitHostPort(addr)
	if err != nil {
		return net.JoinHostPort(addr, port)
	}

	return addr
}
