package main

import (
	"fmt"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/tlsmy/tlsmydns/log"
	"github.com/tlsmy/tlsmydns/resolver"
	"github.com/tlsmy/tlsmydns/store"
)

type parseResult int // This is a ternary variable
const (
	parseStop     parseResult = iota // No error, but don't continue
	parseContinue                    // No errors and continue
	parseFailed                      // Errors, do not continue
)

// parseOptions populates the config from the command line. Options which were
// historically supplied as environment variables take their defaults from those
// variables so that "DOMAIN=example.net tlsmydns" and "tlsmydns --domain example.net"
// are equivalent. An explicit option always wins.
//
// Usage output has been formatted to fit within a 100 column terminal.
func (t *tlsmyDNS) parseOptions(args []string) parseResult {
	var helpFlag, versionFlag bool

	name := programName
	if len(args) > 0 {
		name = args[0]
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Consider '-h' for command-line usage")
	}

	fs.SetOutput(log.Out())

	// Non-config flags

	fs.BoolVarP(&helpFlag, "help", "h", false, "Print command-line usage")
	fs.BoolVarP(&versionFlag, "version", "v", false, "Print version and origin URL")

	// config flags

	fs.BoolVar(&t.cfg.chaosFlag, "CHAOS", true,
		`Answer CHAOS TXT queries for version.bind, version.server,
authors.bind, hostname.bind and id.server.`)

	fs.BoolVar(&t.cfg.logMajorFlag, "log-major", true, "Log major events to Stdout")
	fs.BoolVar(&t.cfg.logMinorFlag, "log-minor", false,
		"Log minor events to Stdout - this implies --log-major")
	fs.BoolVar(&t.cfg.logDebugFlag, "log-debug", false,
		"Log debug events to Stdout - this implies --log-minor")
	fs.BoolVar(&t.cfg.logQueriesFlag, "log-queries", true,
		`Log DNS queries to Stdout. This setting can be toggled with
SIGUSR2.`)

	// config Durations

	fs.DurationVar(&t.cfg.TTL, "TTL", time.Second*resolver.DefaultTTL,
		"TTL for synthetic responses (>= 1s)")
	fs.DurationVar(&t.cfg.reportInterval, "report", defaultReportInterval,
		"Interval between statistics reports (>= 1s)")
	fs.DurationVar(&t.cfg.storeTimeout, "store-timeout",
		t.cfg.envDuration("STORE_TIMEOUT", resolver.DefaultStoreTimeout),
		`Maximum time to wait for a challenge lookup. A lookup which
times out is answered with NXDomain. ($STORE_TIMEOUT)`)

	// config numbers

	fs.IntVar(&t.cfg.redisDB, "redis-db", t.cfg.envInt("REDIS_DB", 0),
		"Redis logical database number ($REDIS_DB)")
	fs.Float64Var(&t.cfg.storeQPS, "store-qps", 0,
		`Maximum challenge lookups per second sent to Redis. Excess
lookups are answered with NXDomain. Zero means no limit.`)
	fs.IntVar(&t.cfg.storeBurst, "store-burst", 0,
		`Lookups allowed in a burst above --store-qps (defaults to
--store-qps).`)

	// config StringVars

	fs.StringVar(&t.cfg.domain, "domain", envString("DOMAIN", defaultDomain),
		`Parent domain served. Challenges are answered for
_acme-challenge.{token}.{domain} and addresses for
{a}.{b}.{c}.{d}.{token}.{domain}. ($DOMAIN)
`)
	fs.StringVar(&t.cfg.serverIP, "server-ip", envString("SERVER_IP", defaultServerIP),
		"IPv4 address returned for A queries of --domain ($SERVER_IP)")
	fs.StringVar(&t.cfg.port, "port", envString("PORT", defaultPort),
		"Port used by the default --listen address ($PORT)")
	fs.StringVar(&t.cfg.redisAddr, "redis-addr", envString("REDIS_ADDR", store.DefaultRedisAddr),
		"Redis host:port holding challenge payloads ($REDIS_ADDR)")
	fs.StringVar(&t.cfg.redisPassword, "redis-password", envString("REDIS_PASSWORD", ""),
		"Redis password ($REDIS_PASSWORD)")
	fs.StringVar(&t.cfg.metricsListen, "metrics-listen", "",
		`Address to serve Prometheus metrics on at /metrics. Disabled
if not set.
`)

	fs.StringVar(&t.cfg.chroot, "chroot", "",
		`Reduce privileges with chroot() after --listen.
`)
	fs.StringVar(&t.cfg.group, "group", "",
		"Reduce privileges with setgid() after --listen.")
	fs.StringVar(&t.cfg.nsid, "NSID", "",
		"Respond to EDNS NSID sub-opt with the specified string.")
	fs.StringVar(&t.cfg.user, "user", "", "Reduce privileges with setuid() after --listen.")

	// config RRL StringVars - all RRL configs are set as strings so as to match the
	// interface provided by the rrl package. It does the actual conversion of numbers
	// and so forth and generates errors if they are invalid or out of range.

	fs.StringVar(&t.cfg.rrlOptions.window, "rrl-window", "",
		"Seconds during which response rates are tracked (default 15)")
	fs.StringVar(&t.cfg.rrlOptions.slipRatio, "rrl-slip-ratio", "",
		`Ratio of rate-limited responses given a truncated response over
a dropped response. A ratio of 0 disables slip processing and
thus all rate-limited responses are drop. A ratio of 1 means
every rate-limited response will be a truncated response and the
upper limit of 10 means 1 in every 10 rate-limited responses
will be a truncated with the remaining 9 being dropped (default
2).`)
	fs.StringVar(&t.cfg.rrlOptions.maxTableSize, "rrl-max-table-size", "",
		`Maximum number of responses to be tracked at one time. When
exceeded, rrl stops rate limiting new responses (default
100000).`)
	fs.BoolVar(&t.cfg.rrlDryRun, "rrl-dryrun", false,
		"Invoke RRL analysis but ignore recommended action")
	fs.StringVar(&t.cfg.rrlOptions.ipv4PrefixLength, "rrl-ipv4-CIDR", "",
		`The prefix length in bits to use for identifying a ipv4 client
CIDR (default 24).`)
	fs.StringVar(&t.cfg.rrlOptions.ipv6PrefixLength, "rrl-ipv6-CIDR", "",
		`The prefix length in bits to use for identifying a ipv6 client
CIDR (default 56).`)
	fs.StringVar(&t.cfg.rrlOptions.responsesInterval, "rrl-responses-psec", "",
		`The number of Answer responses allowed per second. An
allowance of 0 disables Answer rate limiting (default 0).`)
	fs.StringVar(&t.cfg.rrlOptions.nodataInterval, "rrl-nodata-psec", "",
		`The number of NoData responses allowed per second. An allowance
of 0 disables NoData rate limiting (defaults to
--rrl-responses-psec).`)
	fs.StringVar(&t.cfg.rrlOptions.nxdomainsInterval, "rrl-nxdomain-psec", "",
		`The number of NXDomain responses allowed per second. An
allowance of 0 disables NXDomain rate limiting (defaults to
--rrl-responses-psec).`)
	fs.StringVar(&t.cfg.rrlOptions.referralsInterval, "rrl-referrals-psec", "",
		`The number of Referral responses allowed per second. An
allowance of 0 disables Referral rate limiting (defaults to
--rrl-responses-psec).`)
	fs.StringVar(&t.cfg.rrlOptions.errorsInterval, "rrl-errors-psec", "",
		`The number of Error responses allowed per second (excluding
NXDomain). An allowance of 0 disables Error rate limiting
(defaults to --rrl-responses-psec).`)
	fs.StringVar(&t.cfg.rrlOptions.requestsInterval, "rrl-requests-psec", "",
		`The number requests allowed per second from a source IP.
An allowance of 0 disables rate limiting of requests. This
value applies solely to the claimed source IP of the query
(as masked by --rrl-*-CIDR) whereas all other settings apply to
response details (default 0).`)

	// config String Arrays

	fs.StringArrayVar(&t.cfg.listen, "listen", []string{},
		`Address to listen on for DNS queries - accepts 'host:port',
':port', v4address:port or [v6address]:port syntax. A naked
address is given --port. The default is ':' + --port.
`)

	////////////////////////////////////////

	// Both the standard "flag" package and "spf13/pflag" silently accept duplicate
	// options. With spf13 we can at least manage duplicates ourselves.

	dupes := make(map[string]bool) // True means dupes are ok

	dupes["help"] = true    // Documentation options that never run tlsmydns
	dupes["version"] = true // can be duplicate because the user may be fumbling

	dupes["listen"] = true // Legitimately allowed multiple times

	fs.SetInterspersed(false) // This GNU-ism breaks execute chaining, so turn it off!
	err := fs.ParseAll(args[1:],
		func(f *flag.Flag, v string) error {
			if tf, ok := dupes[f.Name]; ok {
				if tf {
					return fs.Set(f.Name, v)

				}
				return fmt.Errorf("Duplicate option '--%v %v' not allowed",
					f.Name, v)
			}
			dupes[f.Name] = false
			return fs.Set(f.Name, v)
		})

	if err != nil {
		fmt.Fprintln(log.Out(), "Error:", err.Error())
		return parseFailed
	}

	// Handle all documentation options locally

	if helpFlag {
		printUsage(fs)
		fmt.Fprintln(log.Out())
		t.cfg.printVersion()
		return parseStop
	}

	if versionFlag {
		t.cfg.printVersion()
		return parseStop
	}

	if fs.NArg() > 0 {
		fmt.Fprintf(log.Out(), "Error:Unexpected goop on command line: '%s'\n",
			strings.Join(fs.Args(), " "))
		return parseFailed
	}

	return t.parseRRLOptions()
}

// RRL options adhere to the interface of the rrl package which does all the conversion
// to ints and floats and returns errors as necessary, so at this level all values are
// accepted as strings without any validation.
//
// Since the rrl config starts life as a no-op config, at least one of the *psec values
// has to be set greater than zero otherwise rrl does nothing in the Debit() call. As
// soon as any --rrl-* option is set we presume the caller wants a functional rrl so we
// also check that at least one *psec value is also set.
func (t *tlsmyDNS) parseRRLOptions() parseResult {
	options := []struct{ name, value string }{
		{"window", t.cfg.rrlOptions.window},
		{"slip-ratio", t.cfg.rrlOptions.slipRatio},
		{"max-table-size", t.cfg.rrlOptions.maxTableSize},
		{"ipv4-CIDR", t.cfg.rrlOptions.ipv4PrefixLength},
		{"ipv6-CIDR", t.cfg.rrlOptions.ipv6PrefixLength},
		{"responses-per-second", t.cfg.rrlOptions.responsesInterval},
		{"nodata-per-second", t.cfg.rrlOptions.nodataInterval},
		{"nxdomains-per-second", t.cfg.rrlOptions.nxdomainsInterval},
		{"referrals-per-second", t.cfg.rrlOptions.referralsInterval},
		{"errors-per-second", t.cfg.rrlOptions.errorsInterval},
		{"requests-per-second", t.cfg.rrlOptions.requestsInterval},
	}
	for _, o := range options {
		if !t.setRRLOption(o.name, o.value) {
			return parseFailed
		}
	}

	// Check that they haven't only set no-op rrl options
	if (t.cfg.rrlOptionSet || t.cfg.rrlDryRun) && !t.cfg.rrlConfig.IsActive() {
		fmt.Fprintln(log.Out(), "Error: RRL requires at least one -*psec option to activate")
		return parseFailed
	}

	return parseContinue
}

func (t *tlsmyDNS) setRRLOption(name, value string) bool {
	if len(value) == 0 {
		return true
	}

	t.cfg.rrlOptionSet = true // Say at least one --rrl option is present
	err := t.cfg.rrlConfig.SetValue(name, value)
	if err != nil {
		fmt.Fprintln(log.Out(), "Error:", err.Error())
		return false
	}

	return true
}

// I trust all output devices can render UTF-8 these days otherwise the ellipses will look
// a bit odd.
func printUsage(fs *flag.FlagSet) {
	o := log.Out()
	fmt.Fprintln(o, "NAME")
	fmt.Fprintln(o, " ", programName, "-- an ACME DNS-01 challenge and IP-in-name DNS server")
	fmt.Fprintln(o)
	fmt.Fprintln(o, "SYNOPSIS")
	fmt.Fprintln(o, "     tlsmydns -h | --help | -v | --version")
	fmt.Fprintln(o, `     tlsmydns [--domain zone-name=tlsmy.net] [--server-ip IPv4=127.0.0.1]
              [--port port=53] [--listen listen-address]…
              [--redis-addr host:port] [--redis-password password] [--redis-db n]
              [--store-timeout time.Duration=2s] [--store-qps n] [--store-burst n]
              [--CHAOS=true] [--NSID hostid] [--TTL time.Duration=5m]
              [--user user-name] [--group group-name] [--chroot path]
              [--log-major=true] [--log-minor] [--log-debug]
              [--log-queries=true] [--report time.Duration=1h]
              [--metrics-listen host:port]
              [--rrl-dryrun]
              [--rrl-ipv4-CIDR length] [--rrl-ipv6-CIDR length]
              [--rrl-max-table-size size] [--rrl-window size] [--rrl-slip-ratio ratio]
              [--rrl-errors-psec seconds] [--rrl-nodata-psec seconds]
              [--rrl-nxdomain-psec seconds] [--rrl-referrals-psec seconds]
              [--rrl-requests-psec seconds] [--rrl-responses-psec seconds]`)

	fmt.Fprintln(o)
	fmt.Fprintln(o, "     Ellipses (…) indicate options which can be specified multiple times.")
	fmt.Fprint(o, `
DESCRIPTION
     tlsmydns is an authoritative DNS server for a single domain which answers
     just two kinds of names.

     ACME DNS-01 challenges: a TXT query for
     _acme-challenge.{token}.{domain} is answered with the payload stored in
     Redis under the key acmetxtchal:{token}. Whatever obtains the certificate
     writes that key; tlsmydns only ever reads it.

     IP addresses encoded in names: an A query for
     {a}.{b}.{c}.{d}.{token}.{domain} is answered with the address a.b.c.d.

     A token is exactly 51 characters of [0-9a-z]. An A query for the domain
     itself returns --server-ip. Names outside the domain are refused and
     every other name within the domain is NXDomain.

     A typical invocation is:

           # tlsmydns --domain tlsmy.net --server-ip 192.0.2.1 --redis-addr redis:6379
`)
	fmt.Fprintln(o)
	fmt.Fprintln(o, "OPTIONS")
	op := fs.Output() // Save and restore
	fs.SetOutput(o)
	fs.PrintDefaults()
	fs.SetOutput(op)

	fmt.Fprint(o, `
NOTES
  1. --listen can be repeated multiple times.
  2. RRL is only activated when at least one of the *-psec values is set above zero.
  3. Options marked with ($VAR) default to the value of that environment variable.

SIGNALS
  SIGQUIT - Produce a stack dump and exit
  SIGTERM - initiate shutdown
  SIGINT  - initiate shutdown
  SIGUSR1 - generates an immediate stats report
  SIGUSR2 - toggles --log-queries
`)
}
