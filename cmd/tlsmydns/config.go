package main

import (
	"fmt"
	"os"
	"runtime/debug"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/markdingo/rrl"

	"github.com/tlsmy/tlsmydns/log"
	"github.com/tlsmy/tlsmydns/pregen"
	"github.com/tlsmy/tlsmydns/resolver"
	"github.com/tlsmy/tlsmydns/store"
)

const (
	programName = "tlsmydns"

	// Uppercase HTTPS implies BuildInfo was empty.
	defaultProjectURL = "HTTPS://github.com/tlsmy/tlsmydns"

	defaultDomain         = "tlsmy.net"
	defaultServerIP       = "127.0.0.1"
	defaultPort           = "53"
	defaultReportInterval = time.Hour
)

// rrlConfigStrings separates out the RRL options from all the rest for easy management
// and identification.
type rrlConfigStrings struct {
	window       string // "--rrl-window"
	slipRatio    string // "--rrl-slip-ratio"
	maxTableSize string // "--rrl-max-table-size"

	ipv4PrefixLength string // "--rrl-ipv4-CIDR"
	ipv6PrefixLength string // "--rrl-ipv6-CIDR"

	responsesInterval string // "--rrl-responses-psec"
	nodataInterval    string // "--rrl-nodata-psec"
	nxdomainsInterval string // "--rrl-nxdomain-psec"
	referralsInterval string // "--rrl-referrals-psec"
	errorsInterval    string // "--rrl-errors-psec"
	requestsInterval  string // "--rrl-requests-psec"
}

// config defines the global configuration settings used by tlsmydns. Apart from
// queryLogging, which is toggled by SIGUSR2, none of it changes once the servers start.
type config struct {
	projectURL string

	domain   string // As supplied, canonicalized by validation
	serverIP string
	port     string
	listen   []string // All addresses to listen on. Defaults to ":port"

	redisAddr     string
	redisPassword string
	redisDB       int
	storeTimeout  time.Duration
	storeQPS      float64 // Zero means no store rate limit
	storeBurst    int

	metricsListen string // Prometheus exporter address. Empty means disabled

	chaosFlag bool

	logMajorFlag   bool // Major events and on-going information such as periodic stats
	logMinorFlag   bool // Details associated with Major event
	logDebugFlag   bool // Developer flag
	logQueriesFlag bool // Each DNS Query exchanged - as parsed

	queryLogging atomic.Bool // Live copy of logQueriesFlag

	TTL            time.Duration // TTLs for synthetic RRs
	TTLAsSecs      uint32        // Converted and rounded from TTL
	reportInterval time.Duration // Statistics reporting interval

	nsid      string // Respond to EDNS NSID request with this string
	nsidAsHex string // Encoding version

	user, group, chroot string // Privilege constraints

	envErrors []error // Unusable environment defaults, reported by validation

	rrlOptions   rrlConfigStrings // Set by flags package
	rrlOptionSet bool             // True if at least one rrl option was set
	rrlDryRun    bool             // "--rrl-dryrun"
	rrlConfig    *rrl.Config      // Populated if RRL is active
}

func newConfig() *config {
	t := &config{projectURL: defaultProjectURL}
	info, ok := debug.ReadBuildInfo()
	if ok && len(info.Main.Path) > 0 {
		t.projectURL = info.Main.Path // Override with embedded if present
	}

	t.rrlConfig = rrl.NewConfig() // This default config is a no-op

	return t
}

// envString returns the value of the environment variable name or def if it is unset
// or empty.
func envString(name, def string) string {
	if v, ok := os.LookupEnv(name); ok && len(v) > 0 {
		return v
	}

	return def
}

// envInt is like envString, but the value must parse. A bad value is remembered for
// validation to report and def is returned in its place.
func (t *config) envInt(name string, def int) int {
	s := envString(name, "")
	if len(s) == 0 {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		t.envErrors = append(t.envErrors, fmt.Errorf("$%s '%s' is not an integer", name, s))
		return def
	}

	return v
}

func (t *config) envDuration(name string, def time.Duration) time.Duration {
	s := envString(name, "")
	if len(s) == 0 {
		return def
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		t.envErrors = append(t.envErrors, fmt.Errorf("$%s '%s' is not a duration", name, s))
		return def
	}

	return v
}

// resolverConfig is only meaningful after successful validation.
func (t *config) resolverConfig() resolver.Config {
	return resolver.Config{
		Domain:       t.domain,
		ServerIP:     parseIPv4(t.serverIP),
		TTL:          t.TTLAsSecs,
		StoreTimeout: t.storeTimeout,
	}
}

func (t *config) redisConfig() store.RedisConfig {
	return store.RedisConfig{
		Addr:     t.redisAddr,
		Password: t.redisPassword,
		DB:       t.redisDB,
	}
}

func (t *config) printVersion() {
	fmt.Fprintf(log.Out(), "Program:     %s %s (%s)\n",
		programName, pregen.Version, pregen.ReleaseDate)
	fmt.Fprintf(log.Out(), "Project:     %s\n", t.projectURL)
	fmt.Fprintf(log.Out(), "Inspiration: %s\n",
		"https://datatracker.ietf.org/doc/html/rfc8555#section-8.4")
}
