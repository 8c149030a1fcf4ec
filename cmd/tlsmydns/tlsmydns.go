package main

import (
	"context"
	"crypto/rand"
	"os"
	"sync"
	"time"

	"github.com/markdingo/rrl"

	"github.com/tlsmy/tlsmydns/dnsutil"
	"github.com/tlsmy/tlsmydns/log"
	"github.com/tlsmy/tlsmydns/osutil"
	"github.com/tlsmy/tlsmydns/resolver"
	"github.com/tlsmy/tlsmydns/store"
)

// The tlsmyDNS container exists so that most of the "main" functionality can be
// delegated to support functions and help keep the flow of main() nice and clean.
type tlsmyDNS struct {
	cfg *config

	done chan struct{} // All collaborative go-routines should monitor - see Done()
	sig  chan os.Signal

	redis     *store.Redis     // Nil in tests which supply their own store
	coalesced *store.Coalesced // Wraps whatever store is in use
	limited   *store.Limited   // Nil unless --store-qps is set
	resolver  *resolver.Resolver

	rrlHandler *rrl.RRL // Nil if RRL is not configured
	metrics    *metrics // Nil unless --metrics-listen is set

	wg      sync.WaitGroup // For all servers started
	servers []*server

	startTime time.Time
	statsTime time.Time // Last time stats were reset
}

func newTLSMyDNS(cfg *config) *tlsmyDNS {
	t := &tlsmyDNS{
		cfg:  cfg,
		done: make(chan struct{}),
		sig:  make(chan os.Signal, 1),
	}
	if t.cfg == nil {
		t.cfg = newConfig()
	}

	return t
}

// Done is the go idiomatic way to tell collaborative go-routines to exit. All such
// go-routines should include a "case <-tlsmydns.Done(): return" in their select loop.
func (t *tlsmyDNS) Done() <-chan struct{} {
	return t.done
}

// openStore connects to Redis and creates the resolver. A Redis which cannot be reached
// now is only a warning as it may well be reachable by the time the first challenge
// arrives.
func (t *tlsmyDNS) openStore() error {
	t.redis = store.NewRedis(t.cfg.redisConfig())
	ctx, cancel := context.WithTimeout(context.Background(), t.cfg.storeTimeout)
	defer cancel()
	if err := t.redis.Ping(ctx); err != nil {
		warning(dnsutil.ShortenError(err), "Redis", t.redis.Addr(), "not reachable")
	} else {
		log.Major("Challenge store: redis ", t.redis.Addr())
	}

	return t.newResolver(t.redis)
}

// newResolver wraps cs with the optional rate limit and lookup coalescing and creates
// the resolver which all servers share.
func (t *tlsmyDNS) newResolver(cs store.ChallengeStore) error {
	if t.cfg.storeQPS > 0 {
		t.limited = store.NewLimited(cs, t.cfg.storeQPS, t.cfg.storeBurst)
		cs = t.limited
	}
	t.coalesced = store.NewCoalesced(cs)

	var err error
	t.resolver, err = resolver.New(t.cfg.resolverConfig(), t.coalesced)

	return err
}

// startMetrics exports stats to Prometheus on --metrics-listen. It must be called after
// openStore so the store counters can be exported.
func (t *tlsmyDNS) startMetrics() {
	t.metrics = newMetrics()
	if t.coalesced != nil {
		c := t.coalesced
		t.metrics.addCounterFunc("store_shared_lookups_total",
			"Challenge lookups answered by a concurrent lookup of the same token.",
			func() float64 { return float64(c.Shared()) })
	}
	if t.limited != nil {
		l := t.limited
		t.metrics.addCounterFunc("store_throttled_lookups_total",
			"Challenge lookups refused by --store-qps.",
			func() float64 { return float64(l.Throttled()) })
	}

	if err := t.metrics.start(t.cfg.metricsListen); err != nil {
		fatal(err, "--metrics-listen", t.cfg.metricsListen)
	}
}

func (t *tlsmyDNS) closeStore() {
	if t.redis != nil {
		if err := t.redis.Close(); err != nil {
			warning(err, "Redis close")
		}
	}
}

// newCookieSecrets returns a cryptographically strong random value for siphash-2-4.
//
// Strictly the secret should be configurable so that anycast DNS servers can all
// generate the same cookie, but a random value serves a single instance.
func newCookieSecrets() (secrets [2]uint64) {
	b := make([]byte, 16) // Effectively two uint64s
	if _, err := rand.Read(b); err != nil {
		fatal(err, "Cookie secrets")
	}
	for ix := 0; ix < 16; ix = ix + 2 {
		secrets[0] <<= 8
		secrets[1] <<= 8
		secrets[0] |= uint64(b[ix])
		secrets[1] |= uint64(b[ix+1])
	}

	return
}

// Open Listen sockets and start servers. Does not return until all servers have started
// or an error is detected.
func (t *tlsmyDNS) startServers() {
	if t.cfg.rrlConfig != nil && t.cfg.rrlConfig.IsActive() {
		t.rrlHandler = rrl.NewRRL(t.cfg.rrlConfig)
		log.Major("RRL active. Dryrun: ", t.cfg.rrlDryRun)
	}

	cookieSecrets := newCookieSecrets() // All servers get the same secret
	for _, network := range []string{dnsutil.UDPNetwork, dnsutil.TCPNetwork} {
		for _, addr := range t.cfg.listen {
			srv := newServer(t.cfg, t.resolver, t.rrlHandler, network, addr)
			srv.cookieSecrets = cookieSecrets
			srv.metrics = t.metrics
			err := t.startServer(srv)
			if err != nil {
				fatal(err)
			}
			t.servers = append(t.servers, srv)
			log.Major("Listen on: ", srv.network, " ", srv.address)
		}
	}
}

// Stop all servers and only return when they have all exited
func (t *tlsmyDNS) stopServers() {
	for _, srv := range t.servers {
		srv.stop()
	}
	t.wg.Wait() // Wait for them all to shutdown completely
}

// Constrain process via setuid, setgid and chroot
func (t *tlsmyDNS) Constrain() {
	if len(t.cfg.user) > 0 || len(t.cfg.group) > 0 || len(t.cfg.chroot) > 0 {
		err := osutil.Constrain(t.cfg.user, t.cfg.group, t.cfg.chroot)
		if err != nil {
			fatal(err)
		}
		log.Major("Process Constraint: ", osutil.ConstraintReport())
	}
}
