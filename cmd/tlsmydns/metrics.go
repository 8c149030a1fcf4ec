package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/markdingo/rrl"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tlsmy/tlsmydns/dnsutil"
	"github.com/tlsmy/tlsmydns/log"
)

const metricsNamespace = "tlsmydns"

// metrics exports query counters to Prometheus. The periodic stats report remains the
// primary record; these exist for scraping.
type metrics struct {
	registry *prometheus.Registry

	queries  *prometheus.CounterVec   // qtype, rcode
	outcomes *prometheus.CounterVec   // outcome
	resolve  *prometheus.HistogramVec // outcome
	rrl      *prometheus.CounterVec   // action

	httpServer *http.Server
	addr       net.Addr // Bound address once started
}

func newMetrics() *metrics {
	t := &metrics{
		registry: prometheus.NewRegistry(),
		queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "queries_total",
				Help:      "DNS queries answered by qtype and rcode.",
			},
			[]string{"qtype", "rcode"},
		),
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "outcomes_total",
				Help:      "Resolver outcomes.",
			},
			[]string{"outcome"},
		),
		resolve: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "resolve_duration_seconds",
				Help:      "Time spent in the resolver, including challenge lookups.",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 2, 5},
			},
			[]string{"outcome"},
		),
		rrl: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "rrl_actions_total",
				Help:      "Responses altered by response rate limiting.",
			},
			[]string{"action"},
		),
	}

	t.registry.MustRegister(t.queries, t.outcomes, t.resolve, t.rrl,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return t
}

// addCounterFunc exports a counter maintained elsewhere, such as by the store wrappers.
func (t *metrics) addCounterFunc(name, help string, fn func() float64) {
	t.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{Namespace: metricsNamespace, Name: name, Help: help}, fn))
}

// observe is called once at the end of each query.
func (t *metrics) observe(req *request) {
	t.queries.WithLabelValues(dnsutil.TypeToString(req.question.Qtype),
		dnsutil.RcodeToString(req.response.Rcode)).Inc()

	if req.reply != nil {
		o := req.reply.Outcome.String()
		t.outcomes.WithLabelValues(o).Inc()
		t.resolve.WithLabelValues(o).Observe(req.resolveTime.Seconds())
	}

	if req.rrlDebited {
		switch req.rrlAction {
		case rrl.Drop:
			t.rrl.WithLabelValues("drop").Inc()
		case rrl.Slip:
			t.rrl.WithLabelValues("slip").Inc()
		}
	}
}

// start listens on addr and serves /metrics in the background. The listen happens here
// so that a bad address is reported before any DNS server starts.
func (t *metrics) start(addr string) error {
	ln, err := net.Listen(dnsutil.TCPNetwork, addr)
	if err != nil {
		return err
	}

	t.addr = ln.Addr()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{}))
	t.httpServer = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		err := t.httpServer.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Major("Metrics server exited: ", err)
		}
	}()
	log.Major("Metrics on: http://", t.addr.String(), "/metrics")

	return nil
}

func (t *metrics) stop() {
	if t.httpServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	t.httpServer.Shutdown(ctx)
}
