package main

import (
	"fmt"
	"strings"

	"github.com/tlsmy/tlsmydns/resolver"
)

type generalStats struct {
	queries    int // Total queries
	badRequest int // No Question, wrong op-code

	chaos        int
	chaosRefused int
	wrongClass   int
	nsid         int
	truncated    int // Responses with TC=1
	writeErrors  int

	cookie          int
	cookieOnly      int
	wrongCookie     int // Server cookie mismatch
	malformedCookie int

	rrlDrop int
	rrlSlip int
}

func (t *generalStats) add(from *generalStats) {
	t.queries += from.queries
	t.badRequest += from.badRequest
	t.chaos += from.chaos
	t.chaosRefused += from.chaosRefused
	t.wrongClass += from.wrongClass
	t.nsid += from.nsid
	t.truncated += from.truncated
	t.writeErrors += from.writeErrors
	t.cookie += from.cookie
	t.cookieOnly += from.cookieOnly
	t.wrongCookie += from.wrongCookie
	t.malformedCookie += from.malformedCookie
	t.rrlDrop += from.rrlDrop
	t.rrlSlip += from.rrlSlip
}

func (t *generalStats) String() string {
	return fmt.Sprintf("q=%d/%d ch=%d/%d wc=%d nsid=%d tc=%d we=%d C=%d/%d/%d/%d rrl=%d/%d",
		t.queries, t.badRequest,
		t.chaos, t.chaosRefused, t.wrongClass, t.nsid, t.truncated, t.writeErrors,
		t.cookie, t.cookieOnly, t.wrongCookie, t.malformedCookie,
		t.rrlDrop, t.rrlSlip)
}

// outcomeStats counts resolver outcomes, indexed by resolver.Outcome.
type outcomeStats [resolver.OutcomeCount]int

func (t *outcomeStats) add(from *outcomeStats) {
	for ix := range t {
		t[ix] += from[ix]
	}
}

func (t *outcomeStats) String() string {
	parts := make([]string, 0, len(t))
	for ix, v := range t {
		o := resolver.Outcome(ix)
		parts = append(parts, strings.ReplaceAll(o.String(), " ", "-")+"="+fmt.Sprint(v))
	}

	return strings.Join(parts, " ")
}

type serverStats struct {
	gen     generalStats
	outcome outcomeStats
}

func (t *serverStats) add(from *serverStats) {
	t.gen.add(&from.gen)
	t.outcome.add(&from.outcome)
}

func (t *serverStats) String() string {
	return "Gen: " + t.gen.String() + " Outcome: " + t.outcome.String()
}
