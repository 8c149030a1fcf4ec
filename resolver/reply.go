package resolver

import (
	"github.com/miekg/dns"
)

// Outcome classifies how Resolve arrived at a Reply. It is for statistics and logging
// and has no bearing on what the client sees beyond the rcode and answers.
type Outcome int

const (
	OutOfDomain      Outcome = iota // REFUSED
	Apex                            // A for the Domain itself
	ApexNoData                      // Non-A for the Domain itself - empty NOERROR
	NotToken                        // Label below Domain is not a token
	Challenge                       // TXT from the store
	ChallengeMissing                // Token not in the store
	StoreError                      // Store failed or timed out
	Address                         // A synthesized from labels
	BadAddress                      // Octet labels did not parse
	Unsupported                     // Token is fine, shape or qType are not

	OutcomeCount = int(Unsupported) + 1 // Size of arrays indexed by Outcome
)

var outcomeStrings = map[Outcome]string{
	OutOfDomain:      "out of domain",
	Apex:             "apex",
	ApexNoData:       "apex nodata",
	NotToken:         "not a token",
	Challenge:        "challenge",
	ChallengeMissing: "no challenge",
	StoreError:       "store error",
	Address:          "address",
	BadAddress:       "bad address",
	Unsupported:      "unsupported",
}

func (t Outcome) String() string {
	if s, ok := outcomeStrings[t]; ok {
		return s
	}

	return "??"
}

// Reply is the decoded response to a question. The caller is responsible for echoing the
// question and for encoding.
type Reply struct {
	Rcode   int
	Answer  []dns.RR
	Outcome Outcome
	Err     error // Set when Outcome is StoreError
}

// InDomain returns true if the question was within the Domain, i.e. the response is
// authoritative.
func (t *Reply) InDomain() bool {
	return t.Outcome != OutOfDomain
}

func newReply(rcode int, o Outcome, answers ...dns.RR) *Reply {
	return &Reply{Rcode: rcode, Outcome: o, Answer: answers}
}
