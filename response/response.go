// Package response builds the reply messages for each request disposition.
package response

import (
	"github.com/miekg/dns"
)

// Disposition is the outcome of handling one query.
type Disposition int

const (
	// Served means the answer came from the cache or a fresh resolution.
	Served Disposition = iota
	// Blocked means the name is on the denylist.
	Blocked
	// ResolutionFailed means the upstream could not answer.
	ResolutionFailed
	// Refused means the query was dropped before reaching the resolver
	// (access list, rate limit). No reply is sent for it.
	Refused
)

var dispositionToString = map[Disposition]string{
	Served:           "served",
	Blocked:          "blocked",
	ResolutionFailed: "failed",
	Refused:          "refused",
}

func (d Disposition) String() string {
	if s, ok := dispositionToString[d]; ok {
		return s
	}

	return "unknown"
}

// NewBlocked returns the reply for a denylisted name: NXDOMAIN, authoritative,
// no answers.
func NewBlocked(req *dns.Msg) *dns.Msg {
	m := new(dns.Msg)
	m.SetRcode(req, dns.RcodeNameError)
	m.Authoritative = true
	m.RecursionAvailable = true

	return m
}

// NewServed returns a reply carrying answers with the given rcode. The
// records are used as-is; callers hand over copies they own.
func NewServed(req *dns.Msg, rcode int, answers []dns.RR) *dns.Msg {
	m := new(dns.Msg)
	m.SetRcode(req, rcode)
	m.Authoritative = false
	m.RecursionAvailable = true
	m.Answer = answers

	return m
}

// NewFailed returns a SERVFAIL reply.
func NewFailed(req *dns.Msg) *dns.Msg {
	return NewError(req, dns.RcodeServerFailure)
}

// NewError returns an empty reply with rcode set.
func NewError(req *dns.Msg, rcode int) *dns.Msg {
	m := new(dns.Msg)
	m.SetRcode(req, rcode)
	m.RecursionAvailable = true

	return m
}

// Typify classifies a reply written by the handler chain.
func Typify(m *dns.Msg) Disposition {
	if m == nil {
		return Refused
	}

	switch {
	case m.Rcode == dns.RcodeNameError && m.Authoritative:
		return Blocked
	case m.Rcode == dns.RcodeSuccess, m.Rcode == dns.RcodeNameError:
		return Served
	default:
		return ResolutionFailed
	}
}
