// Package dnsutil holds small helpers for names, TTLs and questions shared by
// the denylist, cache and handler stages.
package dnsutil

import (
	"strings"

	"github.com/miekg/dns"
)

// Normalize returns name lower-cased with surrounding whitespace and the
// trailing root dot removed. "Ads.Example.COM." becomes "ads.example.com".
func Normalize(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimSuffix(name, ".")

	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'A' && c <= 'Z' {
			return strings.ToLower(name)
		}
	}

	return name
}

// MinTTL returns the smallest TTL across rrs, in seconds. The second return
// value is false when rrs is empty.
func MinTTL(rrs []dns.RR) (uint32, bool) {
	if len(rrs) == 0 {
		return 0, false
	}

	min := rrs[0].Header().Ttl
	for _, rr := range rrs[1:] {
		if ttl := rr.Header().Ttl; ttl < min {
			min = ttl
		}
	}

	return min, true
}

// CopyRRs returns deep copies of rrs.
func CopyRRs(rrs []dns.RR) []dns.RR {
	if rrs == nil {
		return nil
	}

	out := make([]dns.RR, len(rrs))
	for i, rr := range rrs {
		out[i] = dns.Copy(rr)
	}

	return out
}

// FormatQuestion formats q for logs, e.g. "example.com. IN A".
func FormatQuestion(q dns.Question) string {
	return strings.ToLower(q.Name) + " " + dns.ClassToString[q.Qclass] + " " + dns.TypeToString[q.Qtype]
}

// TypeString returns the mnemonic for qtype, or TYPEnnn when it has none.
func TypeString(qtype uint16) string {
	if s, ok := dns.TypeToString[qtype]; ok {
		return s
	}

	return dns.Type(qtype).String()
}
