package response

import (
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
)

func newRequest(name string, qtype uint16) *dns.Msg {
	req := new(dns.Msg)
	req.SetQuestion(name, qtype)
	req.Id = 4242

	return req
}

func TestNewBlocked(t *testing.T) {
	req := newRequest("ads.example.com.", dns.TypeA)

	m := NewBlocked(req)
	assert.Equal(t, req.Id, m.Id)
	assert.True(t, m.Response)
	assert.True(t, m.Authoritative)
	assert.True(t, m.RecursionAvailable)
	assert.Equal(t, dns.RcodeNameError, m.Rcode)
	assert.Empty(t, m.Answer)
	assert.Equal(t, req.Question, m.Question)
	assert.Equal(t, Blocked, Typify(m))
}

func TestNewServed(t *testing.T) {
	req := newRequest("example.com.", dns.TypeA)
	rr, _ := dns.NewRR("example.com. 300 IN A 192.0.2.1")

	m := NewServed(req, dns.RcodeSuccess, []dns.RR{rr})
	assert.Equal(t, req.Id, m.Id)
	assert.False(t, m.Authoritative)
	assert.True(t, m.RecursionAvailable)
	assert.Equal(t, dns.RcodeSuccess, m.Rcode)
	assert.Len(t, m.Answer, 1)
	assert.Equal(t, req.Question, m.Question)
	assert.Equal(t, Served, Typify(m))

	nx := NewServed(req, dns.RcodeNameError, nil)
	assert.Equal(t, Served, Typify(nx))
}

func TestNewFailed(t *testing.T) {
	req := newRequest("example.com.", dns.TypeA)

	m := NewFailed(req)
	assert.Equal(t, req.Id, m.Id)
	assert.Equal(t, dns.RcodeServerFailure, m.Rcode)
	assert.False(t, m.Authoritative)
	assert.Empty(t, m.Answer)
	assert.Equal(t, ResolutionFailed, Typify(m))
}

func TestDispositionString(t *testing.T) {
	assert.Equal(t, "served", Served.String())
	assert.Equal(t, "blocked", Blocked.String())
	assert.Equal(t, "failed", ResolutionFailed.String())
	assert.Equal(t, "refused", Refused.String())
	assert.Equal(t, "unknown", Disposition(42).String())
	assert.Equal(t, Refused, Typify(nil))
}
