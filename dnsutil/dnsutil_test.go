package dnsutil

import (
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
)

func makeRR(data string) dns.RR {
	r, _ := dns.NewRR(data)

	return r
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"example.com.", "example.com"},
		{"Ads.Example.COM.", "ads.example.com"},
		{"example.com", "example.com"},
		{"  example.com.  ", "example.com"},
		{".", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.out, Normalize(tt.in), tt.in)
	}
}

func TestMinTTL(t *testing.T) {
	_, ok := MinTTL(nil)
	assert.False(t, ok)

	rrs := []dns.RR{
		makeRR("example.com. 300 IN A 192.0.2.1"),
		makeRR("example.com. 60 IN A 192.0.2.2"),
		makeRR("example.com. 120 IN A 192.0.2.3"),
	}

	ttl, ok := MinTTL(rrs)
	assert.True(t, ok)
	assert.Equal(t, uint32(60), ttl)
}

func TestCopyRRs(t *testing.T) {
	assert.Nil(t, CopyRRs(nil))

	rrs := []dns.RR{makeRR("example.com. 300 IN A 192.0.2.1")}
	cp := CopyRRs(rrs)

	cp[0].Header().Ttl = 1
	assert.Equal(t, uint32(300), rrs[0].Header().Ttl)
}

func TestFormatQuestion(t *testing.T) {
	q := dns.Question{Name: "Example.COM.", Qtype: dns.TypeAAAA, Qclass: dns.ClassINET}
	assert.Equal(t, "example.com. IN AAAA", FormatQuestion(q))

	assert.Equal(t, "A", TypeString(dns.TypeA))
	assert.Equal(t, "TYPE65280", TypeString(65280))
}
