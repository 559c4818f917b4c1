package upstream_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/sinkhole-dns/sinkhole/mock"
	"github.com/sinkhole-dns/sinkhole/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startUpstream(t *testing.T, fn dns.HandlerFunc) string {
	t.Helper()

	srv, err := mock.NewServer(fn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	return srv.Addr()
}

func TestResolve(t *testing.T) {
	addr := startUpstream(t, func(w dns.ResponseWriter, req *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(req)

		switch req.Question[0].Name {
		case "example.com.":
			rr, _ := dns.NewRR("example.com. 300 IN A 192.0.2.1")
			m.Answer = append(m.Answer, rr)
		case "missing.example.com.":
			m.Rcode = dns.RcodeNameError
		case "broken.example.com.":
			m.Rcode = dns.RcodeServerFailure
		case "big.example.com.":
			m.Truncated = true
		}

		_ = w.WriteMsg(m)
	})

	c, err := upstream.New(addr, time.Second)
	require.NoError(t, err)
	assert.Equal(t, addr, c.Addr())

	ctx := context.Background()

	ans, err := c.Resolve(ctx, "example.com", dns.TypeA)
	require.NoError(t, err)
	assert.Equal(t, dns.RcodeSuccess, ans.Rcode)
	require.Len(t, ans.Records, 1)
	assert.Equal(t, "192.0.2.1", ans.Records[0].(*dns.A).A.String())
	assert.Equal(t, uint32(300), ans.Records[0].Header().Ttl)

	ans, err = c.Resolve(ctx, "missing.example.com.", dns.TypeA)
	require.NoError(t, err)
	assert.Equal(t, dns.RcodeNameError, ans.Rcode)
	assert.Empty(t, ans.Records)

	_, err = c.Resolve(ctx, "broken.example.com", dns.TypeA)
	var rerr *upstream.ResolutionError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, upstream.Rcode, rerr.Kind)
	assert.Equal(t, dns.RcodeServerFailure, rerr.Rcode)
	assert.Contains(t, err.Error(), "SERVFAIL")

	_, err = c.Resolve(ctx, "big.example.com", dns.TypeA)
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, upstream.Transport, rerr.Kind)
	assert.True(t, errors.Is(err, upstream.ErrTruncated))
}

func TestResolveTimeout(t *testing.T) {
	// a socket that never answers
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	c, err := upstream.New(pc.LocalAddr().String(), 100*time.Millisecond)
	require.NoError(t, err)

	start := time.Now()
	_, err = c.Resolve(context.Background(), "example.com", dns.TypeA)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	var rerr *upstream.ResolutionError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, upstream.Timeout, rerr.Kind)
	assert.Equal(t, "timeout", rerr.Kind.String())
}

func TestResolveContextDeadline(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	c, err := upstream.New(pc.LocalAddr().String(), 5*time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err = c.Resolve(ctx, "example.com", dns.TypeA)

	var rerr *upstream.ResolutionError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, upstream.Timeout, rerr.Kind)
}

func TestNewInvalidAddr(t *testing.T) {
	_, err := upstream.New("8.8.8.8", time.Second)
	assert.Error(t, err)

	_, err = upstream.New("dns.google:53", time.Second)
	assert.Error(t, err)

	c, err := upstream.New("[2001:4860:4860::8888]:53", 0)
	require.NoError(t, err)
	assert.NotNil(t, c)
}
