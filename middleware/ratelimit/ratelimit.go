package ratelimit

import (
	"context"
	"net"

	"github.com/cespare/xxhash/v2"
	"github.com/semihalev/zlog/v2"
	"github.com/sinkhole-dns/sinkhole/middleware"
)

// RateLimit type
type RateLimit struct {
	limiters *LimiterStore
	rate     int
}

func init() {
	middleware.Register(name, func(res *middleware.Resources) (middleware.Handler, error) {
		if res.Config.ClientRateLimit <= 0 {
			return nil, nil
		}
		return New(res.Config.ClientRateLimit), nil
	})
}

// New return a limiter allowing rate queries per minute for each client.
func New(rate int) *RateLimit {
	return &RateLimit{
		limiters: NewLimiterStore(storeSize, rate),
		rate:     rate,
	}
}

// Name return middleware name
func (r *RateLimit) Name() string { return name }

// ServeDNS implements the Handle interface.
func (r *RateLimit) ServeDNS(ctx context.Context, ch *middleware.Chain) {
	ip := ch.Writer.RemoteIP()

	if r.rate <= 0 || ip == nil || ip.IsLoopback() {
		ch.Next(ctx)
		return
	}

	if !r.limiters.Get(key(ip)).Allow() {
		zlog.Debug("Client rate limited", "client", ip.String())
		//no reply to client
		ch.Cancel()
		return
	}

	ch.Next(ctx)
}

func key(ip net.IP) uint64 {
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}

	return xxhash.Sum64(ip)
}

const (
	storeSize = 256 * 100

	name = "ratelimit"
)
