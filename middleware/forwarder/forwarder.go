package forwarder

import (
	"context"
	"errors"
	"time"

	"github.com/semihalev/zlog/v2"
	"github.com/sinkhole-dns/sinkhole/cache"
	"github.com/sinkhole-dns/sinkhole/dnsutil"
	"github.com/sinkhole-dns/sinkhole/middleware"
	"github.com/sinkhole-dns/sinkhole/response"
	"github.com/sinkhole-dns/sinkhole/upstream"
	"golang.org/x/sync/singleflight"
)

// Forwarder resolves cache misses through the upstream and stores the answer.
// Concurrent misses for the same key share one upstream exchange.
type Forwarder struct {
	upstream upstream.Resolver
	qc       *cache.QueryCache

	timeout  time.Duration
	negative time.Duration
	maxTTL   time.Duration

	group singleflight.Group
}

// Options tunes the forwarder.
type Options struct {
	Timeout     time.Duration
	NegativeTTL time.Duration
	MaxTTL      time.Duration
}

func init() {
	middleware.Register(name, func(res *middleware.Resources) (middleware.Handler, error) {
		cfg := res.Config

		return New(res.Upstream, res.Cache, Options{
			Timeout:     cfg.Timeout.Duration,
			NegativeTTL: time.Duration(cfg.NegativeTTL) * time.Second,
			MaxTTL:      time.Duration(cfg.MaxTTL) * time.Second,
		}), nil
	})
}

// New return forwarder
func New(r upstream.Resolver, qc *cache.QueryCache, opts Options) *Forwarder {
	if opts.Timeout <= 0 {
		opts.Timeout = upstream.DefaultTimeout
	}

	if opts.NegativeTTL <= 0 {
		opts.NegativeTTL = defaultNegativeTTL
	}

	return &Forwarder{
		upstream: r,
		qc:       qc,
		timeout:  opts.Timeout,
		negative: opts.NegativeTTL,
		maxTTL:   opts.MaxTTL,
	}
}

// Name return middleware name
func (f *Forwarder) Name() string { return name }

// ServeDNS implements the Handle interface.
func (f *Forwarder) ServeDNS(ctx context.Context, ch *middleware.Chain) {
	w, req := ch.Writer, ch.Request

	q := req.Question[0]
	key := cache.NewKey(q.Name, q.Qtype)

	result := f.group.DoChan(key.String(), func() (any, error) {
		// a flight started right after another finished finds its answer here
		if ans, ok := f.qc.Lookup(key); ok {
			return ans, nil
		}

		// the exchange outlives any single waiter
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
		defer cancel()

		ans, err := f.upstream.Resolve(rctx, key.Name, key.Type)
		if err != nil {
			return nil, err
		}

		f.qc.Put(key, ans, cache.TTL(ans.Records, f.negative, f.maxTTL))

		return ans, nil
	})

	select {
	case res := <-result:
		if res.Err != nil {
			f.fail(ch, q.Name, res.Err)
			return
		}

		ans := res.Val.(upstream.Answer)
		records := ans.Records
		if res.Shared {
			records = dnsutil.CopyRRs(records)
		}

		_ = w.WriteMsg(response.NewServed(req, ans.Rcode, records))
		ch.Cancel()

	case <-ctx.Done():
		f.fail(ch, q.Name, ctx.Err())
	}
}

func (f *Forwarder) fail(ch *middleware.Chain, qname string, err error) {
	var rerr *upstream.ResolutionError
	if errors.As(err, &rerr) {
		zlog.Warn("Upstream resolution failed", "query", qname, "kind", rerr.Kind.String(), "error", err.Error())
	} else {
		zlog.Warn("Upstream resolution failed", "query", qname, "error", err.Error())
	}

	_ = ch.Writer.WriteMsg(response.NewFailed(ch.Request))
	ch.Cancel()
}

const (
	defaultNegativeTTL = 30 * time.Second

	name = "forwarder"
)
