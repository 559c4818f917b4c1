package cache

import (
	"context"

	"github.com/semihalev/zlog/v2"
	"github.com/sinkhole-dns/sinkhole/cache"
	"github.com/sinkhole-dns/sinkhole/dnsutil"
	"github.com/sinkhole-dns/sinkhole/middleware"
	"github.com/sinkhole-dns/sinkhole/response"
)

// Cache answers repeat queries from the shared query cache.
type Cache struct {
	qc *cache.QueryCache
}

func init() {
	middleware.Register(name, func(res *middleware.Resources) (middleware.Handler, error) {
		return New(res.Cache), nil
	})
}

// New return cache handler
func New(qc *cache.QueryCache) *Cache {
	return &Cache{qc: qc}
}

// Name return middleware name
func (c *Cache) Name() string { return name }

// ServeDNS implements the Handle interface.
func (c *Cache) ServeDNS(ctx context.Context, ch *middleware.Chain) {
	w, req := ch.Writer, ch.Request

	q := req.Question[0]

	ans, ok := c.qc.Get(cache.NewKey(q.Name, q.Qtype))
	if !ok {
		ch.Next(ctx)
		return
	}

	zlog.Debug("Cache hit", "query", dnsutil.FormatQuestion(q))

	_ = w.WriteMsg(response.NewServed(req, ans.Rcode, ans.Records))

	ch.Cancel()
}

const name = "cache"
