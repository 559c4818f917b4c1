package blocklist

import (
	"context"

	"github.com/miekg/dns"
	"github.com/semihalev/zlog/v2"
	"github.com/sinkhole-dns/sinkhole/denylist"
	"github.com/sinkhole-dns/sinkhole/dnsutil"
	"github.com/sinkhole-dns/sinkhole/middleware"
	"github.com/sinkhole-dns/sinkhole/response"
)

// BlockList answers denylisted names with an authoritative NXDOMAIN.
type BlockList struct {
	holder *denylist.Holder
}

func init() {
	middleware.Register(name, func(res *middleware.Resources) (middleware.Handler, error) {
		return New(res.Denylist), nil
	})
}

// New returns a new BlockList
func New(holder *denylist.Holder) *BlockList {
	return &BlockList{holder: holder}
}

// Name return middleware name
func (b *BlockList) Name() string { return name }

// ServeDNS implements the Handle interface.
func (b *BlockList) ServeDNS(ctx context.Context, ch *middleware.Chain) {
	w, req := ch.Writer, ch.Request

	if req.Opcode != dns.OpcodeQuery {
		ch.CancelWithRcode(dns.RcodeNotImplemented)
		return
	}

	q := req.Question[0]

	if !b.holder.Contains(q.Name) {
		ch.Next(ctx)
		return
	}

	zlog.Debug("Query blocked", "query", dnsutil.FormatQuestion(q))

	_ = w.WriteMsg(response.NewBlocked(req))

	ch.Cancel()
}

// Exists reports whether name is on the current denylist.
func (b *BlockList) Exists(name string) bool {
	return b.holder.Contains(name)
}

const name = "blocklist"
