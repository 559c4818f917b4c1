package recovery

import (
	"context"
	"runtime/debug"

	"github.com/miekg/dns"
	"github.com/semihalev/zlog/v2"
	"github.com/sinkhole-dns/sinkhole/middleware"
)

// Recovery dummy type.
type Recovery struct{}

func init() {
	middleware.Register(name, func(*middleware.Resources) (middleware.Handler, error) {
		return New(), nil
	})
}

// New return recovery.
func New() *Recovery {
	return &Recovery{}
}

// Name return middleware name.
func (r *Recovery) Name() string { return name }

// ServeDNS implements the Handle interface.
func (r *Recovery) ServeDNS(ctx context.Context, ch *middleware.Chain) {
	defer func() {
		if rec := recover(); rec != nil {
			if !ch.Writer.Written() {
				ch.CancelWithRcode(dns.RcodeServerFailure)
			}
			ch.Cancel()

			zlog.Error("Recovered in ServeDNS", "recover", rec, "stack", string(debug.Stack()))
		}
	}()

	ch.Next(ctx)
}

const name = "recovery"
