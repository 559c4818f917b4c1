package middleware

import (
	"context"

	"github.com/miekg/dns"
)

// Handler is one step of the chain. A handler either answers and cancels
// the chain or calls ch.Next.
type Handler interface {
	Name() string
	ServeDNS(ctx context.Context, ch *Chain)
}

// Chain type.
type Chain struct {
	Writer  ResponseWriter
	Request *dns.Msg

	handlers []Handler

	head  int
	count int
}

// NewChain return new fresh chain.
func NewChain(handlers []Handler) *Chain {
	return &Chain{
		Writer:   &responseWriter{},
		handlers: handlers,
		count:    len(handlers),
	}
}

// Next calls the next handler in the chain.
func (ch *Chain) Next(ctx context.Context) {
	if ch.count == 0 {
		return
	}

	handler := ch.handlers[ch.head]
	ch.head++
	ch.count--

	handler.ServeDNS(ctx, ch)
}

// Cancel stops the chain without a reply.
func (ch *Chain) Cancel() {
	ch.count = 0
}

// CancelWithRcode stops the chain and replies with an empty message
// carrying rcode.
func (ch *Chain) CancelWithRcode(rcode int) {
	m := new(dns.Msg)
	m.SetRcode(ch.Request, rcode)
	m.RecursionAvailable = true

	_ = ch.Writer.WriteMsg(m)

	ch.count = 0
}

// Reset prepares the chain for a new request.
func (ch *Chain) Reset(w dns.ResponseWriter, r *dns.Msg) {
	ch.Writer.Reset(w)
	ch.Request = r
	ch.count = len(ch.handlers)
	ch.head = 0
}
