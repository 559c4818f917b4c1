package mock

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/miekg/dns"
	"github.com/sinkhole-dns/sinkhole/upstream"
)

// Resolver is a scripted upstream.Resolver that counts its calls.
type Resolver struct {
	mu      sync.Mutex
	answers map[string]upstream.Answer
	errs    map[string]error

	// Gate, when set, is received from before every resolution returns.
	Gate chan struct{}

	calls atomic.Int64
}

// NewResolver returns an empty Resolver. Unknown questions resolve to an
// empty NOERROR answer.
func NewResolver() *Resolver {
	return &Resolver{
		answers: make(map[string]upstream.Answer),
		errs:    make(map[string]error),
	}
}

func key(name string, qtype uint16) string {
	return dns.CanonicalName(name) + "/" + dns.Type(qtype).String()
}

// SetAnswer scripts the answer for (name, qtype).
func (r *Resolver) SetAnswer(name string, qtype uint16, ans upstream.Answer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.errs, key(name, qtype))
	r.answers[key(name, qtype)] = ans
}

// SetError scripts a failure for (name, qtype).
func (r *Resolver) SetError(name string, qtype uint16, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errs[key(name, qtype)] = err
}

// Calls returns how many times Resolve ran.
func (r *Resolver) Calls() int { return int(r.calls.Load()) }

// Resolve implements upstream.Resolver.
func (r *Resolver) Resolve(ctx context.Context, name string, qtype uint16) (upstream.Answer, error) {
	r.calls.Add(1)

	if r.Gate != nil {
		select {
		case <-r.Gate:
		case <-ctx.Done():
			return upstream.Answer{}, &upstream.ResolutionError{Kind: upstream.Timeout, Name: name, Qtype: qtype, Err: ctx.Err()}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err, ok := r.errs[key(name, qtype)]; ok {
		return upstream.Answer{}, err
	}

	ans := r.answers[key(name, qtype)]

	records := make([]dns.RR, len(ans.Records))
	for i, rr := range ans.Records {
		records[i] = dns.Copy(rr)
	}

	return upstream.Answer{Rcode: ans.Rcode, Records: records}, nil
}
