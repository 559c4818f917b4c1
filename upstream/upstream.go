// Package upstream sends single questions to the configured recursive
// resolver.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
)

// Answer is the result of one resolution.
type Answer struct {
	Rcode   int
	Records []dns.RR
}

// Resolver resolves one question against the upstream server.
type Resolver interface {
	Resolve(ctx context.Context, name string, qtype uint16) (Answer, error)
}

// ErrorKind tells why a resolution failed.
type ErrorKind int

const (
	// Transport covers dial, write and read failures.
	Transport ErrorKind = iota
	// Timeout means no reply arrived before the deadline.
	Timeout
	// Rcode means the upstream answered with an error response code.
	Rcode
)

func (k ErrorKind) String() string {
	switch k {
	case Timeout:
		return "timeout"
	case Rcode:
		return "rcode"
	default:
		return "transport"
	}
}

// ResolutionError is returned by Resolve for every failure.
type ResolutionError struct {
	Kind   ErrorKind
	Server string
	Name   string
	Qtype  uint16
	Rcode  int
	Err    error
}

func (e *ResolutionError) Error() string {
	q := e.Name + " " + dns.Type(e.Qtype).String()

	if e.Kind == Rcode {
		return fmt.Sprintf("upstream %s answered %s for %s", e.Server, dns.RcodeToString[e.Rcode], q)
	}

	return fmt.Sprintf("upstream %s %s for %s: %v", e.Server, e.Kind, q, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// ErrTruncated is wrapped when the upstream reply has the TC bit set.
var ErrTruncated = errors.New("truncated response")

// Client resolves over UDP against one fixed server.
type Client struct {
	addr   string
	client *dns.Client
}

// New returns a Client for addr (host:port). A zero timeout falls back to
// DefaultTimeout.
func New(addr string, timeout time.Duration) (*Client, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("upstream address %q: %w", addr, err)
	}

	if net.ParseIP(host) == nil {
		return nil, fmt.Errorf("upstream address %q: host is not an ip address", addr)
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		addr: addr,
		client: &dns.Client{
			Net:     "udp",
			Timeout: timeout,
		},
	}, nil
}

// Addr returns the upstream server address.
func (c *Client) Addr() string { return c.addr }

// Resolve sends one recursive question and waits for one reply.
func (c *Client) Resolve(ctx context.Context, name string, qtype uint16) (Answer, error) {
	req := new(dns.Msg)
	req.SetQuestion(dns.Fqdn(name), qtype)
	req.RecursionDesired = true

	resp, _, err := c.client.ExchangeContext(ctx, req, c.addr)
	if err != nil {
		return Answer{}, c.newError(name, qtype, classify(err), err)
	}

	if resp.Truncated {
		return Answer{}, c.newError(name, qtype, Transport, ErrTruncated)
	}

	switch resp.Rcode {
	case dns.RcodeSuccess, dns.RcodeNameError:
	default:
		e := c.newError(name, qtype, Rcode, nil)
		e.Rcode = resp.Rcode
		return Answer{}, e
	}

	return Answer{Rcode: resp.Rcode, Records: resp.Answer}, nil
}

func (c *Client) newError(name string, qtype uint16, kind ErrorKind, err error) *ResolutionError {
	return &ResolutionError{
		Kind:   kind,
		Server: c.addr,
		Name:   name,
		Qtype:  qtype,
		Err:    err,
	}
}

func classify(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Timeout
	}

	return Transport
}

// DefaultTimeout bounds one upstream round trip.
const DefaultTimeout = 2 * time.Second
