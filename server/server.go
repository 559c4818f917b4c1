// Package server owns the UDP socket. Every datagram that decodes to a
// single-question query is handled on its own goroutine by the middleware
// pipeline; anything else is dropped without a reply.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/miekg/dns"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/semihalev/zlog/v2"
	"github.com/sinkhole-dns/sinkhole/config"
	"github.com/sinkhole-dns/sinkhole/middleware"
	"golang.org/x/sync/semaphore"
)

// ErrClosed is returned by Serve when the socket is closed by someone other
// than the server.
var ErrClosed = errors.New("server: listener closed")

var dropped = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "sinkhole_dropped_datagrams_total",
	Help: "Datagrams dropped before reaching the pipeline",
}, []string{"reason"})

func init() {
	prometheus.MustRegister(dropped)
}

// Server type
type Server struct {
	addr    string
	udpSize int
	timeout time.Duration

	sem *semaphore.Weighted

	chainPool sync.Pool
	wg        sync.WaitGroup
}

// New return new server
func New(cfg *config.Config, p *middleware.Pipeline) *Server {
	s := &Server{
		addr:    cfg.Bind,
		udpSize: cfg.UDPSize,
		timeout: cfg.Timeout.Duration,
	}

	if s.udpSize < dns.MinMsgSize {
		s.udpSize = dns.MinMsgSize
	}

	if s.timeout <= 0 {
		s.timeout = defaultTimeout
	}

	if cfg.MaxConcurrent > 0 {
		s.sem = semaphore.NewWeighted(cfg.MaxConcurrent)
	}

	s.chainPool.New = func() any {
		return p.NewChain()
	}

	return s
}

// ListenAndServe binds the configured UDP address and serves until ctx is
// done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	pc, err := net.ListenPacket("udp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}

	zlog.Info("DNS server listening...", "net", "udp", "addr", pc.LocalAddr().String())

	return s.Serve(ctx, pc)
}

// Serve reads datagrams from pc until ctx is done, then closes pc and waits
// for in-flight requests.
func (s *Server) Serve(ctx context.Context, pc net.PacketConn) error {
	stop := context.AfterFunc(ctx, func() { _ = pc.Close() })
	defer stop()

	defer s.wg.Wait()

	buf := make([]byte, s.udpSize)
	for {
		n, from, err := pc.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			if errors.Is(err, net.ErrClosed) {
				return ErrClosed
			}

			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				zlog.Warn("DNS listener read timeout", "error", err.Error())
				time.Sleep(readBackoff)
				continue
			}

			_ = pc.Close()
			return fmt.Errorf("read: %w", err)
		}

		req, ok := decode(buf[:n])
		if !ok {
			zlog.Debug("Malformed datagram dropped", "client", from.String(), "size", n)
			dropped.WithLabelValues("malformed").Inc()
			continue
		}

		if s.sem != nil && !s.sem.TryAcquire(1) {
			zlog.Debug("Concurrency limit reached, datagram dropped", "client", from.String())
			dropped.WithLabelValues("overload").Inc()
			continue
		}

		s.wg.Add(1)
		go s.handle(ctx, pc, from, req)
	}
}

func (s *Server) handle(ctx context.Context, pc net.PacketConn, from net.Addr, req *dns.Msg) {
	defer s.wg.Done()

	if s.sem != nil {
		defer s.sem.Release(1)
	}

	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	w := &packetWriter{pc: pc, remote: from}

	ch := s.chainPool.Get().(*middleware.Chain)
	ch.Reset(w, req)
	ch.Next(rctx)
	s.chainPool.Put(ch)
}

// decode unpacks a datagram and reports whether it is a query this server
// answers.
func decode(b []byte) (*dns.Msg, bool) {
	if len(b) < headerSize {
		return nil, false
	}

	req := new(dns.Msg)
	if err := req.Unpack(b); err != nil {
		return nil, false
	}

	if req.Response || len(req.Question) != 1 {
		return nil, false
	}

	return req, true
}

const (
	headerSize     = 12
	readBackoff    = 100 * time.Millisecond
	defaultTimeout = 2 * time.Second
)
