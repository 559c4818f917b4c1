package mock

import (
	"net"

	"github.com/miekg/dns"
)

// Server is an in-process UDP DNS server used as a fake upstream.
type Server struct {
	srv *dns.Server
	pc  net.PacketConn
}

// NewServer starts a server on 127.0.0.1 with a random port.
func NewServer(handler dns.HandlerFunc) (*Server, error) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	started := make(chan struct{})
	srv := &dns.Server{
		PacketConn:        pc,
		Handler:           handler,
		NotifyStartedFunc: func() { close(started) },
	}

	go func() { _ = srv.ActivateAndServe() }()
	<-started

	return &Server{srv: srv, pc: pc}, nil
}

// Addr returns the server address.
func (s *Server) Addr() string { return s.pc.LocalAddr().String() }

// Close stops the server.
func (s *Server) Close() error { return s.srv.Shutdown() }
