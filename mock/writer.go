// Package mock provides test doubles for the handler chain: a response
// writer, a scripted resolver and an in-process DNS server.
package mock

import (
	"net"
	"sync"

	"github.com/miekg/dns"
)

// Writer records the message written by a handler.
type Writer struct {
	mu  sync.Mutex
	msg *dns.Msg

	proto string

	localAddr  net.Addr
	remoteAddr net.Addr
}

// NewWriter return writer
func NewWriter(proto, addr string) *Writer {
	w := &Writer{}

	switch proto {
	case "tcp":
		w.localAddr = &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 53}
		w.remoteAddr, _ = net.ResolveTCPAddr("tcp", addr)
		w.proto = "tcp"

	default:
		w.localAddr = &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 53}
		w.remoteAddr, _ = net.ResolveUDPAddr("udp", addr)
		w.proto = "udp"
	}

	return w
}

// Rcode return message response code
func (w *Writer) Rcode() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.msg == nil {
		return dns.RcodeServerFailure
	}

	return w.msg.Rcode
}

// Msg return current dns message
func (w *Writer) Msg() *dns.Msg {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.msg
}

// Write func
func (w *Writer) Write(b []byte) (int, error) {
	msg := new(dns.Msg)
	if err := msg.Unpack(b); err != nil {
		return 0, err
	}

	w.mu.Lock()
	w.msg = msg
	w.mu.Unlock()

	return len(b), nil
}

// WriteMsg func
func (w *Writer) WriteMsg(msg *dns.Msg) error {
	w.mu.Lock()
	w.msg = msg
	w.mu.Unlock()

	return nil
}

// Written func
func (w *Writer) Written() bool { return w.Msg() != nil }

// Proto func
func (w *Writer) Proto() string { return w.proto }

// Network func
func (w *Writer) Network() string { return w.proto }

// Close func
func (w *Writer) Close() error { return nil }

// Hijack func
func (w *Writer) Hijack() {}

// LocalAddr func
func (w *Writer) LocalAddr() net.Addr { return w.localAddr }

// RemoteAddr func
func (w *Writer) RemoteAddr() net.Addr { return w.remoteAddr }

// TsigStatus func
func (w *Writer) TsigStatus() error { return nil }

// TsigTimersOnly func
func (w *Writer) TsigTimersOnly(ok bool) {}
