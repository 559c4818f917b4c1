package middleware

import (
	"errors"
	"net"

	"github.com/miekg/dns"
)

// ResponseWriter implement of dns.ResponseWriter.
type ResponseWriter interface {
	dns.ResponseWriter
	Msg() *dns.Msg
	Rcode() int
	Written() bool
	Reset(dns.ResponseWriter)
	Proto() string
	RemoteIP() net.IP
}

type responseWriter struct {
	dns.ResponseWriter
	msg      *dns.Msg
	written  bool
	rcode    int
	proto    string
	remoteip net.IP
}

var _ ResponseWriter = &responseWriter{}

var errAlreadyWritten = errors.New("msg already written")

func (w *responseWriter) Msg() *dns.Msg {
	return w.msg
}

func (w *responseWriter) Reset(rw dns.ResponseWriter) {
	w.ResponseWriter = rw
	w.written = false
	w.msg = nil
	w.rcode = dns.RcodeSuccess
	w.proto = "udp"
	w.remoteip = nil

	switch addr := rw.RemoteAddr().(type) {
	case *net.UDPAddr:
		if addr != nil {
			w.remoteip = addr.IP
		}
	case *net.TCPAddr:
		w.proto = "tcp"
		if addr != nil {
			w.remoteip = addr.IP
		}
	}
}

func (w *responseWriter) RemoteIP() net.IP {
	return w.remoteip
}

func (w *responseWriter) Proto() string {
	return w.proto
}

// Network satisfies dns.ResponseWriter for miekg/dns versions that require it.
func (w *responseWriter) Network() string {
	return w.proto
}

func (w *responseWriter) Rcode() int {
	return w.rcode
}

func (w *responseWriter) Written() bool {
	return w.written
}

func (w *responseWriter) Write(m []byte) (int, error) {
	if w.written {
		return 0, errAlreadyWritten
	}

	msg := new(dns.Msg)
	if err := msg.Unpack(m); err != nil {
		return 0, err
	}

	w.msg = msg
	w.rcode = msg.Rcode
	w.written = true

	return w.ResponseWriter.Write(m)
}

func (w *responseWriter) WriteMsg(m *dns.Msg) error {
	if w.written {
		return errAlreadyWritten
	}

	w.msg = m
	w.rcode = m.Rcode
	w.written = true

	return w.ResponseWriter.WriteMsg(m)
}
