package server

import (
	"net"

	"github.com/miekg/dns"
	"github.com/semihalev/zlog/v2"
	"github.com/sinkhole-dns/sinkhole/dnsutil"
)

// packetWriter sends one reply to the datagram's origin.
type packetWriter struct {
	pc     net.PacketConn
	remote net.Addr
}

func (w *packetWriter) LocalAddr() net.Addr  { return w.pc.LocalAddr() }
func (w *packetWriter) RemoteAddr() net.Addr { return w.remote }
func (w *packetWriter) Network() string      { return "udp" }

// WriteMsg truncates m to the classic UDP limit, packs it and sends it.
// Pack failures are logged and nothing is sent.
func (w *packetWriter) WriteMsg(m *dns.Msg) error {
	m.Truncate(dns.MinMsgSize)

	b, err := m.Pack()
	if err != nil {
		q := "-"
		if len(m.Question) > 0 {
			q = dnsutil.FormatQuestion(m.Question[0])
		}
		zlog.Error("Response encode failed", "query", q, "error", err.Error())

		return err
	}

	_, err = w.Write(b)

	return err
}

// Write sends b as is. Send failures are logged.
func (w *packetWriter) Write(b []byte) (int, error) {
	n, err := w.pc.WriteTo(b, w.remote)
	if err != nil {
		zlog.Warn("Response send failed", "client", w.remote.String(), "error", err.Error())
	}

	return n, err
}

func (w *packetWriter) Close() error        { return nil }
func (w *packetWriter) TsigStatus() error   { return nil }
func (w *packetWriter) TsigTimersOnly(bool) {}
func (w *packetWriter) Hijack()             {}
