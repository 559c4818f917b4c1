package accesslog

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"
	"github.com/semihalev/zlog/v2"
	"github.com/sinkhole-dns/sinkhole/dnsutil"
	"github.com/sinkhole-dns/sinkhole/middleware"
	"github.com/sinkhole-dns/sinkhole/response"
)

// AccessLog type
type AccessLog struct {
	mu  sync.Mutex
	out io.WriteCloser

	now func() time.Time
}

func init() {
	middleware.Register(name, func(res *middleware.Resources) (middleware.Handler, error) {
		if res.Config.AccessLog == "" {
			return nil, nil
		}
		return New(res.Config.AccessLog)
	})
}

// New opens path for appending and returns the access logger.
func New(path string) (*AccessLog, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("open access log: %w", err)
	}

	return &AccessLog{out: f, now: time.Now}, nil
}

// Name return middleware name
func (a *AccessLog) Name() string { return name }

// ServeDNS implements the Handle interface.
func (a *AccessLog) ServeDNS(ctx context.Context, ch *middleware.Chain) {
	ch.Next(ctx)

	w := ch.Writer
	if !w.Written() || w.Msg() == nil || len(w.Msg().Question) == 0 {
		return
	}

	resp := w.Msg()

	client := "-"
	if ip := w.RemoteIP(); ip != nil {
		client = ip.String()
	}

	record := []string{
		client + " -",
		"[" + a.now().Format("02/Jan/2006:15:04:05 -0700") + "]",
		"\"" + dnsutil.FormatQuestion(resp.Question[0]) + "\"",
		w.Proto(),
		dns.RcodeToString[resp.Rcode],
		response.Typify(resp).String(),
		strconv.Itoa(resp.Len()),
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := io.WriteString(a.out, strings.Join(record, " ")+"\n"); err != nil {
		zlog.Error("Access log write failed", "error", strings.Trim(err.Error(), "\n"))
	}
}

// Close closes the log file.
func (a *AccessLog) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.out.Close()
}

const name = "accesslog"
