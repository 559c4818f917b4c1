package metrics

import (
	"context"

	"github.com/miekg/dns"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sinkhole-dns/sinkhole/dnsutil"
	"github.com/sinkhole-dns/sinkhole/middleware"
	"github.com/sinkhole-dns/sinkhole/response"
)

// Metrics type
type Metrics struct {
	queries   *prometheus.CounterVec
	responses *prometheus.CounterVec
}

var (
	queries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sinkhole_queries_total",
			Help: "How many DNS queries answered",
		},
		[]string{"qtype", "rcode"},
	)

	responses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sinkhole_responses_total",
			Help: "How many DNS queries handled, by outcome",
		},
		[]string{"disposition"},
	)
)

func init() {
	prometheus.MustRegister(queries, responses)

	middleware.Register(name, func(*middleware.Resources) (middleware.Handler, error) {
		return New(), nil
	})
}

// New return new metrics
func New() *Metrics {
	return &Metrics{
		queries:   queries,
		responses: responses,
	}
}

// Name return middleware name
func (m *Metrics) Name() string { return name }

// ServeDNS implements the Handle interface.
func (m *Metrics) ServeDNS(ctx context.Context, ch *middleware.Chain) {
	ch.Next(ctx)

	if !ch.Writer.Written() {
		m.responses.WithLabelValues(response.Refused.String()).Inc()
		return
	}

	qtype := "NONE"
	if len(ch.Request.Question) > 0 {
		qtype = dnsutil.TypeString(ch.Request.Question[0].Qtype)
	}

	m.queries.WithLabelValues(qtype, dns.RcodeToString[ch.Writer.Rcode()]).Inc()
	m.responses.WithLabelValues(response.Typify(ch.Writer.Msg()).String()).Inc()
}

const name = "metrics"
