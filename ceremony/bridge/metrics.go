package bridge

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeOk       = "ok"
	outcomeRejected = "rejected"
)

type metrics struct {
	ceremonies *prometheus.CounterVec
	pages      prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		ceremonies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "passkey_wallet",
			Subsystem: "bridge",
			Name:      "ceremonies_total",
			Help:      "Ceremonies relayed to the page, by type and outcome.",
		}, []string{"type", "outcome"}),
		pages: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "passkey_wallet",
			Subsystem: "bridge",
			Name:      "connected_pages",
			Help:      "Ceremony pages currently connected.",
		}),
	}
	reg.MustRegister(m.ceremonies, m.pages)
	return m
}

func (m *metrics) observe(kind string, err error) {
	outcome := outcomeOk
	if err != nil {
		outcome = outcomeRejected
	}
	m.ceremonies.WithLabelValues(kind, outcome).Inc()
}
