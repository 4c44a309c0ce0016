package service

import "github.com/prometheus/client_golang/prometheus"

// Validation stages used as the "stage" label.
const (
	StageDeclared = "declared"
	StageContent  = "content"
)

// Metrics holds the vault counters.
type Metrics struct {
	uploadTickets        *prometheus.CounterVec
	validationRejections *prometheus.CounterVec
	downloadTickets      *prometheus.CounterVec
}

// NewMetrics creates the vault counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		uploadTickets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vault_upload_tickets_total",
				Help: "Total number of signed upload URLs issued.",
			},
			[]string{"backend"},
		),
		validationRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vault_validation_rejections_total",
				Help: "Total number of uploads rejected or quarantined by file validation.",
			},
			[]string{"stage", "reason"},
		),
		downloadTickets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vault_download_tickets_total",
				Help: "Total number of signed download URLs issued.",
			},
			[]string{"backend"},
		),
	}
	for _, c := range []prometheus.Collector{m.uploadTickets, m.validationRejections, m.downloadTickets} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) uploadIssued(backend string) {
	m.uploadTickets.WithLabelValues(backend).Inc()
}

func (m *Metrics) downloadIssued(backend string) {
	m.downloadTickets.WithLabelValues(backend).Inc()
}

func (m *Metrics) rejected(stage, reason string) {
	if reason == "" {
		reason = "unknown"
	}
	m.validationRejections.WithLabelValues(stage, reason).Inc()
}
