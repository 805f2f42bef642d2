package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "checkin"

// Metrics holds the service counters. A nil *Metrics is valid and records
// nothing, so packages can be constructed without a registry in tests.
type Metrics struct {
	Checkins            *prometheus.CounterVec
	Applications        *prometheus.CounterVec
	ImportedTickets     prometheus.Counter
	MailJobsEnqueued    prometheus.Counter
	MailEnqueueErrors   prometheus.Counter
	StaffLoginFailures  prometheus.Counter
	LiveDashboardClient prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them on reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		Checkins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "checkins_total",
				Help:      "Check-in attempts by result and entry type",
			},
			[]string{"result", "entry_type"},
		),
		Applications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "applications_total",
				Help:      "Public applications by result",
			},
			[]string{"result"},
		),
		ImportedTickets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imported_participations_total",
			Help:      "Participations created by bulk import",
		}),
		MailJobsEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mail_jobs_enqueued_total",
			Help:      "Mail jobs written to the queue",
		}),
		MailEnqueueErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mail_enqueue_errors_total",
			Help:      "Failed attempts to write mail jobs",
		}),
		StaffLoginFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "staff_login_failures_total",
			Help:      "Rejected staff login attempts",
		}),
		LiveDashboardClient: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_dashboard_clients",
			Help:      "Connected live check-in dashboard streams",
		}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.Checkins,
		m.Applications,
		m.ImportedTickets,
		m.MailJobsEnqueued,
		m.MailEnqueueErrors,
		m.StaffLoginFailures,
		m.LiveDashboardClient,
	)
	return m
}

// Handler exposes the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveCheckin(result, entryType string) {
	if m == nil {
		return
	}
	m.Checkins.WithLabelValues(result, entryType).Inc()
}

func (m *Metrics) ObserveApplication(result string) {
	if m == nil {
		return
	}
	m.Applications.WithLabelValues(result).Inc()
}

func (m *Metrics) AddImported(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ImportedTickets.Add(float64(n))
}

func (m *Metrics) AddMailEnqueued(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.MailJobsEnqueued.Add(float64(n))
}

func (m *Metrics) IncMailEnqueueError() {
	if m == nil {
		return
	}
	m.MailEnqueueErrors.Inc()
}

func (m *Metrics) IncStaffLoginFailure() {
	if m == nil {
		return
	}
	m.StaffLoginFailures.Inc()
}

func (m *Metrics) DashboardConnected() {
	if m == nil {
		return
	}
	m.LiveDashboardClient.Inc()
}

func (m *Metrics) DashboardDisconnected() {
	if m == nil {
		return
	}
	m.LiveDashboardClient.Dec()
}
