package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	domain "github.com/oshokin/alarm-panel/internal/domain/alarm"
)

const namespace = "alarm_panel"

// Command results.
const (
	ResultOK          = "ok"
	ResultInvalidCode = "invalid_code"
	ResultVendorError = "vendor_error"
	ResultRejected    = "rejected"
	ResultError       = "error"
)

// Metrics holds the collectors of one process.
type Metrics struct {
	// registry owns every collector below.
	registry *prometheus.Registry

	commands        *prometheus.CounterVec
	state           *prometheus.GaugeVec
	available       prometheus.Gauge
	refreshes       prometheus.Counter
	refreshFailures prometheus.Counter
}

// New creates and registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Panel commands by command and result.",
		}, []string{"command", "result"}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "state",
			Help:      "1 for the current panel state, 0 otherwise.",
		}, []string{"state"}),
		available: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "available",
			Help:      "1 when the panel state is known and fresh.",
		}),
		refreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Status refresh attempts.",
		}),
		refreshFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_failures_total",
			Help:      "Failed status refresh attempts.",
		}),
	}

	m.registry.MustRegister(
		m.commands,
		m.state,
		m.available,
		m.refreshes,
		m.refreshFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveCommand counts one command outcome.
func (m *Metrics) ObserveCommand(command string, err error) {
	m.commands.WithLabelValues(command, Result(err)).Inc()
}

// ObserveRefresh counts one refresh attempt.
func (m *Metrics) ObserveRefresh(err error) {
	m.refreshes.Inc()

	if err != nil {
		m.refreshFailures.Inc()
	}
}

// SetPanel records the current state and availability of p.
func (m *Metrics) SetPanel(p domain.Panel) {
	current, known := p.State()

	for _, s := range []domain.State{domain.StateDisarmed, domain.StateArmedHome, domain.StateArmedAway} {
		value := 0.0
		if known && s == current {
			value = 1
		}

		m.state.WithLabelValues(s.String()).Set(value)
	}

	if p.Available() {
		m.available.Set(1)
	} else {
		m.available.Set(0)
	}
}

// Result classifies a command error into a label value.
func Result(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, domain.ErrInvalidCode):
		return ResultInvalidCode
	case domain.IsCommandError(err):
		return ResultVendorError
	case errors.Is(err, domain.ErrCommandRejected):
		return ResultRejected
	default:
		return ResultError
	}
}

// PanelGauge keeps the state gauges of one panel current.
type PanelGauge struct {
	metrics *Metrics
	panel   domain.Panel
}

// NewPanelGauge binds p to m.
func NewPanelGauge(m *Metrics, p domain.Panel) *PanelGauge {
	return &PanelGauge{metrics: m, panel: p}
}

// PublishState updates the gauges after a command.
func (g *PanelGauge) PublishState(context.Context) error {
	g.metrics.SetPanel(g.panel)

	return nil
}

// OnStatus updates the gauges after a refresh.
func (g *PanelGauge) OnStatus(context.Context, domain.Status) {
	g.metrics.SetPanel(g.panel)
}
