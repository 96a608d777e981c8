package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
)

// Paths served by the handler.
const (
	MetricsPath = "/metrics"
	LivePath    = "/live"
	ReadyPath   = "/ready"
)

// goroutineThreshold fails liveness when exceeded.
const goroutineThreshold = 1000

var errPanelUnavailable = errors.New("panel state is not available")

// Availability reports whether the panel state is known and fresh.
type Availability interface {
	Available() bool
}

// NewHandler routes metrics and health probes.
func NewHandler(metrics http.Handler, panel Availability) http.Handler {
	health := healthcheck.NewHandler()
	health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(goroutineThreshold))
	health.AddReadinessCheck("panel", PanelCheck(panel))

	mux := http.NewServeMux()
	mux.Handle(MetricsPath, metrics)
	mux.HandleFunc(LivePath, health.LiveEndpoint)
	mux.HandleFunc(ReadyPath, health.ReadyEndpoint)

	return mux
}

// PanelCheck fails while the panel is unavailable.
func PanelCheck(panel Availability) healthcheck.Check {
	return func() error {
		if !panel.Available() {
			return errPanelUnavailable
		}

		return nil
	}
}

// NewServer returns an HTTP server for handler on addr.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
