package httpapi

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type availability struct {
	ok atomic.Bool
}

func (a *availability) Available() bool { return a.ok.Load() }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	return rec
}

// TestHandler_Probes follows panel availability on readiness only.
func TestHandler_Probes(t *testing.T) {
	t.Parallel()

	panel := new(availability)
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("metrics")) //nolint:errcheck // Test handler.
	})

	h := NewHandler(metrics, panel)

	require.Equal(t, http.StatusOK, get(t, h, LivePath).Code)
	require.Equal(t, http.StatusServiceUnavailable, get(t, h, ReadyPath).Code)

	panel.ok.Store(true)
	require.Equal(t, http.StatusOK, get(t, h, ReadyPath).Code)

	rec := get(t, h, MetricsPath)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "metrics", rec.Body.String())
}

// TestNewServer sets the address.
func TestNewServer(t *testing.T) {
	t.Parallel()

	srv := NewServer(":9100", http.NotFoundHandler())
	require.Equal(t, ":9100", srv.Addr)
	require.NotZero(t, srv.ReadHeaderTimeout)
}
