package checker

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	panelapi "github.com/oshokin/alarm-panel/internal/api/grpc/panel"
)

// scriptedPanel answers GetPanel from a list; the last answer repeats.
type scriptedPanel struct {
	mu      sync.Mutex
	answers []panelapi.PanelInfo
	errs    []error
	calls   int
}

func (s *scriptedPanel) GetPanel(context.Context) (panelapi.PanelInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := min(s.calls, len(s.answers)-1)
	s.calls++

	if i < len(s.errs) && s.errs[i] != nil {
		return panelapi.PanelInfo{}, s.errs[i]
	}

	return s.answers[i], nil
}

// TestWatch_ReportsChangesOnly prints a line per distinct state.
func TestWatch_ReportsChangesOnly(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		disarmed := panelapi.PanelInfo{Name: "Hallway", State: "disarmed", Available: true}
		armed := panelapi.PanelInfo{Name: "Hallway", State: "armed_away", Available: true}

		panel := &scriptedPanel{
			answers: []panelapi.PanelInfo{disarmed, disarmed, {}, armed, armed},
			errs:    []error{nil, nil, errors.New("unavailable"), nil, nil},
		}

		var out bytes.Buffer

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)

		go func() { done <- Watch(ctx, panel, time.Second, &out) }()

		time.Sleep(4500 * time.Millisecond)
		synctest.Wait()
		cancel()
		require.NoError(t, <-done)

		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		require.Len(t, lines, 2)
		require.Contains(t, lines[0], "disarmed")
		require.Contains(t, lines[1], "armed_away")
	})
}
