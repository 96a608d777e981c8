package checker

import (
	"context"
	"fmt"
	"io"
	"time"

	panelapi "github.com/oshokin/alarm-panel/internal/api/grpc/panel"
	"github.com/oshokin/alarm-panel/internal/logger"
	"github.com/oshokin/alarm-panel/internal/service/common"
)

// DefaultPollInterval is the delay between two checks.
const DefaultPollInterval = 5 * time.Second

// Options controls the polling behavior.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// ServerAddress provides an optional gRPC server address override.
	ServerAddress string
	// PollInterval defines the interval between checks.
	PollInterval time.Duration
	// Watch keeps polling until canceled; otherwise Run checks once.
	Watch bool
	// Out receives one line per change, optional.
	Out io.Writer
}

// Panel is the part of the client the checker needs.
type Panel interface {
	GetPanel(ctx context.Context) (panelapi.PanelInfo, error)
}

// Run prints the panel state once, or on every change when watching.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "alarm-panel-checker")

	serverAddress, timeout, err := common.ResolveServer(opts.ConfigPath, opts.ServerAddress)
	if err != nil {
		return err
	}

	actor, err := common.DetectActor()
	if err != nil {
		return fmt.Errorf("detect actor: %w", err)
	}

	client, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(timeout), common.WithActor(actor))
	if err != nil {
		return fmt.Errorf("dial server: %w", err)
	}

	defer func() {
		_ = client.Close()
	}()

	if !opts.Watch {
		info, err := client.GetPanel(ctx)
		if err != nil {
			return err
		}

		report(ctx, opts.Out, info)

		return nil
	}

	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	logger.InfoKV(ctx, "Watching panel", "server_address", serverAddress, "interval", interval.String())

	return Watch(ctx, client, interval, opts.Out)
}

// Watch polls p every interval and reports changes until ctx is done.
// Failed checks are logged and retried on the next tick.
func Watch(ctx context.Context, p Panel, interval time.Duration, out io.Writer) error {
	var (
		last panelapi.PanelInfo
		seen bool
	)

	check := func() {
		info, err := p.GetPanel(ctx)
		if err != nil {
			if ctx.Err() == nil {
				logger.ErrorKV(ctx, "Check panel failed", "error", err)
			}

			return
		}

		if seen && sameState(last, info) {
			return
		}

		last, seen = info, true
		report(ctx, out, info)
	}

	check()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Context canceled, exiting")

			return nil
		case <-ticker.C:
			check()
		}
	}
}

func sameState(a, b panelapi.PanelInfo) bool {
	return a.State == b.State && a.Available == b.Available && a.ChangedAt.Equal(b.ChangedAt)
}

func report(ctx context.Context, out io.Writer, info panelapi.PanelInfo) {
	line := common.FormatPanel(info)
	logger.Infof(ctx, "Panel state: %s", line)

	if out != nil {
		_, _ = fmt.Fprintln(out, line)
	}
}
