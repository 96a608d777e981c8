package client

import (
	"context"
	"fmt"
	"io"

	"github.com/oshokin/alarm-panel/internal/logger"
	"github.com/oshokin/alarm-panel/internal/service/common"
)

// Options configures one command.
type Options struct {
	// ConfigPath to YAML settings file, read only when ServerAddress is empty.
	ConfigPath string
	// ServerAddress overrides the server address from settings.
	ServerAddress string
	// Command is disarm, arm_home or arm_away.
	Command string
	// Code is sent with the command; nil sends none.
	Code *string
	// Out receives the resulting panel line, optional.
	Out io.Writer
}

// Run sends the command once and prints the resulting panel state.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "alarm-panel-client")

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
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	logger.InfoKV(ctx, "Sending command", "server_address", serverAddress, "command", opts.Command, "actor", actor)

	info, err := client.Command(ctx, opts.Command, opts.Code)
	if err != nil {
		return err
	}

	logger.Infof(ctx, "Panel updated: %s", common.FormatPanel(info))

	if opts.Out != nil {
		_, _ = fmt.Fprintln(opts.Out, common.FormatPanel(info))
	}

	return nil
}
