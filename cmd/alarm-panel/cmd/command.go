package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-panel/internal/service/client"
)

var errInvalidLogLevel = errors.New("invalid log level")

func newPanelCommand(use, short, command string) *cobra.Command {
	var code string

	opts := &client.Options{Command: command}

	cmd := &cobra.Command{
		Use:   use + " [server-address]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			if len(args) > 0 {
				opts.ServerAddress = args[0]
			}

			opts.ConfigPath = configPath
			opts.Out = cmd.OutOrStdout()
			opts.Code = nil

			if cmd.Flags().Changed("code") {
				opts.Code = &code
			}

			return client.Run(ctx, opts)
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "panel code")

	return cmd
}
