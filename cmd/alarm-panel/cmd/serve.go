package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-panel/internal/service/server"
)

func newServeCommand() *cobra.Command {
	opts := new(server.Options)

	cmd := &cobra.Command{
		Use:   "serve [listen-address]",
		Short: "Run the panel server.",
		Long: `Polls the Yale cloud, publishes the panel to Home Assistant when MQTT is
configured and serves the gRPC API.

Only the port of server_addr is used for listening unless a listen address is
given as argument (e.g. :9090, 0.0.0.0:8080). The last known status is kept in
the state file so it survives restarts.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			if len(args) > 0 {
				opts.ListenAddress = args[0]
			}

			opts.ConfigPath = configPath

			return server.Run(ctx, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.StateFile, "state-file", "s", "", "override the status snapshot path")
	cmd.Flags().StringVar(&opts.HTTPAddress, "http-addr", "", "override the metrics and health listen address")

	return cmd
}
