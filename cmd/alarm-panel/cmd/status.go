package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-panel/internal/service/checker"
)

func newStatusCommand() *cobra.Command {
	opts := new(checker.Options)

	cmd := &cobra.Command{
		Use:   "status [server-address]",
		Short: "Print the panel state.",
		Long: `Prints the panel state reported by the server. With --watch, keeps polling
and prints a line whenever the state or availability changes.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			if len(args) > 0 {
				opts.ServerAddress = args[0]
			}

			opts.ConfigPath = configPath
			opts.Out = cmd.OutOrStdout()

			return checker.Run(ctx, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "keep polling and print changes")
	cmd.Flags().DurationVarP(&opts.PollInterval, "interval", "i", checker.DefaultPollInterval, "polling interval with --watch")

	return cmd
}
