package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dvtools/dvbatch/internal/dataverse"
	"github.com/dvtools/dvbatch/internal/logging"
)

// newPingCmd checks that the configured server answers and is recent enough.
func newPingCmd(opts *rootOptions) *cobra.Command {
	var (
		server     string
		minVersion string
	)

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Check connectivity and the Dataverse server version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logging.FromContext(ctx)

			cfg := opts.cfg.Clone()
			if cmd.Flags().Changed("server") {
				cfg.Dataverse.ServerURL = server
			}
			if err := cfg.ValidateConnection(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			client, err := dataverse.NewClient(dataverse.Config{
				ServerURL: cfg.Dataverse.ServerURL,
				APIToken:  cfg.Dataverse.APIToken,
				Timeout:   cfg.Dataverse.Timeout,
			})
			if err != nil {
				return err
			}

			info, err := client.ServerVersion(ctx)
			if err != nil {
				return err
			}
			v, ok, err := dataverse.CheckServerVersion(info.Version, minVersion)
			if err != nil {
				return err
			}
			log.Debug().Ctx(ctx).Str("version", v.String()).Str("build", info.Build).Msg("server version")

			cmd.Printf("Connected to %s: Dataverse %s", cfg.Dataverse.ServerURL, info.Version)
			if info.Build != "" {
				cmd.Printf(" (build %s)", info.Build)
			}
			cmd.Println()
			if !ok {
				return fmt.Errorf("server version %s is older than the supported minimum %s", v, minVersion)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "Dataverse server URL (overrides dataverse.server_url)")
	cmd.Flags().StringVar(&minVersion, "min-version", dataverse.MinServerVersion, "minimum supported server version")

	return cmd
}
