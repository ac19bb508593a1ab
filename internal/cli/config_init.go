package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dvtools/dvbatch/internal/config"
)

// NewConfigInitCmd creates the config init command for initializing configuration.
func NewConfigInitCmd(opts *rootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration file with default values",
		Long: `Creates a commented configuration file. Without --config the file is written
to $DVBATCH_HOME/config.yaml, or ~/.dvbatch/config.yaml when DVBATCH_HOME is unset.`,
		Example: `  # Create the default configuration file
  dvbatch config init

  # Create configuration, overwriting existing
  dvbatch config init --force

  # Write to a specific location
  dvbatch --config ./work/config.yaml config init`,
		Annotations: map[string]string{annotationSkipConfig: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := opts.configPath
			if path == "" {
				p, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				path = p
			}

			if err := config.WriteDefault(path, force); err != nil {
				if errors.Is(err, config.ErrConfigExists) {
					return errors.New("configuration file already exists, use --force to overwrite")
				}
				return fmt.Errorf("failed to save configuration: %w", err)
			}

			cmd.Printf("Configuration initialized successfully\n")
			cmd.Printf("Configuration file: %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing configuration file")

	return cmd
}
