package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewConfigValidateCmd creates the config validate command for validating configuration.
func NewConfigValidateCmd(opts *rootOptions) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		Long: `Loads the configuration (file plus DVBATCH_* environment overrides) and checks
that everything a batch run needs is present:
- dataverse.server_url is an absolute http(s) URL
- dataverse.api_token is set
- files.pids_input_file and files.output_dir are set
- batch.delay, if set, is not negative
- archive settings are complete when archive.enabled is true`,
		Example: `  # Validate current configuration
  dvbatch config validate

  # Validate and show detailed information
  dvbatch config validate --verbose`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigValidate(cmd, opts, verbose)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show detailed validation information")

	return cmd
}

// runConfigValidate executes the configuration validation logic.
func runConfigValidate(cmd *cobra.Command, opts *rootOptions, verbose bool) error {
	cfg := opts.cfg
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	cmd.Printf("Configuration is valid\n")

	if verbose {
		cmd.Println()
		cmd.Println("Configuration details:")
		cmd.Printf("  Server URL: %s\n", cfg.Dataverse.ServerURL)
		cmd.Printf("  Timeout: %s\n", cfg.Dataverse.Timeout)
		cmd.Printf("  PIDs input file: %s\n", cfg.Files.PIDsInputFile)
		cmd.Printf("  Output dir: %s\n", cfg.Files.OutputDir)
		if cfg.Batch.Delay != nil {
			cmd.Printf("  Delay: %s\n", *cfg.Batch.Delay)
		} else {
			cmd.Printf("  Delay: task default\n")
		}
		cmd.Printf("  Logging level: %s\n", cfg.Logging.Level)
		cmd.Printf("  Log file: %s\n", cfg.Logging.File)
		cmd.Printf("  Tracing enabled: %t\n", cfg.Tracing.Enabled)
		cmd.Printf("  Archive enabled: %t\n", cfg.Archive.Enabled)
	}

	return nil
}

// NewConfigShowCmd prints the effective configuration with secrets masked.
func NewConfigShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long:  "Prints the configuration after defaults, the config file and environment overrides are applied. Secrets are masked.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			redacted := opts.cfg.Redacted()
			out, err := redacted.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
