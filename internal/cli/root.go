package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dvtools/dvbatch/internal/config"
	"github.com/dvtools/dvbatch/internal/logging"
)

// annotationSkipConfig marks commands that must work without a loadable
// config file, such as "config init".
const annotationSkipConfig = "dvbatch/skip-config"

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// rootOptions is shared by every command in the tree. It replaces package
// state: the loaded config and logger live here for the duration of one
// Execute call.
type rootOptions struct {
	configPath string
	debug      bool
	lookupEnv  func(string) (string, bool)

	cfg       *config.Config
	logResult *logging.LogPathResult
}

// NewRootCmd creates the root Cobra command for the dvbatch CLI.
func NewRootCmd(ver string) *cobra.Command {
	return NewRootCmdWithEnv(ver, os.LookupEnv)
}

// NewRootCmdWithEnv creates the root command with an explicit env lookup for
// testability.
func NewRootCmdWithEnv(ver string, lookupEnv func(string) (string, bool)) *cobra.Command {
	cmd, _ := newRootCmd(ver, lookupEnv)
	return cmd
}

func newRootCmd(ver string, lookupEnv func(string) (string, bool)) (*cobra.Command, *rootOptions) {
	opts := &rootOptions{lookupEnv: lookupEnv}

	cmd := &cobra.Command{
		Use:   "dvbatch",
		Short: "Batch maintenance for Dataverse datasets",
		Long: `dvbatch applies one maintenance action to every dataset listed in a PID file,
one dataset at a time, pausing between datasets. Datasets that were actually
changed are written to a timestamped pids_mutated_*.txt file in the output
directory. The run stops at the first failure; re-running is safe because
every action checks the dataset before changing it.`,
		Version:       ver,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.loadConfig(cmd); err != nil {
				return err
			}
			result := setupLogging(cmd, opts)
			opts.logResult = &result
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return cleanupLogging(cmd, opts.logResult)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "",
		"config file (default $DVBATCH_HOME/config.yaml or ~/.dvbatch/config.yaml)")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	cmd.AddCommand(newRunCmd(opts), newPingCmd(opts), newTasksCmd(), newConfigCmd(opts))
	closeLogOnError(cmd, opts)

	return cmd, opts
}

// closeLogOnError wraps every RunE in the tree so a failing command still
// closes the log file. Cobra skips post-run hooks after a RunE error.
func closeLogOnError(cmd *cobra.Command, opts *rootOptions) {
	if run := cmd.RunE; run != nil {
		cmd.RunE = func(c *cobra.Command, args []string) error {
			err := run(c, args)
			if err == nil {
				return nil
			}
			if cerr := cleanupLogging(c, opts.logResult); cerr != nil {
				return errors.Join(err, cerr)
			}
			return err
		}
	}
	for _, sub := range cmd.Commands() {
		closeLogOnError(sub, opts)
	}
}

// loadConfig reads the config file and environment. Commands annotated with
// annotationSkipConfig get defaults when the file cannot be loaded.
func (o *rootOptions) loadConfig(cmd *cobra.Command) error {
	cfg, err := config.LoadWithEnv(o.configPath, o.lookupEnv)
	if err != nil {
		if _, skip := cmd.Annotations[annotationSkipConfig]; skip {
			o.cfg = config.New()
			return nil
		}
		return fmt.Errorf("loading configuration: %w", err)
	}
	o.cfg = cfg
	return nil
}

const rootCmdExample = `  # Create a config file, then edit server_url, api_token and pids_input_file
  dvbatch config init

  # Check connectivity and server version
  dvbatch ping

  # Replace a metadata field value on every listed dataset
  dvbatch run replace-field --block dccd --field dccd-principalInvestigator --from onbekend --to XYZ

  # Remove a role assignment, pausing 3 seconds between datasets
  dvbatch run remove-role --assignee @dataverseAdmin --role contributor --delay 3s

  # Publish datasets listed in another file
  dvbatch run publish --pids-file mutated.txt`

// newConfigCmd creates the config command group with configuration subcommands.
func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Configuration management commands"}
	cmd.AddCommand(
		NewConfigInitCmd(opts), NewConfigValidateCmd(opts), NewConfigShowCmd(opts),
	)
	return cmd
}
