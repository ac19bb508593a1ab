package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dvtools/dvbatch/internal/action"
	"github.com/dvtools/dvbatch/internal/archive"
	"github.com/dvtools/dvbatch/internal/config"
	"github.com/dvtools/dvbatch/internal/dataverse"
	"github.com/dvtools/dvbatch/internal/engine/batch"
	"github.com/dvtools/dvbatch/internal/logging"
	"github.com/dvtools/dvbatch/internal/mutationlog"
	"github.com/dvtools/dvbatch/internal/observability"
	"github.com/dvtools/dvbatch/internal/worklist"
	"github.com/dvtools/dvbatch/pkg/version"
)

// runFlags are the overrides shared by every "run" subcommand.
type runFlags struct {
	pidsFile  string
	outputDir string
	server    string
	delay     time.Duration
	noArchive bool
}

// apply returns a copy of cfg with explicitly set flags applied.
func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) *config.Config {
	out := cfg.Clone()

	if cmd.Flags().Changed("pids-file") {
		out.Files.PIDsInputFile = f.pidsFile
	}
	if cmd.Flags().Changed("output-dir") {
		out.Files.OutputDir = f.outputDir
	}
	if cmd.Flags().Changed("server") {
		out.Dataverse.ServerURL = f.server
	}
	if cmd.Flags().Changed("delay") {
		d := f.delay
		out.Batch.Delay = &d
	}
	if f.noArchive {
		out.Archive.Enabled = false
	}
	return out
}

// newRunCmd creates the run command group, one subcommand per task.
func newRunCmd(opts *rootOptions) *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a task over every dataset in the PID file",
		Long: `Runs one task over the datasets listed in the PID file, in file order.

Each dataset is inspected first and only changed when needed. Changed datasets
are appended to pids_mutated_YYYYMMDD_HHMMSS.txt in the output directory as
soon as they are changed. The first error stops the run (exit code 2); the
mutation log written so far is kept.`,
	}

	cmd.PersistentFlags().StringVar(&flags.pidsFile, "pids-file", "", "file with one dataset PID per line (overrides files.pids_input_file)")
	cmd.PersistentFlags().StringVar(&flags.outputDir, "output-dir", "", "directory for the mutation log (overrides files.output_dir)")
	cmd.PersistentFlags().StringVar(&flags.server, "server", "", "Dataverse server URL (overrides dataverse.server_url)")
	cmd.PersistentFlags().DurationVar(&flags.delay, "delay", 0, "pause between datasets (default: task specific, publish 5s, others 1.5s)")
	cmd.PersistentFlags().BoolVar(&flags.noArchive, "no-archive", false, "do not upload the mutation log even if archive is enabled")

	binders := map[string]func(*cobra.Command, *action.Params){
		action.NameReplaceField: bindReplaceField,
		action.NameRemoveRole:   bindRemoveRole,
		action.NamePublish:      bindPublish,
	}
	for _, task := range action.Tasks() {
		cmd.AddCommand(newTaskCmd(opts, flags, task, binders[task.Name]))
	}
	return cmd
}

// newTaskCmd builds a run subcommand for task. bind, if set, adds the
// task's own flags and fills Params from them.
func newTaskCmd(
	opts *rootOptions,
	flags *runFlags,
	task action.Task,
	bind func(cmd *cobra.Command, p *action.Params),
) *cobra.Command {
	var params action.Params
	cmd := &cobra.Command{
		Use:   task.Name,
		Short: fmt.Sprintf("%s (default delay %s)", task.Description, task.DefaultDelay),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTask(cmd, opts, flags, task, params)
		},
	}
	if bind != nil {
		bind(cmd, &params)
	}
	return cmd
}

func bindReplaceField(cmd *cobra.Command, p *action.Params) {
	cmd.Flags().StringVar(&p.Block, "block", "", "metadata block name, e.g. citation")
	cmd.Flags().StringVar(&p.FieldType, "field", "", "field type name within the block")
	cmd.Flags().StringVar(&p.From, "from", "", "value to replace")
	cmd.Flags().StringVar(&p.To, "to", "", "replacement value")
	for _, f := range []string{"block", "field", "from", "to"} {
		_ = cmd.MarkFlagRequired(f)
	}
	cmd.Example = `  dvbatch run replace-field --block dccd --field dccd-principalInvestigator --from onbekend --to XYZ`
}

func bindRemoveRole(cmd *cobra.Command, p *action.Params) {
	cmd.Flags().StringVar(&p.Assignee, "assignee", "", "role assignee identifier, e.g. @dataverseAdmin")
	cmd.Flags().StringVar(&p.RoleAlias, "role", "", "role alias, e.g. contributor")
	_ = cmd.MarkFlagRequired("assignee")
	_ = cmd.MarkFlagRequired("role")
	cmd.Example = `  dvbatch run remove-role --assignee @dataverseAdmin --role contributor`
}

func bindPublish(cmd *cobra.Command, p *action.Params) {
	cmd.Flags().StringVar(&p.VersionBump, "type", dataverse.VersionMajor, "version increase: major or minor")
}

// runTask executes one batch run and renders its summary.
func runTask(cmd *cobra.Command, opts *rootOptions, flags *runFlags, task action.Task, params action.Params) error {
	ctx := cmd.Context()
	log := logging.FromContext(ctx)

	cfg := flags.apply(cmd, opts.cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	delay := task.DefaultDelay
	if cfg.Batch.Delay != nil {
		delay = *cfg.Batch.Delay
	}

	shutdown, err := observability.InitTracer(ctx, tracerConfig(cfg), *log)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			log.Warn().Ctx(ctx).Err(err).Msg("tracer shutdown failed")
		}
	}()

	client, err := dataverse.NewClient(dataverse.Config{
		ServerURL: cfg.Dataverse.ServerURL,
		APIToken:  cfg.Dataverse.APIToken,
		Timeout:   cfg.Dataverse.Timeout,
	})
	if err != nil {
		return err
	}

	act, err := task.Build(client, params)
	if err != nil {
		return err
	}

	pids, err := worklist.Load(cfg.Files.PIDsInputFile)
	if err != nil {
		return err
	}

	if err := config.EnsureOutputDir(cfg.Files); err != nil {
		return err
	}
	started := time.Now()
	sink, err := mutationlog.Create(cfg.Files.OutputDir, started)
	if err != nil {
		return err
	}
	defer func() {
		if err := sink.Close(); err != nil {
			log.Warn().Ctx(ctx).Err(err).Str("path", sink.Path()).Msg("closing mutation log failed")
		}
	}()

	engine, err := batch.NewEngine(act, sink,
		batch.WithDelay(delay),
		batch.WithProgressCallback(newProgressLogger(ctx)),
	)
	if err != nil {
		return err
	}

	log.Info().Ctx(ctx).
		Str("task", task.Name).
		Str("server", cfg.Dataverse.ServerURL).
		Str("mutation_log", sink.Path()).
		Dur("delay", delay).
		Msg("start task")

	result, runErr := engine.Run(ctx, pids)
	if result == nil {
		return runErr
	}

	summary := RunSummary{
		Task:      task.Name,
		State:     result.State,
		Total:     result.Total,
		Processed: result.Processed,
		Mutated:   len(result.Mutated),
		Duration:  time.Since(started),
		LogPath:   sink.Path(),
	}
	if result.Abort != nil {
		summary.AbortPID = result.Abort.PID
		summary.AbortIndex = result.Abort.Index
		summary.AbortErr = result.Abort.Err
	}

	var archiveErr error
	if cfg.Archive.Enabled {
		if err := sink.Close(); err != nil {
			log.Warn().Ctx(ctx).Err(err).Msg("closing mutation log before archive failed")
		}
		info, err := archiveLog(ctx, cfg.Archive, sink.Path())
		if err != nil {
			log.Error().Ctx(ctx).Err(err).Msg("archiving mutation log failed")
			archiveErr = err
		} else {
			summary.ArchiveKey = info.Bucket + "/" + info.Key
		}
	}

	log.Info().Ctx(ctx).
		Str("task", task.Name).
		Dur("duration", summary.Duration).
		Msg("done with task")

	if err := RenderRunSummary(cmd.OutOrStdout(), summary); err != nil {
		return err
	}

	if runErr != nil {
		return runErr
	}
	return archiveErr
}

func tracerConfig(cfg *config.Config) observability.TracerConfig {
	return observability.TracerConfig{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: version.GetVersion(),
		Endpoint:       cfg.Tracing.Endpoint,
	}
}

func archiveLog(ctx context.Context, ac config.ArchiveConfig, path string) (archive.Info, error) {
	uploader, err := archive.NewUploader(archive.Config{
		Endpoint:  ac.Endpoint,
		AccessKey: ac.AccessKey,
		SecretKey: ac.SecretKey,
		Bucket:    ac.Bucket,
		Region:    ac.Region,
		UseSSL:    ac.UseSSL,
		Prefix:    ac.Prefix,
	})
	if err != nil {
		return archive.Info{}, err
	}
	return uploader.Upload(ctx, path)
}

// newProgressLogger turns engine events into log lines.
func newProgressLogger(ctx context.Context) batch.ProgressCallback {
	log := logging.FromContext(ctx)
	return func(ev batch.Event) {
		switch ev.Kind {
		case batch.EventRunStarted:
			log.Info().Ctx(ctx).Str("action", ev.Action).Int("datasets", ev.Total).Msg("start batch processing")
		case batch.EventItemStarted:
			log.Info().Ctx(ctx).
				Str("pid", ev.PID).
				Str("progress", fmt.Sprintf("%d of %d", ev.Index+1, ev.Total)).
				Msg("processing dataset")
		case batch.EventItemFinished:
			if ev.Err != nil {
				log.Error().Ctx(ctx).Err(unwrapAbort(ev.Err)).Str("pid", ev.PID).Msg("stop processing because of an error")
				return
			}
			log.Debug().Ctx(ctx).Str("pid", ev.PID).Bool("mutated", ev.Mutated).Msg("dataset done")
		case batch.EventDelay:
			log.Info().Ctx(ctx).Dur("delay", ev.Delay).Msg("sleeping")
		case batch.EventRunFinished:
			log.Info().Ctx(ctx).
				Str("state", ev.State).
				Int("datasets", ev.Total).
				Int("processed", ev.Progress.ProcessedItems).
				Int("mutated", ev.Progress.MutatedItems).
				Dur("elapsed", ev.Progress.ElapsedTime).
				Msg("done processing datasets")
		}
	}
}

func unwrapAbort(err error) error {
	var abort *batch.AbortError
	if errors.As(err, &abort) {
		return abort.Err
	}
	return err
}
