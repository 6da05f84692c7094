package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/sheetshot/internal/cliconfig"
	logpkg "github.com/bft-labs/sheetshot/pkg/log"
	"github.com/bft-labs/sheetshot/pkg/sheetshot"
	"github.com/bft-labs/sheetshot/plugins/configwatcher"
)

const helpDescription = `
Render a spreadsheet range into images and post them to a chat as one album.

Highlights:
  - Splits long sheets into row chunks and renders them in parallel.
  - Retries rate-limited exports with backoff; any other failure aborts the run.
  - Delivers all images in a single album or nothing at all.
  - Configure via file, env, .env or flags; run once or on an interval.
`

var exampleUsage = strings.TrimSpace(`
  sheetshot --spreadsheet-id <id> --gid 0 --telegram-token <token> --chat-id -100123
  sheetshot --config $HOME/.sheetshot/config.toml --every 24h
  sheetshot --spreadsheet-id <id> --dry-run --output-dir ./out
  sheetshot inspect --spreadsheet-id <id> --caption-cell A1
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// cliFlags are the flags that steer the CLI itself rather than a run.
type cliFlags struct {
	cfgPath  string
	envFile  string
	logLevel string
	logJSON  bool
}

// loader rebuilds the configuration with flags > env > .env > file > defaults.
type loader struct {
	base    cliconfig.Config
	cfgFile string
	changed map[string]bool
	client  *http.Client
	logger  logpkg.Logger
}

func newLoader(cmd *cobra.Command, base cliconfig.Config, cfgPath string) *loader {
	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	return &loader{
		base:    base,
		cfgFile: cfgFile,
		changed: changed,
		client:  &http.Client{Timeout: base.HTTPTimeout},
		logger:  logpkg.NewZerologAdapterWithLogger(cliconfig.Logger()),
	}
}

func (l *loader) hasFile() bool {
	return l.cfgFile != "" && cliconfig.FileExists(l.cfgFile)
}

// load applies every source on top of the flag values. When inspect is
// set, missing sheet metadata is read from the workbook.
func (l *loader) load(ctx context.Context, inspect bool) (cliconfig.Config, error) {
	cfg := l.base

	if l.hasFile() {
		fc, err := cliconfig.LoadFileConfig(l.cfgFile)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(&cfg, fc, l.changed); err != nil {
			return cfg, err
		}
	}

	// Environment (SHEETSHOT_*, including .env values) overrides the file
	// but not explicit flags.
	if err := cliconfig.ApplyEnvConfig(&cfg, l.changed); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	if inspect {
		if err := l.resolve(ctx, &cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// resolve reads missing sheet metadata from the workbook.
func (l *loader) resolve(ctx context.Context, cfg *cliconfig.Config) error {
	if !cfg.NeedsInspection() {
		return nil
	}
	insp := cliconfig.NewInspector(*cfg, l.client, l.logger)
	return cliconfig.ResolveSheetInfo(ctx, cfg, insp)
}

// refresh reloads every source and re-reads the workbook, so a scheduled
// run follows rows added since the previous one.
func (l *loader) refresh(ctx context.Context, _ sheetshot.Config) (sheetshot.Config, error) {
	cfg, err := l.load(ctx, true)
	if err != nil {
		return sheetshot.Config{}, err
	}
	return cfg.ToLibrary(), nil
}

func setupLogging(f cliFlags) zerolog.Logger {
	log := cliconfig.NewLogger(os.Stderr, f.logLevel, f.logJSON)
	cliconfig.SetLogger(log)
	return log
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var f cliFlags

	runE := func(cmd *cobra.Command, args []string) error {
		log := setupLogging(f)
		if err := cliconfig.LoadDotEnv(f.envFile); err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		l := newLoader(cmd, cfg, f.cfgPath)
		runCfg, err := l.load(ctx, false)
		if err != nil {
			return err
		}
		// Sheet metadata left to the workbook is re-read before every
		// scheduled run.
		detect := runCfg.NeedsInspection()
		if err := l.resolve(ctx, &runCfg); err != nil {
			return err
		}

		// Log configuration (masking secrets)
		log.Info().Interface("config", runCfg.Masked()).Msg("configuration")

		return run(ctx, log, l, runCfg, detect)
	}

	root := &cobra.Command{
		Use:           "sheetshot",
		Short:         "Render a spreadsheet range into images and deliver them as one album",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runE,
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Render and deliver once, or on an interval with --every",
		RunE:  runE,
	}
	root.AddCommand(runCmd)

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the sheet name, last occupied row and caption sheetshot would use",
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(f)
			if err := cliconfig.LoadDotEnv(f.envFile); err != nil {
				return err
			}
			// Inspection never delivers.
			base := cfg
			base.DryRun = true

			l := newLoader(cmd, base, f.cfgPath)
			l.changed["dry-run"] = true
			runCfg, err := l.load(cmd.Context(), true)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sheet:    %s\nlast row: %d\ncaption:  %s\n",
				runCfg.SheetName, runCfg.LastRow, runCfg.Caption)
			return nil
		},
	}
	root.AddCommand(inspectCmd)

	pf := root.PersistentFlags()
	pf.StringVar(&f.cfgPath, "config", "", "path to config file (default: $HOME/.sheetshot/config.toml)")
	pf.StringVar(&f.envFile, "env-file", "", "path to a .env file (default: ./.env when present)")
	pf.StringVar(&f.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	pf.BoolVar(&f.logJSON, "log-json", false, "emit JSON logs instead of console output")

	pf.StringVar(&cfg.SpreadsheetID, "spreadsheet-id", cfg.SpreadsheetID, "spreadsheet document id")
	pf.StringVar(&cfg.GID, "gid", cfg.GID, "sheet tab id used for export")
	pf.StringVar(&cfg.SheetName, "sheet-name", cfg.SheetName, "sheet tab name used for inspection and image names")
	pf.StringVar(&cfg.Columns, "columns", cfg.Columns, "column span to export, e.g. A:K")
	pf.IntVar(&cfg.LastRow, "last-row", cfg.LastRow, "last row to render (0 = detect from the workbook)")
	pf.StringVar(&cfg.Caption, "caption", cfg.Caption, "caption attached to the first image")
	pf.StringVar(&cfg.CaptionCell, "caption-cell", cfg.CaptionCell, "cell to read the caption from when --caption is empty")
	pf.StringVar(&cfg.AccessToken, "access-token", cfg.AccessToken, "bearer token for the export endpoint")

	// Run flags are persistent so that "sheetshot run" sees them too.
	flags := root.PersistentFlags()
	flags.IntVar(&cfg.MaxRowsPerChunk, "max-rows", cfg.MaxRowsPerChunk, "maximum rows per image")
	flags.IntVar(&cfg.MergeThreshold, "merge-threshold", cfg.MergeThreshold, "fold a final chunk of fewer than this many rows into the previous one")
	flags.BoolVar(&cfg.NoMerge, "no-merge", cfg.NoMerge, "never fold the final chunk")
	flags.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "chunks rendered in parallel")

	flags.IntVar(&cfg.MaxAttempts, "max-attempts", cfg.MaxAttempts, "export attempts per chunk when rate limited (at most 5)")
	flags.StringVar(&cfg.Backoff, "backoff", cfg.Backoff, "retry delay strategy: jitter, linear, exponential")
	flags.DurationVar(&cfg.BackoffBase, "backoff-base", cfg.BackoffBase, "base retry delay")
	flags.DurationVar(&cfg.BackoffJitter, "backoff-jitter", cfg.BackoffJitter, "random extra delay for the jitter strategy")
	flags.DurationVar(&cfg.BackoffMax, "backoff-max", cfg.BackoffMax, "upper bound of a single retry delay")

	flags.DurationVar(&cfg.CallTimeout, "call-timeout", cfg.CallTimeout, "timeout of one export attempt or conversion")
	flags.DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "HTTP client timeout")

	flags.StringVar(&cfg.Converter, "converter", cfg.Converter, "conversion backend: exec (pdftoppm + convert) or pdfium")
	flags.IntVar(&cfg.DPI, "dpi", cfg.DPI, "render resolution")
	flags.StringVar(&cfg.StagingURL, "staging-url", cfg.StagingURL, "staging bucket URL (mem://, file://, s3://, gs://)")
	flags.BoolVar(&cfg.KeepStaging, "keep-staging", cfg.KeepStaging, "keep staged documents and images for inspection (debug)")

	flags.StringVar(&cfg.TelegramToken, "telegram-token", cfg.TelegramToken, "bot token used for delivery")
	flags.StringVar(&cfg.ChatID, "chat-id", cfg.ChatID, "chat receiving the album")

	pf.StringVar(&cfg.ExportURL, "export-url", cfg.ExportURL, "export endpoint base URL")
	flags.StringVar(&cfg.TelegramURL, "telegram-url", cfg.TelegramURL, "Bot API base URL")
	if err := pf.MarkHidden("export-url"); err != nil {
		logger := cliconfig.Logger()
		logger.Info().Err(err).Msg("failed to hide export-url flag")
	}
	if err := pf.MarkHidden("telegram-url"); err != nil {
		logger := cliconfig.Logger()
		logger.Info().Err(err).Msg("failed to hide telegram-url flag")
	}

	flags.DurationVar(&cfg.Every, "every", cfg.Every, "run on this interval instead of once")
	flags.DurationVar(&cfg.SweepAge, "sweep-age", cfg.SweepAge, "remove staged files older than this in scheduled mode")
	flags.BoolVar(&cfg.DryRun, "dry-run", cfg.DryRun, "render without delivering; write images to --output-dir")
	flags.StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "directory receiving dry-run images")

	if err := root.Execute(); err != nil {
		logger := cliconfig.Logger()
		logger.Error().Err(err).Msg("sheetshot")
		os.Exit(1)
	}
}

func run(ctx context.Context, log zerolog.Logger, l *loader, cfg cliconfig.Config, detect bool) error {
	libCfg := cfg.ToLibrary()
	scheduled := libCfg.Every > 0

	opts := []sheetshot.Option{
		sheetshot.WithLogger(logpkg.NewZerologAdapterWithLogger(log)),
		sheetshot.WithHTTPClient(l.client),
	}
	if scheduled {
		opts = append(opts, sheetshot.WithSweeper(sheetshot.SweepConfig{Enabled: true, MaxAge: libCfg.SweepAge}))
		if detect {
			opts = append(opts, sheetshot.WithRefresh(l.refresh))
		}
		if l.hasFile() {
			opts = append(opts, configwatcher.WithConfigWatcher(configwatcher.Config{
				Paths: []string{l.cfgFile},
				Load: func(ctx context.Context) (sheetshot.Config, error) {
					return l.refresh(ctx, sheetshot.Config{})
				},
			}))
		}
	}

	s, err := sheetshot.New(libCfg, opts...)
	if err != nil {
		return fmt.Errorf("create sheetshot: %w", err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			log.Warn().Err(err).Msg("close")
		}
	}()

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	if !scheduled {
		go func() {
			select {
			case <-sigCh:
				log.Info().Msg("received signal, cancelling run...")
				cancel()
			case <-ctx.Done():
			}
		}()
		report, err := s.Run(ctx)
		if err != nil {
			return err
		}
		log.Info().
			Str("run_id", report.RunID).
			Int("images", report.Images).
			Bool("delivered", report.Delivered).
			Dur("took", report.Duration).
			Msg("run finished")
		return nil
	}

	if err := s.Start(ctx); err != nil {
		return fmt.Errorf("start sheetshot: %w", err)
	}

	// Detect a crashed scheduler.
	doneCh := make(chan struct{})
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				status := s.Status()
				if status == sheetshot.StateStopped || status == sheetshot.StateCrashed {
					close(doneCh)
					return
				}
			}
		}
	}()

	select {
	case <-sigCh:
		log.Info().Msg("received signal, stopping...")
	case <-doneCh:
		if s.Status() == sheetshot.StateCrashed {
			return errors.New("scheduler crashed")
		}
	}

	// Graceful shutdown
	if err := s.Stop(); err != nil && !errors.Is(err, sheetshot.ErrNotRunning) {
		return fmt.Errorf("stop sheetshot: %w", err)
	}
	return nil
}
