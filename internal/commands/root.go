package commands

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cleared-dev/payengine/internal/buildinfo"
	"github.com/cleared-dev/payengine/internal/config"
	"github.com/cleared-dev/payengine/internal/ledger"
	"github.com/cleared-dev/payengine/internal/runner"
	"github.com/cleared-dev/payengine/internal/snapshot"
	"github.com/cleared-dev/payengine/internal/source"
	"github.com/cleared-dev/payengine/internal/warnlog"
)

type rootOptions struct {
	configPath   string
	inputFormat  string
	outputFormat string
	lockPolicy   string
	precision    int32
	logLevel     string
	logFormat    string
	warningsLog  string
}

// NewRootCommand creates the payengine CLI command.
func NewRootCommand() *cobra.Command {
	var opts rootOptions

	rootCmd := &cobra.Command{
		Use:   "payengine [flags] <transactions-file>",
		Short: "Fold a transaction stream into client account balances",
		Long: "Reads deposits, withdrawals, disputes, resolves and chargebacks in order\n" +
			"and writes the final state of every client account to stdout.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		Args:    cobra.ExactArgs(1),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return run(cmd, cfg, args[0])
		},
	}

	f := rootCmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "path to payengine.yaml")
	f.StringVar(&opts.inputFormat, "input-format", "csv", "input format")
	f.StringVar(&opts.outputFormat, "output-format", "csv", "output format (csv, json)")
	f.StringVar(&opts.lockPolicy, "lock-policy", string(ledger.LockFunding), "what a locked account still accepts (funding, freeze)")
	f.Int32Var(&opts.precision, "precision", snapshot.DefaultPrecision, "decimal places in output amounts")
	f.StringVar(&opts.logLevel, "log-level", "error", "log level (debug, info, warn, error)")
	f.StringVar(&opts.logFormat, "log-format", "console", "log format (console, json)")
	f.StringVar(&opts.warningsLog, "warnings-log", "", "write skipped records to this CSV file")

	return rootCmd
}

// loadConfig reads the config file, if any, and lets explicitly set flags
// override it.
func loadConfig(cmd *cobra.Command, opts rootOptions) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		cfg, err = config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
	}

	f := cmd.Flags()
	if f.Changed("input-format") {
		cfg.Input.Format = opts.inputFormat
	}
	if f.Changed("output-format") {
		cfg.Output.Format = opts.outputFormat
	}
	if f.Changed("lock-policy") {
		cfg.Ledger.LockPolicy = opts.lockPolicy
	}
	if f.Changed("precision") {
		cfg.Output.Precision = opts.precision
	}
	if f.Changed("log-level") {
		cfg.Logging.Level = opts.logLevel
	}
	if f.Changed("log-format") {
		cfg.Logging.Format = opts.logFormat
	}
	if f.Changed("warnings-log") {
		cfg.WarningsLog = opts.warningsLog
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func run(cmd *cobra.Command, cfg *config.Config, path string) (err error) {
	logger, err := newLogger(cfg.Logging, zapcore.AddSync(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.With(zap.String("run_id", uuid.NewString()))

	policy, err := ledger.ParseLockPolicy(cfg.Ledger.LockPolicy)
	if err != nil {
		return err
	}
	emitter, err := snapshot.New(cfg.Output.Format, cmd.OutOrStdout(), cfg.Output.Precision)
	if err != nil {
		return err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}
	file, err := source.DefaultRegistry().Open(cfg.Input.Format, absPath)
	if err != nil {
		return err
	}
	defer file.Close()

	engine := ledger.New(ledger.WithLockPolicy(policy))
	runOpts := []runner.Option{runner.WithLogger(logger)}

	if cfg.WarningsLog != "" {
		wl, werr := warnlog.Create(cfg.WarningsLog)
		if werr != nil {
			return werr
		}
		defer func() {
			if cerr := wl.Close(); err == nil {
				err = cerr
			}
		}()
		runOpts = append(runOpts, runner.WithObserver(func(e runner.Event) error {
			return wl.Write(warnlog.Entry{
				Line:   e.Line,
				Kind:   e.Warning.Kind,
				Client: e.Warning.Client,
				Tx:     e.Warning.Tx,
				Detail: e.Warning.Detail,
			})
		}))
	}

	logger.Debug("processing", zap.String("path", absPath), zap.String("lock_policy", string(policy)))
	if _, err := runner.New(engine, runOpts...).Run(file); err != nil {
		return fmt.Errorf("processing %s: %w", path, err)
	}

	if err := emitter.Emit(engine.Snapshot()); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}
