package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BuzzLyutic/task-cli/internal/config"
	"github.com/BuzzLyutic/task-cli/internal/model"
	"github.com/BuzzLyutic/task-cli/internal/repo"
	"github.com/BuzzLyutic/task-cli/internal/service"
	"github.com/BuzzLyutic/task-cli/pkg/respond"
)

type app struct {
	stdout io.Writer
	stderr io.Writer

	configFile string
	verbose    bool

	logger  *zap.Logger
	service *service.TaskService
}

// Run executes one CLI invocation and returns the process exit code.
func Run(ctx context.Context, version string, args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr, logger: zap.NewNop()}
	root := a.rootCmd(version)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	cmd, err := root.ExecuteContextC(ctx)
	defer func() { _ = a.logger.Sync() }()
	if err == nil {
		return 0
	}

	respond.Error(stderr, err.Error())
	if errors.Is(err, service.ErrValidation) {
		fmt.Fprint(stderr, cmd.UsageString())
	}
	return 1
}

func (a *app) rootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "task-cli",
		Short: "Track tasks in a local file",
		Long: `task-cli keeps a list of tasks in a single human-readable file.

Every command reads the whole file, applies at most one change and writes it back.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.StringP("file", "f", config.DefaultFile, "task file (.json, .yaml or .toml)")
	flags.String("format", "", "task file format, overrides the file extension (json, yaml, toml)")
	flags.Bool("lock", false, "hold an advisory lock on the task file while changing it")
	flags.StringVar(&a.configFile, "config", "", "config file (default $HOME/.task-cli/config.yaml and ./.task-cli/config.yaml)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", service.ErrValidation, err)
	})

	root.AddCommand(
		a.addCmd(),
		a.updateCmd(),
		a.deleteCmd(),
		a.markCmd("mark-in-progress", model.StatusInProgress),
		a.markCmd("mark-done", model.StatusDone),
		a.listCmd(),
		a.showCmd(),
		a.statsCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	if !needsStore(cmd) {
		return nil
	}

	cfg, err := config.Load(config.LoadOptions{
		ConfigFile: a.configFile,
		Flags:      cmd.Flags(),
	})
	if err != nil {
		return err
	}

	level, _ := cfg.Level()
	if a.verbose {
		level = zapcore.DebugLevel
	}
	logger := newLogger(level, a.stderr)
	a.logger = logger

	store, err := repo.NewFileStore(cfg.File, repo.Options{Format: cfg.Format, Lock: cfg.Lock}, logger)
	if err != nil {
		return fmt.Errorf("%w: %v", service.ErrValidation, err)
	}
	a.service = service.NewTaskService(store, service.WithLogger(logger))

	logger.Debug("configuration loaded",
		zap.String("file", cfg.File),
		zap.String("format", cfg.Format),
		zap.Bool("lock", cfg.Lock),
	)
	return nil
}

// needsStore reports whether cmd is one of the task commands. Help and
// completion must work even with a broken config.
func needsStore(cmd *cobra.Command) bool {
	switch {
	case !cmd.HasParent(), cmd.Parent() != cmd.Root():
		return false
	case cmd.Name() == "help", cmd.Name() == "completion":
		return false
	}
	return true
}

func newLogger(level zapcore.Level, w io.Writer) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.AddSync(w),
		zap.NewAtomicLevelAt(level),
	)
	return zap.New(core)
}

// handleErrors turns a missing task into a normal outcome. Everything
// else is returned to Run and ends the process with a failure.
func (a *app) handleErrors(err error, id int64) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrorNotFound):
		respond.Message(a.stdout, "Task with ID %d not found.", id)
		return nil
	default:
		a.logger.Debug("operation failed", zap.Int64("task_id", id), zap.Error(err))
		return err
	}
}
