package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/arclight-dev/vigil"
	_ "github.com/arclight-dev/vigil/builtin"
	"github.com/arclight-dev/vigil/internal/dirs"
)

var (
	runConfigPath string
	runTimeout    time.Duration
	runStatic     bool
)

var runCmd = &cobra.Command{
	Use:   "run [globs...]",
	Short: "Track the given glob patterns and print extracted records as they arrive",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&runConfigPath, "config", "", "path to a session defaults YAML file")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "terminate the session after this long (0 disables)")
	runCmd.Flags().BoolVar(&runStatic, "static", false, "parse every matched file exactly once (the command keeps running until interrupted or --timeout elapses)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, globs []string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	defaultFileLimit := 50
	cfg := vigil.SupervisorConfig{
		Interval:  100 * time.Millisecond,
		FileLimit: &defaultFileLimit,
		Timeout:   runTimeout,
	}
	configPath := runConfigPath
	if configPath == "" {
		if d, err := dirs.Resolve(); err == nil {
			configPath = d.ConfigDir("session-defaults.yaml")
		}
	}
	if configPath != "" {
		loaded, err := vigil.SupervisorConfigFromFile(configPath)
		if err != nil {
			return fmt.Errorf("vigil run: loading config: %w", err)
		}
		cfg = loaded
		if runTimeout > 0 {
			cfg.Timeout = runTimeout
		}
	}
	cfg.Notification = func(path string) {
		logger.Info("discovered file", "path", path)
	}
	cfg.Exception = func(message string) {
		logger.Error("session terminated with failures", "error", message)
	}

	session := vigil.NewSession(cfg)

	opts := []vigil.Option{
		vigil.WithCallback(func(rec vigil.Record) {
			logger.Info("record", "file", rec.Metadata.FileName, "data", rec.Data)
		}),
	}
	if runStatic {
		opts = append(opts, vigil.WithStatic())
	}

	if _, err := session.Track(globs, opts...); err != nil {
		return fmt.Errorf("vigil run: registering globs: %w", err)
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := session.Run(ctx); err != nil {
		return fmt.Errorf("vigil run: %w", err)
	}
	return nil
}
