package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"syscall"

	"github.com/conneroisu/switchboard/internal/config"
	"github.com/conneroisu/switchboard/internal/errors"
	"github.com/conneroisu/switchboard/internal/logging"
	"github.com/conneroisu/switchboard/internal/renderer"
	"github.com/conneroisu/switchboard/internal/router"
	"github.com/conneroisu/switchboard/internal/server"
	"github.com/conneroisu/switchboard/internal/version"
	"github.com/conneroisu/switchboard/internal/watcher"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Start the HTTP server",
	Long: `Start the HTTP server and block until SIGINT or SIGTERM.

On the first signal the server stops accepting connections, lets in-flight
requests finish (up to server.drain_timeout), and exits 0.

Examples:
  switchboard serve                  # listen on :3000
  switchboard serve --port 8080      # listen on :8080
  PORT=0 switchboard serve           # pick a free port`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addServerFlags(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return errors.NewEnhancedError(
			"Failed to load configuration",
			err,
			errors.ConfigurationError(err, viper.ConfigFileUsed()),
		)
	}

	logger, err := newLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Close()

	ctx, stop := server.SignalContext(cmd.Context(), logger, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := newServer(ctx, cfg.Server, logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	srv.Lifecycle().Subscribe(func(tr server.Transition) {
		if tr.To == server.StateListening {
			printBanner(out, srv.Addr())
		}
	})

	if path := viper.ConfigFileUsed(); path != "" {
		if fw, err := watchLogLevel(ctx, path, logger); err != nil {
			logger.Warn(ctx, err, "config reload disabled", "path", path)
		} else {
			defer fw.Stop()
		}
	}

	if err := srv.Run(ctx); err != nil {
		if errors.IsBindError(err) {
			return errors.NewEnhancedError(
				fmt.Sprintf("Failed to start server on port %d", cfg.Server.Port),
				err,
				errors.ServerStartError(err, cfg.Server.Port),
			)
		}
		return err
	}
	return nil
}

func newLogger(cfg config.LogConfig, out io.Writer) (*logging.ServiceLogger, error) {
	lc := logging.Config{
		Level:     cfg.Level,
		Format:    cfg.Format,
		Output:    out,
		AddSource: cfg.AddSource,
	}
	if cfg.File != "" {
		lc.File = &logging.FileConfig{
			Path:       cfg.File,
			MaxSizeMB:  cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAgeDays: cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
	}
	return logging.New(lc)
}

// newServer wires the renderer and route table into a server.
func newServer(ctx context.Context, cfg config.ServerConfig, logger *logging.ServiceLogger) (*server.Server, error) {
	r, err := renderer.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("rendering pages: %w", err)
	}

	table := router.NewTable(r, renderer.RuntimeInfo{
		Version:  version.RuntimeVersion(),
		Platform: version.Platform(),
	})

	return server.New(server.Options{
		Config:   cfg,
		Table:    table,
		Logger:   logger,
		ErrorLog: logger.StdLogger(slog.LevelWarn),
	}), nil
}

func printBanner(w io.Writer, addr net.Addr) {
	port := ""
	if tcp, ok := addr.(*net.TCPAddr); ok {
		port = strconv.Itoa(tcp.Port)
	} else if addr != nil {
		_, port, _ = net.SplitHostPort(addr.String())
	}

	bold := color.New(color.FgGreen, color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	fmt.Fprintf(w, "%s %s\n", bold("Server running at"), color.CyanString("http://localhost:%s/", port))
	fmt.Fprintf(w, "%s %d\n", dim("Process ID:"), os.Getpid())
	fmt.Fprintf(w, "%s %s\n", dim("Go version:"), version.RuntimeVersion())
	fmt.Fprintf(w, "%s %s\n", dim("Platform:"), version.Platform())
}

// watchLogLevel re-reads the config file on change and applies log.level.
// Other settings need a restart. The reloader reads through its own viper
// instance; the global one is not safe for concurrent use.
func watchLogLevel(ctx context.Context, path string, logger *logging.ServiceLogger) (*watcher.FileWatcher, error) {
	v := viper.New()
	config.SetDefaults(v)
	v.SetConfigFile(path)

	fw, err := watcher.WatchFile(path, watcher.DefaultDebounce, logger, func(events []watcher.ChangeEvent) error {
		return reloadLogLevel(ctx, v, logger)
	})
	if err != nil {
		return nil, err
	}
	fw.Start(ctx)
	return fw, nil
}

func reloadLogLevel(ctx context.Context, v *viper.Viper, logger *logging.ServiceLogger) error {
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("re-reading config: %w", err)
	}

	level, err := logging.ParseLevel(v.GetString("log.level"))
	if err != nil {
		return errors.NewConfigError("log.level: %v", err)
	}
	if level == logger.Level() {
		return nil
	}

	logger.SetLevel(level)
	logger.Info(ctx, "log level changed", "level", level.String())
	return nil
}
