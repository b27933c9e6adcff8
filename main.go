package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angas/eloverblik-exporter/config"
	"github.com/angas/eloverblik-exporter/exporter"
	"github.com/angas/eloverblik-exporter/hours"
	"github.com/angas/eloverblik-exporter/task"
	"github.com/angas/eloverblik-exporter/www"
	"github.com/joho/godotenv"
	"github.com/mailgun/holster/v4/clock"
	"github.com/spf13/cobra"
)

var Version = "?.?.?"

var configPath string

var rootCmd = &cobra.Command{
	Use:           "eloverblik-exporter",
	Short:         "Exports Eloverblik metering data priced with spot prices and tariffs",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load .env: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run scheduled exports and serve the API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var exportFlags struct {
	from string
	to   string
	days int
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Run a single export and print its summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("eloverblik-exporter %s\n", Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	exportCmd.Flags().StringVar(&exportFlags.from, "from", "", "first day to export, YYYY-MM-DD")
	exportCmd.Flags().StringVar(&exportFlags.to, "to", "", "day after the last day to export, YYYY-MM-DD")
	exportCmd.Flags().IntVar(&exportFlags.days, "days", 0, "number of days before today to export, overrides export.days_back")
	rootCmd.AddCommand(serveCmd, exportCmd, versionCmd)
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-ctx.Done():
		case sig := <-sigCh:
			slog.Default().Info("received signal", slog.Any("signal", sig))
			cancel()
		}
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		exitWithError(slog.Default(), err)
	}
}

func runServe(ctx context.Context) error {
	src := config.NewSource(configPath)
	cnfg, err := src.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	a, err := newApp(ctx, cnfg)
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.logger

	src.Watch(logger, func(c *config.AppConfig) {
		a.consoleLevel.Set(c.Logging.GetConsoleLevel())
		a.dbLevel.Set(c.Logging.GetDbLevel())
	})

	hub := www.NewHub(logger.With("module", "websocket"))
	a.exporter.OnFinished(func(s exporter.RunSummary) {
		if err := hub.BroadcastJSON("export_run", s); err != nil {
			logger.Debug("export run not broadcast", slog.Any("error", err))
		}
	})

	tasks := task.NewTasks(logger, a.exporter, a.db, cnfg)
	if err := tasks.Run(); err != nil {
		return err
	}
	defer func() { <-tasks.Stop().Done() }()

	go func() {
		if err := www.RunMetrics(ctx, logger, cnfg.Metrics); err != nil {
			logger.Error("metrics server stopped", slog.Any("error", err))
		}
	}()

	server := www.NewServer(logger, cnfg.Api, a.db, a.exporter, hub, www.Options{
		Version:  Version,
		DaysBack: cnfg.Export.DaysBack,
		Location: cnfg.Display.Location(),
		Tokens:   a.eloverblik,
	})
	err = server.Run(ctx)
	logger.Info("application is shutting down...")
	return err
}

func runExport(ctx context.Context) error {
	cnfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	a, err := newApp(ctx, cnfg)
	if err != nil {
		return err
	}
	defer a.Close()

	days := cnfg.Export.DaysBack
	if exportFlags.days > 0 {
		days = exportFlags.days
	}
	from, to := exporter.Window(clock.Now(), days)
	if exportFlags.from != "" {
		if from, err = hours.FromIsoDate(exportFlags.from); err != nil {
			return fmt.Errorf("invalid --from: %w", err)
		}
	}
	if exportFlags.to != "" {
		if to, err = hours.FromIsoDate(exportFlags.to); err != nil {
			return fmt.Errorf("invalid --to: %w", err)
		}
	}

	summary, err := a.exporter.Run(ctx, from, to)
	out, jsonErr := json.MarshalIndent(summary, "", "  ")
	if jsonErr == nil {
		fmt.Println(string(out))
	}
	return err
}

func exitWithError(logger *slog.Logger, err error) {
	if err != nil {
		logger.Error("application shutting down with error", slog.Any("error", err))
	}
	time.Sleep(100 * time.Millisecond)
	os.Exit(1)
}
