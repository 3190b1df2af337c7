package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"keybot/internal/backend"
	"keybot/internal/bot"
	"keybot/internal/command"
	"keybot/internal/config"
	"keybot/internal/domain"
	"keybot/internal/history"
	"keybot/internal/metrics"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "keybot",
		Short: "keybot: a polling chat bot for Keybase",
		Long:  "keybot watches team channels and direct messages for trigger patterns and replies through registered commands.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.keybot/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(runCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(historyCmd())
	root.AddCommand(doctorCmd())
	root.AddCommand(configCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

// newLogger builds the process logger from the general config section.
func newLogger(cfg config.GeneralConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	out := io.Writer(os.Stderr)
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logger.Warn("cannot open log file, logging to stderr", "path", cfg.LogFile, "err", err)
		} else {
			out = f
		}
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a default configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir := config.DefaultConfigDir()
			cfgPath := config.DefaultConfigPath()
			if err := os.MkdirAll(cfgDir, 0o755); err != nil {
				return err
			}
			if err := config.Save(cfgPath, config.Defaults()); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath)
			return nil
		},
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start polling and dispatching commands",
		Long:  "Connects to the configured backend, drains the unread backlog once, then polls for new messages. Press Ctrl+C to stop.",
		RunE:  runBot,
	}
}

func runBot(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger = newLogger(cfg.General)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	be, err := buildBackend(cfg)
	if err != nil {
		return err
	}
	username, err := be.CurrentUsername(ctx)
	if err != nil {
		return fmt.Errorf("backend not ready: %w", err)
	}
	logger.Info("backend ready", "type", cfg.Backend.Type, "username", username)

	var recorder bot.DispatchRecorder
	if cfg.History.Enabled {
		store, err := history.NewStore(cfg.History.DBPath, logger)
		if err != nil {
			return fmt.Errorf("history store: %w", err)
		}
		defer store.Close()
		recorder = store
	}

	b, err := bot.New(bot.Options{
		Backend:     be,
		Teams:       cfg.Teams,
		HelpPattern: cfg.Help.Pattern,
		HelpTrigger: cfg.Help.Trigger,
		Interval:    time.Duration(cfg.General.PollIntervalSeconds) * time.Second,
		Recorder:    recorder,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	if err := registerCommands(b, cfg); err != nil {
		return err
	}
	logger.Info("commands registered", "count", b.Registry().Len())

	if cfg.Metrics.Enabled {
		startMetricsServer(ctx, cfg.Metrics)
	}

	return b.Run(ctx)
}

// registerCommands wires the built-in and canned commands into the bot.
// Registration order is match priority, so built-ins go first.
func registerCommands(b *bot.Bot, cfg *config.Config) error {
	responder := b.Responder()

	cmds := []bot.Command{
		command.Ping(responder, cfg.Commands.Pong),
		command.Roll(responder, logger),
		command.Uptime(responder),
	}
	if cfg.Commands.ProfanityFilter {
		cmds = append(cmds, command.ProfanityFilter(responder))
	}
	if cfg.Commands.CannedDir != "" {
		canned, err := command.LoadCanned(cfg.Commands.CannedDir, responder, logger)
		if err != nil {
			return fmt.Errorf("canned commands: %w", err)
		}
		cmds = append(cmds, canned...)
	}

	for _, cmd := range cmds {
		if err := b.Register(cmd); err != nil {
			return err
		}
	}
	return nil
}

func buildBackend(cfg *config.Config) (domain.Backend, error) {
	switch cfg.Backend.Type {
	case "keybase":
		return backend.NewKeybase(logger), nil
	case "telegram":
		return backend.NewTelegram(backend.TelegramConfig{
			Token:  cfg.Backend.Telegram.Token,
			Logger: logger,
		})
	default:
		return nil, fmt.Errorf("unknown backend type: %s", cfg.Backend.Type)
	}
}

func startMetricsServer(ctx context.Context, cfg config.MetricsConfig) {
	mux := http.NewServeMux()
	mux.HandleFunc(cfg.Endpoint, metrics.Collector.Handler())
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: mux,
	}
	go func() {
		logger.Info("metrics server started", "addr", srv.Addr, "endpoint", cfg.Endpoint)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "err", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show backend status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				logger.Info("config", "path", cfgPath, "loaded", false)
				cfg = config.Defaults()
			} else {
				logger.Info("config", "path", cfgPath, "loaded", true)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			be, err := buildBackend(cfg)
			if err != nil {
				return err
			}
			username, err := be.CurrentUsername(ctx)
			if err != nil {
				logger.Info("backend", "type", cfg.Backend.Type, "healthy", false, "err", err)
				return nil
			}
			logger.Info("backend", "type", cfg.Backend.Type, "healthy", true, "username", username)
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently dispatched commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if !cfg.History.Enabled {
				return fmt.Errorf("history is disabled in config")
			}

			store, err := history.NewStore(cfg.History.DBPath, logger)
			if err != nil {
				return fmt.Errorf("history store: %w", err)
			}
			defer store.Close()

			entries, err := store.Recent(context.Background(), limit)
			if err != nil {
				return err
			}
			for _, e := range entries {
				surface := e.Sender
				if e.Kind == string(domain.KindTeam) {
					surface = fmt.Sprintf("%s#%s by %s", e.Team, e.Channel, e.Sender)
				}
				fmt.Printf("%s  %-20s %s  %q\n",
					e.CreatedAt.Format(time.RFC3339), e.Trigger, surface, e.Body)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("keybot v%s\n", version)
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		Long:  "Get, set, and list configuration values. Changes are saved to the config file.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [path]",
		Short: "Get a config value (e.g. help.trigger)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			val, err := config.GetByPath(cfg, args[0])
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(val, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set [path] [value]",
		Short: "Set a config value (e.g. general.pollIntervalSeconds 5)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := config.SetByPath(cfg, args[0], args[1]); err != nil {
				return fmt.Errorf("set value: %w", err)
			}
			if err := config.Save(cfgPath, cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			logger.Info("config updated", "path", args[0], "value", args[1], "file", cfgPath)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all config values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			sanitized := config.Sanitize(cfg)
			data, _ := json.MarshalIndent(sanitized, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	})

	return cmd
}
