// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/amethyst-dev/amethyst/internal/config"
	"github.com/amethyst-dev/amethyst/internal/logging"
	"github.com/amethyst-dev/amethyst/internal/observability"
	"github.com/amethyst-dev/amethyst/internal/xdg"
	"github.com/amethyst-dev/amethyst/pkg/amethyst"
	"github.com/amethyst-dev/amethyst/pkg/command"
)

const shutdownTimeout = 10 * time.Second

// defaultIntents covers guild and direct messages, their reactions and
// message content.
const defaultIntents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildMessageReactions |
	discordgo.IntentsDirectMessages |
	discordgo.IntentsDirectMessageReactions |
	discordgo.IntentsMessageContent

// NewRunCmd creates the run subcommand.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to Discord and serve commands",
		Long: `Connect to the Discord gateway and serve the built-in commands.
The bot token is read from DISCORD_TOKEN, or from a .env file in the
working directory or the amethyst config directory.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBot(cmd.Context(), cmd)
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func intents(override int) discordgo.Intent {
	if override != 0 {
		return discordgo.Intent(override)
	}
	return defaultIntents
}

func runBot(ctx context.Context, cmd *cobra.Command) error {
	cfg, path, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(version); err != nil {
		return err
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := logging.SetDefault("amethyst", version, cfg.Log.Format, level)
	if path != "" {
		logger.Info("loaded config file", "path", path)
	}

	envFile, err := xdg.EnvFile()
	if err != nil {
		logger.Debug("no config directory for .env", "error", err)
	}
	secrets, err := config.LoadSecrets(".env", envFile)
	if err != nil {
		return err
	}

	session, err := discordgo.New("Bot " + secrets.Token)
	if err != nil {
		return oops.Wrapf(err, "create discord session")
	}
	session.Identify.Intents = intents(secrets.Intents)
	session.LogLevel = logging.SessionLogLevel(level)
	discordgo.Logger = logging.DiscordgoLogger(logger.With("component", "discordgo"))

	reg, err := newRegistry()
	if err != nil {
		return err
	}

	var bot *amethyst.Bot
	dispatchOpts := cfg.DispatcherOptions()

	var obsServer *observability.Server
	if cfg.Metrics.Addr != "" {
		obsServer = observability.NewServer(cfg.Metrics.Addr,
			func() bool { return bot != nil && bot.Ready() },
			observability.WithLogger(logger),
			observability.WithCommandPayload(func() command.Payload { return command.BuildPayload(reg.All(), cfg.GuildOnly) }),
		)
		dispatchOpts = append(dispatchOpts, command.WithMetricsRegistry(obsServer.Registry()))
	}

	bot, err = amethyst.NewFromSession(session,
		amethyst.WithRegistry(reg),
		amethyst.WithLogger(logger),
		amethyst.WithDispatcherOptions(dispatchOpts...),
		amethyst.WithReadyHook(func(ctx context.Context, r *discordgo.Ready) {
			logger.InfoContext(ctx, "bot ready", "user", r.User.Username, "guilds", len(r.Guilds))
		}),
	)
	if err != nil {
		return err
	}

	var obsErrs <-chan error
	if obsServer != nil {
		obsServer.Metrics().BuildInfo.WithLabelValues(version).Set(1)
		if obsErrs, err = obsServer.Start(); err != nil {
			return oops.Wrapf(err, "start observability server")
		}
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := bot.Open(ctx); err != nil {
		stopObservability(logger, obsServer)
		return oops.Wrapf(err, "open gateway")
	}
	cmd.Println("amethyst started")

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case obsErr := <-obsErrs:
		if obsErr != nil {
			logger.Error("observability server failed", "error", obsErr)
		}
	}

	logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := bot.Close(shutdownCtx); err != nil {
		logger.Warn("error closing bot", "error", err)
	}
	stopObservability(logger, obsServer)

	logger.Info("shutdown complete")
	return nil
}

func stopObservability(logger *slog.Logger, s *observability.Server) {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		logger.Warn("error stopping observability server", "error", err)
	}
}
