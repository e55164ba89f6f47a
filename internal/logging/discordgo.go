// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// DiscordgoLogger adapts l to discordgo's package logger hook. Assign the
// result to discordgo.Logger.
func DiscordgoLogger(l *slog.Logger) func(msgL, caller int, format string, a ...any) {
	return func(msgL, _ int, format string, a ...any) {
		msg := strings.TrimSpace(fmt.Sprintf(format, a...))
		l.Log(context.Background(), discordgoLevel(msgL), msg, "dg_level", msgL)
	}
}

func discordgoLevel(msgL int) slog.Level {
	switch msgL {
	case discordgo.LogError:
		return slog.LevelError
	case discordgo.LogWarning:
		return slog.LevelWarn
	case discordgo.LogInformational:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// SessionLogLevel maps a slog level onto discordgo's Session.LogLevel so the
// session only formats messages the slog handler would keep.
func SessionLogLevel(level slog.Level) int {
	switch {
	case level <= slog.LevelDebug:
		return discordgo.LogDebug
	case level <= slog.LevelInfo:
		return discordgo.LogInformational
	case level <= slog.LevelWarn:
		return discordgo.LogWarning
	default:
		return discordgo.LogError
	}
}
