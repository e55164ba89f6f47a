// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscordgoLogger(t *testing.T) {
	var buf bytes.Buffer
	log := DiscordgoLogger(Setup("amethyst", "1.0.0", "json", slog.LevelInfo, &buf))

	log(discordgo.LogDebug, 1, "heartbeat %d", 7)
	assert.Empty(t, buf.String(), "debug messages are filtered by the handler level")

	log(discordgo.LogWarning, 1, "reconnecting after %s\n", "close 4000")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "reconnecting after close 4000", entry["msg"])
	assert.EqualValues(t, discordgo.LogWarning, entry["dg_level"])
	assert.Equal(t, "amethyst", entry["service"])
}

func TestDiscordgoLevel(t *testing.T) {
	assert.Equal(t, slog.LevelError, discordgoLevel(discordgo.LogError))
	assert.Equal(t, slog.LevelWarn, discordgoLevel(discordgo.LogWarning))
	assert.Equal(t, slog.LevelInfo, discordgoLevel(discordgo.LogInformational))
	assert.Equal(t, slog.LevelDebug, discordgoLevel(discordgo.LogDebug))
}

func TestSessionLogLevel(t *testing.T) {
	tests := []struct {
		level slog.Level
		want  int
	}{
		{slog.LevelDebug, discordgo.LogDebug},
		{slog.LevelInfo, discordgo.LogInformational},
		{slog.LevelWarn, discordgo.LogWarning},
		{slog.LevelError, discordgo.LogError},
	}
	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, SessionLogLevel(tt.level))
		})
	}
}
