// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

// Package config loads the bot configuration from defaults, an optional YAML
// file and command-line flags, and the bot secrets from the environment.
package config

import (
	"net"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"

	"github.com/amethyst-dev/amethyst/pkg/command"
)

// CodeConfigInvalid marks configuration that failed validation.
const CodeConfigInvalid = "CONFIG_INVALID"

// Config is the bot configuration file shape.
type Config struct {
	// RequiredVersion is a semver constraint the running binary must satisfy.
	RequiredVersion string `koanf:"required_version" json:"required_version,omitempty" jsonschema:"description=Semver constraint the amethyst binary must satisfy"`

	Prefixes            []string `koanf:"prefixes" json:"prefixes,omitempty" jsonschema:"description=Message command prefixes"`
	MentionPrefix       bool     `koanf:"mention_prefix" json:"mention_prefix,omitempty" jsonschema:"description=Accept a bot mention as a prefix"`
	PrefixCaseSensitive bool     `koanf:"prefix_case_sensitive" json:"prefix_case_sensitive,omitempty"`
	Owners              []string `koanf:"owners" json:"owners,omitempty" jsonschema:"description=User ids allowed to run owner-only commands"`
	IgnoreBots          bool     `koanf:"ignore_bots" json:"ignore_bots,omitempty" jsonschema:"description=Ignore messages written by bots"`
	QuotedArguments     bool     `koanf:"quoted_arguments" json:"quoted_arguments,omitempty" jsonschema:"description=Treat double-quoted spans as one argument"`
	GuildOnly           bool     `koanf:"guild_only" json:"guild_only,omitempty"`
	DMOnly              bool     `koanf:"dm_only" json:"dm_only,omitempty"`

	Cooldown CooldownConfig `koanf:"cooldown" json:"cooldown,omitempty"`
	Log      LogConfig      `koanf:"log" json:"log,omitempty"`
	Metrics  MetricsConfig  `koanf:"metrics" json:"metrics,omitempty"`
}

// CooldownConfig holds bot-wide cooldown settings.
type CooldownConfig struct {
	// Duration and AllowedUses form the default cooldown. A zero duration
	// disables it.
	Duration      time.Duration `koanf:"duration" json:"duration,omitempty" jsonschema:"type=string,pattern=^([0-9]+(\\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$"`
	AllowedUses   int           `koanf:"allowed_uses" json:"allowed_uses,omitempty" jsonschema:"minimum=0"`
	Ignore        []string      `koanf:"ignore" json:"ignore,omitempty" jsonschema:"description=User ids exempt from every cooldown"`
	SweepInterval time.Duration `koanf:"sweep_interval" json:"sweep_interval,omitempty" jsonschema:"type=string,pattern=^([0-9]+(\\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$"`
}

// LogConfig selects the log handler.
type LogConfig struct {
	Format string `koanf:"format" json:"format,omitempty" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" json:"level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// MetricsConfig configures the observability server.
type MetricsConfig struct {
	// Addr is the metrics and health listen address. Empty disables it.
	Addr string `koanf:"addr" json:"addr,omitempty"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Prefixes:   []string{"!"},
		IgnoreBots: true,
		Cooldown: CooldownConfig{
			AllowedUses:   1,
			SweepInterval: command.DefaultSweepInterval,
		},
		Log: LogConfig{
			Format: "json",
			Level:  "info",
		},
		Metrics: MetricsConfig{
			Addr: "127.0.0.1:9100",
		},
	}
}

// Validate checks cross-field constraints. version is the running binary
// version; RequiredVersion is only enforced when version is valid semver.
func (c *Config) Validate(version string) error {
	errb := oops.Code(CodeConfigInvalid)

	if len(c.Prefixes) == 0 && !c.MentionPrefix {
		return errb.Errorf("at least one prefix is required unless mention_prefix is enabled")
	}
	for _, p := range c.Prefixes {
		if p == "" {
			return errb.Errorf("prefixes cannot contain an empty string")
		}
	}
	if c.GuildOnly && c.DMOnly {
		return errb.Errorf("guild_only and dm_only are mutually exclusive")
	}
	if c.Cooldown.Duration < 0 || c.Cooldown.AllowedUses < 0 {
		return errb.With("duration", c.Cooldown.Duration).
			With("allowed_uses", c.Cooldown.AllowedUses).
			Errorf("cooldown values cannot be negative")
	}
	if c.Cooldown.SweepInterval <= 0 {
		return errb.With("sweep_interval", c.Cooldown.SweepInterval).
			Errorf("cooldown.sweep_interval must be positive")
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return errb.With("format", c.Log.Format).Errorf("log.format must be json or text")
	}
	if c.Metrics.Addr != "" {
		if _, _, err := net.SplitHostPort(c.Metrics.Addr); err != nil {
			return errb.With("addr", c.Metrics.Addr).Wrapf(err, "metrics.addr is not a host:port")
		}
	}
	if c.RequiredVersion != "" {
		constraint, err := semver.NewConstraint(c.RequiredVersion)
		if err != nil {
			return errb.With("required_version", c.RequiredVersion).Wrapf(err, "required_version is not a semver constraint")
		}
		if v, err := semver.NewVersion(version); err == nil && !constraint.Check(v) {
			return errb.With("required_version", c.RequiredVersion).
				With("version", version).
				Errorf("amethyst %s does not satisfy required_version %s", version, c.RequiredVersion)
		}
	}
	return nil
}

// DefaultCooldown returns the bot-wide default cooldown, or nil when none is
// configured.
func (c *Config) DefaultCooldown() *command.Cooldown {
	if c.Cooldown.Duration <= 0 {
		return nil
	}
	return &command.Cooldown{Duration: c.Cooldown.Duration, AllowedUses: c.Cooldown.AllowedUses}
}

// DispatcherOptions maps the configuration onto dispatcher options.
func (c *Config) DispatcherOptions() []command.DispatcherOption {
	opts := []command.DispatcherOption{
		command.WithMentionPrefix(c.MentionPrefix),
		command.WithPrefixCaseSensitive(c.PrefixCaseSensitive),
		command.WithIgnoreBots(c.IgnoreBots),
		command.WithQuotedArguments(c.QuotedArguments),
		command.WithSweepInterval(c.Cooldown.SweepInterval),
	}
	if len(c.Prefixes) > 0 {
		opts = append(opts, command.WithPrefix(c.Prefixes...))
	}
	if len(c.Owners) > 0 {
		opts = append(opts, command.WithOwners(c.Owners...))
	}
	if len(c.Cooldown.Ignore) > 0 {
		opts = append(opts, command.WithIgnoreCooldown(c.Cooldown.Ignore...))
	}
	if cd := c.DefaultCooldown(); cd != nil {
		opts = append(opts, command.WithDefaultCooldown(cd))
	}
	if c.GuildOnly {
		opts = append(opts, command.WithGuildOnly())
	}
	if c.DMOnly {
		opts = append(opts, command.WithDMOnly())
	}
	return opts
}
