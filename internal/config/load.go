// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/amethyst-dev/amethyst/internal/xdg"
)

// FileName is the config file looked up under the XDG config directory.
const FileName = "config.yaml"

// flagKeys maps command-line flags onto config keys.
var flagKeys = map[string]string{
	"prefix":           "prefixes",
	"mention-prefix":   "mention_prefix",
	"owner":            "owners",
	"quoted-arguments": "quoted_arguments",
	"log-format":       "log.format",
	"log-level":        "log.level",
	"metrics-addr":     "metrics.addr",
}

// RegisterFlags adds the flags Load understands to fs. Flag defaults are
// display-only; unset flags never override the file or the defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("config", "", "config file (default $XDG_CONFIG_HOME/amethyst/config.yaml)")
	fs.StringSlice("prefix", d.Prefixes, "message command prefix (repeatable)")
	fs.Bool("mention-prefix", d.MentionPrefix, "accept a bot mention as a prefix")
	fs.StringSlice("owner", nil, "owner user id (repeatable)")
	fs.Bool("quoted-arguments", d.QuotedArguments, "treat double-quoted spans as one argument")
	fs.String("log-format", d.Log.Format, "log format (json or text)")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	fs.String("metrics-addr", d.Metrics.Addr, "metrics/health HTTP address (empty = disabled)")
}

// Load layers defaults, the config file and changed flags, in that order.
// The file named by --config must exist; the XDG default is optional. A
// nil flag set loads defaults and the default file only.
func Load(flags *pflag.FlagSet) (*Config, string, error) {
	path, explicit := configPath(flags)

	k := koanf.New(".")
	if path != "" {
		data, readErr := os.ReadFile(path) //nolint:gosec // operator-supplied config path
		switch {
		case readErr == nil:
			if err := ValidateSchema(data); err != nil {
				return nil, path, oops.Code(CodeConfigInvalid).With("path", path).Wrap(err)
			}
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, path, oops.Code(CodeConfigInvalid).With("path", path).Wrapf(err, "load config file")
			}
		case errors.Is(readErr, fs.ErrNotExist) && !explicit:
			path = ""
		default:
			return nil, path, oops.Code(CodeConfigInvalid).With("path", path).Wrapf(readErr, "read config file")
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", nil, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, path, oops.Code(CodeConfigInvalid).Wrapf(err, "load flags")
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, path, oops.Code(CodeConfigInvalid).With("path", path).Wrapf(err, "decode config")
	}
	return &cfg, path, nil
}

func configPath(flags *pflag.FlagSet) (string, bool) {
	if flags != nil {
		if p, err := flags.GetString("config"); err == nil && p != "" {
			return p, true
		}
	}
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", false
	}
	return filepath.Join(dir, FileName), false
}
