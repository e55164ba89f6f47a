// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

package config

import (
	"errors"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/samber/oops"
)

// Secrets are read from the environment only, never from the config file.
type Secrets struct {
	Token string `env:"DISCORD_TOKEN,required,notEmpty"`
	// Intents overrides the default gateway intents.
	Intents int `env:"DISCORD_INTENTS"`
}

// LoadSecrets loads dotenv files, then parses the environment. Missing
// dotenv files are ignored and variables already set are not overridden.
func LoadSecrets(dotenvFiles ...string) (*Secrets, error) {
	for _, f := range dotenvFiles {
		if f == "" {
			continue
		}
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, oops.Code(CodeConfigInvalid).With("file", f).Wrapf(err, "load dotenv file")
		}
	}

	var s Secrets
	if err := env.Parse(&s); err != nil {
		return nil, oops.Code(CodeConfigInvalid).Wrapf(err, "parse environment")
	}
	return &s, nil
}
