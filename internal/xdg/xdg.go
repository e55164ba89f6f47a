// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

// Package xdg provides XDG Base Directory paths for Amethyst.
package xdg

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const appName = "amethyst"

// ErrNoHome is returned when neither the XDG variable nor HOME is set.
var ErrNoHome = errors.New("neither XDG_CONFIG_HOME nor HOME is set")

// ConfigDir returns the XDG config directory for amethyst.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home := os.Getenv("HOME")
		if home == "" {
			return "", ErrNoHome
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, appName), nil
}

// EnvFile returns the path of the dotenv file kept next to the config file.
func EnvFile() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ".env"), nil
}

// EnsureDir creates a directory and all parent directories if they don't exist.
// Directories are created with 0700 permissions.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}
