// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

package config

// Sample is the annotated config file written by "amethyst config init".
// Every value matches Default.
const Sample = `# Amethyst bot configuration.
# Secrets such as DISCORD_TOKEN are read from the environment, never from here.

# Semver constraint the amethyst binary must satisfy, e.g. ">= 1.2".
# required_version: ""

prefixes:
  - "!"
mention_prefix: false
prefix_case_sensitive: false

# User ids allowed to run owner-only commands.
# owners:
#   - "123456789012345678"

ignore_bots: true
quoted_arguments: false
guild_only: false
dm_only: false

cooldown:
  # Default cooldown for commands without their own. 0s disables it.
  duration: 0s
  allowed_uses: 1
  # User ids exempt from every cooldown.
  # ignore: []
  sweep_interval: 30s

log:
  format: json
  level: info

metrics:
  # Empty disables the metrics and health server.
  addr: 127.0.0.1:9100
`
