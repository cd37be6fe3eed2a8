// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Picohost Contributors

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picohost/picohost/internal/config"
)

// The serve flags must carry the built-in defaults so that running the
// command with no flags and no config file starts with a valid config.
func TestServeCmd_FlagDefaults(t *testing.T) {
	defaults := config.Default()
	cmd := NewServeCmd()

	for name, want := range map[string]string{
		"bind-addr":    defaults.BindAddr,
		"metrics-addr": defaults.MetricsAddr,
		"log-format":   defaults.LogFormat,
		"database-url": "",
	} {
		flag := cmd.Flags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Equal(t, want, flag.DefValue, name)
	}
}
