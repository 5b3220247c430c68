// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Escrow++ Contributors

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeCommand_Properties(t *testing.T) {
	cmd := NewServeCmd()

	assert.Equal(t, "serve", cmd.Use)
	assert.Contains(t, cmd.Short, "account service")

	for _, flag := range []string{"server.addr", "server.base_url", "metrics.addr", "log_format"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "serve missing %q flag", flag)
	}
}

func TestServeCommand_IncompleteConfigFails(t *testing.T) {
	configFile = ""
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SESSION_SECRET", "")

	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"serve"})

	err := cmd.Execute()
	require.Error(t, err, "Expected validation error with empty config")
}
