package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	assert.True(t, names["serve"])
	assert.True(t, names["seed"])
	assert.True(t, names["status"])
}

func TestStatusCommand_SyntheticList(t *testing.T) {
	t.Setenv("COMMLINK_MODE", "synthetic")

	err := runStatus(nil, nil)
	require.NoError(t, err)
}

func TestStatusCommand_InvalidRunID(t *testing.T) {
	t.Setenv("COMMLINK_MODE", "synthetic")

	err := runStatus(nil, []string{"not-a-uuid"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid run id")
}
