// Package commands_test provides tests for CLI command creation.
package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewScanCommand(t *testing.T) {
	cmd := NewScanCommand()

	assert.Equal(t, "scan", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")

	// Verify flags exist (output is a global flag on root, not local)
	flags := []string{"force", "mapping", "watch"}
	for _, flag := range flags {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestNewTraceCommand(t *testing.T) {
	cmd := NewTraceCommand()

	assert.Equal(t, "trace <table> [<table>...]", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")

	flags := []string{"out", "interactive"}
	for _, flag := range flags {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}

	out := cmd.Flags().Lookup("out")
	assert.Equal(t, "lineage.csv", out.DefValue, "trace should write lineage.csv by default")
}

func TestNewExpandCommand(t *testing.T) {
	cmd := NewExpandCommand()

	assert.Equal(t, "expand", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")

	flags := []string{"in", "out"}
	for _, flag := range flags {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}

	assert.Equal(t, "lineage.csv", cmd.Flags().Lookup("in").DefValue)
	assert.Equal(t, "lineage_expanded.csv", cmd.Flags().Lookup("out").DefValue)
}

func TestNewGraphCommand(t *testing.T) {
	cmd := NewGraphCommand()

	assert.Equal(t, "graph", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")

	// Note: --output flag is a global persistent flag on root command, not local to graph
}
