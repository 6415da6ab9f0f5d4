package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/provisiongrid/internal/cli"
	"github.com/vk/provisiongrid/internal/testutil"
)

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	args := []string{"-h"}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, args)

	// --- Assert ---
	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	args := []string{"--this-is-not-a-valid-flag"}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, args)

	// --- Assert ---
	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
}

func TestRun_LoadError(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := testutil.WriteGrid(t, map[string]string{"main.hcl": `
		resource "echo" "a" {
			name = "missing brace"
	`})
	args := []string{"--state", filepath.Join(t.TempDir(), "state.yaml"), dir}

	// --- Act ---
	err := run(context.Background(), &bytes.Buffer{}, args)

	// --- Assert ---
	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.Code)
	assert.Contains(t, exitErr.Message, "failed to load configuration")
}

func TestRun_Apply(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := testutil.WriteGrid(t, map[string]string{"main.hcl": `
resource "echo" "project" { name = "langbridge" }
value "settings" { region = "us-central1" }
resource "echo" "function" {
  project = resource.echo.project.id
  region  = value.settings.region
}
output "function_region" { value = resource.echo.function.region }
`})
	args := []string{"--log-level", "error", "--state", filepath.Join(t.TempDir(), "state.yaml"), dir}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, args)

	// --- Assert ---
	require.NoError(t, err, out.String())
	var outputs map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &outputs))
	assert.Equal(t, map[string]any{"function_region": "us-central1"}, outputs)
}
