package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinarySyncAndList(t *testing.T) {
	c := newCLI(t)
	batch := c.file("pr.json", `[
		{"componentIId": 1, "componentI": "METHANE", "componentJId": 2, "componentJ": "ETHANE", "KAIJ": "0.1"},
		{"componentIId": 1, "componentI": "METHANE", "componentJId": 3, "componentJ": "PROPANE", "KAIJ": 0.25}
	]`)

	resp, err := c.json("binary", "sync", "pr", batch, "--fluid-package", "fp1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"inserted": 2.0, "updated": 0.0, "deleted": 0.0}, resp.Data)

	resp, err = c.json("binary", "list", "PR", "--fluid-package", "fp1")
	require.NoError(t, err)
	rows, ok := resp.Data.([]any)
	require.True(t, ok)
	require.Len(t, rows, 2)
	first := rows[0].(map[string]any)
	assert.Equal(t, "fp1", first["fluidPackageId"])
	assert.Equal(t, "0.1", first["KAIJ"])
	assert.Nil(t, first["KBIJ"])
	assert.Equal(t, "0.25", rows[1].(map[string]any)["KAIJ"])

	// The global scope is untouched.
	resp, err = c.json("binary", "list", "PR")
	require.NoError(t, err)
	assert.Empty(t, resp.Data)
}

func TestBinarySyncText(t *testing.T) {
	c := newCLI(t)
	c.stdin = `[{"componentIId": 4, "componentI": "WATER", "componentJId": 5, "componentJ": "ETHANOL", "TIJ": "1.5"}]`

	out, err := c.exec("binary", "sync", "PSRK", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "inserted=1 updated=0 deleted=0")

	out, err = c.exec("binary", "list", "psrk")
	require.NoError(t, err)
	assert.Contains(t, out, "PSRK: 1 row(s)")
	assert.Contains(t, out, "(4,5) WATER/ETHANOL TIJ=1.5 TJI=- VIJ=- VJI=-")
}

func TestBinarySyncEmptyBatchClearsScope(t *testing.T) {
	c := newCLI(t)
	batch := c.file("pr.json", `[{"componentIId": 1, "componentJId": 2, "KAIJ": "0.1"}]`)
	_, err := c.json("binary", "sync", "PR", batch)
	require.NoError(t, err)

	resp, err := c.json("binary", "sync", "PR", c.file("empty.json", `[]`))
	require.NoError(t, err)
	assert.Equal(t, 1.0, resp.Data.(map[string]any)["deleted"])
}

func TestBinaryErrors(t *testing.T) {
	c := newCLI(t)
	batch := c.file("pr.json", `[]`)

	resp, err := c.json("binary", "sync", "FOO", batch)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "UNKNOWN_VARIANT", resp.Error.Code)

	resp, err = c.json("binary", "list", "FOO")
	require.Error(t, err)
	assert.Equal(t, "UNKNOWN_VARIANT", resp.Error.Code)

	resp, err = c.json("binary", "sync", "PR", c.file("bad.json", `{"not": "an array"}`))
	require.Error(t, err)
	assert.Equal(t, "CONSTRAINT_VIOLATION", resp.Error.Code)

	resp, err = c.json("binary", "sync", "PR", "/definitely/not/here.json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)

	_, err = c.exec("binary", "sync", "PR")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 2 arg")
}
