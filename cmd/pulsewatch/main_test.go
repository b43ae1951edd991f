package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--config-dir", t.TempDir()))
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	return out.String(), err
}

func TestValidateTargetAllowsPublicAddress(t *testing.T) {
	out, err := runCLI(t, "validate-target", "http://93.184.216.34/")
	require.NoError(t, err)
	assert.Contains(t, out, `"allowed": true`)
}

func TestValidateTargetRejectsLoopback(t *testing.T) {
	out, err := runCLI(t, "validate-target", "http://127.0.0.1:8080/")
	require.Error(t, err)
	assert.Contains(t, out, `"reason": "loopback_address"`)
}

func TestValidateTargetRequiresURL(t *testing.T) {
	_, err := runCLI(t, "validate-target")
	assert.Error(t, err)
}
