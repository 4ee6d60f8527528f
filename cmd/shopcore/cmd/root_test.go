package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCmd_HasSubcommands(t *testing.T) {
	cmd := NewRootCmd()

	names := make([]string, 0)
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Contains(t, names, "version")
	assert.Contains(t, names, "server")
}

func TestNewRootCmd_PersistentFlags(t *testing.T) {
	cmd := NewRootCmd()

	output := cmd.PersistentFlags().Lookup("output")
	require.NotNil(t, output)
	assert.Equal(t, "plain", output.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("verbose"))
}

func TestEnvOr(t *testing.T) {
	t.Setenv("SHOPCORE_TEST_ENV", "from-env")
	assert.Equal(t, "from-env", envOr("SHOPCORE_TEST_ENV", "fallback"))
	assert.Equal(t, "fallback", envOr("SHOPCORE_TEST_ENV_UNSET", "fallback"))
}
