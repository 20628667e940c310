package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "chartkeep", cmd.Use)
	assert.Contains(t, cmd.Long, "CHARTKEEP_")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"patient", "get"}, {"patient", "list"}, {"patient", "save"},
		{"section", "names"}, {"section", "get"}, {"section", "put"}, {"section", "doc"}, {"section", "patch"},
		{"draft", "get"}, {"draft", "save"}, {"draft", "clear"},
		{"audit", "list"},
		{"call", "end"},
		{"seed"},
	}

	for _, path := range commands {
		name := path[len(path)-1]
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "", configFlag.DefValue)
}

func TestCallEndCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	endCmd, _, err := cmd.Find([]string{"call", "end"})
	require.NoError(t, err)

	for _, name := range []string{"patient", "appointment", "doctor", "visit"} {
		assert.NotNil(t, endCmd.Flags().Lookup(name), "flag --%s", name)
	}
}

func TestSectionPutCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	putCmd, _, err := cmd.Find([]string{"section", "put"})
	require.NoError(t, err)

	dataFlag := putCmd.Flags().Lookup("data")
	require.NotNil(t, dataFlag)
	// --data is required, so default is empty
	assert.Equal(t, "", dataFlag.DefValue)

	actorFlag := putCmd.Flags().Lookup("actor")
	require.NotNil(t, actorFlag)
	assert.Equal(t, "", actorFlag.DefValue)
}

func TestPatientSaveCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	saveCmd, _, err := cmd.Find([]string{"patient", "save"})
	require.NoError(t, err)

	actionFlag := saveCmd.Flags().Lookup("action")
	require.NotNil(t, actionFlag)
	assert.Equal(t, "update", actionFlag.DefValue)
}
