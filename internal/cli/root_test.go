package cli

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "guardvault", cmd.Use)
	assert.Contains(t, cmd.Long, "journaled")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"validate", "invoke", "actions", "replay", "trace", "watch", "test", "fingerprint"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
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
	assert.Equal(t, "c", configFlag.Shorthand)
}

func TestInvokeCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	invokeCmd, _, err := cmd.Find([]string{"invoke"})
	require.NoError(t, err)

	for _, name := range []string{"db", "manifest", "as", "args", "flow", "at", "advance"} {
		assert.NotNil(t, invokeCmd.Flags().Lookup(name), "flag --%s", name)
	}
	assert.Equal(t, "{}", invokeCmd.Flags().Lookup("args").DefValue)
}

func TestInvalidFormat(t *testing.T) {
	_, _, err := execute(t, "actions", "--format", "xml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestConfigLoading(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, _, err := execute(t, "actions", "--config", "/nonexistent/guardvault.toml")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, err.Error(), "failed to load config")
	})

	t.Run("unknown key", func(t *testing.T) {
		path := writeFile(t, "guardvault.toml", "[store]\npath = \"x.db\"\nbogus = 1\n")
		_, _, err := execute(t, "actions", "--config", path)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("paths come from config", func(t *testing.T) {
		opts := &RootOptions{}
		path := writeFile(t, "guardvault.toml", "[store]\npath = \"from-config.db\"\n\n[manifest]\npath = \"from-config.cue\"\n")
		opts.ConfigPath = path
		require.NoError(t, opts.load(&discard{}))

		assert.Equal(t, "from-config.db", opts.storePath(""))
		assert.Equal(t, "flag.db", opts.storePath("flag.db"))
		assert.Equal(t, "from-config.cue", opts.manifestPath(""))
		assert.Equal(t, "flag.cue", opts.manifestPath("flag.cue"))
	})

	t.Run("defaults without config", func(t *testing.T) {
		opts := &RootOptions{}
		assert.Equal(t, "guardvault.db", opts.storePath(""))
		assert.Equal(t, "deploy.cue", opts.manifestPath(""))
		assert.Equal(t, slog.Default(), opts.logger())
	})

	t.Run("verbose lowers level", func(t *testing.T) {
		opts := &RootOptions{Verbose: true}
		require.NoError(t, opts.load(&discard{}))
		assert.Equal(t, "debug", opts.Config.Log.Level)
		require.NotNil(t, opts.Logger)
	})
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
