package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/knadh/koanf/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nettybun/styletakeout"
	"github.com/nettybun/styletakeout/internal/csscompile"
)

// resetKoanf creates a fresh koanf instance for each test.
func resetKoanf() {
	k = koanf.New(".")
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), defaultConfigFile)
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))
	return configPath
}

func TestConfigFileLoading(t *testing.T) {
	resetKoanf()

	configPath := writeConfig(t, `
class-prefix: x-
class-use-enclosing-folder: false
output-file: public/app.css
variables-root: theme
variables:
  colors:
    blue: "#00f"
build:
  root: web
  out-dir: dist
  jobs: 4
  include:
    - "app/**/*.tsx"
watch:
  debounce: 250ms
completion:
  enabled: false
`)
	require.NoError(t, loadConfigFromPath(configPath))

	config := buildConfig()
	assert.Equal(t, "x-", config.ClassPrefix)
	assert.False(t, config.ClassUseEnclosingFolder)
	assert.Equal(t, "public/app.css", config.OutputFile)
	assert.Equal(t, "theme", config.VariablesRoot)
	assert.Equal(t, map[string]any{"colors": map[string]any{"blue": "#00f"}}, config.Variables)
	assert.Equal(t, "web", config.Root)
	assert.Equal(t, "dist", config.OutDir)
	assert.Equal(t, 4, config.Jobs)
	assert.Equal(t, []string{"app/**/*.tsx"}, config.Includes)
	assert.Equal(t, 250*time.Millisecond, config.WatchDebounce)
	assert.False(t, config.Completion.Enabled)
	assert.Equal(t, "Successfully compiled", config.Completion.MatchPrefix)
}

func TestConfigFileNotFound_UsesDefaults(t *testing.T) {
	resetKoanf()

	// A missing config file is not an error
	require.NoError(t, loadConfigFromPath("/nonexistent/.styletakeout.yaml"))

	defaults := styletakeout.DefaultConfig()
	config := buildConfig()
	assert.Equal(t, defaults.Root, config.Root)
	assert.Equal(t, defaults.Includes, config.Includes)
	assert.Equal(t, "css-", config.ClassPrefix)
	assert.True(t, config.ClassUseEnclosingFolder)
	assert.Equal(t, "build/takeout.css", config.OutputFile)
	assert.Empty(t, config.OutDir)
	assert.True(t, config.Beautify)
	assert.Equal(t, csscompile.DefaultOptions(), config.BeautifyOptions)
	assert.Equal(t, "decl", config.VariablesRoot)
	assert.True(t, config.Completion.Enabled)
	assert.Equal(t, defaults.WatchDebounce, config.WatchDebounce)
	assert.Nil(t, config.Variables)
}

func TestEnvVarOverridesConfigFile(t *testing.T) {
	resetKoanf()

	configPath := writeConfig(t, `
class-prefix: from-file-
build:
  out-dir: from-file
`)

	// Set env vars that should override config file
	t.Setenv("STYLETAKEOUT_CLASS_PREFIX", "env-")
	t.Setenv("STYLETAKEOUT_BUILD__OUT_DIR", "from-env")

	require.NoError(t, loadConfigFromPath(configPath))

	assert.Equal(t, "env-", k.String("class-prefix"))
	assert.Equal(t, "from-env", k.String("build.out-dir"))

	config := buildConfig()
	assert.Equal(t, "env-", config.ClassPrefix)
	assert.Equal(t, "from-env", config.OutDir)
}

func TestEnvKey(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"STYLETAKEOUT_QUIET", "quiet"},
		{"STYLETAKEOUT_CLASS_PREFIX", "class-prefix"},
		{"STYLETAKEOUT_BUILD__OUT_DIR", "build.out-dir"},
		{"STYLETAKEOUT_LOG__MAX_BACKUPS", "log.max-backups"},
		{"STYLETAKEOUT_COMPLETION__MATCH_PREFIX", "completion.match-prefix"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, envKey(tt.env), tt.env)
	}
}

func TestBeautifyConfig(t *testing.T) {
	tests := []struct {
		name       string
		config     string
		wantOn     bool
		wantIndent string
		wantBrace  string
	}{
		{
			name:       "default",
			config:     "quiet: false\n",
			wantOn:     true,
			wantIndent: "  ",
			wantBrace:  csscompile.OpenBraceEndOfLine,
		},
		{
			name:       "disabled",
			config:     "beautify: false\n",
			wantOn:     false,
			wantIndent: "  ",
			wantBrace:  csscompile.OpenBraceEndOfLine,
		},
		{
			name:       "options imply enabled",
			config:     "beautify:\n  indent: \"\\t\"\n  openbrace: separate-line\n",
			wantOn:     true,
			wantIndent: "\t",
			wantBrace:  csscompile.OpenBraceSeparateLine,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetKoanf()
			require.NoError(t, loadConfigFromPath(writeConfig(t, tt.config)))

			on, opts := beautifyConfig()
			assert.Equal(t, tt.wantOn, on)
			assert.Equal(t, tt.wantIndent, opts.Indent)
			assert.Equal(t, tt.wantBrace, opts.OpenBrace)
			assert.True(t, opts.AutoSemicolon)
		})
	}
}

func TestReporterConfig_FromConfigFile(t *testing.T) {
	resetKoanf()

	require.NoError(t, loadConfigFromPath(writeConfig(t, `
quiet: true
output:
  print-lines: false
`)))

	config := reporterConfig()
	assert.True(t, config.Quiet)
	assert.False(t, config.PrintLines)
	assert.True(t, config.PrintLinterName)
}

func TestParseSlogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelWarn},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"-4", slog.LevelDebug},
		{"loud", slog.LevelWarn},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseSlogLevel(tt.in, slog.LevelWarn), "level %q", tt.in)
	}
}

func TestConfigureLogger(t *testing.T) {
	t.Cleanup(func() { slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil))) })

	t.Run("default level is warn", func(t *testing.T) {
		resetKoanf()
		var buf bytes.Buffer
		logger := configureLogger(&buf)
		logger.Info("hidden")
		logger.Warn("shown")
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})

	t.Run("timing raises to info", func(t *testing.T) {
		resetKoanf()
		require.NoError(t, loadConfigFromPath(writeConfig(t, "timing: true\n")))
		var buf bytes.Buffer
		configureLogger(&buf).Info("flushed")
		assert.Contains(t, buf.String(), "flushed")
	})

	t.Run("log file", func(t *testing.T) {
		resetKoanf()
		logPath := filepath.Join(t.TempDir(), "styletakeout.log")
		t.Setenv("STYLETAKEOUT_LOG__FILE", logPath)
		require.NoError(t, loadConfigFromPath("/nonexistent/.styletakeout.yaml"))

		var buf bytes.Buffer
		configureLogger(&buf).Error("to file")
		assert.Empty(t, buf.String())

		data, err := os.ReadFile(logPath)
		require.NoError(t, err)
		assert.Contains(t, string(data), "to file")
	})
}

// chdirTemp runs the test inside a fresh temp directory
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		_ = os.Chdir(origDir)
	})
	return dir
}

func TestInitCommand_CreatesConfigFile(t *testing.T) {
	chdirTemp(t)

	cmd := rootCmd
	cmd.SetArgs([]string{"init"})
	require.NoError(t, cmd.Execute())

	// Verify file was created
	data, err := os.ReadFile(defaultConfigFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "class-prefix: css-")
	assert.Contains(t, string(data), "build:")
	assert.Contains(t, string(data), "completion:")
}

func TestInitCommand_RefusesOverwrite(t *testing.T) {
	chdirTemp(t)
	require.NoError(t, os.WriteFile(defaultConfigFile, []byte("existing"), 0o644))

	cmd := rootCmd
	cmd.SetArgs([]string{"init"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	// Verify original content preserved
	data, err := os.ReadFile(defaultConfigFile)
	require.NoError(t, err)
	assert.Equal(t, "existing", string(data))
}

func TestInitCommand_DefaultConfigLoads(t *testing.T) {
	resetKoanf()
	require.NoError(t, loadConfigFromPath(writeConfig(t, defaultConfig)))

	config := buildConfig()
	assert.Equal(t, "dist", config.OutDir)
	assert.Equal(t, 100*time.Millisecond, config.WatchDebounce)
	assert.True(t, config.Beautify)
	assert.Equal(t, map[string]any{"primary": "#4f46e5"}, config.Variables["colors"])
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	cmd := rootCmd
	cmd.SetOut(&buf)
	t.Cleanup(func() { cmd.SetOut(nil) })
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "styletakeout dev\n", buf.String())
}

func TestBuildCommand(t *testing.T) {
	resetKoanf()
	dir := chdirTemp(t)
	t.Setenv("NO_COLOR", "1")

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src", "card"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "card", "index.js"),
		[]byte("export const c = css`color: red;`;\n"), 0o644))

	var out bytes.Buffer
	cmd := rootCmd
	cmd.SetOut(&out)
	t.Cleanup(func() { cmd.SetOut(nil) })
	cmd.SetArgs([]string{"build", "--out-dir", "dist", "--beautify=false"})
	require.NoError(t, cmd.Execute())

	css, err := os.ReadFile(filepath.Join(dir, "build", "takeout.css"))
	require.NoError(t, err)
	assert.Equal(t, ".css-card\\+0\\:1\\:17{color:red;}\n", string(css))

	rewritten, err := os.ReadFile(filepath.Join(dir, "dist", "src", "card", "index.js"))
	require.NoError(t, err)
	assert.Equal(t, "export const c = \"css-card+0:1:17\";\n", string(rewritten))

	assert.Contains(t, out.String(), "Moved 1 CSS snippet")

	// The side-car map is readable by the map command
	out.Reset()
	cmd.SetArgs([]string{"map", "--json"})
	require.NoError(t, cmd.Execute())
	assert.JSONEq(t, `[{"name":"card+0","path":"src/card/index.js"}]`, out.String())
}
