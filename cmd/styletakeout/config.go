package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/nettybun/styletakeout"
	"github.com/nettybun/styletakeout/internal/csscompile"
	"github.com/nettybun/styletakeout/internal/takeout"
)

const (
	defaultConfigFile = ".styletakeout.yaml"
	envPrefix         = "STYLETAKEOUT_"

	logFileKey       = "log.file"
	logLevelKey      = "log.level"
	logMaxSizeKey    = "log.max-size"
	logMaxBackupsKey = "log.max-backups"
	logMaxAgeKey     = "log.max-age"
	logCompressKey   = "log.compress"

	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
)

var k = koanf.New(".")

// loadConfig loads configuration with precedence: flags > env > file > defaults.
// It must be called after cobra parses flags (in PreRunE or RunE).
func loadConfig(cmd *cobra.Command) error {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = defaultConfigFile
	}

	if err := loadConfigFromPath(configPath); err != nil {
		return err
	}

	// 3. CLI flags (highest precedence). Without a koanf instance posflag only
	// loads flags that were explicitly set, so defaults never shadow the file.
	if err := k.Load(posflag.Provider(cmd.Flags(), ".", nil), nil); err != nil {
		return fmt.Errorf("loading command flags: %w", err)
	}

	return nil
}

// loadConfigFromPath loads configuration from a file and environment variables.
// This is separated from loadConfig to allow testing without a cobra command.
func loadConfigFromPath(configPath string) error {
	// 1. Config file (lowest precedence among providers)
	if _, err := os.Stat(configPath); err == nil {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return fmt.Errorf("loading config file %s: %w", configPath, err)
		}
	}

	// 2. Environment variables (STYLETAKEOUT_* prefix)
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return fmt.Errorf("loading environment variables: %w", err)
	}

	return nil
}

// envKey maps environment variable names onto config keys:
//
//	STYLETAKEOUT_CLASS_PREFIX    -> class-prefix
//	STYLETAKEOUT_BUILD__OUT_DIR  -> build.out-dir
//	STYLETAKEOUT_LOG__LEVEL      -> log.level
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	parts := strings.Split(s, "__")
	for i, part := range parts {
		parts[i] = strings.ReplaceAll(part, "_", "-")
	}
	return strings.Join(parts, ".")
}

// buildConfig constructs the library's Config struct from koanf state
func buildConfig() styletakeout.Config {
	defaults := styletakeout.DefaultConfig()

	config := styletakeout.Config{
		Root:                    getStringWithFallback("root", "build.root", defaults.Root),
		OutDir:                  getStringWithFallback("out-dir", "build.out-dir", defaults.OutDir),
		Jobs:                    getIntWithFallback("jobs", "build.jobs", defaults.Jobs),
		ClassPrefix:             getStringWithFallback("class-prefix", "class-prefix", defaults.ClassPrefix),
		ClassUseEnclosingFolder: getBoolWithFallback("class-use-enclosing-folder", "class-use-enclosing-folder", defaults.ClassUseEnclosingFolder),
		OutputFile:              getStringWithFallback("output-file", "output-file", defaults.OutputFile),
		VariablesRoot:           getStringWithFallback("variables-root", "variables-root", defaults.VariablesRoot),
		Quiet:                   getBoolWithFallback("quiet", "quiet", false),
		Timing:                  getBoolWithFallback("timing", "timing", false),
		UseColors:               getBoolWithFallback("color", "color", false),
		WatchDebounce:           getDurationWithFallback("debounce", "watch.debounce", defaults.WatchDebounce),
	}

	config.Completion = takeout.CompletionSignal{
		Enabled:     getBoolWithFallback("completion-heuristic", "completion.enabled", defaults.Completion.Enabled),
		MatchPrefix: getStringWithFallback("completion-prefix", "completion.match-prefix", defaults.Completion.MatchPrefix),
	}

	// Handle includes: check flag key first, then config key
	if includes := k.Strings("include"); len(includes) > 0 {
		config.Includes = includes
	} else if includes := k.Strings("build.include"); len(includes) > 0 {
		config.Includes = includes
	} else {
		config.Includes = defaults.Includes
	}

	config.Beautify, config.BeautifyOptions = beautifyConfig()

	if vars, ok := k.Get("variables").(map[string]any); ok {
		config.Variables = vars
	}

	return config
}

// beautifyConfig reads "beautify", which is either a bool or a map of
// formatter options (which implies enabled)
func beautifyConfig() (bool, csscompile.Options) {
	opts := csscompile.DefaultOptions()

	if k.Exists("beautify.indent") || k.Exists("beautify.openbrace") || k.Exists("beautify.autosemicolon") {
		if k.Exists("beautify.indent") {
			opts.Indent = k.String("beautify.indent")
		}
		if k.Exists("beautify.openbrace") {
			opts.OpenBrace = k.String("beautify.openbrace")
		}
		if k.Exists("beautify.autosemicolon") {
			opts.AutoSemicolon = k.Bool("beautify.autosemicolon")
		}
		return true, opts
	}

	return getBoolWithFallback("beautify", "beautify", true), opts
}

// reporterConfig constructs console output settings from koanf state
func reporterConfig() styletakeout.ReporterConfig {
	return styletakeout.ReporterConfig{
		Quiet:           getBoolWithFallback("quiet", "quiet", false),
		UseColors:       getBoolWithFallback("color", "color", false),
		PrintLines:      getBoolWithFallback("print-lines", "output.print-lines", true),
		PrintLinterName: getBoolWithFallback("print-linter-name", "output.print-linter-name", true),
	}
}

// parseSlogLevel parses a slog level name or number
func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Allow numeric slog levels as well (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger builds the diagnostic logger and installs it as the slog default.
//
// With log.file set, records go to a rotating file; otherwise to stderr.
// verbose forces debug, timing lowers the level to info so durations show.
func configureLogger(stderr io.Writer) *slog.Logger {
	level := parseSlogLevel(getStringWithFallback("log-level", logLevelKey, ""), slog.LevelWarn)
	if getBoolWithFallback("verbose", "verbose", false) {
		level = slog.LevelDebug
	} else if getBoolWithFallback("timing", "timing", false) && level > slog.LevelInfo {
		level = slog.LevelInfo
	}

	var w io.Writer = stderr
	if logPath := getStringWithFallback("log-file", logFileKey, ""); logPath != "" {
		w = &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    getIntWithFallback(logMaxSizeKey, logMaxSizeKey, defaultLogMaxSize),
			MaxBackups: getIntWithFallback(logMaxBackupsKey, logMaxBackupsKey, defaultLogMaxBackups),
			MaxAge:     getIntWithFallback(logMaxAgeKey, logMaxAgeKey, defaultLogMaxAge),
			Compress:   getBoolWithFallback(logCompressKey, logCompressKey, true),
		}
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		AddSource: level <= slog.LevelDebug,
		Level:     level,
	}))
	slog.SetDefault(logger)
	return logger
}

// getStringWithFallback checks the flag key first, then the config file key, then returns the default.
func getStringWithFallback(flagKey, configKey, defaultVal string) string {
	if v := k.String(flagKey); v != "" {
		return v
	}
	if v := k.String(configKey); v != "" {
		return v
	}
	return defaultVal
}

// getBoolWithFallback checks the flag key first, then the config file key, then returns the default.
func getBoolWithFallback(flagKey, configKey string, defaultVal bool) bool {
	if k.Exists(flagKey) {
		return k.Bool(flagKey)
	}
	if k.Exists(configKey) {
		return k.Bool(configKey)
	}
	return defaultVal
}

// getIntWithFallback checks the flag key first, then the config file key, then returns the default.
func getIntWithFallback(flagKey, configKey string, defaultVal int) int {
	if k.Exists(flagKey) {
		return k.Int(flagKey)
	}
	if k.Exists(configKey) {
		return k.Int(configKey)
	}
	return defaultVal
}

// getDurationWithFallback checks the flag key first, then the config file key, then returns the default.
func getDurationWithFallback(flagKey, configKey string, defaultVal time.Duration) time.Duration {
	if k.Exists(flagKey) {
		return k.Duration(flagKey)
	}
	if k.Exists(configKey) {
		return k.Duration(configKey)
	}
	return defaultVal
}
