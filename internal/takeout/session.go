// Package takeout is the snippet extraction and consolidation engine.
//
// A Session lives for the whole process. The host hands it one parsed file at
// a time (Process), applies the returned instructions to its own syntax tree,
// and calls Flush when it believes compilation finished. Short names, decl
// bindings and extracted blocks accumulate across files and across repeated
// passes over the same file.
package takeout

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// Preprocessor flattens nested style text. selector is empty for global blocks.
type Preprocessor interface {
	Preprocess(selector, raw string) (string, error)
}

// PreprocessorFunc adapts a function to Preprocessor
type PreprocessorFunc func(selector, raw string) (string, error)

func (f PreprocessorFunc) Preprocess(selector, raw string) (string, error) {
	return f(selector, raw)
}

// Formatter pretty-prints compiled CSS
type Formatter interface {
	Format(css string) string
}

// FormatterFunc adapts a function to Formatter
type FormatterFunc func(css string) string

func (f FormatterFunc) Format(css string) string {
	return f(css)
}

// CompletionSignal configures the text heuristic that means "the host finished a run"
type CompletionSignal struct {
	Enabled     bool
	MatchPrefix string // "Successfully compiled"
}

// Config holds session configuration. The first session created wins; it is never reloaded.
type Config struct {
	ClassPrefix             string           // "css-"
	ClassUseEnclosingFolder bool             // components/button/index.tsx -> button+0
	OutputFile              string           // "build/takeout.css"
	Timing                  bool             // Log per-file and per-flush durations
	Completion              CompletionSignal // Host output heuristic that triggers a flush
	Variables               map[string]any   // Variable tree, aliases start with "$"
	VariablesRoot           string           // Identifier rooting tree references (default: decl)
	Preprocessor            Preprocessor     // Required
	Formatter               Formatter        // nil leaves compiled CSS as is
	OnFlush                 func(FlushResult)
	Logger                  *slog.Logger
}

// DefaultConfig returns the stock configuration minus the collaborators
func DefaultConfig() Config {
	return Config{
		ClassPrefix:             "css-",
		ClassUseEnclosingFolder: true,
		OutputFile:              "build/takeout.css",
		Completion: CompletionSignal{
			Enabled:     true,
			MatchPrefix: "Successfully compiled",
		},
		VariablesRoot: DefaultVariablesRoot,
	}
}

// Session is the process-wide extraction context
type Session struct {
	mu       sync.Mutex
	cfg      Config
	logger   *slog.Logger
	names    *PathNamer
	values   *ValueStore
	registry *Registry

	flushes       int
	written       bool
	sawCompletion bool
}

// NewSession validates cfg and creates an empty session
func NewSession(cfg Config) (*Session, error) {
	if cfg.Preprocessor == nil {
		return nil, errors.New("takeout: a preprocessor is required")
	}
	if strings.TrimSpace(cfg.OutputFile) == "" {
		return nil, errors.New("takeout: output file is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Session{
		cfg:      cfg,
		logger:   logger,
		names:    NewPathNamer(cfg.ClassUseEnclosingFolder),
		values:   NewValueStore(NewVariableTree(cfg.Variables), cfg.VariablesRoot),
		registry: NewRegistry(),
	}, nil
}

// Config returns the configuration the session was created with
func (s *Session) Config() Config {
	return s.cfg
}

// Names exposes the path namer. Callers must not use it concurrently with Process.
func (s *Session) Names() *PathNamer {
	return s.names
}

// Values exposes the value store. Callers must not use it concurrently with Process.
func (s *Session) Values() *ValueStore {
	return s.values
}

// Registry exposes the block registry. Callers must not use it concurrently with Process.
func (s *Session) Registry() *Registry {
	return s.registry
}

// ShortNames returns the short name assignments in first-seen order
func (s *Session) ShortNames() []ShortPath {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.names.Entries()
}

// locationKey builds ShortName:line:column for loc
func (s *Session) locationKey(loc SourceLocation) (string, error) {
	name, err := s.names.ShortName(loc.File)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d:%d", name, loc.Line, loc.Column), nil
}

// NotifyCompletionHeuristic flushes when text looks like the host's "finished" message.
// It reports whether the text matched.
func (s *Session) NotifyCompletionHeuristic(text string) (bool, error) {
	signal := s.cfg.Completion
	if !signal.Enabled || signal.MatchPrefix == "" || !strings.HasPrefix(text, signal.MatchPrefix) {
		return false, nil
	}

	s.mu.Lock()
	s.sawCompletion = true
	s.mu.Unlock()

	_, err := s.Flush()
	return true, err
}

// SawCompletion reports whether the completion heuristic ever matched
func (s *Session) SawCompletion() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sawCompletion
}

// FlushOnExit is the process-exit fallback. Flushing twice is harmless.
func (s *Session) FlushOnExit() (FlushResult, error) {
	return s.Flush()
}

// CompletionWriter wraps w so every write is checked against the completion heuristic
func (s *Session) CompletionWriter(w io.Writer) io.Writer {
	return &completionWriter{w: w, session: s}
}

type completionWriter struct {
	w       io.Writer
	session *Session
}

func (c *completionWriter) Write(p []byte) (int, error) {
	// Pass the text through first so a failing flush can't swallow it
	n, err := c.w.Write(p)
	if _, flushErr := c.session.NotifyCompletionHeuristic(string(p)); flushErr != nil {
		c.session.logger.Error("flush after completion signal failed", "error", flushErr)
	}
	return n, err
}
