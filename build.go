package styletakeout

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/nettybun/styletakeout/internal/source"
	"github.com/nettybun/styletakeout/internal/takeout"
)

// FileResult is the outcome for one source file
type FileResult struct {
	Path       string // Relative to Config.Root
	Sites      int    // Extraction sites found
	Changed    bool   // The file was rewritten
	OutputPath string // Where the file was written; empty without OutDir
	Err        error
}

// BuildResult summarizes one build or rebuild
type BuildResult struct {
	FilesDiscovered int
	FilesScanned    int
	FilesSkipped    int
	Files           []FileResult
	Sites           int
	Flush           takeout.FlushResult
	ShortNames      []takeout.ShortPath
	Issues          []Issue
	Duration        time.Duration
}

// ErrorCount returns the number of error-severity issues
func (r *BuildResult) ErrorCount() int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			n++
		}
	}
	return n
}

// Builder runs source files through one long-lived extraction session
type Builder struct {
	cfg     Config
	session *takeout.Session
	parser  *source.Parser
	logger  *slog.Logger
}

// NewBuilder creates the session and parser for cfg
func NewBuilder(cfg Config) (*Builder, error) {
	session, err := NewSession(cfg)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Builder{
		cfg:     cfg,
		session: session,
		parser:  source.NewParser(cfg.Tags),
		logger:  logger,
	}, nil
}

// Config returns the configuration the builder was created with
func (b *Builder) Config() Config {
	return b.cfg
}

// Session returns the extraction session shared by every run
func (b *Builder) Session() *takeout.Session {
	return b.session
}

// Build is the main entry point: discover, extract, rewrite and flush
func Build(ctx context.Context, cfg Config) (*BuildResult, error) {
	builder, err := NewBuilder(cfg)
	if err != nil {
		return nil, err
	}
	return builder.Build(ctx)
}

// Build discovers the configured sources, runs them and flushes the stylesheet.
// Per-file failures are reported as issues and aggregated into the returned
// error; the stylesheet is flushed regardless.
func (b *Builder) Build(ctx context.Context) (*BuildResult, error) {
	start := time.Now()

	files, stats, err := DiscoverSources(b.cfg.Root, b.cfg.Includes, b.excludes()...)
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	result, runErr := b.Run(ctx, files)
	if result == nil {
		return nil, runErr
	}
	result.FilesDiscovered = stats.FilesDiscovered
	result.FilesSkipped = stats.FilesSkipped

	flush, err := b.session.Flush()
	if err != nil {
		return result, multierror.Append(runErr, fmt.Errorf("flush failed: %w", err))
	}
	result.Flush = flush
	result.Duration = time.Since(start)

	return result, runErr
}

// excludes keeps rewritten output from being discovered as input
func (b *Builder) excludes() []string {
	if b.cfg.OutDir == "" {
		return nil
	}
	return []string{b.cfg.resolve(b.cfg.OutDir)}
}

// parsedFile is what the parallel stage hands to the sequential one
type parsedFile struct {
	src  []byte
	file *source.File // nil when the file cannot contain sites
	err  error
}

// Run extracts files (relative to Root) without flushing. Reading and parsing
// run in parallel; extraction runs in path order so short name counters are
// the same on every build.
func (b *Builder) Run(ctx context.Context, files []string) (*BuildResult, error) {
	start := time.Now()
	parsed := make([]parsedFile, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.jobs())
	for i, rel := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			parsed[i] = b.parse(rel)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &BuildResult{
		FilesScanned: len(files),
		Files:        make([]FileResult, 0, len(files)),
	}
	var errs *multierror.Error

	for i, rel := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fileStart := time.Now()
		fr := b.extract(rel, parsed[i])
		result.Files = append(result.Files, fr)
		result.Sites += fr.Sites

		if fr.Err != nil {
			result.Issues = append(result.Issues, NewIssue(rel, parsed[i].src, fr.Err))
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", rel, fr.Err))
			continue
		}
		if b.cfg.Timing {
			b.logger.Info("extracted file", "file", rel, "sites", fr.Sites, "duration", time.Since(fileStart))
		}
	}

	result.ShortNames = b.session.ShortNames()
	result.Duration = time.Since(start)
	return result, errs.ErrorOrNil()
}

func (b *Builder) jobs() int {
	if b.cfg.Jobs > 0 {
		return b.cfg.Jobs
	}
	return runtime.NumCPU()
}

// parse reads and parses one file; safe to call concurrently
func (b *Builder) parse(rel string) parsedFile {
	src, err := os.ReadFile(b.cfg.resolve(rel))
	if err != nil {
		return parsedFile{err: fmt.Errorf("failed to read %s: %w", rel, err)}
	}
	if !b.parser.MayContainSites(src) {
		return parsedFile{src: src}
	}

	f, err := b.parser.Parse(filepath.ToSlash(rel), src)
	if err != nil {
		return parsedFile{src: src, err: err}
	}
	return parsedFile{src: src, file: f}
}

// extract runs one parsed file through the session and writes the result
func (b *Builder) extract(rel string, p parsedFile) FileResult {
	fr := FileResult{Path: rel}
	if p.err != nil {
		fr.Err = p.err
		return fr
	}

	out := p.src
	if p.file != nil {
		fr.Sites = len(p.file.Input.Sites)

		instructions, err := b.session.Process(p.file.Input)
		if err != nil {
			fr.Err = err
			return fr
		}
		if len(instructions) > 0 {
			rewritten, err := source.Rewrite(p.file, instructions)
			if err != nil {
				fr.Err = fmt.Errorf("rewrite failed: %w", err)
				return fr
			}
			out = rewritten
			fr.Changed = true
		}
	}

	if b.cfg.OutDir == "" {
		return fr
	}

	target := filepath.Join(b.cfg.resolve(b.cfg.OutDir), rel)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		fr.Err = fmt.Errorf("failed to create directory for %s: %w", target, err)
		return fr
	}
	if err := os.WriteFile(target, out, 0o644); err != nil {
		fr.Err = fmt.Errorf("failed to write %s: %w", target, err)
		return fr
	}
	fr.OutputPath = target
	return fr
}
