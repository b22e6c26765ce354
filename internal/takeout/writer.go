package takeout

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// SidecarSuffix is appended to the output file name for the short name map
const SidecarSuffix = ".map.json"

// FlushResult summarizes one Flush
type FlushResult struct {
	OutputFile  string
	SidecarFile string
	Updated     int           // Registrations since the previous flush
	Total       int           // Blocks in the registry
	First       bool          // First flush of the session
	Wrote       bool          // Output file was (re)written
	WroteMap    bool          // Side-car map was (re)written
	Elapsed     time.Duration // Time spent rendering and writing
}

var blankRuns = regexp.MustCompile(`\}\n{3,}`)

// Flush writes the consolidated stylesheet and, when new files were named, the
// side-car map. The output is rewritten wholesale and skipped when nothing
// changed since a previous successful write.
func (s *Session) Flush() (FlushResult, error) {
	result, err := s.flush()
	if err != nil {
		return result, err
	}
	if s.cfg.OnFlush != nil {
		s.cfg.OnFlush(result)
	}
	return result, nil
}

func (s *Session) flush() (FlushResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	updated := s.registry.TakeUpdates()
	result := FlushResult{
		OutputFile:  s.cfg.OutputFile,
		SidecarFile: SidecarPath(s.cfg.OutputFile),
		Updated:     updated,
		Total:       s.registry.Len(),
		First:       s.flushes == 0,
	}

	if updated > 0 || !s.written {
		content := RenderStylesheet(s.registry.Globals(), s.registry.ScopedBlocks())
		if err := writeFile(result.OutputFile, []byte(content)); err != nil {
			// Keep the count so the next flush retries
			s.registry.updates += updated
			return result, err
		}
		s.written = true
		result.Wrote = true
	}

	if s.names.Pending() {
		content, err := RenderShortNameMap(s.names.Entries())
		if err != nil {
			return result, err
		}
		if err := writeFile(result.SidecarFile, content); err != nil {
			return result, err
		}
		s.names.MarkWritten()
		result.WroteMap = true
	}

	s.flushes++
	result.Elapsed = time.Since(start)
	if s.cfg.Timing {
		s.logger.Info("flushed stylesheet",
			"file", result.OutputFile,
			"updated", result.Updated,
			"total", result.Total,
			"duration", result.Elapsed)
	}
	return result, nil
}

// RenderStylesheet serializes global blocks, each under a /* key */ comment,
// followed by scoped blocks
func RenderStylesheet(globals, scoped []Block) string {
	var b strings.Builder
	for _, block := range globals {
		fmt.Fprintf(&b, "/* %s */\n%s\n", block.Key, block.Text)
	}
	for _, block := range scoped {
		b.WriteString(block.Text)
		b.WriteByte('\n')
	}
	return blankRuns.ReplaceAllString(b.String(), "}\n\n")
}

// RenderShortNameMap encodes short name -> path as a JSON object in first-seen order
func RenderShortNameMap(entries []ShortPath) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, entry := range entries {
		name, err := jsonString(entry.Name)
		if err != nil {
			return nil, err
		}
		p, err := jsonString(entry.Path)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, "  %s: %s", name, p)
		if i < len(entries)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

// ReadShortNameMap loads a side-car map preserving its order
func ReadShortNameMap(path string) ([]ShortPath, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read short name map: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil, fmt.Errorf("short name map %s: expected a JSON object", path)
	}

	var entries []ShortPath
	for dec.More() {
		var name, file string
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("short name map %s: %w", path, err)
		}
		name, _ = tok.(string)
		if err := dec.Decode(&file); err != nil {
			return nil, fmt.Errorf("short name map %s: %w", path, err)
		}
		entries = append(entries, ShortPath{Name: name, Path: file})
	}
	return entries, nil
}

// SidecarPath returns the short name map location for an output file
func SidecarPath(outputFile string) string {
	return outputFile + SidecarSuffix
}

func jsonString(s string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
