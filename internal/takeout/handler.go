package takeout

import (
	"fmt"
	"strings"
	"time"
)

// Phase is a step of the per-file extraction state machine
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseNamedValues
	PhaseGlobalBlocks
	PhaseScopedBlocks
	PhaseMerge
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseNamedValues:
		return "named-values"
	case PhaseGlobalBlocks:
		return "global-blocks"
	case PhaseScopedBlocks:
		return "scoped-blocks"
	case PhaseMerge:
		return "merge"
	}
	return "unknown"
}

// pass holds the transient state of one Process call
type pass struct {
	session *Session
	file    FileInput
	phase   Phase

	siteOps      map[int]Instruction
	tokens       map[int]string // scoped site index -> class name
	containerOps []Instruction

	undo    []func() // reverts registry and binding writes, newest last
	updates int      // registry update counter when the pass started
}

// Process runs the extraction phases over one file and returns the edits the
// host must apply. Any failing site aborts the whole file: no instructions are
// returned and the bindings and blocks the file wrote are rolled back, so
// the registry holds what it held before the call. Short names assigned
// during the pass are kept.
func (s *Session) Process(file FileInput) ([]Instruction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	p := &pass{
		session: s,
		file:    file,
		siteOps: make(map[int]Instruction),
		tokens:  make(map[int]string),
		updates: s.registry.Updates(),
	}

	steps := []struct {
		phase Phase
		run   func() error
	}{
		{PhaseNamedValues, p.namedValues},
		{PhaseGlobalBlocks, p.globalBlocks},
		{PhaseScopedBlocks, p.scopedBlocks},
		{PhaseMerge, p.merge},
	}
	for _, step := range steps {
		p.phase = step.phase
		if err := step.run(); err != nil {
			s.logger.Debug("extraction aborted", "file", file.Path, "phase", step.phase.String(), "error", err)
			p.rollback()
			return nil, err
		}
	}
	p.phase = PhaseIdle

	instructions := p.instructions()
	if s.cfg.Timing {
		s.logger.Info("processed file",
			"file", file.Path,
			"sites", len(file.Sites),
			"instructions", len(instructions),
			"duration", time.Since(start))
	}
	return instructions, nil
}

func (p *pass) namedValues() error {
	for i, site := range p.file.Sites {
		if site.Kind != SiteDecl {
			continue
		}
		if site.Binding.Form == BindingNone || site.Binding.Name == "" {
			return siteError(site, ErrUnrecognizedBindingForm)
		}
		if err := p.define(site.Binding.Name, site.Template); err != nil {
			return siteError(site, err)
		}
		p.siteOps[i] = Instruction{Op: OpRemove, Site: i, Container: -1}
	}
	return nil
}

func (p *pass) globalBlocks() error {
	for i, site := range p.file.Sites {
		if site.Kind != SiteGlobal {
			continue
		}
		key, text, err := p.compileSite(site, func(string) string { return "" })
		if err != nil {
			return siteError(site, err)
		}
		p.put(p.session.registry.globals, key, text)
		p.siteOps[i] = Instruction{Op: OpRemove, Site: i, Container: -1}
	}
	return nil
}

func (p *pass) scopedBlocks() error {
	prefix := p.session.cfg.ClassPrefix
	for i, site := range p.file.Sites {
		if site.Kind != SiteScoped {
			continue
		}
		var token string
		key, text, err := p.compileSite(site, func(key string) string {
			token = prefix + key
			return "." + EscapeClassName(token)
		})
		if err != nil {
			return siteError(site, err)
		}
		p.put(p.session.registry.scoped, key, text)
		p.tokens[i] = token
		p.siteOps[i] = Instruction{Op: OpReplaceString, Site: i, Container: -1, Value: token}
	}
	return nil
}

// define binds name and records how to restore the previous binding
func (p *pass) define(name string, tmpl Template) error {
	values := p.session.values
	prev, existed := values.Lookup(name)
	if _, err := values.Define(name, tmpl); err != nil {
		return err
	}
	p.undo = append(p.undo, func() {
		if existed {
			values.values[name] = prev
			return
		}
		delete(values.values, name)
	})
	return nil
}

// put registers a block and records how to restore the previous text
func (p *pass) put(set *blockSet, key, text string) {
	prev, existed := set.get(key)
	set.put(key, text)
	p.session.registry.updates++
	p.undo = append(p.undo, func() {
		if existed {
			set.put(key, prev)
			return
		}
		set.remove(key)
	})
}

// rollback reverts the pass's writes newest first
func (p *pass) rollback() {
	for i := len(p.undo) - 1; i >= 0; i-- {
		p.undo[i]()
	}
	p.undo = nil
	p.session.registry.updates = p.updates
}

// compileSite reconstructs, preprocesses and formats a block. The short name
// is assigned only after the template resolved.
func (p *pass) compileSite(site Site, selector func(key string) string) (string, string, error) {
	s := p.session
	raw, err := MergeTemplate(site.Template, s.values)
	if err != nil {
		return "", "", err
	}

	key, err := s.locationKey(site.Loc)
	if err != nil {
		return "", "", err
	}

	css, err := s.cfg.Preprocessor.Preprocess(selector(key), raw)
	if err != nil {
		return "", "", fmt.Errorf("preprocess %s: %w", key, err)
	}
	if s.cfg.Formatter != nil {
		css = s.cfg.Formatter.Format(css)
	}
	return key, css, nil
}

// instructions returns site edits in site order followed by container edits
func (p *pass) instructions() []Instruction {
	out := make([]Instruction, 0, len(p.siteOps)+len(p.containerOps))
	for i := range p.file.Sites {
		if op, ok := p.siteOps[i]; ok {
			out = append(out, op)
		}
	}
	return append(out, p.containerOps...)
}

// EscapeClassName escapes the characters a LocationKey may contain that are
// not valid in a CSS class selector
func EscapeClassName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch r {
		case '.', ':', '+':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
