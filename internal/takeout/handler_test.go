package takeout

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flatten is a stand-in preprocessor: whitespace collapsed, wrapped in selector
func flatten(selector, raw string) (string, error) {
	body := strings.Join(strings.Fields(raw), " ")
	if selector == "" {
		return body, nil
	}
	return selector + "{" + body + "}", nil
}

func newTestSession(t *testing.T, mutate ...func(*Config)) *Session {
	t.Helper()
	cfg := DefaultConfig()
	cfg.OutputFile = filepath.Join(t.TempDir(), "build", "takeout.css")
	cfg.Preprocessor = PreprocessorFunc(flatten)
	cfg.Variables = testVariables()
	for _, m := range mutate {
		m(&cfg)
	}
	s, err := NewSession(cfg)
	require.NoError(t, err)
	return s
}

func loc(file string, line, col int) SourceLocation {
	return SourceLocation{File: file, Line: line, Column: col}
}

func scoped(file string, line, col int, tmpl Template) Site {
	return Site{Kind: SiteScoped, Loc: loc(file, line, col), Template: tmpl}
}

func TestNewSessionValidates(t *testing.T) {
	_, err := NewSession(Config{OutputFile: "x.css"})
	require.Error(t, err)

	_, err = NewSession(Config{Preprocessor: PreprocessorFunc(flatten)})
	require.Error(t, err)
}

func TestProcessTwoIndexFiles(t *testing.T) {
	s := newTestSession(t)

	var tokens []string
	for _, file := range []string{"a/index.js", "b/index.js"} {
		instructions, err := s.Process(FileInput{
			Path:  file,
			Sites: []Site{scoped(file, 1, 0, lit("color: red;"))},
		})
		require.NoError(t, err)
		require.Len(t, instructions, 1)
		assert.Equal(t, OpReplaceString, instructions[0].Op)
		assert.Equal(t, 0, instructions[0].Site)
		assert.Equal(t, -1, instructions[0].Container)
		tokens = append(tokens, instructions[0].Value)
	}

	assert.Equal(t, []string{"css-a+0:1:0", "css-b+0:1:0"}, tokens)

	_, err := s.Flush()
	require.NoError(t, err)

	out := readFile(t, s.Config().OutputFile)
	assert.Contains(t, out, `.css-a\+0\:1\:0{color: red;}`)
	assert.Contains(t, out, `.css-b\+0\:1\:0{color: red;}`)
}

func TestProcessUndefinedReference(t *testing.T) {
	s := newTestSession(t)

	instructions, err := s.Process(FileInput{
		Path: "src/card.tsx",
		Sites: []Site{scoped("src/card.tsx", 3, 14, Template{
			Quasis: []string{"color: ", ";"},
			Exprs:  []Expr{ref("missing")},
		})},
	})

	require.ErrorIs(t, err, ErrUndefinedBinding)
	assert.Nil(t, instructions)
	assert.Equal(t, 0, s.Registry().Len())
	assert.Equal(t, 0, s.Registry().Updates())

	var siteErr *SiteError
	require.True(t, errors.As(err, &siteErr))
	assert.Equal(t, loc("src/card.tsx", 3, 14), siteErr.Loc)
	assert.Equal(t, SiteScoped, siteErr.Kind)
	assert.True(t, strings.HasPrefix(err.Error(), "src/card.tsx:3:14: css: "))
}

func TestProcessPhases(t *testing.T) {
	s := newTestSession(t)
	file := "src/header/index.tsx"

	instructions, err := s.Process(FileInput{
		Path: file,
		Sites: []Site{
			// Scoped before decl in source order: decls are still bound first
			scoped(file, 2, 17, Template{
				Quasis: []string{"color: ", "; padding: ", ";"},
				Exprs:  []Expr{ref("primary"), ref("decl", "colors", "brand")},
			}),
			{
				Kind:     SiteDecl,
				Loc:      loc(file, 1, 16),
				Template: lit("#222"),
				Binding:  Binding{Form: BindingVariable, Name: "primary"},
			},
			{
				Kind:     SiteGlobal,
				Loc:      loc(file, 5, 0),
				Template: lit("\n  body { margin: 0; }\n"),
			},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []Instruction{
		{Op: OpReplaceString, Site: 0, Container: -1, Value: "css-header+0:2:17"},
		{Op: OpRemove, Site: 1, Container: -1},
		{Op: OpRemove, Site: 2, Container: -1},
	}, instructions)

	global, ok := s.Registry().Global("header+0:5:0")
	require.True(t, ok)
	assert.Equal(t, "body { margin: 0; }", global)

	block, ok := s.Registry().Scoped("header+0:2:17")
	require.True(t, ok)
	assert.Equal(t, `.css-header\+0\:2\:17{color: #222; padding: #2563eb;}`, block)
}

func TestProcessBindingForms(t *testing.T) {
	forms := []BindingForm{BindingVariable, BindingProperty, BindingMember, BindingTag}
	for _, form := range forms {
		s := newTestSession(t)
		_, err := s.Process(FileInput{
			Path: "theme.ts",
			Sites: []Site{{
				Kind:     SiteDecl,
				Loc:      loc("theme.ts", 1, 0),
				Template: lit("bold"),
				Binding:  Binding{Form: form, Name: "weight"},
			}},
		})
		require.NoError(t, err)

		v, ok := s.Values().Lookup("weight")
		require.True(t, ok)
		assert.Equal(t, "bold", v)
	}
}

func TestProcessUnrecognizedBindingForm(t *testing.T) {
	s := newTestSession(t)
	_, err := s.Process(FileInput{
		Path: "theme.ts",
		Sites: []Site{{
			Kind:     SiteDecl,
			Loc:      loc("theme.ts", 4, 2),
			Template: lit("bold"),
		}},
	})
	require.ErrorIs(t, err, ErrUnrecognizedBindingForm)
	assert.Equal(t, 0, s.Values().Len())
}

func TestProcessFailureRollsBackFile(t *testing.T) {
	s := newTestSession(t)
	failing := scoped("app.js", 3, 0, Template{Quasis: []string{"color: ", ";"}, Exprs: []Expr{ref("nope")}})

	_, err := s.Process(FileInput{
		Path: "app.js",
		Sites: []Site{
			{Kind: SiteDecl, Loc: loc("app.js", 1, 0), Template: lit("4px"), Binding: Binding{Form: BindingVariable, Name: "gap"}},
			{Kind: SiteGlobal, Loc: loc("app.js", 2, 0), Template: lit("html{}")},
			failing,
		},
	})
	require.ErrorIs(t, err, ErrUndefinedBinding)

	_, ok := s.Registry().Global("app+0:2:0")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Registry().Len())
	assert.Equal(t, 0, s.Registry().Updates())
	_, ok = s.Values().Lookup("gap")
	assert.False(t, ok)

	// The short name stays assigned
	name, err := s.Names().ShortName("app.js")
	require.NoError(t, err)
	assert.Equal(t, "app+0", name)
}

func TestProcessFailureRestoresPreviousPass(t *testing.T) {
	s := newTestSession(t)
	ok := FileInput{
		Path: "x.js",
		Sites: []Site{
			scoped("x.js", 1, 0, lit("a: b;")),
			scoped("x.js", 2, 0, lit("c: d;")),
		},
	}
	other := FileInput{Path: "y.js", Sites: []Site{scoped("y.js", 1, 0, lit("e: f;"))}}

	_, err := s.Process(ok)
	require.NoError(t, err)
	_, err = s.Process(other)
	require.NoError(t, err)
	s.Registry().TakeUpdates()

	broken := ok
	broken.Sites = []Site{
		scoped("x.js", 1, 0, lit("a: changed;")),
		scoped("x.js", 1, 10, lit("new: block;")),
		scoped("x.js", 2, 0, Template{Quasis: []string{"", ""}, Exprs: []Expr{{Kind: ExprOther, Text: "f()"}}}),
	}
	_, err = s.Process(broken)
	require.ErrorIs(t, err, ErrUnsupportedReference)

	assert.Equal(t, 0, s.Registry().Updates())
	keys := make([]string, 0, 3)
	for _, b := range s.Registry().ScopedBlocks() {
		keys = append(keys, b.Key)
	}
	assert.Equal(t, []string{"x+0:1:0", "x+0:2:0", "y+0:1:0"}, keys)

	block, _ := s.Registry().Scoped("x+0:1:0")
	assert.Contains(t, block, "a: b;")
}

func TestProcessPreprocessorError(t *testing.T) {
	boom := errors.New("unbalanced braces")
	s := newTestSession(t, func(c *Config) {
		c.Preprocessor = PreprocessorFunc(func(string, string) (string, error) { return "", boom })
	})

	_, err := s.Process(FileInput{Path: "x.js", Sites: []Site{scoped("x.js", 1, 0, lit("a{"))}})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, s.Registry().Len())
}

func TestProcessFormatter(t *testing.T) {
	s := newTestSession(t, func(c *Config) {
		c.Formatter = FormatterFunc(strings.ToUpper)
		c.ClassPrefix = "x-"
	})

	instructions, err := s.Process(FileInput{Path: "x.js", Sites: []Site{scoped("x.js", 1, 0, lit("a: b;"))}})
	require.NoError(t, err)
	assert.Equal(t, "x-x+0:1:0", instructions[0].Value)

	block, _ := s.Registry().Scoped("x+0:1:0")
	assert.Equal(t, `.X-X\+0\:1\:0{A: B;}`, block)
}

func TestProcessSameFileTwice(t *testing.T) {
	s := newTestSession(t)
	input := FileInput{Path: "x.js", Sites: []Site{scoped("x.js", 1, 0, lit("a: b;"))}}

	first, err := s.Process(input)
	require.NoError(t, err)

	input.Sites[0].Template = lit("a: c;")
	second, err := s.Process(input)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, s.Registry().Len())
	assert.Equal(t, 2, s.Registry().Updates())

	block, _ := s.Registry().Scoped("x+0:1:0")
	assert.Contains(t, block, "a: c;")
}

func TestProcessMergeIntoContainer(t *testing.T) {
	s := newTestSession(t)
	file := "src/nav.jsx"

	instructions, err := s.Process(FileInput{
		Path: file,
		Sites: []Site{
			scoped(file, 3, 20, lit("color: red;")),
			scoped(file, 4, 2, lit("color: blue;")),
		},
		Containers: []Container{
			{
				Loc: loc(file, 3, 17),
				Template: Template{
					Quasis: []string{"", " ", " active"},
					Exprs:  []Expr{{Kind: ExprSite, Site: 0}, {Kind: ExprString, Value: "big"}},
				},
			},
			{
				Loc: loc(file, 6, 9),
				Template: Template{
					Quasis: []string{"", " ", ""},
					Exprs:  []Expr{{Kind: ExprSite, Site: 1}, {Kind: ExprRef, Path: []string{"props", "className"}, Text: "props.className"}},
				},
			},
			{
				Loc:      loc(file, 9, 0),
				Template: Template{Quasis: []string{"a", "b"}, Exprs: []Expr{ref("x")}},
			},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []Instruction{
		{Op: OpReplaceString, Site: -1, Container: 0, Value: "css-nav+0:3:20 big active"},
		{Op: OpReplaceTemplate, Site: -1, Container: 1, Template: Template{
			Quasis: []string{"css-nav+0:4:2 ", ""},
			Exprs:  []Expr{{Kind: ExprRef, Path: []string{"props", "className"}, Text: "props.className"}},
		}},
	}, instructions)
}

func TestFoldTemplateEscapesLiterals(t *testing.T) {
	tmpl, folded := foldTemplate(Template{
		Quasis: []string{"", "", ""},
		Exprs:  []Expr{{Kind: ExprSite, Site: 2}, {Kind: ExprString, Value: "`${x}`"}},
	}, map[int]string{2: "css-a+0:1:0"})

	assert.Equal(t, []int{2}, folded)
	require.Empty(t, tmpl.Exprs)
	assert.Equal(t, "css-a+0:1:0`${x}`", CookTemplateRaw(tmpl.Quasis[0]))
}

func TestFoldTemplateSkipsNestedSites(t *testing.T) {
	in := Template{
		Quasis: []string{"", " ", ""},
		Exprs: []Expr{
			{Kind: ExprSite, Site: 0},
			{Kind: ExprOther, Text: "on ? css`color: red;` : ''", Nested: []int{1}},
		},
	}
	tmpl, folded := foldTemplate(in, map[int]string{0: "css-a+0:1:0", 1: "css-a+0:1:20"})

	assert.Nil(t, folded)
	assert.Equal(t, in, tmpl)
}

func TestEscapeClassName(t *testing.T) {
	assert.Equal(t, `css-a\+0\:12\:4`, EscapeClassName("css-a+0:12:4"))
	assert.Equal(t, `css-theme\.dark\+1\:1\:0`, EscapeClassName("css-theme.dark+1:1:0"))
}
