package source

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nettybun/styletakeout/internal/takeout"
)

func TestParseSites(t *testing.T) {
	src := "import { css, decl, injectGlobal } from 'styletakeout.macro';\n" +
		"\n" +
		"const primary = decl`#f00`;\n" +
		"injectGlobal`\n" +
		"  body { margin: 0; }\n" +
		"`;\n" +
		"export const Button = () => <button className={css`color: ${primary};`}>x</button>;\n"

	f, err := NewParser(nil).Parse("src/button.jsx", []byte(src))
	require.NoError(t, err)

	want := []takeout.Site{
		{
			Kind:     takeout.SiteDecl,
			Loc:      takeout.SourceLocation{File: "src/button.jsx", Line: 3, Column: 16},
			Template: takeout.Template{Quasis: []string{"#f00"}},
			Binding:  takeout.Binding{Form: takeout.BindingVariable, Name: "primary"},
		},
		{
			Kind:     takeout.SiteGlobal,
			Loc:      takeout.SourceLocation{File: "src/button.jsx", Line: 4, Column: 0},
			Template: takeout.Template{Quasis: []string{"\n  body { margin: 0; }\n"}},
		},
		{
			Kind: takeout.SiteScoped,
			Loc:  takeout.SourceLocation{File: "src/button.jsx", Line: 7, Column: 47},
			Template: takeout.Template{
				Quasis: []string{"color: ", ";"},
				Exprs:  []takeout.Expr{{Kind: takeout.ExprRef, Path: []string{"primary"}, Text: "primary"}},
			},
		},
	}
	if diff := cmp.Diff(want, f.Input.Sites); diff != "" {
		t.Errorf("sites mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, f.Input.Containers)
	assert.Len(t, f.imports, 1)
}

func TestParseBindingForms(t *testing.T) {
	src := "const theme = {\n" +
		"  accent: decl`blue`,\n" +
		"  'font-size': decl`12px`,\n" +
		"};\n" +
		"decl.size = d`4px`;\n" +
		"decl.gap`8px`;\n" +
		"use(decl`lost`);\n"

	f, err := NewParser(nil).Parse("theme.ts", []byte(src))
	require.NoError(t, err)

	var got []takeout.Binding
	for _, site := range f.Input.Sites {
		require.Equal(t, takeout.SiteDecl, site.Kind)
		got = append(got, site.Binding)
	}

	want := []takeout.Binding{
		{Form: takeout.BindingProperty, Name: "accent"},
		{Form: takeout.BindingProperty, Name: "font-size"},
		{Form: takeout.BindingMember, Name: "size"},
		{Form: takeout.BindingTag, Name: "gap"},
		{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("bindings mismatch (-want +got):\n%s", diff)
	}
}

func TestParseExpressions(t *testing.T) {
	src := "const x = css`a${b}c${theme.colors.primary}d${\"lit\\n\"}e${f()}g${o[k]}h${(y)}`;\n"

	f, err := NewParser(nil).Parse("x.js", []byte(src))
	require.NoError(t, err)
	require.Len(t, f.Input.Sites, 1)

	want := takeout.Template{
		Quasis: []string{"a", "c", "d", "e", "g", "h", ""},
		Exprs: []takeout.Expr{
			{Kind: takeout.ExprRef, Path: []string{"b"}, Text: "b"},
			{Kind: takeout.ExprRef, Path: []string{"theme", "colors", "primary"}, Text: "theme.colors.primary"},
			{Kind: takeout.ExprString, Value: "lit\n", Text: `"lit\n"`},
			{Kind: takeout.ExprOther, Text: "f()"},
			{Kind: takeout.ExprOther, Text: "o[k]"},
			{Kind: takeout.ExprRef, Path: []string{"y"}, Text: "(y)"},
		},
	}
	if diff := cmp.Diff(want, f.Input.Sites[0].Template); diff != "" {
		t.Errorf("template mismatch (-want +got):\n%s", diff)
	}
}

func TestParseContainers(t *testing.T) {
	src := "const plain = `${a} b`;\n" +
		"const cls = `${css`color: red;`} active ${props.x}`;\n"

	f, err := NewParser(nil).Parse("nav.tsx", []byte(src))
	require.NoError(t, err)
	require.Len(t, f.Input.Sites, 1)
	require.Len(t, f.Input.Containers, 1)

	want := takeout.Container{
		Loc: takeout.SourceLocation{File: "nav.tsx", Line: 2, Column: 12},
		Template: takeout.Template{
			Quasis: []string{"", " active ", ""},
			Exprs: []takeout.Expr{
				{Kind: takeout.ExprSite, Site: 0, Text: "css`color: red;`"},
				{Kind: takeout.ExprRef, Path: []string{"props", "x"}, Text: "props.x"},
			},
		},
	}
	if diff := cmp.Diff(want, f.Input.Containers[0]); diff != "" {
		t.Errorf("container mismatch (-want +got):\n%s", diff)
	}
}

func TestParseColumnsCountUTF16(t *testing.T) {
	src := "const é = css`color: red;`;\n" +
		"f('😀', css`margin: 0;`);\n"

	f, err := NewParser(nil).Parse("wide.js", []byte(src))
	require.NoError(t, err)
	require.Len(t, f.Input.Sites, 2)

	assert.Equal(t, takeout.SourceLocation{File: "wide.js", Line: 1, Column: 10}, f.Input.Sites[0].Loc)
	assert.Equal(t, takeout.SourceLocation{File: "wide.js", Line: 2, Column: 8}, f.Input.Sites[1].Loc)
}

func TestParseErrors(t *testing.T) {
	_, err := NewParser(nil).Parse("styles.css", []byte("a{}"))
	require.ErrorIs(t, err, ErrUnsupportedFile)

	_, err = NewParser(nil).Parse("broken.js", []byte("const = css`x`;\n"))
	require.ErrorIs(t, err, ErrSyntax)
	assert.Contains(t, err.Error(), "broken.js:1:")

	var syntaxErr *SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
	assert.Equal(t, "broken.js", syntaxErr.Path)
	assert.Equal(t, 1, syntaxErr.Line)
}

func TestMayContainSites(t *testing.T) {
	p := NewParser(Tags{"css": takeout.SiteScoped})
	assert.True(t, p.MayContainSites([]byte("x = css`a`")))
	assert.False(t, p.MayContainSites([]byte("x = 1")))
}

func TestLanguageFor(t *testing.T) {
	for _, ext := range Extensions {
		assert.True(t, Supported("file"+ext), ext)
	}
	assert.False(t, Supported("file.vue"))
}
