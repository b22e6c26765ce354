package csscompile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile(t *testing.T) {
	tests := []struct {
		name     string
		selector string
		raw      string
		want     string
	}{
		{
			name:     "declarations",
			selector: ".a",
			raw:      "\n  color : red;\n  margin: 0 auto\n",
			want:     ".a{color:red;margin:0 auto;}",
		},
		{
			name:     "escaped selector is used as given",
			selector: `.css-a\+0\:1\:0`,
			raw:      "color: red;",
			want:     `.css-a\+0\:1\:0{color:red;}`,
		},
		{
			name:     "parent reference",
			selector: ".a",
			raw:      "color: red; &:hover { color: blue; } &.active{font-weight:bold}",
			want:     ".a{color:red;}.a:hover{color:blue;}.a.active{font-weight:bold;}",
		},
		{
			name:     "implicit descendant",
			selector: ".a",
			raw:      "span { color: red; } > li { margin: 0; }",
			want:     ".a span{color:red;}.a > li{margin:0;}",
		},
		{
			name:     "selector lists",
			selector: ".a",
			raw:      "h1, h2 { & + p, em { color: red; } }",
			want:     ".a h1 + p,.a h1 em,.a h2 + p,.a h2 em{color:red;}",
		},
		{
			name:     "commas inside pseudo classes",
			selector: ".a",
			raw:      ":is(b, i) { color: red; }",
			want:     ".a :is(b, i){color:red;}",
		},
		{
			name:     "media query hoisted",
			selector: ".a",
			raw:      "color: red; @media (min-width: 600px) { color: blue; &:hover { color: green; } }",
			want: ".a{color:red;}" +
				"@media (min-width: 600px){.a{color:blue;}}" +
				"@media (min-width: 600px){.a:hover{color:green;}}",
		},
		{
			name:     "nested conditionals",
			selector: ".a",
			raw:      "@supports (display: grid) { @media print { display: grid; } }",
			want:     "@supports (display: grid){@media print{.a{display:grid;}}}",
		},
		{
			name:     "keyframes kept verbatim",
			selector: ".a",
			raw:      "animation: spin 1s; @keyframes spin { from { transform: rotate(0deg) } to { transform: rotate(360deg); } }",
			want:     ".a{animation:spin 1s;}@keyframes spin{from{transform:rotate(0deg);}to{transform:rotate(360deg);}}",
		},
		{
			name:     "comments dropped",
			selector: ".a",
			raw:      "/* primary */ color: red; /* done */",
			want:     ".a{color:red;}",
		},
		{
			name:     "semicolons inside functions",
			selector: ".a",
			raw:      `background: url("data:image/png;base64,AAA") no-repeat;`,
			want:     `.a{background:url("data:image/png;base64,AAA") no-repeat;}`,
		},
		{
			name: "global rules",
			raw:  "body { margin: 0; } html, body { height: 100%; }",
			want: "body{margin:0;}html,body{height:100%;}",
		},
		{
			name: "global bare declarations",
			raw:  "color: red;",
			want: "color:red;",
		},
		{
			name: "global statement and font face",
			raw:  "@import url(reset.css); @font-face { font-family: Inter; src: url(inter.woff2); }",
			want: "@import url(reset.css);@font-face{font-family:Inter;src:url(inter.woff2);}",
		},
		{
			name:     "empty",
			selector: ".a",
			raw:      "   ",
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compile(tt.selector, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{name: "unclosed block", raw: "&:hover { color: red;", wantErr: ErrUnclosedBlock},
		{name: "stray brace", raw: "color: red; }", wantErr: ErrUnexpectedBrace},
		{name: "unterminated string", raw: "content: \"abc\n;", wantErr: ErrBadToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(".a", tt.raw)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSplitSelectors(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitSelectors("a, b"))
	assert.Equal(t, []string{`[title="x,y"]`, "c"}, splitSelectors(`[title="x,y"], c`))
	assert.Equal(t, []string{`a\,b`}, splitSelectors(`a\,b`))
	assert.Empty(t, splitSelectors(" , "))
}
