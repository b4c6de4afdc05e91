package preprocess

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tagxerrors "github.com/conneroisu/tagx/internal/errors"
)

func TestPreprocess(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		expected string
	}{
		{
			name:     "self closing with string and flag",
			source:   `<Name attr="v" flag />`,
			expected: `{{ $.Render "Name" "attr" "v" "flag" true }}`,
		},
		{
			name:     "content",
			source:   `<Name>X</Name>`,
			expected: `{{ range $slot, $_ := $.RenderBlock . "Name" -}}X{{- end }}`,
		},
		{
			name:     "empty content is inline",
			source:   `<Name></Name>`,
			expected: `{{ $.Render "Name" }}`,
		},
		{
			name:     "prefix and path",
			source:   `<ui:Card.Header x-y="1" />`,
			expected: `{{ $.Render "ui:Card.Header" "x_y" "1" }}`,
		},
		{
			name:     "gt inside quoted value",
			source:   `<C x="a>b">c</C>`,
			expected: `{{ range $slot, $_ := $.RenderBlock . "C" "x" "a>b" -}}c{{- end }}`,
		},
		{
			name:     "gt inside expression",
			source:   `<C when={{ gt .n 1 }}>yes</C>`,
			expected: `{{ range $slot, $_ := $.RenderBlock . "C" "when" (gt .n 1) -}}yes{{- end }}`,
		},
		{
			name:     "braces inside quoted expression string",
			source:   `<A x={{ "}}" }} />`,
			expected: `{{ $.Render "A" "x" ("}}") }}`,
		},
		{
			name:     "dynamic single quoted",
			source:   `<A :on-click='call .fn' />`,
			expected: `{{ $.Render "A" "on_click" (call .fn) }}`,
		},
		{
			name:     "dynamic valueless strips sigil",
			source:   `<A :open />`,
			expected: `{{ $.Render "A" "open" true }}`,
		},
		{
			name:     "single quoted with escaped quote",
			source:   `<A title='it\'s' />`,
			expected: `{{ $.Render "A" "title" "it's" }}`,
		},
		{
			name:     "bare value",
			source:   `<A n=3 />`,
			expected: `{{ $.Render "A" "n" "3" }}`,
		},
		{
			name:     "multiline attributes",
			source:   "<A\n  a=\"1\"\n  b\n/>",
			expected: "{{ $.Render \"A\" \"a\" \"1\" \"b\" true\n\n\n }}",
		},
		{
			name:     "newline inside quoted value",
			source:   "<A title=\"a\nb\">x</A>",
			expected: "{{ range $slot, $_ := $.RenderBlock . \"A\" \"title\" \"a\\nb\"\n -}}x{{- end }}",
		},
		{
			name:     "raw string expression value",
			source:   "<A title={{ `hi there` }} />",
			expected: "{{ $.Render \"A\" \"title\" (`hi there`) }}",
		},
		{
			name:     "multiline raw string expression value",
			source:   "<A\n  title={{ `a\nb` }} />",
			expected: "{{ $.Render \"A\" \"title\" (`a\nb`)\n }}",
		},
		{
			name:     "lowercase elements untouched",
			source:   `<div class="x"><span>y</span></div>`,
			expected: `<div class="x"><span>y</span></div>`,
		},
		{
			name:     "siblings",
			source:   `<Icon /><Title>Hi</Title>`,
			expected: `{{ $.Render "Icon" }}{{ range $slot, $_ := $.RenderBlock . "Title" -}}Hi{{- end }}`,
		},
		{
			name:   "nested same name",
			source: `<Card><Card>X</Card></Card>`,
			expected: `{{ range $slot, $_ := $.RenderBlock . "Card" -}}` +
				`{{ range $slot, $_ := $.RenderBlock . "Card" -}}X{{- end }}{{- end }}`,
		},
		{
			name:     "unterminated verbatim runs to end",
			source:   "{{/* <Card> never closed",
			expected: "{{/* <Card> never closed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Preprocess(tt.source, "test")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestPreprocessNestedLeavesNoTags(t *testing.T) {
	out, err := Preprocess(`<Card><Card>X</Card></Card>`, "")
	require.NoError(t, err)
	assert.NotContains(t, out, "<Card>")
	assert.NotContains(t, out, "</Card>")
	assert.False(t, HasTags(out))
}

func TestPreprocessErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		code   string
		line   int
	}{
		{
			name:   "unclosed",
			source: `<Foo bar="baz">content`,
			code:   tagxerrors.ErrCodeUnclosedTag,
			line:   1,
		},
		{
			name:   "unclosed on later line",
			source: "<p>\n</p>\n<Foo>\ncontent",
			code:   tagxerrors.ErrCodeUnclosedTag,
			line:   3,
		},
		{
			name:   "unbalanced quote",
			source: "\n\n<Foo bar=\"baz>",
			code:   tagxerrors.ErrCodeSyntax,
			line:   3,
		},
		{
			name:   "unbalanced expression",
			source: `<Foo x={{ .a >`,
			code:   tagxerrors.ErrCodeSyntax,
			line:   1,
		},
		{
			name:   "nested open braces",
			source: `<Foo x={{ {{ }} />`,
			code:   tagxerrors.ErrCodeSyntax,
			line:   1,
		},
		{
			name:   "line numbers survive multi-line opening tags",
			source: "<A\n  x=\"1\" />\n<B>",
			code:   tagxerrors.ErrCodeUnclosedTag,
			line:   3,
		},
		{
			name:   "line numbers survive multi-line block tags",
			source: "<A\n  x=\"1\"\n>body</A>\n<B\n  y>",
			code:   tagxerrors.ErrCodeUnclosedTag,
			line:   4,
		},
		{
			name:   "line numbers survive multi-line verbatim spans",
			source: "{{/*\n<Card>\n*/}}\n<Foo>",
			code:   tagxerrors.ErrCodeUnclosedTag,
			line:   4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Preprocess(tt.source, "page.tmpl")
			require.Error(t, err)
			assert.True(t, tagxerrors.IsSyntax(err))

			te, ok := tagxerrors.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, te.Code)
			assert.Equal(t, tt.line, te.Line)
			assert.Equal(t, "page.tmpl", te.FilePath)
		})
	}
}

func TestPreprocessGolden(t *testing.T) {
	for _, name := range []string{"page", "raw"} {
		t.Run(name, func(t *testing.T) {
			src, err := os.ReadFile(filepath.Join("testdata", name+".tmpl"))
			require.NoError(t, err)

			out, err := Preprocess(string(src), name)
			require.NoError(t, err)

			g := goldie.New(t)
			g.Assert(t, name, []byte(out))
		})
	}
}

func TestHasTags(t *testing.T) {
	assert.True(t, HasTags(`<p><Card /></p>`))
	assert.False(t, HasTags(`<p>{{ .x }}</p>`))
	assert.False(t, HasTags("{{`<Card />`}}"))
}

func TestPreprocessProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("self closing tags lower to inline calls", prop.ForAll(
		func(tag, attr, value string) bool {
			src := "<X" + tag + " " + attr + `="` + value + `" flag />`
			out, err := Preprocess(src, "")
			if err != nil {
				return false
			}
			return out == `{{ $.Render "X`+tag+`" "`+attr+`" "`+value+`" "flag" true }}`
		},
		gen.Identifier(),
		gen.Identifier(),
		gen.AlphaString(),
	))

	properties.Property("block bodies are kept verbatim", prop.ForAll(
		func(body string) bool {
			src := "<Box>" + body + "</Box>"
			out, err := Preprocess(src, "")
			if err != nil {
				return false
			}
			if body == "" {
				return out == `{{ $.Render "Box" }}`
			}
			return out == `{{ range $slot, $_ := $.RenderBlock . "Box" -}}`+body+`{{- end }}`
		},
		gen.AlphaString(),
	))

	properties.Property("verbatim spans are immune", prop.ForAll(
		func(tag string) bool {
			src := "{{`<X" + tag + ">`}}{{/* <Y" + tag + " */}}"
			out, err := Preprocess(src, "")
			return err == nil && out == src
		},
		gen.Identifier(),
	))

	properties.TestingRun(t)
}
