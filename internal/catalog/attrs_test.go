package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttrsRender(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]any
		want   string
	}{
		{"empty", nil, ""},
		{
			"sorted attributes then properties",
			map[string]any{"id": "x", "hidden": true, "aria_label": "hello", "data_test": true},
			`aria-label="hello" id="x" data-test hidden`,
		},
		{
			"classes merged and sorted",
			map[string]any{"class": "italic bold", "classes": "wide  abcde bold"},
			`class="abcde bold italic wide"`,
		},
		{"false and nil dropped", map[string]any{"a": false, "b": nil, "c": 0}, `c="0"`},
		{"private keys ignored", map[string]any{"__secret": "x", "ok": "y"}, `ok="y"`},
		{"double quote value", map[string]any{"title": `say "hi"`}, `title='say "hi"'`},
		{"both quotes", map[string]any{"title": `it's "hi"`}, `title="it's &quot;hi&quot;"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewAttrs(tt.values).String())
		})
	}
}

func TestAttrsMutation(t *testing.T) {
	a := NewAttrs(map[string]any{"class": "b c a", "secret": "qwerty", "width": 42})

	a.Set("secret", false)
	a.Set("data_good", true)
	a.Set("class", "c f")
	assert.Equal(t, `class="a b c f" width="42" data-good`, a.String())

	a.SetDefault("width", 10)
	a.SetDefault("tabindex", 0)
	a.SetDefault("disabled", true)
	assert.Equal(t, 42, a.Get("width"))
	assert.Equal(t, 0, a.Get("tabindex"))
	assert.Nil(t, a.Get("disabled"))

	a.RemoveClass("a", "missing")
	assert.Equal(t, "b c f", a.Classes())
	assert.Equal(t, "b c f", a.Get("classes"))

	a.Set("class", nil)
	assert.Empty(t, a.Classes())
	a.SetDefault("class", "fresh")
	assert.Equal(t, "fresh", a.Classes())

	assert.Equal(t, true, a.Get("data_good"))
	assert.Equal(t, "fallback", a.Get("nope", "fallback"))
	assert.Nil(t, a.Get("nope"))

	a.Set("data_good", "yes")
	assert.Equal(t, "yes", a.Get("data-good"))
}

func TestAttrsRenderArgs(t *testing.T) {
	a := NewAttrs(map[string]any{"class": "ipsum", "data_good": true, "width": 42})

	out, err := a.Render()
	require.NoError(t, err)
	assert.Equal(t, `class="ipsum" width="42" data-good`, out)

	out, err = a.Render("class", "abc", "data_good", false, "tabindex", 0)
	require.NoError(t, err)
	assert.Equal(t, `class="abc ipsum" tabindex="0" width="42"`, out)

	_, err = a.Render("odd")
	assert.Error(t, err)
	_, err = a.Render(1, 2)
	assert.Error(t, err)
}

func TestAttrsAsMap(t *testing.T) {
	a := NewAttrs(map[string]any{"class": "b a", "aria_label": "x", "hidden": true})
	assert.Equal(t, map[string]any{"class": "a b", "aria-label": "x", "hidden": true}, a.AsMap())
}
