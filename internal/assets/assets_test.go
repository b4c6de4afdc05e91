package assets

import (
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rxFingerprinted = regexp.MustCompile(`^card-[0-9a-f]{64}\.css$`)

func mapLocator(files map[string]string) Locator {
	return func(url string) (string, bool) {
		f, ok := files[url]
		return f, ok
	}
}

func TestCollectorDedupOrder(t *testing.T) {
	c := NewCollector("/static/", nil)
	c.AddCSS("layout.css", "card.css")
	c.AddCSS("card.css", "button.css", "layout.css")
	c.AddJS("app.js")
	c.AddJS("app.js", "https://cdn.test/x.js")

	assert.Equal(t, []string{"layout.css", "card.css", "button.css"}, c.CSS())
	assert.Equal(t, []string{"app.js", "https://cdn.test/x.js"}, c.JS())
}

func TestMarkup(t *testing.T) {
	c := NewCollector("/static/components/", nil)
	c.AddCSS("ui/card.css", "https://cdn.test/a.css", "/global.css")
	c.AddJS("ui/card.js")

	want := `<link rel="stylesheet" href="/static/components/ui/card.css">` + "\n" +
		`<link rel="stylesheet" href="https://cdn.test/a.css">` + "\n" +
		`<link rel="stylesheet" href="/global.css">` + "\n" +
		`<script type="module" src="/static/components/ui/card.js"></script>`
	assert.Equal(t, want, c.Markup())
	assert.Empty(t, NewCollector("/", nil).Markup())
}

func TestPlaceholder(t *testing.T) {
	c := NewCollector("/s/", nil)
	other := NewCollector("/s/", nil)
	assert.NotEqual(t, c.Placeholder(), other.Placeholder())

	out := "<head>" + c.Placeholder() + "</head>"
	c.AddCSS("late.css")
	assert.Equal(t, `<head><link rel="stylesheet" href="/s/late.css"></head>`, c.Resolve(out))
	assert.Equal(t, "untouched", c.Resolve("untouched"))
	assert.Equal(t, out, other.Resolve(out))
}

func TestFingerprintStability(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "card.css")
	require.NoError(t, os.WriteFile(file, []byte("a{}"), 0o644))
	locate := mapLocator(map[string]string{"card.css": file, "gone.css": filepath.Join(dir, "gone.css")})

	first := Fingerprint("card.css", locate)
	assert.Regexp(t, rxFingerprinted, first)
	assert.Equal(t, first, Fingerprint("card.css", locate))

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(file, later, later))
	changed := Fingerprint("card.css", locate)
	assert.Regexp(t, rxFingerprinted, changed)
	assert.NotEqual(t, first, changed)

	assert.Equal(t, "https://cdn.test/card.css", Fingerprint("https://cdn.test/card.css", locate))
	assert.Equal(t, "gone.css", Fingerprint("gone.css", locate))
	assert.Equal(t, "unknown.css", Fingerprint("unknown.css", locate))

	assert.Equal(t, "card.css", StripFingerprint(first))
}

func TestStripFingerprint(t *testing.T) {
	hash := "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	assert.Equal(t, "ui/card.css", StripFingerprint("ui/card-"+hash+".css"))
	assert.Equal(t, "app.min.js", StripFingerprint("app-"+hash+".min.js"))
	assert.Equal(t, "card-short.css", StripFingerprint("card-short.css"))
	assert.Equal(t, "card.css", StripFingerprint("card.css"))
}

func TestCollectorFingerprints(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "card.css")
	require.NoError(t, os.WriteFile(file, []byte("a{}"), 0o644))

	c := NewCollector("/s/", mapLocator(map[string]string{"card.css": file}))
	c.AddCSS("card.css", "card.css", "https://cdn.test/a.css")

	css := c.CSS()
	require.Len(t, css, 2)
	assert.Regexp(t, rxFingerprinted, css[0])
	assert.Equal(t, "https://cdn.test/a.css", css[1])
}

func TestPrefixLocator(t *testing.T) {
	base, ui, forms := t.TempDir(), t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(base, "page.css"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(ui, "card.css"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(forms, "input.css"), nil, 0o644))

	locate := PrefixLocator(func() map[string][]string {
		return map[string][]string{"": {base}, "ui": {ui}, "ui.forms": {forms}}
	})

	tests := []struct {
		url  string
		want string
		ok   bool
	}{
		{"page.css", filepath.Join(base, "page.css"), true},
		{"ui/card.css", filepath.Join(ui, "card.css"), true},
		{"ui/forms/input.css", filepath.Join(forms, "input.css"), true},
		{"ui/page.css", "", false},
		{"../secret.css", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, ok := locate(tt.url)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCollectorConcurrent(t *testing.T) {
	c := NewCollector("/", nil)
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.AddCSS("a.css", "b.css")
			c.AddJS("a.js")
		}()
	}
	wg.Wait()
	assert.Len(t, c.CSS(), 2)
	assert.Len(t, c.JS(), 1)
}
