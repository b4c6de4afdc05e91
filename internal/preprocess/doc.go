// Package preprocess rewrites component tags such as <Card title="x">...</Card>
// inside text/template source into calls to the catalog's render directives.
//
// A self-closing or empty tag becomes an inline call:
//
//	{{ $.Render "Card" "title" "x" }}
//
// A tag with content becomes a block call whose body is the tag content:
//
//	{{ range $slot, $_ := $.RenderBlock . "Card" "title" "x" -}}...{{- end }}
//
// Raw-string actions ({{`...`}}) and comment actions ({{/* ... */}}) are
// verbatim: tag-like text inside them is never rewritten.
package preprocess
