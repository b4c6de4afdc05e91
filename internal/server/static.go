package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/conneroisu/tagx/internal/assets"
)

// StaticMiddleware serves component assets published under rootURL.
// Requests for files with an extension outside allowedExt, or that no
// search root holds, fall through to the wrapped handler. A fingerprint
// in the file name ("card-<sha256>.css") is ignored when looking the file
// up, and such responses are marked immutable.
func StaticMiddleware(rootURL string, allowedExt []string, locate assets.Locator) func(http.Handler) http.Handler {
	base := rootPath(rootURL)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}
			if !strings.HasPrefix(r.URL.Path, base) {
				next.ServeHTTP(w, r)
				return
			}

			rel := strings.TrimPrefix(r.URL.Path, base)
			if !allowed(rel, allowedExt) {
				next.ServeHTTP(w, r)
				return
			}

			stripped := assets.StripFingerprint(rel)
			file, ok := locate(stripped)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			if stripped != rel {
				w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
			}
			http.ServeFile(w, r, file)
		})
	}
}

// rootPath returns the path part of rootURL, which may be a full URL when
// assets are served from another host.
func rootPath(rootURL string) string {
	p := rootURL
	if assets.IsAbsolute(rootURL) {
		if u, err := url.Parse(rootURL); err == nil {
			p = u.Path
		}
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

func allowed(name string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	for _, ext := range exts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
