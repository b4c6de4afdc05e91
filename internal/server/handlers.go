package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/a-h/templ"
	"golang.org/x/net/html"

	tagxerrors "github.com/conneroisu/tagx/internal/errors"
	"github.com/conneroisu/tagx/internal/registry"
	"github.com/conneroisu/tagx/internal/version"
)

const liveReloadScript = `<script>
(function () {
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(proto + location.host + "/ws");
  ws.onmessage = function (ev) {
    var msg = JSON.parse(ev.data);
    if (msg.type === "reload") {
      location.reload();
    } else if (msg.type === "error") {
      var old = document.getElementById("tagx-error-overlay");
      if (old) { old.remove(); }
      document.body.insertAdjacentHTML("beforeend", msg.content);
    }
  };
  ws.onclose = function () { setTimeout(function () { location.reload(); }, 1000); };
})();
</script>
`

// page wraps body in an HTML document.
func page(title string, liveReload bool, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		head := "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>" +
			html.EscapeString(title) + "</title>\n</head>\n<body>\n"
		if _, err := io.WriteString(w, head); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		if liveReload {
			if _, err := io.WriteString(w, liveReloadScript); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "\n</body>\n</html>\n")
		return err
	})
}

// componentIndex lists the components with links to their previews.
func componentIndex(components []*registry.ComponentInfo, overlay string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString("<h1>Components</h1>\n<ul id=\"components\">\n")
		for _, c := range components {
			name := c.FullName()
			fmt.Fprintf(&b, "<li><a href=\"/render/%s\">%s</a>",
				html.EscapeString(url.PathEscape(name)), html.EscapeString(name))
			if params := paramSummary(c); params != "" {
				fmt.Fprintf(&b, " <code>%s</code>", html.EscapeString(params))
			}
			b.WriteString("</li>\n")
		}
		b.WriteString("</ul>\n")
		b.WriteString(overlay)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

func paramSummary(c *registry.ComponentInfo) string {
	parts := make([]string, 0, len(c.Parameters))
	for _, p := range c.Parameters {
		if p.Optional {
			parts = append(parts, fmt.Sprintf("%s=%v", p.Name, p.Default))
		} else {
			parts = append(parts, p.Name)
		}
	}
	return strings.Join(parts, ", ")
}

func (s *PreviewServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.writePage(w, r, http.StatusOK, page("tagx components", s.config.Server.LiveReload,
		componentIndex(s.registry.List(), s.errorOverlay())))
}

func (s *PreviewServer) handleComponents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.registry.List()); err != nil {
		s.logger.Warn(r.Context(), err, "failed to write component list")
	}
}

func (s *PreviewServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.catalog.CacheStats()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":     "ok",
		"version":    version.GetShortVersion(),
		"components": s.registry.Count(),
		"cache":      stats,
	})
}

// handleRender renders /render/{name}. Query parameters become string
// arguments; repeated parameters become a list.
func (s *PreviewServer) handleRender(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(strings.TrimPrefix(r.URL.Path, "/render/"))
	if err == nil {
		err = validateComponentName(name)
	}
	if err != nil {
		http.Error(w, "Invalid component name: "+err.Error(), http.StatusBadRequest)
		return
	}

	args := make(map[string]any)
	for key, values := range r.URL.Query() {
		if len(values) == 1 {
			args[key] = values[0]
		} else {
			args[key] = values
		}
	}

	s.writePage(w, r, http.StatusOK, page(name, s.config.Server.LiveReload, s.catalog.Component(name, args)))
}

// writePage renders c fully before writing so failures get a proper status.
func (s *PreviewServer) writePage(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	var buf bytes.Buffer
	if err := c.Render(r.Context(), &buf); err != nil {
		s.logger.Warn(r.Context(), err, "render failed", "path", r.URL.Path)
		http.Error(w, err.Error(), renderStatus(err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Warn(r.Context(), err, "failed to write response")
	}
}

func renderStatus(err error) int {
	switch {
	case tagxerrors.IsNotFound(err), tagxerrors.IsUnknownPrefix(err):
		return http.StatusNotFound
	case tagxerrors.IsMissingArgument(err), tagxerrors.IsInvalidArgument(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// validateComponentName rejects names that could escape the search roots.
func validateComponentName(name string) error {
	if name == "" {
		return errors.New("empty component name")
	}

	clean := filepath.Clean(name)
	if strings.Contains(clean, "..") {
		return errors.New("path traversal attempt detected")
	}
	if filepath.IsAbs(clean) || strings.ContainsAny(name, `/\`) {
		return errors.New("path separators not allowed")
	}

	if strings.ContainsAny(name, "<>\"'&;|$`(){}[] \t\n") {
		return fmt.Errorf("invalid character in %q", name)
	}

	return nil
}
