package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func newNewCommand(a *app) *cobra.Command {
	var (
		dir    string
		params string
		css    bool
		js     bool
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "new <name>",
		Short: "Create a component file",
		Long: `Create a component file with a metadata header. The name may be given
in kebab case and may contain folders: "forms/text-input" creates
forms/TextInput.tmpl in the first component folder.

Examples:
  tagx new card
  tagx new forms/text-input --params 'name, type="text"' --css
  tagx new alert --dir ui --js`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.Folders[0].Path
			}

			rel, err := componentPath(args[0])
			if err != nil {
				return err
			}
			path := filepath.Join(dir, filepath.FromSlash(rel)+cfg.FileExtensions[0])
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(path, []byte(componentSkeleton(rel, params)), 0o644); err != nil {
				return err
			}
			created := []string{path}

			base := strings.TrimSuffix(path, cfg.FileExtensions[0])
			if css {
				if err := writeIfMissing(base+".css", "", force); err != nil {
					return err
				}
				created = append(created, base+".css")
			}
			if js {
				if err := writeIfMissing(base+".js", "", force); err != nil {
					return err
				}
				created = append(created, base+".js")
			}

			for _, p := range created {
				fmt.Fprintln(cmd.OutOrStdout(), "created", p)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "folder to create the component in (default: first component folder)")
	cmd.Flags().StringVarP(&params, "params", "p", "", "parameter declaration for the header")
	cmd.Flags().BoolVar(&css, "css", false, "create a sibling stylesheet")
	cmd.Flags().BoolVar(&js, "js", false, "create a sibling script")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing files")

	return cmd
}

var titleCaser = cases.Title(language.Und, cases.NoLower)

// componentPath turns "forms/text-input" into "forms/TextInput".
func componentPath(name string) (string, error) {
	name = strings.Trim(filepath.ToSlash(strings.TrimSpace(name)), "/")
	if name == "" {
		return "", fmt.Errorf("empty component name")
	}

	parts := strings.Split(name, "/")
	for i, part := range parts {
		if part == "" || part == "." || part == ".." {
			return "", fmt.Errorf("invalid component name %q", name)
		}
		if i < len(parts)-1 {
			continue
		}
		var b strings.Builder
		for _, word := range strings.FieldsFunc(part, func(r rune) bool { return r == '-' || r == '_' || r == ' ' }) {
			b.WriteString(titleCaser.String(word))
		}
		if b.Len() == 0 {
			return "", fmt.Errorf("invalid component name %q", name)
		}
		parts[i] = b.String()
	}
	return strings.Join(parts, "/"), nil
}

func componentSkeleton(rel, params string) string {
	name := filepath.Base(rel)
	var b strings.Builder
	if strings.TrimSpace(params) != "" {
		fmt.Fprintf(&b, "{{/* def %s */}}\n", strings.TrimSpace(params))
	}
	fmt.Fprintf(&b, "<div class=\"%s\" {{ .attrs }}>\n  {{ .content }}\n</div>\n", strings.ToLower(name))
	return b.String()
}

func writeIfMissing(path, content string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
