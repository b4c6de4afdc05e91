package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/tagx/internal/registry"
)

var listFormats = []string{"table", "json", "yaml", "toml"}

func newListCommand(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the components found in the component folders",
		Long: `List every component reachable from the configured folders with its
arguments and assets. Components that fail to load are reported on
stderr and the command exits with an error after printing the rest.

Examples:
  tagx list
  tagx list -F ui=vendor/ui -o json
  tagx list --output toml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !validFormat(format) {
				return fmt.Errorf("unsupported format %q (supported: %s)", format, strings.Join(listFormats, ", "))
			}

			_, cat, _, err := a.setup()
			if err != nil {
				return err
			}

			reg := registry.NewComponentRegistry()
			errs, err := reg.Scan(cmd.Context(), cat)
			if err != nil {
				return err
			}

			if err := writeList(cmd.OutOrStdout(), format, reg.List()); err != nil {
				return err
			}

			failed := errs.GetErrors()
			for _, e := range failed {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", e.Component, e.Err)
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d component(s) failed to load", len(failed))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", "table", "output format ("+strings.Join(listFormats, "|")+")")

	return cmd
}

func validFormat(format string) bool {
	for _, f := range listFormats {
		if f == format {
			return true
		}
	}
	return false
}

// componentList is the document written for the structured formats;
// TOML has no top-level arrays.
type componentList struct {
	Components []*registry.ComponentInfo `json:"components" yaml:"components" toml:"components"`
}

func writeList(w io.Writer, format string, components []*registry.ComponentInfo) error {
	doc := componentList{Components: components}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case "toml":
		return toml.NewEncoder(w).Encode(doc)
	default:
		return writeTable(w, components)
	}
}

func writeTable(w io.Writer, components []*registry.ComponentInfo) error {
	if len(components) == 0 {
		_, err := fmt.Fprintln(w, "No components found.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tARGUMENTS\tASSETS\tPATH")
	for _, c := range components {
		var params []string
		for _, p := range c.Parameters {
			if p.Optional {
				params = append(params, fmt.Sprintf("%s=%v", p.Name, p.Default))
			} else {
				params = append(params, p.Name)
			}
		}
		assets := append(append([]string(nil), c.CSS...), c.JS...)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			c.FullName(), dash(strings.Join(params, ", ")), dash(strings.Join(assets, ", ")), c.RelPath)
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
