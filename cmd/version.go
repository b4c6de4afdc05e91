package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/tagx/internal/version"
)

func newVersionCommand() *cobra.Command {
	var (
		format string
		short  bool
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Example: `  tagx version
  tagx version --short
  tagx version -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.GetBuildInfo()
			out := cmd.OutOrStdout()

			switch format {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			case "yaml":
				return yaml.NewEncoder(out).Encode(info)
			case "text":
				if short {
					_, err := fmt.Fprintln(out, info.Short())
					return err
				}
				_, err := fmt.Fprintf(out, "tagx %s\n%s\n", info.Short(), info)
				return err
			default:
				return fmt.Errorf("unsupported format %q (supported: text, json, yaml)", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", "text", "output format (text|json|yaml)")
	cmd.Flags().BoolVar(&short, "short", false, "print the version only")

	return cmd
}
