package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSourceCommand(a *app) *cobra.Command {
	var ext string

	cmd := &cobra.Command{
		Use:   "source <name>",
		Short: "Print the source of a component",
		Example: `  tagx source Card
  tagx source ui:forms.Input --file-ext .html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cat, _, err := a.setup()
			if err != nil {
				return err
			}

			var exts []string
			if ext != "" {
				exts = append(exts, ext)
			}
			src, err := cat.GetSource(args[0], exts...)
			if err != nil {
				return err
			}

			_, err = fmt.Fprint(cmd.OutOrStdout(), src)
			return err
		},
	}

	cmd.Flags().StringVar(&ext, "file-ext", "", "look for this file extension only")

	return cmd
}
