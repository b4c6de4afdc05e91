package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newRenderCommand(a *app) *cobra.Command {
	var (
		argPairs []string
		argsJSON string
		source   string
	)

	cmd := &cobra.Command{
		Use:   "render <name>",
		Short: "Render a component to stdout",
		Long: `Render the named component with the given arguments and print the HTML.

Arguments are given as key=value pairs (values are strings) or as a JSON
object, inline or read from a file with @path. Pairs override JSON keys.

Examples:
  tagx render Greeting -a message=World
  tagx render ui:Button --json '{"label": "Save", "disabled": true}'
  tagx render Page --json @page.json
  tagx render Preview --source draft.tmpl -a title=Draft`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			renderArgs, err := parseRenderArgs(argsJSON, argPairs)
			if err != nil {
				return err
			}

			_, cat, _, err := a.setup()
			if err != nil {
				return err
			}

			var out string
			if source != "" {
				data, readErr := os.ReadFile(source)
				if readErr != nil {
					return fmt.Errorf("reading source: %w", readErr)
				}
				out, err = cat.RenderSource(cmd.Context(), args[0], string(data), renderArgs)
			} else {
				out, err = cat.Render(cmd.Context(), args[0], renderArgs)
			}
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}

	cmd.Flags().StringArrayVarP(&argPairs, "arg", "a", nil, "argument as key=value (repeatable)")
	cmd.Flags().StringVar(&argsJSON, "json", "", "arguments as a JSON object, or @file")
	cmd.Flags().StringVar(&source, "source", "", "render this file as the component body instead of looking the name up")

	return cmd
}

func parseRenderArgs(argsJSON string, pairs []string) (map[string]any, error) {
	args := make(map[string]any)

	if argsJSON != "" {
		data := []byte(argsJSON)
		if path, ok := strings.CutPrefix(argsJSON, "@"); ok {
			var err error
			if data, err = os.ReadFile(path); err != nil {
				return nil, fmt.Errorf("reading arguments: %w", err)
			}
		}
		if err := json.Unmarshal(data, &args); err != nil {
			return nil, fmt.Errorf("arguments must be a JSON object: %w", err)
		}
	}

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("argument %q is not key=value", pair)
		}
		args[strings.TrimSpace(key)] = value
	}

	return args, nil
}
