// Package cli wires the autodocs commands together.
package cli

import (
    "context"
    "fmt"

    "github.com/spf13/cobra"
)

// Execute runs the autodocs CLI.
func Execute(ctx context.Context) error {
    return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd constructs the root command so tests can exercise the CLI easily.
func NewRootCmd() *cobra.Command {
    cmd := &cobra.Command{
        Use:           "autodocs",
        Short:         "Generate API documentation from Express and Flask route handlers",
        Long:          "autodocs scans Express (JavaScript) and Flask (Python) sources for route declarations and writes Markdown or OpenAPI documentation for each file.",
        SilenceErrors: true,
        SilenceUsage:  true,
        RunE: func(cmd *cobra.Command, args []string) error {
            return cmd.Help()
        },
    }

    // Convert Cobra flag errors (like unknown flags) into friendly usage errors
    // that also show the command's help text.
    cmd.SetFlagErrorFunc(flagError)

    cmd.PersistentFlags().StringP("config", "c", "", "Config file path (JSON or YAML); defaults to autodocs.config.json or autodocs.config.yaml when present")
    cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging output")

    for _, sub := range []*cobra.Command{newGenerateCmd(), newInitCmd(), newViewCmd()} {
        sub.SetFlagErrorFunc(flagError)
        cmd.AddCommand(sub)
    }

    return cmd
}

func flagError(c *cobra.Command, err error) error {
    return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
}
