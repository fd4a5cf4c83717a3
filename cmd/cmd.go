// Package cmd holds the one-shot subcommands that share the server's configuration.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/smazurov/audiotopo/internal/inspector"
	"github.com/smazurov/audiotopo/internal/render"
)

// Setup returns the inspector built from the loaded configuration.
type Setup func() (*inspector.Inspector, error)

// ErrDiagnostics is returned in strict mode when any report carries a diagnostic.
var ErrDiagnostics = errors.New("reports contain diagnostics")

// run executes fn and exits with status 1 when it fails.
func run(cmd *cobra.Command, fn func(ctx context.Context, out io.Writer) error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := fn(ctx, cmd.OutOrStdout()); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
		os.Exit(1)
	}
}

func addFormatFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "format", "f", string(render.FormatText), "Output format (text, json, yaml)")
}
