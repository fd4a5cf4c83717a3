package cmd

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/smazurov/audiotopo/internal/render"
	"github.com/smazurov/audiotopo/internal/version"
)

// CreateVersionCmd creates the version command.
func CreateVersionCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			run(cmd, func(_ context.Context, out io.Writer) error {
				return runVersion(out, format)
			})
		},
	}
	addFormatFlag(cmd, &format)
	return cmd
}

func runVersion(out io.Writer, format string) error {
	f, err := render.ParseFormat(format)
	if err != nil {
		return err
	}
	return render.Version(out, f, version.Get())
}
