package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/smazurov/audiotopo/internal/inspector"
	"github.com/smazurov/audiotopo/internal/render"
)

// CreateListCmd creates the list command.
func CreateListCmd(setup Setup) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List audio endpoints",
		Long:  `Lists the endpoints matching the configured data flow, state mask and filter without walking them.`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			run(cmd, func(ctx context.Context, out io.Writer) error {
				insp, err := setup()
				if err != nil {
					return err
				}
				return runList(ctx, out, insp, format)
			})
		},
	}
	addFormatFlag(cmd, &format)
	return cmd
}

func runList(ctx context.Context, out io.Writer, insp *inspector.Inspector, format string) error {
	f, err := render.ParseFormat(format)
	if err != nil {
		return err
	}
	devices, err := insp.Devices(ctx)
	if err != nil {
		return fmt.Errorf("failed to enumerate devices: %w", err)
	}
	return render.Devices(out, f, devices)
}
