package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/smazurov/audiotopo/internal/platform/fixture"
)

// CreateValidateCmd creates the validate-fixture command.
func CreateValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-fixture [file]",
		Short: "Check a fixture file",
		Long:  `Parses a fixture file and checks ids, enum values and part references without serving it.`,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			run(cmd, func(_ context.Context, out io.Writer) error {
				return runValidate(out, args[0])
			})
		},
	}
}

func runValidate(out io.Writer, path string) error {
	f, err := fixture.LoadFile(path)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s: %d devices, %d parts\n", path, len(f.Devices), len(f.Parts))
	return err
}
