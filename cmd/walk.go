package cmd

import (
	"context"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/audiotopo/internal/inspector"
	"github.com/smazurov/audiotopo/internal/render"
	"github.com/smazurov/audiotopo/internal/topology"
)

// WalkOptions are the flags of the walk command.
type WalkOptions struct {
	Format  string
	Strict  bool
	Timeout time.Duration
}

// CreateWalkCmd creates the walk command.
func CreateWalkCmd(setup Setup) *cobra.Command {
	var opts WalkOptions

	cmd := &cobra.Command{
		Use:   "walk [device-id...]",
		Short: "Walk endpoint topologies and print reports",
		Long: `Walks the topology of every selected endpoint, or of the named endpoints, and prints ` +
			`one report per device with its properties and any diagnostics. Named endpoints are ` +
			`looked up among all devices, whatever the configured selection.`,
		Run: func(cmd *cobra.Command, args []string) {
			run(cmd, func(ctx context.Context, out io.Writer) error {
				insp, err := setup()
				if err != nil {
					return err
				}
				return runWalk(ctx, out, insp, args, opts)
			})
		},
	}
	addFormatFlag(cmd, &opts.Format)
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "Exit with status 1 when any report has diagnostics")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "Abort the walk after this long (0 disables)")
	return cmd
}

func runWalk(ctx context.Context, out io.Writer, insp *inspector.Inspector, ids []string, opts WalkOptions) error {
	f, err := render.ParseFormat(opts.Format)
	if err != nil {
		return err
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	var reports []*topology.Report
	var walkErr error
	if len(ids) == 0 {
		reports, walkErr = insp.InspectAll(ctx)
	} else {
		for _, id := range ids {
			report, err := insp.Inspect(ctx, id)
			if report != nil {
				reports = append(reports, report)
			}
			if err != nil {
				walkErr = err
				break
			}
		}
	}

	// Partial results are printed before a cancellation is reported.
	if err := render.Reports(out, f, reports); err != nil {
		return err
	}
	if walkErr != nil {
		return walkErr
	}
	if opts.Strict {
		for _, r := range reports {
			if r.HasDiagnostics() {
				return ErrDiagnostics
			}
		}
	}
	return nil
}
