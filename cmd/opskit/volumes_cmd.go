// File: cmd/opskit/volumes_cmd.go
package main

import (
	"errors"
	"fmt"

	"opskit/internal/config"
	"opskit/internal/flags"
	"opskit/pkg/audit"

	"github.com/spf13/cobra"
)

type volumesFlags struct {
	regions []string
	start   string
	end     string
	output  string
}

func newVolumesCmd() *cobra.Command {
	cmdFlags := volumesFlags{}

	volumesCmd := &cobra.Command{
		Use:   "volumes",
		Short: "Audit EBS volumes",
	}

	auditCmd := &cobra.Command{
		Use:   "audit",
		Short: "Summarize EBS volume resizes recorded by CloudTrail",
		Long: `Looks up ModifyVolume events between --start and --end (RFC 3339 or YYYY-MM-DD) in every
region, stores the raw events as JSON lines and writes the total size increase, number of
modifications and event times per volume to CSV.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFromContext(cmd.Context())
			if err != nil {
				return err
			}
			cfg := app.Config.Volumes

			window := audit.Window{Start: cfg.Start, End: cfg.End}
			if cmdFlags.start != "" {
				if window.Start, err = config.ParseTime(cmdFlags.start); err != nil {
					return fmt.Errorf("invalid --%s: %w", flags.Start, err)
				}
			}
			if cmdFlags.end != "" {
				if window.End, err = config.ParseTime(cmdFlags.end); err != nil {
					return fmt.Errorf("invalid --%s: %w", flags.End, err)
				}
			}

			clients, err := app.AWS(cmd.Context())
			if err != nil {
				return err
			}
			regions, err := app.Regions(cmd.Context(), cmdFlags.regions)
			if err != nil {
				return err
			}

			files := audit.Files{
				Output:    firstNonEmpty(cmdFlags.output, cfg.OutputFile),
				RawEvents: cfg.RawEventsFile,
			}
			svc := audit.NewService(clients.CloudTrail, app.Fs, app.Logger, audit.WithMaxRetries(cfg.MaxRetries))

			summary, err := svc.Run(cmd.Context(), window, regions, files)
			if errors.Is(err, audit.ErrNoEvents) {
				fmt.Fprintln(app.Out, "No events found in the specified date range.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(app.Out, app.OpsFormatter.FormatVolumeSummary(summary, files.Output))
			return nil
		},
	}
	auditCmd.Flags().StringSliceVarP(&cmdFlags.regions, flags.Regions, flags.RegionsShort, nil, "Regions to search (defaults to aws.regions, then every enabled region)")
	auditCmd.Flags().StringVar(&cmdFlags.start, flags.Start, "", "Start of the window (overrides volumes.start)")
	auditCmd.Flags().StringVar(&cmdFlags.end, flags.End, "", "End of the window, defaults to now (overrides volumes.end)")
	auditCmd.Flags().StringVarP(&cmdFlags.output, flags.Output, flags.OutputShort, "", "CSV output file (overrides volumes.output_file)")

	volumesCmd.AddCommand(auditCmd)
	return volumesCmd
}
