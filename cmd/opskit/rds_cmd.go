// File: cmd/opskit/rds_cmd.go
package main

import (
	"fmt"

	"opskit/internal/flags"
	"opskit/pkg/database/rds"
	"opskit/pkg/report"

	"github.com/spf13/cobra"
)

type rdsFlags struct {
	regions []string
	output  string
}

func newRDSCmd() *cobra.Command {
	cmdFlags := rdsFlags{}

	rdsCmd := &cobra.Command{
		Use:   "rds",
		Short: "Inventory RDS instances and clusters across regions",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Export every RDS DB instance and cluster to CSV",
		Long: `Lists DB instances and DB clusters in every region and writes them to CSV.
The file defaults to <account-id>_rds_resources.csv unless inventory.rds_file or --output is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFromContext(cmd.Context())
			if err != nil {
				return err
			}
			clients, err := app.AWS(cmd.Context())
			if err != nil {
				return err
			}
			regions, err := app.Regions(cmd.Context(), cmdFlags.regions)
			if err != nil {
				return err
			}

			output := firstNonEmpty(cmdFlags.output, app.Config.Inventory.RDSFile)
			if output == "" {
				account, err := app.AccountID(cmd.Context(), "")
				if err != nil {
					return err
				}
				output = rds.OutputFileName(account)
			}

			svc := rds.NewService(clients.RDS, app.Logger, app.Config.Inventory.Concurrency)
			resources, err := svc.Inventory(cmd.Context(), regions)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(resources))
			for _, r := range resources {
				rows = append(rows, r.Row())
			}
			if err := report.WriteCSV(app.Fs, output, rds.Header, rows); err != nil {
				return err
			}
			fmt.Fprintln(app.Out, app.OpsFormatter.FormatExport("RDS resources", len(resources), output))
			return nil
		},
	}
	listCmd.Flags().StringSliceVarP(&cmdFlags.regions, flags.Regions, flags.RegionsShort, nil, "Regions to scan (defaults to aws.regions, then every enabled region)")
	listCmd.Flags().StringVarP(&cmdFlags.output, flags.Output, flags.OutputShort, "", "CSV output file")

	rdsCmd.AddCommand(listCmd)
	return rdsCmd
}
