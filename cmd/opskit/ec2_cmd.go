// File: cmd/opskit/ec2_cmd.go
package main

import (
	"fmt"

	"opskit/internal/flags"
	"opskit/pkg/compute/ec2"
	"opskit/pkg/report"

	"github.com/spf13/cobra"
)

type ec2Flags struct {
	regions       []string
	output        string
	instances     []string
	instancesFile string
	tags          []string
}

func newEC2Cmd() *cobra.Command {
	cmdFlags := ec2Flags{}

	ec2Cmd := &cobra.Command{
		Use:   "ec2",
		Short: "Inventory and tag EC2 instances across regions",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Export every EC2 instance to CSV",
		Long: `Lists the instances of every region (or the regions given with --regions / aws.regions)
and writes Region, Instance ID, Name, Type, State, Public IP, Private IP and Launch Time to CSV.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFromContext(cmd.Context())
			if err != nil {
				return err
			}
			svc, regions, err := newEC2Service(cmd, app, cmdFlags.regions)
			if err != nil {
				return err
			}

			instances, err := svc.Inventory(cmd.Context(), regions)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(instances))
			for _, inst := range instances {
				rows = append(rows, inst.Row())
			}
			output := firstNonEmpty(cmdFlags.output, app.Config.Inventory.InstancesFile)
			if err := report.WriteCSV(app.Fs, output, ec2.InventoryHeader, rows); err != nil {
				return err
			}
			fmt.Fprintln(app.Out, app.OpsFormatter.FormatExport("EC2 instances", len(instances), output))
			return nil
		},
	}
	listCmd.Flags().StringVarP(&cmdFlags.output, flags.Output, flags.OutputShort, "", "CSV output file (overrides inventory.instances_file)")

	tagCmd := &cobra.Command{
		Use:   "tag",
		Short: "Apply tags to instances wherever they run",
		Long: `Finds the region of each --instance (or of every instance listed in --instances-file,
a CSV written by 'opskit ec2 list'), then applies every --tag key=value with one CreateTags
call per region. Instances that cannot be found are reported and skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFromContext(cmd.Context())
			if err != nil {
				return err
			}
			tags, err := ec2.ParseTags(cmdFlags.tags)
			if err != nil {
				return err
			}
			instances, err := instanceIDs(app, cmdFlags.instances, cmdFlags.instancesFile)
			if err != nil {
				return err
			}
			svc, regions, err := newEC2Service(cmd, app, cmdFlags.regions)
			if err != nil {
				return err
			}

			result, err := svc.Tag(cmd.Context(), instances, tags, regions)
			if err != nil {
				return err
			}
			fmt.Fprintln(app.Out, app.OpsFormatter.FormatTagResult(result))

			if failed := result.Failed(); len(failed) > 0 {
				return fmt.Errorf("tagging failed in %d of %d regions", len(failed), len(result.Regions))
			}
			return nil
		},
	}
	tagCmd.Flags().StringSliceVar(&cmdFlags.instances, flags.Instance, nil, "Instance id to tag (repeatable or comma-separated)")
	tagCmd.Flags().StringVar(&cmdFlags.instancesFile, flags.InstancesFile, "", "Inventory CSV whose Instance ID column lists the instances to tag")
	tagCmd.Flags().StringArrayVar(&cmdFlags.tags, flags.Tag, nil, "Tag to apply as key=value (repeatable)")
	tagCmd.MarkFlagsOneRequired(flags.Instance, flags.InstancesFile)
	_ = tagCmd.MarkFlagRequired(flags.Tag)

	ec2Cmd.PersistentFlags().StringSliceVarP(&cmdFlags.regions, flags.Regions, flags.RegionsShort, nil, "Regions to scan (defaults to aws.regions, then every enabled region)")
	ec2Cmd.AddCommand(listCmd, tagCmd)
	return ec2Cmd
}

func newEC2Service(cmd *cobra.Command, app *appContainer, regionFlag []string) (*ec2.Service, []string, error) {
	clients, err := app.AWS(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	regions, err := app.Regions(cmd.Context(), regionFlag)
	if err != nil {
		return nil, nil, err
	}
	return ec2.NewService(clients.EC2, app.Logger, app.Config.Inventory.Concurrency), regions, nil
}

// Returns the --instance ids followed by those read from the inventory file, if one is given
func instanceIDs(app *appContainer, fromFlag []string, inventoryFile string) ([]string, error) {
	ids := append([]string(nil), fromFlag...)
	if inventoryFile == "" {
		return ids, nil
	}
	fromFile, err := ec2.ReadInstanceIDs(app.Fs, inventoryFile)
	if err != nil {
		return nil, err
	}
	return append(ids, fromFile...), nil
}
