// File: cmd/opskit/alarms_cmd.go
package main

import (
	"fmt"

	"opskit/internal/config"
	"opskit/internal/flags"
	"opskit/pkg/compute/ec2"
	"opskit/pkg/monitoring/alarms"

	"github.com/spf13/cobra"
)

type alarmsFlags struct {
	regions       []string
	instances     []string
	instancesFile string
	manifest      string
}

func newAlarmsCmd() *cobra.Command {
	cmdFlags := alarmsFlags{}

	alarmsCmd := &cobra.Command{
		Use:   "alarms",
		Short: "Manage per-instance CloudWatch alarms",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a CPU alarm for each instance and record its event pattern",
		Long: `Creates a CloudWatch metric alarm per --instance in the region the instance runs in,
using the alarms.* configuration, and writes the alarm manifest read by 'opskit rules create'.
The manifest is replaced on every run and is empty when no alarm was created.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFromContext(cmd.Context())
			if err != nil {
				return err
			}
			instances, err := instanceIDs(app, cmdFlags.instances, cmdFlags.instancesFile)
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

			locator := ec2.NewService(clients.EC2, app.Logger, app.Config.Inventory.Concurrency)
			svc := alarms.NewService(clients.CloudWatch, locator, alarmSettings(app.Config.Alarms), app.Logger)

			result, err := svc.Create(cmd.Context(), instances, regions)
			if err != nil {
				return err
			}

			// Rewritten on every run so rules are never created from a previous run's alarms
			manifestPath := firstNonEmpty(cmdFlags.manifest, app.Config.Alarms.ManifestFile)
			if err := alarms.WriteManifest(app.Fs, manifestPath, alarms.Manifest{Alarms: result.Entries}); err != nil {
				return err
			}
			fmt.Fprintln(app.Out, app.OpsFormatter.FormatAlarmResult(result, manifestPath))

			if len(result.Failed) > 0 {
				return fmt.Errorf("failed to create %d of %d alarms", len(result.Failed), len(result.Failed)+len(result.Entries))
			}
			return nil
		},
	}
	createCmd.Flags().StringSliceVar(&cmdFlags.instances, flags.Instance, nil, "Instance id to alarm on (repeatable or comma-separated)")
	createCmd.Flags().StringSliceVarP(&cmdFlags.regions, flags.Regions, flags.RegionsShort, nil, "Regions searched for the instances")
	createCmd.Flags().StringVar(&cmdFlags.manifest, flags.Manifest, "", "Alarm manifest to write (overrides alarms.manifest_file)")
	createCmd.Flags().StringVar(&cmdFlags.instancesFile, flags.InstancesFile, "", "Inventory CSV whose Instance ID column lists the instances to alarm on")
	createCmd.MarkFlagsOneRequired(flags.Instance, flags.InstancesFile)

	alarmsCmd.AddCommand(createCmd)
	return alarmsCmd
}

func alarmSettings(cfg config.AlarmsConfig) alarms.Settings {
	return alarms.Settings{
		NamePrefix:         cfg.NamePrefix,
		Namespace:          cfg.Namespace,
		MetricName:         cfg.MetricName,
		Statistic:          cfg.Statistic,
		Threshold:          cfg.Threshold,
		Period:             cfg.Period,
		EvaluationPeriods:  cfg.EvaluationPeriods,
		ComparisonOperator: cfg.ComparisonOperator,
	}
}
