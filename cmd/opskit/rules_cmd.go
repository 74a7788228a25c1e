// File: cmd/opskit/rules_cmd.go
package main

import (
	"fmt"

	"opskit/internal/flags"
	"opskit/pkg/events"
	"opskit/pkg/monitoring/alarms"

	"github.com/spf13/cobra"
)

type rulesFlags struct {
	manifest string
	account  string
}

func newRulesCmd() *cobra.Command {
	cmdFlags := rulesFlags{}

	rulesCmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage EventBridge rules that react to alarms",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an EventBridge rule per alarm in the manifest",
		Long: `Reads the alarm manifest written by 'opskit alarms create' and, for every alarm, creates
the rule <alarm>_rule with the recorded event pattern. Each rule targets the SSM document
rules.document_name, run on the alarm's instance with the role rules.role_arn.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFromContext(cmd.Context())
			if err != nil {
				return err
			}

			manifest, err := alarms.ReadManifest(app.Fs, firstNonEmpty(cmdFlags.manifest, app.Config.Alarms.ManifestFile))
			if err != nil {
				return err
			}

			clients, err := app.AWS(cmd.Context())
			if err != nil {
				return err
			}
			account, err := app.AccountID(cmd.Context(), firstNonEmpty(cmdFlags.account, app.Config.Rules.AccountID))
			if err != nil {
				return err
			}

			target := events.Target{
				AccountID:    account,
				DocumentName: app.Config.Rules.DocumentName,
				RoleARN:      app.Config.Rules.RoleARN,
			}
			svc := events.NewService(clients.Events, target, app.Logger)

			result, err := svc.CreateRules(cmd.Context(), manifest.Alarms)
			if err != nil {
				return err
			}
			fmt.Fprintln(app.Out, app.OpsFormatter.FormatRuleResult(result))

			if len(result.Skipped) > 0 {
				return fmt.Errorf("%d of %d rules were not created", len(result.Skipped), len(manifest.Alarms))
			}
			return nil
		},
	}
	createCmd.Flags().StringVar(&cmdFlags.manifest, flags.Manifest, "", "Alarm manifest to read (overrides alarms.manifest_file)")
	createCmd.Flags().StringVar(&cmdFlags.account, flags.Account, "", "Account id owning the SSM document (defaults to rules.account_id, then the caller's account)")

	rulesCmd.AddCommand(createCmd)
	return rulesCmd
}
