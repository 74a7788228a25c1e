// File: cmd/opskit/purge_cmd.go
package main

import (
	"errors"
	"fmt"

	"opskit/internal/config"
	"opskit/internal/flags"
	"opskit/internal/prefixlist"
	"opskit/internal/service"
	"opskit/pkg/purge"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

type purgeFlags struct {
	provider  string
	bucket    string
	file      string
	prefixes  []string
	dryRun    bool
	force     bool
	maxRounds int
}

func newPurgeCmd() *cobra.Command {
	cmdFlags := purgeFlags{}

	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete every object and object version under a list of prefixes",
		Long: `Deletes all object versions, delete markers and current objects under each prefix
read from the prefix file (one prefix per line) and/or given with --prefix. Prefixes are
re-listed and retried with backoff until nothing is left or the round budget runs out.
Bucket, provider, prefix file and retry policy default to the 'purge.*' configuration keys.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFromContext(cmd.Context())
			if err != nil {
				return err
			}
			cfg := app.Config.Purge

			providerName := firstNonEmpty(cmdFlags.provider, cfg.Provider)
			bucket := firstNonEmpty(cmdFlags.bucket, cfg.Bucket)
			if bucket == "" {
				return errors.New("no bucket given. Use --bucket or 'opskit config set purge.bucket <name>'")
			}

			readFile := cmd.Flags().Changed(flags.File) || len(cmdFlags.prefixes) == 0
			prefixes, err := collectPrefixes(app.Fs, firstNonEmpty(cmdFlags.file, cfg.PrefixFile), readFile, cmdFlags.prefixes)
			if errors.Is(err, prefixlist.ErrListMissing) || errors.Is(err, prefixlist.ErrListEmpty) {
				fmt.Fprintln(app.Out, err)
				return nil
			}
			if err != nil {
				return err
			}

			policy := policyFromConfig(cfg)
			if cmdFlags.maxRounds > 0 {
				policy.MaxRounds = cmdFlags.maxRounds
			}

			outcome, err := app.PurgeService.Purge(cmd.Context(), service.PurgeRequest{
				Provider: providerName,
				Bucket:   bucket,
				Prefixes: prefixes,
				Policy:   policy,
				DryRun:   cmdFlags.dryRun,
				Progress: func(r purge.PrefixReport) { fmt.Fprintln(app.Out, r.Message()) },
				Confirm: func(usage int64) (bool, error) {
					if usage >= 0 {
						fmt.Fprintln(app.Out, app.PurgeFormatter.FormatUsage(providerName, bucket, usage))
					}
					if cmdFlags.force || cmdFlags.dryRun {
						return true, nil
					}
					message := fmt.Sprintf("This will permanently delete every object version under %d prefixes in bucket '%s' on %s.", len(prefixes), bucket, providerName)
					return app.Prompter.Confirm(message, bucket)
				},
			})
			if outcome.Cancelled {
				fmt.Fprintln(app.Out, "Purge cancelled.")
				return nil
			}

			switch {
			case cmdFlags.dryRun && outcome.Plan != nil:
				fmt.Fprintln(app.Out, app.PurgeFormatter.FormatPlan(bucket, outcome.Plan))
			case len(outcome.Report.Prefixes) > 0:
				fmt.Fprintln(app.Out, app.PurgeFormatter.FormatRunReport(bucket, outcome.Report))
			}
			return err
		},
	}

	purgeCmd.Flags().StringVarP(&cmdFlags.provider, flags.Provider, flags.ProviderShort, "", "Storage provider holding the bucket (aws or gcp)")
	purgeCmd.Flags().StringVarP(&cmdFlags.bucket, flags.Bucket, flags.BucketShort, "", "Bucket to purge")
	purgeCmd.Flags().StringVarP(&cmdFlags.file, flags.File, flags.FileShort, "", "File listing one prefix per line")
	purgeCmd.Flags().StringArrayVar(&cmdFlags.prefixes, flags.Prefix, nil, "Prefix to purge (repeatable). Replaces the prefix file unless --file is also given")
	purgeCmd.Flags().BoolVar(&cmdFlags.dryRun, flags.DryRun, false, "Count what would be deleted without deleting anything")
	purgeCmd.Flags().BoolVarP(&cmdFlags.force, flags.Force, flags.ForceShort, false, "Skip the confirmation prompt")
	purgeCmd.Flags().IntVar(&cmdFlags.maxRounds, flags.MaxRounds, 0, "Listing/deletion rounds per prefix before giving up (overrides purge.max_rounds)")
	return purgeCmd
}

func collectPrefixes(fs afero.Fs, path string, readFile bool, extra []string) ([]string, error) {
	var lists [][]string
	if readFile {
		fromFile, err := prefixlist.Read(fs, path)
		if err != nil {
			return nil, err
		}
		lists = append(lists, fromFile)
	}
	lists = append(lists, extra)

	prefixes := prefixlist.Merge(lists...)
	if len(prefixes) == 0 {
		return nil, prefixlist.ErrListEmpty
	}
	return prefixes, nil
}

func policyFromConfig(cfg config.PurgeConfig) purge.Policy {
	return purge.Policy{
		BatchSize:      cfg.BatchSize,
		MaxRounds:      cfg.MaxRounds,
		InitialBackoff: cfg.InitialBackoff,
		MaxBackoff:     cfg.MaxBackoff,
		Multiplier:     cfg.Multiplier,
		Jitter:         cfg.Jitter,
		MaxElapsed:     cfg.MaxElapsed,
	}
}
