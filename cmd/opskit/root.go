// File: cmd/opskit/root.go
package main

import (
	"fmt"
	"io"
	"os"

	"opskit/internal/flags"
	"opskit/internal/logger"

	"github.com/spf13/cobra"
)

type rootFlags struct {
	debug      bool
	configPath string
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	rf := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "opskit",
		Short: "opskit is a command-line toolkit for bulk cloud housekeeping.",
		Long: `A single CLI for the recurring clean-up and audit jobs on AWS and GCP:
purging bucket prefixes, exporting EC2 and RDS inventories, tagging instances,
wiring CPU alarms to EventBridge rules and auditing EBS volume resizes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return attachApp(cmd, rf, in, out, true)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.PersistentFlags().BoolVarP(&rf.debug, flags.Debug, flags.DebugShort, false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&rf.configPath, flags.Config, "", "Path to the config file (default ~/.config/opskit/config.yaml)")

	rootCmd.AddCommand(
		newConfigCmd(rf, in, out),
		newPurgeCmd(),
		newEC2Cmd(),
		newRDSCmd(),
		newAlarmsCmd(),
		newRulesCmd(),
		newVolumesCmd(),
	)
	return rootCmd
}

// Builds the app container for the command about to run and stores it in the command context
func attachApp(cmd *cobra.Command, rf *rootFlags, in io.Reader, out io.Writer, loadConfig bool) error {
	log := logger.NewLogger(rf.debug)
	app, err := newApp(log, rf.configPath, in, out, loadConfig)
	if err != nil {
		log.Error("Failed to initialize application", "error", err)
		return err
	}
	cmd.SetContext(withApp(cmd.Context(), app))
	return nil
}

// Runs the command tree and returns the process exit code
func Execute(rootCmd *cobra.Command) int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
