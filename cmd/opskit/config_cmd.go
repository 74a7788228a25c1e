// File: cmd/opskit/config_cmd.go
package main

import (
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	"opskit/internal/config"
	"opskit/internal/flags"

	"github.com/spf13/cobra"
)

func newConfigCmd(rf *rootFlags, in io.Reader, out io.Writer) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long:  `Manage configuration settings for providers and commands. You can set, get, list, and delete configuration values.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return attachApp(cmd, rf, in, out, false)
		},
	}

	configSetCmd := &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Set a configuration key-value pair",
		Long:  `Sets a configuration value. For example: 'opskit config set purge.bucket my-logs-bucket'`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFromContext(cmd.Context())
			if err != nil {
				return err
			}

			key := strings.ToLower(args[0])
			value := args[1]

			if err := app.ConfigManager.SetValue(key, value); err != nil {
				return fmt.Errorf("error setting configuration: %w", err)
			}
			fmt.Fprintf(app.Out, "Configuration set: %s = %s\n", key, value)
			return nil
		},
	}

	configGetCmd := &cobra.Command{
		Use:   "get [key]",
		Short: "Get a configuration value by key",
		Long:  `Retrieves a configuration value for a given key. For example: 'opskit config get aws.region'`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFromContext(cmd.Context())
			if err != nil {
				return err
			}

			key := strings.ToLower(args[0])
			value, exists := app.ConfigManager.GetValue(key)
			if !exists {
				return fmt.Errorf("configuration key '%s' not found or not set", key)
			}
			fmt.Fprintf(app.Out, "%s = %v\n", key, value)
			return nil
		},
	}

	configDeleteCmd := &cobra.Command{
		Use:   "delete [key]",
		Short: "Delete a configuration value by key",
		Long:  `Deletes a configuration value for a given key. For example: 'opskit config delete gcp.project'`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFromContext(cmd.Context())
			if err != nil {
				return err
			}

			key := strings.ToLower(args[0])
			deleted, err := app.ConfigManager.DeleteValue(key)
			if err != nil {
				return fmt.Errorf("error deleting configuration: %w", err)
			}
			if !deleted {
				return fmt.Errorf("configuration key '%s' not found", key)
			}
			fmt.Fprintf(app.Out, "Configuration key '%s' deleted\n", key)
			return nil
		},
	}

	var fileOnly bool
	configListCmd := &cobra.Command{
		Use:   "list",
		Short: "List all current configuration values",
		Long: `Displays every configuration value that is set, whether it comes from the file, the environment or a non-empty default.
With --file-only, only the values stored in the config file are shown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFromContext(cmd.Context())
			if err != nil {
				return err
			}

			settings := config.FlattenMap(app.ConfigManager.GetAllSettings())
			if fileOnly {
				if settings, err = app.ConfigManager.GetFileSettings(); err != nil {
					return err
				}
			}
			displaySettings := make(map[string]any)
			for k, v := range settings {
				if !isEmptySetting(v) {
					displaySettings[k] = v
				}
			}

			if len(displaySettings) == 0 {
				fmt.Fprintln(app.Out, "No configuration values set. Use 'opskit config set <key> <value>'.")
				return nil
			}

			keys := make([]string, 0, len(displaySettings))
			for k := range displaySettings {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			fmt.Fprintf(app.Out, "Current configuration (%s):\n", app.ConfigManager.Path())
			for _, k := range keys {
				fmt.Fprintf(app.Out, "  %s = %v\n", k, displaySettings[k])
			}
			return nil
		},
	}
	configListCmd.Flags().BoolVar(&fileOnly, flags.FileOnly, false, "Show only the values stored in the config file")

	configKeysCmd := &cobra.Command{
		Use:   "keys",
		Short: "List the supported configuration keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFromContext(cmd.Context())
			if err != nil {
				return err
			}
			for _, key := range config.SupportedKeys() {
				fmt.Fprintln(app.Out, key)
			}
			return nil
		},
	}

	configCmd.AddCommand(configSetCmd, configGetCmd, configDeleteCmd, configListCmd, configKeysCmd)
	return configCmd
}

func isEmptySetting(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice {
		return rv.Len() == 0
	}
	return false
}
