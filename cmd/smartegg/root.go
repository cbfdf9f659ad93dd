package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
}

// newRootCommand builds the smartegg command tree.
func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "smartegg",
		Short: "SmartEgg incubation monitoring engine",
		Long: `smartegg monitors egg incubations: it ingests sensor readings from the
incubator boards, evaluates them against each batch's thresholds, keeps the
actuator state, streams live events over WebSocket and MQTT, and notifies
owners on Telegram.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", getConfigPath(),
		"path to config.yaml (env SMARTEGG_CONFIG)")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newMigrateCommand(opts))

	return cmd
}
