package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	logo    = "\n" +
		" __ _  __ _  ___ _ __ | |_ ___ ___ _ __ ___\n" +
		"/ _` |/ _` |/ _ \\ '_ \\| __/ __/ _ \\ '__/ _ \\\n" +
		"| (_| | (_| |  __/ | | | || (_| (_) | | |  __/\n" +
		"\\__,_|\\__, |\\___|_| |_|\\__\\___\\___/_|  \\___|\n" +
		"      |___/\n"
)

var rootCmd = &cobra.Command{
	Use:   "agentcore",
	Short: "agentcore - multi-agent coordination core",
	Long:  color.CyanString(logo) + "\nTier routing, room bridging, and scheduled work for a multi-agent assistant.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the agentcore version",
	Run: func(cmd *cobra.Command, args []string) {
		color.Cyan("agentcore %s", version)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(daemonCmd)
}
