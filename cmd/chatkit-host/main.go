package main

import (
	clay "github.com/go-go-golems/clay/pkg"
	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/glazed/pkg/cmds/logging"
	"github.com/go-go-golems/glazed/pkg/help"
	help_cmd "github.com/go-go-golems/glazed/pkg/help/cmd"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/chatkit-host/pkg/config"
)

var hostConfigPath string

var rootCmd = &cobra.Command{
	Use:          "chatkit-host",
	Short:        "chatkit-host serves an embedded chat widget and bridges its actions",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// reinitialize the logger now that --log-level and co are parsed
		return logging.InitLoggerFromCobra(cmd)
	},
}

func loadSettings() (config.Settings, error) {
	return config.Load(hostConfigPath)
}

func main() {
	if err := clay.InitGlazed("chatkit-host", rootCmd); err != nil {
		cobra.CheckErr(err)
	}

	helpSystem := help.NewHelpSystem()
	help_cmd.SetupCobraRootCommand(helpSystem, rootCmd)

	rootCmd.PersistentFlags().StringVar(&hostConfigPath, "host-config", "", "Path to a YAML host config")

	rootCmd.AddCommand(
		newServeCommand(),
		newFetchCommand(),
		newCopyCommand(),
	)

	historyCmd, err := NewHistoryCommand()
	cobra.CheckErr(err)
	command, err := cli.BuildCobraCommand(historyCmd)
	cobra.CheckErr(err)
	rootCmd.AddCommand(command)

	optionsCmd, err := NewOptionsCommand()
	cobra.CheckErr(err)
	command, err = cli.BuildCobraCommand(optionsCmd)
	cobra.CheckErr(err)
	rootCmd.AddCommand(command)

	cobra.CheckErr(rootCmd.Execute())
}
