package cmd

import (
	"github.com/spf13/cobra"

	"github.com/piaaz/botfleet/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize botfleet configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure botfleet and generates a .botfleet.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
