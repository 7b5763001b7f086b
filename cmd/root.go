package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "botfleet",
	Short: "Multi-platform conversational bot fleet",
	Long: `Botfleet runs a fleet of conversational support bots across Telegram,
WhatsApp Cloud and Instagram DM. It manages bot lifecycles, routes
inbound webhooks to the right instance, and generates replies through
OpenAI with optional ElevenLabs voice synthesis.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".botfleet.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
