package cmd

import (
	"github.com/spf13/cobra"

	"github.com/notely-dev/notely/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the Notely API server and block until interrupted.

The server reads its configuration from config.yaml and NOTELY_*
environment variables. A --port flag overrides the configured port.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.RunWithSignalHandling(server.Config{
			Port:    servePort,
			Version: Version,
		})
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to run the server on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
