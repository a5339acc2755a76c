package cmd

import (
	"xscrape-backend/lib/serviceutil"
	"xscrape-backend/lib/telemetry"
	"xscrape-backend/services/scraper/server"

	"github.com/spf13/cobra"
)

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "address to listen on")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the scraper as a JSON HTTP API.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := serviceutil.SignalContext()

		service, err := newService(ctx)
		if err != nil {
			serviceutil.Fatal("initialize scraper", err)
		}
		defer service.Close()

		telemetry.InstrumentPerfStats(ctx)

		router := server.New(service).Router()
		if err := serviceutil.StartHttpServer(ctx, serveAddr, router); err != nil {
			serviceutil.Fatal("serve http", err)
		}
	},
}
