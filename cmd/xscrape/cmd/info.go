package cmd

import (
	"log"
	"os"

	"xscrape-backend/lib/export"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(infoCmd)
}

var infoCmd = &cobra.Command{
	Use:   "info <identity>",
	Short: "Scrapes a single profile (cache allowed) and prints a summary table.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		service, err := newService(cmd.Context())
		if err != nil {
			log.Fatal(err)
		}
		defer service.Close()

		result, err := service.Scrape(cmd.Context(), args[0], false)
		if err != nil {
			log.Fatal(err)
		}

		export.ProfileTable(os.Stdout, result)
		if !result.Success {
			os.Exit(1)
		}
	},
}
