package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"xscrape-backend/lib/export"
	"xscrape-backend/services/scraper"

	"github.com/spf13/cobra"
)

var (
	scrapeForce      bool
	scrapeOutputDir  string
	scrapeCSVPath    string
	scrapeDelay      float64
	scrapeNoHeadless bool
)

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().BoolVarP(&scrapeForce, "force", "f", false, "bypass the cache and fetch fresh pages")
	scrapeCmd.Flags().StringVarP(&scrapeOutputDir, "output", "o", "", "directory to write one JSON file per profile into")
	scrapeCmd.Flags().StringVar(&scrapeCSVPath, "csv", "", "file to write all posts into as CSV")
	scrapeCmd.Flags().Float64Var(&scrapeDelay, "delay", -1, "seconds to pause between profiles (overrides config)")
	scrapeCmd.Flags().BoolVar(&scrapeNoHeadless, "no-headless", false, "show the browser window")
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape <identity> [identity...]",
	Short: "Scrapes one or more profiles and prints or exports the results.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		service, err := newService(cmd.Context(), func(cfg *scraper.Config) {
			if scrapeDelay >= 0 {
				cfg.RateLimitSeconds = &scrapeDelay
			}
			if scrapeNoHeadless {
				headless := false
				cfg.Browser.Headless = &headless
			}
		})
		if err != nil {
			log.Fatal(err)
		}
		defer service.Close()

		results, err := service.ScrapeMany(cmd.Context(), args, scrapeForce, -1)
		if err != nil {
			log.Fatal(err)
		}

		failed := 0
		for _, result := range results {
			if !result.Success {
				failed++
			}

			if scrapeOutputDir == "" {
				export.ProfileTable(os.Stdout, result)
				continue
			}
			path := filepath.Join(scrapeOutputDir, export.DefaultFilename(result))
			if err := export.JSON(result, path); err != nil {
				log.Fatal(err)
			}
			fmt.Printf("wrote %s\n", path)
		}

		if scrapeCSVPath != "" {
			f, err := os.Create(scrapeCSVPath)
			if err != nil {
				log.Fatal(err)
			}
			if err := export.CSVPosts(f, results); err != nil {
				f.Close()
				log.Fatal(err)
			}
			if err := f.Close(); err != nil {
				log.Fatal(err)
			}
			fmt.Printf("wrote %s\n", scrapeCSVPath)
		}

		fmt.Printf("scraped %d profiles, %d failed\n", len(results), failed)
		if failed > 0 {
			os.Exit(1)
		}
	},
}
