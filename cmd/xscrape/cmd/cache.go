package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

var cacheInfoUser string

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheInfoCmd)

	cacheInfoCmd.Flags().StringVarP(&cacheInfoUser, "user", "u", "", "identity to look up")
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspects and manages the result cache.",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Removes every cached result.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		service, err := newService(cmd.Context())
		if err != nil {
			log.Fatal(err)
		}
		defer service.Close()

		removed, err := service.ClearCache(cmd.Context())
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("removed %d cached results\n", removed)
	},
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Shows cache configuration, or the cached state of one identity with --user.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		service, err := newService(cmd.Context())
		if err != nil {
			log.Fatal(err)
		}
		defer service.Close()

		cfg := service.Config()
		if cacheInfoUser == "" {
			fmt.Printf("backend: %s\nttl: %ds\n", cfg.Cache.Backend, cfg.Cache.TTLSeconds)
			return
		}

		cached, err := service.CachedResult(cmd.Context(), cacheInfoUser)
		if err != nil {
			log.Fatal(err)
		}
		if cached == nil {
			fmt.Printf("@%s: not cached\n", cacheInfoUser)
			return
		}
		fmt.Printf("@%s: cached %.0fs ago, %d posts, success=%t\n",
			cached.Username, *cached.CacheAgeSeconds, len(cached.Tweets), cached.Success)
	},
}
