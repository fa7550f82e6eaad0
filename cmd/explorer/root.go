package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "explorer",
		Short: "Scrape-and-cache API for the product data explorer.",
		Long: `explorer scrapes World of Books on demand and serves headings, categories,
products, product details and search results as JSON, caching every response
in memory with a per-resource TTL.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file")
	cmd.AddCommand(newServeCmd(&cfgFile))
	return cmd
}
