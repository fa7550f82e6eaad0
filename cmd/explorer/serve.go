package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/product-data-explorer/internal/config"
	"github.com/JakeFAU/product-data-explorer/internal/server"
)

// runApp is replaced in tests.
var runApp = func(cmd *cobra.Command, cfg *config.Config) error {
	app, err := server.Build(cfg)
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}
	return app.Run(cmd.Context())
}

func newServeCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API until SIGINT or SIGTERM.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return runApp(cmd, &cfg)
		},
	}
}
