package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// @title Inventory Orders API
// @version 1.0
// @description REST API for products, shipments and orders. Stock is derived from shipments received minus units on orders that are not cancelled.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "inventory-orders",
		Short:         "Inventory and order tracking service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a config file (default ./config.yaml when present)")

	serve := newServeCmd(&configPath)
	root.AddCommand(serve, newMigrateCmd(&configPath))
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())
	return root
}
