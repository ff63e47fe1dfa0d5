package main

import (
	"os"

	"github.com/spf13/cobra"

	"keel/internal/interfaces/cli/migrate"
	"keel/internal/interfaces/cli/server"
)

// @title Keel Admin API
// @version 1.0
// @description Schema-driven admin backend with token authentication and generated CRUD resources.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	rootCmd := &cobra.Command{
		Use:   "keel",
		Short: "Keel - schema-driven admin backend",
		Long:  `Keel serves generated CRUD resources behind token authentication, with migration and seeding tools built in.`,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
