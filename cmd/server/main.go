package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ruestzeit/anmeldung/internal/auth"
	"github.com/ruestzeit/anmeldung/internal/config"
	"github.com/ruestzeit/anmeldung/internal/database"
	"github.com/ruestzeit/anmeldung/internal/registration"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:          "anmeldung",
		Short:        "Registration service for Rüstzeiten",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), loadConfig(configFile))
		},
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (yaml, toml or json)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), loadConfig(configFile))
		},
	}

	refreshCmd := &cobra.Command{
		Use:   "refresh-counts",
		Short: "Recompute the cached member count of every event",
		RunE: func(cmd *cobra.Command, args []string) error {
			db := database.Connect(loadConfig(configFile))
			return registration.NewService(db).RefreshMemberCounts(cmd.Context())
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}

	root.AddCommand(serveCmd, newAdminCmd(&configFile), refreshCmd, versionCmd)
	return root
}

func newAdminCmd(configFile *string) *cobra.Command {
	adminCmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
	}

	var email, name, password string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			db := database.Connect(loadConfig(*configFile))
			admin, err := auth.CreateAdmin(cmd.Context(), db, email, name, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created admin %d (%s)\n", admin.ID, admin.Email)
			return nil
		},
	}
	createCmd.Flags().StringVar(&email, "email", "", "email address used to log in")
	createCmd.Flags().StringVar(&name, "name", "", "display name")
	createCmd.Flags().StringVar(&password, "password", "", "password; leave empty for SSO-only accounts")
	createCmd.MarkFlagRequired("email")

	adminCmd.AddCommand(createCmd)
	return adminCmd
}

func loadConfig(configFile string) *config.Config {
	cfg := config.LoadConfig(configFile)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}
