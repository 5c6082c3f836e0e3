/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"

	"github.com/cbr-records/apiserver/config"
	"github.com/cbr-records/apiserver/internal/db"
	"github.com/cbr-records/apiserver/internal/services"
	"github.com/cbr-records/apiserver/internal/store"
	"github.com/spf13/cobra"
)

// seedAdminCmd represents the seed-admin command.
var seedAdminCmd = &cobra.Command{
	Use:   "seed-admin",
	Short: "Create the admin account from ADMIN_USERNAME/ADMIN_PASSWORD",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		if cfg.Admin.Password == "" {
			return errors.New("ADMIN_PASSWORD is required")
		}

		dbConn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() { _ = dbConn.Close() }()

		userService := services.NewUserService(store.NewUserRepository(dbConn))
		user, err := userService.CreateAdmin(cmd.Context(), cfg.Admin.Username, cfg.Admin.Password)
		if err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				fmt.Printf("admin %q already exists\n", cfg.Admin.Username)
				return nil
			}
			return fmt.Errorf("seed admin failed: %w", err)
		}

		fmt.Printf("admin %q created (id %d)\n", user.Username, user.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedAdminCmd)
}
