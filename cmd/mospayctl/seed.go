package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/aretechltd/mospay/internal/core/domain"
	"github.com/aretechltd/mospay/internal/infrastructure/persistence/postgres"
)

// defaultServices is the provider catalog a fresh installation starts with.
var defaultServices = []domain.Service{
	{
		Name:        "mtnmomorwa",
		DisplayName: "MTN MoMo Rwanda",
		Description: "MTN Mobile Money Rwanda service",
		ServiceURL:  "http://mtnmomorwa:8080/provider/api",
		IsActive:    true,
	},
	{
		Name:        "airtelmoney",
		DisplayName: "Airtel Money",
		Description: "Airtel Money service",
		ServiceURL:  "http://airtelmoney:8080/provider/api",
		IsActive:    true,
	},
	{
		Name:        "mpesa",
		DisplayName: "M-Pesa",
		Description: "M-Pesa mobile money service",
		ServiceURL:  "http://mpesa:8080/provider/api",
		IsActive:    true,
	},
}

func seedCmd() *cobra.Command {
	var (
		appID    string
		company  string
		username string
		password string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the default service catalog and a client",
		Long: `Seed writes the default provider services and one API client, granting
the client every seeded service. Every write is an upsert, so re-running
against a populated database refreshes the rows instead of failing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			db, cfg, err := connect(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			admin := postgres.NewAdminStore(db.Pool)

			services := make([]domain.Service, len(defaultServices))
			copy(services, defaultServices)
			for i := range services {
				if err := admin.UpsertService(ctx, &services[i]); err != nil {
					return err
				}
				fmt.Printf("seeded service %s (%s)\n", services[i].Name, services[i].DisplayName)
			}

			hash, err := bcrypt.GenerateFromPassword([]byte(password), cfg.Auth.BcryptCost)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			client := &domain.Client{
				AppID:           appID,
				CompanyName:     company,
				APIUsername:     username,
				APIPasswordHash: string(hash),
				IsActive:        true,
			}
			if err := admin.UpsertClient(ctx, client); err != nil {
				return err
			}
			fmt.Printf("seeded client %s (%s)\n", client.AppID, client.CompanyName)

			for i := range services {
				if err := admin.GrantService(ctx, client.ID, services[i].ID); err != nil {
					return err
				}
			}
			fmt.Printf("granted %d services to %s\n", len(services), client.AppID)
			return nil
		},
	}

	cmd.Flags().StringVar(&appID, "app-id", "mos1000", "App ID of the seeded client")
	cmd.Flags().StringVar(&company, "company", "Default Client", "Company name of the seeded client")
	cmd.Flags().StringVar(&username, "username", "demo", "API username of the seeded client")
	cmd.Flags().StringVar(&password, "password", "", "API password of the seeded client")
	cmd.MarkFlagRequired("password")

	return cmd
}
