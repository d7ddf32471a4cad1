package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/jmehdipour/messaging-gateway/internal/config"
	"github.com/jmehdipour/messaging-gateway/internal/model"
	"github.com/jmehdipour/messaging-gateway/internal/repository"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Upsert the provider catalog from config",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		sqlDB, err := openPrimary(cfg)
		if err != nil {
			return err
		}
		defer sqlDB.Close()

		log.Println(">> Seeding providers...")
		n, err := seedProviders(ctx, repository.NewProvidersRepository(sqlDB), cfg.Providers)
		if err != nil {
			return err
		}
		log.Printf(">> Seed completed, %d providers", n)
		return nil
	},
}

// seedProviders upserts one catalog row per named provider and returns how many were written.
func seedProviders(ctx context.Context, repo repository.ProvidersRepository, pc config.ProvidersConfig) (int, error) {
	rows := []model.Provider{
		{Name: pc.SMS.Name, Type: model.ChannelSMS},
		{Name: pc.Email.Name, Type: model.ChannelEmail},
	}

	n := 0
	for _, p := range rows {
		if p.Name == "" {
			continue
		}
		if err := repo.Upsert(ctx, p); err != nil {
			return n, fmt.Errorf("upsert provider %q: %w", p.Name, err)
		}
		n++
	}
	return n, nil
}
