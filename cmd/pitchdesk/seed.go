package main

import (
	"context"
	"fmt"

	"pitchdesk/internal/db"
	"pitchdesk/internal/store"
	"pitchdesk/pkg/types"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// defaultSectors is the catalog the sector dropdown renders from.
var defaultSectors = []types.Sector{
	{Slug: "agritech", Name: "AgriTech", DisplayOrder: 1},
	{Slug: "biotech", Name: "BioTech", DisplayOrder: 2},
	{Slug: "climate", Name: "Climate", DisplayOrder: 3},
	{Slug: "consumer", Name: "Consumer", DisplayOrder: 4},
	{Slug: "edtech", Name: "EdTech", DisplayOrder: 5},
	{Slug: "fintech", Name: "FinTech", DisplayOrder: 6},
	{Slug: "healthtech", Name: "HealthTech", DisplayOrder: 7},
	{Slug: "logistics", Name: "Logistics", DisplayOrder: 8},
	{Slug: "proptech", Name: "PropTech", DisplayOrder: 9},
	{Slug: "saas", Name: "SaaS", DisplayOrder: 10},
	{Slug: "other", Name: "Other", DisplayOrder: 99},
}

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Seed the database with initial data",
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx := context.Background()

		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		logrus.Info("Connected to database")

		sectorRepo := store.NewSectorRepository(pool)

		logrus.Info("Seeding sectors...")
		for i := range defaultSectors {
			sector := defaultSectors[i]
			sector.IsActive = true
			if err := sectorRepo.UpsertSector(ctx, &sector); err != nil {
				return fmt.Errorf("failed to seed sector %s: %w", sector.Slug, err)
			}
		}

		logrus.Info("Sectors seeded successfully")

		return nil
	},
}
