package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/atelierdevis/devis-gateway/internal/config"
	"github.com/atelierdevis/devis-gateway/internal/db"
	"github.com/atelierdevis/devis-gateway/internal/flag"
)

var seedOpen bool

var seedFlagCmd = &cobra.Command{
	Use:   "seed-flag",
	Short: "Write the initial orders-open flag value",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		redisClient, err := db.NewRedis(cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis connect: %w", err)
		}
		defer func() { _ = redisClient.Close() }()

		store := flag.NewStore(redisClient)
		if err := store.Set(cmd.Context(), seedOpen); err != nil {
			return fmt.Errorf("write flag: %w", err)
		}

		log.Printf(">> Orders flag set to open=%v", seedOpen)
		return nil
	},
}

func init() {
	seedFlagCmd.Flags().BoolVar(&seedOpen, "open", false, "whether the order form accepts submissions")
}
