package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/ctkuo2438/NUboard/internal/config"
	"github.com/ctkuo2438/NUboard/internal/database"
	"github.com/ctkuo2438/NUboard/internal/logger"
	"github.com/ctkuo2438/NUboard/internal/repository"
	"github.com/ctkuo2438/NUboard/internal/service"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	uow := service.NewUnitOfWork(repository.NewStore(pool))

	fmt.Println("=== Reconcile Authorization Catalog ===")
	fmt.Println("Adds missing catalog permissions, roles and default grants. Nothing is removed.")

	added, err := service.NewCatalogSeeder(uow, log).ReconcileCatalog(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to reconcile catalog")
	}

	// Cached access views may predate the new grants.
	service.NewAccessService(uow, rdb, cfg.AccessCacheTTL, log).InvalidateAll(ctx)

	keys := make([]string, 0, len(added))
	for k := range added {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %-12s %d added\n", k, added[k])
	}

	fmt.Println("\nSuccess! Catalog is up to date.")
}
