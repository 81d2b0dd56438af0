package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/ctkuo2438/NUboard/internal/config"
	"github.com/ctkuo2438/NUboard/internal/database"
	"github.com/ctkuo2438/NUboard/internal/logger"
	"github.com/ctkuo2438/NUboard/internal/model"
	"github.com/ctkuo2438/NUboard/internal/repository"
	"github.com/ctkuo2438/NUboard/internal/service"
)

func main() {
	var count int
	var prefix, domain string
	flag.IntVar(&count, "count", 20, "Number of users to seed")
	flag.StringVar(&prefix, "prefix", "student", "Username prefix")
	flag.StringVar(&domain, "domain", "northeastern.edu", "Email domain")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	store := repository.NewStore(pool)
	uow := service.NewUnitOfWork(store)
	if _, err := service.NewCatalogSeeder(uow, log).EnsureCatalog(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed authorization catalog")
	}
	access := service.NewAccessService(uow, rdb, cfg.AccessCacheTTL, log)
	assignments := service.NewAssignmentService(uow, access, service.NewActivityPublisher(rdb, log), log)

	fmt.Printf("=== Seeding %d Users ===\n", count)

	created, skipped := 0, 0
	for i := 1; i <= count; i++ {
		username := fmt.Sprintf("%s%03d", prefix, i)
		email := fmt.Sprintf("%s@%s", username, domain)

		user, err := store.Users.FindByEmail(ctx, email)
		if err == nil {
			skipped++
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			log.Fatal().Err(err).Str("email", email).Msg("Failed to look up user")
		}

		user = &model.User{
			Username:     username,
			Email:        email,
			Enabled:      true,
			AuthProvider: model.AuthProviderGoogle,
		}
		if err := store.Users.Create(ctx, user); err != nil {
			log.Fatal().Err(err).Str("email", email).Msg("Failed to create user")
		}
		if _, err := assignments.AssignRole(ctx, user.ID, model.RoleUser, "seed"); err != nil {
			log.Fatal().Err(err).Str("email", email).Msg("Failed to assign USER role")
		}
		created++
	}

	fmt.Printf("\nDone! Created: %d, Skipped (already exist): %d\n", created, skipped)
}
