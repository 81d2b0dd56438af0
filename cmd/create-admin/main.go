package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/ctkuo2438/NUboard/internal/config"
	"github.com/ctkuo2438/NUboard/internal/database"
	"github.com/ctkuo2438/NUboard/internal/logger"
	"github.com/ctkuo2438/NUboard/internal/model"
	"github.com/ctkuo2438/NUboard/internal/repository"
	"github.com/ctkuo2438/NUboard/internal/service"
	"golang.org/x/term"
)

func main() {
	var email, username string
	flag.StringVar(&email, "email", "", "Email of the account to promote")
	flag.StringVar(&username, "username", "", "Username used when the account does not exist yet")
	flag.Parse()

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── CLI Input ─────────────────────────────────────────────────────
	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	reader := bufio.NewReader(os.Stdin)
	if email == "" {
		if !interactive {
			fmt.Println("Error: -email is required when stdin is not a terminal")
			os.Exit(2)
		}
		fmt.Println("=== Create Admin User ===")
		email = prompt(reader, "Enter Email: ")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		fmt.Println("Error: Email is required")
		os.Exit(2)
	}
	var askUsername func() string
	if interactive {
		askUsername = func() string { return prompt(reader, "Enter Username: ") }
	}

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

	// ─── Initialize Services ───────────────────────────────────────────
	store := repository.NewStore(pool)
	uow := service.NewUnitOfWork(store)
	if _, err := service.NewCatalogSeeder(uow, log).EnsureCatalog(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed authorization catalog")
	}
	access := service.NewAccessService(uow, rdb, cfg.AccessCacheTTL, log)
	assignments := service.NewAssignmentService(uow, access, service.NewActivityPublisher(rdb, log), log)

	// ─── Logic ─────────────────────────────────────────────────────────
	user, created, err := ensureAccount(ctx, store.Users, email, username, askUsername)
	if errors.Is(err, errUsernameRequired) {
		fmt.Println("Error: -username is required for a new account")
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to resolve user")
	}
	if created {
		fmt.Printf("Created user '%s' (%s) with ID: %d\n", user.Username, user.Email, user.ID)
	}

	view, err := assignments.AssignRole(ctx, user.ID, model.RoleAdmin, "cli")
	if errors.Is(err, service.ErrAlreadyHasRole) {
		fmt.Printf("User '%s' already holds %s\n", user.Username, model.RoleAdmin)
		return
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to assign ADMIN role")
	}

	fmt.Printf("\nSuccess! '%s' now holds roles %v\n", view.Username, view.Roles)
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

var errUsernameRequired = errors.New("username is required for a new account")

type accountStore interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, u *model.User) error
}

// ensureAccount returns the user owning email, creating a LOCAL account when
// none exists. The username only matters on the create path; askUsername, when
// set, is consulted there if the flag was empty.
func ensureAccount(ctx context.Context, users accountStore, email, username string, askUsername func() string) (*model.User, bool, error) {
	user, err := users.FindByEmail(ctx, email)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, fmt.Errorf("look up user: %w", err)
	}

	username = strings.TrimSpace(username)
	if username == "" && askUsername != nil {
		username = strings.TrimSpace(askUsername())
	}
	if username == "" {
		return nil, false, errUsernameRequired
	}

	user = &model.User{
		Username:     username,
		Email:        email,
		Enabled:      true,
		AuthProvider: model.AuthProviderLocal,
	}
	if err := users.Create(ctx, user); err != nil {
		return nil, false, fmt.Errorf("create user: %w", err)
	}
	return user, true, nil
}
