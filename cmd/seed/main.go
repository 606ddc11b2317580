package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/oksasatya/authshop/config"
	"github.com/oksasatya/authshop/internal/domain/entity"
	"github.com/oksasatya/authshop/internal/domain/repository"
	pginfra "github.com/oksasatya/authshop/internal/infrastructure/postgres"
	"github.com/oksasatya/authshop/pkg/helpers"
)

// seed creates a verified demo account so login works without an email round trip.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), 2, 1, cfg.DBMaxConnLife)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	email := getenv("SEED_EMAIL", "demo@authshop.local")
	password := getenv("SEED_PASSWORD", "password123")
	name := getenv("SEED_NAME", "Demo User")

	hash, err := helpers.NewBcryptHasher(cfg.BcryptCost).Hash(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	repo := pginfra.NewAccountRepository(pool)
	a := &entity.Account{Email: email, PasswordHash: hash, Name: name, IsVerified: true}
	err = repo.Create(ctx, a)
	switch {
	case errors.Is(err, repository.ErrDuplicateEmail):
		existing, gerr := repo.GetByEmail(ctx, email)
		if gerr != nil {
			log.Fatalf("failed to load existing account: %v", gerr)
		}
		if err := repo.UpdatePassword(ctx, existing.ID, hash); err != nil {
			log.Fatalf("failed to reset seed password: %v", err)
		}
		if !existing.IsVerified {
			log.Printf("warning: %s exists but is unverified; verify it via OTP", email)
		}
		fmt.Printf("seed account already present: id=%s email=%s (password reset)\n", existing.ID, email)
	case err != nil:
		log.Fatalf("failed to seed account: %v", err)
	default:
		fmt.Printf("seeded account: id=%s email=%s name=%s password=%s\n", a.ID, email, name, password)
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
