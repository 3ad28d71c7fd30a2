package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/oksasatya/tutorhub-user-service/config"
	userapp "github.com/oksasatya/tutorhub-user-service/internal/application"
	repo "github.com/oksasatya/tutorhub-user-service/internal/domain/repository"
	vo "github.com/oksasatya/tutorhub-user-service/internal/domain/valueobject"
	pginfra "github.com/oksasatya/tutorhub-user-service/internal/infrastructure/postgres"
	"github.com/oksasatya/tutorhub-user-service/pkg/helpers"
)

// seed bootstraps the first super admin. Role changes to administrative roles need
// a super admin initiator, so the first one can only come from here.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)

	email := flag.String("email", "admin@tutorhub.local", "super admin email")
	first := flag.String("first-name", "Platform", "super admin first name")
	last := flag.String("last-name", "Admin", "super admin last name")
	flag.Parse()

	ctx := context.Background()
	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptions{MaxConns: 2, AppName: cfg.AppName + "-seed"})
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	svc := userapp.NewService(pginfra.NewUserRepository(pool), nil, nil, logger, nil, "", nil, cfg.UserConflictRetries, cfg.ReputationCacheTTL)

	u, err := svc.Register(ctx, userapp.RegisterInput{Email: *email, FirstName: *first, LastName: *last, Role: vo.RoleSuperAdmin})
	if errors.Is(err, repo.ErrEmailTaken) {
		fmt.Printf("user %s already exists, nothing to do\n", *email)
		return
	}
	if err != nil {
		log.Fatalf("failed to seed super admin: %v", err)
	}
	if u, err = svc.Activate(ctx, u.ID()); err != nil {
		log.Fatalf("failed to activate super admin: %v", err)
	}
	fmt.Printf("seeded super admin: id=%s email=%s status=%s\n", u.ID(), u.Email(), u.Status())
}
