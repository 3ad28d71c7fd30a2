package router

import (
	"github.com/oksasatya/tutorhub-user-service/config"
	userapp "github.com/oksasatya/tutorhub-user-service/internal/application"
	"github.com/oksasatya/tutorhub-user-service/internal/container"
	repouser "github.com/oksasatya/tutorhub-user-service/internal/domain/repository"
	"github.com/oksasatya/tutorhub-user-service/internal/infrastructure/memory"
	pginfra "github.com/oksasatya/tutorhub-user-service/internal/infrastructure/postgres"
	handlers "github.com/oksasatya/tutorhub-user-service/internal/interface/http"
	"github.com/oksasatya/tutorhub-user-service/internal/router/modules"
)

type UserModuleDeps struct {
	Repo    repouser.UserRepository
	Service *userapp.Service
	Handler *handlers.UserHandler
}

func buildUserRepo(cfg *config.Config) repouser.UserRepository {
	if cfg.UserStore == config.StoreMemory || container.GetPGPool() == nil {
		return memory.NewUserRepository()
	}
	return pginfra.NewUserRepository(container.GetPGPool())
}

// BuildUserDeps assembles the user service from the container singletons.
func BuildUserDeps() UserModuleDeps {
	cfg := container.GetConfig()
	repo := buildUserRepo(cfg)

	service := userapp.NewService(
		repo,
		container.GetPublisher(),
		container.GetRedis(),
		container.GetLogger(),
		container.GetES(),
		cfg.ESUsersIndex,
		container.GetMetrics(),
		cfg.UserConflictRetries,
		cfg.ReputationCacheTTL,
	)

	return UserModuleDeps{
		Repo:    repo,
		Service: service,
		Handler: handlers.NewUserHandler(service, container.GetLogger()),
	}
}

// InitModules registers every feature module with the router registry.
// It must run once, after the container has been populated.
func InitModules(r *Registry, userDeps UserModuleDeps) {
	r.Add(modules.NewUserModule(userDeps.Handler))
	if cfg := container.GetConfig(); cfg.DebugMetricsEnabled && container.GetRegistry() != nil {
		r.Add(modules.NewDebugModule(container.GetRegistry()))
	}
}
