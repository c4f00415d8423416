package router

import (
	"github.com/klovaare/authgate/internal/application"
	"github.com/klovaare/authgate/internal/container"
	pginfra "github.com/klovaare/authgate/internal/infrastructure/postgres"
	handlers "github.com/klovaare/authgate/internal/interface/http"
	"github.com/klovaare/authgate/internal/router/modules"
)

func buildAuthModule() *modules.AuthModule {
	repo := pginfra.NewAccessRepository(container.GetPGPool())
	audit := pginfra.NewAuditStore(container.GetPGPool())

	service := application.NewService(
		repo,
		container.GetHasher(),
		container.GetLogger(),
	)

	handler := handlers.NewAuthHandler(service, container.GetLogger(), audit)

	return modules.NewAuthModule(handler)
}

// InitModules initializes all application modules and registers them with the
// router registry. Called once during startup.
func InitModules(r *Registry) {
	r.Add(buildAuthModule())
	if container.GetConfig().DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}
