package distributor

import (
	"github.com/harborline/catalog/internal/distributor/repository"
	"github.com/harborline/catalog/internal/distributor/service"
	"go.uber.org/fx"
)

var Module = fx.Module("distributor.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
