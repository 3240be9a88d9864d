package rebate

import (
	"github.com/harborline/catalog/internal/rebate/repository"
	"github.com/harborline/catalog/internal/rebate/service"
	"go.uber.org/fx"
)

var Module = fx.Module("rebate.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
