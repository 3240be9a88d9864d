package claim

import (
	"github.com/harborline/catalog/internal/claim/repository"
	"github.com/harborline/catalog/internal/claim/service"
	"go.uber.org/fx"
)

var Module = fx.Module("claim.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
