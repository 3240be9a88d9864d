package category

import (
	"github.com/harborline/catalog/internal/category/repository"
	"github.com/harborline/catalog/internal/category/service"
	"go.uber.org/fx"
)

var Module = fx.Module("category.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
