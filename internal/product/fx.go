package product

import (
	"github.com/harborline/catalog/internal/product/repository"
	"github.com/harborline/catalog/internal/product/service"
	"go.uber.org/fx"
)

var Module = fx.Module("product.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
