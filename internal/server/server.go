package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/harborline/catalog/internal/cache"
	"github.com/harborline/catalog/internal/category"
	categorydomain "github.com/harborline/catalog/internal/category/domain"
	"github.com/harborline/catalog/internal/claim"
	claimdomain "github.com/harborline/catalog/internal/claim/domain"
	"github.com/harborline/catalog/internal/config"
	"github.com/harborline/catalog/internal/distributor"
	distributordomain "github.com/harborline/catalog/internal/distributor/domain"
	"github.com/harborline/catalog/internal/observability"
	obsmiddleware "github.com/harborline/catalog/internal/observability/logger"
	obsmetrics "github.com/harborline/catalog/internal/observability/metrics"
	obstracing "github.com/harborline/catalog/internal/observability/tracing"
	"github.com/harborline/catalog/internal/product"
	productdomain "github.com/harborline/catalog/internal/product/domain"
	"github.com/harborline/catalog/internal/ratelimit"
	"github.com/harborline/catalog/internal/rebate"
	rebatedomain "github.com/harborline/catalog/internal/rebate/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	cache.Module,
	ratelimit.Module,
	category.Module,
	distributor.Module,
	product.Module,
	rebate.Module,
	claim.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	db             *gorm.DB
	productSvc     productdomain.Service
	categorySvc    categorydomain.Service
	distributorSvc distributordomain.Service
	rebateSvc      rebatedomain.Service
	claimSvc       claimdomain.Service
	claimBucket    *ratelimit.TokenBucket
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	DB             *gorm.DB
	ProductSvc     productdomain.Service
	CategorySvc    categorydomain.Service
	DistributorSvc distributordomain.Service
	RebateSvc      rebatedomain.Service
	ClaimSvc       claimdomain.Service
	ClaimBucket    *ratelimit.TokenBucket `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		db:             p.DB,
		productSvc:     p.ProductSvc,
		categorySvc:    p.CategorySvc,
		distributorSvc: p.DistributorSvc,
		rebateSvc:      p.RebateSvc,
		claimSvc:       p.ClaimSvc,
		claimBucket:    p.ClaimBucket,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")

	products := api.Group("/products")
	products.POST("", s.CreateProduct)
	products.GET("", s.ListProducts)
	products.GET("/:id", s.GetProductByID)
	products.PATCH("/:id", s.UpdateProduct)
	products.POST("/:id/archive", s.ArchiveProduct)
	api.GET("/product-handles/:handle", s.GetProductByHandle)

	categories := api.Group("/categories")
	categories.POST("", s.CreateCategory)
	categories.GET("", s.ListCategories)
	categories.GET("/:id", s.GetCategoryByID)
	categories.PATCH("/:id", s.UpdateCategory)
	categories.DELETE("/:id", s.DeleteCategory)
	categories.GET("/:id/descendants", s.GetCategoryDescendants)

	distributors := api.Group("/distributors")
	distributors.POST("", s.CreateDistributor)
	distributors.GET("", s.ListDistributors)
	distributors.GET("/:id", s.GetDistributorByID)
	distributors.PATCH("/:id", s.UpdateDistributor)
	distributors.POST("/:id/archive", s.ArchiveDistributor)

	rebates := api.Group("/rebate-agreements")
	rebates.POST("", s.CreateRebateAgreement)
	rebates.GET("", s.ListRebateAgreements)
	rebates.GET("/:id", s.GetRebateAgreementByID)
	rebates.GET("/uuid/:uuid", s.GetRebateAgreementByUUID)
	rebates.PUT("/:id", s.UpdateRebateAgreement)
	rebates.DELETE("/:id", s.DeleteRebateAgreement)

	claims := api.Group("/rebate-claims")
	claims.POST("/calculate", s.claimRateLimit(), s.CalculateRebateClaim)
	claims.GET("", s.ListRebateClaims)
	claims.GET("/:id", s.GetRebateClaimByID)
	claims.POST("/:id/advance", s.AdvanceRebateClaim)
}
