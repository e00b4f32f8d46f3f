package handler

import (
	"Grid-SSRM/internal/app/config"
	"Grid-SSRM/internal/app/ssrm"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RegisterHandlers регистрирует все обработчики
func RegisterHandlers(router *gin.Engine, engine *ssrm.Engine, cfg *config.Config) error {
	scope, err := NewScope(cfg.BaseMatch, cfg.TenantField)
	if err != nil {
		return err
	}

	ssrmHandler := NewSSRMHandler(engine, scope, cfg.MaxPageSize, cfg.RequestTimeout)

	// Служебные маршруты
	router.GET("/health", HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.POST("/ssrm", ssrmHandler.Query)

	apiRouter := router.Group("/api")
	{
		apiRouter.POST("/ssrm", ssrmHandler.Query)
	}

	return nil
}
