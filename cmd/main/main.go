package main

import (
	"Grid-SSRM/internal/app/config"
	"Grid-SSRM/internal/app/repository"
	"Grid-SSRM/internal/pkg"

	_ "Grid-SSRM/docs" // регистрирует swagger документ

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// @title Grid SSRM API
// @version 1.0
// @description Server-side row model for data grids: grouping, pivoting, filtering, sorting and pagination executed as document-store aggregation pipelines

// @contact.name API Support
// @contact.url http://localhost:8080

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

// @tag.name SSRM
// @tag.description Grid row requests
// @tag.name Service
// @tag.description Health and metrics
func main() {
	// Загружаем конфигурацию
	conf, err := config.NewConfig()
	if err != nil {
		logrus.Fatalf("error loading config: %v", err)
	}

	if level, err := logrus.ParseLevel(conf.LogLevel); err == nil {
		logrus.SetLevel(level)
	} else {
		logrus.Warnf("unknown log level %q, keeping %s", conf.LogLevel, logrus.GetLevel())
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	router := gin.New()
	router.Use(gin.Recovery())

	// Инициализируем репозиторий
	repo, err := repository.NewRepository(conf)
	if err != nil {
		logrus.Fatalf("error initializing repository: %v", err)
	}

	// Создаем приложение с конфигурацией
	application := pkg.NewApp(conf, router, repo)

	// Запускаем приложение
	application.RunApp()
}
