package pkg

import (
	"Grid-SSRM/internal/app/config"
	"Grid-SSRM/internal/app/handler"
	"Grid-SSRM/internal/app/middleware"
	"Grid-SSRM/internal/app/repository"
	"Grid-SSRM/internal/app/ssrm"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

type Application struct {
	Config     *config.Config
	Router     *gin.Engine
	Repository *repository.Repository
}

func NewApp(c *config.Config, r *gin.Engine, repo *repository.Repository) *Application {
	return &Application{
		Config:     c,
		Router:     r,
		Repository: repo,
	}
}

// RunApp регистрирует маршруты и обслуживает запросы до сигнала остановки
func (a *Application) RunApp() {
	logrus.Info("Server start up")

	a.Router.Use(middleware.RequestID(), middleware.Logger(), middleware.Metrics())

	engine := ssrm.NewEngine(a.Repository.Grid, a.Repository.PivotCache(), ssrm.Options{
		DefaultDatabase:   a.Config.DefaultDatabase,
		DefaultCollection: a.Config.DefaultCollection,
	})
	if err := handler.RegisterHandlers(a.Router, engine, a.Config); err != nil {
		logrus.Fatalf("error registering handlers: %v", err)
	}

	serverAddress := fmt.Sprintf("%s:%d", a.Config.ServiceHost, a.Config.ServicePort)
	server := &http.Server{
		Addr:              serverAddress,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server error: %v", err)
		}
	}()
	logrus.Infof("Listening on %s", serverAddress)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("graceful shutdown failed: %v", err)
	}
	a.Repository.Close(ctx)

	logrus.Info("Server down")
}
