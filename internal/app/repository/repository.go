package repository

import (
	"Grid-SSRM/internal/app/config"
	"Grid-SSRM/internal/app/mongo"
	"Grid-SSRM/internal/app/redis"
	"Grid-SSRM/internal/app/ssrm"
	"context"

	"github.com/sirupsen/logrus"
)

type Repository struct {
	mongo       *mongo.Provider
	redisClient *redis.Client
	Grid        *GridRepository
}

// NewRepository собирает репозиторий из готовой конфигурации.
// Mongo подключается лениво, Redis необязателен.
func NewRepository(cfg *config.Config) (*Repository, error) {
	provider := mongo.NewProvider(cfg)

	// Инициализируем Redis клиент
	var redisClient *redis.Client
	if cfg.RedisEnabled() {
		client, err := redis.NewClient(cfg)
		if err != nil {
			logrus.Warnf("Failed to initialize Redis client: %v", err)
			// Продолжаем без кэша pivot-ключей
		} else {
			redisClient = client
		}
	}

	repo := &Repository{
		mongo:       provider,
		redisClient: redisClient,
		Grid:        NewGridRepository(provider),
	}

	return repo, nil
}

// PivotCache возвращает кэш pivot-ключей или nil, если Redis недоступен
func (r *Repository) PivotCache() ssrm.PivotKeyCache {
	if r.redisClient == nil {
		return nil
	}
	return r.redisClient
}

// Close закрывает все соединения
func (r *Repository) Close(ctx context.Context) {
	if err := r.mongo.Close(ctx); err != nil {
		logrus.Errorf("Error closing Mongo client: %v", err)
	}
	if r.redisClient != nil {
		if err := r.redisClient.Close(); err != nil {
			logrus.Errorf("Error closing Redis client: %v", err)
		}
	}
}
