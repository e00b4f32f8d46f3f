package mongo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"Grid-SSRM/internal/app/config"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// ErrNotConfigured - строка подключения не задана; обнаруживается при первом обращении
var ErrNotConfigured = errors.New("mongo connection string is not configured")

// Provider лениво создает пул соединений и пересоздает его после закрытия.
// Создается один раз при старте и передается в репозиторий.
type Provider struct {
	uri            string
	connectTimeout time.Duration
	maxPoolSize    uint64

	mu     sync.Mutex
	client *mongo.Client
}

func NewProvider(cfg *config.Config) *Provider {
	return &Provider{
		uri:            cfg.MongoURI,
		connectTimeout: cfg.MongoConnectTimeout,
		maxPoolSize:    cfg.MongoMaxPoolSize,
	}
}

// Client возвращает общий клиент, подключаясь при первом вызове
func (p *Provider) Client(ctx context.Context) (*mongo.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return p.client, nil
	}
	if p.uri == "" {
		return nil, ErrNotConfigured
	}

	opts := options.Client().ApplyURI(p.uri)
	if p.connectTimeout > 0 {
		opts.SetConnectTimeout(p.connectTimeout).SetServerSelectionTimeout(p.connectTimeout)
	}
	if p.maxPoolSize > 0 {
		opts.SetMaxPoolSize(p.maxPoolSize)
	}

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	pingCtx := ctx
	if p.connectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, p.connectTimeout)
		defer cancel()
	}
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping failed: %w", err)
	}

	logrus.Info("Mongo client initialized successfully")
	p.client = client
	return client, nil
}

// invalidate забывает клиент, если он все еще текущий; следующий Client подключится заново
func (p *Provider) invalidate(client *mongo.Client) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == client {
		p.client = nil
		logrus.Warn("Mongo client reported closure, it will be recreated on next use")
	}
}

// Aggregate выполняет пайплайн и читает весь курсор
func (p *Provider) Aggregate(ctx context.Context, database, collection string, pipeline mongo.Pipeline) ([]bson.M, error) {
	client, err := p.Client(ctx)
	if err != nil {
		return nil, &AcquireError{Err: err}
	}

	coll := client.Database(database).Collection(collection)
	cursor, err := coll.Aggregate(ctx, pipeline, options.Aggregate().SetAllowDiskUse(true))
	if err != nil {
		p.checkClosed(client, err)
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []bson.M
	if err := cursor.All(ctx, &results); err != nil {
		p.checkClosed(client, err)
		return nil, err
	}
	return results, nil
}

func (p *Provider) checkClosed(client *mongo.Client, err error) {
	if errors.Is(err, mongo.ErrClientDisconnected) {
		p.invalidate(client)
	}
}

// Close закрывает пул, если он был создан
func (p *Provider) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == nil {
		return nil
	}
	err := p.client.Disconnect(ctx)
	p.client = nil
	return err
}

// AcquireError - не удалось получить клиента из пула
type AcquireError struct {
	Err error
}

func (e *AcquireError) Error() string {
	return e.Err.Error()
}

func (e *AcquireError) Unwrap() error {
	return e.Err
}

// IsConnectivity сообщает, что ошибка связана с сетью или выбором сервера
func IsConnectivity(err error) bool {
	var acquire *AcquireError
	if errors.As(err, &acquire) {
		return true
	}
	return mongo.IsNetworkError(err) || mongo.IsTimeout(err) || errors.Is(err, mongo.ErrClientDisconnected)
}
