package ssrm

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Executor выполняет одну команду агрегации
type Executor interface {
	Aggregate(ctx context.Context, database, collection string, pipeline mongo.Pipeline) ([]bson.M, error)
}

// PivotKeyCache хранит канонические pivot-ключи между запросами с одинаковой областью видимости
type PivotKeyCache interface {
	GetPivotKeys(ctx context.Context, key string) ([]string, bool, error)
	SavePivotKeys(ctx context.Context, key string, keys []string) error
}

type Options struct {
	DefaultDatabase   string
	DefaultCollection string
}

type Engine struct {
	exec  Executor
	cache PivotKeyCache
	opts  Options
}

// NewEngine создает движок; cache может быть nil
func NewEngine(exec Executor, cache PivotKeyCache, opts Options) *Engine {
	return &Engine{
		exec:  exec,
		cache: cache,
		opts:  opts,
	}
}

// Run выполняет запрос грида. Ошибка агрегации возвращается сразу, без повторов.
func (e *Engine) Run(ctx context.Context, req *Request, base mongo.Pipeline) (*Result, error) {
	database, collection := e.target(req)
	if database == "" || collection == "" {
		return nil, validationf("database and collection must be configured or supplied in the request")
	}

	plan, err := BuildPipeline(req, base)
	if err != nil {
		return nil, err
	}

	pivotKeys := []string{}
	fromCache := false
	if req.PivotActive() {
		pivotKeys, fromCache, err = e.resolvePivotKeys(ctx, database, collection, req, base)
		if err != nil {
			return nil, err
		}
	}

	logrus.WithFields(logrus.Fields{
		"database":   database,
		"collection": collection,
		"depth":      req.Depth(),
		"leaf":       plan.Leaf,
		"pivot":      plan.Pivot,
		"values":     req.ValueCols,
		"stages":     len(plan.Pipeline),
	}).Debug("running ssrm aggregation")

	docs, err := e.exec.Aggregate(ctx, database, collection, plan.Pipeline)
	if err != nil {
		return nil, err
	}

	// ключи из кэша могли устареть: новое значение на странице перечитывает их из базы
	if fromCache && hasUnknownPivotKeys(docs, pivotKeys) {
		logrus.WithFields(logrus.Fields{
			"database":   database,
			"collection": collection,
		}).Info("cached pivot keys are stale, refreshing")
		pivotKeys, err = e.refreshPivotKeys(ctx, database, collection, req, base)
		if err != nil {
			return nil, err
		}
	}

	return ShapeResult(plan, docs, pivotKeys), nil
}

func (e *Engine) target(req *Request) (string, string) {
	database := req.Database
	if database == "" {
		database = e.opts.DefaultDatabase
	}
	collection := req.Collection
	if collection == "" {
		collection = e.opts.DefaultCollection
	}
	return database, collection
}

// resolvePivotKeys возвращает канонические pivot-ключи и признак того, что они взяты из кэша
func (e *Engine) resolvePivotKeys(ctx context.Context, database, collection string, req *Request, base mongo.Pipeline) ([]string, bool, error) {
	pipeline, cacheKey, err := e.pivotKeyScope(database, collection, req, base)
	if err != nil {
		return nil, false, err
	}

	if cacheKey != "" {
		keys, found, err := e.cache.GetPivotKeys(ctx, cacheKey)
		if err != nil {
			logrus.Warnf("Failed to read pivot keys from cache: %v", err)
		} else if found {
			return keys, true, nil
		}
	}

	keys, err := e.queryPivotKeys(ctx, database, collection, pipeline, cacheKey)
	return keys, false, err
}

// refreshPivotKeys читает ключи из базы в обход кэша и перезаписывает запись в кэше
func (e *Engine) refreshPivotKeys(ctx context.Context, database, collection string, req *Request, base mongo.Pipeline) ([]string, error) {
	pipeline, cacheKey, err := e.pivotKeyScope(database, collection, req, base)
	if err != nil {
		return nil, err
	}
	return e.queryPivotKeys(ctx, database, collection, pipeline, cacheKey)
}

// pivotKeyScope строит агрегацию ключей и ключ кэша; пустой ключ кэша значит "без кэша"
func (e *Engine) pivotKeyScope(database, collection string, req *Request, base mongo.Pipeline) (mongo.Pipeline, string, error) {
	pipeline, err := PivotKeyPipeline(req, base)
	if err != nil {
		return nil, "", err
	}
	if e.cache == nil {
		return pipeline, "", nil
	}
	cacheKey, err := pivotCacheKey(database, collection, pipeline)
	if err != nil {
		logrus.Warnf("Failed to derive pivot cache key: %v", err)
		return pipeline, "", nil
	}
	return pipeline, cacheKey, nil
}

func (e *Engine) queryPivotKeys(ctx context.Context, database, collection string, pipeline mongo.Pipeline, cacheKey string) ([]string, error) {
	docs, err := e.exec.Aggregate(ctx, database, collection, pipeline)
	if err != nil {
		return nil, err
	}
	keys := CanonicalPivotKeys(docs)

	if cacheKey != "" {
		if err := e.cache.SavePivotKeys(ctx, cacheKey, keys); err != nil {
			logrus.Warnf("Failed to save pivot keys to cache: %v", err)
		}
	}
	return keys, nil
}
