package repository

import (
	"Grid-SSRM/internal/app/metrics"
	"Grid-SSRM/internal/app/mongo"
	"Grid-SSRM/internal/app/ssrm"
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"
	driver "go.mongodb.org/mongo-driver/v2/mongo"
)

type aggregateSource interface {
	Aggregate(ctx context.Context, database, collection string, pipeline driver.Pipeline) ([]bson.M, error)
}

// GridRepository выполняет пайплайны SSRM и переводит ошибки драйвера в ошибки движка
type GridRepository struct {
	source aggregateSource
}

func NewGridRepository(source aggregateSource) *GridRepository {
	return &GridRepository{
		source: source,
	}
}

func (r *GridRepository) Aggregate(ctx context.Context, database, collection string, pipeline driver.Pipeline) ([]bson.M, error) {
	start := time.Now()
	docs, err := r.source.Aggregate(ctx, database, collection, pipeline)
	elapsed := time.Since(start)

	if err != nil {
		outcome := "driver_error"
		var wrapped error = &ssrm.DriverError{Err: err}
		if mongo.IsConnectivity(err) {
			outcome = "connectivity_error"
			wrapped = &ssrm.ConnectivityError{Err: err}
		}
		metrics.AggregationDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
		logrus.WithFields(logrus.Fields{
			"database":   database,
			"collection": collection,
			"elapsed":    elapsed,
		}).Errorf("Failed to run aggregation: %v", err)
		return nil, wrapped
	}

	metrics.AggregationDuration.WithLabelValues("ok").Observe(elapsed.Seconds())
	return docs, nil
}
