package repository

import (
	"Grid-SSRM/internal/app/config"
	"Grid-SSRM/internal/app/mongo"
	"Grid-SSRM/internal/app/ssrm"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	driver "go.mongodb.org/mongo-driver/v2/mongo"
)

type fakeSource struct {
	docs  []bson.M
	err   error
	calls int
}

func (f *fakeSource) Aggregate(_ context.Context, _, _ string, _ driver.Pipeline) ([]bson.M, error) {
	f.calls++
	return f.docs, f.err
}

func TestGridRepository_PassesResults(t *testing.T) {
	source := &fakeSource{docs: []bson.M{{"rows": bson.A{}, "total": bson.A{}}}}
	repo := NewGridRepository(source)

	docs, err := repo.Aggregate(context.Background(), "sales", "orders", driver.Pipeline{})
	require.NoError(t, err)
	assert.Equal(t, source.docs, docs)
}

func TestGridRepository_ConnectivityError(t *testing.T) {
	source := &fakeSource{err: &mongo.AcquireError{Err: errors.New("server selection timeout")}}
	repo := NewGridRepository(source)

	_, err := repo.Aggregate(context.Background(), "sales", "orders", driver.Pipeline{})

	var connErr *ssrm.ConnectivityError
	require.ErrorAs(t, err, &connErr)
	assert.Contains(t, err.Error(), "database connection failed")
	assert.Equal(t, 1, source.calls)
}

func TestGridRepository_DriverError(t *testing.T) {
	source := &fakeSource{err: errors.New("Unrecognized pipeline stage name: '$bogus'")}
	repo := NewGridRepository(source)

	_, err := repo.Aggregate(context.Background(), "sales", "orders", driver.Pipeline{})

	var driverErr *ssrm.DriverError
	require.ErrorAs(t, err, &driverErr)
	assert.ErrorIs(t, err, source.err)
	assert.Equal(t, 1, source.calls)
}

func TestNewRepository_WithoutRedis(t *testing.T) {
	repo, err := NewRepository(&config.Config{})
	require.NoError(t, err)

	assert.Nil(t, repo.PivotCache())
	require.NotNil(t, repo.Grid)

	_, err = repo.Grid.Aggregate(context.Background(), "sales", "orders", driver.Pipeline{})
	var connErr *ssrm.ConnectivityError
	assert.ErrorAs(t, err, &connErr)

	repo.Close(context.Background())
}
