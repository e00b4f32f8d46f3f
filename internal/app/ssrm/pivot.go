package ssrm

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

const pivotCacheKeyPrefix = "ssrm:pivot:"

// PivotKeyPipeline группирует весь отфильтрованный набор только по pivot-колонкам.
// groupKeys сюда не попадают, поэтому набор ключей одинаков для любой ветки дерева групп.
func PivotKeyPipeline(req *Request, base mongo.Pipeline) (mongo.Pipeline, error) {
	pipeline := make(mongo.Pipeline, 0, len(base)+3)
	pipeline = append(pipeline, base...)

	match, err := filterMatch(req)
	if err != nil {
		return nil, err
	}
	if match != nil {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: match}})
	}

	pipeline = append(pipeline,
		bson.D{{Key: "$group", Value: bson.D{{Key: "_id", Value: pivotKeyExpression(pivotFieldRefs(req))}}}},
		bson.D{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "k", Value: "$_id"},
		}}},
	)
	return pipeline, nil
}

// CanonicalPivotKeys сортирует и убирает дубликаты ключей из результата PivotKeyPipeline
func CanonicalPivotKeys(docs []bson.M) []string {
	seen := make(map[string]bool, len(docs))
	keys := make([]string, 0, len(docs))
	for _, doc := range docs {
		k, ok := doc["k"].(string)
		if !ok || seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// pivotCacheKey однозначно описывает область видимости набора pivot-ключей
func pivotCacheKey(database, collection string, pipeline mongo.Pipeline) (string, error) {
	scope := bson.D{
		{Key: "db", Value: database},
		{Key: "coll", Value: collection},
		{Key: "pipeline", Value: pipeline},
	}
	raw, err := bson.MarshalExtJSON(scope, true, false)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return pivotCacheKeyPrefix + hex.EncodeToString(sum[:]), nil
}
