// cmd/seed/seed_orders.go
package main

import (
	"Grid-SSRM/internal/app/ds"
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func main() {
	_ = godotenv.Load()

	// Получаем параметры подключения из .env
	uri := getEnv("MONGO_URI", "mongodb://localhost:27017")
	dbName := getEnv("MONGO_DATABASE", "grid")
	collName := getEnv("MONGO_COLLECTION", "orders")
	tenantID := getEnv("SEED_TENANT_ID", "")

	fmt.Println("=== Orders Seed ===")
	fmt.Printf("Connecting to: db=%s, collection=%s\n", dbName, collName)

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		log.Fatal("Failed to create mongo client:", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	defer func() {
		_ = client.Disconnect(context.Background())
	}()

	startTime := time.Now()

	// 1. Проверяем подключение
	fmt.Println("1. Checking database connection...")
	if err := client.Ping(ctx, nil); err != nil {
		log.Fatal("   ✗ Database connection failed: ", err)
	}
	fmt.Println("   ✓ Database connection successful")

	coll := client.Database(dbName).Collection(collName)

	// 2. Очищаем коллекцию по запросу
	if os.Getenv("SEED_RESET") == "true" {
		fmt.Println("2. Dropping existing orders...")
		if err := coll.Drop(ctx); err != nil {
			log.Fatal("Failed to drop collection: ", err)
		}
		fmt.Println("   ✓ Collection dropped")
	} else {
		fmt.Println("2. Keeping existing orders (set SEED_RESET=true to drop)")
	}

	// 3. Вставляем демонстрационные заказы
	fmt.Println("3. Inserting sample orders...")
	orders := ds.SampleOrders(tenantID, time.Now().UTC().Truncate(time.Second))
	res, err := coll.InsertMany(ctx, orders)
	if err != nil {
		log.Fatal("Failed to insert orders: ", err)
	}
	fmt.Printf("   ✓ Inserted %d orders\n", len(res.InsertedIDs))

	// 4. Индексы под группировку по региону и статусу
	fmt.Println("4. Creating indexes...")
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "region", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "tenant_id", Value: 1}}},
	}
	names, err := coll.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		log.Fatal("Failed to create indexes: ", err)
	}
	for _, name := range names {
		fmt.Printf("   ✓ Index %s\n", name)
	}

	fmt.Printf("=== Seed completed in %v ===\n", time.Since(startTime))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
