package ds

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Order - документ коллекции заказов, на которой демонстрируется SSRM
type Order struct {
	ID        bson.ObjectID `json:"id" bson:"_id,omitempty"`
	TenantID  string        `json:"tenant_id,omitempty" bson:"tenant_id,omitempty"`
	Region    string        `json:"region" bson:"region"`
	Status    string        `json:"status" bson:"status"`
	Amount    float64       `json:"amount" bson:"amount"`
	Quantity  int           `json:"quantity" bson:"quantity"`
	CreatedAt time.Time     `json:"created_at" bson:"created_at"`
}

// SampleOrders возвращает демонстрационный набор из семи заказов
func SampleOrders(tenantID string, now time.Time) []Order {
	day := 24 * time.Hour
	return []Order{
		{TenantID: tenantID, Region: "North", Status: "open", Amount: 120, Quantity: 4, CreatedAt: now.Add(-6 * day)},
		{TenantID: tenantID, Region: "North", Status: "open", Amount: 210, Quantity: 7, CreatedAt: now.Add(-5 * day)},
		{TenantID: tenantID, Region: "North", Status: "closed", Amount: 75, Quantity: 3, CreatedAt: now.Add(-4 * day)},
		{TenantID: tenantID, Region: "South", Status: "open", Amount: 410, Quantity: 5, CreatedAt: now.Add(-3 * day)},
		{TenantID: tenantID, Region: "South", Status: "closed", Amount: 90, Quantity: 2, CreatedAt: now.Add(-2 * day)},
		{TenantID: tenantID, Region: "West", Status: "open", Amount: 300, Quantity: 6, CreatedAt: now.Add(-day)},
		{TenantID: tenantID, Region: "West", Status: "closed", Amount: 155, Quantity: 3, CreatedAt: now},
	}
}
