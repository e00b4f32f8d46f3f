package ds

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleOrders(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	orders := SampleOrders("acme", now)
	require.Len(t, orders, 7)

	amount := map[string]float64{}
	quantity := map[string]int{}
	byStatus := map[string]float64{}
	for _, o := range orders {
		assert.Equal(t, "acme", o.TenantID)
		assert.False(t, o.CreatedAt.After(now))
		amount[o.Region] += o.Amount
		quantity[o.Region] += o.Quantity
		if o.Region == "North" {
			byStatus[o.Status] += o.Amount
		}
	}

	assert.Len(t, amount, 3)
	assert.Equal(t, 405.0, amount["North"])
	assert.Equal(t, 14, quantity["North"])
	assert.Equal(t, map[string]float64{"open": 330, "closed": 75}, byStatus)
}
