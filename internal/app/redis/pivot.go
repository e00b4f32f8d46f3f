package redis

import (
	"context"
	"encoding/json"
	"fmt"
)

// GetPivotKeys читает канонический набор pivot-ключей из кэша
func (c *Client) GetPivotKeys(ctx context.Context, key string) ([]string, bool, error) {
	raw, found, err := c.Get(ctx, key)
	if err != nil || !found {
		return nil, false, err
	}

	keys := []string{}
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil, false, fmt.Errorf("corrupted pivot keys under %s: %v", key, err)
	}
	return keys, true, nil
}

// SavePivotKeys сохраняет набор pivot-ключей на время жизни кэша
func (c *Client) SavePivotKeys(ctx context.Context, key string, keys []string) error {
	if keys == nil {
		keys = []string{}
	}
	raw, err := json.Marshal(keys)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, raw, c.ttl)
}
