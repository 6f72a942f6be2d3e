package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/funnelboard/funnelboard-golang/internal/models"
)

// Cache is the local fallback copy of an owner's funnels: one JSON blob
// per owner, written after every successful in-memory mutation and read
// when the remote store is unreachable.
type Cache struct {
	dir string
}

// NewCache creates the cache directory if needed.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	return &Cache{dir: dir}, nil
}

func (c *Cache) path(ownerID string) string {
	return filepath.Join(c.dir, "funnels-"+ownerID+".json")
}

// Write stores the owner's full funnel list.
func (c *Cache) Write(ownerID string, funnels []models.Funnel) error {
	normalized := make([]models.Funnel, len(funnels))
	for i, f := range funnels {
		normalized[i] = NormalizeForStorage(f)
	}
	data, err := json.Marshal(normalized)
	if err != nil {
		return err
	}
	return os.WriteFile(c.path(ownerID), data, 0o644)
}

// Read loads the owner's cached funnel list. A missing file yields an
// empty list, not an error.
func (c *Cache) Read(ownerID string) ([]models.Funnel, error) {
	data, err := os.ReadFile(c.path(ownerID))
	if os.IsNotExist(err) {
		return []models.Funnel{}, nil
	}
	if err != nil {
		return nil, err
	}
	funnels := []models.Funnel{}
	if err := json.Unmarshal(data, &funnels); err != nil {
		return nil, err
	}
	return funnels, nil
}
