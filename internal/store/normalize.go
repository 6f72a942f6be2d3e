package store

import (
	"github.com/funnelboard/funnelboard-golang/internal/models"
)

// NormalizeForStorage returns a deep copy of the funnel with every
// optional collection materialized as an empty slice. The store must
// never receive an "absent" collection where the document shape expects
// one. This is the single sanitize pass applied at the persistence
// boundary, so a stored funnel always parses back structurally equal.
func NormalizeForStorage(f models.Funnel) models.Funnel {
	out := f
	out.Products = make([]models.Product, len(f.Products))
	for i, p := range f.Products {
		out.Products[i] = normalizeProduct(p)
	}
	return out
}

func normalizeProduct(p models.Product) models.Product {
	out := p
	out.Steps = make([]models.Step, len(p.Steps))
	for i, s := range p.Steps {
		if s.RelatedProducts == nil {
			s.RelatedProducts = []string{}
		}
		out.Steps[i] = s
	}
	out.ProductItems = make([]models.ProductItem, len(p.ProductItems))
	for i, item := range p.ProductItems {
		if item.Modules == nil {
			item.Modules = []models.Module{}
		}
		if item.Lessons == nil {
			item.Lessons = []models.Lesson{}
		}
		if item.Bonuses == nil {
			item.Bonuses = []models.Bonus{}
		}
		out.ProductItems[i] = item
	}
	return out
}
