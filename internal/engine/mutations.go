package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/funnelboard/funnelboard-golang/internal/funnel"
	"github.com/funnelboard/funnelboard-golang/internal/models"
)

// Every nested mutation helper below is a specialization of Update:
// locate the entity inside a private copy of the funnel tree, change
// it, and let Update handle the UpdatedAt stamp, cache write and
// background persistence.

// --- Products ---

// AddProduct appends a product to the funnel with fresh ids throughout
// and the next dense order value.
func (e *Engine) AddProduct(ctx context.Context, ownerID, funnelID string, product models.Product) (models.Product, error) {
	product.ID = uuid.NewString()
	for i := range product.Steps {
		product.Steps[i].ID = uuid.NewString()
	}
	for i := range product.ProductItems {
		assignItemIDs(&product.ProductItems[i])
	}

	_, err := e.Update(ctx, ownerID, funnelID, func(f *models.Funnel) error {
		product.Order = len(f.Products)
		f.Products = append(f.Products, product)
		f.Products = funnel.NormalizeProducts(f.Products)
		return nil
	})
	if err != nil {
		return models.Product{}, err
	}
	return product, nil
}

// UpdateProduct applies a mutation to one product of the funnel.
func (e *Engine) UpdateProduct(ctx context.Context, ownerID, funnelID, productID string, mutate func(*models.Product) error) error {
	_, err := e.Update(ctx, ownerID, funnelID, func(f *models.Funnel) error {
		p := f.FindProduct(productID)
		if p == nil {
			return ErrProductNotFound
		}
		return mutate(p)
	})
	return err
}

// DeleteProduct removes a product (steps and items go with it) and
// closes the order gap.
func (e *Engine) DeleteProduct(ctx context.Context, ownerID, funnelID, productID string) error {
	_, err := e.Update(ctx, ownerID, funnelID, func(f *models.Funnel) error {
		if f.FindProduct(productID) == nil {
			return ErrProductNotFound
		}
		kept := f.Products[:0:0]
		for _, p := range f.Products {
			if p.ID != productID {
				kept = append(kept, p)
			}
		}
		f.Products = funnel.NormalizeProducts(kept)
		return nil
	})
	return err
}

// MoveProduct swaps the product with its neighbour. The bool reports
// whether anything moved (false at a boundary).
func (e *Engine) MoveProduct(ctx context.Context, ownerID, funnelID, productID string, dir funnel.Direction) (bool, error) {
	moved := false
	_, err := e.Update(ctx, ownerID, funnelID, func(f *models.Funnel) error {
		if f.FindProduct(productID) == nil {
			return ErrProductNotFound
		}
		f.Products, moved = funnel.MoveProduct(f.Products, productID, dir)
		return nil
	})
	return moved, err
}

// --- Steps ---

// validateParent enforces the parent-linkage invariant: a ParentID must
// reference a parent-category step of the same product (never the step
// itself).
func validateParent(p *models.Product, step models.Step) error {
	if step.ParentID == "" {
		if funnel.IsChildCategory(step.Type) && !hasParentPage(p.Steps) {
			return ErrParentRequired
		}
		return nil
	}
	if step.ParentID == step.ID {
		return ErrInvalidParent
	}
	parent := p.FindStep(step.ParentID)
	if parent == nil || !funnel.IsParentCategory(parent.Type) {
		return ErrInvalidParent
	}
	return nil
}

func hasParentPage(steps []models.Step) bool {
	for _, s := range steps {
		if funnel.IsParentCategory(s.Type) {
			return true
		}
	}
	return false
}

// AddStep validates and inserts a new step into the product, honoring
// the capture-first rule. A child-category step with no parent selected
// is rejected outright when the product has no parent page at all.
func (e *Engine) AddStep(ctx context.Context, ownerID, funnelID, productID string, step models.Step) (models.Step, error) {
	if !funnel.ValidType(step.Type) {
		return models.Step{}, ErrStepNotFound
	}
	step.ID = uuid.NewString()
	if step.Status == "" {
		step.Status = models.StatusTodo
	}
	if step.RelatedProducts == nil {
		step.RelatedProducts = []string{}
	}

	var inserted models.Step
	_, err := e.Update(ctx, ownerID, funnelID, func(f *models.Funnel) error {
		p := f.FindProduct(productID)
		if p == nil {
			return ErrProductNotFound
		}
		if err := validateParent(p, step); err != nil {
			return err
		}
		p.Steps = funnel.InsertStep(p.Steps, step)
		inserted = *p.FindStep(step.ID)
		return nil
	})
	if err != nil {
		return models.Step{}, err
	}
	return inserted, nil
}

// UpdateStep applies a mutation to one step, re-validating the parent
// link afterwards so no mutation can break the hierarchy invariant.
func (e *Engine) UpdateStep(ctx context.Context, ownerID, funnelID, productID, stepID string, mutate func(*models.Step) error) error {
	_, err := e.Update(ctx, ownerID, funnelID, func(f *models.Funnel) error {
		p := f.FindProduct(productID)
		if p == nil {
			return ErrProductNotFound
		}
		s := p.FindStep(stepID)
		if s == nil {
			return ErrStepNotFound
		}
		if err := mutate(s); err != nil {
			return err
		}
		return validateParent(p, *s)
	})
	return err
}

// MoveStep nudges a step inside its sibling pool. Boundary moves are
// quiet no-ops (moved=false, no persistence).
func (e *Engine) MoveStep(ctx context.Context, ownerID, funnelID, productID, stepID string, dir funnel.Direction) (bool, error) {
	moved := false
	_, err := e.Update(ctx, ownerID, funnelID, func(f *models.Funnel) error {
		p := f.FindProduct(productID)
		if p == nil {
			return ErrProductNotFound
		}
		if p.FindStep(stepID) == nil {
			return ErrStepNotFound
		}
		p.Steps, moved = funnel.MoveStep(p.Steps, stepID, dir)
		return nil
	})
	return moved, err
}

// DragStep applies drag-and-drop reordering within one sibling pool.
func (e *Engine) DragStep(ctx context.Context, ownerID, funnelID, productID string, pool funnel.Pool, sourceIndex, destIndex int) (bool, error) {
	moved := false
	_, err := e.Update(ctx, ownerID, funnelID, func(f *models.Funnel) error {
		p := f.FindProduct(productID)
		if p == nil {
			return ErrProductNotFound
		}
		p.Steps, moved = funnel.ReindexAfterDrag(p.Steps, pool, sourceIndex, destIndex)
		return nil
	})
	return moved, err
}

// PlanDeleteStep inspects what deleting the step would entail, without
// changing anything.
func (e *Engine) PlanDeleteStep(ctx context.Context, ownerID, funnelID, productID, stepID string) (funnel.DeletePlan, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sess, err := e.ensureLoaded(ctx, ownerID)
	if err != nil {
		return funnel.DeletePlan{}, err
	}
	f := findFunnel(sess, funnelID)
	if f == nil {
		return funnel.DeletePlan{}, ErrFunnelNotFound
	}
	p := f.FindProduct(productID)
	if p == nil {
		return funnel.DeletePlan{}, ErrProductNotFound
	}
	if p.FindStep(stepID) == nil {
		return funnel.DeletePlan{}, ErrStepNotFound
	}
	return funnel.PlanDelete(stepID, p.Steps), nil
}

// DeleteStep resolves and executes the delete plan for a step. A
// confirm-cascade plan is returned with ErrConfirmRequired until the
// caller retries with confirmed=true; nothing is removed before that.
func (e *Engine) DeleteStep(ctx context.Context, ownerID, funnelID, productID, stepID string, confirmed bool) (funnel.DeletePlan, error) {
	var plan funnel.DeletePlan
	_, err := e.Update(ctx, ownerID, funnelID, func(f *models.Funnel) error {
		p := f.FindProduct(productID)
		if p == nil {
			return ErrProductNotFound
		}
		if p.FindStep(stepID) == nil {
			return ErrStepNotFound
		}
		plan = funnel.PlanDelete(stepID, p.Steps)
		if plan.RequiresConfirmation() && !confirmed {
			return ErrConfirmRequired
		}
		p.Steps = funnel.ApplyDeletePlan(p.Steps, plan)
		return nil
	})
	return plan, err
}

// --- Product items (catalog) ---

func assignItemIDs(item *models.ProductItem) {
	item.ID = uuid.NewString()
	moduleMap := make(map[string]string, len(item.Modules))
	for i := range item.Modules {
		old := item.Modules[i].ID
		item.Modules[i].ID = uuid.NewString()
		moduleMap[old] = item.Modules[i].ID
	}
	for i := range item.Lessons {
		item.Lessons[i].ID = uuid.NewString()
		if mid := item.Lessons[i].ModuleID; mid != "" {
			item.Lessons[i].ModuleID = moduleMap[mid]
		}
	}
	for i := range item.Bonuses {
		item.Bonuses[i].ID = uuid.NewString()
	}
}

// AddProductItem appends a catalog item to the product.
func (e *Engine) AddProductItem(ctx context.Context, ownerID, funnelID, productID string, item models.ProductItem) (models.ProductItem, error) {
	assignItemIDs(&item)
	if item.Status == "" {
		item.Status = models.StatusTodo
	}
	err := e.UpdateProduct(ctx, ownerID, funnelID, productID, func(p *models.Product) error {
		p.ProductItems = append(p.ProductItems, item)
		return nil
	})
	if err != nil {
		return models.ProductItem{}, err
	}
	return item, nil
}

// UpdateProductItem applies a mutation to one catalog item.
func (e *Engine) UpdateProductItem(ctx context.Context, ownerID, funnelID, productID, itemID string, mutate func(*models.ProductItem) error) error {
	return e.UpdateProduct(ctx, ownerID, funnelID, productID, func(p *models.Product) error {
		for i := range p.ProductItems {
			if p.ProductItems[i].ID == itemID {
				return mutate(&p.ProductItems[i])
			}
		}
		return ErrItemNotFound
	})
}

// DeleteProductItem removes a catalog item (splice semantics).
func (e *Engine) DeleteProductItem(ctx context.Context, ownerID, funnelID, productID, itemID string) error {
	return e.UpdateProduct(ctx, ownerID, funnelID, productID, func(p *models.Product) error {
		for i := range p.ProductItems {
			if p.ProductItems[i].ID == itemID {
				p.ProductItems = append(p.ProductItems[:i], p.ProductItems[i+1:]...)
				return nil
			}
		}
		return ErrItemNotFound
	})
}

// MoveProductItem splice-moves a catalog item to a new array position.
func (e *Engine) MoveProductItem(ctx context.Context, ownerID, funnelID, productID string, sourceIndex, destIndex int) (bool, error) {
	moved := false
	err := e.UpdateProduct(ctx, ownerID, funnelID, productID, func(p *models.Product) error {
		p.ProductItems, moved = funnel.MoveItem(p.ProductItems, sourceIndex, destIndex)
		return nil
	})
	return moved, err
}
