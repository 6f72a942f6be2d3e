package funnel

import (
	"sort"

	"github.com/funnelboard/funnelboard-golang/internal/models"
)

// Hierarchy is the board view of one product's steps, computed fresh
// from the flat step list on every call. It holds no state of its own;
// which section is expanded belongs to the client.
type Hierarchy struct {
	// ParentSections are top-level capture/sales pages: parent category,
	// no ParentID, at least one related product.
	ParentSections []models.Step
	// OrphanParentPages are parent-category steps with no ParentID and
	// zero related products. They show up as a removable warning group.
	OrphanParentPages []models.Step
	// OrphanChildren are child-category steps with no parent assigned.
	// They cannot be auto-resolved; the user must pick a parent.
	OrphanChildren []models.Step

	steps []models.Step
}

// Resolve partitions a product's flat step list into the board
// hierarchy.
func Resolve(steps []models.Step) Hierarchy {
	h := Hierarchy{steps: steps}
	for _, s := range steps {
		switch {
		case IsParentCategory(s.Type) && s.ParentID == "":
			if len(s.RelatedProducts) > 0 {
				h.ParentSections = append(h.ParentSections, s)
			} else {
				h.OrphanParentPages = append(h.OrphanParentPages, s)
			}
		case IsChildCategory(s.Type) && s.ParentID == "":
			h.OrphanChildren = append(h.OrphanChildren, s)
		}
	}
	sortByPriority(h.ParentSections)
	sortByPriority(h.OrphanParentPages)
	sortByPriority(h.OrphanChildren)
	return h
}

func sortByPriority(steps []models.Step) {
	sort.SliceStable(steps, func(a, b int) bool {
		pa, pb := TypePriority(steps[a].Type), TypePriority(steps[b].Type)
		if pa != pb {
			return pa < pb
		}
		return steps[a].Order < steps[b].Order
	})
}

// ChildrenOf returns the non-parent-category steps attached to the
// given parent, in order. A linked parent page also carries this
// ParentID but is rendered as the section's page pair, not a child.
func (h Hierarchy) ChildrenOf(parentID string) []models.Step {
	var children []models.Step
	for _, s := range h.steps {
		if s.ParentID == parentID && !IsParentCategory(s.Type) {
			children = append(children, s)
		}
	}
	sortByPriority(children)
	return children
}

// LinkedParentPage returns the parent-category step whose ParentID
// points at the given parent, if any. That step is the other half of a
// capture + sales page pair.
func (h Hierarchy) LinkedParentPage(parentID string) (models.Step, bool) {
	for _, s := range h.steps {
		if s.ParentID == parentID && IsParentCategory(s.Type) {
			return s, true
		}
	}
	return models.Step{}, false
}

// PagePair returns the section's pages in display order: the capture
// page always precedes the sales page, regardless of which one is the
// nominal parent.
func (h Hierarchy) PagePair(parent models.Step) []models.Step {
	linked, ok := h.LinkedParentPage(parent.ID)
	if !ok {
		return []models.Step{parent}
	}
	if linked.Type == models.StepCapture && parent.Type != models.StepCapture {
		return []models.Step{linked, parent}
	}
	return []models.Step{parent, linked}
}

// FirstParentSection suggests the default expanded section when the
// client has not chosen one.
func (h Hierarchy) FirstParentSection() (models.Step, bool) {
	if len(h.ParentSections) == 0 {
		return models.Step{}, false
	}
	return h.ParentSections[0], true
}
