// Package funnel implements the funnel board's core rules: step
// category classification, sibling ordering, hierarchy resolution and
// cascade-delete planning. Everything here is pure; persistence and
// session state live in the engine package.
package funnel

import (
	"sort"

	"github.com/funnelboard/funnelboard-golang/internal/models"
)

// typeConfig is the associated data for one step type. Presentation
// metadata (icons, colors) deliberately stays out of the backend.
type typeConfig struct {
	Label       string
	Description string
	// Priority drives the ideal display order of non-traffic steps.
	// Ties (subscription/membership) fall back to the step order.
	Priority int
	Parent   bool
	Child    bool
}

var typeTable = map[models.StepType]typeConfig{
	models.StepTraffic:      {Label: "Traffic/Marketing", Description: "Traffic acquisition strategies", Priority: 0},
	models.StepCapture:      {Label: "Capture Page", Description: "Lead and email capture pages", Priority: 1, Parent: true},
	models.StepPage:         {Label: "Sales Page", Description: "Landing and sales pages", Priority: 2, Parent: true},
	models.StepCheckout:     {Label: "Checkout", Description: "Payment and order completion pages", Priority: 3, Child: true},
	models.StepUpsell:       {Label: "Upsell", Description: "Offers that raise the order value", Priority: 4, Child: true},
	models.StepCrosssell:    {Label: "Cross-sell", Description: "Complementary offers after a purchase", Priority: 5, Child: true},
	models.StepSubscription: {Label: "Subscription", Description: "Recurring products and clubs", Priority: 6, Child: true},
	models.StepMembership:   {Label: "Members Area", Description: "Content platform or community", Priority: 6, Child: true},
	models.StepMentoring:    {Label: "Mentoring", Description: "Personalized follow-up", Priority: 7, Child: true},
	models.StepCustom:       {Label: "Custom", Description: "Custom step", Priority: 99},
}

// ValidType reports whether t belongs to the closed step type set.
func ValidType(t models.StepType) bool {
	_, ok := typeTable[t]
	return ok
}

// TypeLabel returns the human label for a step type ("" if unknown).
func TypeLabel(t models.StepType) string {
	return typeTable[t].Label
}

// TypePriority returns the ideal-order rank of a step type. Unknown
// types sort last.
func TypePriority(t models.StepType) int {
	if cfg, ok := typeTable[t]; ok {
		return cfg.Priority
	}
	return 999
}

// IsParentCategory reports whether steps of this type can host children
// via ParentID (capture and sales pages).
func IsParentCategory(t models.StepType) bool {
	return typeTable[t].Parent
}

// IsChildCategory reports whether steps of this type require a parent
// page. Traffic never has a parent, and custom is parent-optional.
func IsChildCategory(t models.StepType) bool {
	return typeTable[t].Child
}

// TypeInfo is the client-facing description of one step type.
type TypeInfo struct {
	Type             models.StepType   `json:"type"`
	Label            string            `json:"label"`
	Description      string            `json:"description"`
	Parent           bool              `json:"parent"`
	Child            bool              `json:"child"`
	AvailableParents []models.StepType `json:"availableParents,omitempty"`
}

// TypeCatalog lists every step type in ideal display order.
func TypeCatalog() []TypeInfo {
	out := make([]TypeInfo, 0, len(typeTable))
	for t, cfg := range typeTable {
		out = append(out, TypeInfo{
			Type:             t,
			Label:            cfg.Label,
			Description:      cfg.Description,
			Parent:           cfg.Parent,
			Child:            cfg.Child,
			AvailableParents: AvailableParents(t),
		})
	}
	sort.Slice(out, func(a, b int) bool {
		if pa, pb := TypePriority(out[a].Type), TypePriority(out[b].Type); pa != pb {
			return pa < pb
		}
		return out[a].Type < out[b].Type
	})
	return out
}

// AvailableParents returns the parent types a child step may attach to.
// Every child category currently accepts either page kind; non-child
// types get an empty set.
func AvailableParents(childType models.StepType) []models.StepType {
	if !IsChildCategory(childType) && childType != models.StepCustom {
		return nil
	}
	return []models.StepType{models.StepCapture, models.StepPage}
}
