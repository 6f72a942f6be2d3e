package funnel

import (
	"slices"

	"github.com/funnelboard/funnelboard-golang/internal/models"
)

// PlanKind is the resolution a delete plan calls for.
type PlanKind string

const (
	// PlanSimple deletes a step with no children.
	PlanSimple PlanKind = "simple"
	// PlanRescue transfers the children to the linked parent page, then
	// deletes the step. No confirmation needed, nothing is orphaned.
	PlanRescue PlanKind = "rescue"
	// PlanConfirmCascade deletes the step and all of its children. The
	// caller must obtain explicit confirmation before applying it.
	PlanConfirmCascade PlanKind = "confirm-cascade"
)

// DeletePlan describes what deleting a step entails.
type DeletePlan struct {
	Kind   PlanKind `json:"kind"`
	StepID string   `json:"stepId"`
	// RescueTargetID is the linked parent page adopting the children
	// (rescue plans only). Its own ParentID is cleared in the process.
	RescueTargetID string `json:"rescueTargetId,omitempty"`
	// ChildIDs are the steps transferred (rescue) or deleted alongside
	// the parent (confirm-cascade).
	ChildIDs []string `json:"childIds,omitempty"`
}

// RequiresConfirmation reports whether the plan is destructive beyond
// the single step and must not be applied without user consent.
func (p DeletePlan) RequiresConfirmation() bool {
	return p.Kind == PlanConfirmCascade
}

// PlanDelete decides how deleting the given step must be resolved
// against its sibling list.
func PlanDelete(stepID string, steps []models.Step) DeletePlan {
	plan := DeletePlan{Kind: PlanSimple, StepID: stepID}

	var linkedPage string
	for _, s := range steps {
		if s.ParentID != stepID {
			continue
		}
		if IsParentCategory(s.Type) {
			linkedPage = s.ID
		} else {
			plan.ChildIDs = append(plan.ChildIDs, s.ID)
		}
	}

	if linkedPage != "" {
		// A linked page exists: it adopts the children (possibly zero)
		// and becomes a top-level page itself.
		plan.Kind = PlanRescue
		plan.RescueTargetID = linkedPage
		return plan
	}
	if len(plan.ChildIDs) > 0 {
		plan.Kind = PlanConfirmCascade
	}
	return plan
}

// ApplyDeletePlan executes a plan against the step list and returns the
// resulting list with both pools densely renumbered. Confirm-cascade
// plans are applied as given; enforcing the confirmation step is the
// caller's job (PlanDelete + RequiresConfirmation).
func ApplyDeletePlan(steps []models.Step, plan DeletePlan) []models.Step {
	switch plan.Kind {
	case PlanRescue:
		out := slices.Clone(steps)
		for i := range out {
			if out[i].ID == plan.RescueTargetID {
				// The adopting page is unlinked from the deleted step.
				out[i].ParentID = ""
				continue
			}
			if out[i].ParentID == plan.StepID && !IsParentCategory(out[i].Type) {
				out[i].ParentID = plan.RescueTargetID
			}
		}
		return RemoveSteps(out, plan.StepID)

	case PlanConfirmCascade:
		return RemoveSteps(steps, append([]string{plan.StepID}, plan.ChildIDs...)...)

	default:
		return RemoveSteps(steps, plan.StepID)
	}
}
