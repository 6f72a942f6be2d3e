package funnel

import (
	"github.com/google/uuid"

	"github.com/funnelboard/funnelboard-golang/internal/models"
)

func money(v float64) *float64 { return &v }

// DefaultProducts builds the starter template used when a funnel is
// created from a template rather than empty: an entry product feeding a
// full course, with fresh ids throughout.
func DefaultProducts() []models.Product {
	capture := models.Step{
		ID:              uuid.NewString(),
		Name:            "Capture Page",
		Description:     "Lead capture page",
		Type:            models.StepCapture,
		Status:          models.StatusTodo,
		Order:           0,
		RelatedProducts: []string{"Entry Offer"},
		Notes:           "Lead magnet opt-in",
	}
	sales := models.Step{
		ID:              uuid.NewString(),
		Name:            "Sales Page",
		Description:     "Entry product (low ticket)",
		Type:            models.StepPage,
		Status:          models.StatusTodo,
		Order:           1,
		ParentID:        capture.ID,
		RelatedProducts: []string{"Entry Offer"},
		Notes:           "Copy and irresistible offer",
	}
	checkout := models.Step{
		ID:              uuid.NewString(),
		Name:            "Checkout",
		Description:     "Payment page with order bumps",
		Type:            models.StepCheckout,
		Status:          models.StatusTodo,
		Order:           2,
		ParentID:        capture.ID,
		UpsellProducts:  []string{"Full Course"},
		RelatedProducts: []string{},
		Notes:           "Complementary offers",
	}
	metaAds := models.Step{
		ID:              uuid.NewString(),
		Name:            "Meta Ads",
		Description:     "Paid traffic on Facebook and Instagram",
		Type:            models.StepTraffic,
		Status:          models.StatusTodo,
		Order:           0,
		RelatedProducts: []string{},
	}

	courseSales := models.Step{
		ID:              uuid.NewString(),
		Name:            "Sales Page",
		Description:     "Landing page for the main product",
		Type:            models.StepPage,
		Status:          models.StatusTodo,
		Order:           0,
		RelatedProducts: []string{"Full Course"},
		Notes:           "Copy and irresistible offer",
	}
	courseUpsell := models.Step{
		ID:              uuid.NewString(),
		Name:            "Upsell",
		Description:     "Full course offer",
		Type:            models.StepUpsell,
		Status:          models.StatusTodo,
		Order:           1,
		ParentID:        courseSales.ID,
		RelatedProducts: []string{"Full Course"},
	}
	members := models.Step{
		ID:              uuid.NewString(),
		Name:            "Members Area",
		Description:     "Lessons + offer",
		Type:            models.StepMembership,
		Status:          models.StatusTodo,
		Order:           2,
		ParentID:        courseSales.ID,
		RelatedProducts: []string{"Full Course"},
		Notes:           "Offer the product if not yet bought.",
	}
	emailMarketing := models.Step{
		ID:              uuid.NewString(),
		Name:            "E-mail Marketing",
		Description:     "Campaigns to the captured list",
		Type:            models.StepTraffic,
		Status:          models.StatusTodo,
		Order:           0,
		RelatedProducts: []string{},
	}

	return []models.Product{
		{
			ID:          uuid.NewString(),
			Name:        "Entry Funnel",
			Type:        "entryProduct",
			Description: "Simple products that unlock trust and trigger the first sale.",
			Status:      models.StatusTodo,
			Order:       0,
			Steps:       []models.Step{capture, metaAds, sales, checkout},
			ProductItems: []models.ProductItem{
				{
					ID:      uuid.NewString(),
					Name:    "Entry Offer",
					Promise: "A quick win in seven minutes a day",
					Value:   money(24),
					Status:  models.StatusTodo,
					Modules: []models.Module{},
					Lessons: []models.Lesson{},
					Bonuses: []models.Bonus{},
				},
			},
		},
		{
			ID:          uuid.NewString(),
			Name:        "Full Course",
			Type:        "fullCourse",
			Description: "A bigger promise, a deeper result, and revenue starts to scale.",
			Status:      models.StatusTodo,
			Order:       1,
			Steps:       []models.Step{courseSales, courseUpsell, members, emailMarketing},
			ProductItems: []models.ProductItem{
				{
					ID:      uuid.NewString(),
					Name:    "Full Course",
					Promise: "The complete method, start to finish",
					Value:   money(247),
					Status:  models.StatusTodo,
					Modules: []models.Module{},
					Lessons: []models.Lesson{},
					Bonuses: []models.Bonus{},
				},
			},
		},
	}
}
