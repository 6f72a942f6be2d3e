package models

import (
	"time"
)

// Status is the workflow state shared by funnels, products, steps and
// catalog entities.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusPaused     Status = "paused"
)

// StepType is the closed set of step categories. The classification
// rules (parent vs child categories) live in the funnel package.
type StepType string

const (
	StepTraffic      StepType = "traffic"
	StepCapture      StepType = "capture"
	StepPage         StepType = "page"
	StepCheckout     StepType = "checkout"
	StepUpsell       StepType = "upsell"
	StepCrosssell    StepType = "crosssell"
	StepSubscription StepType = "subscription"
	StepMentoring    StepType = "mentoring"
	StepMembership   StepType = "membership"
	StepCustom       StepType = "custom"
)

// Step is one page/action/strategy in a product's flow.
// [NOTE]: Optional scalar fields use pointers so the persisted document
// keeps an explicit null instead of a zero value (the store rejects
// nothing, but round-tripping must preserve "absent").
type Step struct {
	ID          string   `json:"id" bson:"id"`
	Name        string   `json:"name" bson:"name"`
	Description string   `json:"description" bson:"description"`
	Type        StepType `json:"type" bson:"type"`
	Status      Status   `json:"status" bson:"status"`

	// Order is dense (0..n-1) inside the step's sibling pool. Traffic
	// steps and non-traffic steps are numbered independently.
	Order int `json:"order" bson:"order"`

	// ParentID points at a parent-category step of the same product.
	// Empty means "no parent"; a dangling value is cleaned on load.
	ParentID string `json:"parentId,omitempty" bson:"parentId,omitempty"`

	Link                string   `json:"link,omitempty" bson:"link,omitempty"`
	Notes               string   `json:"notes,omitempty" bson:"notes,omitempty"`
	DetailedDescription string   `json:"detailedDescription,omitempty" bson:"detailedDescription,omitempty"`
	UpsellProducts      []string `json:"upsellProducts,omitempty" bson:"upsellProducts,omitempty"`
	RelatedProducts     []string `json:"relatedProducts" bson:"relatedProducts"`
	IsCustom            bool     `json:"isCustom" bson:"isCustom"`

	// DownsellValue only applies to crosssell steps.
	DownsellValue *float64 `json:"downsellValue,omitempty" bson:"downsellValue,omitempty"`
}

// Module groups lessons inside a ProductItem.
type Module struct {
	ID          string `json:"id" bson:"id"`
	Name        string `json:"name" bson:"name"`
	Status      Status `json:"status" bson:"status"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`
}

// Lesson belongs to a ProductItem and may link to one of its modules.
// A dangling ModuleID has the same orphan semantics as Step.ParentID,
// minus the rescue rule.
type Lesson struct {
	ID          string `json:"id" bson:"id"`
	Name        string `json:"name" bson:"name"`
	Status      Status `json:"status" bson:"status"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`
	ModuleID    string `json:"moduleId,omitempty" bson:"moduleId,omitempty"`
	Link        string `json:"link,omitempty" bson:"link,omitempty"`
}

// Bonus is a named extra attached to a ProductItem.
type Bonus struct {
	ID          string `json:"id" bson:"id"`
	Name        string `json:"name" bson:"name"`
	Status      Status `json:"status" bson:"status"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`
	Link        string `json:"link,omitempty" bson:"link,omitempty"`
}

// OfferType tags a ProductItem as the initial offer or an upsell.
type OfferType string

const (
	OfferInitial OfferType = "inicial"
	OfferUpsell  OfferType = "upsell"
)

// ProductItem is a catalog entry owned by a Product. Items have no
// explicit order field; array position is the order.
type ProductItem struct {
	ID            string    `json:"id" bson:"id"`
	Name          string    `json:"name" bson:"name"`
	Status        Status    `json:"status" bson:"status"`
	Value         *float64  `json:"value,omitempty" bson:"value,omitempty"`
	Promise       string    `json:"promise,omitempty" bson:"promise,omitempty"`
	Modules       []Module  `json:"modules" bson:"modules"`
	Lessons       []Lesson  `json:"lessons" bson:"lessons"`
	Bonuses       []Bonus   `json:"bonuses" bson:"bonuses"`
	WhatsappGroup string    `json:"whatsappGroup,omitempty" bson:"whatsappGroup,omitempty"`
	TelegramGroup string    `json:"telegramGroup,omitempty" bson:"telegramGroup,omitempty"`
	HasAffiliates bool      `json:"hasAffiliates" bson:"hasAffiliates"`
	Notes         string    `json:"notes,omitempty" bson:"notes,omitempty"`
	OfferType     OfferType `json:"offerType,omitempty" bson:"offerType,omitempty"`
}

// Product is one offer/stage of a funnel: ordered steps plus catalog
// items. Order is dense and unique among the funnel's products.
type Product struct {
	ID                  string        `json:"id" bson:"id"`
	Name                string        `json:"name" bson:"name"`
	Type                string        `json:"type" bson:"type"`
	Description         string        `json:"description,omitempty" bson:"description,omitempty"`
	Promise             string        `json:"promise,omitempty" bson:"promise,omitempty"`
	Status              Status        `json:"status" bson:"status"`
	Order               int           `json:"order" bson:"order"`
	Steps               []Step        `json:"steps" bson:"steps"`
	ProductItems        []ProductItem `json:"productItems" bson:"productItems"`
	Link                string        `json:"link,omitempty" bson:"link,omitempty"`
	Notes               string        `json:"notes,omitempty" bson:"notes,omitempty"`
	DetailedDescription string        `json:"detailedDescription,omitempty" bson:"detailedDescription,omitempty"`
	Value               *float64      `json:"value,omitempty" bson:"value,omitempty"`
}

// Funnel is the top-level owned document: one marketing journey.
// The ID is assigned locally at creation time and rewritten to the
// store's canonical document id after the first successful save, so it
// is excluded from the persisted body.
type Funnel struct {
	ID               string            `json:"id" bson:"-"`
	Name             string            `json:"name" bson:"name"`
	Description      string            `json:"description,omitempty" bson:"description,omitempty"`
	Products         []Product         `json:"products" bson:"products"`
	OwnerID          string            `json:"ownerId" bson:"ownerId"`
	CreatedAt        time.Time         `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt" bson:"updatedAt"`
	IsPublic         bool              `json:"isPublic" bson:"isPublic"`
	PublicSlug       string            `json:"publicSlug,omitempty" bson:"publicSlug,omitempty"`
	AudienceTarget   *AudienceTarget   `json:"audienceTarget,omitempty" bson:"audienceTarget,omitempty"`
	AudienceInsights *AudienceInsights `json:"audienceInsights,omitempty" bson:"audienceInsights,omitempty"`
}

// FindProduct returns a pointer into the funnel's product slice, or nil.
func (f *Funnel) FindProduct(productID string) *Product {
	for i := range f.Products {
		if f.Products[i].ID == productID {
			return &f.Products[i]
		}
	}
	return nil
}

// FindStep returns a pointer into the product's step slice, or nil.
func (p *Product) FindStep(stepID string) *Step {
	for i := range p.Steps {
		if p.Steps[i].ID == stepID {
			return &p.Steps[i]
		}
	}
	return nil
}
