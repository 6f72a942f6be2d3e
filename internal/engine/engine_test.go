package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/funnelboard/funnelboard-golang/internal/funnel"
	"github.com/funnelboard/funnelboard-golang/internal/models"
	"github.com/funnelboard/funnelboard-golang/internal/store"
)

// fakeStore is an in-memory FunnelStore issuing 24-char canonical ids,
// like the real document store does.
type fakeStore struct {
	mu        sync.Mutex
	byID      map[string]models.Funnel
	nextID    int
	updates   int
	updateErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{byID: map[string]models.Funnel{}}
}

func (s *fakeStore) put(ownerID string, f models.Funnel) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	f.ID = fmt.Sprintf("%024d", s.nextID)
	f.OwnerID = ownerID
	s.byID[f.ID] = f
	return f.ID
}

func (s *fakeStore) ListByOwner(_ context.Context, ownerID string) ([]models.Funnel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Funnel{}
	for _, f := range s.byID {
		if f.OwnerID == ownerID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *fakeStore) Create(_ context.Context, f models.Funnel) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := fmt.Sprintf("%024d", s.nextID)
	f.ID = id
	s.byID[id] = f
	return id, nil
}

func (s *fakeStore) Update(_ context.Context, id string, f models.Funnel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	if _, ok := s.byID[id]; !ok {
		return store.ErrNotFound
	}
	f.ID = id
	s.byID[id] = f
	s.updates++
	return nil
}

func (s *fakeStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *fakeStore) Get(_ context.Context, id string) (*models.Funnel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &f, nil
}

func (s *fakeStore) get(id string) (models.Funnel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.byID[id]
	return f, ok
}

func (s *fakeStore) setUpdateErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateErr = err
}

// failingStore errors on every call, to exercise the cache fallback.
type failingStore struct{}

var errDown = errors.New("store is down")

func (failingStore) ListByOwner(context.Context, string) ([]models.Funnel, error) {
	return nil, errDown
}
func (failingStore) Create(context.Context, models.Funnel) (string, error) { return "", errDown }
func (failingStore) Update(context.Context, string, models.Funnel) error   { return errDown }
func (failingStore) Delete(context.Context, string) error                  { return errDown }
func (failingStore) Get(context.Context, string) (*models.Funnel, error)   { return nil, errDown }

const owner = "64b000000000000000000001"

func testFunnel(products ...models.Product) models.Funnel {
	return models.Funnel{
		Name:      "Launch",
		Products:  products,
		OwnerID:   owner,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func productWithSteps(steps ...models.Step) models.Product {
	return models.Product{
		ID:           "prod-1",
		Name:         "Course",
		Status:       models.StatusTodo,
		Steps:        steps,
		ProductItems: []models.ProductItem{},
	}
}

func mustLoadFunnel(t *testing.T, e *Engine, funnelID string) models.Funnel {
	t.Helper()
	funnels, err := e.LoadAll(context.Background(), owner)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	for _, f := range funnels {
		if f.ID == funnelID {
			return f
		}
	}
	t.Fatalf("funnel %s not in session", funnelID)
	return models.Funnel{}
}

func TestCreateReconcilesCanonicalID(t *testing.T) {
	fs := newFakeStore()
	e := NewEngine(fs, nil)
	ctx := context.Background()

	created, err := e.Create(ctx, owner, "Launch", "", false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !isTempID(created.ID) {
		t.Errorf("fresh funnel id %q should be temporary", created.ID)
	}

	e.Flush()

	funnels, err := e.LoadAll(ctx, owner)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(funnels) != 1 {
		t.Fatalf("got %d funnels, want 1", len(funnels))
	}
	if isTempID(funnels[0].ID) {
		t.Errorf("funnel id %q not rewritten to canonical id", funnels[0].ID)
	}
	if _, ok := fs.get(funnels[0].ID); !ok {
		t.Error("funnel not present in the store under its canonical id")
	}

	activeID, err := e.ActiveID(ctx, owner)
	if err != nil {
		t.Fatalf("ActiveID: %v", err)
	}
	if activeID != funnels[0].ID {
		t.Errorf("active id = %q, want the canonical id %q", activeID, funnels[0].ID)
	}
}

func TestCreateFromTemplate(t *testing.T) {
	fs := newFakeStore()
	e := NewEngine(fs, nil)

	created, err := e.Create(context.Background(), owner, "Launch", "", true)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created.Products) != 2 {
		t.Fatalf("template created %d products, want 2", len(created.Products))
	}
	e.Flush()
}

func TestLoadCleansOrphanReferences(t *testing.T) {
	fs := newFakeStore()

	sales := models.Step{ID: "s1", Name: "Sales", Type: models.StepPage, Order: 0, ParentID: "gone"}
	lesson := models.Lesson{ID: "l1", Name: "Intro", ModuleID: "missing-module"}
	product := productWithSteps(sales)
	product.ProductItems = []models.ProductItem{{ID: "i1", Name: "Course", Lessons: []models.Lesson{lesson}}}
	id := fs.put(owner, testFunnel(product))

	e := NewEngine(fs, nil)
	f := mustLoadFunnel(t, e, id)

	if got := f.Products[0].Steps[0].ParentID; got != "" {
		t.Errorf("dangling step parentId = %q, want cleared", got)
	}
	if got := f.Products[0].ProductItems[0].Lessons[0].ModuleID; got != "" {
		t.Errorf("dangling lesson moduleId = %q, want cleared", got)
	}

	// Self-healing: the cleaned funnel is written back.
	e.Flush()
	stored, _ := fs.get(id)
	if stored.Products[0].Steps[0].ParentID != "" {
		t.Error("cleanup was not persisted")
	}
}

func TestOrphanCleanupIsIdempotent(t *testing.T) {
	fs := newFakeStore()
	sales := models.Step{ID: "s1", Type: models.StepPage, Order: 0, ParentID: "gone"}
	id := fs.put(owner, testFunnel(productWithSteps(sales)))

	e := NewEngine(fs, nil)
	mustLoadFunnel(t, e, id)
	e.Flush()
	firstUpdates := fs.updates

	// A second engine loading the already-clean state must not write.
	e2 := NewEngine(fs, nil)
	mustLoadFunnel(t, e2, id)
	e2.Flush()
	if fs.updates != firstUpdates {
		t.Errorf("clean load still persisted: %d updates, want %d", fs.updates, firstUpdates)
	}
}

func TestCacheFallbackWhenRemoteDown(t *testing.T) {
	cache, err := store.NewCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	f := testFunnel(productWithSteps())
	f.ID = "cached-funnel-0000000001"
	if err := cache.Write(owner, []models.Funnel{f}); err != nil {
		t.Fatalf("cache write: %v", err)
	}

	e := NewEngine(failingStore{}, cache)
	funnels, err := e.LoadAll(context.Background(), owner)
	if err != nil {
		t.Fatalf("LoadAll should fall back to cache, got %v", err)
	}
	if len(funnels) != 1 || funnels[0].ID != f.ID {
		t.Errorf("cache fallback returned %v", funnels)
	}
}

func TestLoadFailsWithoutCache(t *testing.T) {
	e := NewEngine(failingStore{}, nil)
	if _, err := e.LoadAll(context.Background(), owner); !errors.Is(err, errDown) {
		t.Errorf("err = %v, want the store error", err)
	}
}

func seedFunnel(t *testing.T, fs *fakeStore, steps ...models.Step) (*Engine, string) {
	t.Helper()
	id := fs.put(owner, testFunnel(productWithSteps(steps...)))
	e := NewEngine(fs, nil)
	mustLoadFunnel(t, e, id)
	return e, id
}

func TestAddStepChildNeedsExistingParentPage(t *testing.T) {
	fs := newFakeStore()
	e, id := seedFunnel(t, fs) // no steps at all
	ctx := context.Background()

	_, err := e.AddStep(ctx, owner, id, "prod-1", models.Step{Name: "Checkout", Type: models.StepCheckout})
	if !errors.Is(err, ErrParentRequired) {
		t.Errorf("err = %v, want ErrParentRequired", err)
	}
	e.Flush()
}

func TestAddStepChildWithParentPagePresent(t *testing.T) {
	fs := newFakeStore()
	sales := models.Step{ID: "s1", Type: models.StepPage, Order: 0, RelatedProducts: []string{"Offer"}}
	e, id := seedFunnel(t, fs, sales)
	ctx := context.Background()

	// No parent selected but a page exists: saved as a transient orphan.
	created, err := e.AddStep(ctx, owner, id, "prod-1", models.Step{Name: "Checkout", Type: models.StepCheckout})
	if err != nil {
		t.Fatalf("AddStep: %v", err)
	}
	if created.ParentID != "" {
		t.Errorf("parentId = %q, want empty", created.ParentID)
	}

	// Explicit parent must reference a parent-category step.
	_, err = e.AddStep(ctx, owner, id, "prod-1", models.Step{Name: "Upsell", Type: models.StepUpsell, ParentID: created.ID})
	if !errors.Is(err, ErrInvalidParent) {
		t.Errorf("err = %v, want ErrInvalidParent", err)
	}

	created2, err := e.AddStep(ctx, owner, id, "prod-1", models.Step{Name: "Upsell", Type: models.StepUpsell, ParentID: "s1"})
	if err != nil {
		t.Fatalf("AddStep with valid parent: %v", err)
	}
	if created2.ParentID != "s1" {
		t.Errorf("parentId = %q, want s1", created2.ParentID)
	}
	e.Flush()
}

func TestAddCaptureStepTakesFirstSlot(t *testing.T) {
	fs := newFakeStore()
	sales := models.Step{ID: "s1", Type: models.StepPage, Order: 0}
	e, id := seedFunnel(t, fs, sales)

	created, err := e.AddStep(context.Background(), owner, id, "prod-1", models.Step{Name: "Capture", Type: models.StepCapture})
	if err != nil {
		t.Fatalf("AddStep: %v", err)
	}
	if created.Order != 0 {
		t.Errorf("capture order = %d, want 0", created.Order)
	}

	f := mustLoadFunnel(t, e, id)
	if got := f.Products[0].FindStep("s1").Order; got != 1 {
		t.Errorf("sales page order = %d, want pushed to 1", got)
	}
	e.Flush()
}

func TestDeleteStepConfirmFlow(t *testing.T) {
	fs := newFakeStore()
	sales := models.Step{ID: "s1", Type: models.StepPage, Order: 0}
	checkout := models.Step{ID: "c1", Type: models.StepCheckout, Order: 1, ParentID: "s1"}
	e, id := seedFunnel(t, fs, sales, checkout)
	ctx := context.Background()

	plan, err := e.DeleteStep(ctx, owner, id, "prod-1", "s1", false)
	if !errors.Is(err, ErrConfirmRequired) {
		t.Fatalf("err = %v, want ErrConfirmRequired", err)
	}
	if plan.Kind != funnel.PlanConfirmCascade {
		t.Errorf("plan kind = %s, want confirm-cascade", plan.Kind)
	}

	// Nothing was removed.
	f := mustLoadFunnel(t, e, id)
	if len(f.Products[0].Steps) != 2 {
		t.Fatalf("unconfirmed delete removed steps: %d left", len(f.Products[0].Steps))
	}

	if _, err := e.DeleteStep(ctx, owner, id, "prod-1", "s1", true); err != nil {
		t.Fatalf("confirmed delete: %v", err)
	}
	f = mustLoadFunnel(t, e, id)
	if len(f.Products[0].Steps) != 0 {
		t.Errorf("cascade left %d steps", len(f.Products[0].Steps))
	}
	e.Flush()
}

func TestDeleteStepRescueNeedsNoConfirmation(t *testing.T) {
	fs := newFakeStore()
	capture := models.Step{ID: "cap", Type: models.StepCapture, Order: 0}
	sales := models.Step{ID: "s1", Type: models.StepPage, Order: 1, ParentID: "cap"}
	checkout := models.Step{ID: "c1", Type: models.StepCheckout, Order: 2, ParentID: "cap"}
	e, id := seedFunnel(t, fs, capture, sales, checkout)

	plan, err := e.DeleteStep(context.Background(), owner, id, "prod-1", "cap", false)
	if err != nil {
		t.Fatalf("rescue delete: %v", err)
	}
	if plan.Kind != funnel.PlanRescue || plan.RescueTargetID != "s1" {
		t.Errorf("plan = %+v, want rescue onto s1", plan)
	}

	f := mustLoadFunnel(t, e, id)
	p := f.Products[0]
	if p.FindStep("cap") != nil {
		t.Error("deleted step still present")
	}
	if got := p.FindStep("c1").ParentID; got != "s1" {
		t.Errorf("checkout parentId = %q, want s1", got)
	}
	if got := p.FindStep("s1").ParentID; got != "" {
		t.Errorf("rescue target parentId = %q, want cleared", got)
	}
	e.Flush()
}

func TestDuplicateRemapsParentLinks(t *testing.T) {
	fs := newFakeStore()
	capture := models.Step{ID: "cap", Type: models.StepCapture, Order: 0}
	checkout := models.Step{ID: "c1", Type: models.StepCheckout, Order: 1, ParentID: "cap"}
	e, id := seedFunnel(t, fs, capture, checkout)

	dup, err := e.Duplicate(context.Background(), owner, id)
	if err != nil {
		t.Fatalf("Duplicate: %v", err)
	}
	if dup.Name != "Launch (Copy)" {
		t.Errorf("dup name = %q", dup.Name)
	}
	if dup.IsPublic || dup.PublicSlug != "" {
		t.Error("duplicate must not inherit public sharing")
	}

	steps := dup.Products[0].Steps
	if steps[0].ID == "cap" || steps[1].ID == "c1" {
		t.Error("duplicate kept original step ids")
	}
	if steps[1].ParentID != steps[0].ID {
		t.Errorf("child parentId = %q, want remapped to %q", steps[1].ParentID, steps[0].ID)
	}
	e.Flush()
}

func TestUpdateFailedMutationLeavesStateUntouched(t *testing.T) {
	fs := newFakeStore()
	sales := models.Step{ID: "s1", Type: models.StepPage, Order: 0}
	e, id := seedFunnel(t, fs, sales)

	boom := errors.New("boom")
	_, err := e.Update(context.Background(), owner, id, func(f *models.Funnel) error {
		f.Name = "Mutated"
		f.Products[0].Steps[0].Name = "Mutated"
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	f := mustLoadFunnel(t, e, id)
	if f.Name == "Mutated" || f.Products[0].Steps[0].Name == "Mutated" {
		t.Error("failed mutation leaked into session state")
	}
	e.Flush()
}

func TestMakePublicRefusesTempID(t *testing.T) {
	fs := newFakeStore()
	e := NewEngine(fs, nil)
	ctx := context.Background()

	created, err := e.Create(ctx, owner, "Launch", "", false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Race the publish against the background create on purpose: the
	// temp id is all the caller has at this point.
	if err := e.MakePublic(ctx, owner, created.ID); !errors.Is(err, ErrTempID) {
		t.Errorf("err = %v, want ErrTempID", err)
	}
	e.Flush()
}

func TestMakePublicSetsSlug(t *testing.T) {
	fs := newFakeStore()
	id := fs.put(owner, testFunnel())

	e := NewEngine(fs, nil)
	mustLoadFunnel(t, e, id)

	if err := e.MakePublic(context.Background(), owner, id); err != nil {
		t.Fatalf("MakePublic: %v", err)
	}

	// The publish write is foreground, so the store copy is already live.
	stored, _ := fs.get(id)
	if !stored.IsPublic {
		t.Error("store copy not public")
	}
	if stored.PublicSlug != "launch" {
		t.Errorf("public slug = %q, want launch", stored.PublicSlug)
	}
	f := mustLoadFunnel(t, e, id)
	if !f.IsPublic || f.PublicSlug != "launch" {
		t.Errorf("session copy isPublic=%v slug=%q", f.IsPublic, f.PublicSlug)
	}
}

func TestMakePublicSurfacesRemoteFailure(t *testing.T) {
	fs := newFakeStore()
	id := fs.put(owner, testFunnel())

	e := NewEngine(fs, nil)
	mustLoadFunnel(t, e, id)
	fs.setUpdateErr(errDown)

	if err := e.MakePublic(context.Background(), owner, id); !errors.Is(err, errDown) {
		t.Fatalf("err = %v, want the store error", err)
	}

	// Neither copy flipped: the caller must not hand out a dead link.
	f := mustLoadFunnel(t, e, id)
	if f.IsPublic || f.PublicSlug != "" {
		t.Error("session copy flipped despite the failed remote write")
	}
	stored, _ := fs.get(id)
	if stored.IsPublic {
		t.Error("store copy flipped despite the failed remote write")
	}
}

func TestLoadPublic(t *testing.T) {
	fs := newFakeStore()
	f := testFunnel()
	f.IsPublic = true
	id := fs.put(owner, f)
	privateID := fs.put(owner, testFunnel())

	e := NewEngine(fs, nil)
	got, err := e.LoadPublic(context.Background(), id)
	if err != nil {
		t.Fatalf("LoadPublic: %v", err)
	}
	if got.ID != id {
		t.Errorf("loaded funnel id = %q", got.ID)
	}

	if _, err := e.LoadPublic(context.Background(), privateID); !errors.Is(err, ErrNotPublic) {
		t.Errorf("err = %v, want ErrNotPublic", err)
	}
	if _, err := e.LoadPublic(context.Background(), "000000000000000000000000"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteFunnelMovesActivePointer(t *testing.T) {
	fs := newFakeStore()
	id1 := fs.put(owner, testFunnel())
	id2 := fs.put(owner, testFunnel())

	e := NewEngine(fs, nil)
	ctx := context.Background()
	mustLoadFunnel(t, e, id1)

	if err := e.SetActive(ctx, owner, id1); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if err := e.Delete(ctx, owner, id1); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	activeID, err := e.ActiveID(ctx, owner)
	if err != nil {
		t.Fatalf("ActiveID: %v", err)
	}
	if activeID != id2 {
		t.Errorf("active id = %q, want the surviving funnel %q", activeID, id2)
	}
	if _, ok := fs.get(id1); ok {
		t.Error("funnel still in the store after delete")
	}
}

func TestProductLifecycle(t *testing.T) {
	fs := newFakeStore()
	id := fs.put(owner, testFunnel())
	e := NewEngine(fs, nil)
	mustLoadFunnel(t, e, id)
	ctx := context.Background()

	p1, err := e.AddProduct(ctx, owner, id, models.Product{Name: "Entry"})
	if err != nil {
		t.Fatalf("AddProduct: %v", err)
	}
	p2, err := e.AddProduct(ctx, owner, id, models.Product{Name: "Course"})
	if err != nil {
		t.Fatalf("AddProduct: %v", err)
	}
	if p1.Order != 0 || p2.Order != 1 {
		t.Errorf("product orders = %d, %d", p1.Order, p2.Order)
	}

	moved, err := e.MoveProduct(ctx, owner, id, p2.ID, funnel.MoveUp)
	if err != nil || !moved {
		t.Fatalf("MoveProduct: moved=%v err=%v", moved, err)
	}
	f := mustLoadFunnel(t, e, id)
	if f.FindProduct(p2.ID).Order != 0 {
		t.Errorf("moved product order = %d, want 0", f.FindProduct(p2.ID).Order)
	}

	if err := e.DeleteProduct(ctx, owner, id, p2.ID); err != nil {
		t.Fatalf("DeleteProduct: %v", err)
	}
	f = mustLoadFunnel(t, e, id)
	if len(f.Products) != 1 || f.Products[0].Order != 0 {
		t.Errorf("products after delete = %+v", f.Products)
	}
	e.Flush()
}

func TestProductItemLifecycle(t *testing.T) {
	fs := newFakeStore()
	id := fs.put(owner, testFunnel(productWithSteps()))
	e := NewEngine(fs, nil)
	mustLoadFunnel(t, e, id)
	ctx := context.Background()

	item, err := e.AddProductItem(ctx, owner, id, "prod-1", models.ProductItem{
		Name:    "Course",
		Modules: []models.Module{{ID: "m-old", Name: "Basics"}},
		Lessons: []models.Lesson{{ID: "l-old", Name: "Intro", ModuleID: "m-old"}},
	})
	if err != nil {
		t.Fatalf("AddProductItem: %v", err)
	}
	if item.ID == "" || item.Modules[0].ID == "m-old" {
		t.Error("item ids not reassigned")
	}
	if item.Lessons[0].ModuleID != item.Modules[0].ID {
		t.Errorf("lesson moduleId = %q, want remapped to %q", item.Lessons[0].ModuleID, item.Modules[0].ID)
	}

	second, err := e.AddProductItem(ctx, owner, id, "prod-1", models.ProductItem{Name: "Bonus pack"})
	if err != nil {
		t.Fatalf("AddProductItem: %v", err)
	}

	moved, err := e.MoveProductItem(ctx, owner, id, "prod-1", 1, 0)
	if err != nil || !moved {
		t.Fatalf("MoveProductItem: moved=%v err=%v", moved, err)
	}
	f := mustLoadFunnel(t, e, id)
	if f.Products[0].ProductItems[0].ID != second.ID {
		t.Error("item move did not change array position")
	}

	if err := e.DeleteProductItem(ctx, owner, id, "prod-1", item.ID); err != nil {
		t.Fatalf("DeleteProductItem: %v", err)
	}
	if err := e.DeleteProductItem(ctx, owner, id, "prod-1", item.ID); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("second delete err = %v, want ErrItemNotFound", err)
	}
	e.Flush()
}
