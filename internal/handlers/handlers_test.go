package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/funnelboard/funnelboard-golang/internal/auth"
	"github.com/funnelboard/funnelboard-golang/internal/engine"
	"github.com/funnelboard/funnelboard-golang/internal/handlers"
	"github.com/funnelboard/funnelboard-golang/internal/models"
	"github.com/funnelboard/funnelboard-golang/internal/realtime"
	"github.com/funnelboard/funnelboard-golang/internal/routes"
	"github.com/funnelboard/funnelboard-golang/internal/store"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

// memStore is a map-backed FunnelStore for router tests.
type memStore struct {
	mu   sync.Mutex
	byID map[string]models.Funnel
}

func newMemStore() *memStore { return &memStore{byID: map[string]models.Funnel{}} }

func (s *memStore) ListByOwner(_ context.Context, ownerID string) ([]models.Funnel, error) {
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

// Create keeps the id the engine assigned, so the ids handed to the
// client in these tests stay stable across the background sync.
func (s *memStore) Create(_ context.Context, f models.Funnel) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[f.ID] = f
	return f.ID, nil
}

func (s *memStore) Update(_ context.Context, id string, f models.Funnel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return store.ErrNotFound
	}
	f.ID = id
	s.byID[id] = f
	return nil
}

func (s *memStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
	return nil
}

func (s *memStore) Get(_ context.Context, id string) (*models.Funnel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &f, nil
}

const testOwner = "64b000000000000000000099"

func newTestServer(t *testing.T) (*gin.Engine, *engine.Engine, string) {
	t.Helper()
	eng := engine.NewEngine(newMemStore(), nil)
	app := &handlers.Handlers{Engine: eng}
	router := routes.SetupRouter(app, realtime.NewHub())

	token, err := auth.GenerateToken(testOwner)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return router, eng, token
}

func doJSON(t *testing.T, router *gin.Engine, token, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func TestPing(t *testing.T) {
	router, _, _ := newTestServer(t)
	w := doJSON(t, router, "", http.MethodGet, "/v1/ping", nil)
	if w.Code != http.StatusOK {
		t.Errorf("ping status = %d", w.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router, _, _ := newTestServer(t)

	w := doJSON(t, router, "", http.MethodGet, "/v1/funnels", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no-token status = %d, want 401", w.Code)
	}

	w = doJSON(t, router, "not-a-jwt", http.MethodGet, "/v1/funnels", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad-token status = %d, want 401", w.Code)
	}
}

func TestStepTypeCatalogEndpoint(t *testing.T) {
	router, _, _ := newTestServer(t)

	w := doJSON(t, router, "", http.MethodGet, "/v1/step-types", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decode[struct {
		Types []struct {
			Type  string `json:"type"`
			Label string `json:"label"`
		} `json:"types"`
	}](t, w)
	if len(body.Types) != 10 {
		t.Errorf("catalog has %d types, want 10", len(body.Types))
	}
	if body.Types[0].Type != "traffic" {
		t.Errorf("first type = %s, want traffic", body.Types[0].Type)
	}
}

func TestFunnelAndStepFlow(t *testing.T) {
	router, eng, token := newTestServer(t)

	// Create a funnel.
	w := doJSON(t, router, token, http.MethodPost, "/v1/funnels", gin.H{"name": "Launch"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create funnel status = %d: %s", w.Code, w.Body.String())
	}
	created := decode[models.Funnel](t, w)

	// Add a product.
	w = doJSON(t, router, token, http.MethodPost, "/v1/funnels/"+created.ID+"/products", gin.H{"name": "Course"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create product status = %d: %s", w.Code, w.Body.String())
	}
	product := decode[models.Product](t, w)

	stepsURL := "/v1/funnels/" + created.ID + "/products/" + product.ID + "/steps"

	// A child step with no page in the product is rejected.
	w = doJSON(t, router, token, http.MethodPost, stepsURL, gin.H{"name": "Checkout", "type": "checkout"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("orphan child status = %d, want 400", w.Code)
	}

	// Add the sales page, then the checkout under it.
	w = doJSON(t, router, token, http.MethodPost, stepsURL, gin.H{"name": "Sales", "type": "page"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create page status = %d: %s", w.Code, w.Body.String())
	}
	page := decode[models.Step](t, w)

	w = doJSON(t, router, token, http.MethodPost, stepsURL, gin.H{"name": "Checkout", "type": "checkout", "parentId": page.ID})
	if w.Code != http.StatusCreated {
		t.Fatalf("create checkout status = %d: %s", w.Code, w.Body.String())
	}
	checkout := decode[models.Step](t, w)

	// Deleting the page without confirmation must 409 with the plan.
	w = doJSON(t, router, token, http.MethodDelete, stepsURL+"/"+page.ID, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("unconfirmed delete status = %d, want 409: %s", w.Code, w.Body.String())
	}
	conflict := decode[struct {
		Plan struct {
			Kind     string   `json:"kind"`
			ChildIDs []string `json:"childIds"`
		} `json:"plan"`
	}](t, w)
	if conflict.Plan.Kind != "confirm-cascade" {
		t.Errorf("plan kind = %s, want confirm-cascade", conflict.Plan.Kind)
	}
	if len(conflict.Plan.ChildIDs) != 1 || conflict.Plan.ChildIDs[0] != checkout.ID {
		t.Errorf("plan children = %v, want [%s]", conflict.Plan.ChildIDs, checkout.ID)
	}

	// Retrying with confirm=true removes both steps.
	w = doJSON(t, router, token, http.MethodDelete, stepsURL+"/"+page.ID+"?confirm=true", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("confirmed delete status = %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, token, http.MethodGet, "/v1/funnels", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list funnels status = %d", w.Code)
	}
	list := decode[struct {
		Funnels []models.Funnel `json:"funnels"`
	}](t, w)
	if len(list.Funnels) != 1 {
		t.Fatalf("got %d funnels", len(list.Funnels))
	}
	if got := len(list.Funnels[0].Products[0].Steps); got != 0 {
		t.Errorf("steps after cascade = %d, want 0", got)
	}

	eng.Flush()
}

func TestHierarchyEndpoint(t *testing.T) {
	router, eng, token := newTestServer(t)

	w := doJSON(t, router, token, http.MethodPost, "/v1/funnels", gin.H{"name": "Launch", "fromTemplate": true})
	if w.Code != http.StatusCreated {
		t.Fatalf("create funnel status = %d", w.Code)
	}
	created := decode[models.Funnel](t, w)
	productID := created.Products[0].ID

	w = doJSON(t, router, token, http.MethodGet, "/v1/funnels/"+created.ID+"/products/"+productID+"/hierarchy", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("hierarchy status = %d: %s", w.Code, w.Body.String())
	}
	body := decode[struct {
		Sections []struct {
			Pages    []models.Step `json:"pages"`
			Children []models.Step `json:"children"`
		} `json:"sections"`
	}](t, w)
	if len(body.Sections) != 1 {
		t.Fatalf("sections = %d, want 1", len(body.Sections))
	}
	// The template's entry product pairs a capture with its sales page
	// and hangs the checkout off them.
	if len(body.Sections[0].Pages) != 2 || body.Sections[0].Pages[0].Type != models.StepCapture {
		t.Errorf("page pair = %v", body.Sections[0].Pages)
	}
	if len(body.Sections[0].Children) != 1 || body.Sections[0].Children[0].Type != models.StepCheckout {
		t.Errorf("children = %v", body.Sections[0].Children)
	}

	eng.Flush()
}
