// Package engine reconciles the in-memory board state with the remote
// funnel store: optimistic local mutation, fire-and-forget background
// persistence, orphan-reference cleanup on load, and a local cache
// fallback when the remote store is unreachable.
package engine

import (
	"context"
	"errors"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/funnelboard/funnelboard-golang/internal/funnel"
	"github.com/funnelboard/funnelboard-golang/internal/models"
	"github.com/funnelboard/funnelboard-golang/internal/store"
)

// Sentinel errors surfaced to the transport layer.
var (
	ErrFunnelNotFound  = errors.New("funnel not found")
	ErrProductNotFound = errors.New("product not found")
	ErrStepNotFound    = errors.New("step not found")
	ErrItemNotFound    = errors.New("product item not found")
	ErrNotPublic       = errors.New("funnel is not public")
	ErrTempID          = errors.New("funnel has not finished syncing yet")
	ErrConfirmRequired = errors.New("cascade delete requires confirmation")
	// ErrParentRequired blocks saving a child-category step with no
	// parent when no parent page exists to attach it to.
	ErrParentRequired = errors.New("step type requires a parent page and none is available")
	// ErrInvalidParent blocks a ParentID that does not reference a
	// parent-category step of the same product.
	ErrInvalidParent = errors.New("parentId must reference a capture or sales page of the same product")
)

// tempIDThreshold separates short locally-generated ids from 24-char
// canonical document ids.
const tempIDThreshold = 20

// Event describes a board mutation, for realtime listeners.
type Event struct {
	Action   string `json:"action"`
	OwnerID  string `json:"-"`
	FunnelID string `json:"funnelId"`
}

// session is one owner's working copy: the funnel list (newest first)
// plus the active selection pointer.
type session struct {
	funnels  []models.Funnel
	activeID string
	loaded   bool
}

// Engine owns every board session. All in-memory mutation is applied
// synchronously under the lock (deterministic final state); persistence
// runs in the background and each write carries the whole funnel
// snapshot, so out-of-order completion cannot corrupt data.
type Engine struct {
	mu       sync.Mutex
	store    store.FunnelStore
	cache    *store.Cache
	sessions map[string]*session
	pending  sync.WaitGroup

	// Notify, when set, receives an event after every applied mutation.
	Notify func(Event)
}

// NewEngine builds an engine over the given store and local cache
// (cache may be nil to disable the fallback).
func NewEngine(s store.FunnelStore, cache *store.Cache) *Engine {
	return &Engine{store: s, cache: cache, sessions: make(map[string]*session)}
}

// Flush blocks until all background persistence calls have finished.
// Used by tests and graceful shutdown.
func (e *Engine) Flush() {
	e.pending.Wait()
}

func (e *Engine) notify(action, ownerID, funnelID string) {
	if e.Notify != nil {
		e.Notify(Event{Action: action, OwnerID: ownerID, FunnelID: funnelID})
	}
}

func newTempID() string {
	return strings.SplitN(uuid.NewString(), "-", 2)[0]
}

func isTempID(id string) bool {
	return len(id) < tempIDThreshold
}

// --- Loading ---

// LoadAll returns the owner's funnels, fetching them from the remote
// store on first access. Remote failures fall back to the local cache;
// dangling parent references are cleaned before the state is exposed.
func (e *Engine) LoadAll(ctx context.Context, ownerID string) ([]models.Funnel, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sess, err := e.ensureLoaded(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return slices.Clone(sess.funnels), nil
}

// ensureLoaded must be called with the lock held.
func (e *Engine) ensureLoaded(ctx context.Context, ownerID string) (*session, error) {
	if sess, ok := e.sessions[ownerID]; ok && sess.loaded {
		return sess, nil
	}

	funnels, err := e.store.ListByOwner(ctx, ownerID)
	if err != nil {
		log.Printf("[sync] remote load failed for owner %s: %v, falling back to local cache", ownerID, err)
		if e.cache == nil {
			return nil, err
		}
		cached, cacheErr := e.cache.Read(ownerID)
		if cacheErr != nil {
			return nil, err
		}
		funnels = cached
	} else {
		funnels = e.cleanOrphanReferences(ownerID, funnels)
	}

	sess := &session{funnels: funnels, loaded: true}
	if len(funnels) > 0 {
		sess.activeID = funnels[0].ID
	}
	e.sessions[ownerID] = sess
	return sess, nil
}

// cleanOrphanReferences clears Step.ParentID values that point at steps
// that no longer exist (and Lesson.ModuleID likewise). Any funnel that
// needed cleaning is persisted back immediately, so a read self-heals.
func (e *Engine) cleanOrphanReferences(ownerID string, funnels []models.Funnel) []models.Funnel {
	cleaned := slices.Clone(funnels)
	for fi := range cleaned {
		changed := false
		for pi := range cleaned[fi].Products {
			product := &cleaned[fi].Products[pi]

			stepIDs := make(map[string]bool, len(product.Steps))
			for _, s := range product.Steps {
				stepIDs[s.ID] = true
			}
			for si := range product.Steps {
				if pid := product.Steps[si].ParentID; pid != "" && !stepIDs[pid] {
					log.Printf("[sync] clearing orphan parentId %s on step %s", pid, product.Steps[si].ID)
					product.Steps[si].ParentID = ""
					changed = true
				}
			}

			for ii := range product.ProductItems {
				item := &product.ProductItems[ii]
				moduleIDs := make(map[string]bool, len(item.Modules))
				for _, m := range item.Modules {
					moduleIDs[m.ID] = true
				}
				for li := range item.Lessons {
					if mid := item.Lessons[li].ModuleID; mid != "" && !moduleIDs[mid] {
						item.Lessons[li].ModuleID = ""
						changed = true
					}
				}
			}
		}
		if changed {
			cleaned[fi].UpdatedAt = time.Now()
			e.persistAsync(cleaned[fi])
		}
	}
	return cleaned
}

// --- Persistence plumbing ---

// persistAsync pushes the funnel snapshot to the remote store without
// blocking the caller. Failures are logged, never surfaced: local state
// stays authoritative for the session and a later save reconciles.
func (e *Engine) persistAsync(f models.Funnel) {
	e.pending.Add(1)
	go func() {
		defer e.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		if err := e.store.Update(ctx, f.ID, f); err != nil {
			log.Printf("[sync] background save failed for funnel %s: %v", f.ID, err)
		}
	}()
}

// writeCache must be called with the lock held.
func (e *Engine) writeCache(ownerID string, sess *session) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Write(ownerID, sess.funnels); err != nil {
		log.Printf("[sync] local cache write failed for owner %s: %v", ownerID, err)
	}
}

// --- Funnel lifecycle ---

// Create builds a new funnel (empty or from the starter template),
// inserts it locally with a temporary id, makes it active, and persists
// in the background. When the store assigns a different canonical id
// the in-memory entry and the active pointer are rewritten to match.
func (e *Engine) Create(ctx context.Context, ownerID, name, description string, fromTemplate bool) (models.Funnel, error) {
	now := time.Now()
	f := models.Funnel{
		ID:          newTempID(),
		Name:        name,
		Description: description,
		Products:    []models.Product{},
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if fromTemplate {
		f.Products = funnel.DefaultProducts()
	}

	e.mu.Lock()
	sess, err := e.ensureLoaded(ctx, ownerID)
	if err != nil {
		e.mu.Unlock()
		return models.Funnel{}, err
	}
	sess.funnels = append([]models.Funnel{f}, sess.funnels...)
	sess.activeID = f.ID
	e.writeCache(ownerID, sess)
	e.mu.Unlock()

	e.createRemote(ownerID, f)
	e.notify("funnel-created", ownerID, f.ID)
	return f, nil
}

// Duplicate deep-copies a funnel with fresh ids throughout the tree
// (parent links are remapped to the copied steps) and syncs it like a
// newly created funnel.
func (e *Engine) Duplicate(ctx context.Context, ownerID, funnelID string) (models.Funnel, error) {
	e.mu.Lock()
	sess, err := e.ensureLoaded(ctx, ownerID)
	if err != nil {
		e.mu.Unlock()
		return models.Funnel{}, err
	}
	src := findFunnel(sess, funnelID)
	if src == nil {
		e.mu.Unlock()
		return models.Funnel{}, ErrFunnelNotFound
	}

	now := time.Now()
	dup := *src
	dup.ID = newTempID()
	dup.Name = src.Name + " (Copy)"
	dup.IsPublic = false
	dup.PublicSlug = ""
	dup.CreatedAt = now
	dup.UpdatedAt = now
	dup.Products = make([]models.Product, len(src.Products))
	for i, p := range src.Products {
		dup.Products[i] = duplicateProduct(p)
	}

	sess.funnels = append([]models.Funnel{dup}, sess.funnels...)
	sess.activeID = dup.ID
	e.writeCache(ownerID, sess)
	e.mu.Unlock()

	e.createRemote(ownerID, dup)
	e.notify("funnel-duplicated", ownerID, dup.ID)
	return dup, nil
}

func duplicateProduct(p models.Product) models.Product {
	out := p
	out.ID = uuid.NewString()

	idMap := make(map[string]string, len(p.Steps))
	out.Steps = make([]models.Step, len(p.Steps))
	for i, s := range p.Steps {
		s.ID = uuid.NewString()
		idMap[p.Steps[i].ID] = s.ID
		out.Steps[i] = s
	}
	for i := range out.Steps {
		if pid := out.Steps[i].ParentID; pid != "" {
			out.Steps[i].ParentID = idMap[pid]
		}
	}

	out.ProductItems = make([]models.ProductItem, len(p.ProductItems))
	for i, item := range p.ProductItems {
		item.ID = uuid.NewString()
		moduleMap := make(map[string]string, len(item.Modules))
		modules := make([]models.Module, len(item.Modules))
		for mi, m := range item.Modules {
			old := m.ID
			m.ID = uuid.NewString()
			moduleMap[old] = m.ID
			modules[mi] = m
		}
		item.Modules = modules
		lessons := make([]models.Lesson, len(item.Lessons))
		for li, l := range item.Lessons {
			l.ID = uuid.NewString()
			if l.ModuleID != "" {
				l.ModuleID = moduleMap[l.ModuleID]
			}
			lessons[li] = l
		}
		item.Lessons = lessons
		bonuses := make([]models.Bonus, len(item.Bonuses))
		for bi, b := range item.Bonuses {
			b.ID = uuid.NewString()
			bonuses[bi] = b
		}
		item.Bonuses = bonuses
		out.ProductItems[i] = item
	}
	return out
}

// createRemote persists a new funnel in the background and reconciles
// the temporary id with the store-assigned canonical id.
func (e *Engine) createRemote(ownerID string, f models.Funnel) {
	tempID := f.ID
	e.pending.Add(1)
	go func() {
		defer e.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		canonicalID, err := e.store.Create(ctx, f)
		if err != nil {
			log.Printf("[sync] remote create failed for funnel %s: %v", tempID, err)
			return
		}
		if canonicalID == tempID {
			return
		}

		e.mu.Lock()
		defer e.mu.Unlock()
		sess, ok := e.sessions[f.OwnerID]
		if !ok {
			return
		}
		for i := range sess.funnels {
			if sess.funnels[i].ID == tempID {
				sess.funnels[i].ID = canonicalID
				break
			}
		}
		if sess.activeID == tempID {
			sess.activeID = canonicalID
		}
		e.writeCache(f.OwnerID, sess)
	}()
}

// Delete removes the funnel locally and best-effort remotely. A remote
// failure does not resurrect the local copy.
func (e *Engine) Delete(ctx context.Context, ownerID, funnelID string) error {
	e.mu.Lock()
	sess, err := e.ensureLoaded(ctx, ownerID)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if findFunnel(sess, funnelID) == nil {
		e.mu.Unlock()
		return ErrFunnelNotFound
	}
	sess.funnels = slices.DeleteFunc(slices.Clone(sess.funnels), func(f models.Funnel) bool {
		return f.ID == funnelID
	})
	if sess.activeID == funnelID {
		sess.activeID = ""
		if len(sess.funnels) > 0 {
			sess.activeID = sess.funnels[0].ID
		}
	}
	e.writeCache(ownerID, sess)
	e.mu.Unlock()

	if !isTempID(funnelID) {
		if err := e.store.Delete(ctx, funnelID); err != nil {
			log.Printf("[sync] remote delete failed for funnel %s: %v", funnelID, err)
		}
	}
	e.notify("funnel-deleted", ownerID, funnelID)
	return nil
}

// --- The generic mutation helper ---

// Update applies a copy-on-write mutation to one funnel: the mutate
// callback receives a private copy, and only if it succeeds does the
// copy replace the session entry (UpdatedAt stamped) and get persisted
// in the background. No partial state changes escape a failed mutation.
func (e *Engine) Update(ctx context.Context, ownerID, funnelID string, mutate func(*models.Funnel) error) (models.Funnel, error) {
	e.mu.Lock()
	sess, err := e.ensureLoaded(ctx, ownerID)
	if err != nil {
		e.mu.Unlock()
		return models.Funnel{}, err
	}
	idx := -1
	for i := range sess.funnels {
		if sess.funnels[i].ID == funnelID {
			idx = i
			break
		}
	}
	if idx == -1 {
		e.mu.Unlock()
		return models.Funnel{}, ErrFunnelNotFound
	}

	updated := deepCopyFunnel(sess.funnels[idx])
	if err := mutate(&updated); err != nil {
		e.mu.Unlock()
		return models.Funnel{}, err
	}
	updated.UpdatedAt = time.Now()
	sess.funnels[idx] = updated
	e.writeCache(ownerID, sess)
	e.mu.Unlock()

	e.persistAsync(updated)
	e.notify("funnel-updated", ownerID, funnelID)
	return updated, nil
}

// deepCopyFunnel clones the whole entity tree so mutate callbacks can
// write through pointers without aliasing the session state.
func deepCopyFunnel(f models.Funnel) models.Funnel {
	out := f
	out.Products = make([]models.Product, len(f.Products))
	for i, p := range f.Products {
		cp := p
		cp.Steps = slices.Clone(p.Steps)
		cp.ProductItems = make([]models.ProductItem, len(p.ProductItems))
		for j, item := range p.ProductItems {
			ci := item
			ci.Modules = slices.Clone(item.Modules)
			ci.Lessons = slices.Clone(item.Lessons)
			ci.Bonuses = slices.Clone(item.Bonuses)
			cp.ProductItems[j] = ci
		}
		out.Products[i] = cp
	}
	return out
}

func findFunnel(sess *session, funnelID string) *models.Funnel {
	for i := range sess.funnels {
		if sess.funnels[i].ID == funnelID {
			return &sess.funnels[i]
		}
	}
	return nil
}

// --- Active selection ---

// SetActive moves the active-funnel pointer (session state, not
// persisted data).
func (e *Engine) SetActive(ctx context.Context, ownerID, funnelID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	sess, err := e.ensureLoaded(ctx, ownerID)
	if err != nil {
		return err
	}
	if findFunnel(sess, funnelID) == nil {
		return ErrFunnelNotFound
	}
	sess.activeID = funnelID
	return nil
}

// ActiveID returns the current active funnel id ("" when none).
func (e *Engine) ActiveID(ctx context.Context, ownerID string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sess, err := e.ensureLoaded(ctx, ownerID)
	if err != nil {
		return "", err
	}
	return sess.activeID, nil
}

// --- Public sharing ---

// MakePublic flips the funnel to public and assigns its slug. Unlike
// every other mutation, the remote write runs in the foreground: the
// caller is about to show a share link, so a store failure must be
// returned, not logged away, and nothing flips locally either. A
// funnel still carrying a temporary id has no stable id to share and
// is refused with ErrTempID.
func (e *Engine) MakePublic(ctx context.Context, ownerID, funnelID string) error {
	if isTempID(funnelID) {
		log.Printf("[sync] refusing to publish funnel %s: id looks temporary, sync still pending", funnelID)
		return ErrTempID
	}

	e.mu.Lock()
	sess, err := e.ensureLoaded(ctx, ownerID)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	src := findFunnel(sess, funnelID)
	if src == nil {
		e.mu.Unlock()
		return ErrFunnelNotFound
	}
	updated := deepCopyFunnel(*src)
	e.mu.Unlock()

	updated.IsPublic = true
	if updated.PublicSlug == "" {
		updated.PublicSlug = slug.Make(updated.Name)
	}
	updated.UpdatedAt = time.Now()

	if err := e.store.Update(ctx, funnelID, updated); err != nil {
		return err
	}

	e.mu.Lock()
	if f := findFunnel(sess, funnelID); f != nil {
		*f = updated
		e.writeCache(ownerID, sess)
	}
	e.mu.Unlock()

	e.notify("funnel-updated", ownerID, funnelID)
	return nil
}

// LoadPublic fetches a funnel by id with no ownership check. The error
// distinguishes "not found" from "not public".
func (e *Engine) LoadPublic(ctx context.Context, funnelID string) (*models.Funnel, error) {
	f, err := e.store.Get(ctx, funnelID)
	if err != nil {
		return nil, err
	}
	if !f.IsPublic {
		return nil, ErrNotPublic
	}
	return f, nil
}
