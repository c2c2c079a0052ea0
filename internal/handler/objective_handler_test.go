package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/HighTechnologyAI/ironbrain-sub001/internal/auth"
	"github.com/HighTechnologyAI/ironbrain-sub001/internal/cache"
	"github.com/HighTechnologyAI/ironbrain-sub001/internal/changefeed"
	"github.com/HighTechnologyAI/ironbrain-sub001/internal/engine"
	"github.com/HighTechnologyAI/ironbrain-sub001/internal/model"
	"github.com/HighTechnologyAI/ironbrain-sub001/internal/remotestore"
	"github.com/HighTechnologyAI/ironbrain-sub001/pkg/rbac"
	"github.com/HighTechnologyAI/ironbrain-sub001/pkg/syncerr"
)

const testSecret = "handler-test-secret"

// stubStore keeps one objective in memory. updateErr, when set, fails
// every update.
type stubStore struct {
	mu        sync.Mutex
	objective *model.Objective
	updateErr error
}

func (s *stubStore) FetchActiveObjective(ctx context.Context, ref model.ObjectiveRef) (*model.Objective, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.objective == nil || !ref.Matches(s.objective) {
		return nil, syncerr.NotFound("fetch_active_objective", errors.New("no rows"))
	}
	return s.objective.Clone(), nil
}

func (s *stubStore) InsertObjective(ctx context.Context, draft remotestore.ObjectiveDraft) (*model.Objective, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objective = &model.Objective{
		ID:        uuid.New(),
		Title:     draft.Title,
		Status:    model.ObjectiveStatusActive,
		UpdatedAt: time.Now(),
	}
	return s.objective.Clone(), nil
}

func (s *stubStore) UpdateObjective(ctx context.Context, id uuid.UUID, patch *model.ObjectivePatch) (*model.Objective, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	s.objective = s.objective.Apply(patch)
	return s.objective.Clone(), nil
}

func (s *stubStore) FetchKeyResults(ctx context.Context, objectiveID uuid.UUID) ([]model.KeyResult, error) {
	return nil, nil
}

func (s *stubStore) InsertKeyResultsBatch(ctx context.Context, objectiveID uuid.UUID, drafts []remotestore.KeyResultDraft) ([]model.KeyResult, error) {
	return nil, nil
}

type stubFeed struct {
	once   sync.Once
	events chan changefeed.Event
	status chan changefeed.Status
}

func newStubFeed() *stubFeed {
	return &stubFeed{
		events: make(chan changefeed.Event),
		status: make(chan changefeed.Status),
	}
}

func (f *stubFeed) Subscribe(ctx context.Context) (*changefeed.Subscription, error) {
	return &changefeed.Subscription{Events: f.events, Status: f.status}, nil
}

func (f *stubFeed) Unsubscribe() {
	f.once.Do(func() {
		close(f.events)
		close(f.status)
	})
}

type stubSnapshot struct{}

func (stubSnapshot) Save(*model.Aggregate) error    { return nil }
func (stubSnapshot) Load() (*model.Aggregate, bool) { return nil, false }
func (stubSnapshot) Clear()                         {}

func newTestRouter(t *testing.T, store *stubStore) (*gin.Engine, *engine.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	eng := engine.New(engine.Deps{
		Store:    store,
		Cache:    cache.NewMemoryCache(),
		Feed:     newStubFeed(),
		Snapshot: stubSnapshot{},
		Logger:   zap.NewNop(),
	}, engine.Options{
		Ref:     model.ObjectiveRef{Title: "Strategic Objective"},
		Session: auth.Session{UserID: "svc", Role: rbac.RoleAdmin},
		Seed: &engine.SeedSpec{
			Objective: remotestore.ObjectiveDraft{Title: "Strategic Objective"},
		},
		RetryBaseDelay: time.Millisecond,
	})
	if err := eng.Boot(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(eng.Close)

	h := NewObjectiveHandler(eng, zap.NewNop())
	r := gin.New()
	protected := r.Group("/", AuthMiddleware(testSecret))
	protected.GET("/objective", h.GetObjective)
	protected.PATCH("/objective", h.UpdateObjective)
	return r, eng
}

func bearer(t *testing.T, role string) string {
	t.Helper()
	token, err := auth.GenerateToken("user-1", role, testSecret)
	if err != nil {
		t.Fatal(err)
	}
	return "Bearer " + token
}

func TestGetObjective(t *testing.T) {
	r, _ := newTestRouter(t, &stubStore{})

	req := httptest.NewRequest("GET", "/objective", nil)
	req.Header.Set("Authorization", bearer(t, rbac.RoleViewer))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Objective  *model.Objective `json:"objective"`
		SyncStatus string           `json:"sync_status"`
		SaveStatus string           `json:"save_status"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Objective == nil || resp.Objective.Title != "Strategic Objective" {
		t.Errorf("objective = %+v", resp.Objective)
	}
	if resp.SyncStatus != "connected" || resp.SaveStatus != "saved" {
		t.Errorf("status = %s/%s", resp.SyncStatus, resp.SaveStatus)
	}
}

func TestGetObjectiveRequiresToken(t *testing.T) {
	r, _ := newTestRouter(t, &stubStore{})

	req := httptest.NewRequest("GET", "/objective", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestUpdateObjective(t *testing.T) {
	r, eng := newTestRouter(t, &stubStore{})

	req := httptest.NewRequest("PATCH", "/objective", strings.NewReader(`{"title":"Renamed"}`))
	req.Header.Set("Authorization", bearer(t, rbac.RoleEditor))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if st := eng.State(); st.Objective.Title != "Renamed" {
		t.Errorf("engine state not updated: %q", st.Objective.Title)
	}
}

func TestUpdateObjectiveForbiddenForViewer(t *testing.T) {
	r, _ := newTestRouter(t, &stubStore{})

	req := httptest.NewRequest("PATCH", "/objective", strings.NewReader(`{"title":"Nope"}`))
	req.Header.Set("Authorization", bearer(t, rbac.RoleViewer))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestUpdateObjectiveBadJSON(t *testing.T) {
	r, _ := newTestRouter(t, &stubStore{})

	req := httptest.NewRequest("PATCH", "/objective", strings.NewReader(`{broken`))
	req.Header.Set("Authorization", bearer(t, rbac.RoleEditor))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestUpdateObjectiveValidationMapsTo422(t *testing.T) {
	store := &stubStore{}
	r, _ := newTestRouter(t, store)
	store.mu.Lock()
	store.updateErr = syncerr.Validation("update_objective", errors.New("rejected"))
	store.mu.Unlock()

	req := httptest.NewRequest("PATCH", "/objective", strings.NewReader(`{"title":"Rejected"}`))
	req.Header.Set("Authorization", bearer(t, rbac.RoleEditor))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", w.Code)
	}
}

func TestUpdateObjectiveNetworkMapsTo502(t *testing.T) {
	store := &stubStore{}
	r, _ := newTestRouter(t, store)
	store.mu.Lock()
	store.updateErr = syncerr.Network("update_objective", errors.New("down"))
	store.mu.Unlock()

	req := httptest.NewRequest("PATCH", "/objective", strings.NewReader(`{"title":"Doomed"}`))
	req.Header.Set("Authorization", bearer(t, rbac.RoleEditor))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
}
