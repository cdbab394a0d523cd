package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/deckforge/api/internal/economics"
	"github.com/deckforge/api/internal/middleware"
	"github.com/deckforge/api/internal/models"
	"github.com/deckforge/api/internal/orchestration"
	"github.com/deckforge/api/internal/pipeline"
	"github.com/deckforge/api/internal/store"
	"github.com/deckforge/api/internal/textgen"
)

const testSecret = "handler-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

// memStore implements every persistence interface the handlers use.
type memStore struct {
	mu       sync.Mutex
	users    map[string]*models.User
	hashes   map[string]string
	settings map[uuid.UUID]*models.UserSettings
	decks    map[uuid.UUID]*models.Deck
	jobs     map[uuid.UUID]*models.GenerationJob
	usage    []*models.GenerationLog
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]*models.User{},
		hashes:   map[string]string{},
		settings: map[uuid.UUID]*models.UserSettings{},
		decks:    map[uuid.UUID]*models.Deck{},
		jobs:     map[uuid.UUID]*models.GenerationJob{},
	}
}

func (m *memStore) CreateUser(_ context.Context, email, name, hash string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[email]; ok {
		return nil, store.ErrEmailTaken
	}
	u := &models.User{ID: uuid.New(), Email: email, Name: name, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	m.users[email] = u
	m.hashes[email] = hash
	return u, nil
}

func (m *memStore) UserByEmail(_ context.Context, email string) (*models.User, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil, "", store.ErrNotFound
	}
	return u, m.hashes[email], nil
}

func (m *memStore) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) GetSettings(_ context.Context, userID uuid.UUID) (*models.UserSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.settings[userID]; ok {
		cp := *st
		return &cp, nil
	}
	return &models.UserSettings{UserID: userID}, nil
}

func (m *memStore) UpsertSettings(_ context.Context, st *models.UserSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *st
	m.settings[st.UserID] = &cp
	return nil
}

func (m *memStore) CreateDeck(_ context.Context, deck *models.Deck) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if deck.ID == uuid.Nil {
		deck.ID = uuid.New()
	}
	cp := *deck
	m.decks[deck.ID] = &cp
	return nil
}

func (m *memStore) GetDeck(_ context.Context, userID, id uuid.UUID) (*models.Deck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.decks[id]
	if !ok || d.UserID != userID {
		return nil, store.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *memStore) ListDecks(_ context.Context, userID uuid.UUID, limit, offset int) ([]store.DeckSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []store.DeckSummary{}
	for _, d := range m.decks {
		if d.UserID == userID {
			out = append(out, store.DeckSummary{ID: d.ID, Name: d.Name, SlideCount: len(d.Slides)})
		}
	}
	return out, nil
}

func (m *memStore) UpdateDeck(_ context.Context, deck *models.Deck) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.decks[deck.ID]; !ok || d.UserID != deck.UserID {
		return store.ErrNotFound
	}
	cp := *deck
	m.decks[deck.ID] = &cp
	return nil
}

func (m *memStore) DeleteDeck(_ context.Context, userID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.decks[id]; !ok || d.UserID != userID {
		return store.ErrNotFound
	}
	delete(m.decks, id)
	return nil
}

func (m *memStore) CreateJob(_ context.Context, userID uuid.UUID, _ models.GenerationRequest) (*models.GenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job := &models.GenerationJob{ID: uuid.New(), UserID: userID, Status: models.JobStatusQueued, Stage: models.StageQueued}
	m.jobs[job.ID] = job
	return job, nil
}

func (m *memStore) GetJob(_ context.Context, userID, id uuid.UUID) (*models.GenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok || j.UserID != userID {
		return nil, store.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *memStore) FailJob(_ context.Context, id uuid.UUID, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := m.jobs[id]
	if j.Status.Terminal() {
		return store.ErrJobClosed
	}
	j.Status, j.Error = models.JobStatusFailed, message
	return nil
}

func (m *memStore) CancelJob(_ context.Context, userID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok || j.UserID != userID {
		return store.ErrNotFound
	}
	if j.Status.Terminal() {
		return store.ErrJobClosed
	}
	j.Status = models.JobStatusCancelled
	return nil
}

func (m *memStore) RecordUsage(_ context.Context, log *models.GenerationLog) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage = append(m.usage, log)
}

type fixedBudget struct{ status economics.BudgetStatus }

func (b fixedBudget) CheckBudget(context.Context, uuid.UUID) (*economics.BudgetStatus, error) {
	st := b.status
	return &st, nil
}

type fixedCreds struct{ creds pipeline.Credentials }

func (f fixedCreds) Resolve(context.Context, uuid.UUID) (pipeline.Credentials, error) {
	return f.creds, nil
}

type generatorFunc func(ctx context.Context, creds pipeline.Credentials, req models.GenerationRequest, progress pipeline.ProgressFunc) (*models.Deck, *pipeline.Report, error)

func (f generatorFunc) Generate(ctx context.Context, creds pipeline.Credentials, req models.GenerationRequest, progress pipeline.ProgressFunc) (*models.Deck, *pipeline.Report, error) {
	return f(ctx, creds, req, progress)
}

type fakeRunner struct {
	mu        sync.Mutex
	started   []models.GenerationInput
	cancelled []uuid.UUID
	startErr  error
}

func (r *fakeRunner) Name() string { return "fake" }

func (r *fakeRunner) Start(_ context.Context, in models.GenerationInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.startErr != nil {
		return r.startErr
	}
	r.started = append(r.started, in)
	return nil
}

func (r *fakeRunner) Cancel(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = append(r.cancelled, id)
	return nil
}

type fakeBrand struct{}

func (fakeBrand) Extract(context.Context, string) models.BrandAssets {
	b := models.DefaultBrandAssets()
	b.CompanyName = "Acme"
	return b
}

type testAPI struct {
	router *gin.Engine
	store  *memStore
	runner *fakeRunner
	userID uuid.UUID
	token  string
}

func sampleDeck() *models.Deck {
	return &models.Deck{
		Name:   "Acme Rockets",
		Slides: []models.Slide{{ID: "slide-1", Type: models.LayoutTitle, Title: "Acme"}},
		Theme:  models.Theme{Colors: models.DefaultPalette(), FontFamily: "Inter"},
	}
}

func newTestAPI(t *testing.T, gen orchestration.DeckGenerator, budget BudgetChecker, creds pipeline.Credentials) *testAPI {
	t.Helper()
	ms := newMemStore()
	runner := &fakeRunner{}
	logger := zap.NewNop()
	recorder := orchestration.NewRecorder(ms, nil, ms, nil, logger)

	auth := NewAuthHandler(ms, testSecret, logger)
	settings := NewSettingsHandler(ms, logger)
	decks := NewDeckHandler(ms, logger)
	generation := NewGenerationHandler(gen, fixedCreds{creds}, budget, ms, recorder, runner, logger)
	brand := NewBrandHandler(fakeBrand{})
	usage := NewEconomicsHandler(budget, logger)

	r := gin.New()
	v1 := r.Group("/api/v1")
	v1.POST("/auth/register", auth.Register)
	v1.POST("/auth/login", auth.Login)
	p := v1.Group("", middleware.Auth(testSecret))
	p.GET("/user/me", auth.GetCurrentUser)
	p.GET("/settings", settings.GetSettings)
	p.PUT("/settings", settings.UpdateSettings)
	p.GET("/usage", usage.GetUsage)
	p.GET("/decks", decks.ListDecks)
	p.GET("/decks/:id", decks.GetDeck)
	p.PUT("/decks/:id", decks.UpdateDeck)
	p.DELETE("/decks/:id", decks.DeleteDeck)
	p.POST("/decks/generate", generation.GenerateDeck)
	p.POST("/generations", generation.StartGeneration)
	p.GET("/generations/:id", generation.GetGeneration)
	p.POST("/generations/:id/cancel", generation.CancelGeneration)
	p.POST("/brand/extract", brand.ExtractBrand)

	api := &testAPI{router: r, store: ms, runner: runner}

	w := api.do(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email": "ada@acme.test", "name": "Ada", "password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	api.token = resp.Token
	api.userID = resp.User.ID
	return api
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error middleware.APIError `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body.Error.Code
}

var allowAll = fixedBudget{economics.BudgetStatus{Allowed: true, Reason: "No budget limit"}}

func okGenerator(t *testing.T) orchestration.DeckGenerator {
	return generatorFunc(func(ctx context.Context, creds pipeline.Credentials, req models.GenerationRequest, progress pipeline.ProgressFunc) (*models.Deck, *pipeline.Report, error) {
		assert.Equal(t, "user-key", creds.TextAPIKey)
		return sampleDeck(), &pipeline.Report{Mode: "multi-phase", SlideCount: 1, InputTokens: 100, OutputTokens: 50}, nil
	})
}

func TestAuthFlow(t *testing.T) {
	api := newTestAPI(t, okGenerator(t), allowAll, pipeline.Credentials{TextAPIKey: "user-key"})

	w := api.do(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email": "ada@acme.test", "name": "Ada", "password": "correct-horse",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	api.token = ""
	w = api.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "ada@acme.test", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "ada@acme.test", "password": "correct-horse"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	api.token = resp.Token

	w = api.do(t, http.MethodGet, "/api/v1/user/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ada@acme.test")
}

func TestSettingsAreMasked(t *testing.T) {
	api := newTestAPI(t, okGenerator(t), allowAll, pipeline.Credentials{TextAPIKey: "user-key"})

	w := api.do(t, http.MethodPut, "/api/v1/settings", map[string]string{
		"text_provider": "openai",
		"text_api_key":  "sk-abcdefghijkl1234",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got SettingsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "openai", got.TextProvider)
	assert.Equal(t, "****1234", got.TextAPIKey)
	assert.Equal(t, "sk-abcdefghijkl1234", api.store.settings[api.userID].TextAPIKey)

	w = api.do(t, http.MethodPut, "/api/v1/settings", map[string]string{"image_api_key": "img-key-000"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sk-abcdefghijkl1234", api.store.settings[api.userID].TextAPIKey)
	assert.Equal(t, "img-key-000", api.store.settings[api.userID].ImageAPIKey)

	w = api.do(t, http.MethodPut, "/api/v1/settings", map[string]string{"text_provider": "cohere"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMaskKey(t *testing.T) {
	assert.Empty(t, MaskKey(""))
	assert.Equal(t, "****", MaskKey("short"))
	assert.Equal(t, "****wxyz", MaskKey("abcdefghijklmnopqrstuvwxyz"))
}

func TestGenerateDeckSync(t *testing.T) {
	api := newTestAPI(t, okGenerator(t), allowAll, pipeline.Credentials{TextAPIKey: "user-key"})

	w := api.do(t, http.MethodPost, "/api/v1/decks/generate", models.GenerationRequest{Content: "Acme Corp sells rockets", MultiPhase: true})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Deck)
	assert.NotEqual(t, uuid.Nil, resp.Deck.ID)
	assert.Equal(t, api.userID, resp.Deck.UserID)
	assert.Equal(t, "multi-phase", resp.Report.Mode)

	require.Len(t, api.store.usage, 1)
	assert.True(t, api.store.usage[0].Success)
	assert.Equal(t, 100, api.store.usage[0].InputTokens)

	w = api.do(t, http.MethodGet, "/api/v1/decks/"+resp.Deck.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Acme Rockets")
}

func TestGenerateDeckRejectsEmptyInput(t *testing.T) {
	api := newTestAPI(t, okGenerator(t), allowAll, pipeline.Credentials{TextAPIKey: "user-key"})

	w := api.do(t, http.MethodPost, "/api/v1/decks/generate", models.GenerationRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, middleware.ErrCodeNoInput, errorCode(t, w))
}

func TestGenerateDeckMissingKey(t *testing.T) {
	api := newTestAPI(t, okGenerator(t), allowAll, pipeline.Credentials{})

	w := api.do(t, http.MethodPost, "/api/v1/decks/generate", models.GenerationRequest{Content: "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, middleware.ErrCodeMissingAPIKey, errorCode(t, w))
}

func TestGenerateDeckBudgetExceeded(t *testing.T) {
	budget := fixedBudget{economics.BudgetStatus{Allowed: false, Spent: 30, Reason: "Monthly budget exhausted"}}
	api := newTestAPI(t, okGenerator(t), budget, pipeline.Credentials{TextAPIKey: "user-key"})

	w := api.do(t, http.MethodPost, "/api/v1/decks/generate", models.GenerationRequest{Content: "x"})
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, middleware.ErrCodeBudgetExceeded, errorCode(t, w))

	w = api.do(t, http.MethodGet, "/api/v1/usage", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"allowed":false`)
}

func TestGenerateDeckUpstreamFailure(t *testing.T) {
	gen := generatorFunc(func(ctx context.Context, creds pipeline.Credentials, req models.GenerationRequest, progress pipeline.ProgressFunc) (*models.Deck, *pipeline.Report, error) {
		err := &pipeline.PhaseError{Phase: pipeline.PhaseContentStrategy, Err: &textgen.UpstreamError{Service: "anthropic", StatusCode: 401}}
		return nil, &pipeline.Report{Mode: "multi-phase"}, err
	})
	api := newTestAPI(t, gen, allowAll, pipeline.Credentials{TextAPIKey: "user-key"})

	w := api.do(t, http.MethodPost, "/api/v1/decks/generate", models.GenerationRequest{Content: "x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, middleware.ErrCodeInvalidAPIKey, errorCode(t, w))
	assert.Empty(t, api.store.decks)

	require.Len(t, api.store.usage, 1)
	assert.False(t, api.store.usage[0].Success)
}

func TestAsyncGenerationLifecycle(t *testing.T) {
	api := newTestAPI(t, okGenerator(t), allowAll, pipeline.Credentials{TextAPIKey: "user-key"})

	w := api.do(t, http.MethodPost, "/api/v1/generations", models.GenerationRequest{Content: "x", URLs: []string{"https://acme.test"}})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var started StartGenerationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &started))
	assert.Equal(t, models.JobStatusQueued, started.Status)
	assert.Equal(t, "fake", started.Runner)

	require.Len(t, api.runner.started, 1)
	in := api.runner.started[0]
	assert.Equal(t, started.JobID, in.JobID)
	assert.Equal(t, api.userID, in.UserID)
	assert.Equal(t, []string{"https://acme.test"}, in.Request.URLs)

	path := "/api/v1/generations/" + started.JobID.String()
	w = api.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"queued"`)

	w = api.do(t, http.MethodPost, path+"/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []uuid.UUID{started.JobID}, api.runner.cancelled)

	w = api.do(t, http.MethodGet, path, nil)
	assert.Contains(t, w.Body.String(), `"status":"cancelled"`)

	w = api.do(t, http.MethodPost, path+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/generations/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAsyncGenerationStartFailureFailsJob(t *testing.T) {
	api := newTestAPI(t, okGenerator(t), allowAll, pipeline.Credentials{TextAPIKey: "user-key"})
	api.runner.startErr = errors.New("temporal down")

	w := api.do(t, http.MethodPost, "/api/v1/generations", models.GenerationRequest{Content: "x"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	require.Len(t, api.store.jobs, 1)
	for _, j := range api.store.jobs {
		assert.Equal(t, models.JobStatusFailed, j.Status)
	}
}

func TestDeckCRUD(t *testing.T) {
	api := newTestAPI(t, okGenerator(t), allowAll, pipeline.Credentials{TextAPIKey: "user-key"})

	deck := sampleDeck()
	deck.UserID = api.userID
	require.NoError(t, api.store.CreateDeck(context.Background(), deck))
	path := "/api/v1/decks/" + deck.ID.String()

	w := api.do(t, http.MethodGet, "/api/v1/decks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"slide_count":1`)

	w = api.do(t, http.MethodPut, path, map[string]any{"name": "Renamed"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Renamed", api.store.decks[deck.ID].Name)
	assert.Len(t, api.store.decks[deck.ID].Slides, 1)

	w = api.do(t, http.MethodGet, "/api/v1/decks/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = api.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExtractBrand(t *testing.T) {
	api := newTestAPI(t, okGenerator(t), allowAll, pipeline.Credentials{TextAPIKey: "user-key"})

	w := api.do(t, http.MethodPost, "/api/v1/brand/extract", map[string]string{"url": "https://acme.test"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"companyName":"Acme"`)

	w = api.do(t, http.MethodPost, "/api/v1/brand/extract", map[string]string{"url": "not a url"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeepHealth(t *testing.T) {
	h := NewHealthHandler("deckforge-api", "test", map[string]Check{
		"database": func(context.Context) error { return nil },
		"nats":     nil,
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})
	r := gin.New()
	r.GET("/health", h.Health)
	r.GET("/health/deep", h.DeepHealth)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/deep", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "healthy", resp.Dependencies["database"])
	assert.Equal(t, "not configured", resp.Dependencies["nats"])
	assert.Contains(t, resp.Dependencies["redis"], "connection refused")
}
