package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/freelance-escrow/internal/app"
	"github.com/ignatzorin/freelance-escrow/internal/config"
	"github.com/ignatzorin/freelance-escrow/internal/domain/entity"
	"github.com/ignatzorin/freelance-escrow/internal/domain/gateway"
	"github.com/ignatzorin/freelance-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-escrow/internal/infrastructure/identity"
	"github.com/ignatzorin/freelance-escrow/internal/infrastructure/memory"
	"github.com/ignatzorin/freelance-escrow/internal/infrastructure/payment"
	"github.com/ignatzorin/freelance-escrow/internal/logger"
	"github.com/ignatzorin/freelance-escrow/internal/service"
	"github.com/ignatzorin/freelance-escrow/internal/storage"
	"github.com/ignatzorin/freelance-escrow/internal/ws"
)

const (
	paymentSecret  = "sk_test_paystack"
	identitySecret = "dojah-webhook-secret"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.Silence()
	os.Exit(m.Run())
}

type okPinger struct{}

func (okPinger) PingContext(context.Context) error { return nil }

type fakeIdentity struct {
	reference string
}

func (f fakeIdentity) LookupNIN(_ context.Context, nin string) (*gateway.IdentityResult, error) {
	return &gateway.IdentityResult{Reference: f.reference, NIN: nin, FirstName: "Ada", LastName: "Obi", Verified: true}, nil
}

type testAPI struct {
	t        *testing.T
	router   http.Handler
	mem      *memory.Store
	tokens   *service.TokenManager
	clientIP string
}

// httptest requests arrive from this address.
const testProxy = "192.0.2.1"

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	cfg := &config.Config{
		Env:               "test",
		JWTSecret:         "access-secret-for-tests-only-0123456789",
		RefreshSecret:     "refresh-secret-for-tests-only-012345678",
		AccessTokenTTL:    15 * time.Minute,
		RefreshTokenTTL:   24 * time.Hour,
		UploadStoragePath: t.TempDir(),
		PublicBaseURL:     "http://localhost:8080",
		MaxUploadSizeMB:   1,
		AllowedOrigins:    []string{"*"},
		TrustedProxies:    []string{testProxy},
		RateLimitLimit:    1000,
		RateLimitPeriod:   time.Minute,
		IdempotencyTTL:    time.Hour,
		Gateways: config.Gateways{
			Payment:  config.PaymentConfig{SecretKey: paymentSecret, TestBypass: true},
			Identity: config.IdentityConfig{WebhookSecret: identitySecret},
		},
	}

	files, err := storage.NewFileStorage(cfg.UploadStoragePath, cfg.PublicBaseURL+"/uploads", cfg.MaxUploadSizeMB)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	hub := ws.NewHub(nil)
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	cache := service.NewCacheService(time.Minute)
	t.Cleanup(func() {
		cancel()
		<-done
		cache.Close()
	})

	mem := memory.NewStore()
	router := app.NewRouter(app.Options{
		Config: cfg,
		Repos: app.Repositories{
			Tx:            mem,
			Tasks:         mem.Tasks(),
			Applications:  mem.Applications(),
			Escrows:       mem.Escrows(),
			Milestones:    mem.Milestones(),
			Disputes:      mem.Disputes(),
			Ledger:        mem.Ledger(),
			Verifications: mem.Verifications(),
			Users:         mem.Users(),
			Sessions:      mem.Sessions(),
			Conversations: mem.Conversations(),
			Messages:      mem.Messages(),
		},
		Identity: fakeIdentity{reference: "dojah-ref-1"},
		Hub:      hub,
		Files:    files,
		Cache:    cache,
		DB:       okPinger{},
	})

	return &testAPI{
		t:      t,
		router: router,
		mem:    mem,
		tokens: service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL),
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type call struct {
	rec *httptest.ResponseRecorder
	env envelope
}

func (c call) code() string {
	if c.env.Error == nil {
		return ""
	}
	return c.env.Error.Code
}

func (c call) into(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(c.env.Data, v), c.rec.Body.String())
}

func (a *testAPI) send(req *http.Request, token string) call {
	a.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if a.clientIP != "" {
		req.Header.Set("X-Forwarded-For", a.clientIP)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return call{rec: rec, env: env}
}

// from sends the following requests as if forwarded for ip.
func (a *testAPI) from(ip string) *testAPI {
	cp := *a
	cp.clientIP = ip
	return &cp
}

func (a *testAPI) do(method, path, token string, body any) call {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return a.send(req, token)
}

// expect asserts the status and returns the call for further inspection.
func (a *testAPI) expect(status int, method, path, token string, body any) call {
	a.t.Helper()
	c := a.do(method, path, token, body)
	require.Equal(a.t, status, c.rec.Code, "%s %s: %s", method, path, c.rec.Body.String())
	return c
}

func (a *testAPI) register(email, role string) (id, token string) {
	a.t.Helper()
	c := a.expect(http.StatusCreated, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": email, "password": "Secret123", "role": role,
	})
	var out struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
		Tokens struct {
			AccessToken string `json:"access_token"`
		} `json:"tokens"`
	}
	c.into(a.t, &out)
	return out.User.ID, out.Tokens.AccessToken
}

func (a *testAPI) adminToken() string {
	a.t.Helper()
	admin := a.mem.SeedUser(valueobject.RoleAdmin)
	pair, _, _, err := a.tokens.GeneratePair(admin)
	require.NoError(a.t, err)
	return pair.AccessToken
}

type idOnly struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (a *testAPI) createTask(token string, budget int64) string {
	a.t.Helper()
	var task idOnly
	a.expect(http.StatusCreated, http.MethodPost, "/api/tasks", token, map[string]any{
		"title": "Landing page", "description": "Build a marketing landing page", "budget": budget,
	}).into(a.t, &task)
	return task.ID
}

type escrowDetails struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	ReleasedAmount int64  `json:"released_amount"`
	Milestones     []struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"milestones"`
	Progress entity.MilestoneProgress `json:"progress"`
	Disputes []idOnly                 `json:"disputes"`
	Ledger   []struct {
		Kind   string `json:"kind"`
		Amount int64  `json:"amount"`
	} `json:"ledger"`
	Events []struct {
		From string `json:"from"`
		To   string `json:"to"`
	} `json:"events"`
}

func (a *testAPI) escrow(id, token string) escrowDetails {
	a.t.Helper()
	var d escrowDetails
	a.expect(http.StatusOK, http.MethodGet, "/api/escrow/"+id, token, nil).into(a.t, &d)
	return d
}

func TestHealthAndPublicRoutes(t *testing.T) {
	api := newTestAPI(t)

	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"healthy"`)

	c := api.expect(http.StatusOK, http.MethodGet, "/api/tasks", "", nil)
	assert.True(t, c.env.Success)

	c = api.expect(http.StatusUnauthorized, http.MethodPost, "/api/tasks", "", map[string]any{"title": "x"})
	assert.Equal(t, "UNAUTHORIZED", c.code())

	api.expect(http.StatusBadRequest, http.MethodGet, "/api/tasks/not-a-uuid", "", nil)
}

func TestAuthRoutes(t *testing.T) {
	api := newTestAPI(t).from("203.0.113.10")
	api.register("client@example.com", "client")

	c := api.expect(http.StatusConflict, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": "client@example.com", "password": "Secret123", "role": "client",
	})
	assert.Equal(t, "CONFLICT", c.code())

	c = api.expect(http.StatusBadRequest, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": "admin@example.com", "password": "Secret123", "role": "admin",
	})
	assert.Equal(t, "VALIDATION_ERROR", c.code())

	credentials := map[string]any{"email": "client@example.com", "password": "Secret123"}
	var login struct {
		Tokens struct {
			RefreshToken string `json:"refresh_token"`
		} `json:"tokens"`
	}
	api.expect(http.StatusOK, http.MethodPost, "/api/auth/login", "", credentials).into(t, &login)

	var rotated struct {
		RefreshToken string `json:"refresh_token"`
	}
	api.expect(http.StatusOK, http.MethodPost, "/api/auth/refresh", "", map[string]any{
		"refresh_token": login.Tokens.RefreshToken,
	}).into(t, &rotated)
	assert.NotEqual(t, login.Tokens.RefreshToken, rotated.RefreshToken)

	api.expect(http.StatusOK, http.MethodPost, "/api/auth/logout", "", map[string]any{"refresh_token": rotated.RefreshToken})
	api.expect(http.StatusUnauthorized, http.MethodPost, "/api/auth/refresh", "", map[string]any{
		"refresh_token": rotated.RefreshToken,
	})

	// Fifth credential request from this address is the last one allowed.
	api.expect(http.StatusOK, http.MethodPost, "/api/auth/login", "", credentials).into(t, &login)
	c = api.expect(http.StatusTooManyRequests, http.MethodPost, "/api/auth/login", "", credentials)
	assert.Equal(t, "RATE_LIMITED", c.code())
	c = api.expect(http.StatusTooManyRequests, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": "late@example.com", "password": "Secret123", "role": "freelancer",
	})
	assert.Equal(t, "RATE_LIMITED", c.code())

	// Token rotation is limited separately from credential checks.
	api.expect(http.StatusOK, http.MethodPost, "/api/auth/refresh", "", map[string]any{
		"refresh_token": login.Tokens.RefreshToken,
	})

	api.from("203.0.113.11").expect(http.StatusOK, http.MethodPost, "/api/auth/login", "", credentials)
}

func TestMilestoneEscrowLifecycle(t *testing.T) {
	api := newTestAPI(t)
	_, client := api.register("client@example.com", "client")
	_, freelancer := api.register("dev@example.com", "freelancer")
	taskID := api.createTask(client, 300000)

	api.expect(http.StatusForbidden, http.MethodPost, "/api/tasks/"+taskID+"/apply", client, map[string]any{
		"proposed_budget": 200000, "cover_letter": "I own this",
	})

	var applied idOnly
	api.expect(http.StatusCreated, http.MethodPost, "/api/tasks/"+taskID+"/apply", freelancer, map[string]any{
		"proposed_budget": 200000, "cover_letter": "Five years of frontend work", "estimated_duration": "2 weeks",
	}).into(t, &applied)
	assert.Equal(t, "pending", applied.Status)

	c := api.expect(http.StatusConflict, http.MethodPost, "/api/tasks/"+taskID+"/apply", freelancer, map[string]any{
		"proposed_budget": 150000, "cover_letter": "Again",
	})
	assert.Equal(t, "CONFLICT", c.code())

	var listed []idOnly
	api.expect(http.StatusOK, http.MethodGet, "/api/tasks/"+taskID+"/applications", client, nil).into(t, &listed)
	require.Len(t, listed, 1)

	var accepted struct {
		Application  idOnly `json:"application"`
		Escrow       idOnly `json:"escrow"`
		Conversation idOnly `json:"conversation"`
	}
	api.expect(http.StatusOK, http.MethodPost, "/api/applications/"+applied.ID+"/accept", client, map[string]any{
		"payment_type": "milestones",
		"milestones": []map[string]any{
			{"title": "Design", "amount": 80000, "due_date": "2026-11-01"},
			{"title": "Build", "amount": 120000},
		},
	}).into(t, &accepted)
	assert.Equal(t, "accepted", accepted.Application.Status)
	assert.Equal(t, "pending", accepted.Escrow.Status)

	var task idOnly
	api.expect(http.StatusOK, http.MethodGet, "/api/tasks/"+taskID, "", nil).into(t, &task)
	assert.Equal(t, "in_progress", task.Status)

	escrowID := accepted.Escrow.ID
	api.expect(http.StatusForbidden, http.MethodPost, "/api/escrow/"+escrowID+"/fund", freelancer, map[string]any{"payment_reference": "TEST_1"})
	api.expect(http.StatusOK, http.MethodPost, "/api/escrow/"+escrowID+"/fund", client, map[string]any{"payment_reference": "TEST_1"})

	d := api.escrow(escrowID, freelancer)
	require.Len(t, d.Milestones, 2)
	assert.Equal(t, "funded", d.Status)

	first, second := d.Milestones[0].ID, d.Milestones[1].ID
	submission := map[string]any{"files": []string{"/uploads/deliverable/design.pdf"}, "notes": "mockups"}
	api.expect(http.StatusOK, http.MethodPost, "/api/milestones/"+first+"/submit", freelancer, submission)

	c = api.expect(http.StatusBadRequest, http.MethodPost, "/api/milestones/"+first+"/reject", client, map[string]any{"feedback": ""})
	assert.Equal(t, "VALIDATION_ERROR", c.code())
	api.expect(http.StatusOK, http.MethodPost, "/api/milestones/"+first+"/reject", client, map[string]any{"feedback": "Use the brand colours"})
	api.expect(http.StatusOK, http.MethodPost, "/api/milestones/"+first+"/submit", freelancer, submission)
	api.expect(http.StatusOK, http.MethodPost, "/api/milestones/"+first+"/approve", client, nil)

	var progress entity.MilestoneProgress
	api.expect(http.StatusOK, http.MethodGet, "/api/escrow/"+escrowID+"/progress", client, nil).into(t, &progress)
	assert.Equal(t, entity.MilestoneProgress{Approved: 1, Total: 2, ReleasedAmount: 80000}, progress)

	c = api.expect(http.StatusConflict, http.MethodPost, "/api/escrow/"+escrowID+"/release", client, nil)
	assert.Equal(t, "INVALID_STATE", c.code())

	api.expect(http.StatusOK, http.MethodPost, "/api/milestones/"+second+"/start", freelancer, nil)
	api.expect(http.StatusOK, http.MethodPost, "/api/milestones/"+second+"/submit", freelancer, submission)
	api.expect(http.StatusOK, http.MethodPost, "/api/milestones/"+second+"/approve", client, nil)

	var released idOnly
	api.expect(http.StatusOK, http.MethodPost, "/api/escrow/"+escrowID+"/release", client, nil).into(t, &released)
	assert.Equal(t, "released", released.Status)

	d = api.escrow(escrowID, client)
	assert.Equal(t, int64(200000), d.ReleasedAmount)
	var milestoneReleases int64
	for _, l := range d.Ledger {
		if l.Kind == "milestone_release" {
			milestoneReleases += l.Amount
		}
	}
	assert.Equal(t, int64(200000), milestoneReleases)
	assert.Equal(t, "released", d.Events[len(d.Events)-1].To)

	api.expect(http.StatusOK, http.MethodGet, "/api/tasks/"+taskID, "", nil).into(t, &task)
	assert.Equal(t, "completed", task.Status)

	var mine []idOnly
	api.expect(http.StatusOK, http.MethodGet, "/api/escrow/my", freelancer, nil).into(t, &mine)
	require.Len(t, mine, 1)
	assert.Equal(t, escrowID, mine[0].ID)

	convPath := "/api/conversations/" + accepted.Conversation.ID + "/messages"
	api.expect(http.StatusCreated, http.MethodPost, convPath, freelancer, map[string]any{"content": "Thanks for the project"})
	var msgs []struct {
		Content string `json:"content"`
	}
	api.expect(http.StatusOK, http.MethodGet, convPath, client, nil).into(t, &msgs)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Thanks for the project", msgs[0].Content)

	_, outsider := api.register("other@example.com", "freelancer")
	api.expect(http.StatusForbidden, http.MethodGet, convPath, outsider, nil)
	api.expect(http.StatusForbidden, http.MethodGet, "/api/escrow/"+escrowID, outsider, nil)
}

func TestDisputeArbitration(t *testing.T) {
	api := newTestAPI(t)
	_, client := api.register("client@example.com", "client")
	freelancerID, freelancer := api.register("dev@example.com", "freelancer")
	admin := api.adminToken()
	taskID := api.createTask(client, 500000)

	var e idOnly
	api.expect(http.StatusCreated, http.MethodPost, "/api/escrow/create", client, map[string]any{
		"task_id": taskID, "freelancer_id": freelancerID, "amount": 500000,
	}).into(t, &e)
	api.expect(http.StatusOK, http.MethodPost, "/api/escrow/"+e.ID+"/fund", client, map[string]any{"payment_reference": "TEST_2"})
	api.expect(http.StatusOK, http.MethodPost, "/api/escrow/"+e.ID+"/start", freelancer, nil)

	var dispute idOnly
	api.expect(http.StatusCreated, http.MethodPost, "/api/escrow/"+e.ID+"/dispute", freelancer, map[string]any{
		"reason": "Client stopped responding", "evidence": []string{"/uploads/evidence/chat.png"},
	}).into(t, &dispute)
	assert.Equal(t, "open", dispute.Status)

	api.expect(http.StatusForbidden, http.MethodPost, "/api/admin/disputes/"+dispute.ID+"/review", client, nil)

	var active []idOnly
	api.expect(http.StatusOK, http.MethodGet, "/api/admin/disputes", admin, nil).into(t, &active)
	require.Len(t, active, 1)

	api.expect(http.StatusOK, http.MethodPost, "/api/admin/disputes/"+dispute.ID+"/review", admin, nil)
	c := api.expect(http.StatusBadRequest, http.MethodPost, "/api/admin/disputes/"+dispute.ID+"/resolve", admin, map[string]any{
		"outcome": "lost", "resolution": "n/a",
	})
	assert.Equal(t, "VALIDATION_ERROR", c.code())

	var resolved idOnly
	api.expect(http.StatusOK, http.MethodPost, "/api/admin/disputes/"+dispute.ID+"/resolve", admin, map[string]any{
		"outcome": "refunded", "resolution": "Work never started",
	}).into(t, &resolved)
	assert.Equal(t, "resolved", resolved.Status)

	d := api.escrow(e.ID, admin)
	assert.Equal(t, "refunded", d.Status)
	require.Len(t, d.Disputes, 1)
	assert.Equal(t, "resolved", d.Disputes[0].Status)

	// A directly created escrow never started the task, so the refund leaves it open.
	var task idOnly
	api.expect(http.StatusOK, http.MethodGet, "/api/tasks/"+taskID, "", nil).into(t, &task)
	assert.Equal(t, "open", task.Status)
}

func TestCreateEscrowReplaysIdempotencyKey(t *testing.T) {
	api := newTestAPI(t)
	_, client := api.register("client@example.com", "client")
	freelancerID, _ := api.register("dev@example.com", "freelancer")
	taskID := api.createTask(client, 100000)

	body := map[string]any{"task_id": taskID, "freelancer_id": freelancerID, "amount": 100000}
	post := func() call {
		var buf bytes.Buffer
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
		req := httptest.NewRequest(http.MethodPost, "/api/escrow/create", &buf)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", "checkout-42")
		return api.send(req, client)
	}

	first := post()
	require.Equal(t, http.StatusCreated, first.rec.Code, first.rec.Body.String())
	second := post()
	require.Equal(t, http.StatusCreated, second.rec.Code)
	assert.Equal(t, "true", second.rec.Header().Get("Idempotent-Replayed"))

	var a, b idOnly
	first.into(t, &a)
	second.into(t, &b)
	assert.Equal(t, a.ID, b.ID)

	var mine []idOnly
	api.expect(http.StatusOK, http.MethodGet, "/api/escrow/my", client, nil).into(t, &mine)
	assert.Len(t, mine, 1)
}

func TestPaymentWebhook(t *testing.T) {
	api := newTestAPI(t)
	_, client := api.register("client@example.com", "client")
	freelancerID, _ := api.register("dev@example.com", "freelancer")
	taskID := api.createTask(client, 250000)

	var e idOnly
	api.expect(http.StatusCreated, http.MethodPost, "/api/escrow/create", client, map[string]any{
		"task_id": taskID, "freelancer_id": freelancerID, "amount": 250000,
	}).into(t, &e)

	payload, err := json.Marshal(map[string]any{
		"event": "charge.success",
		"data":  map[string]any{"reference": e.ID, "status": "success", "amount": 250000, "currency": "ngn"},
	})
	require.NoError(t, err)

	hook := func(signature string) call {
		req := httptest.NewRequest(http.MethodPost, "/api/webhooks/payment", bytes.NewReader(payload))
		req.Header.Set(payment.SignatureHeader, signature)
		return api.send(req, "")
	}

	assert.Equal(t, http.StatusUnauthorized, hook("deadbeef").rec.Code)
	assert.Equal(t, "pending", api.escrow(e.ID, client).Status)

	c := hook(payment.Sign(paymentSecret, payload))
	require.Equal(t, http.StatusOK, c.rec.Code, c.rec.Body.String())
	d := api.escrow(e.ID, client)
	assert.Equal(t, "funded", d.Status)

	// A redelivery is acknowledged without funding twice.
	require.Equal(t, http.StatusOK, hook(payment.Sign(paymentSecret, payload)).rec.Code)
	fundEntries := 0
	for _, l := range api.escrow(e.ID, client).Ledger {
		if l.Kind == "fund" {
			fundEntries++
		}
	}
	assert.Equal(t, 1, fundEntries)
}

func TestVerificationRoutes(t *testing.T) {
	api := newTestAPI(t)
	_, freelancer := api.register("dev@example.com", "freelancer")
	admin := api.adminToken()

	submit := map[string]any{
		"type":          "individual",
		"personal_info": map[string]any{"nin": "12345678901", "full_name": "Ada Obi"},
		"documents":     []map[string]any{{"filename": "id.png", "type": "national_id", "url": "/uploads/verification/id.png"}},
	}
	var req idOnly
	api.expect(http.StatusCreated, http.MethodPost, "/api/verification", freelancer, submit).into(t, &req)
	assert.Equal(t, "pending", req.Status)

	c := api.expect(http.StatusConflict, http.MethodPost, "/api/verification", freelancer, submit)
	assert.Equal(t, "CONFLICT", c.code())

	api.expect(http.StatusForbidden, http.MethodGet, "/api/admin/verification/requests", freelancer, nil)
	var pending []idOnly
	api.expect(http.StatusOK, http.MethodGet, "/api/admin/verification/requests?status=pending", admin, nil).into(t, &pending)
	require.Len(t, pending, 1)

	var lookup struct {
		Request idOnly `json:"request"`
		Result  struct {
			Reference string `json:"reference"`
			Verified  bool   `json:"verified"`
		} `json:"result"`
	}
	api.expect(http.StatusOK, http.MethodPost, "/api/admin/verification/"+req.ID+"/lookup", admin, nil).into(t, &lookup)
	assert.Equal(t, "processing", lookup.Request.Status)
	assert.Equal(t, "dojah-ref-1", lookup.Result.Reference)

	payload := []byte(`{"reference_id":"dojah-ref-1","verification_status":"Completed"}`)
	hook := httptest.NewRequest(http.MethodPost, "/api/webhooks/identity", bytes.NewReader(payload))
	hook.Header.Set(identity.SignatureHeader, identity.Sign(identitySecret, payload))
	c = api.send(hook, "")
	require.Equal(t, http.StatusOK, c.rec.Code, c.rec.Body.String())

	var mine []idOnly
	api.expect(http.StatusOK, http.MethodGet, "/api/verification/my", freelancer, nil).into(t, &mine)
	require.Len(t, mine, 1)
	assert.Equal(t, "approved", mine[0].Status)

	c = api.expect(http.StatusConflict, http.MethodPost, "/api/admin/verification/reject", admin, map[string]any{
		"request_id": req.ID, "notes": "too late",
	})
	assert.Equal(t, "INVALID_STATE", c.code())
}

func TestUpload(t *testing.T) {
	api := newTestAPI(t)
	_, freelancer := api.register("dev@example.com", "freelancer")

	upload := func(purpose string, content []byte) call {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		require.NoError(t, w.WriteField("purpose", purpose))
		part, err := w.CreateFormFile("file", "mockup.png")
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
		require.NoError(t, w.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/uploads", &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())
		return api.send(req, freelancer)
	}

	png := append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, bytes.Repeat([]byte{0}, 64)...)
	c := upload("deliverable", png)
	require.Equal(t, http.StatusCreated, c.rec.Code, c.rec.Body.String())
	var stored struct {
		URL         string `json:"url"`
		ContentType string `json:"content_type"`
	}
	c.into(t, &stored)
	assert.Equal(t, "image/png", stored.ContentType)
	assert.Contains(t, stored.URL, "/uploads/deliverable/")

	c = upload("deliverable", []byte("#!/bin/sh\necho pwned\n"))
	assert.Equal(t, http.StatusBadRequest, c.rec.Code)

	c = upload("avatar", png)
	assert.Equal(t, "VALIDATION_ERROR", c.code())
}
