package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appanalyses "github.com/bryanwahyu/rightsdesk/internal/application/analyses"
	"github.com/bryanwahyu/rightsdesk/internal/application/apptest"
	appauth "github.com/bryanwahyu/rightsdesk/internal/application/auth"
	"github.com/bryanwahyu/rightsdesk/internal/application/licensing"
	apprequests "github.com/bryanwahyu/rightsdesk/internal/application/requests"
	appuploads "github.com/bryanwahyu/rightsdesk/internal/application/uploads"
	"github.com/bryanwahyu/rightsdesk/internal/domain"
	"github.com/bryanwahyu/rightsdesk/internal/domain/ai"
	"github.com/bryanwahyu/rightsdesk/internal/middleware"
)

type stubGenerator struct {
	text string
	err  error
}

func (g stubGenerator) Generate(context.Context, string) (string, error) {
	return g.text, g.err
}

type testAPI struct {
	handler http.Handler
	store   *apptest.Store
}

func newTestAPI(t *testing.T, gen ai.Generator, limiter middleware.Limiter) *testAPI {
	t.Helper()
	store := apptest.NewStore()
	uploadsRepo := apptest.NewUploads()
	analysesRepo := apptest.NewAnalyses()
	analyzer := licensing.NewAnalyzer(gen,
		licensing.WithSleeper(func(context.Context, time.Duration) error { return nil }),
	)

	h := NewRouter(Deps{
		Auth: &appauth.Service{Users: apptest.NewUsers(), Secret: []byte("router-test"), TTL: time.Hour},
		Uploads: &appuploads.Service{
			Repo: uploadsRepo, Analyses: analysesRepo, Store: store, MaxBytes: 1 << 10,
		},
		Analyses: &appanalyses.Service{
			Repo: analysesRepo, Uploads: uploadsRepo, Store: store, Analyzer: analyzer, MaxContentBytes: 1000,
		},
		Requests: &apprequests.Service{
			Repo: apptest.NewRequests(), Uploads: uploadsRepo, Analyses: analysesRepo, LLM: analyzer,
		},
		Limiter:        limiter,
		MaxUploadBytes: 1 << 10,
	})
	return &testAPI{handler: h, store: store}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body io.Reader, contentType string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func (a *testAPI) doJSON(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	return a.do(t, method, path, token, bytes.NewReader(raw), "application/json")
}

func (a *testAPI) register(t *testing.T, email string) string {
	t.Helper()
	rec, out := a.doJSON(t, http.MethodPost, "/api/auth/register", "", map[string]string{"email": email, "password": "hunter22"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return out["token"].(string)
}

func (a *testAPI) upload(t *testing.T, token, fileType, name, content string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("fileType", fileType))
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	hdr.Set("Content-Type", "text/plain")
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, _ = part.Write([]byte(content))
	require.NoError(t, mw.Close())
	return a.do(t, http.MethodPost, "/api/uploads", token, &buf, mw.FormDataContentType())
}

func TestAuthFlow(t *testing.T) {
	api := newTestAPI(t, stubGenerator{text: "ok"}, nil)

	token := api.register(t, "ana@example.com")

	rec, out := api.doJSON(t, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "ana@example.com", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User already exists", out["message"])

	rec, out = api.doJSON(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ana@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", out["message"])

	rec, out = api.doJSON(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ana@example.com", "password": "hunter22"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, out["token"])
	user := out["user"].(map[string]any)
	assert.Equal(t, "ana", user["name"])
	assert.NotContains(t, user, "passwordHash")

	rec, out = api.do(t, http.MethodGet, "/api/auth/profile", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ana@example.com", out["email"])

	rec, _ = api.do(t, http.MethodGet, "/api/auth/profile", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, out = api.do(t, http.MethodPost, "/api/auth/login", "", strings.NewReader("{bad"), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", out["message"])
}

func TestUploadAnalyzeAndAsk(t *testing.T) {
	api := newTestAPI(t, stubGenerator{text: "Possible copyright infringement detected.\nAttribution required."}, nil)
	owner := api.register(t, "owner@example.com")
	other := api.register(t, "other@example.com")

	rec, out := api.upload(t, owner, "article", "my post.txt", "Lyrics from a famous song.")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	up := out["upload"].(map[string]any)
	uploadID := up["id"].(string)
	assert.Equal(t, "ARTICLE", up["fileType"])
	assert.Equal(t, "my_post.txt", up["fileName"])
	assert.NotContains(t, up, "objectKey")
	assert.Len(t, api.store.Objects, 1)

	rec, _ = api.do(t, http.MethodGet, "/api/uploads/"+uploadID, other, nil, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, out = api.do(t, http.MethodPost, "/api/analyses/"+uploadID, owner, nil, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Possible copyright infringement detected.", out["licensingSummary"])
	assert.EqualValues(t, 70, out["riskScore"])
	analysisID := out["id"].(string)

	rec, out = api.do(t, http.MethodGet, "/api/uploads", owner, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := out["uploads"].([]any)
	require.Len(t, list, 1)
	latest := list[0].(map[string]any)["analysis"].(map[string]any)
	assert.Equal(t, analysisID, latest["id"])

	rec, out = api.doJSON(t, http.MethodPost, "/api/requests", owner, map[string]string{
		"question": "Can I use it commercially?", "uploadId": uploadID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Question submitted and answered", out["message"])
	request := out["request"].(map[string]any)
	assert.Equal(t, "my_post.txt", request["upload"].(map[string]any)["fileName"])
	requestID := request["id"].(string)

	rec, out = api.do(t, http.MethodGet, "/api/requests/"+requestID, owner, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, requestID, out["request"].(map[string]any)["id"])

	rec, _ = api.do(t, http.MethodGet, "/api/analyses/"+analysisID, other, nil, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, out = api.do(t, http.MethodDelete, "/api/uploads/"+uploadID, owner, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Upload deleted successfully", out["message"])
	assert.Empty(t, api.store.Objects)

	rec, out = api.do(t, http.MethodGet, "/api/analyses/"+analysisID, owner, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Analysis not found", out["message"])
}

func TestUploadValidation(t *testing.T) {
	api := newTestAPI(t, stubGenerator{text: "ok"}, nil)
	token := api.register(t, "ana@example.com")

	rec, out := api.upload(t, token, "AUDIO", "a.txt", "x")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, out["message"], "invalid file type")

	rec, out = api.doJSON(t, http.MethodPost, "/api/uploads", token, map[string]string{"file": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Content-Type must be multipart/form-data", out["message"])

	rec, _ = api.upload(t, token, "ARTICLE", "big.txt", strings.Repeat("x", 4<<10))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, out = api.do(t, http.MethodGet, "/api/uploads/not-a-uuid", token, nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid id format", out["message"])

	rec, out = api.do(t, http.MethodGet, "/api/uploads/3f1c2a9e-8a4b-4a4f-9b7e-1d2c3b4a5f60", token, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Upload not found", out["message"])
}

func TestAsk_ValidationAndFallback(t *testing.T) {
	api := newTestAPI(t, stubGenerator{err: errors.New("boom")}, nil)
	token := api.register(t, "ana@example.com")

	rec, out := api.doJSON(t, http.MethodPost, "/api/requests", token, map[string]string{"question": "why"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "question must be at least 5 characters", out["message"])

	rec, out = api.doJSON(t, http.MethodPost, "/api/requests", token, map[string]string{"question": "Is this in the public domain?"})
	require.Equal(t, http.StatusCreated, rec.Code)
	answer := out["request"].(map[string]any)["answer"].(string)
	assert.Contains(t, answer, "Public domain works are not protected by copyright")

	rec, out = api.do(t, http.MethodGet, "/api/requests", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, out["requests"], 1)
}

func TestAnalyze_RateLimitedModelIsDegradedNotFailed(t *testing.T) {
	api := newTestAPI(t, stubGenerator{err: ai.ErrRateLimited}, nil)
	token := api.register(t, "ana@example.com")

	_, out := api.upload(t, token, "ARTICLE", "a.txt", "some text")
	uploadID := out["upload"].(map[string]any)["id"].(string)

	rec, out := api.do(t, http.MethodPost, "/api/analyses/"+uploadID, token, nil, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, licensing.RateLimitFallback, out["licensingInfo"])
	assert.EqualValues(t, 10, out["riskScore"])

	_, out = api.do(t, http.MethodGet, "/metrics", "", nil, "")
	assert.EqualValues(t, 1, out["uploads_total"])
	assert.EqualValues(t, 1, out["analyses_total"])
	assert.EqualValues(t, 1, out["analyses_degraded"])
}

func TestHealthEndpoints(t *testing.T) {
	api := newTestAPI(t, stubGenerator{text: "ok"}, nil)

	for _, path := range []string{"/health", "/ready", "/live", "/metrics"} {
		rec, _ := api.do(t, http.MethodGet, path, "", nil, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestRateLimit(t *testing.T) {
	api := newTestAPI(t, stubGenerator{text: "ok"}, middleware.NewMemoryLimiter(0.001, 2))

	body := map[string]string{"email": "x@example.com", "password": "nope"}
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec, _ := api.doJSON(t, http.MethodPost, "/api/auth/login", "", body)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests}, codes)
}

func TestRegister_OverlongPasswordIsBadRequest(t *testing.T) {
	api := newTestAPI(t, stubGenerator{text: "ok"}, nil)

	rec, out := api.doJSON(t, http.MethodPost, "/api/auth/register", "",
		map[string]string{"email": "long@example.com", "password": strings.Repeat("p", 73)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Password must be at most 72 bytes", out["message"])
}

func TestClientMessage(t *testing.T) {
	wrapped := fmt.Errorf("handle upload: %w", domain.NewClientError(domain.ErrNotFound, "Upload not found"))
	assert.Equal(t, "Upload not found", clientMessage(wrapped, http.StatusNotFound))
	assert.Equal(t, "Forbidden", clientMessage(fmt.Errorf("x: %w", domain.ErrForbidden), http.StatusForbidden))
}
