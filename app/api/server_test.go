package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/lysyi3m/semi-weekly/app/database"
	"github.com/lysyi3m/semi-weekly/app/report"
	"github.com/lysyi3m/semi-weekly/app/review"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	server   http.Handler
	articles *database.ArticleRepository
	results  *database.LLMResultRepository
}

func newTestEnv(t *testing.T, apiKey string) *testEnv {
	t.Helper()

	db, err := database.NewConnection(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, _, err = database.RunMigrations(db)
	require.NoError(t, err)

	articles := database.NewArticleRepository(db)
	reviews := database.NewReviewRepository(db)
	links := database.NewLinkRepository(db)

	handler := NewHandler(review.NewService(reviews, links), report.NewBuilder(reviews, links), articles, 2026)

	return &testEnv{
		server:   NewServer(handler, apiKey),
		articles: articles,
		results:  database.NewLLMResultRepository(db),
	}
}

func (e *testEnv) seed(t *testing.T, url, date, summary string) int64 {
	t.Helper()
	ctx := context.Background()

	_, err := e.articles.UpsertArticles(ctx, "test", []database.ArticleRef{{Title: "title " + url, URL: url, DateRaw: date}})
	require.NoError(t, err)
	a, err := e.articles.GetArticleByURL(ctx, url)
	require.NoError(t, err)

	if summary != "" {
		require.NoError(t, e.results.SaveLLMResult(ctx, database.LLMResult{
			ArticleID: a.ID, Model: "m", Category: "design", Summary: summary, RawJSON: "{}",
		}))
	}
	return a.ID
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	e.server.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, "")
	env.seed(t, "https://e/a", "2026-01-05", "")

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["articles"])
}

func TestReviewFlow(t *testing.T) {
	env := newTestEnv(t, "")
	id := env.seed(t, "https://e/a", "2026-01-05", "模型摘要。")
	idStr := itoa(id)

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/api/items?year=2026", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(1), body["total"])
	assert.Equal(t, float64(1), body["pending"])

	form := url.Values{"title": {"人工标题"}, "category": {"材料"}, "action": {"save"}}
	req := httptest.NewRequest(http.MethodPost, "/api/items/"+idStr, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = env.do(t, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/report?year=2026", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-Report-Items"))

	w = env.do(t, httptest.NewRequest(http.MethodPost, "/api/items/"+idStr+"/approve", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/report", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-Report-Items"))
	assert.Contains(t, w.Body.String(), "材料")
	assert.Contains(t, w.Body.String(), "模型摘要。")

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/api/items", nil))
	items := decode(t, w)["items"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, "reviewed", item["status"])
	assert.Equal(t, "人工标题", item["title"])
	assert.Equal(t, "materials", item["category"])
}

func TestSaveApprove_JSON(t *testing.T) {
	env := newTestEnv(t, "")
	id := env.seed(t, "https://e/a", "2026-01-05", "")

	req := httptest.NewRequest(http.MethodPost, "/api/items/"+itoa(id), strings.NewReader(`{"action":"save_approve","summary":"人工摘要。"}`))
	req.Header.Set("Content-Type", "application/json")
	w := env.do(t, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/report?year=2026", nil))
	assert.Equal(t, "1", w.Header().Get("X-Report-Items"))
	assert.Contains(t, w.Body.String(), "人工摘要。")
	assert.Contains(t, w.Body.String(), "其他")
}

func TestItemErrors(t *testing.T) {
	env := newTestEnv(t, "")
	id := env.seed(t, "https://e/a", "2026-01-05", "")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"bad id", http.MethodPost, "/api/items/abc/approve", "", http.StatusBadRequest},
		{"unknown approve", http.MethodPost, "/api/items/999/approve", "", http.StatusNotFound},
		{"unknown delete", http.MethodPost, "/api/items/999/delete", "", http.StatusNotFound},
		{"unknown save", http.MethodPost, "/api/items/999", `{"title":"x"}`, http.StatusNotFound},
		{"unknown action", http.MethodPost, "/api/items/" + itoa(id), `{"action":"publish"}`, http.StatusBadRequest},
		{"bad year", http.MethodGet, "/api/items?year=abc", "", http.StatusBadRequest},
		{"bad report year", http.MethodGet, "/report?year=0", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			w := env.do(t, req)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestDeleteAndLinks(t *testing.T) {
	env := newTestEnv(t, "")
	a := env.seed(t, "https://e/a", "2026-01-05", "")
	b := env.seed(t, "https://e/b", "2026-01-06", "")

	link := func(method, body string) int {
		req := httptest.NewRequest(method, "/api/links", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return env.do(t, req).Code
	}

	ab := `{"from_id":` + itoa(a) + `,"to_id":` + itoa(b) + `}`
	assert.Equal(t, http.StatusOK, link(http.MethodPost, ab))

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/api/items/"+itoa(a)+"/links", nil))
	require.Equal(t, http.StatusOK, w.Code)
	listed := decode(t, w)
	assert.Equal(t, float64(1), listed["total"])
	first := listed["links"].([]any)[0].(map[string]any)
	assert.Equal(t, float64(b), first["to_id"])
	assert.Equal(t, "related", first["relation"])
	assert.Equal(t, http.StatusBadRequest, link(http.MethodPost, `{"from_id":`+itoa(a)+`,"to_id":`+itoa(a)+`}`))
	assert.Equal(t, http.StatusNotFound, link(http.MethodPost, `{"from_id":`+itoa(a)+`,"to_id":999}`))
	assert.Equal(t, http.StatusBadRequest, link(http.MethodPost, `{"from_id":`+itoa(a)+`}`))
	assert.Equal(t, http.StatusOK, link(http.MethodDelete, ab))
	assert.Equal(t, http.StatusNotFound, link(http.MethodDelete, ab))

	w = env.do(t, httptest.NewRequest(http.MethodPost, "/api/items/"+itoa(a)+"/delete", nil))
	require.Equal(t, http.StatusOK, w.Code)

	ignored, err := env.articles.FilterIgnored(context.Background(), []string{"https://e/a"})
	require.NoError(t, err)
	assert.True(t, ignored["https://e/a"])
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv(t, "secret")

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/api/items", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
	req.Header.Set("X-API-Key", "wrong")
	assert.Equal(t, http.StatusUnauthorized, env.do(t, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/items", nil)
	req.Header.Set("X-API-Key", "secret")
	assert.Equal(t, http.StatusOK, env.do(t, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/items", nil)
	req.Header.Set("Authorization", "Bearer secret")
	assert.Equal(t, http.StatusOK, env.do(t, req).Code)

	assert.Equal(t, http.StatusOK, env.do(t, httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
