package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lysyi3m/semi-weekly/app/database"
	"github.com/lysyi3m/semi-weekly/app/llm"
	"github.com/lysyi3m/semi-weekly/app/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	pages map[string]string
	calls []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.calls = append(f.calls, url)
	page, ok := f.pages[url]
	if !ok {
		return nil, fmt.Errorf("HTTP error: 404")
	}
	return []byte(page), nil
}

// stallingFetcher blocks on the stall URLs until the caller gives up.
type stallingFetcher struct {
	fakeFetcher
	stall map[string]bool
}

func (f *stallingFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if f.stall[url] {
		f.calls = append(f.calls, url)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.fakeFetcher.Fetch(ctx, url)
}

// lineParser reads "url|title|date" lines.
type lineParser struct{}

func (lineParser) Run(data []byte) ([]source.Item, error) {
	var items []source.Item
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		parts := strings.Split(line, "|")
		if len(parts) != 3 {
			continue
		}
		items = append(items, source.Item{URL: parts[0], Title: parts[1], DateRaw: parts[2]})
	}
	return items, nil
}

type fakeExtractor struct{}

func (fakeExtractor) Run(data []byte) (*source.ArticleContent, error) {
	text := string(data)
	if text == "empty" {
		return &source.ArticleContent{}, nil
	}
	return &source.ArticleContent{Title: "正文标题", Author: "作者", Body: text}, nil
}

type stores struct {
	articles *database.ArticleRepository
	reviews  *database.ReviewRepository
	results  *database.LLMResultRepository
}

func newStores(t *testing.T) stores {
	t.Helper()

	db, err := database.NewConnection(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, _, err = database.RunMigrations(db)
	require.NoError(t, err)

	return stores{
		articles: database.NewArticleRepository(db),
		reviews:  database.NewReviewRepository(db),
		results:  database.NewLLMResultRepository(db),
	}
}

func testSourceConfig() *source.Config {
	return &source.Config{
		Name:    "test",
		ListURL: "https://news.example.com/",
		PageURL: "https://news.example.com/?page={page}",
		Format:  source.FormatHTML,
		Filters: []source.ConfigFilter{{Field: "title", Excludes: []string{"广告"}}},
	}
}

func TestDiscoverArticlesTask(t *testing.T) {
	s := newStores(t)
	ctx := context.Background()

	_, err := s.articles.UpsertArticles(ctx, "test", []database.ArticleRef{{Title: "deleted", URL: "https://e/deleted"}})
	require.NoError(t, err)
	deleted, err := s.articles.GetArticleByURL(ctx, "https://e/deleted")
	require.NoError(t, err)
	require.NoError(t, s.reviews.DeleteArticle(ctx, deleted.ID))

	fetcher := &fakeFetcher{pages: map[string]string{
		"https://news.example.com/": "https://e/a|晶圆厂扩产|2026-01-05\nhttps://e/b|【广告】展会|2026-01-05\nhttps://e/deleted|旧文|2026-01-04",
		"https://news.example.com/?page=2": "https://e/a|晶圆厂扩产|2026-01-05\nhttps://e/c|先进封装|2026/01/03",
		"https://news.example.com/?page=3": "https://e/c|先进封装|2026/01/03",
	}}

	task := NewDiscoverArticlesTask(testSourceConfig(), fetcher, lineParser{}, source.NewFilterer(testSourceConfig().Filters), s.articles, 5)
	require.NoError(t, task.Execute(ctx))

	assert.Equal(t, database.UpsertResult{New: 2}, task.Result)
	assert.Len(t, fetcher.calls, 3, "pagination stops at a page with nothing new")

	c, err := s.articles.GetArticleByURL(ctx, "https://e/c")
	require.NoError(t, err)
	assert.Equal(t, "2026-01-03", c.PublishedDate)

	_, err = s.articles.GetArticleByURL(ctx, "https://e/b")
	assert.True(t, errors.Is(err, database.ErrNotFound))
	_, err = s.articles.GetArticleByURL(ctx, "https://e/deleted")
	assert.True(t, errors.Is(err, database.ErrNotFound))

	again := NewDiscoverArticlesTask(testSourceConfig(), fetcher, lineParser{}, source.NewFilterer(testSourceConfig().Filters), s.articles, 1)
	require.NoError(t, again.Execute(ctx))
	assert.Equal(t, database.UpsertResult{Updated: 1}, again.Result)
}

func TestDiscoverArticlesTask_PageFailures(t *testing.T) {
	s := newStores(t)
	ctx := context.Background()

	failing := NewDiscoverArticlesTask(testSourceConfig(), &fakeFetcher{}, lineParser{}, source.NewFilterer(testSourceConfig().Filters), s.articles, 3)
	assert.Error(t, failing.Execute(ctx))

	fetcher := &fakeFetcher{pages: map[string]string{
		"https://news.example.com/": "https://e/a|晶圆厂扩产|2026-01-05",
	}}
	partial := NewDiscoverArticlesTask(testSourceConfig(), fetcher, lineParser{}, source.NewFilterer(testSourceConfig().Filters), s.articles, 3)
	require.NoError(t, partial.Execute(ctx))
	assert.Equal(t, 1, partial.Result.New)
	assert.Len(t, fetcher.calls, 2)
}

func TestDiscoverArticlesTask_MaxItems(t *testing.T) {
	s := newStores(t)

	config := testSourceConfig()
	config.Settings.MaxItems = 1
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://news.example.com/": "https://e/a|一|2026-01-05\nhttps://e/b|二|2026-01-05",
	}}

	task := NewDiscoverArticlesTask(config, fetcher, lineParser{}, source.NewFilterer(testSourceConfig().Filters), s.articles, 1)
	require.NoError(t, task.Execute(context.Background()))
	assert.Equal(t, 1, task.Result.New)
}

func TestBackfillContentTask(t *testing.T) {
	s := newStores(t)
	ctx := context.Background()

	_, err := s.articles.UpsertArticles(ctx, "test", []database.ArticleRef{
		{Title: "a", URL: "https://e/a", DateRaw: "2026-01-05"},
		{Title: "b", URL: "https://e/b", DateRaw: "2026-01-04"},
		{Title: "c", URL: "https://e/c", DateRaw: "2026-01-03"},
	})
	require.NoError(t, err)

	fetcher := &fakeFetcher{pages: map[string]string{
		"https://e/a": "正文内容。",
		"https://e/c": "empty",
	}}

	task := NewBackfillContentTask(testSourceConfig(), fetcher, fakeExtractor{}, s.articles, 10, time.Second)
	require.NoError(t, task.Execute(ctx))

	assert.Equal(t, 1, task.Processed)
	assert.Equal(t, 2, task.Failed)
	assert.Equal(t, []string{"https://e/a", "https://e/b", "https://e/c"}, fetcher.calls)

	a, err := s.articles.GetArticleByURL(ctx, "https://e/a")
	require.NoError(t, err)
	assert.Equal(t, "正文内容。", a.Content)
	assert.Equal(t, "正文标题", a.Title)
	assert.Equal(t, "作者", a.Author)
	assert.NotNil(t, a.ContentFetchedAt)

	missing, err := s.articles.GetArticlesMissingContent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, missing, 2)
}

func TestBackfillContentTask_TimeoutSkipsItem(t *testing.T) {
	s := newStores(t)
	ctx := context.Background()

	_, err := s.articles.UpsertArticles(ctx, "test", []database.ArticleRef{
		{Title: "slow", URL: "https://e/slow", DateRaw: "2026-01-05"},
		{Title: "fast", URL: "https://e/fast", DateRaw: "2026-01-04"},
	})
	require.NoError(t, err)

	fetcher := &stallingFetcher{
		fakeFetcher: fakeFetcher{pages: map[string]string{"https://e/fast": "正文。"}},
		stall:       map[string]bool{"https://e/slow": true},
	}

	task := NewBackfillContentTask(testSourceConfig(), fetcher, fakeExtractor{}, s.articles, 10, 20*time.Millisecond)
	require.NoError(t, task.Execute(ctx))

	assert.Equal(t, 1, task.Processed)
	assert.Equal(t, 1, task.Failed)
	assert.Equal(t, []string{"https://e/slow", "https://e/fast"}, fetcher.calls)

	slow, err := s.articles.GetArticleByURL(ctx, "https://e/slow")
	require.NoError(t, err)
	assert.Empty(t, slow.Content)
	assert.Nil(t, slow.ContentFetchedAt)

	fast, err := s.articles.GetArticleByURL(ctx, "https://e/fast")
	require.NoError(t, err)
	assert.Equal(t, "正文。", fast.Content)
}

func TestClassifyArticlesTask_MissingAPIKey(t *testing.T) {
	s := newStores(t)

	task := NewClassifyArticlesTask("test", llm.Config{}, llm.NewRetrier(0), 0, 10, s.articles, s.results)
	err := task.Execute(context.Background())
	assert.True(t, errors.Is(err, llm.ErrMissingAPIKey))
}

func TestClassifyArticlesTask(t *testing.T) {
	s := newStores(t)
	ctx := context.Background()

	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.Equal(t, "/chat/completions", r.URL.Path)

		reply := `{"category":"设备","summary":"刻蚀设备订单增长。"}`
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": reply}}},
		})
	}))
	defer server.Close()

	_, err := s.articles.UpsertArticles(ctx, "test", []database.ArticleRef{
		{Title: "a", URL: "https://e/a", DateRaw: "2026-01-05"},
		{Title: "b", URL: "https://e/b", DateRaw: "2026-01-04"},
	})
	require.NoError(t, err)
	a, err := s.articles.GetArticleByURL(ctx, "https://e/a")
	require.NoError(t, err)
	require.NoError(t, s.articles.UpdateArticleContent(ctx, a.ID, database.ContentUpdate{Content: "正文。"}))

	config := llm.Config{APIKey: "key", BaseURL: server.URL, Model: "test-model", Timeout: 5 * time.Second}
	task := NewClassifyArticlesTask("test", config, llm.NewRetrier(0), 0, 10, s.articles, s.results)
	require.NoError(t, task.Execute(ctx))

	assert.Equal(t, 1, task.Processed)
	assert.Equal(t, int32(1), requests.Load())

	result, err := s.results.GetLLMResult(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "equipment", result.Category)
	assert.Equal(t, "刻蚀设备订单增长。", result.Summary)
	assert.Equal(t, "test-model", result.Model)
	assert.Equal(t, server.URL, result.BaseURL)

	second := NewClassifyArticlesTask("test", config, llm.NewRetrier(0), 0, 10, s.articles, s.results)
	require.NoError(t, second.Execute(ctx))
	assert.Equal(t, 0, second.Processed)
	assert.Equal(t, int32(1), requests.Load())
}

type countingTask struct {
	Task
	runs *atomic.Int32
	err  error
}

func (c *countingTask) Execute(ctx context.Context) error {
	c.runs.Add(1)
	return c.err
}

func TestRun_StopsAtFirstFailure(t *testing.T) {
	var runs atomic.Int32
	failing := &countingTask{Task: NewTask(TaskTypeDiscover, "test"), runs: &runs, err: errors.New("boom")}
	next := &countingTask{Task: NewTask(TaskTypeBackfill, "test"), runs: &runs}

	err := Run(context.Background(), failing, next)
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(TaskTypeDiscover))
	assert.Equal(t, int32(1), runs.Load())
}

func TestScheduler_RunsPipeline(t *testing.T) {
	var runs atomic.Int32

	scheduler := NewScheduler(func() []TaskInterface {
		return []TaskInterface{
			&countingTask{Task: NewTask(TaskTypeDiscover, "test"), runs: &runs},
			&countingTask{Task: NewTask(TaskTypeBackfill, "test"), runs: &runs},
		}
	}, time.Hour, time.Minute)

	scheduler.Start()
	assert.Eventually(t, func() bool { return runs.Load() == 2 }, time.Second, 10*time.Millisecond)
	scheduler.Stop()
}

func TestTask_Retry(t *testing.T) {
	task := NewTask(TaskTypeDiscover, "test")
	assert.Equal(t, DefaultMaxRetries, task.GetMaxRetries())

	for i := 0; i < DefaultMaxRetries; i++ {
		assert.True(t, task.CanRetry())
		task.IncrementRetryCount()
	}
	assert.False(t, task.CanRetry())
	assert.Equal(t, time.Duration(0), task.GetDuration())
}
