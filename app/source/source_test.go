package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listPage = `<html><body>
<ul class="art-l-ul">
  <li class="art-l-li">
    <h4><a href="/news/202601051234.html">  某晶圆厂宣布扩产 </a></h4>
    <span class="m_newstime">2026年1月5日</span>
  </li>
  <li class="art-l-li">
    <a href="/news/202601041111.html" title="EDA 厂商发布新工具"><img src="x.png"></a>
    <a href="/news/202601041111.html">EDA 厂商发布新工具</a>
    <time datetime="2026-01-04 09:30">1月4日</time>
  </li>
  <li class="art-l-li">
    <h4><a href="/news/202601051234.html">某晶圆厂宣布扩产</a></h4>
  </li>
  <li class="art-l-li"><span>no link here</span></li>
  <li class="art-l-li">
    <a href="https://other.example.com/full">Absolute link</a>
    <span class="date">3小时前</span>
  </li>
</ul>
</body></html>`

func TestHTMLListParser_Run(t *testing.T) {
	parser, err := NewHTMLListParser(DefaultConfig())
	require.NoError(t, err)

	items, err := parser.Run([]byte(listPage))
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, Item{Title: "某晶圆厂宣布扩产", URL: "https://www.eet-china.com/news/202601051234.html", DateRaw: "2026年1月5日"}, items[0])
	assert.Equal(t, Item{Title: "EDA 厂商发布新工具", URL: "https://www.eet-china.com/news/202601041111.html", DateRaw: "2026-01-04 09:30"}, items[1])
	assert.Equal(t, Item{Title: "Absolute link", URL: "https://other.example.com/full", DateRaw: "3小时前"}, items[2])
}

func TestHTMLListParser_EmptyPage(t *testing.T) {
	parser, err := NewHTMLListParser(DefaultConfig())
	require.NoError(t, err)

	items, err := parser.Run([]byte("<html><body><p>nothing</p></body></html>"))
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestFeedListParser_Run(t *testing.T) {
	feed := `<?xml version="1.0"?>
<rss version="2.0"><channel><title>t</title>
  <item><title>&lt;b&gt;先进封装&lt;/b&gt; 进展 &amp; 展望</title><link>https://example.com/a</link><pubDate>Mon, 05 Jan 2026 10:00:00 GMT</pubDate></item>
  <item><title>No link</title></item>
  <item><title>Dup</title><link>https://example.com/a</link></item>
</channel></rss>`

	items, err := NewFeedListParser().Run([]byte(feed))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "先进封装 进展 & 展望", items[0].Title)
	assert.Equal(t, "https://example.com/a", items[0].URL)
	assert.Contains(t, items[0].DateRaw, "2026-01-0")

	_, err = NewFeedListParser().Run([]byte("not a feed"))
	assert.Error(t, err)
}

func TestHTMLArticleExtractor_Selectors(t *testing.T) {
	page := `<html><head><title>ignored</title></head><body>
<h1 class="m_title"> 先进制程  新进展 </h1>
<span class="m_auth">作者：李四</span>
<div class="m_text">
  <script>var x = 1;</script>
  <p>第一段。</p>
  <p>   </p>
  <p>第二段  内容。</p>
</div>
</body></html>`

	content, err := NewHTMLArticleExtractor(DefaultConfig()).Run([]byte(page))
	require.NoError(t, err)
	assert.Equal(t, "先进制程 新进展", content.Title)
	assert.Equal(t, "作者：李四", content.Author)
	assert.Equal(t, "第一段。\n第二段 内容。", content.Body)
}

func TestHTMLArticleExtractor_Fallback(t *testing.T) {
	config := DefaultConfig()
	config.Selectors.Content = []string{"div.missing"}

	page := `<html><body><nav>菜单</nav><main><h2>标题</h2><p>` + strings.Repeat("半导体设备国产化持续推进。", 30) + `</p></main></body></html>`

	content, err := NewHTMLArticleExtractor(config).Run([]byte(page))
	require.NoError(t, err)
	assert.Contains(t, content.Body, "半导体设备国产化持续推进。")
	assert.Empty(t, content.Author)

	_, err = NewHTMLArticleExtractor(config).Run(nil)
	assert.Error(t, err)
}

func TestHTTPFetcher_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("<html>ok</html>"))
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(server.Client(), "test-agent", 5*time.Second)

	data, err := fetcher.Fetch(context.Background(), server.URL+"/page")
	require.NoError(t, err)
	assert.Equal(t, "<html>ok</html>", string(data))

	_, err = fetcher.Fetch(context.Background(), server.URL+"/missing")
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	config, err := LoadConfig(filepath.Join(dir, "missing.yml"))
	require.NoError(t, err)
	assert.Equal(t, "EET-China", config.Name)
	assert.Equal(t, "https://www.eet-china.com/news/", config.PageURLFor(1))
	assert.Equal(t, "https://www.eet-china.com/news/?page=3", config.PageURLFor(3))

	path := filepath.Join(dir, "source.yml")
	yml := `name: Example
base_url: https://example.com
list_url: https://example.com/news
page_url: https://example.com/news/page/{page}
selectors:
  items: ["div.card"]
filters:
  - field: title
    excludes: ["广告"]
settings:
  delay_ms: 500
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	config, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "Example", config.Name)
	assert.Equal(t, FormatHTML, config.Format)
	assert.Equal(t, []string{"div.card"}, config.Selectors.Items)
	assert.NotEmpty(t, config.Selectors.Content)
	assert.Equal(t, 20, config.Settings.Timeout)
	assert.Equal(t, 500, config.Settings.DelayMS)
	assert.Equal(t, "https://example.com/news/page/2", config.PageURLFor(2))

	noPaging := &Config{ListURL: "https://example.com/news"}
	assert.Equal(t, "", noPaging.PageURLFor(2))
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()

	tests := map[string]string{
		"bad format":   "format: json\n",
		"bad page url": "page_url: https://example.com/news?p=2\n",
		"bad filter":   "filters:\n  - field: content\n    includes: [x]\n",
		"empty filter": "filters:\n  - field: title\n",
		"negative":     "settings:\n  max_items: -1\n",
	}

	for name, yml := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(name, " ", "_")+".yml")
			require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}
