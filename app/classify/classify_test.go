package classify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/lysyi3m/semi-weekly/app/article"
	"github.com/lysyi3m/semi-weekly/app/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildExcerpt(t *testing.T) {
	assert.Equal(t, 100, utf8.RuneCountInString(BuildExcerpt(strings.Repeat("a", 4000), 100)))
	assert.Equal(t, 5, utf8.RuneCountInString(BuildExcerpt(strings.Repeat("半导体", 10), 5)))

	got := BuildExcerpt("  第一段   内容 \n\n   \n\t第二段 内容  ", 2800)
	assert.Equal(t, "第一段 内容 第二段 内容", got)
	assert.NotContains(t, BuildExcerpt("一\r\n二\n\n三", 2800), "\n")

	assert.Equal(t, "short", BuildExcerpt("short", 100))
}

func TestParseJSONObject(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{"plain", `{"category":"设备","summary":"一句话。"}`, false},
		{"fenced", "```json\n{\"category\":\"材料\",\"summary\":\"两句话。第二句。\"}\n```", false},
		{"chatter", "好的，结果如下：{\"category\":\"design\",\"summary\":\"s\"} 希望有帮助", false},
		{"no braces", "category: design", true},
		{"reversed", "} {", true},
		{"broken json", `{"category": }`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := ParseJSONObject(tt.text)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidOutput))
				return
			}
			require.NoError(t, err)
			assert.Contains(t, obj, "category")
		})
	}
}

func TestValidate(t *testing.T) {
	category, summary, err := Validate(map[string]any{
		"category":   "设计",
		"summary_zh": "第一句。第二句。第三句。第四句。",
	})
	require.NoError(t, err)
	assert.Equal(t, article.CategoryDesign, category)
	assert.Equal(t, "第一句。第二句。第三句。", summary)

	category, _, err = Validate(map[string]any{"category": "设备", "summary": "一句话。"})
	require.NoError(t, err)
	assert.Equal(t, article.CategoryEquipment, category)

	_, _, err = Validate(map[string]any{"category": "汽车", "summary": "一句话。"})
	assert.True(t, errors.Is(err, ErrInvalidOutput))

	_, _, err = Validate(map[string]any{"category": "design", "summary": "  \n "})
	assert.True(t, errors.Is(err, ErrInvalidOutput))

	_, _, err = Validate(map[string]any{"category": 3, "summary": "s"})
	assert.True(t, errors.Is(err, ErrInvalidOutput))

	_, summary, err = Validate(map[string]any{"category": "IDM", "summary": "问一？答二！  结论三。补充四。"})
	require.NoError(t, err)
	assert.Equal(t, "问一？答二！ 结论三。", summary)
}

type scriptedChat struct {
	replies  []string
	requests []llm.Request
	err      error
}

func (s *scriptedChat) Complete(ctx context.Context, req llm.Request) (string, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return "", s.err
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply, nil
}

func testInput() Input {
	return Input{Title: "标题", URL: "https://example.com/a", Date: "2026-01-05", Content: "正文内容"}
}

func TestClassify_FirstAttempt(t *testing.T) {
	chat := &scriptedChat{replies: []string{`{"category":"manufacturing","summary":"某厂扩产。"}`}}

	res, err := NewClassifier(chat, llm.Retrier{}, 0).Classify(context.Background(), testInput())
	require.NoError(t, err)
	assert.Equal(t, article.CategoryManufacturing, res.Category)
	assert.Equal(t, "某厂扩产。", res.Summary)
	assert.JSONEq(t, `{"category":"manufacturing","summary":"某厂扩产。"}`, res.RawJSON)

	require.Len(t, chat.requests, 1)
	req := chat.requests[0]
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.JSONEq(t, `{"title":"标题","url":"https://example.com/a","date":"2026-01-05","author":"","excerpt":"正文内容"}`, req.Messages[1].Content)
}

func TestClassify_RepairSucceeds(t *testing.T) {
	chat := &scriptedChat{replies: []string{
		"抱歉，我无法判断",
		"```json\n{\"category\":\"封装\",\"summary\":\"先进封装产能提升。\"}\n```",
	}}

	res, err := NewClassifier(chat, llm.Retrier{}, 0).Classify(context.Background(), testInput())
	require.NoError(t, err)
	assert.Equal(t, article.CategoryPackaging, res.Category)

	require.Len(t, chat.requests, 2)
	repair := chat.requests[1]
	assert.Equal(t, float64(0), repair.Temperature)
	assert.Equal(t, repairSystemPrompt, repair.Messages[0].Content)
	assert.Equal(t, "抱歉，我无法判断", repair.Messages[1].Content)
}

func TestClassify_RepairFails(t *testing.T) {
	chat := &scriptedChat{replies: []string{
		`{"category":"汽车","summary":"x"}`,
		`{"category":"汽车","summary":"x"}`,
		`{"category":"design","summary":"never requested"}`,
	}}

	_, err := NewClassifier(chat, llm.Retrier{}, 0).Classify(context.Background(), testInput())
	assert.True(t, errors.Is(err, ErrInvalidOutput))
	assert.Len(t, chat.requests, 2)
}

func TestClassify_TransportFailureSkipsRepair(t *testing.T) {
	chat := &scriptedChat{err: &llm.HTTPError{StatusCode: 401}}

	_, err := NewClassifier(chat, llm.Retrier{}, 0).Classify(context.Background(), testInput())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidOutput))
	assert.Len(t, chat.requests, 1)
}
