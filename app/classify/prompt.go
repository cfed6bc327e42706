package classify

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lysyi3m/semi-weekly/app/article"
	"github.com/lysyi3m/semi-weekly/app/llm"
)

const (
	defaultTemperature = 0.2
	repairTemperature  = 0
)

var systemPrompt = `你是半导体产业新闻编辑。根据用户提供的文章信息，判断文章所属的产业链环节并写出中文摘要。
只输出一个 JSON 对象，不要输出任何其他文字，不要使用 Markdown 代码块。
JSON 对象必须且只能包含两个字符串字段：
- "category"：必须是以下取值之一：` + categoryChoices() + `
- "summary"：客观陈述文章要点，1 到 3 句中文，不得夸张或添加原文没有的信息。`

var repairSystemPrompt = `你的上一次输出不是合法结果。请把用户给出的文本改写为严格的 JSON 对象。
只输出 JSON 对象本身，不要任何解释，不要使用 Markdown 代码块。
对象必须且只能包含 "category" 和 "summary" 两个字符串字段。
"category" 必须是以下取值之一：` + categoryChoices() + `
"summary" 必须是非空的中文摘要，最多 3 句。`

func categoryChoices() string {
	choices := make([]string, 0, len(article.Categories))
	for _, c := range article.Categories {
		choices = append(choices, string(c))
	}
	return strings.Join(choices, ", ")
}

type userPayload struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Date    string `json:"date"`
	Author  string `json:"author"`
	Excerpt string `json:"excerpt"`
}

// BuildRequest composes the classification request for one article.
func BuildRequest(in Input, excerptChars int) (llm.Request, error) {
	payload, err := json.Marshal(userPayload{
		Title:   in.Title,
		URL:     in.URL,
		Date:    in.Date,
		Author:  in.Author,
		Excerpt: BuildExcerpt(in.Content, excerptChars),
	})
	if err != nil {
		return llm.Request{}, fmt.Errorf("failed to marshal user payload: %w", err)
	}

	return llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: string(payload)},
		},
		Temperature: defaultTemperature,
	}, nil
}

// BuildRepairRequest asks the model to fix its own failed output.
func BuildRepairRequest(failedText string) llm.Request {
	return llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: repairSystemPrompt},
			{Role: "user", Content: failedText},
		},
		Temperature: repairTemperature,
	}
}
