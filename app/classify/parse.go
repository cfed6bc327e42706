package classify

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidOutput = errors.New("invalid model output")

// ParseJSONObject extracts the JSON object from a model reply, tolerating
// Markdown code fences and chatter around the object.
func ParseJSONObject(text string) (map[string]any, error) {
	text = stripCodeFence(strings.TrimSpace(text))

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON object found", ErrInvalidOutput)
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}

	return obj, nil
}

func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}

	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	} else {
		text = strings.TrimPrefix(text, "```")
	}

	text = strings.TrimSpace(text)
	return strings.TrimSpace(strings.TrimSuffix(text, "```"))
}
