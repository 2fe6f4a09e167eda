package studytool

import (
	"encoding/json"
	"strings"
)

type Question struct {
	Question    string   `json:"question"`
	Options     []string `json:"options,omitempty"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation"`
}

// ParseQuestions reads the JSON array a questions prompt asks for. Code fences are stripped.
// Output that is not a JSON array is returned as a single question holding the raw text.
func ParseQuestions(raw string) []Question {
	body := strings.TrimSpace(raw)
	body = strings.TrimPrefix(body, "```json")
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimSuffix(body, "```")
	body = strings.TrimSpace(body)

	var questions []Question
	if err := json.Unmarshal([]byte(body), &questions); err == nil {
		if questions == nil {
			return []Question{}
		}
		return questions
	}

	return []Question{{Question: strings.TrimSpace(raw), Answer: "See the question text"}}
}
