package ollama

import (
	"strings"
	"time"

	"ai-studytool-be/pkg/llm/openai"
)

const DefaultBaseURL = "http://localhost:11434"

// NewOllamaProvider talks to Ollama through its OpenAI-compatible /v1 endpoint.
func NewOllamaProvider(baseURL, modelName string, timeout time.Duration) *openai.Provider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if modelName == "" {
		modelName = "llama3.1"
	}
	return openai.NewProvider(openai.Config{
		Name:    "ollama",
		APIKey:  "ollama",
		BaseURL: strings.TrimRight(baseURL, "/") + "/v1",
		Model:   modelName,
		Timeout: timeout,
	})
}
