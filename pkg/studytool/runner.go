package studytool

import (
	"context"
	"strings"

	"ai-studytool-be/pkg/llm"
)

// Runner turns a tool invocation into a model call and a typed result.
type Runner struct {
	provider llm.LLMProvider
}

func NewRunner(provider llm.LLMProvider) *Runner {
	return &Runner{provider: provider}
}

type Output struct {
	// Result is a string, or []Question for the questions tool.
	Result interface{}
	Raw    string
}

// Run calls the model. model overrides the provider default when non-empty.
func (r *Runner) Run(ctx context.Context, s Settings, text, model string) (*Output, error) {
	system, prompt, err := BuildPrompt(s, text)
	if err != nil {
		return nil, err
	}

	var opts []llm.Option
	if model != "" {
		opts = append(opts, llm.WithModel(model))
	}

	raw, err := llm.Generate(ctx, r.provider, system, prompt, opts...)
	if err != nil {
		return nil, err
	}

	out := &Output{Raw: raw}
	if s.Tool == ToolQuestions {
		out.Result = ParseQuestions(raw)
	} else {
		out.Result = strings.TrimSpace(raw)
	}
	return out, nil
}

func (r *Runner) ProviderName() string {
	return r.provider.Name()
}
