package studytool

import (
	"fmt"
	"math"
	"strings"
)

const (
	ToolSummary   = "summary"
	ToolQuestions = "questions"
	ToolExplain   = "explain"
	ToolRewrite   = "rewrite"
)

// Tools lists every tool the runner can execute.
var Tools = []string{ToolSummary, ToolQuestions, ToolExplain, ToolRewrite}

func IsKnownTool(toolType string) bool {
	for _, t := range Tools {
		if t == toolType {
			return true
		}
	}
	return false
}

var (
	summaryModes   = []string{"key_points", "easy_read", "bullet_list", "ultra_short"}
	questionTypes  = []string{"mcq", "short", "true_false", "fill_blank"}
	explainModes   = []string{"easy", "exam", "friend", "deep_analysis"}
	rewriteStyles  = []string{"simple", "academic", "student", "practical"}
	defaultLang    = "Vietnamese"
	maxQuestions   = 10
	defaultQuCount = 5
)

// Settings are the normalized options of one invocation.
type Settings struct {
	Tool         string `json:"-"`
	Mode         string `json:"mode,omitempty"`
	QuestionType string `json:"question_type,omitempty"`
	Count        int    `json:"count,omitempty"`
	WithExamples bool   `json:"with_examples,omitempty"`
	Style        string `json:"style,omitempty"`
	Language     string `json:"language"`
}

// OptionError reports an option value the tool does not accept.
type OptionError struct {
	Option string
	Value  interface{}
}

func (e *OptionError) Error() string {
	return fmt.Sprintf("invalid value %v for option %s", e.Value, e.Option)
}

// Normalize validates raw request options and fills defaults.
func Normalize(toolType string, raw map[string]interface{}) (Settings, error) {
	s := Settings{Tool: toolType, Language: defaultLang}
	if lang, ok := stringOpt(raw, "language"); ok && lang != "" {
		s.Language = lang
	}

	var err error
	switch toolType {
	case ToolSummary:
		s.Mode, err = enumOpt(raw, "mode", summaryModes)
	case ToolQuestions:
		if s.QuestionType, err = enumOpt(raw, "question_type", questionTypes); err != nil {
			return s, err
		}
		s.Count, err = countOpt(raw)
	case ToolExplain:
		if s.Mode, err = enumOpt(raw, "mode", explainModes); err != nil {
			return s, err
		}
		s.WithExamples = true
		if v, ok := raw["with_examples"]; ok {
			b, isBool := v.(bool)
			if !isBool {
				return s, &OptionError{Option: "with_examples", Value: v}
			}
			s.WithExamples = b
		}
	case ToolRewrite:
		s.Style, err = enumOpt(raw, "style", rewriteStyles)
	default:
		return s, fmt.Errorf("unknown tool %q", toolType)
	}
	return s, err
}

// Map is the form stored with history entries.
func (s Settings) Map() map[string]interface{} {
	m := map[string]interface{}{"language": s.Language}
	if s.Mode != "" {
		m["mode"] = s.Mode
	}
	if s.QuestionType != "" {
		m["question_type"] = s.QuestionType
		m["count"] = s.Count
	}
	if s.Style != "" {
		m["style"] = s.Style
	}
	if s.Tool == ToolExplain {
		m["with_examples"] = s.WithExamples
	}
	return m
}

func stringOpt(raw map[string]interface{}, key string) (string, bool) {
	v, ok := raw[key]
	if !ok || v == nil {
		return "", false
	}
	str, ok := v.(string)
	return strings.TrimSpace(str), ok
}

// enumOpt returns the first allowed value when the option is absent.
func enumOpt(raw map[string]interface{}, key string, allowed []string) (string, error) {
	v, present := raw[key]
	if !present || v == nil {
		return allowed[0], nil
	}
	str, ok := v.(string)
	if !ok {
		return "", &OptionError{Option: key, Value: v}
	}
	for _, a := range allowed {
		if a == str {
			return str, nil
		}
	}
	return "", &OptionError{Option: key, Value: v}
}

func countOpt(raw map[string]interface{}) (int, error) {
	v, present := raw["count"]
	if !present || v == nil {
		return defaultQuCount, nil
	}
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	default:
		return 0, &OptionError{Option: "count", Value: v}
	}
	if f != math.Trunc(f) || f < 1 || f > float64(maxQuestions) {
		return 0, &OptionError{Option: "count", Value: v}
	}
	return int(f), nil
}
