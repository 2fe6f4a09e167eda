package studytool

import (
	"fmt"
	"strings"
)

const systemPrompt = "You are a study assistant for university students. Return only the requested content, " +
	"with no title, preamble or meta commentary about the task."

var summaryRules = map[string]string{
	"key_points": `Extract the KEY POINTS of the text.
- Keep definitions, core concepts, formulas, rules and essential facts; drop long examples and side stories.
- Use clear bullet points. Scale the number of points with the input: under 100 words 2-3, 100-300 words 4-5, 300-800 words 6-8, longer 8-12.
- One concise sentence per point, most important point first, highlight keywords with **bold**.`,
	"easy_read": `Summarize the text in SIMPLE everyday language for a beginner.
- Explain hard concepts briefly and directly.
- Short paragraphs or short bullets. Length: under 100 words input 50-80 words, 100-300 words 80-150, 300-800 words 150-250, longer 250-400.
- Most important concept first, highlight keywords with **bold** where useful.`,
	"bullet_list": `Summarize the text ENTIRELY as a bullet list using "-".
- One idea per bullet, at most 15 words. Sub-bullets only when needed.
- Under 100 words input 3-4 bullets, 100-300 words 5-7, 300-800 words 8-12, longer 12-18.
- Most important bullet first, highlight keywords with **bold**.`,
	"ultra_short": `Reduce the text to the ABSOLUTE MINIMUM a student can read in ten seconds before an exam.
- Keep only the core keywords and concepts.
- Under 100 words input 2 points, 100-500 words 3-4, longer at most 5.
- Each point 5-10 words, as "-" bullets, keywords in **bold**.`,
}

var questionRules = map[string]string{
	"mcq": `Create exactly %d multiple-choice questions with 4 options (A, B, C, D).
Focus on definitions, concepts, rules and key formulas. Wrong options must be plausible.
Give a 1-2 sentence explanation of the correct answer.
Return ONLY a JSON array, no markdown:
[{"question": "...", "options": ["...", "...", "...", "..."], "answer": "A", "explanation": "..."}]`,
	"short": `Create exactly %d short-answer questions that ask to explain, analyze or compare.
The model answer is 2-4 sentences.
Return ONLY a JSON array, no markdown:
[{"question": "...", "answer": "...", "explanation": "..."}]`,
	"true_false": `Create exactly %d true/false statements, balanced between true and false.
False statements must be subtle. Explain in 1-2 sentences why each is true or false.
Return ONLY a JSON array, no markdown:
[{"question": "statement", "answer": "True", "explanation": "..."}]`,
	"fill_blank": `Create exactly %d fill-in-the-blank questions. Mark the blank with "______".
Blanks are key terms, concepts or figures and the sentence must give enough context to infer them.
Return ONLY a JSON array, no markdown:
[{"question": "sentence with ______", "answer": "missing term", "explanation": "..."}]`,
}

var explainRules = map[string]string{
	"easy": `Explain the content as SIMPLY as possible, from basics upwards.
Define any hard term immediately in plain words. Length 150-300 words. End with a one-sentence takeaway.`,
	"exam": `Explain the content FOR AN EXAM: definitions, formulas, rules and defining traits.
Bold the keywords to memorize and point out common mistakes. Length 150-300 words.
End with a memory trick or exam tip.`,
	"friend": `Explain the content casually, as if talking to a friend, using everyday comparisons.
Length 150-300 words, relaxed and natural.`,
	"deep_analysis": `Analyze the content IN DEPTH: definition, essence, how it works, links to related concepts,
strengths, limits and conditions of use. Explain why and how, not only what.
Length 300-500 words, precise terminology. End with an overall perspective.`,
}

var rewriteRules = map[string]string{
	"simple": `Rewrite the text to be simple and easy to read: short clear sentences, plain words, logical order.
Keep the original meaning. Length within 10% of the original.`,
	"academic": `Rewrite the text in a formal academic register with precise terminology and tight logical structure.
Keep the original meaning. Length within 10% of the original.`,
	"student": `Rewrite the text naturally, the way a student would write it: varied sentence length,
everyday vocabulary, no typical generated-text patterns. Keep the original meaning. Length within 10% of the original.`,
	"practical": `Rewrite the text to be action oriented: concrete steps, realistic examples and practical tips.
Keep the original meaning. Length within 15% of the original.`,
}

// BuildPrompt returns the system and user prompts for one invocation.
func BuildPrompt(s Settings, text string) (string, string, error) {
	var rules string
	switch s.Tool {
	case ToolSummary:
		rules = summaryRules[s.Mode]
	case ToolQuestions:
		rules = fmt.Sprintf(questionRules[s.QuestionType], s.Count)
	case ToolExplain:
		rules = explainRules[s.Mode]
		if s.WithExamples {
			rules += "\nInclude 1-2 concrete examples."
		} else {
			rules += "\nDo not include examples."
		}
	case ToolRewrite:
		rules = rewriteRules[s.Style]
	default:
		return "", "", fmt.Errorf("unknown tool %q", s.Tool)
	}
	if rules == "" {
		return "", "", fmt.Errorf("no prompt for %s settings %+v", s.Tool, s)
	}

	var b strings.Builder
	b.WriteString(rules)
	b.WriteString("\nWrite the answer in ")
	b.WriteString(s.Language)
	b.WriteString(".\n\nContent:\n")
	b.WriteString(text)
	return systemPrompt, b.String(), nil
}
