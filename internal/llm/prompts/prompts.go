package prompts

import (
	"fmt"
	"strings"

	"github.com/shacademia/estudy/internal/model"
)

// DraftSystemPrompt builds the system prompt for drafting multiple-choice
// questions.
func DraftSystemPrompt(subject, topic string, difficulty model.Difficulty, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an exam author. Write %d multiple-choice questions on the subject %q", count, subject)
	if topic != "" {
		fmt.Fprintf(&b, " (topic: %q)", topic)
	}
	fmt.Fprintf(&b, " at %s difficulty.\n\n", strings.ToLower(string(difficulty)))
	b.WriteString(`Respond with JSON only, in this shape:
{"questions": [{"content": "...", "options": ["...", "...", "...", "..."], "correct_option": 0, "explanation": "..."}]}

Rules:
- exactly 4 options per question
- correct_option is the zero-based index into options
- one unambiguously correct answer per question
- no numbering prefixes in content or options`)
	return b.String()
}
