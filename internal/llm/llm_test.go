package llm

import (
	"strings"
	"testing"

	"github.com/shacademia/estudy/internal/llm/prompts"
	"github.com/shacademia/estudy/internal/model"
)

func TestDraftSystemPrompt(t *testing.T) {
	prompt := prompts.DraftSystemPrompt("Physics", "optics", model.DifficultyHard, 5)

	if !strings.Contains(prompt, "Physics") {
		t.Error("prompt should contain the subject")
	}
	if !strings.Contains(prompt, "optics") {
		t.Error("prompt should contain the topic")
	}
	if !strings.Contains(prompt, "hard") {
		t.Error("prompt should contain the difficulty")
	}
	if !strings.Contains(prompt, "5 multiple-choice") {
		t.Error("prompt should contain the count")
	}
}

func TestDraftSystemPromptNoTopic(t *testing.T) {
	prompt := prompts.DraftSystemPrompt("Math", "", model.DifficultyEasy, 1)
	if strings.Contains(prompt, "topic:") {
		t.Error("prompt should omit topic clause when empty")
	}
}
