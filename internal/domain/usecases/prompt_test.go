package usecases

import (
	"strings"
	"testing"

	"github.com/localdocs/docchat/internal/domain/entities"
)

func TestPromptComposer_Deterministic(t *testing.T) {
	p := NewPromptComposer(3)
	chunks := []entities.RetrievedChunk{retrieved(1, "a.txt", "alpha", 0.1)}
	history := []entities.ConversationTurn{{Question: "q1", Answer: "a1"}}

	first := p.Compose("question", chunks, history)
	second := p.Compose("question", chunks, history)
	if first != second {
		t.Error("identical inputs produced different prompts")
	}
}

func TestPromptComposer_ContextBlocksLabeledByRank(t *testing.T) {
	p := NewPromptComposer(3)
	chunks := []entities.RetrievedChunk{
		retrieved(1, "first.txt", "alpha content", 0.1),
		retrieved(2, "second.pdf", "beta content", 0.4),
	}

	prompt := p.Compose("what?", chunks, nil)

	if !strings.Contains(prompt, "[Document 1 from first.txt]:\nalpha content") {
		t.Error("first context block missing or mislabeled")
	}
	if !strings.Contains(prompt, "[Document 2 from second.pdf]:\nbeta content") {
		t.Error("second context block missing or mislabeled")
	}
	if strings.Index(prompt, "[Document 1") > strings.Index(prompt, "[Document 2") {
		t.Error("context blocks out of rank order")
	}
}

func TestPromptComposer_ContextIndependentOfHistory(t *testing.T) {
	p := NewPromptComposer(3)
	chunks := []entities.RetrievedChunk{
		retrieved(1, "a.txt", "alpha", 0.1),
		retrieved(2, "b.txt", "beta", 0.2),
	}

	withoutHistory := p.Compose("q", chunks, nil)
	withHistory := p.Compose("q", chunks, []entities.ConversationTurn{
		{Question: "earlier", Answer: "reply"},
	})

	extract := func(prompt string) string {
		start := strings.Index(prompt, "[Document 1")
		end := strings.Index(prompt, "beta") + len("beta")
		return prompt[start:end]
	}
	if extract(withoutHistory) != extract(withHistory) {
		t.Error("context block changed when only history varied")
	}
}

func TestPromptComposer_HistoryWindow(t *testing.T) {
	p := NewPromptComposer(3)
	history := []entities.ConversationTurn{
		{Question: "q1", Answer: "a1"},
		{Question: "q2", Answer: "a2"},
		{Question: "q3", Answer: "a3"},
		{Question: "q4", Answer: "a4"},
	}

	prompt := p.Compose("current", nil, history)

	if strings.Contains(prompt, "User: q1") {
		t.Error("turn outside the window leaked into the prompt")
	}
	for _, q := range []string{"q2", "q3", "q4"} {
		if !strings.Contains(prompt, "User: "+q) {
			t.Errorf("turn %s missing from prompt", q)
		}
	}
	if !strings.Contains(prompt, "Previous conversation:") {
		t.Error("history header missing")
	}
}

func TestPromptComposer_ZeroChunksZeroHistory(t *testing.T) {
	p := NewPromptComposer(3)
	prompt := p.Compose("lonely question", nil, nil)

	if !strings.Contains(prompt, "User Question: lonely question") {
		t.Error("question missing from prompt")
	}
	if strings.Contains(prompt, "Previous conversation:") {
		t.Error("empty history should render no history block")
	}
	if !strings.Contains(prompt, "Answer (use ONLY information from Context above):") {
		t.Error("answer cue missing")
	}
}

func TestPromptComposer_InstructionPreamble(t *testing.T) {
	p := NewPromptComposer(3)
	prompt := p.Compose("q", nil, nil)

	if !strings.HasPrefix(prompt, "You are a helpful assistant answering questions based ONLY on the provided documents.") {
		t.Error("instruction preamble missing or not first")
	}
	if !strings.Contains(prompt, "Do NOT make up information") {
		t.Error("grounding instruction missing")
	}
}
