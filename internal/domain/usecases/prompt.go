package usecases

import (
	"fmt"
	"strings"

	"github.com/localdocs/docchat/internal/domain/entities"
)

// promptInstructions constrain generation to the supplied context only.
const promptInstructions = `You are a helpful assistant answering questions based ONLY on the provided documents.

IMPORTANT INSTRUCTIONS:
1. Answer ONLY using information from the Context below
2. If the Context does not contain the answer, say "I don't have that information in the documents"
3. Do NOT make up information or use general knowledge
4. Cite which document you're using when relevant
5. Be specific and accurate`

// PromptComposer merges retrieved context, trimmed conversation history and
// the question into one instruction-constrained prompt.
//
// Compose is a pure function: no side effects, deterministic for identical
// inputs, so prompt assembly is testable without a generation backend.
type PromptComposer struct {
	historyWindow int
}

// NewPromptComposer creates a composer that replays at most historyWindow
// prior turns (default 3).
func NewPromptComposer(historyWindow int) *PromptComposer {
	if historyWindow <= 0 {
		historyWindow = 3
	}
	return &PromptComposer{historyWindow: historyWindow}
}

// Compose renders each chunk as a labeled block in rank order, then the last
// historyWindow turns as User/Assistant lines, then the question. Zero chunks
// and zero history both render cleanly.
func (p *PromptComposer) Compose(question string, chunks []entities.RetrievedChunk, history []entities.ConversationTurn) string {
	var sb strings.Builder
	sb.WriteString(promptInstructions)
	sb.WriteString("\n\nContext from documents:\n")
	sb.WriteString(p.contextBlock(chunks))
	sb.WriteString(p.historyBlock(history))
	sb.WriteString("\n\nUser Question: ")
	sb.WriteString(question)
	sb.WriteString("\n\nAnswer (use ONLY information from Context above):")
	return sb.String()
}

// contextBlock is independent of history so varying only the history leaves
// it byte-identical.
func (p *PromptComposer) contextBlock(chunks []entities.RetrievedChunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = fmt.Sprintf("[Document %d from %s]:\n%s", c.Rank, c.Chunk.SourceName, c.Chunk.Content)
	}
	return strings.Join(parts, "\n\n")
}

func (p *PromptComposer) historyBlock(history []entities.ConversationTurn) string {
	if len(history) == 0 {
		return ""
	}
	if len(history) > p.historyWindow {
		history = history[len(history)-p.historyWindow:]
	}
	var sb strings.Builder
	sb.WriteString("\n\nPrevious conversation:\n")
	for _, turn := range history {
		sb.WriteString("User: ")
		sb.WriteString(turn.Question)
		sb.WriteString("\nAssistant: ")
		sb.WriteString(turn.Answer)
		sb.WriteString("\n")
	}
	return sb.String()
}
