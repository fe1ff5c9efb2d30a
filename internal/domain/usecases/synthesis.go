package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/localdocs/docchat/internal/domain/entities"
	"github.com/localdocs/docchat/internal/domain/ports"
)

// NoRelevantInfoAnswer is returned when retrieval finds nothing; the
// generation step is skipped entirely in that case.
const NoRelevantInfoAnswer = "I couldn't find any relevant information in the documents."

// sourcePreviewLen caps the chunk text carried into source summaries.
const sourcePreviewLen = 200

// streamBuffer bounds the event channel; the producer blocks when the
// consumer falls behind, preserving backpressure.
const streamBuffer = 16

// SynthesisController orchestrates retrieve -> compose -> generate for one
// question, in atomic and streaming modes, and commits completed turns to the
// conversation ledger. Each request's pipeline is sequential; concurrency
// exists only across requests.
type SynthesisController struct {
	retrieval *RetrievalEngine
	composer  *PromptComposer
	ledger    *ConversationLedger
	llm       ports.LLMService
	readiness *Readiness
	topK      int
	window    int
	logger    *slog.Logger
	now       func() time.Time
}

// NewSynthesisController wires the pipeline. topK defaults to 10 and the
// history window to 3.
func NewSynthesisController(
	retrieval *RetrievalEngine,
	composer *PromptComposer,
	ledger *ConversationLedger,
	llm ports.LLMService,
	readiness *Readiness,
	topK, historyWindow int,
	logger *slog.Logger,
) *SynthesisController {
	if topK <= 0 {
		topK = 10
	}
	if historyWindow <= 0 {
		historyWindow = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SynthesisController{
		retrieval: retrieval,
		composer:  composer,
		ledger:    ledger,
		llm:       llm,
		readiness: readiness,
		topK:      topK,
		window:    historyWindow,
		logger:    logger,
		now:       time.Now,
	}
}

// Answer handles one question atomically: retrieve, compose, generate, commit.
// An empty session id gets a fresh opaque identifier.
func (c *SynthesisController) Answer(ctx context.Context, question, sessionID string) (*entities.AnswerResult, error) {
	if !c.readiness.Ready() {
		return nil, entities.ErrNotReady
	}
	sessionID = resolveSessionID(sessionID)

	chunks, err := c.retrieval.Retrieve(ctx, question, c.topK)
	if err != nil {
		return nil, err
	}

	if len(chunks) == 0 {
		c.logger.Info("no relevant chunks, skipping generation", "session_id", sessionID)
		result := &entities.AnswerResult{
			Question:  question,
			Answer:    NoRelevantInfoAnswer,
			Sources:   []entities.SourceSummary{},
			SessionID: sessionID,
		}
		c.commit(sessionID, question, result.Answer, result.Sources)
		return result, nil
	}

	prompt := c.composer.Compose(question, chunks, c.ledger.Recent(sessionID, c.window))
	answer, err := c.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrGeneration, err)
	}

	sources := summarizeSources(chunks)
	c.commit(sessionID, question, answer, sources)

	return &entities.AnswerResult{
		Question:  question,
		Answer:    answer,
		Sources:   sources,
		SessionID: sessionID,
	}, nil
}

// AnswerStream handles one question as an ordered event stream. The resolved
// session id is returned immediately so the transport can expose it before
// the first event. Event order: one sources event, one event per generated
// fragment in arrival order, one terminal done event. A failure mid-stream
// produces a terminal error event instead, and nothing is committed; the
// accumulated answer reaches the ledger only through the success terminal.
func (c *SynthesisController) AnswerStream(ctx context.Context, question, sessionID string) (string, <-chan entities.StreamEvent, error) {
	if !c.readiness.Ready() {
		return "", nil, entities.ErrNotReady
	}
	sessionID = resolveSessionID(sessionID)

	chunks, err := c.retrieval.Retrieve(ctx, question, c.topK)
	if err != nil {
		return "", nil, err
	}

	events := make(chan entities.StreamEvent, streamBuffer)
	history := c.ledger.Recent(sessionID, c.window)

	go func() {
		defer close(events)

		if len(chunks) == 0 {
			// Single terminal event carrying the fallback answer.
			if c.emit(ctx, events, entities.StreamEvent{
				Question: question,
				Answer:   NoRelevantInfoAnswer,
				Sources:  []entities.SourceSummary{},
				Done:     true,
			}) {
				c.commit(sessionID, question, NoRelevantInfoAnswer, []entities.SourceSummary{})
			}
			return
		}

		sources := summarizeSources(chunks)
		if !c.emit(ctx, events, entities.StreamEvent{Question: question, Sources: sources}) {
			return
		}

		prompt := c.composer.Compose(question, chunks, history)
		tokens, err := c.llm.GenerateStream(ctx, prompt)
		if err != nil {
			c.emit(ctx, events, entities.StreamEvent{Error: err.Error(), Done: true})
			return
		}

		var answer []byte
		for token := range tokens {
			if token.Error != nil {
				c.logger.Warn("generation failed mid-stream", "session_id", sessionID, "error", token.Error)
				c.emit(ctx, events, entities.StreamEvent{Error: token.Error.Error(), Done: true})
				return
			}
			if token.Content != "" {
				answer = append(answer, token.Content...)
				if !c.emit(ctx, events, entities.StreamEvent{AnswerChunk: token.Content}) {
					return
				}
			}
			if token.Done {
				break
			}
		}

		select {
		case <-ctx.Done():
			// Client went away; drop the partial answer.
			return
		default:
		}

		if c.emit(ctx, events, entities.StreamEvent{Done: true}) {
			c.commit(sessionID, question, string(answer), sources)
		}
	}()

	return sessionID, events, nil
}

// emit sends an event unless the consumer's context is gone. Reports whether
// the event was delivered.
func (c *SynthesisController) emit(ctx context.Context, events chan<- entities.StreamEvent, ev entities.StreamEvent) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *SynthesisController) commit(sessionID, question, answer string, sources []entities.SourceSummary) {
	c.ledger.Append(sessionID, entities.ConversationTurn{
		Question:  question,
		Answer:    answer,
		Sources:   sources,
		Timestamp: c.now(),
	})
}

func resolveSessionID(sessionID string) string {
	if sessionID == "" {
		return uuid.NewString()
	}
	return sessionID
}

// summarizeSources builds truncated previews in the same rank order as
// retrieved.
func summarizeSources(chunks []entities.RetrievedChunk) []entities.SourceSummary {
	sources := make([]entities.SourceSummary, len(chunks))
	for i, c := range chunks {
		sources[i] = entities.SourceSummary{
			ContentPreview: truncateRunes(c.Chunk.Content, sourcePreviewLen) + "...",
			Metadata:       c.Chunk.Metadata,
			Score:          c.Score,
		}
	}
	return sources
}

// truncateRunes caps s at max bytes without splitting a multi-byte rune.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
