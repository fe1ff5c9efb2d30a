package usecases

import (
	"sort"
	"sync"

	"github.com/localdocs/docchat/internal/domain/entities"
)

// firstQuestionPreviewLen bounds the preview in session summaries.
const firstQuestionPreviewLen = 50

// session owns one conversation's turns. Its mutex serializes appends so two
// concurrent appends to the same session never interleave or lose an entry,
// while different sessions do not block each other.
type session struct {
	mu    sync.Mutex
	turns []entities.ConversationTurn
}

// ConversationLedger is the process-wide map of per-session conversation
// history. Sessions are created lazily on first append and live until
// explicitly cleared; there is no size cap beyond process memory, a known
// limitation of the in-memory design.
type ConversationLedger struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

// NewConversationLedger creates an empty ledger.
func NewConversationLedger() *ConversationLedger {
	return &ConversationLedger{sessions: make(map[string]*session)}
}

func (l *ConversationLedger) get(sessionID string) (*session, bool) {
	l.mu.RLock()
	s, ok := l.sessions[sessionID]
	l.mu.RUnlock()
	return s, ok
}

func (l *ConversationLedger) getOrCreate(sessionID string) *session {
	if s, ok := l.get(sessionID); ok {
		return s
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.sessions[sessionID]; ok {
		return s
	}
	s := &session{}
	l.sessions[sessionID] = s
	return s
}

// Append records a turn under sessionID, creating the session if absent.
func (l *ConversationLedger) Append(sessionID string, turn entities.ConversationTurn) {
	s := l.getOrCreate(sessionID)
	s.mu.Lock()
	s.turns = append(s.turns, turn)
	s.mu.Unlock()
}

// History returns all turns oldest-first. Unknown sessions yield an empty
// sequence, never an error: "no history yet" is the common case.
func (l *ConversationLedger) History(sessionID string) []entities.ConversationTurn {
	s, ok := l.get(sessionID)
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entities.ConversationTurn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Recent returns the last n turns oldest-first, the exact view handed to the
// prompt composer.
func (l *ConversationLedger) Recent(sessionID string, n int) []entities.ConversationTurn {
	turns := l.History(sessionID)
	if n <= 0 || len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}

// Exists reports whether the session has been created.
func (l *ConversationLedger) Exists(sessionID string) bool {
	_, ok := l.get(sessionID)
	return ok
}

// Clear removes a session entirely. Unknown ids fail with ErrSessionNotFound.
func (l *ConversationLedger) Clear(sessionID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.sessions[sessionID]; !ok {
		return entities.ErrSessionNotFound
	}
	delete(l.sessions, sessionID)
	return nil
}

// ClearAll removes every session and returns the count removed. Always
// succeeds, even on an empty ledger.
func (l *ConversationLedger) ClearAll() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.sessions)
	l.sessions = make(map[string]*session)
	return n
}

// ListSessions returns a summary per non-empty session, most recently
// updated first.
func (l *ConversationLedger) ListSessions() []entities.SessionSummary {
	l.mu.RLock()
	ids := make([]string, 0, len(l.sessions))
	held := make([]*session, 0, len(l.sessions))
	for id, s := range l.sessions {
		ids = append(ids, id)
		held = append(held, s)
	}
	l.mu.RUnlock()

	summaries := make([]entities.SessionSummary, 0, len(ids))
	for i, s := range held {
		s.mu.Lock()
		if len(s.turns) > 0 {
			first := s.turns[0].Question
			if len(first) > firstQuestionPreviewLen {
				first = truncateRunes(first, firstQuestionPreviewLen) + "..."
			}
			summaries = append(summaries, entities.SessionSummary{
				SessionID:            ids[i],
				TurnCount:            len(s.turns),
				LastTimestamp:        s.turns[len(s.turns)-1].Timestamp,
				FirstQuestionPreview: first,
			})
		}
		s.mu.Unlock()
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastTimestamp.After(summaries[j].LastTimestamp)
	})
	return summaries
}
