package usecases

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/localdocs/docchat/internal/domain/entities"
)

func turn(q, a string, at time.Time) entities.ConversationTurn {
	return entities.ConversationTurn{Question: q, Answer: a, Timestamp: at}
}

func TestLedger_RoundTrip(t *testing.T) {
	l := NewConversationLedger()
	now := time.Now()

	l.Append("s1", turn("q1", "a1", now))
	l.Append("s1", turn("q2", "a2", now.Add(time.Second)))

	history := l.History("s1")
	if len(history) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(history))
	}
	if history[0].Question != "q1" || history[1].Question != "q2" {
		t.Error("turns not in append order")
	}
}

func TestLedger_UnknownSessionHistoryIsEmpty(t *testing.T) {
	l := NewConversationLedger()
	if got := l.History("missing"); len(got) != 0 {
		t.Errorf("expected empty history, got %d turns", len(got))
	}
	if l.Exists("missing") {
		t.Error("unknown session reported as existing")
	}
}

func TestLedger_RecentWindow(t *testing.T) {
	l := NewConversationLedger()
	now := time.Now()
	for i := 1; i <= 5; i++ {
		l.Append("s1", turn(fmt.Sprintf("q%d", i), "a", now))
	}

	recent := l.Recent("s1", 3)
	if len(recent) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(recent))
	}
	// Oldest-first within the window.
	want := []string{"q3", "q4", "q5"}
	for i, turn := range recent {
		if turn.Question != want[i] {
			t.Errorf("position %d: got %q, want %q", i, turn.Question, want[i])
		}
	}
}

func TestLedger_ClearUnknownSession(t *testing.T) {
	l := NewConversationLedger()
	err := l.Clear("missing")
	if !errors.Is(err, entities.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestLedger_ClearRemovesSession(t *testing.T) {
	l := NewConversationLedger()
	l.Append("s1", turn("q", "a", time.Now()))

	if err := l.Clear("s1"); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if l.Exists("s1") {
		t.Error("session survived clear")
	}
	// Second clear fails: the session is gone.
	if err := l.Clear("s1"); !errors.Is(err, entities.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound on re-clear, got %v", err)
	}
}

func TestLedger_ClearAllIdempotent(t *testing.T) {
	l := NewConversationLedger()
	l.Append("s1", turn("q", "a", time.Now()))
	l.Append("s2", turn("q", "a", time.Now()))

	if n := l.ClearAll(); n != 2 {
		t.Errorf("first clear-all removed %d, want 2", n)
	}
	if n := l.ClearAll(); n != 0 {
		t.Errorf("second clear-all removed %d, want 0", n)
	}
}

func TestLedger_ListSessions(t *testing.T) {
	l := NewConversationLedger()
	base := time.Now()

	l.Append("older", turn("first question in older session", "a", base))
	l.Append("newer", turn(strings.Repeat("long question ", 10), "a", base.Add(time.Minute)))

	sessions := l.ListSessions()
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].SessionID != "newer" {
		t.Errorf("expected most recently updated first, got %q", sessions[0].SessionID)
	}
	if len(sessions[0].FirstQuestionPreview) > firstQuestionPreviewLen+3 {
		t.Errorf("preview not truncated: %d chars", len(sessions[0].FirstQuestionPreview))
	}
	if sessions[1].TurnCount != 1 {
		t.Errorf("turn count = %d, want 1", sessions[1].TurnCount)
	}
}

func TestLedger_PreviewKeepsRunesWhole(t *testing.T) {
	l := NewConversationLedger()
	// 3-byte runes: the 50-byte preview cap falls mid-rune.
	l.Append("s1", turn(strings.Repeat("世", 30), "a", time.Now()))

	sessions := l.ListSessions()
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	preview := sessions[0].FirstQuestionPreview
	if !utf8.ValidString(preview) {
		t.Errorf("preview is not valid UTF-8: %q", preview)
	}
	if len(preview) != 48+3 {
		t.Errorf("preview length %d, want 51", len(preview))
	}
}

func TestLedger_ConcurrentAppendsSameSession(t *testing.T) {
	l := NewConversationLedger()
	const n = 50

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l.Append("shared", turn(fmt.Sprintf("q%d", i), "a", time.Now()))
		}(i)
	}
	wg.Wait()

	if got := len(l.History("shared")); got != n {
		t.Errorf("lost appends: got %d turns, want %d", got, n)
	}
}

func TestLedger_ConcurrentDistinctSessions(t *testing.T) {
	l := NewConversationLedger()
	const n = 20

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("session-%d", i)
			l.Append(id, turn("q", "a", time.Now()))
			if len(l.History(id)) != 1 {
				t.Errorf("session %s history wrong", id)
			}
		}(i)
	}
	wg.Wait()

	if got := len(l.ListSessions()); got != n {
		t.Errorf("expected %d sessions, got %d", n, got)
	}
}
