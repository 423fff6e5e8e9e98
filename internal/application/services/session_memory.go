package services

import (
	"context"
	"regexp"

	"github.com/rs/zerolog/log"
	"github.com/sooahkim/childcenter-chat/internal/domain/entities"
	"github.com/sooahkim/childcenter-chat/internal/domain/providers"
)

var (
	// the lazy name group stops at a particle, a non-name rune, or end of
	// input, so "수아야" yields 수아 and "김철수입니다" yields 김철수
	nameSetRe = regexp.MustCompile(`(내\s*이름은|나는)\s*([가-힣A-Za-z]{2,10}?)(이야|입니다|야|[^가-힣A-Za-z]|$)`)
	nameAskRe = regexp.MustCompile(`(내\s*이름(이|은)\s*뭐(야|지)|내\s*이름\s*알아\??)`)
)

// SessionMemory wraps the session store with the name detection rules. A nil
// store degrades to a memoryless session: nothing is remembered and recall
// always misses.
type SessionMemory struct {
	store providers.SessionStore
}

// NewSessionMemory creates a new session memory service
func NewSessionMemory(store providers.SessionStore) *SessionMemory {
	return &SessionMemory{store: store}
}

// DetectNameSet returns the name a message introduces, or "" when it has none
func DetectNameSet(msg string) string {
	m := nameSetRe.FindStringSubmatch(msg)
	if m == nil {
		return ""
	}
	return m[2]
}

// DetectNameAsk reports whether the message asks for the remembered name
func DetectNameAsk(msg string) bool {
	return nameAskRe.MatchString(msg)
}

// RememberName stores the name for the session, overwriting any earlier one
func (m *SessionMemory) RememberName(ctx context.Context, sessionID, name string) {
	if m.store == nil {
		return
	}
	if err := m.store.SetName(ctx, sessionID, name); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to remember session name")
	}
}

// RecallName returns the remembered name. Store failures and absence both
// read as a miss; a broken session store never breaks the chat turn.
func (m *SessionMemory) RecallName(ctx context.Context, sessionID string) (string, bool) {
	if m.store == nil {
		return "", false
	}
	name, err := m.store.GetName(ctx, sessionID)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to recall session name")
		return "", false
	}
	if name == "" {
		return "", false
	}
	return name, true
}

// AppendTurn records one conversation turn, best effort
func (m *SessionMemory) AppendTurn(ctx context.Context, sessionID, role, text string) {
	if m.store == nil {
		return
	}
	if err := m.store.AppendTurn(ctx, sessionID, entities.Turn{Role: role, Text: text}); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to append session turn")
	}
}

// History returns the retained turns, oldest first
func (m *SessionMemory) History(ctx context.Context, sessionID string) []entities.Turn {
	if m.store == nil {
		return nil
	}
	turns, err := m.store.History(ctx, sessionID)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to read session history")
		return nil
	}
	return turns
}
