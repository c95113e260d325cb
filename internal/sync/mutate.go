package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"parley/internal/types"
)

const maxDerivedTitleLen = 50

// SendOutcome reports what a send or create appended. TempSessionID and
// PendingID carry the identifiers a caller needs to drive a retry after a
// failure; they refer to entities still present (error-flagged) in the store.
type SendOutcome struct {
	SessionID     string
	Messages      []types.Message
	TempSessionID string
	PendingID     string
}

// CreateSession inserts an optimistic placeholder session (plus a tentative
// first message when initialMessage is non-empty), then creates it remotely.
// On success the placeholder is replaced by the durable session in a single
// transition and the temporary id vanishes from the graph. On failure the
// placeholder stays with its messages flagged errored, and the error returns
// to the caller.
func (s *Synchronizer) CreateSession(ctx context.Context, initialMessage string) (types.Session, error) {
	prev := s.store.ActiveID()

	now := s.now()
	tempID := tempSessionID()
	placeholder := types.Session{
		ID:        tempID,
		Title:     deriveTitle(initialMessage),
		CreatedAt: now,
		UpdatedAt: now,
		Temp:      true,
	}
	var tentative *types.Message
	if strings.TrimSpace(initialMessage) != "" {
		tentative = &types.Message{
			ID:        tempMessageID(),
			SessionID: tempID,
			Role:      types.RoleUser,
			Content:   initialMessage,
			CreatedAt: now,
			Pending:   true,
			Temp:      true,
		}
	}
	s.store.InsertPlaceholder(placeholder, tentative)
	s.reapIfEmpty(prev)

	result, err := s.gw.CreateSession(ctx, "", initialMessage)
	if err != nil {
		s.store.FailSessionMessages(tempID)
		return types.Session{}, fmt.Errorf("create session: %w", err)
	}

	var messages []types.Message
	if tentative != nil {
		if result.UserMessage == nil || result.AssistantMessage == nil {
			s.store.FailSessionMessages(tempID)
			return types.Session{}, errors.New("create session: gateway omitted the initial message pair")
		}
		messages = []types.Message{*result.UserMessage, *result.AssistantMessage}
	}
	s.store.ResolveCreate(tempID, result.Session, messages)
	return result.Session, nil
}

// SendMessage inserts a tentative message so the UI reflects the send before
// the round trip, then reconciles with the durable user/assistant pair. With
// no session id, a temporary session is minted and the gateway creates one
// implicitly. System messages skip the optimistic path entirely: they are
// not latency-sensitive and must not appear before they are durable.
func (s *Synchronizer) SendMessage(ctx context.Context, content, sessionID string, role types.Role) (SendOutcome, error) {
	if strings.TrimSpace(content) == "" {
		return SendOutcome{}, ErrEmptyContent
	}
	if role == types.RoleSystem {
		return s.addSystemMessage(ctx, content, sessionID)
	}
	if role != types.RoleUser && role != "" {
		return SendOutcome{}, fmt.Errorf("unsupported send role %q", role)
	}

	now := s.now()
	tempSession := ""
	targetID := sessionID

	if sessionID == "" {
		tempSession = tempSessionID()
		targetID = tempSession
	} else {
		session, ok := s.store.Session(sessionID)
		if !ok {
			return SendOutcome{}, ErrSessionNotFound
		}
		if session.Temp {
			tempSession = sessionID
		}
	}

	tentative := types.Message{
		ID:        tempMessageID(),
		SessionID: targetID,
		Role:      types.RoleUser,
		Content:   content,
		CreatedAt: now,
		Pending:   true,
		Temp:      true,
	}

	if sessionID == "" {
		prev := s.store.ActiveID()
		placeholder := types.Session{
			ID:        tempSession,
			Title:     deriveTitle(content),
			CreatedAt: now,
			UpdatedAt: now,
			Temp:      true,
		}
		s.store.InsertPlaceholder(placeholder, &tentative)
		s.reapIfEmpty(prev)
	} else if !s.store.AppendMessageIfNoPending(tentative) {
		return SendOutcome{}, ErrSendInFlight
	}
	s.store.SetLoading(true)

	gatewayID := sessionID
	if tempSession != "" {
		// The placeholder id means nothing remotely; the session-less send
		// creates the durable session.
		gatewayID = ""
	}

	result, err := s.gw.SendMessage(ctx, gatewayID, content)
	if err != nil {
		s.store.MarkMessageFailed(targetID, tentative.ID)
		s.store.SetLoading(false)
		return SendOutcome{
			SessionID:     targetID,
			TempSessionID: tempSession,
			PendingID:     tentative.ID,
		}, fmt.Errorf("send message: %w", err)
	}

	s.store.CompleteSend(tempSession, result.SessionID, tentative.ID,
		result.UserMessage, result.AssistantMessage, result.MessageCount)
	s.store.SetLoading(false)

	return SendOutcome{
		SessionID: result.SessionID,
		Messages:  []types.Message{result.UserMessage, result.AssistantMessage},
	}, nil
}

func (s *Synchronizer) addSystemMessage(ctx context.Context, content, sessionID string) (SendOutcome, error) {
	if sessionID == "" {
		return SendOutcome{}, ErrSessionRequired
	}
	if session, ok := s.store.Session(sessionID); ok && session.Temp {
		return SendOutcome{}, fmt.Errorf("session %s has no durable identity yet", sessionID)
	}
	msg, err := s.gw.AddSystemMessage(ctx, sessionID, content)
	if err != nil {
		return SendOutcome{}, fmt.Errorf("add system message: %w", err)
	}
	s.store.AppendMessage(msg)
	return SendOutcome{SessionID: sessionID, Messages: []types.Message{msg}}, nil
}

// UpdateSession applies a remote update and mirrors the canonical result
// locally. When the pinned/archived status actually changed, the automatic
// filter transition is recorded as a pending switch and a settle-delayed
// reload is scheduled.
func (s *Synchronizer) UpdateSession(ctx context.Context, id string, upd types.SessionUpdate) (types.Session, error) {
	prev, ok := s.store.Session(id)
	if !ok {
		return types.Session{}, ErrSessionNotFound
	}
	if prev.Temp {
		return types.Session{}, fmt.Errorf("session %s has no durable identity yet", id)
	}
	if upd.Empty() {
		return prev, nil
	}

	updated, err := s.gw.UpdateSession(ctx, id, upd)
	if err != nil {
		return types.Session{}, fmt.Errorf("update session: %w", err)
	}
	s.store.UpsertSession(updated)

	if target, ok := filterTarget(prev, updated, s.store.View().Filter); ok {
		s.store.SetPendingFilter(target)
	}
	if prev.Pinned != updated.Pinned || prev.Archived != updated.Archived {
		s.scheduleSettleReload()
	}
	return updated, nil
}

// DeleteSession deletes remotely, then removes the session and its messages
// locally; the active selection is cleared if it pointed there.
func (s *Synchronizer) DeleteSession(ctx context.Context, id string) error {
	if id == "" {
		return ErrSessionRequired
	}
	if session, ok := s.store.Session(id); ok && session.Temp {
		s.store.RemoveSession(id)
		return nil
	}
	if err := s.gw.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.store.RemoveSession(id)
	return nil
}

// deriveTitle mirrors the service's title generation so the placeholder and
// the durable session usually agree: first sentence, truncated, with a
// fallback for empty input.
func deriveTitle(message string) string {
	title := message
	if i := strings.IndexByte(title, '.'); i >= 0 {
		title = title[:i]
	}
	title = strings.TrimSpace(title)
	if utf8.RuneCountInString(title) > maxDerivedTitleLen {
		runes := []rune(title)
		title = string(runes[:maxDerivedTitleLen-3]) + "..."
	}
	if title == "" {
		return "New Chat"
	}
	return title
}
