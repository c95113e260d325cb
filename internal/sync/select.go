package sync

import (
	"context"
	"fmt"

	"parley/internal/types"
)

// SelectSession makes id the active selection, reaps the abandoned previous
// session if it stayed empty, and loads the target's messages. A completion
// that arrives after the selection moved on again is discarded. Passing an
// empty id clears the selection.
func (s *Synchronizer) SelectSession(ctx context.Context, id string) ([]types.Message, error) {
	prev := s.store.SetActive(id)
	if prev != "" && prev != id {
		s.reapIfEmpty(prev)
	}
	if id == "" {
		return nil, nil
	}

	if session, ok := s.store.Session(id); ok && session.Temp {
		// Nothing durable to fetch yet.
		return s.store.Messages(id), nil
	}

	session, messages, err := s.gw.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	if s.store.ActiveID() != id {
		// Selection moved on while the fetch was in flight.
		return messages, nil
	}
	s.store.UpsertSession(session)
	s.store.SetMessages(id, messages)
	return messages, nil
}
