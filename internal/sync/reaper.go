package sync

import (
	"context"
	"time"

	"parley/internal/gateway"
	"parley/internal/logging"
)

const reapTimeout = 5 * time.Second

// reapIfEmpty removes a session that was abandoned before it accumulated any
// genuine content: no counted messages remotely and no real user message
// locally. Local removal is immediate; the remote delete is best-effort in
// the background and must never block the switch the user is performing.
func (s *Synchronizer) reapIfEmpty(id string) {
	if id == "" {
		return
	}
	session, ok := s.store.Session(id)
	if !ok {
		return
	}
	if session.MessageCount > 0 {
		return
	}
	for _, msg := range s.store.Messages(id) {
		if msg.Real() {
			return
		}
	}

	s.store.RemoveSession(id)
	s.log.Debug("reaped empty session", logging.F("session", id))

	if session.Temp {
		// Never reached the gateway; nothing to delete remotely.
		return
	}
	s.reaps.Add(1)
	go func() {
		defer s.reaps.Done()
		ctx, cancel := context.WithTimeout(context.Background(), reapTimeout)
		defer cancel()
		if err := s.gw.DeleteSession(ctx, id); err != nil && !gateway.IsNotFound(err) {
			s.log.Warn("best-effort delete of empty session failed",
				logging.F("session", id), logging.F("err", err))
		}
	}()
}
