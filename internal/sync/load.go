package sync

import (
	"context"
	"fmt"

	"parley/internal/gateway"
	"parley/internal/logging"
	"parley/internal/types"
)

// LoadSessions performs the bulk list load for the current view. A repeat
// load for an unchanged filter and empty search after a prior success is a
// no-op: this is a deduplication guard, not a cache with expiry.
func (s *Synchronizer) LoadSessions(ctx context.Context) error {
	view := s.store.View()
	return s.load(ctx, view.Filter, view.Search, false)
}

// Retry re-runs the load for the current view, bypassing the dedupe guard.
func (s *Synchronizer) Retry(ctx context.Context) error {
	view := s.store.View()
	return s.load(ctx, view.Filter, view.Search, true)
}

func (s *Synchronizer) load(ctx context.Context, filter types.Filter, search string, force bool) error {
	// A non-empty search always goes to the gateway; the guard only covers
	// plain filter views.
	if !force && search == "" && s.store.IsLoaded(filter, search) {
		return nil
	}

	gen := s.nextLoadGen()
	s.store.SetLoading(true)

	opts := gateway.ListOptions{
		Filter:  filter.Canonical(),
		Search:  search,
		Page:    1,
		PerPage: s.pageSize,
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		result, err := s.gw.ListSessions(ctx, opts)
		if err == nil {
			s.applyLoad(gen, filter, search, result)
			return nil
		}
		lastErr = err
		if !gateway.IsRetryable(err) || attempt >= s.retries {
			break
		}
		delay := s.retryUnit << attempt
		s.log.Warn("session load failed, retrying",
			logging.F("attempt", attempt),
			logging.F("delay", delay),
			logging.F("err", err))
		if sleepErr := s.sleep(ctx, delay); sleepErr != nil {
			lastErr = sleepErr
			break
		}
	}

	if s.currentLoadGen() == gen {
		s.store.SetConnection(types.ConnectionError)
		s.store.SetLoading(false)
		s.store.SetFilterLoading(false)
	}
	s.log.Error("session load failed", logging.F("filter", string(filter)), logging.F("err", lastErr))
	return fmt.Errorf("load sessions: %w", lastErr)
}

// applyLoad commits a completed load unless it has gone stale: a newer load
// started, or the view moved on while this one was in flight. Stale results
// are discarded rather than allowed to overwrite newer state.
func (s *Synchronizer) applyLoad(gen uint64, filter types.Filter, search string, result gateway.ListResult) {
	if s.currentLoadGen() != gen {
		s.log.Debug("discarding stale session load", logging.F("filter", string(filter)))
		return
	}
	if view := s.store.View(); view.Filter != filter || view.Search != search {
		s.log.Debug("discarding session load for superseded view", logging.F("filter", string(filter)))
		return
	}
	s.store.ReplaceSessions(sortSessions(result.Sessions, filter))
	s.store.SetHasMore(result.HasMore)
	s.store.SetConnection(types.ConnectionConnected)
	s.store.SetLoading(false)
	s.store.SetFilterLoading(false)
	s.store.MarkLoaded(filter, search)
}

func (s *Synchronizer) nextLoadGen() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadGen++
	return s.loadGen
}

func (s *Synchronizer) currentLoadGen() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadGen
}
