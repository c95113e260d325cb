package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"parley/internal/gateway"
	"parley/internal/types"
)

var errNetwork = errors.New("connection refused")

func TestLoadSessionsRetriesWithDoublingDelay(t *testing.T) {
	gw := &fakeGateway{}
	calls := 0
	gw.listFn = func(context.Context, gateway.ListOptions) (gateway.ListResult, error) {
		calls++
		if calls < 3 {
			return gateway.ListResult{}, errNetwork
		}
		return gateway.ListResult{Sessions: []types.Session{{ID: "d1"}}}, nil
	}

	s, store := newTestSync(t, gw)
	var delays []time.Duration
	s.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	if err := s.LoadSessions(context.Background()); err != nil {
		t.Fatalf("LoadSessions: %v", err)
	}
	if calls != 3 {
		t.Fatalf("gateway called %d times, want 3", calls)
	}
	if len(delays) != 2 || delays[0] != time.Second || delays[1] != 2*time.Second {
		t.Fatalf("retry delays = %v, want [1s 2s]", delays)
	}
	if store.Connection() != types.ConnectionConnected {
		t.Fatalf("connection = %v, want connected", store.Connection())
	}
	if view := store.View(); view.Loading {
		t.Fatal("loading flag still raised after success")
	}
	if len(store.Sessions()) != 1 {
		t.Fatalf("sessions = %+v, want one", store.Sessions())
	}
}

func TestLoadSessionsGivesUpAfterRetryBudget(t *testing.T) {
	gw := &fakeGateway{}
	gw.listFn = func(context.Context, gateway.ListOptions) (gateway.ListResult, error) {
		return gateway.ListResult{}, errNetwork
	}

	s, store := newTestSync(t, gw)
	if err := s.LoadSessions(context.Background()); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if n := gw.listCount(); n != 3 {
		t.Fatalf("gateway called %d times, want 3 (initial + 2 retries)", n)
	}
	if store.Connection() != types.ConnectionError {
		t.Fatalf("connection = %v, want error", store.Connection())
	}
	if view := store.View(); view.Loading || view.FilterLoading {
		t.Fatal("loading flags still raised after failure")
	}
}

func TestLoadSessionsDoesNotRetryClientErrors(t *testing.T) {
	gw := &fakeGateway{}
	gw.listFn = func(context.Context, gateway.ListOptions) (gateway.ListResult, error) {
		return gateway.ListResult{}, &gateway.APIError{StatusCode: 400, Message: "bad filter"}
	}

	s, _ := newTestSync(t, gw)
	if err := s.LoadSessions(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if n := gw.listCount(); n != 1 {
		t.Fatalf("gateway called %d times, want 1", n)
	}
}

func TestLoadSessionsSkipsRepeatLoadForSameView(t *testing.T) {
	gw := &fakeGateway{listFn: listOf(types.Session{ID: "d1"})}
	s, _ := newTestSync(t, gw)
	ctx := context.Background()

	if err := s.LoadSessions(ctx); err != nil {
		t.Fatalf("first load: %v", err)
	}
	if err := s.LoadSessions(ctx); err != nil {
		t.Fatalf("repeat load: %v", err)
	}
	if n := gw.listCount(); n != 1 {
		t.Fatalf("gateway called %d times, want 1 (repeat load deduplicated)", n)
	}

	if err := s.Retry(ctx); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if n := gw.listCount(); n != 2 {
		t.Fatalf("gateway called %d times after retry, want 2", n)
	}
}

func TestLoadSessionsAlwaysQueriesForActiveSearch(t *testing.T) {
	gw := &fakeGateway{listFn: listOf(types.Session{ID: "d1"})}
	s, store := newTestSync(t, gw)
	ctx := context.Background()

	store.SetSearch("kernel")
	if err := s.LoadSessions(ctx); err != nil {
		t.Fatalf("search load: %v", err)
	}
	if err := s.LoadSessions(ctx); err != nil {
		t.Fatalf("repeat search load: %v", err)
	}
	if n := gw.listCount(); n != 2 {
		t.Fatalf("gateway called %d times, want 2 (searches are never deduplicated)", n)
	}
	if gw.listCalls[0].Search != "kernel" {
		t.Fatalf("search not forwarded: %+v", gw.listCalls[0])
	}
}

func TestLoadSessionsDiscardsResultWhenViewMovedOn(t *testing.T) {
	gw := &fakeGateway{}
	s, store := newTestSync(t, gw)

	// The view's search text changes while the list call is in flight; the
	// completed load must not overwrite the newer view.
	gw.listFn = func(context.Context, gateway.ListOptions) (gateway.ListResult, error) {
		store.SetSearch("moved")
		return gateway.ListResult{Sessions: []types.Session{{ID: "stale"}}}, nil
	}

	if err := s.load(context.Background(), types.FilterAll, "", true); err != nil {
		t.Fatalf("load: %v", err)
	}
	if sessions := store.Sessions(); len(sessions) != 0 {
		t.Fatalf("stale result was applied: %+v", sessions)
	}
	if store.IsLoaded(types.FilterAll, "") {
		t.Fatal("stale load must not mark the view loaded")
	}
}

func TestLoadSessionsDiscardsResultSupersededByNewerLoad(t *testing.T) {
	gw := &fakeGateway{}
	s, store := newTestSync(t, gw)

	first := true
	gw.listFn = func(context.Context, gateway.ListOptions) (gateway.ListResult, error) {
		if first {
			first = false
			// A second load starts and finishes while the first is in flight.
			if err := s.Retry(context.Background()); err != nil {
				t.Fatalf("nested retry: %v", err)
			}
			return gateway.ListResult{Sessions: []types.Session{{ID: "old"}}}, nil
		}
		return gateway.ListResult{Sessions: []types.Session{{ID: "new"}}}, nil
	}

	if err := s.load(context.Background(), types.FilterAll, "", true); err != nil {
		t.Fatalf("load: %v", err)
	}
	sessions := store.Sessions()
	if len(sessions) != 1 || sessions[0].ID != "new" {
		t.Fatalf("sessions = %+v, want the newer load's result only", sessions)
	}
}
