package sync

import (
	"context"
	"sync"
	"testing"
	"time"

	"parley/internal/gateway"
	"parley/internal/state"
	"parley/internal/types"
)

// fakeGateway implements Gateway with per-method hooks and records the calls
// a test cares about. Invoking a method whose hook is unset fails loudly.
type fakeGateway struct {
	mu sync.Mutex

	listFn     func(ctx context.Context, opts gateway.ListOptions) (gateway.ListResult, error)
	createFn   func(ctx context.Context, title, initialMessage string) (gateway.CreateResult, error)
	getFn      func(ctx context.Context, id string) (types.Session, []types.Message, error)
	updateFn   func(ctx context.Context, id string, upd types.SessionUpdate) (types.Session, error)
	deleteFn   func(ctx context.Context, id string) error
	sendFn     func(ctx context.Context, sessionID, content string) (gateway.SendResult, error)
	systemFn   func(ctx context.Context, sessionID, content string) (types.Message, error)
	settingsFn func(ctx context.Context, sessionID string) (types.Settings, error)
	updSetFn   func(ctx context.Context, sessionID string, upd types.SettingsUpdate) (types.Settings, error)

	listCalls   []gateway.ListOptions
	deleteCalls []string
	sendCalls   []string
}

func (f *fakeGateway) ListSessions(ctx context.Context, opts gateway.ListOptions) (gateway.ListResult, error) {
	f.mu.Lock()
	f.listCalls = append(f.listCalls, opts)
	f.mu.Unlock()
	if f.listFn == nil {
		panic("unexpected ListSessions call")
	}
	return f.listFn(ctx, opts)
}

func (f *fakeGateway) CreateSession(ctx context.Context, title, initialMessage string) (gateway.CreateResult, error) {
	if f.createFn == nil {
		panic("unexpected CreateSession call")
	}
	return f.createFn(ctx, title, initialMessage)
}

func (f *fakeGateway) GetSession(ctx context.Context, id string) (types.Session, []types.Message, error) {
	if f.getFn == nil {
		panic("unexpected GetSession call")
	}
	return f.getFn(ctx, id)
}

func (f *fakeGateway) UpdateSession(ctx context.Context, id string, upd types.SessionUpdate) (types.Session, error) {
	if f.updateFn == nil {
		panic("unexpected UpdateSession call")
	}
	return f.updateFn(ctx, id, upd)
}

func (f *fakeGateway) DeleteSession(ctx context.Context, id string) error {
	f.mu.Lock()
	f.deleteCalls = append(f.deleteCalls, id)
	f.mu.Unlock()
	if f.deleteFn == nil {
		return nil
	}
	return f.deleteFn(ctx, id)
}

func (f *fakeGateway) SendMessage(ctx context.Context, sessionID, content string) (gateway.SendResult, error) {
	f.mu.Lock()
	f.sendCalls = append(f.sendCalls, sessionID)
	f.mu.Unlock()
	if f.sendFn == nil {
		panic("unexpected SendMessage call")
	}
	return f.sendFn(ctx, sessionID, content)
}

func (f *fakeGateway) AddSystemMessage(ctx context.Context, sessionID, content string) (types.Message, error) {
	if f.systemFn == nil {
		panic("unexpected AddSystemMessage call")
	}
	return f.systemFn(ctx, sessionID, content)
}

func (f *fakeGateway) GetSettings(ctx context.Context, sessionID string) (types.Settings, error) {
	if f.settingsFn == nil {
		panic("unexpected GetSettings call")
	}
	return f.settingsFn(ctx, sessionID)
}

func (f *fakeGateway) UpdateSettings(ctx context.Context, sessionID string, upd types.SettingsUpdate) (types.Settings, error) {
	if f.updSetFn == nil {
		panic("unexpected UpdateSettings call")
	}
	return f.updSetFn(ctx, sessionID, upd)
}

func (f *fakeGateway) listCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listCalls)
}

func (f *fakeGateway) deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleteCalls...)
}

// newTestSync builds a synchronizer with immediate debounce and settle delays
// and a sleep that returns without waiting, so retry loops run instantly.
func newTestSync(t *testing.T, gw *fakeGateway) (*Synchronizer, *state.Store) {
	t.Helper()
	store := state.NewStore()
	s, err := New(Options{
		Gateway:        gw,
		Store:          store,
		SearchDebounce: -1,
		SettleDelay:    -1,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	t.Cleanup(s.Close)
	return s, store
}

func listOf(sessions ...types.Session) func(context.Context, gateway.ListOptions) (gateway.ListResult, error) {
	return func(context.Context, gateway.ListOptions) (gateway.ListResult, error) {
		return gateway.ListResult{Sessions: sessions}, nil
	}
}
