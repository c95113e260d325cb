// Package sync keeps the local state graph consistent with the remote
// persistence service. Mutations apply optimistically, reconcile on the
// gateway's answer, and leave errored tentatives behind instead of dropping
// user content.
package sync

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"parley/internal/gateway"
	"parley/internal/logging"
	"parley/internal/state"
	"parley/internal/types"
)

var (
	ErrSendInFlight    = errors.New("a send is already pending for this session")
	ErrEmptyContent    = errors.New("message content is required")
	ErrSessionRequired = errors.New("a session id is required")
	ErrSessionNotFound = errors.New("session not found")
)

// Gateway is the remote persistence contract the synchronizer consumes.
// *gateway.Client satisfies it.
type Gateway interface {
	ListSessions(ctx context.Context, opts gateway.ListOptions) (gateway.ListResult, error)
	CreateSession(ctx context.Context, title, initialMessage string) (gateway.CreateResult, error)
	GetSession(ctx context.Context, id string) (types.Session, []types.Message, error)
	UpdateSession(ctx context.Context, id string, upd types.SessionUpdate) (types.Session, error)
	DeleteSession(ctx context.Context, id string) error
	SendMessage(ctx context.Context, sessionID, content string) (gateway.SendResult, error)
	AddSystemMessage(ctx context.Context, sessionID, content string) (types.Message, error)
	GetSettings(ctx context.Context, sessionID string) (types.Settings, error)
	UpdateSettings(ctx context.Context, sessionID string, upd types.SettingsUpdate) (types.Settings, error)
}

type Options struct {
	Gateway Gateway
	Store   *state.Store
	Logger  logging.Logger

	// LoadRetries is the retry budget for the bulk list load. Negative
	// disables retries; zero means the default of two.
	LoadRetries    int
	RetryUnit      time.Duration
	SearchDebounce time.Duration
	SettleDelay    time.Duration
	PageSize       int
}

type Synchronizer struct {
	gw    Gateway
	store *state.Store
	log   logging.Logger

	retries        int
	retryUnit      time.Duration
	searchDebounce time.Duration
	settleDelay    time.Duration
	pageSize       int

	tasks *scheduler
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	loadGen uint64

	reaps sync.WaitGroup
}

func New(opts Options) (*Synchronizer, error) {
	if opts.Gateway == nil {
		return nil, errors.New("gateway is required")
	}
	if opts.Store == nil {
		return nil, errors.New("store is required")
	}
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	retries := opts.LoadRetries
	if retries == 0 {
		retries = 2
	} else if retries < 0 {
		retries = 0
	}
	s := &Synchronizer{
		gw:             opts.Gateway,
		store:          opts.Store,
		log:            log,
		retries:        retries,
		retryUnit:      opts.RetryUnit,
		searchDebounce: opts.SearchDebounce,
		settleDelay:    opts.SettleDelay,
		pageSize:       opts.PageSize,
		tasks:          newScheduler(),
		now:            func() time.Time { return time.Now().UTC() },
		sleep:          sleepContext,
	}
	if s.retryUnit <= 0 {
		s.retryUnit = time.Second
	}
	// Zero means unset for the delays; negative requests an immediate fire.
	if s.searchDebounce == 0 {
		s.searchDebounce = 300 * time.Millisecond
	} else if s.searchDebounce < 0 {
		s.searchDebounce = 0
	}
	if s.settleDelay == 0 {
		s.settleDelay = 500 * time.Millisecond
	} else if s.settleDelay < 0 {
		s.settleDelay = 0
	}
	if s.pageSize <= 0 {
		s.pageSize = 50
	}
	return s, nil
}

// Close cancels pending scheduled reloads and waits for in-flight best-effort
// deletes to finish.
func (s *Synchronizer) Close() {
	s.tasks.Stop()
	s.reaps.Wait()
}

func (s *Synchronizer) GetSettings(ctx context.Context, sessionID string) (types.Settings, error) {
	if strings.TrimSpace(sessionID) == "" {
		return types.Settings{}, ErrSessionRequired
	}
	return s.gw.GetSettings(ctx, sessionID)
}

func (s *Synchronizer) UpdateSettings(ctx context.Context, sessionID string, upd types.SettingsUpdate) (types.Settings, error) {
	if strings.TrimSpace(sessionID) == "" {
		return types.Settings{}, ErrSessionRequired
	}
	return s.gw.UpdateSettings(ctx, sessionID, upd)
}

func tempSessionID() string {
	return "tmp-" + uuid.NewString()
}

func tempMessageID() string {
	return "tmp-msg-" + uuid.NewString()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
