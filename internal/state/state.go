// Package state holds the single mutable graph shared by every UI surface:
// sessions, their messages, the active selection, and the view/connection
// flags. Every public mutation runs under one lock acquisition so concurrent
// readers never observe a half-applied cross-reference (a message keyed by a
// session id that no longer exists, or both the temporary and durable key of
// a reconciled session).
package state

import (
	"sync"

	"parley/internal/types"
)

type Store struct {
	mu       sync.RWMutex
	sessions map[string]types.Session
	order    []string
	messages map[string][]types.Message
	activeID string

	connection   types.Connection
	view         types.View
	loaded       bool
	loadedFilter types.Filter
	loadedSearch string
}

func NewStore() *Store {
	return &Store{
		sessions:   make(map[string]types.Session),
		messages:   make(map[string][]types.Message),
		connection: types.ConnectionConnecting,
		view:       types.View{Filter: types.FilterAll},
	}
}

// ReplaceSessions installs a freshly loaded list. Temporary placeholders not
// present in the incoming list survive at the front so an in-flight create is
// not erased by a concurrent load. Message caches are kept; they belong to
// sessions, not to the current page.
func (s *Store) ReplaceSessions(sessions []types.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var temps []string
	for _, id := range s.order {
		if existing, ok := s.sessions[id]; ok && existing.Temp {
			temps = append(temps, id)
		}
	}

	next := make(map[string]types.Session, len(sessions)+len(temps))
	order := make([]string, 0, len(sessions)+len(temps))
	for _, id := range temps {
		next[id] = s.sessions[id]
		order = append(order, id)
	}
	for _, session := range sessions {
		if _, ok := next[session.ID]; ok {
			continue
		}
		next[session.ID] = session
		order = append(order, session.ID)
	}
	s.sessions = next
	s.order = order
}

func (s *Store) UpsertSession(session types.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; !ok {
		s.order = append([]string{session.ID}, s.order...)
	}
	s.sessions[session.ID] = session
}

func (s *Store) RemoveSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	delete(s.messages, id)
	s.order = removeID(s.order, id)
	if s.activeID == id {
		s.activeID = ""
	}
}

// InsertPlaceholder adds an optimistic session, its optional tentative first
// message, and makes it the active selection, all in one transition.
func (s *Store) InsertPlaceholder(session types.Session, msg *types.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; !ok {
		s.order = append([]string{session.ID}, s.order...)
	}
	s.sessions[session.ID] = session
	if msg != nil {
		s.messages[session.ID] = []types.Message{*msg}
	} else {
		s.messages[session.ID] = nil
	}
	s.activeID = session.ID
}

// ResolveCreate retires a temporary session id: the durable session and its
// messages replace the placeholder, the temporary key is deleted from every
// map, and the active selection follows the remap. No observer can see both
// identities.
func (s *Store) ResolveCreate(tempID string, durable types.Session, messages []types.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, tempID)
	delete(s.messages, tempID)
	replaced := false
	for i, id := range s.order {
		if id == tempID {
			s.order[i] = durable.ID
			replaced = true
			break
		}
	}
	if !replaced {
		s.order = append([]string{durable.ID}, s.order...)
	}
	s.sessions[durable.ID] = durable
	s.messages[durable.ID] = messages
	if s.activeID == tempID {
		s.activeID = durable.ID
	}
}

// CompleteSend reconciles a resolved send: the tentative message goes away,
// the durable user/assistant pair lands in creation order, and when the
// target session was itself temporary its identity is remapped in the same
// step. The placeholder's fields are kept where the response carries none.
func (s *Store) CompleteSend(tempSessionID, sessionID, pendingMsgID string, user, assistant types.Message, messageCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sessionID
	if tempSessionID != "" && tempSessionID != sessionID {
		session, ok := s.sessions[tempSessionID]
		if ok {
			session.ID = sessionID
			session.Temp = false
			delete(s.sessions, tempSessionID)
			s.sessions[sessionID] = session
		}
		msgs := s.messages[tempSessionID]
		delete(s.messages, tempSessionID)
		s.messages[sessionID] = msgs
		for i, id := range s.order {
			if id == tempSessionID {
				s.order[i] = sessionID
				break
			}
		}
		if s.activeID == tempSessionID {
			s.activeID = sessionID
		}
	}

	msgs := s.messages[key]
	if pendingMsgID != "" {
		msgs = removeMessage(msgs, pendingMsgID)
	}
	msgs = append(msgs, user, assistant)
	s.messages[key] = msgs

	if session, ok := s.sessions[key]; ok {
		session.MessageCount = messageCount
		if assistant.CreatedAt.After(session.UpdatedAt) {
			session.UpdatedAt = assistant.CreatedAt
		}
		last := assistant.CreatedAt
		session.LastMessageAt = &last
		s.sessions[key] = session
	}
}

func (s *Store) SetMessages(id string, messages []types.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[id] = messages
}

func (s *Store) AppendMessage(msg types.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[msg.SessionID] = append(s.messages[msg.SessionID], msg)
}

// AppendMessageIfNoPending appends msg unless the session already holds a
// pending user message, reporting whether the append happened. Check and
// append run under a single lock so concurrent sends cannot both pass.
func (s *Store) AppendMessageIfNoPending(msg types.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.messages[msg.SessionID] {
		if existing.Role == types.RoleUser && existing.Pending {
			return false
		}
	}
	s.messages[msg.SessionID] = append(s.messages[msg.SessionID], msg)
	return true
}

// MarkMessageFailed flags a tentative message as errored. The message is
// never removed; the user keeps what failed.
func (s *Store) MarkMessageFailed(sessionID, msgID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages[sessionID]
	for i := range msgs {
		if msgs[i].ID == msgID {
			msgs[i].Pending = false
			msgs[i].Failed = true
			return
		}
	}
}

// FailSessionMessages flags every pending message of a session as errored,
// used when the create call that owned them fails.
func (s *Store) FailSessionMessages(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages[sessionID]
	for i := range msgs {
		if msgs[i].Pending {
			msgs[i].Pending = false
			msgs[i].Failed = true
		}
	}
}

// SetActive changes the selection and returns the previously active id.
func (s *Store) SetActive(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.activeID
	s.activeID = id
	return prev
}

func (s *Store) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

func (s *Store) Session(id string) (types.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

func (s *Store) Sessions() []types.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Session, 0, len(s.order))
	for _, id := range s.order {
		if session, ok := s.sessions[id]; ok {
			out = append(out, session)
		}
	}
	return out
}

func (s *Store) Messages(id string) []types.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.messages[id]
	out := make([]types.Message, len(msgs))
	copy(out, msgs)
	return out
}

// ActiveMessages is a derived accessor: the active session's messages, or nil
// when nothing is selected.
func (s *Store) ActiveMessages() []types.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.activeID == "" {
		return nil
	}
	msgs := s.messages[s.activeID]
	out := make([]types.Message, len(msgs))
	copy(out, msgs)
	return out
}

func (s *Store) HasPendingUserMessage(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, msg := range s.messages[id] {
		if msg.Role == types.RoleUser && msg.Pending {
			return true
		}
	}
	return false
}

func (s *Store) Connection() types.Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connection
}

func (s *Store) SetConnection(c types.Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connection = c
}

func (s *Store) View() types.View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

func (s *Store) SetFilter(f types.Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.Filter = f
}

func (s *Store) SetSearch(term string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.Search = term
}

func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.Loading = loading
}

func (s *Store) SetFilterLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.FilterLoading = loading
}

func (s *Store) SetHasMore(hasMore bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.HasMore = hasMore
}

func (s *Store) SetPendingFilter(f types.Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.PendingFilter = &f
}

// ConsumePendingFilter returns the pending automatic switch and clears it, so
// the switch fires at most once.
func (s *Store) ConsumePendingFilter() (types.Filter, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view.PendingFilter == nil {
		return "", false
	}
	f := *s.view.PendingFilter
	s.view.PendingFilter = nil
	return f, true
}

// MarkLoaded records a successful list load for the dedupe guard.
func (s *Store) MarkLoaded(filter types.Filter, search string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = true
	s.loadedFilter = filter
	s.loadedSearch = search
}

// IsLoaded reports whether a prior load already succeeded for exactly this
// filter and search.
func (s *Store) IsLoaded(filter types.Filter, search string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded && s.loadedFilter == filter && s.loadedSearch == search
}

func removeID(order []string, id string) []string {
	for i, existing := range order {
		if existing == id {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}

func removeMessage(msgs []types.Message, id string) []types.Message {
	for i := range msgs {
		if msgs[i].ID == id {
			return append(msgs[:i], msgs[i+1:]...)
		}
	}
	return msgs
}
