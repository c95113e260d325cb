package types

import "time"

// Session is the canonical client-side shape of a chat session. The gateway
// speaks is_pinned/is_archived; mapping happens once at the gateway boundary.
type Session struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Pinned        bool       `json:"pinned"`
	Archived      bool       `json:"archived"`
	MessageCount  int        `json:"message_count"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`

	// Temp marks a locally-minted placeholder whose durable identity has not
	// been assigned by the gateway yet.
	Temp bool `json:"-"`
}

// SessionUpdate carries the mutable session fields. Nil means "leave as is".
type SessionUpdate struct {
	Title    *string
	Pinned   *bool
	Archived *bool
}

// Empty reports whether the update would be a no-op on the wire.
func (u SessionUpdate) Empty() bool {
	return u.Title == nil && u.Pinned == nil && u.Archived == nil
}
