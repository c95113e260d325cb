package types

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a single turn in a session. Messages are never mutated after
// creation except to clear Pending/Temp or set Failed.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`

	// Pending marks a tentative message awaiting remote confirmation, Failed
	// one whose confirmation failed, Temp one without a durable identity.
	Pending bool `json:"-"`
	Failed  bool `json:"-"`
	Temp    bool `json:"-"`
}

// Real reports whether the message counts as genuine user content: authored
// by the user and neither tentative nor temporary. The empty-session reaper
// keeps any session holding at least one real message.
func (m Message) Real() bool {
	return m.Role == RoleUser && !m.Pending && !m.Temp
}
