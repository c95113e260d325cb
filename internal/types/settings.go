package types

import "time"

// Settings are per-session generation knobs stored by the remote service.
type Settings struct {
	SessionID    string    `json:"session_id"`
	Temperature  string    `json:"temperature"`
	MaxTokens    int       `json:"max_tokens"`
	SystemPrompt string    `json:"system_prompt,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SettingsUpdate carries settings fields to change. Nil means "leave as is".
type SettingsUpdate struct {
	Temperature  *string `json:"temperature,omitempty"`
	MaxTokens    *int    `json:"max_tokens,omitempty"`
	SystemPrompt *string `json:"system_prompt,omitempty"`
}
