package gateway

import (
	"time"

	"parley/internal/types"
)

// Wire shapes. The service uses is_pinned/is_archived and chat_id; the rest
// of the client never sees those names.

type chatDTO struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	IsPinned      bool       `json:"is_pinned"`
	IsArchived    bool       `json:"is_archived"`
	MessageCount  int        `json:"message_count"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LastMessageAt *time.Time `json:"last_message_at"`
}

type messageDTO struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type listChatsResponse struct {
	Chats   []chatDTO `json:"chats"`
	Total   int       `json:"total"`
	Page    int       `json:"page"`
	PerPage int       `json:"per_page"`
	HasMore bool      `json:"has_more"`
}

type createChatRequest struct {
	Title          string `json:"title,omitempty"`
	InitialMessage string `json:"initial_message,omitempty"`
}

type createChatResponse struct {
	Chat             chatDTO     `json:"chat"`
	UserMessage      *messageDTO `json:"user_message"`
	AssistantMessage *messageDTO `json:"assistant_message"`
}

type chatWithMessagesResponse struct {
	chatDTO
	Messages []messageDTO `json:"messages"`
}

type updateChatRequest struct {
	Title      *string `json:"title,omitempty"`
	IsPinned   *bool   `json:"is_pinned,omitempty"`
	IsArchived *bool   `json:"is_archived,omitempty"`
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

type sendMessageResponse struct {
	UserMessage      messageDTO `json:"user_message"`
	AssistantMessage messageDTO `json:"assistant_message"`
	ChatID           string     `json:"chat_id"`
	MessageCount     int        `json:"message_count"`
}

type systemMessageRequest struct {
	Content string `json:"content"`
}

type systemMessageResponse struct {
	SystemMessage messageDTO `json:"system_message"`
	ChatID        string     `json:"chat_id"`
}

type settingsDTO struct {
	SessionID    string    `json:"session_id"`
	Temperature  string    `json:"temperature"`
	MaxTokens    int       `json:"max_tokens"`
	SystemPrompt string    `json:"system_prompt"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type updateSettingsResponse struct {
	Settings settingsDTO `json:"settings"`
	Message  string      `json:"message"`
}

// ListResult is the typed form of a session list page.
type ListResult struct {
	Sessions []types.Session
	Total    int
	Page     int
	PerPage  int
	HasMore  bool
}

// CreateResult carries the durable session and, when an initial message was
// supplied, the echoed user/assistant pair.
type CreateResult struct {
	Session          types.Session
	UserMessage      *types.Message
	AssistantMessage *types.Message
}

// SendResult carries the durable halves of a send round trip.
type SendResult struct {
	SessionID        string
	UserMessage      types.Message
	AssistantMessage types.Message
	MessageCount     int
}

func sessionFromDTO(dto chatDTO) types.Session {
	return types.Session{
		ID:            dto.ID,
		Title:         dto.Title,
		Pinned:        dto.IsPinned,
		Archived:      dto.IsArchived,
		MessageCount:  dto.MessageCount,
		CreatedAt:     dto.CreatedAt,
		UpdatedAt:     dto.UpdatedAt,
		LastMessageAt: dto.LastMessageAt,
	}
}

func messageFromDTO(dto messageDTO) types.Message {
	return types.Message{
		ID:        dto.ID,
		SessionID: dto.SessionID,
		Role:      types.Role(dto.Role),
		Content:   dto.Content,
		CreatedAt: dto.CreatedAt,
	}
}

func settingsFromDTO(dto settingsDTO) types.Settings {
	return types.Settings{
		SessionID:    dto.SessionID,
		Temperature:  dto.Temperature,
		MaxTokens:    dto.MaxTokens,
		SystemPrompt: dto.SystemPrompt,
		CreatedAt:    dto.CreatedAt,
		UpdatedAt:    dto.UpdatedAt,
	}
}

func updateToDTO(upd types.SessionUpdate) updateChatRequest {
	return updateChatRequest{
		Title:      upd.Title,
		IsPinned:   upd.Pinned,
		IsArchived: upd.Archived,
	}
}
