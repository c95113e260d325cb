package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"parley/internal/types"
)

const sessionHeader = "X-Session-ID"

// Client talks to the remote persistence service. It attaches the opaque
// device token to every call and maps wire shapes to canonical types at this
// boundary only.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

// ListOptions narrow the session list request. Filter uses the gateway's
// canonical vocabulary (active/pinned/archived).
type ListOptions struct {
	Filter  string
	Search  string
	Page    int
	PerPage int
}

func (c *Client) ListSessions(ctx context.Context, opts ListOptions) (ListResult, error) {
	query := url.Values{}
	if opts.Filter != "" {
		query.Set("filter", opts.Filter)
	}
	if opts.Search != "" {
		query.Set("search", opts.Search)
	}
	if opts.Page > 0 {
		query.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(opts.PerPage))
	}
	path := "/api/v1/chats"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	var resp listChatsResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return ListResult{}, err
	}
	sessions := make([]types.Session, 0, len(resp.Chats))
	for _, dto := range resp.Chats {
		sessions = append(sessions, sessionFromDTO(dto))
	}
	return ListResult{
		Sessions: sessions,
		Total:    resp.Total,
		Page:     resp.Page,
		PerPage:  resp.PerPage,
		HasMore:  resp.HasMore,
	}, nil
}

func (c *Client) CreateSession(ctx context.Context, title, initialMessage string) (CreateResult, error) {
	req := createChatRequest{Title: title, InitialMessage: initialMessage}
	var resp createChatResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/chats", req, &resp); err != nil {
		return CreateResult{}, err
	}
	result := CreateResult{Session: sessionFromDTO(resp.Chat)}
	if resp.UserMessage != nil {
		msg := messageFromDTO(*resp.UserMessage)
		result.UserMessage = &msg
	}
	if resp.AssistantMessage != nil {
		msg := messageFromDTO(*resp.AssistantMessage)
		result.AssistantMessage = &msg
	}
	return result, nil
}

func (c *Client) GetSession(ctx context.Context, id string) (types.Session, []types.Message, error) {
	var resp chatWithMessagesResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/chats/"+url.PathEscape(id), nil, &resp); err != nil {
		return types.Session{}, nil, err
	}
	messages := make([]types.Message, 0, len(resp.Messages))
	for _, dto := range resp.Messages {
		messages = append(messages, messageFromDTO(dto))
	}
	return sessionFromDTO(resp.chatDTO), messages, nil
}

func (c *Client) UpdateSession(ctx context.Context, id string, upd types.SessionUpdate) (types.Session, error) {
	if upd.Empty() {
		return types.Session{}, errors.New("update has no fields")
	}
	var resp chatDTO
	if err := c.doJSON(ctx, http.MethodPut, "/api/v1/chats/"+url.PathEscape(id), updateToDTO(upd), &resp); err != nil {
		return types.Session{}, err
	}
	return sessionFromDTO(resp), nil
}

func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/v1/chats/"+url.PathEscape(id), nil, nil)
}

// SendMessage posts a user message and returns the durable user/assistant
// pair. An empty sessionID uses the session-less endpoint, which creates a
// chat implicitly.
func (c *Client) SendMessage(ctx context.Context, sessionID, content string) (SendResult, error) {
	path := "/api/v1/chats/messages"
	if sessionID != "" {
		path = "/api/v1/chats/" + url.PathEscape(sessionID) + "/messages"
	}
	var resp sendMessageResponse
	if err := c.doJSON(ctx, http.MethodPost, path, sendMessageRequest{Content: content}, &resp); err != nil {
		return SendResult{}, err
	}
	if resp.UserMessage.ID == "" || resp.AssistantMessage.ID == "" {
		return SendResult{}, errors.New("gateway returned incomplete message pair")
	}
	return SendResult{
		SessionID:        resp.ChatID,
		UserMessage:      messageFromDTO(resp.UserMessage),
		AssistantMessage: messageFromDTO(resp.AssistantMessage),
		MessageCount:     resp.MessageCount,
	}, nil
}

func (c *Client) AddSystemMessage(ctx context.Context, sessionID, content string) (types.Message, error) {
	path := "/api/v1/chats/" + url.PathEscape(sessionID) + "/system-message"
	var resp systemMessageResponse
	if err := c.doJSON(ctx, http.MethodPost, path, systemMessageRequest{Content: content}, &resp); err != nil {
		return types.Message{}, err
	}
	return messageFromDTO(resp.SystemMessage), nil
}

func (c *Client) GetSettings(ctx context.Context, sessionID string) (types.Settings, error) {
	var resp settingsDTO
	path := "/api/v1/chats/" + url.PathEscape(sessionID) + "/settings"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return types.Settings{}, err
	}
	return settingsFromDTO(resp), nil
}

func (c *Client) UpdateSettings(ctx context.Context, sessionID string, upd types.SettingsUpdate) (types.Settings, error) {
	var resp updateSettingsResponse
	path := "/api/v1/chats/" + url.PathEscape(sessionID) + "/settings"
	if err := c.doJSON(ctx, http.MethodPut, path, upd, &resp); err != nil {
		return types.Settings{}, err
	}
	return settingsFromDTO(resp.Settings), nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(c.token) == "" {
		return errors.New("device token is required")
	}
	req.Header.Set(sessionHeader, c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeAPIError(resp *http.Response) error {
	type errorPayload struct {
		Detail string `json:"detail"`
	}
	var payload errorPayload
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	if payload.Detail != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: payload.Detail}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
}

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("gateway error (%d): %s", e.StatusCode, e.Message)
}

// AsAPIError unwraps err to an *APIError, or nil.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}

// IsRetryable reports whether err is worth retrying: transport failures and
// server-side errors. Client errors (4xx) are permanent.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if apiErr := AsAPIError(err); apiErr != nil {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= http.StatusInternalServerError
	}
	return true
}

// IsNotFound reports whether err is a 404 from the gateway.
func IsNotFound(err error) bool {
	apiErr := AsAPIError(err)
	return apiErr != nil && apiErr.StatusCode == http.StatusNotFound
}
