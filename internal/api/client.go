// Package api is the HTTP collaborator: a thin retrying JSON client
// for the chat backend's CRUD surface plus the best-effort read-state
// beacon. Failures come back as tagged *Error values carrying a closed
// result code.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/okzmo/kyob-client/internal/types"
)

const (
	requestTimeout = 10 * time.Second
	// Transport-level retry budget: total attempts per request.
	maxAttempts = 2

	tokenCookieKey = "token"
)

type Client struct {
	baseURL string
	http    *http.Client
	token   string
	log     *log.Logger
}

func NewClient(logger *log.Logger, baseURL, sessionToken string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: requestTimeout},
		token:   sessionToken,
		log:     logger,
	}
}

// do performs one JSON request with the retry budget. Network errors
// and 5xx responses are retried; anything else resolves immediately.
func (c *Client) do(ctx context.Context, method, path string, body, out any, opCodes ...string) *Error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return &Error{Code: ErrUnknown, Raw: err.Error()}
		}
	}

	var lastErr *Error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		apiErr, retryable := c.doOnce(ctx, method, path, payload, out, opCodes)
		if apiErr == nil {
			return nil
		}
		lastErr = apiErr
		if !retryable {
			return apiErr
		}
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, method, path string, payload []byte, out any, opCodes []string) (apiErr *Error, retryable bool) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return &Error{Code: ErrUnknown, Raw: err.Error()}, false
	}
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: tokenCookieKey, Value: c.token})

	res, err := c.http.Do(req)
	if err != nil {
		return &Error{Code: ErrUnknown, Raw: err.Error()}, ctx.Err() == nil
	}
	defer res.Body.Close()

	if res.StatusCode >= 200 && res.StatusCode < 300 {
		if out == nil {
			io.Copy(io.Discard, res.Body)
			return nil, false
		}
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return &Error{Code: ErrUnknown, Status: res.StatusCode, Raw: err.Error()}, false
		}
		return nil, false
	}

	var body errorBody
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		body = errorBody{Status: res.StatusCode}
	}
	return mapError(res.StatusCode, body, opCodes...), res.StatusCode >= 500
}

func (c *Client) Setup(ctx context.Context) (*types.Setup, error) {
	var out types.Setup
	if err := c.do(ctx, http.MethodGet, "/authenticated/setup", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type CreateServerParams struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Private     bool   `json:"private"`
}

func (c *Client) CreateServer(ctx context.Context, params CreateServerParams) (*types.Server, error) {
	var out types.Server
	if err := c.do(ctx, http.MethodPost, "/authenticated/server", params, &out, ErrTooManyServers); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteServer(ctx context.Context, serverId string) error {
	if err := c.do(ctx, http.MethodDelete, "/authenticated/servers/"+serverId, nil, nil); err != nil {
		return err
	}
	return nil
}

func (c *Client) JoinServer(ctx context.Context, inviteId string) (*types.Server, error) {
	var out types.Server
	if err := c.do(ctx, http.MethodPost, "/authenticated/servers/join/"+inviteId, nil, &out, ErrInviteServerNotFound); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) LeaveServer(ctx context.Context, serverId string) error {
	if err := c.do(ctx, http.MethodPost, "/authenticated/servers/"+serverId+"/leave", nil, nil); err != nil {
		return err
	}
	return nil
}

type CreateChannelParams struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	X           int    `json:"x"`
	Y           int    `json:"y"`
}

func (c *Client) CreateChannel(ctx context.Context, serverId string, params CreateChannelParams) (*types.Channel, error) {
	var out types.Channel
	if err := c.do(ctx, http.MethodPost, "/authenticated/channels/"+serverId, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteChannel(ctx context.Context, serverId, channelId string) error {
	if err := c.do(ctx, http.MethodDelete, "/authenticated/channels/"+serverId+"/"+channelId, nil, nil); err != nil {
		return err
	}
	return nil
}

type SendMessageParams struct {
	Content          json.RawMessage    `json:"content"`
	Everyone         bool               `json:"everyone,omitempty"`
	MentionsUsers    []string           `json:"mentions_users,omitempty"`
	MentionsChannels []string           `json:"mentions_channels,omitempty"`
	Attachments      []types.Attachment `json:"attachments,omitempty"`
}

func (c *Client) SendMessage(ctx context.Context, serverId, channelId string, params SendMessageParams) error {
	path := fmt.Sprintf("/authenticated/messages/%s/%s", serverId, channelId)
	if err := c.do(ctx, http.MethodPost, path, params, nil, ErrMessageTooBig); err != nil {
		return err
	}
	return nil
}

func (c *Client) EditMessage(ctx context.Context, serverId, channelId, messageId string, params SendMessageParams) error {
	path := fmt.Sprintf("/authenticated/messages/%s/%s/%s", serverId, channelId, messageId)
	if err := c.do(ctx, http.MethodPut, path, params, nil, ErrMessageTooBig); err != nil {
		return err
	}
	return nil
}

func (c *Client) DeleteMessage(ctx context.Context, serverId, channelId, messageId string) error {
	path := fmt.Sprintf("/authenticated/messages/%s/%s/%s", serverId, channelId, messageId)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return err
	}
	return nil
}

// ChannelMessages implements the store's HistoryLoader.
func (c *Client) ChannelMessages(ctx context.Context, channelId string) ([]types.Message, error) {
	var out []types.Message
	if err := c.do(ctx, http.MethodGet, "/authenticated/messages/"+channelId, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AddFriend(ctx context.Context, username string) (*types.Friend, error) {
	var out types.Friend
	body := map[string]string{"username": username}
	if err := c.do(ctx, http.MethodPost, "/authenticated/friends", body, &out, ErrUserNotFound, ErrAddingItself); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AcceptFriend(ctx context.Context, friendshipId string) error {
	if err := c.do(ctx, http.MethodPost, "/authenticated/friends/"+friendshipId+"/accept", nil, nil); err != nil {
		return err
	}
	return nil
}

func (c *Client) RemoveFriend(ctx context.Context, friendshipId string) error {
	if err := c.do(ctx, http.MethodDelete, "/authenticated/friends/"+friendshipId, nil, nil); err != nil {
		return err
	}
	return nil
}

type UpdateAccountParams struct {
	Username    string          `json:"username,omitempty"`
	DisplayName string          `json:"display_name,omitempty"`
	Email       string          `json:"email,omitempty"`
	About       json.RawMessage `json:"about,omitempty"`
	Facts       json.RawMessage `json:"facts,omitempty"`
	Links       []string        `json:"links,omitempty"`
}

func (c *Client) UpdateAccount(ctx context.Context, params UpdateAccountParams) (*types.User, error) {
	var out types.User
	if err := c.do(ctx, http.MethodPut, "/authenticated/account", params, &out, ErrUsernameInUse, ErrEmailInUse); err != nil {
		return nil, err
	}
	return &out, nil
}

type UploadEmojiParams struct {
	Shortcode string `json:"shortcode"`
	Data      []byte `json:"data"`
}

func (c *Client) UploadEmoji(ctx context.Context, params UploadEmojiParams) ([]types.Emoji, error) {
	var out []types.Emoji
	if err := c.do(ctx, http.MethodPost, "/authenticated/emojis", params, &out, ErrEmojiTooBig, ErrEmojiBadShortcode); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CallToken(ctx context.Context, channelId string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/authenticated/calls/"+channelId+"/token", nil, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

// SaveLastState delivers the read-state beacon on teardown. Best
// effort: a failure is logged, never surfaced, and never retried.
func (c *Client) SaveLastState(state types.LastState) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	payload, err := json.Marshal(state)
	if err != nil {
		c.log.Println("save state encode:", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/authenticated/state", bytes.NewReader(payload))
	if err != nil {
		c.log.Println("save state:", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: tokenCookieKey, Value: c.token})

	res, err := c.http.Do(req)
	if err != nil {
		c.log.Println("save state:", err)
		return
	}
	io.Copy(io.Discard, res.Body)
	res.Body.Close()
}
