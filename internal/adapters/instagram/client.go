// Package instagram wraps outbound calls to the Instagram Graph API:
// account identity, conversation listing and cursor-paginated messages.
package instagram

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// Pagination directions accepted by GetMessages.
const (
	DirectionBefore = "before"
	DirectionAfter  = "after"
)

// Client holds the configuration for the Graph API client. The business
// account's own identity is fetched once and reused for the process
// lifetime; it is operator-configured and effectively static.
type Client struct {
	httpClient *resty.Client

	mu sync.Mutex
	me *Account
}

// NewClient creates a new Graph API client.
func NewClient(baseURL, accessToken string) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("Graph API baseURL cannot be empty")
	}
	if accessToken == "" {
		return nil, fmt.Errorf("Graph API accessToken cannot be empty")
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetQueryParam("access_token", accessToken).
		SetTimeout(10 * time.Second)

	log.Info().Str("baseURL", baseURL).Msg("Graph API client configured")

	return &Client{httpClient: httpClient}, nil
}

// GetMe fetches the business account's identity, memoizing the result.
func (c *Client) GetMe(ctx context.Context) (*Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getMeLocked(ctx)
}

func (c *Client) getMeLocked(ctx context.Context) (*Account, error) {
	if c.me != nil {
		return c.me, nil
	}

	var account Account
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("fields", "id,name,username,profile_picture_url").
		SetResult(&account).
		Get("/me")

	if err != nil {
		return nil, fmt.Errorf("Graph API GetMe request failed: %w", err)
	}
	if resp.IsError() {
		log.Error().Int("statusCode", resp.StatusCode()).Str("responseBody", resp.String()).Msg("Graph API: GetMe returned an error")
		return nil, fmt.Errorf("Graph API GetMe error: status %s", resp.Status())
	}

	c.me = &account
	log.Info().Str("accountID", account.ID).Str("username", account.Username).Msg("Resolved business account identity")
	return c.me, nil
}

// GetConversations lists /me/conversations, keeping only one-on-one threads
// and annotating each with the counterparty, resolved by username mismatch
// against our own identity.
func (c *Client) GetConversations(ctx context.Context) ([]Conversation, error) {
	c.mu.Lock()
	me, err := c.getMeLocked(ctx)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var list igConversationList
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("fields", "id,updated_time,participants{username,name}").
		SetQueryParam("platform", "instagram").
		SetResult(&list).
		Get("/me/conversations")

	if err != nil {
		return nil, fmt.Errorf("Graph API GetConversations request failed: %w", err)
	}
	if resp.IsError() {
		log.Error().Int("statusCode", resp.StatusCode()).Str("responseBody", resp.String()).Msg("Graph API: GetConversations returned an error")
		return nil, fmt.Errorf("Graph API GetConversations error: status %s", resp.Status())
	}

	conversations := make([]Conversation, 0, len(list.Data))
	for _, raw := range list.Data {
		if len(raw.Participants.Data) != 2 {
			continue
		}

		conv := Conversation{
			ID:           raw.ID,
			UpdatedTime:  raw.UpdatedTime,
			Participants: raw.Participants.Data,
		}
		for i := range conv.Participants {
			if conv.Participants[i].Username != me.Username {
				conv.OtherParticipant = &conv.Participants[i]
				break
			}
		}
		conversations = append(conversations, conv)
	}

	log.Debug().Int("conversationCount", len(conversations)).Msg("Fetched conversation list")
	return conversations, nil
}

// GetMessages fetches one page of a conversation's messages. The Graph API
// returns messages newest first; the "after" cursor therefore pages toward
// older messages. An empty cursor fetches the first (most recent) page.
func (c *Client) GetMessages(ctx context.Context, conversationID, cursor, direction string, limit int) (*PaginatedMessages, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("conversationID cannot be empty")
	}
	if direction != DirectionBefore && direction != DirectionAfter {
		return nil, fmt.Errorf("invalid paging direction %q", direction)
	}
	if limit <= 0 {
		limit = 20
	}

	req := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("fields", "id,created_time,from,to,message").
		SetQueryParam("limit", strconv.Itoa(limit))
	if cursor != "" {
		req.SetQueryParam(direction, cursor)
	}

	var list igMessageList
	resp, err := req.SetResult(&list).Get("/" + conversationID + "/messages")
	if err != nil {
		return nil, fmt.Errorf("Graph API GetMessages request failed for %s: %w", conversationID, err)
	}
	if resp.IsError() {
		log.Error().Str("conversationID", conversationID).Int("statusCode", resp.StatusCode()).Str("responseBody", resp.String()).Msg("Graph API: GetMessages returned an error")
		return nil, fmt.Errorf("Graph API GetMessages error for %s: status %s", conversationID, resp.Status())
	}

	messages := make([]Message, 0, len(list.Data))
	for _, raw := range list.Data {
		messages = append(messages, Message{
			ID:          raw.ID,
			CreatedTime: raw.CreatedTime,
			From:        raw.From,
			Text:        raw.Message,
		})
	}

	paging := Paging{}
	if list.Paging != nil {
		paging.HasMore = list.Paging.Next != "" || list.Paging.Cursors.After != ""
		paging.Before = list.Paging.Cursors.Before
		paging.After = list.Paging.Cursors.After
	}

	return &PaginatedMessages{Messages: messages, Paging: paging}, nil
}
