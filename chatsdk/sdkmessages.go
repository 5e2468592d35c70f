package chatsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/contenox/chatsync/chattypes"
)

// FetchMessages returns at most limit messages older than before,
// or the newest page when before is empty. Users and members referenced by the page are included.
func (c *Client) FetchMessages(ctx context.Context, channelID string, limit int, before string) (chattypes.HistoryPage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("include_users", "true")
	if before != "" {
		q.Set("before", before)
	}
	rURL := fmt.Sprintf("%s/channels/%s/messages?%s", c.baseURL, url.PathEscape(channelID), q.Encode())

	var page chattypes.HistoryPage
	if err := c.do(ctx, http.MethodGet, rURL, nil, "", http.StatusOK, &page); err != nil {
		return chattypes.HistoryPage{}, fmt.Errorf("fetch messages for %s: %w", channelID, err)
	}
	for i := range page.Messages {
		if page.Messages[i].ChannelID == "" {
			page.Messages[i].ChannelID = channelID
		}
	}
	return page, nil
}

// SendMessage submits a message and returns it as stored by the server.
func (c *Client) SendMessage(ctx context.Context, channelID string, msg chattypes.OutgoingMessage) (chattypes.Message, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return chattypes.Message{}, err
	}
	rURL := fmt.Sprintf("%s/channels/%s/messages", c.baseURL, url.PathEscape(channelID))

	var out chattypes.Message
	if err := c.do(ctx, http.MethodPost, rURL, bytes.NewReader(body), "application/json", http.StatusOK, &out); err != nil {
		return chattypes.Message{}, fmt.Errorf("send message to %s: %w", channelID, err)
	}
	if out.ChannelID == "" {
		out.ChannelID = channelID
	}
	return out, nil
}

// AckChannel marks the channel as read up to messageID on the server.
func (c *Client) AckChannel(ctx context.Context, channelID, messageID string) error {
	rURL := fmt.Sprintf("%s/channels/%s/ack/%s", c.baseURL, url.PathEscape(channelID), url.PathEscape(messageID))
	if err := c.do(ctx, http.MethodPut, rURL, nil, "", http.StatusNoContent, nil); err != nil {
		return fmt.Errorf("ack %s in %s: %w", messageID, channelID, err)
	}
	return nil
}

// FetchUser returns a user profile.
func (c *Client) FetchUser(ctx context.Context, userID string) (chattypes.User, error) {
	rURL := fmt.Sprintf("%s/users/%s", c.baseURL, url.PathEscape(userID))
	var u chattypes.User
	if err := c.do(ctx, http.MethodGet, rURL, nil, "", http.StatusOK, &u); err != nil {
		return chattypes.User{}, fmt.Errorf("fetch user %s: %w", userID, err)
	}
	return u, nil
}

// FetchChannel returns a channel snapshot.
func (c *Client) FetchChannel(ctx context.Context, channelID string) (chattypes.ChannelSnapshot, error) {
	rURL := fmt.Sprintf("%s/channels/%s", c.baseURL, url.PathEscape(channelID))
	var ch chattypes.ChannelSnapshot
	if err := c.do(ctx, http.MethodGet, rURL, nil, "", http.StatusOK, &ch); err != nil {
		return chattypes.ChannelSnapshot{}, fmt.Errorf("fetch channel %s: %w", channelID, err)
	}
	return ch, nil
}
