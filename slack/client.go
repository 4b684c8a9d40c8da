package slack

import (
	"fmt"
	"log"

	"github.com/slack-go/slack"
)

const (
	botUsername = "Jiraldo"
	botIcon     = ":robot_face:"
)

type Client struct {
	api *slack.Client
}

func NewClient(botToken string) *Client {
	return &Client{api: slack.New(botToken)}
}

// ResolveUserByEmail looks up the Slack identity for an email address.
func (c *Client) ResolveUserByEmail(email string) (*slack.User, error) {
	user, err := c.api.GetUserByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user by email: %w", err)
	}
	return user, nil
}

// ResolveUserByID returns profile information for a Slack user ID.
func (c *Client) ResolveUserByID(userID string) (*slack.User, error) {
	user, err := c.api.GetUserInfo(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	return user, nil
}

// SendDirectMessage resolves the email to a Slack user and DMs them. A missing
// chat identity is an expected steady-state condition (contractor accounts,
// tracker-only users), so resolution failure is soft: log, return false, and
// make no further call. Sends are not idempotent and are never retried.
func (c *Client) SendDirectMessage(email, text string, attachment *slack.Attachment) bool {
	user, err := c.ResolveUserByEmail(email)
	if err != nil {
		log.Printf("[slack] no Slack user found for %s: %v", email, err)
		return false
	}

	opts := []slack.MsgOption{
		slack.MsgOptionText(text, false),
		slack.MsgOptionUsername(botUsername),
		slack.MsgOptionIconEmoji(botIcon),
	}
	if attachment != nil {
		opts = append(opts, slack.MsgOptionAttachments(*attachment))
	}

	if _, _, err := c.api.PostMessage(user.ID, opts...); err != nil {
		log.Printf("[slack] failed to DM %s: %v", email, err)
		return false
	}
	return true
}

// SendChannelMessage posts to a channel, threading under threadTS when given.
func (c *Client) SendChannelMessage(channelID, text, threadTS string) bool {
	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if threadTS != "" {
		opts = append(opts, slack.MsgOptionTS(threadTS))
	}

	if _, _, err := c.api.PostMessage(channelID, opts...); err != nil {
		log.Printf("[slack] failed to post to channel %s: %v", channelID, err)
		return false
	}
	return true
}

// GetBotUserID returns the Slack user ID of the bot token.
func (c *Client) GetBotUserID() (string, error) {
	resp, err := c.api.AuthTest()
	if err != nil {
		return "", fmt.Errorf("failed to call auth.test: %w", err)
	}
	return resp.UserID, nil
}
