package gmail

import (
	"context"
	"fmt"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/inboxpilot/inboxpilot/internal/google"
	"github.com/inboxpilot/inboxpilot/internal/rules"
)

// unreadQuery selects the messages a triage pass operates on.
const unreadQuery = "is:unread in:inbox"

// Client wraps the Gmail Users service.
type Client struct {
	svc *gmail.UsersService
}

// NewClient creates a Gmail client authenticated with the cached OAuth token.
func NewClient(ctx context.Context, auth *google.Authenticator) (*Client, error) {
	httpClient, err := auth.HTTPClient(ctx)
	if err != nil {
		return nil, err
	}
	svc, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return &Client{svc: svc.Users}, nil
}

// ListUnread returns up to max unread inbox messages as engine emails, with
// metadata only; bodies carry the not-loaded sentinel. Pagination is handled
// internally.
func (c *Client) ListUnread(ctx context.Context, max int64) ([]rules.Email, error) {
	var out []rules.Email
	pageToken := ""

	for int64(len(out)) < max {
		pageSize := max - int64(len(out))
		if pageSize > 100 {
			pageSize = 100
		}

		req := c.svc.Messages.List("me").Q(unreadQuery).MaxResults(pageSize).Context(ctx)
		if pageToken != "" {
			req = req.PageToken(pageToken)
		}
		res, err := req.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list unread messages: %w", err)
		}

		for _, ref := range res.Messages {
			msg, err := c.svc.Messages.Get("me", ref.Id).
				Format("metadata").
				MetadataHeaders("Subject", "From").
				Context(ctx).Do()
			if err != nil {
				return nil, fmt.Errorf("failed to get message %s: %w", ref.Id, err)
			}
			out = append(out, metadataEmail(msg))
		}

		pageToken = res.NextPageToken
		if pageToken == "" {
			break
		}
	}

	if int64(len(out)) > max {
		out = out[:max]
	}
	return out, nil
}

// GetMessageBody fetches the full message and returns its plain-text and
// HTML bodies. Either may be empty depending on what the sender included.
func (c *Client) GetMessageBody(ctx context.Context, id string) (body, htmlBody string, err error) {
	msg, err := c.svc.Messages.Get("me", id).Format("full").Context(ctx).Do()
	if err != nil {
		return "", "", fmt.Errorf("failed to get message %s: %w", id, err)
	}
	body = extractBody(msg.Payload, "text/plain")
	htmlBody = extractBody(msg.Payload, "text/html")
	if body == "" && htmlBody == "" {
		return "", "", fmt.Errorf("no readable body in message %s", id)
	}
	return body, htmlBody, nil
}

// MarkAsRead removes the UNREAD label from a message.
func (c *Client) MarkAsRead(ctx context.Context, id string) error {
	_, err := c.svc.Messages.Modify("me", id, &gmail.ModifyMessageRequest{
		RemoveLabelIds: []string{"UNREAD"},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to mark message %s as read: %w", id, err)
	}
	return nil
}

// DeleteEmail moves a message to the trash. Permanent deletion would need
// the broader mail scope and is not something a rule should do anyway.
func (c *Client) DeleteEmail(ctx context.Context, id string) error {
	_, err := c.svc.Messages.Trash("me", id).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to trash message %s: %w", id, err)
	}
	return nil
}
