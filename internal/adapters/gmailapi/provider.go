// Package gmailapi fetches placement mail through the Gmail REST API.
package gmailapi

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"

	"github.com/auramail/placement-ingest/internal/core"
)

// Provider is a Gmail implementation of the MailProvider interface, bound
// to a single user's access token.
type Provider struct {
	svc          *gmail.Service
	maxPartDepth int
	logger       *zap.Logger
}

// NewProvider creates a provider around an authenticated Gmail service.
func NewProvider(svc *gmail.Service, maxPartDepth int, logger *zap.Logger) *Provider {
	return &Provider{
		svc:          svc,
		maxPartDepth: maxPartDepth,
		logger:       logger,
	}
}

// ListMessages returns the IDs of messages matching a Gmail query.
func (p *Provider) ListMessages(ctx context.Context, query string, maxResults int64) ([]string, error) {
	resp, err := p.svc.Users.Messages.List("me").
		Q(query).
		MaxResults(maxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", mapAuthError(err))
	}

	if resp == nil || len(resp.Messages) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(resp.Messages))
	for _, msg := range resp.Messages {
		ids = append(ids, msg.Id)
	}
	return ids, nil
}

// GetMessage fetches one message in full and flattens it into a RawMessage.
func (p *Provider) GetMessage(ctx context.Context, id string) (*core.RawMessage, error) {
	msg, err := p.svc.Users.Messages.Get("me", id).
		Format("full").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, mapAuthError(err))
	}

	headers := headerMap(msg.Payload.Headers)

	raw := &core.RawMessage{
		ID:          msg.Id,
		Subject:     headers["Subject"],
		Sender:      headers["From"],
		Snippet:     msg.Snippet,
		Body:        p.extractBody(msg.Payload),
		DateHeader:  headers["Date"],
		Attachments: p.extractAttachments(msg.Payload),
	}

	if msg.InternalDate > 0 {
		raw.ReceivedAt = time.UnixMilli(msg.InternalDate).UTC()
	}

	return raw, nil
}

// walkItem pairs a payload part with its nesting depth.
type walkItem struct {
	part  *gmail.MessagePart
	depth int
}

// extractBody pulls the plain text body from a message payload. The part
// tree is walked iteratively with a depth bound so a hostile payload cannot
// blow the stack. Children are pushed in reverse so the LIFO stack yields
// document order: the first text/plain in the message wins, with the first
// text/html kept as a fallback.
func (p *Provider) extractBody(payload *gmail.MessagePart) string {
	if payload == nil {
		return ""
	}

	if payload.Body != nil && payload.Body.Data != "" {
		if decoded, err := decodeBase64URL(payload.Body.Data); err == nil {
			return decoded
		}
	}

	var htmlBody string

	stack := []walkItem{{part: payload, depth: 0}}
	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if item.depth > p.maxPartDepth {
			p.logger.Warn("Message part tree deeper than limit, pruning",
				zap.Int("max_depth", p.maxPartDepth))
			continue
		}

		part := item.part
		if part != payload && part.Body != nil && part.Body.Data != "" {
			switch part.MimeType {
			case "text/plain":
				if decoded, err := decodeBase64URL(part.Body.Data); err == nil {
					return decoded
				}
			case "text/html":
				if htmlBody == "" {
					if decoded, err := decodeBase64URL(part.Body.Data); err == nil {
						htmlBody = decoded
					}
				}
			}
		}
		for i := len(part.Parts) - 1; i >= 0; i-- {
			stack = append(stack, walkItem{part: part.Parts[i], depth: item.depth + 1})
		}
	}

	return htmlBody
}

// extractAttachments gathers attachment metadata from the part tree in
// document order. Parts missing a filename or body are dropped with a log
// line rather than failing the whole message.
func (p *Provider) extractAttachments(payload *gmail.MessagePart) []core.Attachment {
	if payload == nil {
		return nil
	}

	var attachments []core.Attachment

	stack := []walkItem{{part: payload, depth: 0}}
	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if item.depth > p.maxPartDepth {
			continue
		}

		part := item.part
		if part.Filename != "" {
			if part.Body == nil {
				p.logger.Debug("Dropping attachment without body metadata",
					zap.String("filename", part.Filename))
			} else {
				attachments = append(attachments, core.Attachment{
					Filename:     part.Filename,
					MimeType:     part.MimeType,
					Size:         part.Body.Size,
					AttachmentID: part.Body.AttachmentId,
				})
			}
		}
		for i := len(part.Parts) - 1; i >= 0; i-- {
			stack = append(stack, walkItem{part: part.Parts[i], depth: item.depth + 1})
		}
	}

	return attachments
}

// headerMap converts Gmail API headers into a simple key-value map.
func headerMap(headers []*gmail.MessagePartHeader) map[string]string {
	m := make(map[string]string, len(headers))
	for _, h := range headers {
		m[h.Name] = h.Value
	}
	return m
}

// decodeBase64URL decodes Gmail's base64url-encoded content.
func decodeBase64URL(data string) (string, error) {
	decoded, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// mapAuthError converts Gmail credential failures into ErrReauthRequired so
// callers stop retrying and surface a reauthorization.
func mapAuthError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == 401 || apiErr.Code == 403) {
		return core.ErrReauthRequired
	}
	return err
}
