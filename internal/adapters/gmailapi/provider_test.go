package gmailapi

import (
	"encoding/base64"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"

	"github.com/auramail/placement-ingest/internal/core"
)

func encodePart(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func testProvider() *Provider {
	return NewProvider(nil, 5, zap.NewNop())
}

func TestExtractBody_PrefersPlainText(t *testing.T) {
	payload := &gmail.MessagePart{
		MimeType: "multipart/alternative",
		Parts: []*gmail.MessagePart{
			{
				MimeType: "text/html",
				Body:     &gmail.MessagePartBody{Data: encodePart("<p>html</p>")},
			},
			{
				MimeType: "text/plain",
				Body:     &gmail.MessagePartBody{Data: encodePart("plain body")},
			},
		},
	}

	if got := testProvider().extractBody(payload); got != "plain body" {
		t.Errorf("expected plain body, got %q", got)
	}
}

func TestExtractBody_FallsBackToHTML(t *testing.T) {
	payload := &gmail.MessagePart{
		MimeType: "multipart/alternative",
		Parts: []*gmail.MessagePart{
			{
				MimeType: "text/html",
				Body:     &gmail.MessagePartBody{Data: encodePart("<p>html only</p>")},
			},
		},
	}

	if got := testProvider().extractBody(payload); got != "<p>html only</p>" {
		t.Errorf("expected html fallback, got %q", got)
	}
}

func TestExtractBody_FirstSiblingContainerWins(t *testing.T) {
	// A forwarded mail shape: two sibling alternative containers, each with
	// its own text/plain. Document order decides, not traversal accident.
	payload := &gmail.MessagePart{
		MimeType: "multipart/mixed",
		Parts: []*gmail.MessagePart{
			{
				MimeType: "multipart/alternative",
				Parts: []*gmail.MessagePart{
					{
						MimeType: "text/plain",
						Body:     &gmail.MessagePartBody{Data: encodePart("first container")},
					},
				},
			},
			{
				MimeType: "multipart/alternative",
				Parts: []*gmail.MessagePart{
					{
						MimeType: "text/plain",
						Body:     &gmail.MessagePartBody{Data: encodePart("second container")},
					},
				},
			},
		},
	}

	if got := testProvider().extractBody(payload); got != "first container" {
		t.Errorf("expected first container's body, got %q", got)
	}
}

func TestExtractBody_DirectPayloadBody(t *testing.T) {
	payload := &gmail.MessagePart{
		MimeType: "text/plain",
		Body:     &gmail.MessagePartBody{Data: encodePart("direct")},
	}

	if got := testProvider().extractBody(payload); got != "direct" {
		t.Errorf("expected direct body, got %q", got)
	}
}

func TestExtractBody_DepthBound(t *testing.T) {
	// Build a part tree deeper than the walk limit with the plain text at
	// the bottom. The provider must give up rather than recurse forever.
	leaf := &gmail.MessagePart{
		MimeType: "text/plain",
		Body:     &gmail.MessagePartBody{Data: encodePart("too deep")},
	}
	node := leaf
	for i := 0; i < 10; i++ {
		node = &gmail.MessagePart{
			MimeType: "multipart/mixed",
			Parts:    []*gmail.MessagePart{node},
		}
	}

	p := NewProvider(nil, 3, zap.NewNop())
	if got := p.extractBody(node); got != "" {
		t.Errorf("expected empty body beyond depth limit, got %q", got)
	}
}

func TestExtractAttachments(t *testing.T) {
	payload := &gmail.MessagePart{
		MimeType: "multipart/mixed",
		Parts: []*gmail.MessagePart{
			{
				MimeType: "text/plain",
				Body:     &gmail.MessagePartBody{Data: encodePart("body")},
			},
			{
				Filename: "jd.pdf",
				MimeType: "application/pdf",
				Body:     &gmail.MessagePartBody{Size: 2048, AttachmentId: "att-1"},
			},
			{
				// Attachment missing body metadata is dropped.
				Filename: "broken.bin",
				MimeType: "application/octet-stream",
			},
			{
				MimeType: "multipart/mixed",
				Parts: []*gmail.MessagePart{
					{
						Filename: "form.docx",
						MimeType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
						Body:     &gmail.MessagePartBody{Size: 512, AttachmentId: "att-2"},
					},
				},
			},
		},
	}

	got := testProvider().extractAttachments(payload)
	if len(got) != 2 {
		t.Fatalf("expected 2 attachments, got %d: %v", len(got), got)
	}

	byName := map[string]core.Attachment{}
	for _, a := range got {
		byName[a.Filename] = a
	}
	if a, ok := byName["jd.pdf"]; !ok || a.Size != 2048 || a.AttachmentID != "att-1" {
		t.Errorf("unexpected jd.pdf attachment: %+v", byName["jd.pdf"])
	}
	if _, ok := byName["form.docx"]; !ok {
		t.Error("nested attachment must be found")
	}
}

func TestExtractAttachments_DocumentOrder(t *testing.T) {
	payload := &gmail.MessagePart{
		MimeType: "multipart/mixed",
		Parts: []*gmail.MessagePart{
			{
				MimeType: "multipart/mixed",
				Parts: []*gmail.MessagePart{
					{
						Filename: "a.pdf",
						MimeType: "application/pdf",
						Body:     &gmail.MessagePartBody{Size: 1, AttachmentId: "att-a"},
					},
				},
			},
			{
				Filename: "b.pdf",
				MimeType: "application/pdf",
				Body:     &gmail.MessagePartBody{Size: 2, AttachmentId: "att-b"},
			},
		},
	}

	got := testProvider().extractAttachments(payload)
	if len(got) != 2 {
		t.Fatalf("expected 2 attachments, got %d", len(got))
	}
	if got[0].Filename != "a.pdf" || got[1].Filename != "b.pdf" {
		t.Errorf("expected document order a.pdf, b.pdf; got %q, %q", got[0].Filename, got[1].Filename)
	}
}

func TestDecodeBase64URL(t *testing.T) {
	for _, s := range []string{"a", "ab", "abc", "hello world", "padding=="} {
		encoded := base64.URLEncoding.EncodeToString([]byte(s))
		decoded, err := decodeBase64URL(encoded)
		if err != nil {
			t.Fatalf("decode %q: %v", s, err)
		}
		if decoded != s {
			t.Errorf("expected %q, got %q", s, decoded)
		}

		// Gmail omits padding.
		decoded, err = decodeBase64URL(base64.RawURLEncoding.EncodeToString([]byte(s)))
		if err != nil {
			t.Fatalf("decode unpadded %q: %v", s, err)
		}
		if decoded != s {
			t.Errorf("expected %q, got %q", s, decoded)
		}
	}
}

func TestMapAuthError(t *testing.T) {
	for _, code := range []int{401, 403} {
		err := mapAuthError(&googleapi.Error{Code: code})
		if !errors.Is(err, core.ErrReauthRequired) {
			t.Errorf("code %d must map to ErrReauthRequired, got %v", code, err)
		}
	}

	plain := &googleapi.Error{Code: 500}
	if err := mapAuthError(plain); !errors.Is(err, plain) {
		t.Errorf("server errors must pass through, got %v", err)
	}

	wrapped := fmt.Errorf("wrapped: %w", &googleapi.Error{Code: 401})
	if err := mapAuthError(wrapped); !errors.Is(err, core.ErrReauthRequired) {
		t.Errorf("wrapped auth errors must map, got %v", err)
	}

	other := errors.New("network down")
	if err := mapAuthError(other); !errors.Is(err, other) {
		t.Errorf("unrelated errors must pass through, got %v", err)
	}
}
