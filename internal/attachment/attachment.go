// Package attachment classifies Discord message attachments by MIME type
// (C11) and turns them into either an Agent file part, an inline text
// envelope, or a routing decision to hand off to transcription (C12).
package attachment

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/igoryan-dao/remote-vibe-bridge/internal/agentproc"
)

// Kind is the three-way classification §4.11 assigns to an attachment.
type Kind string

const (
	KindAudio Kind = "audio"
	KindFile  Kind = "file"
	KindText  Kind = "text"
)

// inlineMimeTypes are non-text/* MIME types that still get fetched and
// inlined as an envelope rather than forwarded as a file part.
var inlineMimeTypes = map[string]bool{
	"application/json":       true,
	"application/xml":        true,
	"application/javascript": true,
	"application/typescript": true,
	"application/yaml":       true,
	"application/toml":       true,
	"application/x-yaml":     true,
}

// Attachment is the bridge-local view of one Discord attachment.
type Attachment struct {
	Filename string
	MimeType string
	URL      string
}

// Classify assigns a Kind by MIME type.
func Classify(mimeType string) Kind {
	switch {
	case strings.HasPrefix(mimeType, "audio/"):
		return KindAudio
	case strings.HasPrefix(mimeType, "image/"), mimeType == "application/pdf":
		return KindFile
	case strings.HasPrefix(mimeType, "text/"), inlineMimeTypes[mimeType]:
		return KindText
	default:
		return KindFile
	}
}

// ToFilePart builds the Agent-bound file prompt part for an image/pdf
// attachment.
func ToFilePart(a Attachment) agentproc.PromptPart {
	return agentproc.PromptPart{Type: "file", URL: a.URL, Mime: a.MimeType, Filename: a.Filename}
}

// FetchAndInline downloads a text-classified attachment's body and wraps it
// in the `<attachment filename="…" mime="…">…</attachment>` envelope the
// prompt expects.
func FetchAndInline(ctx context.Context, client *http.Client, a Attachment) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.URL, nil)
	if err != nil {
		return "", fmt.Errorf("attachment: build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("attachment: fetch %s: %w", a.Filename, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("attachment: fetch %s: status %d", a.Filename, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("attachment: read %s: %w", a.Filename, err)
	}

	return fmt.Sprintf("<attachment filename=%q mime=%q>\n%s\n</attachment>", a.Filename, a.MimeType, body), nil
}
