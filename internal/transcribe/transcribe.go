// Package transcribe implements C12: audio transcription through a primary
// remote speech-to-text API with a fallback on failure, grounded on the
// teacher's whisper.OpenAICloudTranscriber multipart-upload idiom, adapted
// from a local-file path to raw bytes supplied by the Discord attachment
// pipeline.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

const transcribePromptHint = "The transcript will be read by a coding agent. " +
	"Prefer technical and programming vocabulary over literal phonetics " +
	"when a word is ambiguous."

// Provider is one remote transcription API endpoint plus its credentials.
type Provider struct {
	Name     string
	Endpoint string
	APIKey   string
}

// Client transcribes audio via a primary provider, falling back to a
// second provider on failure. Either provider may be the zero value, in
// which case it is skipped.
type Client struct {
	Primary  Provider
	Fallback Provider
	HTTP     *http.Client
}

// NewClient builds a transcription Client. A nil http.Client defaults to
// http.DefaultClient.
func NewClient(primary, fallback Provider, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{Primary: primary, Fallback: fallback, HTTP: httpClient}
}

// Transcribe sends audio to the primary provider, retrying against the
// fallback provider if the primary fails. fileTree is a best-effort project
// file listing appended to the prompt context; language is an optional BCP
// 47 hint. Returns an error only if both providers are unset or both fail.
func (c *Client) Transcribe(ctx context.Context, audio []byte, filename, language, fileTree string) (string, error) {
	var errs []string

	if c.Primary.Endpoint != "" {
		text, err := c.call(ctx, c.Primary, audio, filename, language, fileTree)
		if err == nil {
			return text, nil
		}
		errs = append(errs, fmt.Sprintf("%s: %v", c.Primary.Name, err))
	}

	if c.Fallback.Endpoint != "" {
		text, err := c.call(ctx, c.Fallback, audio, filename, language, fileTree)
		if err == nil {
			return text, nil
		}
		errs = append(errs, fmt.Sprintf("%s: %v", c.Fallback.Name, err))
	}

	if len(errs) == 0 {
		return "", fmt.Errorf("transcribe: no provider configured")
	}
	return "", fmt.Errorf("transcribe: all providers failed: %s", strings.Join(errs, "; "))
}

func (c *Client) call(ctx context.Context, p Provider, audio []byte, filename, language, fileTree string) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, bytes.NewReader(audio)); err != nil {
		return "", err
	}

	prompt := transcribePromptHint
	if fileTree != "" {
		prompt += "\n\nProject files:\n" + fileTree
	}
	writer.WriteField("prompt", prompt)
	if language != "" {
		writer.WriteField("language", language)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Text, nil
}
