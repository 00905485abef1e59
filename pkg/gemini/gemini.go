// Package gemini is a minimal client for the Gemini generateContent and
// embedContent HTTP APIs. It covers exactly what the assistant needs: one
// text completion call and one embedding call.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultBaseURL    = "https://generativelanguage.googleapis.com/v1beta"
	defaultChatModel  = "gemini-2.0-flash"
	defaultEmbedModel = "text-embedding-004"
)

// Client calls the Gemini API. The zero value is not usable; construct with
// New.
type Client struct {
	baseURL    string
	apiKey     string
	chatModel  string
	embedModel string
	client     *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithModels overrides the chat and embedding model names.
func WithModels(chat, embed string) Option {
	return func(c *Client) {
		if chat != "" {
			c.chatModel = chat
		}
		if embed != "" {
			c.embedModel = embed
		}
	}
}

// New creates a Gemini client.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		chatModel:  defaultChatModel,
		embedModel: defaultEmbedModel,
		client:     &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type generatePart struct {
	Text string `json:"text"`
}

type generateContent struct {
	Role  string         `json:"role,omitempty"`
	Parts []generatePart `json:"parts"`
}

type generateReq struct {
	SystemInstruction *generateContent  `json:"systemInstruction,omitempty"`
	Contents          []generateContent `json:"contents"`
}

type generateResp struct {
	Candidates []struct {
		Content generateContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Turn is one prior exchange passed as conversation context.
type Turn struct {
	Role string // "user" or "model"
	Text string
}

// Generate produces a completion for the prompt, with an optional system
// instruction and prior turns.
func (c *Client) Generate(ctx context.Context, system string, history []Turn, prompt string) (string, error) {
	req := generateReq{}
	if system != "" {
		req.SystemInstruction = &generateContent{Parts: []generatePart{{Text: system}}}
	}
	for _, turn := range history {
		req.Contents = append(req.Contents, generateContent{
			Role:  turn.Role,
			Parts: []generatePart{{Text: turn.Text}},
		})
	}
	req.Contents = append(req.Contents, generateContent{
		Role:  "user",
		Parts: []generatePart{{Text: prompt}},
	})

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.chatModel)
	var resp generateResp
	if err := c.post(ctx, url, req, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", fmt.Errorf("gemini generate: %s", resp.Error.Message)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini generate: empty response")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

type embedReq struct {
	Content generateContent `json:"content"`
}

type embedResp struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Embed returns the embedding vector for one text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	req := embedReq{Content: generateContent{Parts: []generatePart{{Text: text}}}}

	url := fmt.Sprintf("%s/models/%s:embedContent", c.baseURL, c.embedModel)
	var resp embedResp
	if err := c.post(ctx, url, req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("gemini embed: %s", resp.Error.Message)
	}
	if len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("gemini embed: empty embedding")
	}
	return resp.Embedding.Values, nil
}

func (c *Client) post(ctx context.Context, url string, in, out any) error {
	body, _ := json.Marshal(in)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gemini: status %d: %s", resp.StatusCode, b)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("gemini decode: %w", err)
	}
	return nil
}
