package gateway

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var ErrCompletionFailed = errors.New("completion request failed")

type LLMConfig struct {
	BaseURL        string
	APIKey         string
	Model          string
	RequestTimeout time.Duration
}

// LLMClient calls an OpenAI-compatible chat-completions endpoint in
// streaming mode and concatenates the chunks into one suggestion. Plain
// net/http here: the response is a long-lived SSE stream read line by line,
// which the pooled fasthttp client cannot expose.
type LLMClient struct {
	config LLMConfig
	client *http.Client
}

func NewLLMClient(config LLMConfig) *LLMClient {
	if config.RequestTimeout == 0 {
		config.RequestTimeout = 60 * time.Second
	}
	return &LLMClient{
		config: config,
		client: &http.Client{Timeout: config.RequestTimeout},
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Improve asks for a rewrite of one campaign field. current may be empty
// for drafts; context is the creator's free-text guidance.
func (c *LLMClient) Improve(ctx context.Context, field, current, guidance string) (string, error) {
	prompt := fmt.Sprintf(
		"Rewrite the %s of a crowdfunding campaign. Context: %s.\nCurrent %s: %q\nReply with the improved %s only, no quotes or commentary.",
		field, guidance, field, current, field,
	)

	body, err := json.Marshal(chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: "You improve crowdfunding campaign copy. Be concise and concrete."},
			{Role: "user", Content: prompt},
		},
		Stream: true,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCompletionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrCompletionFailed, resp.StatusCode)
	}

	var out strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			break
		}

		var chunk chatChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}
		for _, choice := range chunk.Choices {
			out.WriteString(choice.Delta.Content)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCompletionFailed, err)
	}

	return strings.TrimSpace(out.String()), nil
}
