// Package generator asks the text-generation model for a synthesizer patch.
package generator

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/sashabaranov/go-openai"

	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/apierror"
)

//go:embed prompt.tmpl
var promptSource string

var promptTemplate = template.Must(template.New("prompt").Parse(promptSource))

var (
	ErrEmptyInput    = errors.New("input is required")
	ErrEmptyResponse = errors.New("model returned no content")
	ErrNotJSON       = errors.New("model response is not valid JSON")
)

type Client struct {
	keys    KeyProvider
	model   string
	baseURL string
	timeout time.Duration
}

func NewClient(keys KeyProvider, cfg *Config) *Client {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{keys: keys, model: model, baseURL: cfg.BaseURL, timeout: timeout}
}

// Prompt renders the full prompt sent for input.
func Prompt(input string) (string, error) {
	var buf bytes.Buffer
	if err := promptTemplate.Execute(&buf, struct{ Input string }{Input: input}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Generate returns the model's parameter list for input as raw JSON.
func (c *Client) Generate(ctx context.Context, input string) (json.RawMessage, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyInput
	}
	prompt, err := Prompt(input)
	if err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}

	key, err := c.keys.APIKey(ctx)
	if err != nil {
		return nil, apierror.Upstream(apierror.TextGenerator, fmt.Errorf("api key: %w", err))
	}
	oaiCfg := openai.DefaultConfig(key)
	if c.baseURL != "" {
		oaiCfg.BaseURL = c.baseURL
	}
	client := openai.NewClientWithConfig(oaiCfg)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	started := time.Now()
	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		log.Errorf("[Generator] completion failed after %s: %v", time.Since(started), err)
		return nil, apierror.Upstream(apierror.TextGenerator, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, apierror.Upstream(apierror.TextGenerator, ErrEmptyResponse)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if !json.Valid([]byte(content)) {
		return nil, apierror.Upstream(apierror.TextGenerator, ErrNotJSON)
	}
	log.Infof("[Generator] %s answered in %s (%d tokens)", c.model, time.Since(started), resp.Usage.TotalTokens)
	return json.RawMessage(content), nil
}
