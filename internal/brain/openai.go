package brain

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"

	openai "github.com/openai/openai-go/v3"

	"jarvis/internal/dialog"
)

// OpenAI answers through chat completions on any OpenAI-compatible endpoint.
type OpenAI struct {
	client openai.Client
	opt    Options
}

func NewOpenAI(client openai.Client, opt Options) *OpenAI {
	if opt.Mode == "" {
		opt.Mode = ModeHistory
	}
	return &OpenAI{client: client, opt: opt}
}

func (o *OpenAI) Respond(ctx context.Context, history []dialog.Utterance) (string, error) {
	reply, err := o.complete(ctx, Window(history, o.opt.Mode))
	if err != nil {
		return "", &GenerationError{Provider: "openai", Model: o.opt.Model, Err: err}
	}
	return reply, nil
}

func (o *OpenAI) complete(ctx context.Context, window []dialog.Utterance) (string, error) {
	messages, err := chatMessages(window)
	if err != nil {
		return "", err
	}

	params := openai.ChatCompletionNewParams{
		Messages:    messages,
		Model:       openai.ChatModel(o.opt.Model),
		Temperature: openai.Float(o.opt.Temperature),
	}
	if o.opt.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(o.opt.MaxTokens))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in response")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("empty message content")
	}

	log.Debug("Generated", "model", o.opt.Model, "messages", len(messages), "reply", content)

	return content, nil
}

func chatMessages(window []dialog.Utterance) ([]openai.ChatCompletionMessageParamUnion, error) {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(window))
	for _, u := range window {
		switch u.Role {
		case dialog.RoleSystem:
			out = append(out, openai.SystemMessage(u.Content))
		case dialog.RoleUser:
			out = append(out, openai.UserMessage(u.Content))
		case dialog.RoleAssistant:
			out = append(out, openai.AssistantMessage(u.Content))
		default:
			return nil, fmt.Errorf("unsupported role %q", u.Role)
		}
	}
	return out, nil
}
