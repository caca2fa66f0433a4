package brain

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"jarvis/internal/dialog"
)

// Gemini answers through the Gemini API.
type Gemini struct {
	client *genai.Client
	opt    Options
}

// NewGemini builds the client once; httpClient may be nil.
func NewGemini(ctx context.Context, apiKey string, httpClient *http.Client, opt Options) (*Gemini, error) {
	return newGemini(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}, opt)
}

func newGemini(ctx context.Context, cc *genai.ClientConfig, opt Options) (*Gemini, error) {
	if opt.Mode == "" {
		opt.Mode = ModeHistory
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Gemini{client: client, opt: opt}, nil
}

func (g *Gemini) Respond(ctx context.Context, history []dialog.Utterance) (string, error) {
	reply, err := g.generate(ctx, Window(history, g.opt.Mode))
	if err != nil {
		return "", &GenerationError{Provider: "gemini", Model: g.opt.Model, Err: err}
	}
	return reply, nil
}

func (g *Gemini) generate(ctx context.Context, window []dialog.Utterance) (string, error) {
	system, contents, err := geminiContents(window)
	if err != nil {
		return "", err
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: system,
		Temperature:       genai.Ptr(float32(g.opt.Temperature)),
	}
	if g.opt.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(g.opt.MaxTokens)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.opt.Model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", errors.New("no candidates")
	}

	content := strings.TrimSpace(resp.Text())
	if content == "" {
		return "", fmt.Errorf("empty reply (finish reason %s)", resp.Candidates[0].FinishReason)
	}

	log.Debug("Generated", "model", g.opt.Model, "contents", len(contents), "reply", content)

	return content, nil
}

// geminiContents moves system utterances into the system instruction and maps
// assistant turns to the model role.
func geminiContents(window []dialog.Utterance) (*genai.Content, []*genai.Content, error) {
	var (
		system   *genai.Content
		contents []*genai.Content
	)
	for _, u := range window {
		switch u.Role {
		case dialog.RoleSystem:
			if system == nil {
				system = &genai.Content{}
			}
			system.Parts = append(system.Parts, genai.NewPartFromText(u.Content))
		case dialog.RoleUser:
			contents = append(contents, genai.NewContentFromText(u.Content, genai.RoleUser))
		case dialog.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(u.Content, genai.RoleModel))
		default:
			return nil, nil, fmt.Errorf("unsupported role %q", u.Role)
		}
	}
	if len(contents) == 0 {
		return nil, nil, errors.New("nothing to answer")
	}
	return system, contents, nil
}
