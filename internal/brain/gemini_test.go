package brain

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/genai"
)

type geminiRequest struct {
	Contents []struct {
		Role  string `json:"role"`
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
	SystemInstruction *struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"systemInstruction"`
	GenerationConfig struct {
		MaxOutputTokens int `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

func geminiServer(t *testing.T, reply string, got *geminiRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "gemini-test:generateContent") {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"role":  "model",
					"parts": []map[string]any{{"text": reply}},
				},
				"finishReason": "STOP",
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestGemini(t *testing.T, url string, opt Options) *Gemini {
	t.Helper()
	g, err := newGemini(context.Background(), &genai.ClientConfig{
		APIKey:      "test-key",
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: url},
	}, opt)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestGemini_RespondHistory(t *testing.T) {
	var req geminiRequest
	srv := geminiServer(t, "  Four.  \n", &req)

	g := newTestGemini(t, srv.URL, Options{Model: "gemini-test", Temperature: 0.5, MaxTokens: 200})

	reply, err := g.Respond(context.Background(), conversation())
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if reply != "Four." {
		t.Errorf("got %q, want trimmed reply", reply)
	}

	if req.SystemInstruction == nil || len(req.SystemInstruction.Parts) != 1 ||
		req.SystemInstruction.Parts[0].Text != "Be brief." {
		t.Errorf("system instruction: got %+v", req.SystemInstruction)
	}
	wantRoles := []string{"user", "model", "user"}
	if len(req.Contents) != len(wantRoles) {
		t.Fatalf("got %d contents, want %d", len(req.Contents), len(wantRoles))
	}
	for i, c := range req.Contents {
		if c.Role != wantRoles[i] {
			t.Errorf("content %d: got role %q, want %q", i, c.Role, wantRoles[i])
		}
	}
	if req.GenerationConfig.MaxOutputTokens != 200 {
		t.Errorf("maxOutputTokens: got %d", req.GenerationConfig.MaxOutputTokens)
	}
}

func TestGemini_RespondStateless(t *testing.T) {
	var req geminiRequest
	srv := geminiServer(t, "Four.", &req)

	g := newTestGemini(t, srv.URL, Options{Model: "gemini-test", Mode: ModeStateless})

	if _, err := g.Respond(context.Background(), conversation()); err != nil {
		t.Fatalf("respond: %v", err)
	}
	if len(req.Contents) != 1 || req.Contents[0].Parts[0].Text != "what is two plus two" {
		t.Errorf("got %+v, want only the latest user text", req.Contents)
	}
}

func TestGemini_EmptyReply(t *testing.T) {
	var req geminiRequest
	srv := geminiServer(t, "   ", &req)

	g := newTestGemini(t, srv.URL, Options{Model: "gemini-test"})

	_, err := g.Respond(context.Background(), conversation())
	var gerr *GenerationError
	if !errors.As(err, &gerr) {
		t.Fatalf("got %v, want GenerationError", err)
	}
	if gerr.Provider != "gemini" || gerr.Model != "gemini-test" {
		t.Errorf("got %+v", gerr)
	}
}

func TestGemini_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"code":400,"message":"model not found","status":"INVALID_ARGUMENT"}}`)
	}))
	defer srv.Close()

	g := newTestGemini(t, srv.URL, Options{Model: "gemini-test"})

	_, err := g.Respond(context.Background(), conversation())
	var gerr *GenerationError
	if !errors.As(err, &gerr) {
		t.Fatalf("got %v, want GenerationError", err)
	}
	if gerr.Provider != "gemini" || gerr.Err == nil {
		t.Errorf("got %+v", gerr)
	}
	if !strings.Contains(err.Error(), "model not found") {
		t.Errorf("cause lost: %v", err)
	}
}
