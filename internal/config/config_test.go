package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"jarvis/internal/brain"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk-test")

	cfg, err := Load("", "")
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Audio.SampleRate != 44100 || cfg.Audio.Duration != 4*time.Second || cfg.Audio.Path != "input.wav" {
		t.Errorf("audio defaults: %+v", cfg.Audio)
	}
	if cfg.STT.Model != "whisper-large-v3" || cfg.STT.Language != "en" || cfg.STT.ResponseFormat != "json" {
		t.Errorf("stt defaults: %+v", cfg.STT)
	}
	if cfg.LLM.Provider != ProviderOpenAI || cfg.LLM.Model != "llama-3.1-8b-instant" ||
		cfg.LLM.Mode != "history" || cfg.LLM.Temperature != 0.5 || cfg.LLM.MaxTokens != 200 {
		t.Errorf("llm defaults: %+v", cfg.LLM)
	}
	if cfg.LLM.Persona != brain.DefaultPersona {
		t.Errorf("persona %q", cfg.LLM.Persona)
	}
	if !cfg.TTS.Enabled || cfg.TTS.Rate != 170 || cfg.TTS.Volume != 1.0 {
		t.Errorf("tts defaults: %+v", cfg.TTS)
	}
	if !slices.Equal(cfg.Session.ExitPhrases, []string{"goodbye", "exit"}) {
		t.Errorf("exit phrases %q", cfg.Session.ExitPhrases)
	}
	if cfg.Session.Cooldown != time.Second {
		t.Errorf("cooldown %v", cfg.Session.Cooldown)
	}
	if cfg.OpenAI.BaseURL != "https://api.groq.com/openai/v1" || cfg.OpenAI.APIKey != "gsk-test" {
		t.Errorf("openai: %+v", cfg.OpenAI)
	}
	if cfg.Control.Socket != "/tmp/jarvis.sock" {
		t.Errorf("socket %q", cfg.Control.Socket)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk-test")
	path := writeFile(t, "jarvis.yaml", `
audio:
  sample_rate: 16000
  duration: 2500ms
llm:
  mode: stateless
  max_tokens: 64
session:
  exit_phrases: [stop listening, shut down]
  max_turns: 1
`)

	cfg, err := Load(path, "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Audio.SampleRate != 16000 || cfg.Audio.Duration != 2500*time.Millisecond {
		t.Errorf("audio: %+v", cfg.Audio)
	}
	if cfg.LLM.Mode != "stateless" || cfg.LLM.MaxTokens != 64 {
		t.Errorf("llm: %+v", cfg.LLM)
	}
	if !slices.Equal(cfg.Session.ExitPhrases, []string{"stop listening", "shut down"}) {
		t.Errorf("exit phrases %q", cfg.Session.ExitPhrases)
	}
	if cfg.Session.MaxTurns != 1 {
		t.Errorf("max turns %d", cfg.Session.MaxTurns)
	}
	// untouched keys keep their defaults
	if cfg.STT.Model != "whisper-large-v3" {
		t.Errorf("stt model %q", cfg.STT.Model)
	}
}

func TestLoad_BlankPersonaFallsBack(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk-test")
	path := writeFile(t, "jarvis.yaml", "llm:\n  persona: \"  \"\n")

	cfg, err := Load(path, "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.Persona != brain.DefaultPersona {
		t.Errorf("persona %q, want the default", cfg.LLM.Persona)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk-test")
	t.Setenv("JARVIS_AUDIO_DURATION", "3s")
	t.Setenv("JARVIS_TTS_ENABLED", "false")
	t.Setenv("JARVIS_SESSION_EXIT_PHRASES", "quit, bye ,")
	t.Setenv("JARVIS_LLM_MODEL", "llama-3.3-70b-versatile")

	path := writeFile(t, "jarvis.yaml", "audio:\n  duration: 10s\n")
	cfg, err := Load(path, "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Audio.Duration != 3*time.Second {
		t.Errorf("env should beat file: duration %v", cfg.Audio.Duration)
	}
	if cfg.TTS.Enabled {
		t.Error("tts still enabled")
	}
	if !slices.Equal(cfg.Session.ExitPhrases, []string{"quit", "bye"}) {
		t.Errorf("exit phrases %q", cfg.Session.ExitPhrases)
	}
	if cfg.LLM.Model != "llama-3.3-70b-versatile" {
		t.Errorf("model %q", cfg.LLM.Model)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	t.Setenv("JARVIS_OPENAI_API_KEY_ENV", "JARVIS_TEST_ENVFILE_KEY")
	// t.Setenv registers cleanup; godotenv never overrides a set variable.
	t.Setenv("JARVIS_TEST_ENVFILE_KEY", "")
	os.Unsetenv("JARVIS_TEST_ENVFILE_KEY")

	env := writeFile(t, ".env", "JARVIS_TEST_ENVFILE_KEY=from-file\n")
	cfg, err := Load("", env)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.OpenAI.APIKey != "from-file" {
		t.Errorf("api key %q", cfg.OpenAI.APIKey)
	}
}

func TestLoad_MissingEnvFileIgnored(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk-test")
	if _, err := Load("", filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("missing env file should be ignored: %v", err)
	}
}

func TestLoad_MissingKey(t *testing.T) {
	t.Setenv("JARVIS_OPENAI_API_KEY_ENV", "JARVIS_TEST_UNSET_KEY")
	t.Setenv("JARVIS_TEST_UNSET_KEY", "")

	_, err := Load("", "")
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("got %v, want ConfigError", err)
	}
	if ce.Field != "openai.api_key_env" {
		t.Errorf("field %q", ce.Field)
	}
}

func TestLoad_GeminiKey(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk-test")
	t.Setenv("JARVIS_LLM_PROVIDER", "gemini")
	t.Setenv("JARVIS_GEMINI_API_KEY_ENV", "JARVIS_TEST_GEMINI_KEY")

	t.Setenv("JARVIS_TEST_GEMINI_KEY", "")
	if _, err := Load("", ""); err == nil {
		t.Fatal("expected missing gemini key")
	}

	t.Setenv("JARVIS_TEST_GEMINI_KEY", "AIza-test")
	cfg, err := Load("", "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Gemini.APIKey != "AIza-test" {
		t.Errorf("gemini key %q", cfg.Gemini.APIKey)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		env, value, field string
	}{
		{"JARVIS_AUDIO_SAMPLE_RATE", "0", "audio.sample_rate"},
		{"JARVIS_AUDIO_DURATION", "-1s", "audio.duration"},
		{"JARVIS_TTS_VOLUME", "1.5", "tts.volume"},
		{"JARVIS_LLM_MODE", "forgetful", "llm.mode"},
		{"JARVIS_LLM_PROVIDER", "anthropic", "llm.provider"},
		{"JARVIS_STT_RESPONSE_FORMAT", "srt", "stt.response_format"},
		{"JARVIS_SESSION_MAX_TURNS", "-2", "session.max_turns"},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			t.Setenv("GROQ_API_KEY", "gsk-test")
			t.Setenv(tt.env, tt.value)

			_, err := Load("", "")
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("got %v, want ConfigError", err)
			}
			if ce.Field != tt.field {
				t.Errorf("field %q, want %q", ce.Field, tt.field)
			}
		})
	}
}

func TestLoad_TranscribeOnlySkipsLLMChecks(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk-test")
	t.Setenv("JARVIS_LLM_ENABLED", "false")
	t.Setenv("JARVIS_LLM_PROVIDER", "none")

	cfg, err := Load("", "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.Enabled {
		t.Error("llm still enabled")
	}
}

func TestLoad_UnreadableConfig(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk-test")
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), "")
	var ce *ConfigError
	if !errors.As(err, &ce) || ce.Field != "config" {
		t.Fatalf("got %v, want config ConfigError", err)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"graceful", nil, 0},
		{"config", &ConfigError{Field: "llm.mode", Reason: "bad"}, 2},
		{"wrapped config", fmt.Errorf("boot: %w", &ConfigError{Field: "x"}), 2},
		{"session", errors.New("503 service unavailable"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}
