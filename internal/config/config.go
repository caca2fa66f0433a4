// Package config loads jarvis settings from defaults, an optional YAML file,
// an optional env file and JARVIS_* environment variables, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"jarvis/internal/brain"
)

const EnvPrefix = "JARVIS"

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

type Config struct {
	Audio    AudioConfig    `mapstructure:"audio"`
	STT      STTConfig      `mapstructure:"stt"`
	LLM      LLMConfig      `mapstructure:"llm"`
	TTS      TTSConfig      `mapstructure:"tts"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Gemini   GeminiConfig   `mapstructure:"gemini"`
	Session  SessionConfig  `mapstructure:"session"`
	Control  ControlConfig  `mapstructure:"control"`
	Bus      BusConfig      `mapstructure:"bus"`
	Network  NetworkConfig  `mapstructure:"network"`
	LogLevel string         `mapstructure:"log_level"`
}

type AudioConfig struct {
	SampleRate int           `mapstructure:"sample_rate"`
	Duration   time.Duration `mapstructure:"duration"`
	Path       string        `mapstructure:"path"`
	Duck       bool          `mapstructure:"duck"`
	DuckFactor float64       `mapstructure:"duck_factor"`
	DuckFade   time.Duration `mapstructure:"duck_fade"`
	Cue        string        `mapstructure:"cue"`
}

type STTConfig struct {
	Model          string `mapstructure:"model"`
	Language       string `mapstructure:"language"`
	ResponseFormat string `mapstructure:"response_format"`
	Prompt         string `mapstructure:"prompt"`
}

type LLMConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Provider    string  `mapstructure:"provider"`
	Model       string  `mapstructure:"model"`
	Mode        string  `mapstructure:"mode"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Persona     string  `mapstructure:"persona"`
}

type TTSConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	Rate    int     `mapstructure:"rate"`
	Volume  float64 `mapstructure:"volume"`
	Voice   string  `mapstructure:"voice"`
}

type OpenAIConfig struct {
	APIKeyEnv string `mapstructure:"api_key_env"`
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"-"`
}

type GeminiConfig struct {
	APIKeyEnv string `mapstructure:"api_key_env"`
	APIKey    string `mapstructure:"-"`
}

type SessionConfig struct {
	ExitPhrases []string      `mapstructure:"exit_phrases"`
	Cooldown    time.Duration `mapstructure:"cooldown"`
	MaxTurns    int           `mapstructure:"max_turns"`
	KeepAudio   bool          `mapstructure:"keep_audio"`
	Greeting    string        `mapstructure:"greeting"`
	Farewell    string        `mapstructure:"farewell"`
}

type ControlConfig struct {
	Socket string `mapstructure:"socket"`
}

type BusConfig struct {
	URL string `mapstructure:"url"`
}

type NetworkConfig struct {
	Proxy   string        `mapstructure:"proxy"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ConfigError reports a missing or invalid setting. The process exits with
// status 2 when one reaches main.
type ConfigError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func setDefaults(v *viper.Viper) {
	v.SetDefault("audio.sample_rate", 44100)
	v.SetDefault("audio.duration", "4s")
	v.SetDefault("audio.path", "input.wav")
	v.SetDefault("audio.duck", false)
	v.SetDefault("audio.duck_factor", 0.3)
	v.SetDefault("audio.duck_fade", "200ms")
	v.SetDefault("audio.cue", "")
	v.SetDefault("stt.model", "whisper-large-v3")
	v.SetDefault("stt.language", "en")
	v.SetDefault("stt.response_format", "json")
	v.SetDefault("stt.prompt", "")
	v.SetDefault("llm.enabled", true)
	v.SetDefault("llm.provider", ProviderOpenAI)
	v.SetDefault("llm.model", "llama-3.1-8b-instant")
	v.SetDefault("llm.mode", string(brain.ModeHistory))
	v.SetDefault("llm.temperature", 0.5)
	v.SetDefault("llm.max_tokens", 200)
	v.SetDefault("llm.persona", brain.DefaultPersona)
	v.SetDefault("tts.enabled", true)
	v.SetDefault("tts.rate", 170)
	v.SetDefault("tts.volume", 1.0)
	v.SetDefault("tts.voice", "en")
	v.SetDefault("openai.api_key_env", "GROQ_API_KEY")
	v.SetDefault("openai.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("gemini.api_key_env", "GEMINI_API_KEY")
	v.SetDefault("session.exit_phrases", []string{"goodbye", "exit"})
	v.SetDefault("session.cooldown", "1s")
	v.SetDefault("session.max_turns", 0)
	v.SetDefault("session.keep_audio", false)
	v.SetDefault("session.greeting", "Jarvis online. How can I help?")
	v.SetDefault("session.farewell", "Goodbye.")
	v.SetDefault("control.socket", "/tmp/jarvis.sock")
	v.SetDefault("bus.url", "")
	v.SetDefault("network.proxy", "")
	v.SetDefault("network.timeout", "120s")
	v.SetDefault("log_level", "info")
}

// Load reads configFile (YAML, optional) and envFile (optional; a missing
// file is not an error), then resolves API keys from the environment.
func Load(configFile, envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, &ConfigError{Field: "env", Reason: "cannot read " + envFile, Err: err}
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, &ConfigError{Field: "config", Reason: "cannot read " + configFile, Err: err}
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return Config{}, &ConfigError{Field: "config", Reason: "unmarshal", Err: err}
	}
	cfg.Session.ExitPhrases = cleanPhrases(cfg.Session.ExitPhrases)
	if strings.TrimSpace(cfg.LLM.Persona) == "" {
		cfg.LLM.Persona = brain.DefaultPersona
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	if err := cfg.resolveKeys(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late, after the
// microphone is already open.
func (c *Config) Validate() error {
	switch {
	case c.Audio.SampleRate <= 0:
		return &ConfigError{Field: "audio.sample_rate", Reason: "must be positive"}
	case c.Audio.Duration <= 0:
		return &ConfigError{Field: "audio.duration", Reason: "must be positive"}
	case c.Audio.Path == "":
		return &ConfigError{Field: "audio.path", Reason: "must not be empty"}
	case c.Audio.DuckFactor < 0 || c.Audio.DuckFactor > 1:
		return &ConfigError{Field: "audio.duck_factor", Reason: "must be within [0, 1]"}
	case c.STT.Model == "":
		return &ConfigError{Field: "stt.model", Reason: "must not be empty"}
	case c.STT.ResponseFormat != "json" && c.STT.ResponseFormat != "verbose_json":
		return &ConfigError{Field: "stt.response_format", Reason: "must be json or verbose_json"}
	case c.TTS.Volume < 0 || c.TTS.Volume > 1:
		return &ConfigError{Field: "tts.volume", Reason: "must be within [0, 1]"}
	case c.Session.Cooldown < 0:
		return &ConfigError{Field: "session.cooldown", Reason: "must not be negative"}
	case c.Session.MaxTurns < 0:
		return &ConfigError{Field: "session.max_turns", Reason: "must not be negative"}
	}

	if !c.LLM.Enabled {
		return nil
	}
	if c.LLM.Provider != ProviderOpenAI && c.LLM.Provider != ProviderGemini {
		return &ConfigError{Field: "llm.provider", Reason: fmt.Sprintf("unknown provider %q", c.LLM.Provider)}
	}
	if c.LLM.Model == "" {
		return &ConfigError{Field: "llm.model", Reason: "must not be empty"}
	}
	if _, err := brain.ParseMode(c.LLM.Mode); err != nil {
		return &ConfigError{Field: "llm.mode", Reason: "must be history or stateless", Err: err}
	}
	if c.LLM.MaxTokens <= 0 {
		return &ConfigError{Field: "llm.max_tokens", Reason: "must be positive"}
	}
	return nil
}

// resolveKeys reads the API keys named by *.api_key_env. The speech-to-text
// key is always needed; the Gemini key only when that provider is selected.
func (c *Config) resolveKeys() error {
	c.OpenAI.APIKey = os.Getenv(c.OpenAI.APIKeyEnv)
	if c.OpenAI.APIKey == "" {
		return &ConfigError{Field: "openai.api_key_env", Reason: c.OpenAI.APIKeyEnv + " not set"}
	}

	if c.LLM.Enabled && c.LLM.Provider == ProviderGemini {
		c.Gemini.APIKey = os.Getenv(c.Gemini.APIKeyEnv)
		if c.Gemini.APIKey == "" {
			return &ConfigError{Field: "gemini.api_key_env", Reason: c.Gemini.APIKeyEnv + " not set"}
		}
	}
	return nil
}

func cleanPhrases(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ExitCode maps the error that ended the process to its exit status:
// 0 for a graceful stop, 2 for configuration problems, 1 for anything else.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ce *ConfigError
	if errors.As(err, &ce) {
		return 2
	}
	return 1
}
