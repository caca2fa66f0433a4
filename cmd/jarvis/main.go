package main

import (
	"context"
	"net/http"
	"os"

	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"jarvis/internal/audio"
	"jarvis/internal/brain"
	"jarvis/internal/bus"
	"jarvis/internal/config"
	"jarvis/internal/console"
	"jarvis/internal/duck"
	"jarvis/internal/ipc"
	"jarvis/internal/notify"
	"jarvis/internal/proxy"
	"jarvis/internal/session"
	"jarvis/internal/tts"
	"jarvis/pkg/stt"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func setupLogger(level string) {
	log.SetDefault(log.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: logLevelMap[level],
	})))
}

func main() {
	os.Exit(run())
}

func run() int {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	configFile := cli.StringP("config", "c", "", "YAML config file")
	logLevel := cli.StringP("log", "l", "", "Log level (debug|info|warn|error)")
	cli.Parse()

	setupLogger("info")

	cfg, err := config.Load(*configFile, *envFile)
	if err != nil {
		log.Error("Failed to load config", "err", err)
		return config.ExitCode(err)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	setupLogger(cfg.LogLevel)

	log.Info("Booting up")

	ctx, cancel := ipc.NotifyContext(context.Background())
	defer cancel()

	ctl, err := ipc.Listen(cfg.Control.Socket, func(msg ipc.ControlMessage) {
		switch msg.Cmd {
		case ipc.CmdStop:
			log.Info("Stop requested")
			cancel()
		default:
			log.Warn("Unknown command", "cmd", msg.Cmd)
		}
	})
	if err != nil {
		log.Warn("Control socket unavailable", "socket", cfg.Control.Socket, "err", err)
	} else {
		defer ctl.Close()
	}

	httpClient, err := proxy.NewClient(cfg.Network.Proxy, cfg.Network.Timeout)
	if err != nil {
		log.Error("Failed to dial socks proxy", "proxy", cfg.Network.Proxy, "err", err)
		return 2
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.OpenAI.APIKey),
		option.WithBaseURL(cfg.OpenAI.BaseURL),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	)

	transcriber := stt.NewTranscriber(client, stt.Options{
		Model:          cfg.STT.Model,
		Language:       cfg.STT.Language,
		ResponseFormat: cfg.STT.ResponseFormat,
		Prompt:         cfg.STT.Prompt,
	})

	responder, err := newResponder(ctx, cfg, client, httpClient)
	if err != nil {
		log.Error("Failed to init responder", "provider", cfg.LLM.Provider, "err", err)
		return 1
	}

	rec := audio.NewRecorder()
	if err := rec.Init(); err != nil {
		log.Error("Failed to init audio", "err", err)
		return 1
	}
	defer rec.Close()

	if cfg.Audio.Duck {
		rec.WithDucker(duck.New([]string{"jarvis", "espeak-ng", "espeak"}, 5), audio.DuckOptions{
			Factor: cfg.Audio.DuckFactor,
			Fade:   cfg.Audio.DuckFade,
		})
	}

	log.Debug("Loaded recorder")

	deps := session.Deps{
		Capturer:    rec,
		Transcriber: transcriber,
		Responder:   responder,
	}
	if cfg.TTS.Enabled {
		deps.Speaker = tts.NewEspeak(cfg.TTS.Voice, cfg.TTS.Rate, cfg.TTS.Volume)
	}
	if cfg.Audio.Cue != "" {
		cue, err := notify.LoadCue(ctx, cfg.Audio.Cue)
		if err != nil {
			log.Warn("Failed to load cue, continuing without", "cue", cfg.Audio.Cue, "err", err)
		} else {
			deps.Chime = cue
		}
	}

	reporters := session.Reporters{console.New(os.Stdout, "Jarvis", console.DefaultTheme)}
	if cfg.Bus.URL != "" {
		b, err := bus.Dial(cfg.Bus.URL, "jarvis")
		if err != nil {
			log.Warn("Failed to connect to bus", "url", cfg.Bus.URL, "err", err)
		} else {
			defer b.Close()
			reporters = append(reporters, b)
		}
	}
	deps.Reporter = reporters

	loop, err := session.New(session.Config{
		Persona:         cfg.LLM.Persona,
		Greeting:        cfg.Session.Greeting,
		Farewell:        cfg.Session.Farewell,
		ExitPhrases:     cfg.Session.ExitPhrases,
		CaptureDuration: cfg.Audio.Duration,
		SampleRate:      cfg.Audio.SampleRate,
		AudioPath:       cfg.Audio.Path,
		Cooldown:        cfg.Session.Cooldown,
		MaxTurns:        cfg.Session.MaxTurns,
		KeepAudio:       cfg.Session.KeepAudio,
	}, deps)
	if err != nil {
		log.Error("Failed to create session", "err", err)
		return 1
	}

	log.Info("Boot up - successful", "session", loop.ID())

	if err := loop.Run(ctx); err != nil {
		log.Error("Session failed", "err", err)
		return config.ExitCode(err)
	}
	return 0
}

// newResponder returns nil when replies are disabled, leaving a transcribe-only loop.
func newResponder(ctx context.Context, cfg config.Config, client openai.Client, httpClient *http.Client) (session.Responder, error) {
	if !cfg.LLM.Enabled {
		return nil, nil
	}

	mode, err := brain.ParseMode(cfg.LLM.Mode)
	if err != nil {
		return nil, err
	}
	opt := brain.Options{
		Model:       cfg.LLM.Model,
		Mode:        mode,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	}

	switch cfg.LLM.Provider {
	case config.ProviderGemini:
		return brain.NewGemini(ctx, cfg.Gemini.APIKey, httpClient, opt)
	default:
		return brain.NewOpenAI(client, opt), nil
	}
}
