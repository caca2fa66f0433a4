package stt

import (
	"context"
	"errors"
	"fmt"
	"os"

	openai "github.com/openai/openai-go/v3"
)

type Options struct {
	Model          string  // e.g. "whisper-large-v3"
	Language       string  // ISO-639-1, e.g. "en"; empty lets the service detect
	ResponseFormat string  // "json" or "verbose_json"
	Temperature    float64 // 0 = deterministic decoding
	Prompt         string  // optional vocabulary/style hint
}

// TranscriptionError is returned for every failed transcription, whether the
// file could not be read or the remote service rejected the request.
type TranscriptionError struct {
	Model string
	Err   error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcribe with %s: %v", e.Model, e.Err)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

// Transcriber sends recorded audio to an OpenAI-compatible speech-to-text endpoint.
type Transcriber struct {
	client openai.Client
	opt    Options
}

func NewTranscriber(client openai.Client, opt Options) *Transcriber {
	if opt.ResponseFormat == "" {
		opt.ResponseFormat = string(openai.AudioResponseFormatJSON)
	}
	return &Transcriber{client: client, opt: opt}
}

// Transcribe uploads the audio file at path and returns the transcript as the
// service sent it, untrimmed.
func (t *Transcriber) Transcribe(ctx context.Context, path string) (string, error) {
	if t.opt.Model == "" {
		return "", &TranscriptionError{Err: errors.New("empty model")}
	}

	f, err := os.Open(path)
	if err != nil {
		return "", &TranscriptionError{Model: t.opt.Model, Err: err}
	}
	defer f.Close()

	params := openai.AudioTranscriptionNewParams{
		File:           f,
		Model:          openai.AudioModel(t.opt.Model),
		ResponseFormat: openai.AudioResponseFormat(t.opt.ResponseFormat),
		Temperature:    openai.Float(t.opt.Temperature),
	}
	if t.opt.Language != "" {
		params.Language = openai.String(t.opt.Language)
	}
	if t.opt.Prompt != "" {
		params.Prompt = openai.String(t.opt.Prompt)
	}

	res, err := t.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", &TranscriptionError{Model: t.opt.Model, Err: err}
	}

	return res.Text, nil
}
