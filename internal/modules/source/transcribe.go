package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/compresso/core/internal/config"
	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"go.uber.org/zap"
)

// Transcriber converts an audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

func newTranscriber(cfg *config.AppConfig, logger *zap.Logger) Transcriber {
	switch cfg.Whisper.Mode {
	case config.WhisperOpenAI:
		return &openaiTranscriber{
			client: openai.NewClient(option.WithAPIKey(cfg.Providers.OpenAIAPIKey)),
			logger: logger,
		}
	case config.WhisperLocal:
		return &localTranscriber{model: cfg.Whisper.Model, logger: logger}
	}
	return disabledTranscriber{}
}

// localTranscriber shells out to a whisper CLI on the host.
type localTranscriber struct {
	model  string
	logger *zap.Logger
}

func (t *localTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	t.logger.Info("transcribing with local whisper model", zap.String("model", t.model))

	outDir := filepath.Dir(audioPath)
	cmd := exec.CommandContext(ctx, "whisper", audioPath,
		"--model", t.model,
		"--output_format", "txt",
		"--output_dir", outDir,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("whisper: %w: %s", err, strings.TrimSpace(string(output)))
	}

	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	data, err := os.ReadFile(filepath.Join(outDir, base+".txt"))
	if err != nil {
		return "", fmt.Errorf("whisper output missing: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// openaiTranscriber uses the hosted transcription API.
type openaiTranscriber struct {
	client openai.Client
	logger *zap.Logger
}

func (t *openaiTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	t.logger.Info("transcribing with openai transcription api")

	f, err := os.Open(audioPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	resp, err := t.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model: openai.AudioModelWhisper1,
		File:  f,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// disabledTranscriber exists only to keep the provider wiring total; the
// caption-less path checks the mode before reaching it.
type disabledTranscriber struct{}

func (disabledTranscriber) Transcribe(context.Context, string) (string, error) {
	return "", errors.New("transcription is disabled")
}
