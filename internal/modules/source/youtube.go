package source

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/compresso/core/internal/config"
	"github.com/compresso/core/internal/models"
	youtube "github.com/kkdai/youtube/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// errNoCaptions marks the content-absence condition that triggers the
// transcription fallback. Transport errors never map to it.
var errNoCaptions = errors.New("video has no caption tracks")

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/)([^&\n?#]+)`),
	regexp.MustCompile(`youtube\.com/embed/([^&\n?#]+)`),
}

// extractVideoID normalizes a YouTube URL to a bare video id. Inputs that
// match no known URL shape are assumed to already be ids.
func extractVideoID(raw string) string {
	for _, pattern := range videoIDPatterns {
		if m := pattern.FindStringSubmatch(raw); m != nil {
			return m[1]
		}
	}
	return raw
}

// videoClient is the slice of the youtube API the provider depends on,
// split out so video metadata and streams can be substituted in tests.
type videoClient interface {
	GetVideoContext(ctx context.Context, id string) (*youtube.Video, error)
	GetStreamContext(ctx context.Context, video *youtube.Video, format *youtube.Format) (io.ReadCloser, int64, error)
}

// YouTubeProvider retrieves transcripts with a two-tier strategy: caption
// tracks first, audio download plus transcription when no captions exist.
type YouTubeProvider struct {
	client      videoClient
	httpClient  *http.Client
	transcriber Transcriber
	whisperMode string
	// sem bounds concurrent audio transcription jobs; one job may block
	// for minutes and must not stall unrelated pipeline executions.
	sem    *semaphore.Weighted
	logger *zap.Logger
}

func NewYouTubeProvider(cfg *config.AppConfig, logger *zap.Logger) *YouTubeProvider {
	return &YouTubeProvider{
		client:      &youtube.Client{},
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		transcriber: newTranscriber(cfg, logger),
		whisperMode: cfg.Whisper.Mode,
		sem:         semaphore.NewWeighted(cfg.Whisper.MaxConcurrent),
		logger:      logger,
	}
}

func (p *YouTubeProvider) Acquire(ctx context.Context, input string) (*Content, error) {
	videoID := extractVideoID(input)
	p.logger.Info("getting transcript", zap.String("video_id", videoID))

	content, err := p.fromCaptions(ctx, videoID)
	if err == nil {
		p.logger.Info("got transcript from caption tracks", zap.String("video_id", videoID))
		content.Meta[models.MetaVideoID] = videoID
		return content, nil
	}
	if !errors.Is(err, errNoCaptions) {
		// Transport and parse errors propagate; only content absence
		// falls through to transcription.
		return nil, err
	}

	p.logger.Warn("no captions available, falling back to transcription",
		zap.String("video_id", videoID),
	)
	if p.whisperMode == config.WhisperDisabled {
		return nil, &models.AcquisitionError{
			Reason: "no transcript available for this video and transcription is disabled; " +
				"enable whisper in settings or choose a video with captions",
			Cause: err,
		}
	}

	content, err = p.fromAudio(ctx, videoID)
	if err != nil {
		return nil, err
	}
	content.Meta[models.MetaVideoID] = videoID
	return content, nil
}

// fromCaptions fetches the structured caption track and formats each segment
// as "[mm:ss] text".
func (p *YouTubeProvider) fromCaptions(ctx context.Context, videoID string) (*Content, error) {
	video, err := p.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return nil, &models.AcquisitionError{Reason: "failed to load video metadata", Cause: err}
	}
	if len(video.CaptionTracks) == 0 {
		return nil, errNoCaptions
	}

	track := pickCaptionTrack(video.CaptionTracks)
	segments, err := p.fetchCaptionSegments(ctx, track.BaseURL)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, errNoCaptions
	}

	lines := make([]string, 0, len(segments))
	timestamps := make([]models.TimestampEntry, 0, len(segments))
	for _, seg := range segments {
		minutes := int(seg.Start) / 60
		seconds := int(seg.Start) % 60
		stamp := fmt.Sprintf("[%02d:%02d]", minutes, seconds)
		text := strings.ReplaceAll(html.UnescapeString(seg.Text), "\n", " ")

		lines = append(lines, stamp+" "+text)
		timestamps = append(timestamps, models.TimestampEntry{
			Time:      seg.Start,
			Timestamp: stamp,
			Text:      text,
		})
	}

	return &Content{
		Text: strings.Join(lines, "\n"),
		Meta: map[string]interface{}{
			models.MetaHasTimestamps: true,
			models.MetaTimestamps:    timestamps,
			models.MetaSource:        "youtube_api",
		},
	}, nil
}

// pickCaptionTrack prefers a manually authored English track, then any
// English track, then the first available one.
func pickCaptionTrack(tracks []youtube.CaptionTrack) youtube.CaptionTrack {
	for _, t := range tracks {
		if strings.HasPrefix(t.LanguageCode, "en") && t.Kind != "asr" {
			return t
		}
	}
	for _, t := range tracks {
		if strings.HasPrefix(t.LanguageCode, "en") {
			return t
		}
	}
	return tracks[0]
}

type captionSegment struct {
	Start float64 `xml:"start,attr"`
	Dur   float64 `xml:"dur,attr"`
	Text  string  `xml:",chardata"`
}

type captionDocument struct {
	XMLName  xml.Name         `xml:"transcript"`
	Segments []captionSegment `xml:"text"`
}

func (p *YouTubeProvider) fetchCaptionSegments(ctx context.Context, baseURL string) ([]captionSegment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
	if err != nil {
		return nil, &models.AcquisitionError{Reason: "invalid caption track url", Cause: err}
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &models.AcquisitionError{Reason: "failed to fetch caption track", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &models.AcquisitionError{
			Reason: fmt.Sprintf("failed to fetch caption track: status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &models.AcquisitionError{Reason: "failed to read caption track", Cause: err}
	}
	return parseCaptionXML(body)
}

func parseCaptionXML(data []byte) ([]captionSegment, error) {
	var doc captionDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, &models.AcquisitionError{Reason: "failed to parse caption track", Cause: err}
	}
	return doc.Segments, nil
}

// fromAudio downloads the best available audio into a scoped temp directory
// and transcribes it. The audio artifact never outlives the attempt.
func (p *YouTubeProvider) fromAudio(ctx context.Context, videoID string) (*Content, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, &models.AcquisitionError{Reason: "transcription queue unavailable", Cause: err}
	}
	defer p.sem.Release(1)

	tmpDir, err := os.MkdirTemp("", "compresso-audio-*")
	if err != nil {
		return nil, &models.AcquisitionError{Reason: "failed to create temp dir", Cause: err}
	}
	defer os.RemoveAll(tmpDir)

	audioPath := filepath.Join(tmpDir, "audio.m4a")
	if err := p.downloadAudio(ctx, videoID, audioPath); err != nil {
		return nil, &models.AcquisitionError{
			Reason: "could not download video audio, this may be due to platform restrictions; " +
				"try a different video or check the whisper configuration",
			Cause: err,
		}
	}

	text, err := p.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return nil, &models.AcquisitionError{Reason: "transcription failed", Cause: err}
	}

	return &Content{
		Text: text,
		Meta: map[string]interface{}{
			models.MetaHasTimestamps: false,
			models.MetaSource:        "whisper_" + p.whisperMode,
		},
	}, nil
}

func (p *YouTubeProvider) downloadAudio(ctx context.Context, videoID, dest string) error {
	p.logger.Info("downloading audio", zap.String("video_id", videoID))

	video, err := p.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return err
	}

	formats := video.Formats.Type("audio")
	if len(formats) == 0 {
		formats = video.Formats.WithAudioChannels()
	}
	if len(formats) == 0 {
		return errors.New("no audio formats available")
	}
	formats.Sort()

	stream, _, err := p.client.GetStreamContext(ctx, video, &formats[0])
	if err != nil {
		return err
	}
	defer stream.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, stream)
	return err
}
