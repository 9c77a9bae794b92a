package transcript

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kkdai/youtube/v2"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

var DefaultLanguages = []string{"zh-Hans", "zh-Hant", "en"}

type videoClient interface {
	GetVideoContext(ctx context.Context, url string) (*youtube.Video, error)
	GetTranscriptCtx(ctx context.Context, video *youtube.Video, lang string) (youtube.VideoTranscript, error)
}

// YouTubeFetcher fetches captions, preferring languages in order and falling
// back to the first caption track the video has.
type YouTubeFetcher struct {
	client    videoClient
	languages []string
}

func NewYouTubeFetcher(languages []string) *YouTubeFetcher {
	return newYouTubeFetcher(&youtube.Client{}, languages)
}

func newYouTubeFetcher(client videoClient, languages []string) *YouTubeFetcher {
	if len(languages) == 0 {
		languages = DefaultLanguages
	}
	return &YouTubeFetcher{client: client, languages: languages}
}

func (f *YouTubeFetcher) Fetch(ctx context.Context, ref string, startMin, endMin *float64) (string, error) {
	id := ExtractVideoID(ref)
	if id == "" {
		return "", fmt.Errorf("%w: %s", ErrInvalidReference, ref)
	}
	logger := logutil.GetLogger(ctx).With(zap.String("video_id", id))
	video, err := f.client.GetVideoContext(ctx, id)
	if err != nil {
		return "", fmt.Errorf("load video %s: %w", id, err)
	}
	lang, ok := f.pickLanguage(video)
	if !ok {
		return "", fmt.Errorf("video %s: %w", id, ErrNoCaptions)
	}
	logger.Debug("fetching transcript", zap.String("lang", lang))
	raw, err := f.client.GetTranscriptCtx(ctx, video, lang)
	if err != nil {
		if errors.Is(err, youtube.ErrTranscriptDisabled) {
			return "", fmt.Errorf("video %s: %w", id, ErrNoCaptions)
		}
		return "", fmt.Errorf("fetch transcript %s/%s: %w", id, lang, err)
	}
	segments := make([]Segment, 0, len(raw))
	for _, item := range raw {
		segments = append(segments, Segment{Start: float64(item.StartMs) / 1000, Text: item.Text})
	}
	text := JoinSegments(segments, startMin, endMin)
	if text == "" {
		return "", fmt.Errorf("video %s: %w", id, ErrEmptyTranscript)
	}
	logger.Info("transcript fetched", zap.String("lang", lang), zap.Int("segments", len(segments)), zap.Int("chars", len(text)))
	return text, nil
}

func (f *YouTubeFetcher) pickLanguage(video *youtube.Video) (string, bool) {
	if video == nil || len(video.CaptionTracks) == 0 {
		return "", false
	}
	available := make(map[string]string, len(video.CaptionTracks))
	for _, track := range video.CaptionTracks {
		key := strings.ToLower(track.LanguageCode)
		if _, ok := available[key]; !ok {
			available[key] = track.LanguageCode
		}
	}
	for _, lang := range f.languages {
		if code, ok := available[strings.ToLower(lang)]; ok {
			return code, true
		}
	}
	return video.CaptionTracks[0].LanguageCode, true
}
