package services

import (
	"context"
	"encoding/base64"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"
)

// ImageModerator decides whether uploaded bytes may be published.
type ImageModerator interface {
	Check(ctx context.Context, data []byte) error
}

// Vision likelihood names, weakest first.
var likelihoodRank = map[string]int{
	"UNKNOWN":       0,
	"VERY_UNLIKELY": 1,
	"UNLIKELY":      2,
	"POSSIBLE":      3,
	"LIKELY":        4,
	"VERY_LIKELY":   5,
}

// SafeSearchModerator rejects images Vision SafeSearch rates at or above
// the threshold for adult, violent or racy content.
type SafeSearchModerator struct {
	vision    *vision.Service
	threshold int
	log       *zap.Logger
}

// NewSafeSearchModerator creates the Vision client once at server startup
// using Application Default Credentials.
func NewSafeSearchModerator(ctx context.Context, log *zap.Logger) (*SafeSearchModerator, error) {
	svc, err := vision.NewService(ctx, option.WithScopes(vision.CloudPlatformScope))
	if err != nil {
		return nil, fmt.Errorf("moderation: vision client: %w", err)
	}
	return &SafeSearchModerator{vision: svc, threshold: likelihoodRank["LIKELY"], log: log}, nil
}

func (m *SafeSearchModerator) Check(ctx context.Context, data []byte) error {
	call := m.vision.Images.Annotate(&vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image:    &vision.Image{Content: base64.StdEncoding.EncodeToString(data)},
			Features: []*vision.Feature{{Type: "SAFE_SEARCH_DETECTION"}},
		}},
	})
	resp, err := call.Context(ctx).Do()
	if err != nil {
		m.log.Warn("safesearch failed", zap.Error(err))
		return fmt.Errorf("moderation: safesearch: %w", err)
	}
	if len(resp.Responses) == 0 || resp.Responses[0].SafeSearchAnnotation == nil {
		return nil
	}

	ss := resp.Responses[0].SafeSearchAnnotation
	unsafe := unsafeAnnotation(ss, m.threshold)
	m.log.Debug("safesearch result",
		zap.String("adult", ss.Adult),
		zap.String("violence", ss.Violence),
		zap.String("racy", ss.Racy),
		zap.Bool("unsafe", unsafe),
	)
	if unsafe {
		return ErrImageRejected
	}
	return nil
}

// Spoof and medical ratings are ignored.
func unsafeAnnotation(ss *vision.SafeSearchAnnotation, threshold int) bool {
	for _, l := range []string{ss.Adult, ss.Violence, ss.Racy} {
		if likelihoodRank[l] >= threshold {
			return true
		}
	}
	return false
}
