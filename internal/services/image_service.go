package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventhub/backend/internal/models"
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

type ImageService struct {
	mu        sync.RWMutex
	backend   ImageBackend
	moderator ImageModerator
	maxSize   int64
	allowed   map[string]bool
	images    map[string]*imageRecord // imageID -> image info
	log       *zap.Logger
}

type imageRecord struct {
	ID       string
	Filename string
	URL      string
	UserID   string
}

// NewImageService accepts a nil moderator when image moderation is off.
func NewImageService(backend ImageBackend, moderator ImageModerator, maxSize int64, allowedTypes []string, log *zap.Logger) *ImageService {
	allowed := make(map[string]bool, len(allowedTypes))
	for _, t := range allowedTypes {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "image/jpg" {
			t = "image/jpeg"
		}
		allowed[t] = true
	}
	return &ImageService{
		backend:   backend,
		moderator: moderator,
		maxSize:   maxSize,
		allowed:   allowed,
		images:    make(map[string]*imageRecord),
		log:       log,
	}
}

// Upload sniffs the content type from the bytes themselves; the client's
// filename and header are ignored.
func (s *ImageService) Upload(ctx context.Context, userID string, file io.Reader) (*models.ImageUploadResponse, error) {
	data, err := io.ReadAll(io.LimitReader(file, s.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxSize {
		return nil, ErrImageTooLarge
	}
	if len(data) == 0 {
		return nil, ErrInvalidImage
	}

	contentType := http.DetectContentType(data)
	ext, known := imageExtensions[contentType]
	if !known || !s.allowed[contentType] {
		return nil, ErrInvalidImage
	}

	if s.moderator != nil {
		if err := s.moderator.Check(ctx, data); err != nil {
			if errors.Is(err, ErrImageRejected) {
				s.log.Info("image rejected", zap.String("userId", userID))
			}
			return nil, err
		}
	}

	imageID := uuid.NewString()
	filename := imageID + ext
	url, err := s.backend.Put(ctx, filename, contentType, data)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.images[imageID] = &imageRecord{
		ID:       imageID,
		Filename: filename,
		URL:      url,
		UserID:   userID,
	}
	s.mu.Unlock()

	return &models.ImageUploadResponse{
		ID:       imageID,
		URL:      url,
		Filename: filename,
	}, nil
}

func (s *ImageService) Delete(ctx context.Context, userID, imageID string) error {
	s.mu.Lock()
	record, exists := s.images[imageID]
	switch {
	case !exists:
		s.mu.Unlock()
		return ErrImageNotFound
	case record.UserID != userID:
		s.mu.Unlock()
		return ErrNotImageOwner
	}
	delete(s.images, imageID)
	s.mu.Unlock()

	// The backend may be remote; other uploads and lookups proceed meanwhile.
	if err := s.backend.Delete(ctx, record.Filename); err != nil {
		s.mu.Lock()
		if _, taken := s.images[imageID]; !taken {
			s.images[imageID] = record
		}
		s.mu.Unlock()
		s.log.Warn("image delete failed", zap.String("imageId", imageID), zap.Error(err))
		return err
	}
	return nil
}
