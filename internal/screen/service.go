package screen

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"
)

// Service wraps a Source and an Injector with frame caching, bounded retry
// and backoff. All capture and injection in the engine goes through here so
// flaky external resources are handled in one place.
type Service struct {
	source   Source
	injector Injector

	// Frame caching for rapid consecutive matches against one screen state
	cachedFrame     *image.RGBA
	cachedFrameTime time.Time
	cacheDuration   time.Duration

	maxAttempts int
	backoff     time.Duration

	mu sync.Mutex
}

// NewService creates a screen service with default retry settings.
func NewService(source Source, injector Injector) *Service {
	return &Service{
		source:        source,
		injector:      injector,
		cacheDuration: 100 * time.Millisecond,
		maxAttempts:   3,
		backoff:       250 * time.Millisecond,
	}
}

// WithCacheDuration sets how long a captured frame stays valid.
func (s *Service) WithCacheDuration(d time.Duration) *Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cacheDuration = d
	return s
}

// WithRetry sets the bounded retry policy for capture and injection.
func (s *Service) WithRetry(maxAttempts int, backoff time.Duration) *Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	if maxAttempts > 0 {
		s.maxAttempts = maxAttempts
	}
	s.backoff = backoff
	return s
}

// CaptureFrame captures the current frame, optionally reusing a cached one.
func (s *Service) CaptureFrame(ctx context.Context, useCache bool) (*image.RGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if useCache && s.cachedFrame != nil {
		if time.Since(s.cachedFrameTime) < s.cacheDuration {
			return s.cachedFrame, nil
		}
	}

	var frame *image.RGBA
	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		frame, err = s.source.Capture()
		if err == nil {
			break
		}
		if attempt == s.maxAttempts {
			return nil, fmt.Errorf("capture failed after %d attempts: %w", s.maxAttempts, err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.backoff * time.Duration(attempt)):
		}
	}

	if useCache {
		s.cachedFrame = frame
		s.cachedFrameTime = time.Now()
	}

	return frame, nil
}

// InvalidateCache forces the next capture to fetch a fresh frame.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cachedFrame = nil
}

// Dimensions returns the capture dimensions.
func (s *Service) Dimensions() (width, height int) {
	return s.source.Dimensions()
}

// Click injects a click at (x, y) with bounded retry and backoff.
func (s *Service) Click(ctx context.Context, x, y int) error {
	s.mu.Lock()
	maxAttempts := s.maxAttempts
	backoff := s.backoff
	s.mu.Unlock()

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = s.injector.Click(x, y); err == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff * time.Duration(attempt)):
		}
	}
	return fmt.Errorf("click at (%d, %d) failed after %d attempts: %w", x, y, maxAttempts, err)
}

// Move injects a pointer move at (x, y).
func (s *Service) Move(ctx context.Context, x, y int) error {
	if err := s.injector.Move(x, y); err != nil {
		return fmt.Errorf("move to (%d, %d) failed: %w", x, y, err)
	}
	return nil
}
