package screen

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"
)

// flakySource fails the first n captures, then succeeds.
type flakySource struct {
	failures int
	calls    int
	frame    *image.RGBA
}

func (f *flakySource) Capture() (*image.RGBA, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, ErrCaptureUnavailable
	}
	return f.frame, nil
}

func (f *flakySource) Dimensions() (int, int) {
	b := f.frame.Bounds()
	return b.Dx(), b.Dy()
}

func TestCaptureRetriesTransientFailures(t *testing.T) {
	src := &flakySource{failures: 2, frame: image.NewRGBA(image.Rect(0, 0, 10, 10))}
	svc := NewService(src, NullInjector{}).WithRetry(3, time.Millisecond)

	frame, err := svc.CaptureFrame(context.Background(), false)
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}
	if frame == nil {
		t.Fatal("nil frame on success")
	}
	if src.calls != 3 {
		t.Errorf("calls = %d, want 3", src.calls)
	}
}

func TestCaptureExhaustsAttempts(t *testing.T) {
	src := &flakySource{failures: 10, frame: image.NewRGBA(image.Rect(0, 0, 10, 10))}
	svc := NewService(src, NullInjector{}).WithRetry(2, time.Millisecond)

	_, err := svc.CaptureFrame(context.Background(), false)
	if !errors.Is(err, ErrCaptureUnavailable) {
		t.Fatalf("err = %v, want ErrCaptureUnavailable in chain", err)
	}
	if src.calls != 2 {
		t.Errorf("calls = %d, want 2", src.calls)
	}
}

func TestCaptureCacheReuse(t *testing.T) {
	src := &flakySource{frame: image.NewRGBA(image.Rect(0, 0, 10, 10))}
	svc := NewService(src, NullInjector{}).WithCacheDuration(time.Minute)

	if _, err := svc.CaptureFrame(context.Background(), true); err != nil {
		t.Fatalf("capture: %v", err)
	}
	if _, err := svc.CaptureFrame(context.Background(), true); err != nil {
		t.Fatalf("capture: %v", err)
	}
	if src.calls != 1 {
		t.Errorf("calls = %d, want 1 (second capture served from cache)", src.calls)
	}

	svc.InvalidateCache()
	if _, err := svc.CaptureFrame(context.Background(), true); err != nil {
		t.Fatalf("capture: %v", err)
	}
	if src.calls != 2 {
		t.Errorf("calls = %d, want 2 after invalidation", src.calls)
	}
}

func TestReplaySourceRepeatsFinalFrame(t *testing.T) {
	a := image.NewRGBA(image.Rect(0, 0, 4, 4))
	b := image.NewRGBA(image.Rect(0, 0, 4, 4))
	b.Pix[0] = 255

	src := NewReplaySource(a, b)
	for i, want := range []*image.RGBA{a, b, b, b} {
		got, err := src.Capture()
		if err != nil {
			t.Fatalf("capture %d: %v", i, err)
		}
		if got != want {
			t.Errorf("capture %d returned the wrong frame", i)
		}
	}
}

func TestReplaySourceEmpty(t *testing.T) {
	src := NewReplaySource()
	if _, err := src.Capture(); !errors.Is(err, ErrCaptureUnavailable) {
		t.Errorf("err = %v, want ErrCaptureUnavailable", err)
	}
	if w, h := src.Dimensions(); w != 0 || h != 0 {
		t.Errorf("dimensions = %dx%d, want 0x0", w, h)
	}
}
