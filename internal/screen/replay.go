package screen

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"screenflow.dev/screenflow-go/internal/cv"
)

// ReplaySource plays back a recorded sequence of frames. Each call to
// Capture returns the next frame; the final frame repeats once the
// recording is exhausted. Useful for running workflows offline against a
// recorded session.
type ReplaySource struct {
	frames []*image.RGBA
	index  int
	mu     sync.Mutex
}

// NewReplaySource creates a replay source from pre-loaded frames.
func NewReplaySource(frames ...*image.RGBA) *ReplaySource {
	return &ReplaySource{frames: frames}
}

// LoadReplayDirectory loads every PNG in a directory, in filename order,
// as a replay source.
func LoadReplayDirectory(dir string) (*ReplaySource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read replay directory %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".png" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	if len(names) == 0 {
		return nil, fmt.Errorf("no PNG frames found in %s", dir)
	}

	frames := make([]*image.RGBA, 0, len(names))
	for _, name := range names {
		file, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to open frame %s: %w", name, err)
		}
		img, err := png.Decode(file)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to decode frame %s: %w", name, err)
		}
		frames = append(frames, cv.ToRGBA(img))
	}

	return &ReplaySource{frames: frames}, nil
}

// Capture returns the next recorded frame.
func (r *ReplaySource) Capture() (*image.RGBA, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.frames) == 0 {
		return nil, ErrCaptureUnavailable
	}

	frame := r.frames[r.index]
	if r.index < len(r.frames)-1 {
		r.index++
	}
	return frame, nil
}

// Dimensions returns the dimensions of the first frame.
func (r *ReplaySource) Dimensions() (width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.frames) == 0 {
		return 0, 0
	}
	bounds := r.frames[0].Bounds()
	return bounds.Dx(), bounds.Dy()
}

// NullInjector discards all input. Used for replay runs where clicks have
// no live window to land on.
type NullInjector struct{}

func (NullInjector) Click(x, y int) error { return nil }
func (NullInjector) Move(x, y int) error  { return nil }
