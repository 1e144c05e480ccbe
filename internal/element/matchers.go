package element

import (
	"fmt"
	"image"

	"screenflow.dev/screenflow-go/internal/cv"
)

// checkResolution enforces the reference resolution invariant: an element
// captured at one window size must not be matched against a differently
// sized screen without re-validation.
func checkResolution(el *VisualElement, screenImg *image.RGBA) error {
	bounds := screenImg.Bounds()
	res := el.Resolution()
	if bounds.Dx() != res.Width || bounds.Dy() != res.Height {
		return fmt.Errorf("element %s captured at %dx%d cannot match a %dx%d screen",
			el.Name(), res.Width, res.Height, bounds.Dx(), bounds.Dy())
	}
	return nil
}

// matchPixelColor samples the screen at each stored point (or the best
// pixel within the search radius if the window drifted) and compares
// against the stored color within tolerance.
func matchPixelColor(el *VisualElement, screenImg *image.RGBA) (cv.MatchResult, error) {
	payload := el.PixelPayload()
	if payload == nil {
		return cv.MatchResult{}, fmt.Errorf("element %s: missing pixel color payload", el.Name())
	}
	if err := checkResolution(el, screenImg); err != nil {
		return cv.MatchResult{}, err
	}

	matched := 0
	location := el.Anchor()
	for _, sample := range payload.Samples {
		point, ok := cv.FindPixel(screenImg, sample.X, sample.Y, sample.Color, sample.Tolerance, payload.SearchRadius)
		if ok {
			matched++
			if matched == 1 {
				location = point
			}
		} else if payload.MatchAll {
			return cv.MatchResult{
				Confidence: float64(matched) / float64(len(payload.Samples)),
			}, nil
		}
	}

	confidence := float64(matched) / float64(len(payload.Samples))
	found := matched == len(payload.Samples)
	if !payload.MatchAll {
		found = matched > 0
	}

	return cv.MatchResult{
		Matched:    found,
		Location:   location,
		Confidence: confidence,
	}, nil
}

// matchImageRegion template-matches the stored sub-image against the
// screen within the element's search window.
func matchImageRegion(el *VisualElement, screenImg *image.RGBA) (cv.MatchResult, error) {
	payload := el.RegionPayload()
	if payload == nil {
		return cv.MatchResult{}, fmt.Errorf("element %s: missing image region payload", el.Name())
	}
	if err := checkResolution(el, screenImg); err != nil {
		return cv.MatchResult{}, err
	}

	config := &cv.MatchConfig{
		Method:    cv.MatchMethodSSD,
		Threshold: payload.Threshold,
	}
	if payload.SearchRegion != nil {
		config.SearchRegion = payload.SearchRegion.ToImageRectangle()
	}

	return cv.FindTemplate(screenImg, payload.Template, config), nil
}

// readPixelColor returns the color currently on screen at the element's
// first sample point.
func readPixelColor(el *VisualElement, screenImg *image.RGBA) (*ReadValue, error) {
	payload := el.PixelPayload()
	if payload == nil {
		return nil, fmt.Errorf("element %s: missing pixel color payload", el.Name())
	}
	if err := checkResolution(el, screenImg); err != nil {
		return nil, err
	}

	sample := payload.Samples[0]
	bounds := screenImg.Bounds()
	if sample.X < bounds.Min.X || sample.X >= bounds.Max.X || sample.Y < bounds.Min.Y || sample.Y >= bounds.Max.Y {
		return nil, fmt.Errorf("element %s: sample (%d, %d) out of bounds", el.Name(), sample.X, sample.Y)
	}

	observed := screenImg.RGBAAt(sample.X, sample.Y)
	return &ReadValue{
		Color: &PixelSample{X: sample.X, Y: sample.Y, Color: observed, Tolerance: sample.Tolerance},
	}, nil
}

// readImageRegion returns the sub-image currently on screen where the
// template matched (or at the anchor if it did not).
func readImageRegion(el *VisualElement, screenImg *image.RGBA) (*ReadValue, error) {
	payload := el.RegionPayload()
	if payload == nil {
		return nil, fmt.Errorf("element %s: missing image region payload", el.Name())
	}

	result, err := matchImageRegion(el, screenImg)
	if err != nil {
		return nil, err
	}

	corner := el.Anchor()
	if result.Matched {
		corner = result.Location
	}

	size := payload.Template.Bounds()
	rect := image.Rect(corner.X, corner.Y, corner.X+size.Dx(), corner.Y+size.Dy())
	return &ReadValue{Image: cv.CropRegion(screenImg, rect)}, nil
}
