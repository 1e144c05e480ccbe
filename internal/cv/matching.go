package cv

import (
	"image"
	"image/color"
	"math"
)

// MatchResult contains the outcome of matching an element against a screen image.
type MatchResult struct {
	Matched    bool
	Location   image.Point
	Confidence float64
}

// MatchMethod defines the template matching algorithm.
type MatchMethod int

const (
	// MatchMethodSAD - Sum of Absolute Differences (fastest)
	MatchMethodSAD MatchMethod = iota
	// MatchMethodSSD - Sum of Squared Differences (balanced)
	MatchMethodSSD
	// MatchMethodNCC - Normalized Cross-Correlation (most accurate)
	MatchMethodNCC
)

// MatchConfig configures template matching.
type MatchConfig struct {
	Method       MatchMethod
	Threshold    float64          // 0.0-1.0, higher = more strict
	SearchRegion *image.Rectangle // Optional: limit search area
}

// DefaultMatchConfig returns recommended settings.
func DefaultMatchConfig() *MatchConfig {
	return &MatchConfig{
		Method:    MatchMethodSSD,
		Threshold: 0.85,
	}
}

// FindTemplate finds a template image within a larger image.
func FindTemplate(haystack, needle *image.RGBA, config *MatchConfig) MatchResult {
	if config == nil {
		config = DefaultMatchConfig()
	}

	haystackBounds := haystack.Bounds()
	needleBounds := needle.Bounds()

	needleWidth := needleBounds.Dx()
	needleHeight := needleBounds.Dy()

	if needleWidth > haystackBounds.Dx() || needleHeight > haystackBounds.Dy() {
		return MatchResult{}
	}

	searchBounds := haystackBounds
	if config.SearchRegion != nil {
		searchBounds = config.SearchRegion.Intersect(haystackBounds)
		if searchBounds.Empty() {
			return MatchResult{}
		}
	}

	// Use <= for the scan limits so the needle may touch the search edge.
	maxY := searchBounds.Max.Y - needleHeight
	maxX := searchBounds.Max.X - needleWidth
	if maxY < searchBounds.Min.Y || maxX < searchBounds.Min.X {
		// Template doesn't fit in search region
		return MatchResult{}
	}

	best := MatchResult{}
	for y := searchBounds.Min.Y; y <= maxY; y++ {
		for x := searchBounds.Min.X; x <= maxX; x++ {
			score := ScoreAt(haystack, needle, x, y, config.Method)
			if score > best.Confidence {
				best.Confidence = score
				best.Location = image.Point{X: x, Y: y}
				if score >= config.Threshold {
					best.Matched = true
				}
			}
		}
	}

	return best
}

// ScoreAt computes the similarity between the needle and the haystack region
// whose top-left corner is at (x, y).
func ScoreAt(haystack, needle *image.RGBA, x, y int, method MatchMethod) float64 {
	bounds := needle.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	switch method {
	case MatchMethodSAD:
		return matchSAD(haystack, needle, x, y, width, height)
	case MatchMethodNCC:
		return matchNCC(haystack, needle, x, y, width, height)
	default:
		return matchSSD(haystack, needle, x, y, width, height)
	}
}

// matchSAD - Sum of Absolute Differences (fastest, least accurate)
func matchSAD(haystack, needle *image.RGBA, x, y, width, height int) float64 {
	var sad uint64

	for ny := 0; ny < height; ny++ {
		for nx := 0; nx < width; nx++ {
			hIdx := (y+ny)*haystack.Stride + (x+nx)*4
			nIdx := ny*needle.Stride + nx*4

			sad += uint64(abs(int(haystack.Pix[hIdx]) - int(needle.Pix[nIdx])))
			sad += uint64(abs(int(haystack.Pix[hIdx+1]) - int(needle.Pix[nIdx+1])))
			sad += uint64(abs(int(haystack.Pix[hIdx+2]) - int(needle.Pix[nIdx+2])))
		}
	}

	maxSAD := float64(width * height * 3 * 255)
	return 1.0 - (float64(sad) / maxSAD)
}

// matchSSD - Sum of Squared Differences (balanced)
func matchSSD(haystack, needle *image.RGBA, x, y, width, height int) float64 {
	var ssd uint64

	for ny := 0; ny < height; ny++ {
		for nx := 0; nx < width; nx++ {
			hIdx := (y+ny)*haystack.Stride + (x+nx)*4
			nIdx := ny*needle.Stride + nx*4

			dr := int(haystack.Pix[hIdx]) - int(needle.Pix[nIdx])
			dg := int(haystack.Pix[hIdx+1]) - int(needle.Pix[nIdx+1])
			db := int(haystack.Pix[hIdx+2]) - int(needle.Pix[nIdx+2])

			ssd += uint64(dr*dr + dg*dg + db*db)
		}
	}

	maxSSD := float64(width * height * 3 * 255 * 255)
	return 1.0 - (float64(ssd) / maxSSD)
}

// matchNCC - Normalized Cross-Correlation (slowest, most accurate)
func matchNCC(haystack, needle *image.RGBA, x, y, width, height int) float64 {
	var sumH, sumN, sumHN, sumHH, sumNN float64
	pixelCount := float64(width * height * 3)

	for ny := 0; ny < height; ny++ {
		for nx := 0; nx < width; nx++ {
			hIdx := (y+ny)*haystack.Stride + (x+nx)*4
			nIdx := ny*needle.Stride + nx*4

			for c := 0; c < 3; c++ {
				h := float64(haystack.Pix[hIdx+c])
				n := float64(needle.Pix[nIdx+c])

				sumH += h
				sumN += n
				sumHN += h * n
				sumHH += h * h
				sumNN += n * n
			}
		}
	}

	numerator := sumHN - (sumH * sumN / pixelCount)
	denomH := math.Sqrt(sumHH - (sumH * sumH / pixelCount))
	denomN := math.Sqrt(sumNN - (sumN * sumN / pixelCount))

	if denomH == 0 || denomN == 0 {
		return 0
	}

	// Correlation coefficient (-1 to 1), normalized to 0-1
	correlation := numerator / (denomH * denomN)
	return (correlation + 1.0) / 2.0
}

// PixelWithinTolerance reports whether the pixel at (x, y) matches the
// expected color within tolerance. Out-of-bounds coordinates never match.
func PixelWithinTolerance(img *image.RGBA, x, y int, expected color.RGBA, tolerance uint8) bool {
	bounds := img.Bounds()
	if x < bounds.Min.X || x >= bounds.Max.X || y < bounds.Min.Y || y >= bounds.Max.Y {
		return false
	}

	idx := (y-bounds.Min.Y)*img.Stride + (x-bounds.Min.X)*4
	r := img.Pix[idx]
	g := img.Pix[idx+1]
	b := img.Pix[idx+2]

	return colorDistance(r, g, b, expected.R, expected.G, expected.B) <= int(tolerance)
}

// FindPixel searches for a pixel matching the expected color within a square
// search radius around (x, y). Radius 0 checks only the exact coordinate.
// Returns the closest matching coordinate, spiralling outward ring by ring so
// a small window drift still resolves to the nearest candidate.
func FindPixel(img *image.RGBA, x, y int, expected color.RGBA, tolerance uint8, radius int) (image.Point, bool) {
	if PixelWithinTolerance(img, x, y, expected, tolerance) {
		return image.Point{X: x, Y: y}, true
	}

	for r := 1; r <= radius; r++ {
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if abs(dx) != r && abs(dy) != r {
					continue // interior already checked by smaller rings
				}
				if PixelWithinTolerance(img, x+dx, y+dy, expected, tolerance) {
					return image.Point{X: x + dx, Y: y + dy}, true
				}
			}
		}
	}

	return image.Point{}, false
}

// colorDistance is the mean absolute per-channel difference.
// ColorDistance returns the mean absolute per-channel difference between
// two colors, the same measure pixel tolerance is compared against.
func ColorDistance(a, b color.RGBA) int {
	return colorDistance(a.R, a.G, a.B, b.R, b.G, b.B)
}

func colorDistance(r1, g1, b1, r2, g2, b2 uint8) int {
	dr := abs(int(r1) - int(r2))
	dg := abs(int(g1) - int(g2))
	db := abs(int(b1) - int(b2))
	return (dr + dg + db) / 3
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
