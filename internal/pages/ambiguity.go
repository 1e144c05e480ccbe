package pages

import (
	"image"

	"screenflow.dev/screenflow-go/internal/cv"
	"screenflow.dev/screenflow-go/internal/element"
)

// pagesConflict reports whether two pages' identifier sets are provably
// impossible to satisfy on the same screen. Validation accepts a page pair
// only when a conflict is proven; pairs that could coexist are ambiguous.
//
// Window drift moves the whole frame, so two samples at the same reference
// coordinate always read the same physical pixel regardless of search
// radius. That makes same-coordinate color checks sound.
func pagesConflict(c *PageConfiguration, a, b *Page) bool {
	// Same element bound with opposite expectations is the canonical
	// disambiguation: one page requires it present, the other absent.
	for _, ba := range a.Identifiers {
		for _, bb := range b.Identifiers {
			if ba.ElementID == bb.ElementID && ba.ExpectPresent != bb.ExpectPresent {
				return true
			}
		}
	}

	presentA := presentElements(c, a)
	presentB := presentElements(c, b)

	for _, ea := range presentA {
		for _, eb := range presentB {
			if elementsConflict(ea, eb) {
				return true
			}
		}
	}
	return false
}

func presentElements(c *PageConfiguration, p *Page) []*element.VisualElement {
	var out []*element.VisualElement
	for _, binding := range p.Identifiers {
		if !binding.ExpectPresent {
			continue
		}
		if el, ok := c.Elements[binding.ElementID]; ok {
			out = append(out, el)
		}
	}
	return out
}

// elementsConflict reports whether two present-expected elements cannot
// both be satisfied by one screen.
func elementsConflict(a, b *element.VisualElement) bool {
	switch {
	case a.Kind() == element.KindPixelColor && b.Kind() == element.KindPixelColor:
		return pixelPixelConflict(a.PixelPayload(), b.PixelPayload())
	case a.Kind() == element.KindPixelColor && b.Kind() == element.KindImageRegion:
		return pixelImageConflict(a.PixelPayload(), b)
	case a.Kind() == element.KindImageRegion && b.Kind() == element.KindPixelColor:
		return pixelImageConflict(b.PixelPayload(), a)
	case a.Kind() == element.KindImageRegion && b.Kind() == element.KindImageRegion:
		return imageImageConflict(a, b)
	}
	return false
}

// pixelPixelConflict checks samples at identical coordinates. Two required
// colors are jointly unsatisfiable when no color lies within both
// tolerances, which for the mean-channel metric means their distance
// exceeds the summed tolerances.
func pixelPixelConflict(a, b *element.PixelColorPayload) bool {
	if !a.MatchAll || !b.MatchAll {
		// Match-any elements can be satisfied by a different sample,
		// so nothing is provable from a single coordinate clash.
		return false
	}
	for _, sa := range a.Samples {
		for _, sb := range b.Samples {
			if sa.X != sb.X || sa.Y != sb.Y {
				continue
			}
			if cv.ColorDistance(sa.Color, sb.Color) > int(sa.Tolerance)+int(sb.Tolerance) {
				return true
			}
		}
	}
	return false
}

// pixelImageConflict checks a required pixel sample against the template a
// second page requires at the same location. Template thresholds permit
// some whole-template deviation, so the per-pixel slack scales with what
// the threshold leaves over.
func pixelImageConflict(pixel *element.PixelColorPayload, img *element.VisualElement) bool {
	if !pixel.MatchAll {
		return false
	}
	payload := img.RegionPayload()
	rect := templateRect(img)
	slack := int((1 - payload.Threshold) * 255)

	for _, sample := range pixel.Samples {
		p := image.Point{X: sample.X, Y: sample.Y}
		if !p.In(rect) {
			continue
		}
		tplColor := payload.Template.RGBAAt(
			payload.Template.Bounds().Min.X+p.X-rect.Min.X,
			payload.Template.Bounds().Min.Y+p.Y-rect.Min.Y,
		)
		if cv.ColorDistance(sample.Color, tplColor) > int(sample.Tolerance)+slack {
			return true
		}
	}
	return false
}

// imageImageConflict compares two required templates over the screen area
// they both claim. Both templates matching forces the screen close to each,
// so templates far apart over the overlap cannot coexist.
func imageImageConflict(a, b *element.VisualElement) bool {
	ra := templateRect(a)
	rb := templateRect(b)
	overlap := ra.Intersect(rb)
	if overlap.Empty() {
		return false
	}

	pa := a.RegionPayload()
	pb := b.RegionPayload()
	slack := int((1-pa.Threshold)*255) + int((1-pb.Threshold)*255)

	total := 0
	pixels := 0
	for y := overlap.Min.Y; y < overlap.Max.Y; y++ {
		for x := overlap.Min.X; x < overlap.Max.X; x++ {
			ca := pa.Template.RGBAAt(
				pa.Template.Bounds().Min.X+x-ra.Min.X,
				pa.Template.Bounds().Min.Y+y-ra.Min.Y,
			)
			cb := pb.Template.RGBAAt(
				pb.Template.Bounds().Min.X+x-rb.Min.X,
				pb.Template.Bounds().Min.Y+y-rb.Min.Y,
			)
			total += cv.ColorDistance(ca, cb)
			pixels++
		}
	}
	return total/pixels > slack
}

func templateRect(el *element.VisualElement) image.Rectangle {
	bounds := el.RegionPayload().Template.Bounds()
	anchor := el.Anchor()
	return image.Rect(anchor.X, anchor.Y, anchor.X+bounds.Dx(), anchor.Y+bounds.Dy())
}
