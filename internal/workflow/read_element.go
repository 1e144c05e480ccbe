package workflow

import (
	"context"
	"fmt"
)

// ReadElement extracts an element's current on-screen value without
// injecting input and stores it under an output name: the observed color
// for pixel elements, the matched sub-image for image regions.
type ReadElement struct {
	Element string `yaml:"element"` // element name
	StoreAs string `yaml:"store_as"`
}

func (a *ReadElement) Validate(b *Builder) error {
	if a.Element == "" {
		return fmt.Errorf("element is required")
	}
	if a.StoreAs == "" {
		return fmt.Errorf("store_as is required")
	}
	if b.config != nil {
		if _, ok := findElementByName(b.config, a.Element); !ok {
			return fmt.Errorf("element %q not found in configuration", a.Element)
		}
	}
	return nil
}

func (a *ReadElement) Build(b *Builder) *Builder {
	step := Step{
		name: fmt.Sprintf("ReadElement(%s)", a.Element),
		execute: func(ctx context.Context, rt *Runtime) error {
			el, ok := findElementByName(rt.Config, a.Element)
			if !ok {
				return fmt.Errorf("element %q not found in configuration", a.Element)
			}

			reader, ok := rt.Registry.Reader(el.Kind())
			if !ok {
				return fmt.Errorf("element kind %q has no reader", el.Kind())
			}

			frame, err := rt.Screen.CaptureFrame(ctx, false)
			if err != nil {
				return err
			}
			value, err := reader(el, frame)
			if err != nil {
				return err
			}

			if value.Color != nil {
				rt.Outputs[a.StoreAs] = value.Color.Color
			} else if value.Image != nil {
				rt.Outputs[a.StoreAs] = value.Image
			}
			return nil
		},
		issue: a.Validate(b),
	}
	b.steps = append(b.steps, step)
	return b
}
