// Package chart renders the monthly category breakdown as a pie chart.
package chart

import (
	"context"
	"errors"
)

// ErrEmptySpec is returned when there is nothing to draw.
var ErrEmptySpec = errors.New("chart has no data")

// Spec describes a pie chart. Labels, Values and Colors are parallel.
type Spec struct {
	Title  string
	Labels []string
	Values []float64
	Colors []string
}

// Validate checks that the series are non-empty and aligned.
func (s Spec) Validate() error {
	if len(s.Values) == 0 {
		return ErrEmptySpec
	}
	if len(s.Labels) != len(s.Values) {
		return errors.New("chart labels and values differ in length")
	}
	if len(s.Colors) != 0 && len(s.Colors) != len(s.Values) {
		return errors.New("chart colors and values differ in length")
	}
	return nil
}

// Image is a rendered chart. Exactly one of URL or PNG is set.
type Image struct {
	URL      string
	PNG      []byte
	Filename string
}

// Renderer turns a Spec into an image the bot can send.
type Renderer interface {
	Render(ctx context.Context, spec Spec) (*Image, error)
}
