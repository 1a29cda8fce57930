package chart

import (
	"context"
	"fmt"

	"github.com/go-analyze/charts"
)

// LocalRenderer draws PNG pie charts in-process.
type LocalRenderer struct {
	Filename string
}

// NewLocalRenderer returns a renderer producing files named filename.
func NewLocalRenderer(filename string) *LocalRenderer {
	if filename == "" {
		filename = "resumen.png"
	}
	return &LocalRenderer{Filename: filename}
}

// Render implements Renderer.
func (r *LocalRenderer) Render(_ context.Context, spec Spec) (*Image, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	p, err := charts.PieRender(
		spec.Values,
		charts.ThemeOptionFunc(seriesTheme(spec.Colors)),
		charts.TitleOptionFunc(charts.TitleOption{Text: spec.Title}),
		charts.LegendLabelsOptionFunc(spec.Labels),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}

	return &Image{PNG: buf, Filename: r.Filename}, nil
}

// seriesTheme is the default theme with the slices painted in colors, in
// order. Without colors the theme's own series colors are kept.
func seriesTheme(colors []string) charts.ColorPalette {
	theme := charts.GetDefaultTheme()
	if len(colors) == 0 {
		return theme
	}

	series := make([]charts.Color, len(colors))
	for i, c := range colors {
		series[i] = charts.ParseColor(c)
	}
	return theme.WithSeriesColors(series)
}
