package chart

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// DefaultQuickChartURL is the public QuickChart endpoint.
const DefaultQuickChartURL = "https://quickchart.io/chart"

// QuickChartRenderer builds a QuickChart image URL. Telegram downloads the
// image itself, so rendering performs no I/O.
type QuickChartRenderer struct {
	BaseURL string
	Width   int
	Height  int
}

// NewQuickChartRenderer returns a renderer targeting baseURL (or the public endpoint).
func NewQuickChartRenderer(baseURL string) *QuickChartRenderer {
	if baseURL == "" {
		baseURL = DefaultQuickChartURL
	}
	return &QuickChartRenderer{BaseURL: baseURL, Width: 500, Height: 300}
}

type quickChartConfig struct {
	Type    string            `json:"type"`
	Data    quickChartData    `json:"data"`
	Options quickChartOptions `json:"options"`
}

type quickChartData struct {
	Labels   []string            `json:"labels"`
	Datasets []quickChartDataset `json:"datasets"`
}

type quickChartDataset struct {
	Data            []float64 `json:"data"`
	BackgroundColor []string  `json:"backgroundColor,omitempty"`
}

type quickChartOptions struct {
	Title quickChartTitle `json:"title"`
}

type quickChartTitle struct {
	Display bool   `json:"display"`
	Text    string `json:"text"`
}

// Render implements Renderer.
func (r *QuickChartRenderer) Render(_ context.Context, spec Spec) (*Image, error) {
	u, err := r.URL(spec)
	if err != nil {
		return nil, err
	}
	return &Image{URL: u}, nil
}

// URL returns the chart image URL for spec.
func (r *QuickChartRenderer) URL(spec Spec) (string, error) {
	if err := spec.Validate(); err != nil {
		return "", err
	}

	cfg := quickChartConfig{
		Type: "pie",
		Data: quickChartData{
			Labels: spec.Labels,
			Datasets: []quickChartDataset{{
				Data:            spec.Values,
				BackgroundColor: spec.Colors,
			}},
		},
		Options: quickChartOptions{
			Title: quickChartTitle{Display: spec.Title != "", Text: spec.Title},
		},
	}

	raw, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to encode chart config: %w", err)
	}

	base, err := url.Parse(r.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid quickchart url: %w", err)
	}

	q := base.Query()
	q.Set("c", string(raw))
	q.Set("w", strconv.Itoa(r.Width))
	q.Set("h", strconv.Itoa(r.Height))
	base.RawQuery = q.Encode()

	return base.String(), nil
}
