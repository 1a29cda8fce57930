// Package ocr turns a receipt photo into plain recognized text.
package ocr

import (
	"context"
	"errors"
)

var (
	// ErrTimeout indicates the recognition call exceeded its deadline.
	ErrTimeout = errors.New("text recognition timed out")
	// ErrNoText indicates the image held no readable text.
	ErrNoText = errors.New("no text recognized in image")
)

// Recognizer extracts the text printed in an image. The result is opaque
// free text; interpreting it is up to the caller.
type Recognizer interface {
	RecognizeText(ctx context.Context, imageURL string, languages []string) (string, error)
}
