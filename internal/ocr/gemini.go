package ocr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

// ModelName is the Gemini model used for transcription.
const ModelName = "gemini-2.5-flash"

// DefaultTimeout bounds one recognition call, download included.
const DefaultTimeout = 30 * time.Second

// ContentGenerator defines the interface for generating content via Gemini.
// This abstraction enables testing without making actual API calls.
type ContentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// modelsAdapter wraps *genai.Models to implement ContentGenerator.
type modelsAdapter struct {
	models *genai.Models
}

func (m *modelsAdapter) GenerateContent(
	ctx context.Context,
	model string,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	resp, err := m.models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("genai.GenerateContent: %w", err)
	}
	return resp, nil
}

// Gemini transcribes receipt images with the Gemini API.
type Gemini struct {
	generator  ContentGenerator
	httpClient *http.Client
	timeout    time.Duration
}

// NewGemini creates a recognizer with the provided API key.
func NewGemini(ctx context.Context, apiKey string, timeout time.Duration) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return NewGeminiWithGenerator(&modelsAdapter{models: client.Models}, nil, timeout), nil
}

// NewGeminiWithGenerator creates a recognizer over a custom generator and
// download client. This is primarily used for testing.
func NewGeminiWithGenerator(generator ContentGenerator, httpClient *http.Client, timeout time.Duration) *Gemini {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Gemini{generator: generator, httpClient: httpClient, timeout: timeout}
}

// RecognizeText downloads the image and asks the model for a verbatim transcription.
func (g *Gemini) RecognizeText(ctx context.Context, imageURL string, languages []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	image, mimeType, err := Download(ctx, g.httpClient, imageURL)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", ErrTimeout
		}
		return "", err
	}
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = "image/jpeg"
	}

	resp, err := g.generator.GenerateContent(ctx, ModelName, []*genai.Content{
		{
			Parts: []*genai.Part{
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: image}},
				{Text: buildPrompt(languages)},
			},
		},
	}, nil)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", ErrTimeout
		}
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrNoText
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}

	text := cleanTranscript(b.String())
	if text == "" || text == noTextMarker {
		return "", ErrNoText
	}
	return text, nil
}

const noTextMarker = "SIN_TEXTO"

func buildPrompt(languages []string) string {
	hint := "es, en"
	if len(languages) > 0 {
		hint = strings.Join(languages, ", ")
	}
	return fmt.Sprintf(`Transcribe every piece of text printed on this receipt image.
Keep the original line breaks and reading order, one printed line per output line.
Copy numbers exactly as printed, including dots and commas.
Expected languages: %s.
Return ONLY the transcription with no commentary or markdown formatting.
If the image holds no readable text, return exactly %s.`, hint, noTextMarker)
}

func cleanTranscript(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```text")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
