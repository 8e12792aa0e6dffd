package llmclient

import (
	"context"
	"encoding/json"
	"strings"

	genai "google.golang.org/genai"

	"orderdesk/internal/util/jsonutil"
)

// GeminiClient is a thin wrapper around the official genai client. It only
// focuses on the API call itself; retry policy and error surfacing are the
// caller's concern.
type GeminiClient struct {
	cli   *genai.Client
	model string
}

func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingCredentials
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, Classify(err)
	}
	if strings.TrimSpace(model) == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiClient{cli: cli, model: model}, nil
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.model }
func (g *GeminiClient) Close() error { return nil }

// GenerateJSON concatenates prompt and input, asks for application/json,
// and returns the model's JSON as json.RawMessage.
func (g *GeminiClient) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	// No HTML escaping: catalog text goes to the model verbatim.
	in, err := jsonutil.MarshalNoEscapeIndent(input, "", "  ")
	if err != nil {
		return nil, err
	}
	full := prompt + "\n\n[INPUT JSON]\n" + string(in)

	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: full}}}},
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		return nil, Classify(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, ErrEmptyResponse
	}
	txt := strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text)
	if txt == "" {
		return nil, ErrEmptyResponse
	}
	return json.RawMessage(txt), nil
}
