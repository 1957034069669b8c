package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// ratingInstruction is the fixed preamble sent with every report.
const ratingInstruction = `You are a quality inspector for ayurvedic herb batches. ` +
	`You will be given the extracted text of a lab report PDF. ` +
	`Judge the overall quality of the batch described by the report and reply ` +
	`with a JSON object containing a single field "rating" whose value is one of: ` +
	`"extremely good", "good", "healthy", "bad", "very bad". Reply with nothing else.`

// GeminiRater rates report text via the Gemini API, using structured output
// so the reply is constrained to the one-field schema.
type GeminiRater struct {
	client *genai.Client
	model  string
}

// NewGeminiRater creates a rater backed by the Gemini API.
func NewGeminiRater(ctx context.Context, apiKey, model string) (*GeminiRater, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("analysis: Gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("analysis: create Gemini client: %w", err)
	}
	return &GeminiRater{client: client, model: model}, nil
}

// Rate sends the report text with the fixed instruction and parses the
// constrained JSON reply. There is no retry and no validation beyond the
// schema the model was asked to honor; a malformed reply is an error.
func (r *GeminiRater) Rate(ctx context.Context, text string) (string, error) {
	contents := genai.Text(text)

	resp, err := r.client.Models.GenerateContent(ctx, r.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(ratingInstruction, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"rating": {Type: genai.TypeString, Enum: Ratings},
			},
			Required: []string{"rating"},
		},
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	return parseRating(resp.Text())
}

// parseRating decodes the model's one-field JSON reply.
func parseRating(reply string) (string, error) {
	var out struct {
		Rating string `json:"rating"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(reply)), &out); err != nil {
		return "", fmt.Errorf("malformed model reply: %w", err)
	}
	if out.Rating == "" {
		return "", fmt.Errorf("model reply missing rating")
	}
	return out.Rating, nil
}
