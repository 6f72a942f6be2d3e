package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/funnelboard/funnelboard-golang/internal/models"
)

// InsightsService holds the Gemini client used to generate audience
// insights for a funnel.
type InsightsService struct {
	Client *genai.Client
}

// NewInsightsService initializes the Gemini client.
func NewInsightsService(ctx context.Context, apiKey string) (*InsightsService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &InsightsService{Client: client}, nil
}

// Close releases the underlying client connection.
func (s *InsightsService) Close() error {
	return s.Client.Close()
}

// insightsPayload is the JSON shape we ask the model to produce.
type insightsPayload struct {
	MainPains         []string `json:"mainPains"`
	CommunicationTone string   `json:"communicationTone"`
}

var validTones = map[string]bool{
	string(models.ToneHumanMotivational):      true,
	string(models.ToneFormalTechnical):        true,
	string(models.ToneClearPractical):         true,
	string(models.ToneFriendlyLight):          true,
	string(models.ToneEducationalExplanatory): true,
	string(models.TonePersuasiveCommercial):   true,
	string(models.ToneUrgentImpactful):        true,
	string(models.ToneAdvisoryConsultative):   true,
}

// GenerateAudienceInsights asks Gemini for the main pains and the
// recommended communication tone of the target audience.
func (s *InsightsService) GenerateAudienceInsights(ctx context.Context, funnelName string, target models.AudienceTarget) (*models.AudienceInsights, error) {
	model := s.Client.GenerativeModel("gemini-1.5-flash")
	model.ResponseMIMEType = "application/json"

	tones := make([]string, 0, len(validTones))
	for tone := range validTones {
		tones = append(tones, tone)
	}

	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(fmt.Sprintf(`
			You are a marketing strategist for digital sales funnels.
			Given a target audience, reply ONLY with a JSON object:
			{"mainPains": [3 to 5 short strings], "communicationTone": one of [%s]}.
			Answer in the language of the niche description.
		`, strings.Join(tones, ", ")))},
	}

	prompt := fmt.Sprintf("Funnel: %s. Niche: %s. Sub-niche: %s. Gender: %s.",
		funnelName, target.Niche, target.SubNiche, target.Gender)
	if target.AgeRange.Min != nil {
		prompt += fmt.Sprintf(" Minimum age: %d.", *target.AgeRange.Min)
	}
	if target.AgeRange.Max != nil {
		prompt += fmt.Sprintf(" Maximum age: %d.", *target.AgeRange.Max)
	}

	res, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("error generating insights: %w", err)
	}
	if len(res.Candidates) == 0 || len(res.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from model")
	}

	text, ok := res.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return nil, fmt.Errorf("unexpected response part type")
	}

	var payload insightsPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, fmt.Errorf("could not parse model response: %w", err)
	}
	if len(payload.MainPains) == 0 {
		return nil, fmt.Errorf("model returned no pains")
	}
	if !validTones[payload.CommunicationTone] {
		payload.CommunicationTone = string(models.ToneClearPractical)
	}

	return &models.AudienceInsights{
		MainPains:         payload.MainPains,
		CommunicationTone: models.CommunicationTone(payload.CommunicationTone),
	}, nil
}
