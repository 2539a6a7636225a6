package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/option"

	"github.com/vladimiradmaev/chronic-care/internal/domain"
	apperrors "github.com/vladimiradmaev/chronic-care/internal/errors"
	"github.com/vladimiradmaev/chronic-care/internal/logger"
)

const (
	geminiModel = "gemini-1.5-flash"
	openaiModel = openai.GPT3Dot5Turbo
)

// CarePlan is the structured answer requested from the model
type CarePlan struct {
	Summary string   `json:"summary"`
	Tips    []string `json:"tips"`
}

// completer sends a prompt to one provider and returns the raw text answer
type completer interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// AdviceService asks Gemini for a daily care plan and falls back to OpenAI
type AdviceService struct {
	providers []completer
	logger    *slog.Logger
}

// NewAdviceService creates the service for the configured keys; with no key
// every call reports the feature as unavailable.
func NewAdviceService(geminiAPIKey, openaiAPIKey string) (*AdviceService, error) {
	s := &AdviceService{logger: logger.WithFields("service", "advice")}

	if geminiAPIKey != "" {
		client, err := genai.NewClient(context.Background(), option.WithAPIKey(geminiAPIKey))
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		s.providers = append(s.providers, &geminiCompleter{client: client})
	}
	if openaiAPIKey != "" {
		s.providers = append(s.providers, &openaiCompleter{client: openai.NewClient(openaiAPIKey)})
	}

	return s, nil
}

// Available reports whether any provider is configured
func (s *AdviceService) Available() bool {
	return len(s.providers) > 0
}

// Advise returns a care plan for the snapshot followed by the disclaimer.
// Urgent readings are answered with the safety message without asking a model.
func (s *AdviceService) Advise(ctx context.Context, snap domain.Snapshot) (string, error) {
	safety := CheckGlucoseSafety(snap.LabResult)
	if safety.EscalationRequired {
		return safety.Message + "\n\n" + Disclaimer, nil
	}
	if !s.Available() {
		return "", apperrors.FromSentinel(apperrors.ErrFeatureUnavailable).WithContext("feature", "advice")
	}

	prompt := BuildCarePlanPrompt(snap)

	var lastErr error
	for _, p := range s.providers {
		text, err := p.Complete(ctx, prompt)
		if err != nil {
			s.logger.WarnContext(ctx, "Advice provider failed", "provider", p.Name(), "error", err)
			lastErr = apperrors.NewExternalAPIError(err, p.Name())
			continue
		}

		plan, err := parseCarePlan(text)
		if err != nil {
			s.logger.WarnContext(ctx, "Advice provider returned unusable answer", "provider", p.Name(), "error", err)
			lastErr = apperrors.NewExternalAPIError(err, p.Name())
			continue
		}
		return FormatCarePlan(plan, safety), nil
	}

	return "", lastErr
}

// BuildCarePlanPrompt describes the patient to the model
func BuildCarePlanPrompt(snap domain.Snapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a certified diabetes educator. Create a short daily care plan for:\n")
	fmt.Fprintf(&b, "Age: %d\n", snap.Profile.Age)
	fmt.Fprintf(&b, "Condition: %s\n", snap.Profile.Condition)
	fmt.Fprintf(&b, "Region: %s\n", snap.Profile.Region)
	if snap.LabResult.Submitted() {
		fmt.Fprintf(&b, "Latest fasting glucose: %.0f mg/dL\n", snap.LabResult.FastingSugar)
		fmt.Fprintf(&b, "Latest post-meal glucose: %.0f mg/dL\n", snap.LabResult.PostMealSugar)
	}
	fmt.Fprintf(&b, "Tablets per day: %d\n", snap.Medication.Total())

	var pending []string
	for _, slot := range domain.Slots() {
		for _, flag := range snap.Activity.Pending(slot) {
			pending = append(pending, fmt.Sprintf("%s %s", slot, flag))
		}
	}
	if len(pending) > 0 {
		fmt.Fprintf(&b, "Not yet done today: %s\n", strings.Join(pending, ", "))
	}
	if day, diet, ok := snap.SelectedDiet(); ok {
		fmt.Fprintf(&b, "Diet plan for %s: morning %q, afternoon %q, night %q\n", day, diet.Day, diet.Afternoon, diet.Night)
	}

	b.WriteString(`
REQUIREMENTS:
- Suggest lifestyle and diet actions only, never change medication doses
- Use foods common in the patient's region
- At most 3 tips, one sentence each

CRITICAL JSON FORMAT REQUIREMENTS:
- Your response MUST be a valid JSON object
- Do not include any explanatory text before or after the JSON
- The JSON must have these exact fields:
  {
    "summary": "one sentence",
    "tips": ["tip1", "tip2"]
  }`)

	return b.String()
}

// FormatCarePlan renders a plan as chat text
func FormatCarePlan(plan *CarePlan, safety SafetyResult) string {
	var b strings.Builder
	if safety.Level == SafetyCaution {
		b.WriteString("⚠️ " + safety.Message + "\n\n")
	}
	b.WriteString(plan.Summary)
	for _, tip := range plan.Tips {
		b.WriteString("\n• " + tip)
	}
	b.WriteString("\n\n" + Disclaimer)
	return b.String()
}

func parseCarePlan(text string) (*CarePlan, error) {
	jsonStr := extractJSON(text)
	if jsonStr == "" {
		return nil, fmt.Errorf("no valid JSON found in response")
	}

	var plan CarePlan
	if err := json.Unmarshal([]byte(jsonStr), &plan); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if plan.Summary == "" && len(plan.Tips) == 0 {
		return nil, fmt.Errorf("empty care plan")
	}
	return &plan, nil
}

// extractJSON attempts to extract a valid JSON object from the given string.
// It handles cases where the JSON is wrapped in code blocks (```json ... ```) or other text.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}
	end := strings.LastIndex(s, "}")
	if end == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}

type geminiCompleter struct {
	client *genai.Client
}

func (g *geminiCompleter) Name() string { return "gemini" }

func (g *geminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	model := g.client.GenerativeModel(geminiModel)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response")
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", fmt.Errorf("unexpected response part %T", resp.Candidates[0].Content.Parts[0])
	}
	return string(text), nil
}

type openaiCompleter struct {
	client *openai.Client
}

func (o *openaiCompleter) Name() string { return "openai" }

func (o *openaiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: openaiModel,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response")
	}
	return resp.Choices[0].Message.Content, nil
}
