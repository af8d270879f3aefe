package advisory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const DefaultModel = "claude-3-5-haiku-20241022"

// AnthropicAdvisor asks a Claude model for weight suggestions. One
// outbound call per request; the caller bounds it with a deadline.
type AnthropicAdvisor struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
}

func NewAnthropicAdvisor(apiKey, model string) (*AnthropicAdvisor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic api key is empty")
	}
	if model == "" {
		model = DefaultModel
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicAdvisor{client: &client, model: model, maxTokens: 1024}, nil
}

func (a *AnthropicAdvisor) SuggestWeights(ctx context.Context, req Request) (Suggestion, error) {
	prompt := buildPrompt(req)
	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return Suggestion{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	suggestion, err := parseSuggestion(text)
	if err != nil {
		return Suggestion{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return suggestion, nil
}

func buildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("You are advising a health scoring system on how to weight four\n")
	b.WriteString("components (hrv, sleep, recovery, activity) of a composite score.\n\n")
	fmt.Fprintf(&b, "User age: %d\n", req.Age)
	if len(req.Conditions) > 0 {
		conds := make([]string, 0, len(req.Conditions))
		for _, c := range req.Conditions {
			conds = append(conds, string(c))
		}
		fmt.Fprintf(&b, "Chronic conditions: %s\n", strings.Join(conds, ", "))
	} else {
		b.WriteString("Chronic conditions: none\n")
	}
	fmt.Fprintf(&b, "Sufficient data (>=3 of last 7 days): hrv=%t sleep=%t recovery=%t activity=%t\n\n",
		req.Sufficiency.HRV, req.Sufficiency.Sleep, req.Sufficiency.Recovery, req.Sufficiency.Activity)
	b.WriteString("Down-weight components with insufficient data. Respond with ONLY a\n")
	b.WriteString("JSON object of this exact shape:\n")
	b.WriteString(`{"hrv": 0.3, "sleep": 0.3, "recovery": 0.2, "activity": 0.2, "reasoning": "..."}`)
	return b.String()
}

// parseSuggestion pulls the first JSON object out of the reply, tolerating
// markdown fences and surrounding prose.
func parseSuggestion(text string) (Suggestion, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return Suggestion{}, fmt.Errorf("no JSON object in reply")
	}
	var s Suggestion
	if err := json.Unmarshal([]byte(text[start:end+1]), &s); err != nil {
		return Suggestion{}, fmt.Errorf("decode suggestion: %v", err)
	}
	return s, nil
}
