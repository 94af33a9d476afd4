package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GeminiProvider talks to Google's Gemini API.
type GeminiProvider struct {
	client *genai.Client
	slots  slots
}

func NewGeminiProvider(ctx context.Context, apiKey string, concurrentReqs int) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client: client,
		slots:  newSlots(concurrentReqs),
	}, nil
}

func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

// model returns a fresh handle so per-call settings never leak between requests.
func (p *GeminiProvider) model(name, system string) *genai.GenerativeModel {
	m := p.client.GenerativeModel(name)
	m.SetTemperature(0.3)
	m.SetTopP(0.95)
	if system != "" {
		m.SystemInstruction = genai.NewUserContent(genai.Text(system))
	}
	return m
}

func (p *GeminiProvider) GenerateText(ctx context.Context, req Request) (string, error) {
	if err := p.slots.acquire(ctx); err != nil {
		return "", err
	}
	defer p.slots.release()

	resp, err := p.model(req.Model, req.System).GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}
	logFinish(resp)

	text := strings.TrimSpace(extractText(resp))
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (p *GeminiProvider) GenerateObject(ctx context.Context, req Request, schema *Schema) (string, error) {
	if err := p.slots.acquire(ctx); err != nil {
		return "", err
	}
	defer p.slots.release()

	m := p.model(req.Model, req.System)
	m.ResponseMIMEType = "application/json"
	m.ResponseSchema = toGenaiSchema(schema)

	resp, err := m.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}
	logFinish(resp)

	text := extractText(resp)
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return CleanJSON(text), nil
}

func (p *GeminiProvider) StreamChat(ctx context.Context, req ChatRequest) (<-chan StreamToken, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("no messages to send")
	}
	if err := p.slots.acquire(ctx); err != nil {
		return nil, err
	}

	cs := p.model(req.Model, req.System).StartChat()
	last := req.Messages[len(req.Messages)-1]
	for _, msg := range req.Messages[:len(req.Messages)-1] {
		cs.History = append(cs.History, &genai.Content{
			Role:  geminiRole(msg.Role),
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}

	iter := cs.SendMessageStream(ctx, genai.Text(last.Content))

	ch := make(chan StreamToken, 16)
	go func() {
		defer close(ch)
		defer p.slots.release()

		for {
			resp, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				send(ctx, ch, StreamToken{Done: true})
				return
			}
			if err != nil {
				send(ctx, ch, StreamToken{Done: true, Error: fmt.Errorf("Gemini stream error: %w", err)})
				return
			}
			text := extractText(resp)
			if text == "" {
				continue
			}
			if !send(ctx, ch, StreamToken{Content: text}) {
				return
			}
		}
	}()

	return ch, nil
}

func geminiRole(role string) string {
	if role == RoleAssistant {
		return "model"
	}
	return "user"
}

func toGenaiSchema(s *Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Description: s.Description,
		Enum:        s.Enum,
		Required:    s.Required,
	}
	switch s.Type {
	case TypeObject:
		out.Type = genai.TypeObject
	case TypeArray:
		out.Type = genai.TypeArray
	default:
		out.Type = genai.TypeString
	}
	if len(s.Enum) > 0 {
		out.Format = "enum"
	}
	if s.Items != nil {
		out.Items = toGenaiSchema(s.Items)
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toGenaiSchema(prop)
		}
	}
	return out
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

func logFinish(resp *genai.GenerateContentResponse) {
	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop {
			log.Warn().Int("candidate", i).Str("finish_reason", cand.FinishReason.String()).Msg("Gemini stopped early")
		}
	}
}
