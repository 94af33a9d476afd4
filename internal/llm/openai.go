package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/schema"
)

// chatModel is the subset of the eino chat model the provider uses.
type chatModel interface {
	Generate(ctx context.Context, input []*schema.Message) (*schema.Message, error)
	Stream(ctx context.Context, input []*schema.Message) (*schema.StreamReader[*schema.Message], error)
}

type einoModel struct {
	m *openai.ChatModel
}

func (e einoModel) Generate(ctx context.Context, input []*schema.Message) (*schema.Message, error) {
	return e.m.Generate(ctx, input)
}

func (e einoModel) Stream(ctx context.Context, input []*schema.Message) (*schema.StreamReader[*schema.Message], error) {
	return e.m.Stream(ctx, input)
}

type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	Models         []string
	ConcurrentReqs int
}

// OpenAIProvider talks to OpenAI-compatible chat completion APIs through eino.
type OpenAIProvider struct {
	models map[string]chatModel
	slots  slots
}

// NewOpenAIProvider builds one chat model per configured model name up front;
// the map is read-only afterwards.
func NewOpenAIProvider(ctx context.Context, cfg OpenAIConfig) (*OpenAIProvider, error) {
	temperature := float32(0.3)
	models := make(map[string]chatModel, len(cfg.Models))
	for _, name := range cfg.Models {
		if _, ok := models[name]; ok {
			continue
		}
		m, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       name,
			Temperature: &temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("error creating chat model %s: %w", name, err)
		}
		models[name] = einoModel{m: m}
	}

	return &OpenAIProvider{
		models: models,
		slots:  newSlots(cfg.ConcurrentReqs),
	}, nil
}

func (p *OpenAIProvider) model(name string) (chatModel, error) {
	m, ok := p.models[name]
	if !ok {
		return nil, fmt.Errorf("model %q is not configured", name)
	}
	return m, nil
}

func (p *OpenAIProvider) GenerateText(ctx context.Context, req Request) (string, error) {
	m, err := p.model(req.Model)
	if err != nil {
		return "", err
	}
	if err := p.slots.acquire(ctx); err != nil {
		return "", err
	}
	defer p.slots.release()

	out, err := m.Generate(ctx, buildMessages(req.System, req.Prompt))
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	text := strings.TrimSpace(out.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (p *OpenAIProvider) GenerateObject(ctx context.Context, req Request, s *Schema) (string, error) {
	m, err := p.model(req.Model)
	if err != nil {
		return "", err
	}
	if err := p.slots.acquire(ctx); err != nil {
		return "", err
	}
	defer p.slots.release()

	system := req.System + "\n\n" + objectInstruction(s)
	out, err := m.Generate(ctx, buildMessages(system, req.Prompt))
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if strings.TrimSpace(out.Content) == "" {
		return "", ErrEmptyResponse
	}
	return CleanJSON(out.Content), nil
}

func (p *OpenAIProvider) StreamChat(ctx context.Context, req ChatRequest) (<-chan StreamToken, error) {
	m, err := p.model(req.Model)
	if err != nil {
		return nil, err
	}
	if err := p.slots.acquire(ctx); err != nil {
		return nil, err
	}

	msgs := make([]*schema.Message, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, schema.SystemMessage(req.System))
	}
	for _, msg := range req.Messages {
		if msg.Role == RoleAssistant {
			msgs = append(msgs, schema.AssistantMessage(msg.Content, nil))
		} else {
			msgs = append(msgs, schema.UserMessage(msg.Content))
		}
	}

	stream, err := m.Stream(ctx, msgs)
	if err != nil {
		p.slots.release()
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	ch := make(chan StreamToken, 16)
	go func() {
		defer close(ch)
		defer p.slots.release()
		defer stream.Close()

		for {
			chunk, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				send(ctx, ch, StreamToken{Done: true})
				return
			}
			if err != nil {
				send(ctx, ch, StreamToken{Done: true, Error: fmt.Errorf("OpenAI stream error: %w", err)})
				return
			}
			if chunk == nil || chunk.Content == "" {
				continue
			}
			if !send(ctx, ch, StreamToken{Content: chunk.Content}) {
				return
			}
		}
	}()

	return ch, nil
}

func buildMessages(system, prompt string) []*schema.Message {
	msgs := make([]*schema.Message, 0, 2)
	if strings.TrimSpace(system) != "" {
		msgs = append(msgs, schema.SystemMessage(system))
	}
	return append(msgs, schema.UserMessage(prompt))
}

func objectInstruction(s *Schema) string {
	return "CRITICAL: Return ONLY a valid JSON object matching this JSON Schema. No preamble, no markdown, no backticks.\n" + s.String()
}
