package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeChatModel struct {
	reply    string
	chunks   []string
	err      error
	streamEr error
	lastIn   []*schema.Message
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message) (*schema.Message, error) {
	f.lastIn = input
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message) (*schema.StreamReader[*schema.Message], error) {
	f.lastIn = input
	if f.err != nil {
		return nil, f.err
	}
	sr, sw := schema.Pipe[*schema.Message](len(f.chunks) + 1)
	go func() {
		defer sw.Close()
		for _, c := range f.chunks {
			sw.Send(schema.AssistantMessage(c, nil), nil)
		}
		if f.streamEr != nil {
			sw.Send(nil, f.streamEr)
		}
	}()
	return sr, nil
}

func newTestOpenAI(m chatModel) *OpenAIProvider {
	return &OpenAIProvider{
		models: map[string]chatModel{"gpt-test": m},
		slots:  newSlots(1),
	}
}

func TestOpenAIProvider_GenerateText(t *testing.T) {
	fake := &fakeChatModel{reply: "  translated  "}
	p := newTestOpenAI(fake)

	got, err := p.GenerateText(context.Background(), Request{Model: "gpt-test", Prompt: "hi"})

	require.NoError(t, err)
	assert.Equal(t, "translated", got)
	require.Len(t, fake.lastIn, 1)
	assert.Equal(t, schema.User, fake.lastIn[0].Role)
}

func TestOpenAIProvider_GenerateText_Empty(t *testing.T) {
	p := newTestOpenAI(&fakeChatModel{reply: "   "})

	_, err := p.GenerateText(context.Background(), Request{Model: "gpt-test", Prompt: "hi"})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOpenAIProvider_UnknownModel(t *testing.T) {
	p := newTestOpenAI(&fakeChatModel{})

	_, err := p.GenerateText(context.Background(), Request{Model: "other", Prompt: "hi"})
	assert.Error(t, err)
}

func TestOpenAIProvider_GenerateObject_AddsSchemaAndCleans(t *testing.T) {
	fake := &fakeChatModel{reply: "```json\n{\"risk\":\"low\",\"items\":[]}\n```"}
	p := newTestOpenAI(fake)

	got, err := p.GenerateObject(context.Background(), Request{Model: "gpt-test", System: "analyze", Prompt: "doc"}, testSchema())

	require.NoError(t, err)
	assert.Equal(t, `{"risk":"low","items":[]}`, got)
	require.Len(t, fake.lastIn, 2)
	assert.Equal(t, schema.System, fake.lastIn[0].Role)
	assert.Contains(t, fake.lastIn[0].Content, "analyze")
	assert.Contains(t, fake.lastIn[0].Content, `"enum"`)
}

func TestOpenAIProvider_StreamChat(t *testing.T) {
	defer goleak.VerifyNone(t)

	fake := &fakeChatModel{chunks: []string{"Hello", "", " world"}}
	p := newTestOpenAI(fake)

	ch, err := p.StreamChat(context.Background(), ChatRequest{
		Model:  "gpt-test",
		System: "be helpful",
		Messages: []Message{
			{Role: RoleUser, Content: "hi"},
			{Role: RoleAssistant, Content: "hello"},
			{Role: RoleUser, Content: "again"},
		},
	})
	require.NoError(t, err)

	var text string
	var done bool
	for tok := range ch {
		require.NoError(t, tok.Error)
		text += tok.Content
		done = done || tok.Done
	}

	assert.Equal(t, "Hello world", text)
	assert.True(t, done)
	require.Len(t, fake.lastIn, 4)
	assert.Equal(t, schema.System, fake.lastIn[0].Role)
	assert.Equal(t, schema.Assistant, fake.lastIn[2].Role)
}

func TestOpenAIProvider_StreamChat_ErrorMidStream(t *testing.T) {
	defer goleak.VerifyNone(t)

	fake := &fakeChatModel{chunks: []string{"partial"}, streamEr: errors.New("connection reset")}
	p := newTestOpenAI(fake)

	ch, err := p.StreamChat(context.Background(), ChatRequest{
		Model:    "gpt-test",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)

	var last StreamToken
	for tok := range ch {
		last = tok
	}
	assert.True(t, last.Done)
	assert.ErrorContains(t, last.Error, "connection reset")
}

func TestOpenAIProvider_StreamChat_ReleasesSlotOnError(t *testing.T) {
	p := newTestOpenAI(&fakeChatModel{err: errors.New("boom")})

	_, err := p.StreamChat(context.Background(), ChatRequest{Model: "gpt-test", Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	require.Error(t, err)

	// slot must be free again
	require.NoError(t, p.slots.acquire(context.Background()))
}
