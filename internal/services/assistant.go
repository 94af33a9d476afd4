package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"lexassist-backend/internal/llm"
	"lexassist-backend/internal/models"
)

type AssistantConfig struct {
	ChatModel      string
	AnalysisModel  string
	TranslateModel string
}

// AssistantService turns chat, analysis and translation requests into model
// calls. It holds no per-request state.
type AssistantService struct {
	provider llm.Provider
	cfg      AssistantConfig
}

func NewAssistantService(provider llm.Provider, cfg AssistantConfig) *AssistantService {
	return &AssistantService{provider: provider, cfg: cfg}
}

// Chat streams the assistant's reply to a UI conversation.
func (s *AssistantService) Chat(ctx context.Context, messages []models.ChatMessage) (<-chan llm.StreamToken, error) {
	system := chatSystemPrompt
	var turns []llm.Message
	for _, m := range messages {
		text := m.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		switch m.Role {
		case "system":
			system += "\n\n" + text
		case llm.RoleAssistant:
			turns = append(turns, llm.Message{Role: llm.RoleAssistant, Content: text})
		default:
			turns = append(turns, llm.Message{Role: llm.RoleUser, Content: text})
		}
	}

	if len(turns) == 0 {
		return nil, &ValidationError{Message: "Messages are required"}
	}

	return s.provider.StreamChat(ctx, llm.ChatRequest{
		Model:    s.cfg.ChatModel,
		System:   system,
		Messages: turns,
	})
}

// AnalyzeDocument runs structured analysis over a document's text and
// validates the result against the declared field set.
func (s *AssistantService) AnalyzeDocument(ctx context.Context, req models.AnalyzeDocumentRequest) (*models.DocumentAnalysis, error) {
	if strings.TrimSpace(req.DocumentText) == "" {
		return nil, &ValidationError{Message: "Document text is required"}
	}

	raw, err := s.provider.GenerateObject(ctx, llm.Request{
		Model:  s.cfg.AnalysisModel,
		System: analysisSystemPrompt,
		Prompt: buildAnalysisPrompt(req.FileName, req.DocumentText),
	}, analysisSchema)
	if err != nil {
		return nil, err
	}

	return parseAnalysis(raw)
}

// Translate translates text to Chinese when targetLanguage is "zh" and to
// English otherwise.
func (s *AssistantService) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", &ValidationError{Message: "Missing text or target language"}
	}

	return s.provider.GenerateText(ctx, llm.Request{
		Model:  s.cfg.TranslateModel,
		Prompt: buildTranslatePrompt(text, targetLanguage),
	})
}

func parseAnalysis(raw string) (*models.DocumentAnalysis, error) {
	var out struct {
		DocumentType    *string   `json:"documentType"`
		KeyFindings     *[]string `json:"keyFindings"`
		RiskAssessment  *string   `json:"riskAssessment"`
		Recommendations *[]string `json:"recommendations"`
		Summary         *string   `json:"summary"`
	}
	if err := json.Unmarshal([]byte(llm.CleanJSON(raw)), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModelOutput, err)
	}

	switch {
	case out.DocumentType == nil:
		return nil, fmt.Errorf("%w: missing documentType", ErrInvalidModelOutput)
	case out.KeyFindings == nil:
		return nil, fmt.Errorf("%w: missing keyFindings", ErrInvalidModelOutput)
	case out.RiskAssessment == nil:
		return nil, fmt.Errorf("%w: missing riskAssessment", ErrInvalidModelOutput)
	case out.Recommendations == nil:
		return nil, fmt.Errorf("%w: missing recommendations", ErrInvalidModelOutput)
	case out.Summary == nil:
		return nil, fmt.Errorf("%w: missing summary", ErrInvalidModelOutput)
	}

	risk := models.RiskLevel(strings.ToLower(strings.TrimSpace(*out.RiskAssessment)))
	if !risk.Valid() {
		return nil, fmt.Errorf("%w: riskAssessment %q", ErrInvalidModelOutput, *out.RiskAssessment)
	}

	return &models.DocumentAnalysis{
		DocumentType:    *out.DocumentType,
		KeyFindings:     *out.KeyFindings,
		RiskAssessment:  risk,
		Recommendations: *out.Recommendations,
		Summary:         *out.Summary,
	}, nil
}
