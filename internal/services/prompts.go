package services

import (
	"fmt"
	"strings"

	"lexassist-backend/internal/llm"
	"lexassist-backend/internal/models"
)

const chatSystemPrompt = `You are an AI legal assistant providing general legal information and guidance. 

IMPORTANT GUIDELINES:
- Always provide helpful, accurate legal information
- Clearly state that you provide general information, not legal advice
- Recommend consulting with a qualified attorney for specific legal matters
- Be professional, clear, and comprehensive in your responses
- Focus on explaining legal concepts, procedures, and general guidance
- If asked about specific cases, provide general principles rather than case-specific advice

You can help with:
- Contract law basics and key elements
- Employment law compliance
- Intellectual property fundamentals  
- Business law concepts
- Civil and criminal law differences
- Legal procedures and processes
- Document requirements and standards

Always maintain a professional, helpful tone while being clear about the limitations of AI legal assistance.`

const analysisSystemPrompt = `You are an expert legal document analyzer. Analyze the provided legal document and provide:

1. Document Type: Identify what type of legal document this is
2. Key Findings: List the most important clauses, terms, and provisions
3. Risk Assessment: Evaluate the overall risk level (low/medium/high) based on:
   - Unusual or potentially problematic clauses
   - Missing standard protections
   - Ambiguous language
   - Potential legal issues
4. Recommendations: Provide specific, actionable recommendations
5. Summary: A comprehensive analysis summary

Be thorough, professional, and focus on practical legal insights. Always remind that this is general analysis and specific legal advice should come from a qualified attorney.`

// analysisSchema is the declared output shape for document analysis.
var analysisSchema = &llm.Schema{
	Type: llm.TypeObject,
	Properties: map[string]*llm.Schema{
		"documentType": {
			Type:        llm.TypeString,
			Description: "The type of legal document (e.g., Contract, Agreement, etc.)",
		},
		"keyFindings": {
			Type:        llm.TypeArray,
			Description: "Important clauses, terms, or provisions found in the document",
			Items:       &llm.Schema{Type: llm.TypeString},
		},
		"riskAssessment": {
			Type:        llm.TypeString,
			Description: "Overall risk level of the document",
			Enum:        []string{string(models.RiskLow), string(models.RiskMedium), string(models.RiskHigh)},
		},
		"recommendations": {
			Type:        llm.TypeArray,
			Description: "Actionable recommendations for the document",
			Items:       &llm.Schema{Type: llm.TypeString},
		},
		"summary": {
			Type:        llm.TypeString,
			Description: "A comprehensive summary of the document analysis",
		},
	},
	Required: []string{"documentType", "keyFindings", "riskAssessment", "recommendations", "summary"},
}

func buildAnalysisPrompt(fileName, documentText string) string {
	if strings.TrimSpace(fileName) == "" {
		fileName = "untitled"
	}

	var b strings.Builder
	b.WriteString("Analyze this legal document:\n\n")
	b.WriteString(fmt.Sprintf("Filename: %s\n\n", fileName))
	b.WriteString("Document Content:\n")
	b.WriteString(documentText)
	b.WriteString("\n\nProvide a comprehensive legal analysis.")
	return b.String()
}

// targetLanguageName maps a target language code to the wording used in the
// translation prompt. Only Chinese is recognised; everything else is English.
func targetLanguageName(code string) string {
	if code == "zh" {
		return "Simplified Chinese (Mandarin)"
	}
	return "English"
}

func buildTranslatePrompt(text, targetLanguage string) string {
	return fmt.Sprintf("Translate the following text to %s. Only return the translation, no explanations:\n\n%s",
		targetLanguageName(targetLanguage), text)
}
