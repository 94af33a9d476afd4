package models

import (
	"time"

	"github.com/google/uuid"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

type AnalyzeDocumentRequest struct {
	DocumentText string `json:"documentText"`
	FileName     string `json:"fileName"`
}

// DocumentAnalysis is the structured result returned by the analysis endpoint.
type DocumentAnalysis struct {
	DocumentType    string    `json:"documentType"`
	KeyFindings     []string  `json:"keyFindings"`
	RiskAssessment  RiskLevel `json:"riskAssessment"`
	Recommendations []string  `json:"recommendations"`
	Summary         string    `json:"summary"`
}

// UploadAnalysisResponse is returned by the upload endpoint.
type UploadAnalysisResponse struct {
	DocumentAnalysis
	FileName   string `json:"fileName"`
	FileSize   int64  `json:"fileSize"`
	Characters int    `json:"characters"`
}

// AnalysisRecord is a persisted analysis in the history table.
type AnalysisRecord struct {
	ID              uuid.UUID `json:"id"`
	FileName        string    `json:"fileName"`
	DocumentType    string    `json:"documentType"`
	RiskAssessment  RiskLevel `json:"riskAssessment"`
	KeyFindings     []string  `json:"keyFindings"`
	Recommendations []string  `json:"recommendations"`
	Summary         string    `json:"summary"`
	CreatedAt       time.Time `json:"createdAt"`
}
