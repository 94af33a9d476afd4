package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"lexassist-backend/internal/middleware"
	"lexassist-backend/internal/models"
)

const (
	analyzeFailed = "Failed to analyze document"

	// MaxUploadSize is the largest document accepted by Upload.
	MaxUploadSize = 10 << 20

	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

type documentAnalyzer interface {
	AnalyzeDocument(ctx context.Context, req models.AnalyzeDocumentRequest) (*models.DocumentAnalysis, error)
}

type textExtractor interface {
	DetectFormat(data []byte, filename string) (string, error)
	ExtractText(data []byte, format string) (string, error)
}

type analysisRepository interface {
	Create(ctx context.Context, rec *models.AnalysisRecord) error
	ListRecent(ctx context.Context, limit int) ([]*models.AnalysisRecord, error)
}

type DocumentHandler struct {
	analyzer  documentAnalyzer
	extractor textExtractor
	repo      analysisRepository
}

// NewDocumentHandler wires the document endpoints. repo may be nil, in which
// case analyses are not recorded and History is not routed.
func NewDocumentHandler(analyzer documentAnalyzer, extractor textExtractor, repo analysisRepository) *DocumentHandler {
	return &DocumentHandler{
		analyzer:  analyzer,
		extractor: extractor,
		repo:      repo,
	}
}

func (h *DocumentHandler) HasHistory() bool {
	return h.repo != nil
}

func (h *DocumentHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req models.AnalyzeDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusInternalServerError, analyzeFailed)
		return
	}

	if strings.TrimSpace(req.DocumentText) == "" {
		writeError(w, http.StatusBadRequest, "Document text is required")
		return
	}

	analysis, err := h.analyzer.AnalyzeDocument(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err, analyzeFailed)
		return
	}

	h.record(r, req.FileName, analysis)
	writeJSON(w, http.StatusOK, analysis)
}

// Upload extracts text from a PDF, DOCX or TXT file and analyses it.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	// Leave room for the multipart envelope around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize+(1<<20))
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "File exceeds the 10 MB limit")
			return
		}
		writeError(w, http.StatusBadRequest, "File is required")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "File is required")
		return
	}
	defer file.Close()

	if header.Size > MaxUploadSize {
		writeError(w, http.StatusRequestEntityTooLarge, "File exceeds the 10 MB limit")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		handleServiceError(w, r, fmt.Errorf("reading upload: %w", err), analyzeFailed)
		return
	}

	format, err := h.extractor.DetectFormat(data, header.Filename)
	if err != nil {
		handleServiceError(w, r, err, analyzeFailed)
		return
	}

	text, err := h.extractor.ExtractText(data, format)
	if err != nil {
		handleServiceError(w, r, err, analyzeFailed)
		return
	}

	analysis, err := h.analyzer.AnalyzeDocument(r.Context(), models.AnalyzeDocumentRequest{
		DocumentText: text,
		FileName:     header.Filename,
	})
	if err != nil {
		handleServiceError(w, r, err, analyzeFailed)
		return
	}

	h.record(r, header.Filename, analysis)
	writeJSON(w, http.StatusOK, models.UploadAnalysisResponse{
		DocumentAnalysis: *analysis,
		FileName:         header.Filename,
		FileSize:         header.Size,
		Characters:       len([]rune(text)),
	})
}

// History lists the most recent recorded analyses.
func (h *DocumentHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be a number")
			return
		}
		limit = n
	}
	limit = clampLimit(limit)

	records, err := h.repo.ListRecent(r.Context(), limit)
	if err != nil {
		handleServiceError(w, r, err, "Failed to list analyses")
		return
	}
	if records == nil {
		records = []*models.AnalysisRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"analyses": records})
}

func clampLimit(n int) int {
	if n < 1 {
		return 1
	}
	if n > maxHistoryLimit {
		return maxHistoryLimit
	}
	return n
}

// record stores an analysis. Failures are logged and never reach the client.
func (h *DocumentHandler) record(r *http.Request, fileName string, a *models.DocumentAnalysis) {
	if h.repo == nil {
		return
	}

	rec := &models.AnalysisRecord{
		ID:              uuid.New(),
		FileName:        fileName,
		DocumentType:    a.DocumentType,
		RiskAssessment:  a.RiskAssessment,
		KeyFindings:     a.KeyFindings,
		Recommendations: a.Recommendations,
		Summary:         a.Summary,
	}
	if err := h.repo.Create(r.Context(), rec); err != nil {
		log.Warn().
			Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Msg("failed to record document analysis")
	}
}
