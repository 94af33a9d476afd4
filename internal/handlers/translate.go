package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"lexassist-backend/internal/models"
)

type translator interface {
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
}

type TranslateHandler struct {
	svc translator
}

func NewTranslateHandler(svc translator) *TranslateHandler {
	return &TranslateHandler{svc: svc}
}

func (h *TranslateHandler) Translate(w http.ResponseWriter, r *http.Request) {
	var req models.TranslateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusInternalServerError, "Translation failed")
		return
	}

	if req.Text == "" || req.TargetLanguage == "" {
		writeError(w, http.StatusBadRequest, "Missing text or target language")
		return
	}

	translated, err := h.svc.Translate(r.Context(), req.Text, req.TargetLanguage)
	if err != nil {
		handleServiceError(w, r, err, "Translation failed")
		return
	}

	writeJSON(w, http.StatusOK, models.TranslateResponse{TranslatedText: translated})
}
