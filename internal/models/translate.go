package models

type TranslateRequest struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"targetLanguage"`
}

type TranslateResponse struct {
	TranslatedText string `json:"translatedText"`
}
