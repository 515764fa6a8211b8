package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/chapterwise/chapterwise-backend/internal/config"
)

var ErrGenerationFailed = errors.New("notes generation failed")

const notesSystemPrompt = `You are an AI study assistant. The user is an undergraduate student and the input is a textbook chapter.

Generate exam-ready study notes with exactly these sections, in order:

Chapter Name:
- The chapter title as provided, or a short title summarizing the content.

Overview:
- 2-3 sentences explaining the main idea in clear, simple language.

Chapter Summary:
- One paragraph (4-6 sentences) covering the main events, examples, findings and conclusions.

Key Concepts:
- 3-5 bullets, each a concept name plus a 1-2 sentence explanation.

Important Definitions:
- 2-5 bullets, each a term plus a concise exam-ready definition. Do not repeat Key Concepts.

Exam Focus:
- 4-8 Q&A pairs formatted as "Q1: ..." / "A: ...", mixing define, explain, compare and discuss questions.

Use hyphens only for bullets. Keep sentences short. Do not add sections, opinions or commentary.`

// NotesService calls the language-model provider to turn chapter text into
// study notes. Whether the call may happen at all is decided beforehand by
// UsageService; this service only does the outbound request.
type NotesService struct {
	apiURL string
	apiKey string
	model  string
	client *http.Client
}

func NewNotesService(cfg *config.Config) *NotesService {
	return &NotesService{
		apiURL: cfg.OpenAIAPIURL,
		apiKey: cfg.OpenAIAPIKey,
		model:  cfg.OpenAIModel,
		client: &http.Client{Timeout: cfg.AITimeout},
	}
}

type openAIChatRequest struct {
	Model    string          `json:"model"`
	Messages []openAIMessage `json:"messages"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate produces study notes for the given chapter text.
func (s *NotesService) Generate(ctx context.Context, text string) (string, error) {
	payload, err := json.Marshal(openAIChatRequest{
		Model: s.model,
		Messages: []openAIMessage{
			{Role: "system", Content: notesSystemPrompt},
			{Role: "user", Content: text},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrGenerationFailed, resp.StatusCode)
	}

	var parsed openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrGenerationFailed)
	}
	return parsed.Choices[0].Message.Content, nil
}
