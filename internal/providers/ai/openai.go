package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/naijatax/taxguide/internal/config"
	"go.uber.org/zap"
)

const systemPrompt = `You are Naija Tax AI, a professional Nigerian tax assistant.

You help with:
- FIRS tax rules
- Freelancer tax
- Business registration
- VAT
- PAYE
- Record keeping
- Compliance

Be concise, accurate, and practical.`

var langNames = map[string]string{
	"en":  "English",
	"yo":  "Yoruba",
	"ig":  "Igbo",
	"ha":  "Hausa",
	"pcm": "Nigerian Pidgin",
}

// OpenAIGenerator talks to the OpenAI chat completions API.
type OpenAIGenerator struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	log     *zap.Logger
}

func NewOpenAIGenerator(cfg config.Config, log *zap.Logger) *OpenAIGenerator {
	return &OpenAIGenerator{
		apiKey:  cfg.OpenAIAPIKey,
		baseURL: strings.TrimRight(cfg.OpenAIBaseURL, "/"),
		model:   cfg.OpenAIModel,
		client:  &http.Client{Timeout: cfg.OpenAITimeout},
		log:     log.Named("ai.openai"),
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Generate implements Generator.
func (g *OpenAIGenerator) Generate(ctx context.Context, question, lang string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrGenerationFailed
	}

	user := question
	if lang != "" {
		user = fmt.Sprintf("[Language: %s] %s", lang, question)
	}

	answer, err := g.complete(ctx, systemPrompt, user)
	if err != nil {
		g.log.Warn("generation failed", zap.Error(err))
		return "", ErrGenerationFailed
	}
	return answer, nil
}

// Translate implements Generator.
func (g *OpenAIGenerator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrTranslationFailed
	}

	target := langNames[targetLang]
	if target == "" {
		target = targetLang
	}
	source := langNames[sourceLang]
	if source == "" {
		source = sourceLang
	}

	prompt := fmt.Sprintf(
		"Translate the following Nigerian tax guidance from %s to %s. Keep the meaning exact and the tone professional. Reply with the translation only.\n\n%s",
		source, target, text,
	)

	out, err := g.complete(ctx, systemPrompt, prompt)
	if err != nil {
		g.log.Warn("translation failed",
			zap.String("target_lang", targetLang),
			zap.Error(err),
		)
		return "", ErrTranslationFailed
	}
	return out, nil
}

func (g *OpenAIGenerator) complete(ctx context.Context, system, user string) (string, error) {
	if g.apiKey == "" {
		return "", ErrNotConfigured
	}

	body, err := json.Marshal(chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", err
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("openai: %s", parsed.Error.Type)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("openai: empty choices")
	}

	answer := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if answer == "" {
		return "", fmt.Errorf("openai: empty answer")
	}
	return answer, nil
}
