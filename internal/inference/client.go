// Package inference реализует клиента внешнего OpenAI-совместимого
// inference-сервиса (vLLM). Любое отклонение от контракта ответа —
// не-2xx статус, таймаут, пустой список choices — возвращается как ошибка,
// решение о безопасном тексте для пользователя принимает вызывающий.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/magabrotheeeer/llm-service/internal/config"
)

// Параметры генерации фиксированы контрактом сервиса.
const (
	temperature = 0.7
	maxTokens   = 1000
)

// Client клиент inference-сервиса с ограниченным временем запроса.
type Client struct {
	apiURL     string
	model      string
	httpClient *http.Client
}

// New создаёт клиента. Таймаут из конфигурации ограничивает весь запрос,
// включая чтение тела ответа.
func New(cfg config.Inference) *Client {
	return &Client{
		apiURL:     cfg.APIURL,
		model:      cfg.ModelName,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// Complete отправляет prompt одной user-репликой и возвращает текст ответа модели.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	const op = "inference.Complete"

	reqBody := ChatCompletionRequest{
		Model:       c.model,
		Messages:    []ChatMessage{{Role: "user", Content: prompt}},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(reqBody); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/v1/chat/completions", &buf)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s: unexpected status: %s", op, resp.Status)
	}

	var completion ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%s: %w", op, errors.New("empty choices in response"))
	}
	return completion.Choices[0].Message.Content, nil
}
