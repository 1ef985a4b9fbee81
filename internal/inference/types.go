package inference

// ChatMessage одно сообщение диалога в формате OpenAI chat completions.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest тело запроса к endpoint /v1/chat/completions.
type ChatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

// ChatChoice один вариант ответа модели.
type ChatChoice struct {
	Message ChatMessage `json:"message"`
}

// ChatCompletionResponse тело успешного ответа endpoint.
type ChatCompletionResponse struct {
	Choices []ChatChoice `json:"choices"`
}
