package factory

import (
	"fmt"

	"ai-docqa-be/pkg/llm"
	"ai-docqa-be/pkg/llm/huggingface"
	"ai-docqa-be/pkg/llm/ollama"
)

// NewLLMProvider builds the configured generator. "none" (or an empty type)
// returns a nil provider, which makes answers fall back to extraction.
func NewLLMProvider(providerType, modelName, baseURL, apiKey string) (llm.LLMProvider, error) {
	switch providerType {
	case "", "none":
		return nil, nil
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	case "huggingface":
		if apiKey == "" {
			return nil, fmt.Errorf("huggingface provider requires an API key")
		}
		return huggingface.NewHuggingFaceProvider(apiKey, baseURL, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
