package factories

import (
	"errors"

	"bhashakit/core"
	geminillm "bhashakit/services/gemini/llm"
	openaillm "bhashakit/services/openai/llm"
)

// GeminiProviderConfig configures the primary chat provider. The API key is
// never read from settings; it is injected from the environment.
type GeminiProviderConfig struct {
	APIKey string `json:"-"`
	Model  string `json:"model,omitempty"`
}

// OpenAIProviderConfig configures the OpenAI-backed fallback provider.
type OpenAIProviderConfig struct {
	APIKey string `json:"-"`
	Model  string `json:"model,omitempty"`
}

// ChatFactoryConfig selects and configures a chat provider. Set exactly one
// provider field; the rest should be left nil.
type ChatFactoryConfig struct {
	GeminiConfig *GeminiProviderConfig `json:"gemini,omitempty"`
	OpenAIConfig *OpenAIProviderConfig `json:"openai,omitempty"`
}

// BuildChatService constructs a chat service from the given factory config.
func BuildChatService(config ChatFactoryConfig) (core.IChatService, error) {
	if config.GeminiConfig != nil {
		cfg := geminillm.DefaultConfig(config.GeminiConfig.APIKey)
		if config.GeminiConfig.Model != "" {
			cfg.Model = config.GeminiConfig.Model
		}
		return geminillm.NewGeminiLLMService(cfg), nil
	}
	if config.OpenAIConfig != nil {
		cfg := openaillm.DefaultConfig(config.OpenAIConfig.APIKey)
		if config.OpenAIConfig.Model != "" {
			cfg.Model = config.OpenAIConfig.Model
		}
		return openaillm.NewOpenAILLMService(cfg), nil
	}
	return nil, errors.New("ChatFactoryConfig: no provider config specified")
}
