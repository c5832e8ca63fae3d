package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"

	"bhashakit/core"
)

// OpenAILLMService implements core.IChatService using OpenAI. It serves as
// the backup chat service when the primary provider fails.
type OpenAILLMService struct {
	client      *openai.Client
	apiKey      string
	model       string
	maxTokens   int
	temperature float32

	isInitialized bool
	mu            sync.RWMutex
}

// Config holds the configuration for the OpenAI service.
type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
}

// DefaultConfig mirrors the primary provider's generation settings.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:      apiKey,
		Model:       openai.GPT4oMini,
		MaxTokens:   200,
		Temperature: 0.8,
	}
}

// NewOpenAILLMService creates a new instance of OpenAILLMService.
func NewOpenAILLMService(config Config) *OpenAILLMService {
	return &OpenAILLMService{
		apiKey:      config.APIKey,
		model:       config.Model,
		maxTokens:   config.MaxTokens,
		temperature: config.Temperature,
	}
}

// Init initializes the OpenAI service.
func (s *OpenAILLMService) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.apiKey == "" {
		return fmt.Errorf("OpenAI API key is required")
	}
	s.client = openai.NewClient(s.apiKey)
	s.isInitialized = true
	return nil
}

// Cleanup performs cleanup operations.
func (s *OpenAILLMService) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = nil
	s.isInitialized = false
	return nil
}

// Reset resets the service state.
func (s *OpenAILLMService) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = openai.NewClient(s.apiKey)
	return nil
}

// GenerateReply runs a non-streaming chat completion over the retained
// history plus the new user utterance.
func (s *OpenAILLMService) GenerateReply(ctx context.Context, history []core.ChatMessage, userText string) (string, error) {
	s.mu.RLock()
	if !s.isInitialized {
		s.mu.RUnlock()
		return "", core.NewChatError(core.ErrKindUnavailable, "The model is unreachable right now. Please try again.", fmt.Errorf("OpenAI service not initialized"))
	}
	client := s.client
	s.mu.RUnlock()

	messages := s.convertMessages(history)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userText,
	})

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Messages:    messages,
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	})
	if err != nil {
		return "", s.classifyError(err)
	}

	if len(resp.Choices) == 0 {
		return "", core.NewChatError(core.ErrKindUnknown, "Received no response from the model.", nil)
	}
	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return "", core.NewChatError(core.ErrKindContentBlocked, "My response was blocked due to safety settings.", nil)
	}
	if strings.TrimSpace(choice.Message.Content) == "" {
		return "", core.NewChatError(core.ErrKindUnknown, "Received no response from the model.", nil)
	}
	return choice.Message.Content, nil
}

// convertMessages converts transcript turns to OpenAI messages. The first
// priming turn becomes the system message; later priming turns become
// assistant messages so the seeded acknowledgment keeps its position.
func (s *OpenAILLMService) convertMessages(messages []core.ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	primingSeen := 0
	for _, msg := range messages {
		role := openai.ChatMessageRoleUser
		switch msg.Role {
		case core.ChatRolePriming:
			if primingSeen == 0 {
				role = openai.ChatMessageRoleSystem
			} else {
				role = openai.ChatMessageRoleAssistant
			}
			primingSeen++
		case core.ChatRoleAssistant:
			role = openai.ChatMessageRoleAssistant
		case core.ChatRoleUser:
			role = openai.ChatMessageRoleUser
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: msg.Text})
	}
	return out
}

// classifyError maps go-openai errors onto the error taxonomy.
func (s *OpenAILLMService) classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return core.NewChatError(core.ErrKindUnavailable, "The model is unreachable right now. Please try again.", err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 429:
			return core.NewChatError(core.ErrKindRateLimited, "API request limit reached. Please try again later.", err)
		case apiErr.HTTPStatusCode >= 500:
			return core.NewChatError(core.ErrKindUnavailable, "The model is unreachable right now. Please try again.", err)
		case apiErr.Code == "content_filter":
			return core.NewChatError(core.ErrKindContentBlocked, "My response was blocked due to safety settings.", err)
		}
		return core.NewChatError(core.ErrKindUnknown, "Sorry, I encountered an error processing your request. Please try again.", err)
	}
	return core.NewChatError(core.ErrKindUnavailable, "The model is unreachable right now. Please try again.", err)
}
