package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/bytedance/sonic"

	"bhashakit/core"
)

const (
	// DefaultBaseURL is the Gemini REST API endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultModel is the model used when the config does not name one.
	DefaultModel = "gemini-1.5-flash-latest"
)

// GeminiLLMService implements core.IChatService against the Gemini
// generateContent REST API.
type GeminiLLMService struct {
	apiKey  string
	baseURL string
	model   string

	maxOutputTokens int
	temperature     float64
	topP            float64
	topK            int

	client *http.Client

	isInitialized bool
	mu            sync.RWMutex
}

// Config holds the configuration for the Gemini service.
type Config struct {
	APIKey          string
	BaseURL         string
	Model           string
	MaxOutputTokens int
	Temperature     float64
	TopP            float64
	TopK            int
}

// DefaultConfig returns the tutor generation settings: short replies with
// moderately high sampling temperature.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:          apiKey,
		BaseURL:         DefaultBaseURL,
		Model:           DefaultModel,
		MaxOutputTokens: 200,
		Temperature:     0.8,
		TopP:            0.9,
		TopK:            40,
	}
}

// NewGeminiLLMService creates a new instance of GeminiLLMService.
func NewGeminiLLMService(config Config) *GeminiLLMService {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	return &GeminiLLMService{
		apiKey:          config.APIKey,
		baseURL:         config.BaseURL,
		model:           config.Model,
		maxOutputTokens: config.MaxOutputTokens,
		temperature:     config.Temperature,
		topP:            config.TopP,
		topK:            config.TopK,
	}
}

// Init initializes the Gemini service.
func (s *GeminiLLMService) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.apiKey == "" {
		return fmt.Errorf("Gemini API key is required")
	}
	s.client = &http.Client{}
	s.isInitialized = true
	return nil
}

// Cleanup performs cleanup operations.
func (s *GeminiLLMService) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		s.client.CloseIdleConnections()
	}
	s.client = nil
	s.isInitialized = false
	return nil
}

// Reset resets the service state.
func (s *GeminiLLMService) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = &http.Client{}
	return nil
}

// Gemini wire format. The API uses camelCase for JSON field names.
type geminiRequest struct {
	Contents         []geminiContent       `json:"contents"`
	GenerationConfig *geminiGenConfig      `json:"generationConfig,omitempty"`
	SafetySettings   []geminiSafetySetting `json:"safetySettings,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"` // "user" or "model"
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiGenConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float64 `json:"temperature,omitempty"`
	TopP            float64 `json:"topP,omitempty"`
	TopK            int     `json:"topK,omitempty"`
}

type geminiSafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type geminiResponse struct {
	Candidates     []geminiCandidate `json:"candidates"`
	PromptFeedback *geminiFeedback   `json:"promptFeedback,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type geminiFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// defaultSafetySettings blocks medium-and-above content in the four standard
// harm categories.
func defaultSafetySettings() []geminiSafetySetting {
	categories := []string{
		"HARM_CATEGORY_HARASSMENT",
		"HARM_CATEGORY_HATE_SPEECH",
		"HARM_CATEGORY_SEXUALLY_EXPLICIT",
		"HARM_CATEGORY_DANGEROUS_CONTENT",
	}
	settings := make([]geminiSafetySetting, 0, len(categories))
	for _, c := range categories {
		settings = append(settings, geminiSafetySetting{Category: c, Threshold: "BLOCK_MEDIUM_AND_ABOVE"})
	}
	return settings
}

// GenerateReply sends the retained history plus the new user utterance to the
// generateContent endpoint and returns the reply text. Failures are returned
// as *core.ChatError classified per the taxonomy.
func (s *GeminiLLMService) GenerateReply(ctx context.Context, history []core.ChatMessage, userText string) (string, error) {
	s.mu.RLock()
	if !s.isInitialized {
		s.mu.RUnlock()
		return "", core.NewChatError(core.ErrKindUnavailable, "The model is unreachable right now. Please try again.", fmt.Errorf("gemini service not initialized"))
	}
	client := s.client
	s.mu.RUnlock()

	req := geminiRequest{
		Contents: append(s.convertMessages(history), geminiContent{
			Role:  "user",
			Parts: []geminiPart{{Text: userText}},
		}),
		GenerationConfig: &geminiGenConfig{
			MaxOutputTokens: s.maxOutputTokens,
			Temperature:     s.temperature,
			TopP:            s.topP,
			TopK:            s.topK,
		},
		SafetySettings: defaultSafetySettings(),
	}

	payload, err := sonic.Marshal(req)
	if err != nil {
		return "", core.NewChatError(core.ErrKindUnknown, "Sorry, I encountered an error processing your request. Please try again.", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", s.baseURL, s.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", core.NewChatError(core.ErrKindUnknown, "Sorry, I encountered an error processing your request. Please try again.", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", s.apiKey)

	resp, err := client.Do(httpReq)
	if err != nil {
		// Covers network failures, context cancellation and deadline expiry.
		return "", core.NewChatError(core.ErrKindUnavailable, "The model is unreachable right now. Please try again.", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", core.NewChatError(core.ErrKindUnavailable, "The model is unreachable right now. Please try again.", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", s.classifyHTTPError(resp.StatusCode, body)
	}

	var parsed geminiResponse
	if err := sonic.Unmarshal(body, &parsed); err != nil {
		return "", core.NewChatError(core.ErrKindUnknown, "Sorry, I encountered an error processing your request. Please try again.", err)
	}

	if parsed.PromptFeedback != nil && parsed.PromptFeedback.BlockReason != "" {
		return "", core.NewChatError(core.ErrKindContentBlocked, "My response was blocked due to safety settings.", nil)
	}
	if len(parsed.Candidates) == 0 {
		return "", core.NewChatError(core.ErrKindContentBlocked, "My response was blocked due to safety settings.", nil)
	}

	candidate := parsed.Candidates[0]
	if candidate.FinishReason == "SAFETY" {
		return "", core.NewChatError(core.ErrKindContentBlocked, "My response was blocked due to safety settings.", nil)
	}

	var text string
	for _, part := range candidate.Content.Parts {
		text += part.Text
	}
	if text == "" {
		return "", core.NewChatError(core.ErrKindUnknown, "Received no response from the model.", nil)
	}
	return text, nil
}

// convertMessages converts transcript turns to Gemini contents. Priming turns
// alternate user/model starting with user, mirroring how the persona
// instruction and its acknowledgment are seeded into the chat.
func (s *GeminiLLMService) convertMessages(messages []core.ChatMessage) []geminiContent {
	contents := make([]geminiContent, 0, len(messages))
	primingSeen := 0
	for _, msg := range messages {
		role := "user"
		switch msg.Role {
		case core.ChatRolePriming:
			if primingSeen%2 == 1 {
				role = "model"
			}
			primingSeen++
		case core.ChatRoleAssistant:
			role = "model"
		case core.ChatRoleUser:
			role = "user"
		}
		contents = append(contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: msg.Text}},
		})
	}
	return contents
}

// classifyHTTPError maps a non-200 generateContent response onto the error
// taxonomy, checking both the HTTP status and the API status string.
func (s *GeminiLLMService) classifyHTTPError(statusCode int, body []byte) error {
	var parsed geminiErrorResponse
	status := ""
	message := string(body)
	if err := sonic.Unmarshal(body, &parsed); err == nil && parsed.Error.Status != "" {
		status = parsed.Error.Status
		message = parsed.Error.Message
	}

	cause := fmt.Errorf("gemini: HTTP %d: %s (status: %s)", statusCode, message, status)

	switch {
	case statusCode == http.StatusTooManyRequests || status == "RESOURCE_EXHAUSTED":
		return core.NewChatError(core.ErrKindRateLimited, "API request limit reached. Please try again later.", cause)
	case statusCode >= 500 || status == "UNAVAILABLE" || status == "INTERNAL":
		return core.NewChatError(core.ErrKindUnavailable, "The model is unreachable right now. Please try again.", cause)
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return core.NewChatError(core.ErrKindUnavailable, "The model is unreachable right now. Please try again.", cause)
	default:
		return core.NewChatError(core.ErrKindUnknown, "Sorry, I encountered an error processing your request. Please try again.", cause)
	}
}
