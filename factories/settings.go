package factories

import (
	"fmt"
	"os"
	"time"

	"github.com/bytedance/sonic"

	arbitrationhandler "bhashakit/handlers/arbitration"
	synthesishandler "bhashakit/handlers/synthesis"
	"bhashakit/session"
)

// APIKeys holds upstream credentials, read from the environment only. They
// never appear in settings.json.
type APIKeys struct {
	Gemini    string
	OpenAI    string
	GoogleTTS string
}

// LoadAPIKeys reads credentials from the environment. Only the Gemini key is
// required; a missing OpenAI key disables the fallback provider and a missing
// Google TTS key disables the /tts proxy.
func LoadAPIKeys() APIKeys {
	return APIKeys{
		Gemini:    os.Getenv("GEMINI_API_KEY"),
		OpenAI:    os.Getenv("OPENAI_API_KEY"),
		GoogleTTS: os.Getenv("GOOGLE_TTS_API_KEY"),
	}
}

// SessionSettings configures conversation history and the tutor persona.
type SessionSettings struct {
	// TargetLanguage is the language being taught.
	TargetLanguage string `json:"target_language,omitempty"`
	// NativeLanguage is the language explanations are given in.
	NativeLanguage string `json:"native_language,omitempty"`
	// MaxPairs is the number of user/assistant exchange pairs retained.
	MaxPairs int `json:"max_pairs,omitempty"`
	// UpstreamTimeoutSeconds bounds each chat provider call.
	UpstreamTimeoutSeconds int `json:"upstream_timeout_seconds,omitempty"`
}

// ArbitrationSettings configures the turn-taking state machine.
type ArbitrationSettings struct {
	SilenceTimeoutMs    int    `json:"silence_timeout_ms,omitempty"`
	RecognitionLanguage string `json:"recognition_language,omitempty"`
	AutoResumeListening *bool  `json:"auto_resume_listening,omitempty"`
}

// SynthesisSettings configures browser-side speech playback.
type SynthesisSettings struct {
	Language string  `json:"language,omitempty"`
	Rate     float64 `json:"rate,omitempty"`
	Pitch    float64 `json:"pitch,omitempty"`
}

// TTSSettings configures the server-side audio synthesis endpoint.
type TTSSettings struct {
	LanguageCode string `json:"language_code,omitempty"`
	VoiceName    string `json:"voice_name,omitempty"`
}

// ServerSettings configures the HTTP listener.
type ServerSettings struct {
	Addr string `json:"addr,omitempty"`
}

// SettingsConfig is the top-level config loaded from settings.json.
type SettingsConfig struct {
	Server        ServerSettings      `json:"server"`
	Session       SessionSettings     `json:"session"`
	Arbitration   ArbitrationSettings `json:"arbitration"`
	Synthesis     SynthesisSettings   `json:"synthesis"`
	TTS           TTSSettings         `json:"tts"`
	Chat          ChatFactoryConfig   `json:"chat"`
	ChatFallbacks []ChatFactoryConfig `json:"chat_fallbacks,omitempty"`
}

// DefaultSettingsConfig returns production defaults: Gemini primary with an
// OpenAI fallback, Kannada tutoring explained in English.
func DefaultSettingsConfig() SettingsConfig {
	return SettingsConfig{
		Server: ServerSettings{Addr: ":8080"},
		Chat:   ChatFactoryConfig{GeminiConfig: &GeminiProviderConfig{}},
		ChatFallbacks: []ChatFactoryConfig{
			{OpenAIConfig: &OpenAIProviderConfig{}},
		},
	}
}

// SettingsConfigFromJSON parses a JSON blob into a SettingsConfig, filling
// gaps with defaults.
func SettingsConfigFromJSON(data []byte) (SettingsConfig, error) {
	cfg := DefaultSettingsConfig()
	if err := sonic.Unmarshal(data, &cfg); err != nil {
		return SettingsConfig{}, fmt.Errorf("settings: %w", err)
	}
	if cfg.Chat.GeminiConfig == nil && cfg.Chat.OpenAIConfig == nil {
		cfg.Chat = ChatFactoryConfig{GeminiConfig: &GeminiProviderConfig{}}
	}
	return cfg, nil
}

// SettingsConfigFromFile reads and parses a SettingsConfig from a JSON file.
func SettingsConfigFromFile(path string) (SettingsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultSettingsConfig(), fmt.Errorf("settings: read %q: %w", path, err)
	}
	return SettingsConfigFromJSON(data)
}

// InjectAPIKeys applies environment credentials to every provider config
// whose key is still empty.
func (c *SettingsConfig) InjectAPIKeys(keys APIKeys) {
	injectChatKeys(&c.Chat, keys)
	for i := range c.ChatFallbacks {
		injectChatKeys(&c.ChatFallbacks[i], keys)
	}
}

func injectChatKeys(cfg *ChatFactoryConfig, keys APIKeys) {
	if cfg.GeminiConfig != nil && cfg.GeminiConfig.APIKey == "" {
		cfg.GeminiConfig.APIKey = keys.Gemini
	}
	if cfg.OpenAIConfig != nil && cfg.OpenAIConfig.APIKey == "" {
		cfg.OpenAIConfig.APIKey = keys.OpenAI
	}
}

// SessionManagerConfig translates settings into the session manager's config.
func (c SettingsConfig) SessionManagerConfig() session.Config {
	cfg := session.DefaultConfig()
	if c.Session.TargetLanguage != "" || c.Session.NativeLanguage != "" {
		cfg.Priming = session.TutorPriming(c.Session.TargetLanguage, c.Session.NativeLanguage)
	}
	if c.Session.MaxPairs > 0 {
		cfg.MaxPairs = c.Session.MaxPairs
	}
	if c.Session.UpstreamTimeoutSeconds > 0 {
		cfg.UpstreamTimeout = time.Duration(c.Session.UpstreamTimeoutSeconds) * time.Second
	}
	return cfg
}

// ArbitrationConfig translates settings into the arbitration handler's
// config. The session ID is assigned per connection by the caller.
func (c SettingsConfig) ArbitrationConfig(sessionID string) arbitrationhandler.Config {
	cfg := arbitrationhandler.DefaultConfig()
	cfg.SessionId = sessionID
	if c.Arbitration.SilenceTimeoutMs > 0 {
		cfg.SilenceTimeout = time.Duration(c.Arbitration.SilenceTimeoutMs) * time.Millisecond
	}
	if c.Arbitration.RecognitionLanguage != "" {
		cfg.Language = c.Arbitration.RecognitionLanguage
	}
	if c.Arbitration.AutoResumeListening != nil {
		cfg.AutoResumeListening = *c.Arbitration.AutoResumeListening
	}
	return cfg
}

// SynthesisConfig translates settings into the synthesis handler's config.
func (c SettingsConfig) SynthesisConfig() synthesishandler.Config {
	cfg := synthesishandler.DefaultConfig()
	if c.Synthesis.Language != "" {
		cfg.Language = c.Synthesis.Language
	}
	if c.Synthesis.Rate > 0 {
		cfg.Rate = c.Synthesis.Rate
	}
	if c.Synthesis.Pitch > 0 {
		cfg.Pitch = c.Synthesis.Pitch
	}
	return cfg
}
