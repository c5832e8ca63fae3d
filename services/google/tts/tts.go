package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/bytedance/sonic"

	"bhashakit/core"
	"bhashakit/utils/audio"
)

const (
	// DefaultBaseURL is the Google Cloud Text-to-Speech REST endpoint.
	DefaultBaseURL = "https://texttospeech.googleapis.com/v1"

	DefaultLanguageCode = "kn-IN"
	DefaultVoiceName    = "kn-IN-Wavenet-A"

	// linear16SampleRate is the sample rate requested for raw PCM output.
	linear16SampleRate = 8000
)

// GoogleTTSService synthesizes speech through the text:synthesize endpoint.
// It backs the /tts HTTP route; browser-side playback normally uses the
// device synthesizer instead.
type GoogleTTSService struct {
	apiKey       string
	baseURL      string
	languageCode string
	voiceName    string

	client *http.Client

	isInitialized bool
	mu            sync.RWMutex
}

// Config holds the configuration for the Google TTS service.
type Config struct {
	APIKey       string
	BaseURL      string
	LanguageCode string
	VoiceName    string
}

func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:       apiKey,
		BaseURL:      DefaultBaseURL,
		LanguageCode: DefaultLanguageCode,
		VoiceName:    DefaultVoiceName,
	}
}

// NewGoogleTTSService creates a new instance of GoogleTTSService.
func NewGoogleTTSService(config Config) *GoogleTTSService {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.LanguageCode == "" {
		config.LanguageCode = DefaultLanguageCode
	}
	if config.VoiceName == "" {
		config.VoiceName = DefaultVoiceName
	}
	return &GoogleTTSService{
		apiKey:       config.APIKey,
		baseURL:      config.BaseURL,
		languageCode: config.LanguageCode,
		voiceName:    config.VoiceName,
	}
}

// Init initializes the Google TTS service.
func (s *GoogleTTSService) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.apiKey == "" {
		return fmt.Errorf("Google TTS API key is required")
	}
	s.client = &http.Client{}
	s.isInitialized = true
	return nil
}

// Cleanup performs cleanup operations.
func (s *GoogleTTSService) Cleanup() error {
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
func (s *GoogleTTSService) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = &http.Client{}
	return nil
}

// SynthesizeRequest is one synthesis call. Empty fields fall back to the
// service defaults; Format defaults to MP3.
type SynthesizeRequest struct {
	Text         string
	LanguageCode string
	VoiceName    string
	Format       core.AudioEncodingFormat
}

// SynthesizeResult carries the synthesized audio both raw and base64-encoded
// for JSON responses. DurationSeconds is 0 for MP3 output, which is opaque.
type SynthesizeResult struct {
	Audio           []byte
	AudioBase64     string
	Format          core.AudioEncodingFormat
	DurationSeconds float64
}

type synthesizeAPIRequest struct {
	Input       synthesisInput `json:"input"`
	Voice       voiceSelection `json:"voice"`
	AudioConfig audioConfig    `json:"audioConfig"`
}

type synthesisInput struct {
	Text string `json:"text"`
}

type voiceSelection struct {
	LanguageCode string `json:"languageCode"`
	Name         string `json:"name,omitempty"`
}

type audioConfig struct {
	AudioEncoding   string `json:"audioEncoding"`
	SampleRateHertz int    `json:"sampleRateHertz,omitempty"`
}

type synthesizeAPIResponse struct {
	AudioContent string `json:"audioContent"`
}

// Synthesize calls the upstream synthesize endpoint. For u-law output the
// service requests LINEAR16 and transcodes locally.
func (s *GoogleTTSService) Synthesize(ctx context.Context, req SynthesizeRequest) (*SynthesizeResult, error) {
	s.mu.RLock()
	if !s.isInitialized {
		s.mu.RUnlock()
		return nil, core.NewChatError(core.ErrKindUnavailable, "Speech synthesis is unavailable right now.", fmt.Errorf("google tts service not initialized"))
	}
	client := s.client
	s.mu.RUnlock()

	if req.Text == "" {
		return nil, core.NewChatError(core.ErrKindValidation, "Text is required", nil)
	}
	if req.LanguageCode == "" {
		req.LanguageCode = s.languageCode
	}
	if req.VoiceName == "" {
		req.VoiceName = s.voiceName
	}

	upstreamEncoding := "MP3"
	switch req.Format {
	case core.PCM, core.ULAW, core.ALAW, core.WAV:
		upstreamEncoding = "LINEAR16"
	}

	apiReq := synthesizeAPIRequest{
		Input: synthesisInput{Text: req.Text},
		Voice: voiceSelection{LanguageCode: req.LanguageCode, Name: req.VoiceName},
		AudioConfig: audioConfig{
			AudioEncoding: upstreamEncoding,
		},
	}
	if upstreamEncoding == "LINEAR16" {
		apiReq.AudioConfig.SampleRateHertz = linear16SampleRate
	}

	payload, err := sonic.Marshal(apiReq)
	if err != nil {
		return nil, core.NewChatError(core.ErrKindUnknown, "Failed to generate speech.", err)
	}

	url := fmt.Sprintf("%s/text:synthesize", s.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, core.NewChatError(core.ErrKindUnknown, "Failed to generate speech.", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", s.apiKey)

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, core.NewChatError(core.ErrKindUnavailable, "Speech synthesis is unavailable right now.", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.NewChatError(core.ErrKindUnavailable, "Speech synthesis is unavailable right now.", err)
	}
	if resp.StatusCode != http.StatusOK {
		kind := core.ErrKindUnavailable
		if resp.StatusCode == http.StatusTooManyRequests {
			kind = core.ErrKindRateLimited
		}
		return nil, core.NewChatError(kind, "Failed to generate speech.", fmt.Errorf("google tts: HTTP %d: %s", resp.StatusCode, body))
	}

	var parsed synthesizeAPIResponse
	if err := sonic.Unmarshal(body, &parsed); err != nil {
		return nil, core.NewChatError(core.ErrKindUnknown, "Failed to generate speech.", err)
	}
	raw, err := base64.StdEncoding.DecodeString(parsed.AudioContent)
	if err != nil {
		return nil, core.NewChatError(core.ErrKindUnknown, "Failed to generate speech.", err)
	}

	out, duration, err := s.convertOutput(raw, req.Format)
	if err != nil {
		return nil, core.NewChatError(core.ErrKindUnknown, "Failed to generate speech.", err)
	}

	return &SynthesizeResult{
		Audio:           out,
		AudioBase64:     base64.StdEncoding.EncodeToString(out),
		Format:          req.Format,
		DurationSeconds: duration,
	}, nil
}

// convertOutput post-processes the upstream audio. MP3 passes through opaque.
// LINEAR16 responses carry a WAV header which is stripped; the bare samples
// are then re-wrapped (WAV), transcoded (G.711) or returned as-is (PCM).
func (s *GoogleTTSService) convertOutput(raw []byte, format core.AudioEncodingFormat) ([]byte, float64, error) {
	if format == core.MP3 {
		return raw, 0, nil
	}

	pcm, err := audio.StripWAVHeaderIfPresent(raw)
	if err != nil {
		return nil, 0, err
	}
	if err := audio.ValidatePCMData(pcm, 1); err != nil {
		return nil, 0, err
	}
	chunk := core.AudioChunk{
		Data:       &pcm,
		SampleRate: linear16SampleRate,
		Channels:   1,
		Format:     core.PCM,
	}
	duration := chunk.GetDurationInSeconds()

	switch format {
	case core.PCM:
		return pcm, duration, nil
	case core.WAV:
		wrapped, err := audio.PCMBytesToWavBytes(pcm, chunk.Channels, chunk.SampleRate)
		if err != nil {
			return nil, 0, err
		}
		return wrapped, duration, nil
	default:
		converted, err := audio.ConvertAudioChunk(chunk, format, chunk.Channels)
		if err != nil {
			return nil, 0, err
		}
		return *converted.Data, duration, nil
	}
}
